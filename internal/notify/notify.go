// Package notify publishes order events to Kafka.
package notify

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/xenking/academy-checkout/internal/domain/order"
)

// EventOrderCreated is the event_type header of OrderCreated messages.
const EventOrderCreated = "OrderCreated"

// ErrQueueFull is returned when an event is dropped because the publishing
// queue is saturated.
var ErrQueueFull = errors.New("notification queue full")

// Writer is the subset of *kafka.Writer used by the notifier.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Options configures a KafkaNotifier.
type Options struct {
	// QueueSize bounds the number of events waiting to be published.
	QueueSize int
	// WriteTimeout bounds a single publish.
	WriteTimeout time.Duration
	Logger       *zap.Logger
}

func (o *Options) setDefaults() {
	if o.QueueSize <= 0 {
		o.QueueSize = 1024
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

var _ order.Notifier = (*KafkaNotifier)(nil)

// KafkaNotifier hands events to a bounded queue drained by Run. Enqueueing
// never waits on the broker.
type KafkaNotifier struct {
	writer  Writer
	queue   chan order.Event
	timeout time.Duration
	lg      *zap.Logger
}

// NewWriter returns a kafka-go writer for the topic.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
}

// NewKafkaNotifier creates a notifier publishing through w.
func NewKafkaNotifier(w Writer, opts Options) *KafkaNotifier {
	opts.setDefaults()
	return &KafkaNotifier{
		writer:  w,
		queue:   make(chan order.Event, opts.QueueSize),
		timeout: opts.WriteTimeout,
		lg:      opts.Logger,
	}
}

// OrderCreated enqueues the event. It returns ErrQueueFull instead of
// blocking when the queue is saturated.
func (n *KafkaNotifier) OrderCreated(_ context.Context, e order.Event) error {
	select {
	case n.queue <- e:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run publishes queued events until ctx is done, then flushes what is left
// in the queue with a fresh deadline.
func (n *KafkaNotifier) Run(ctx context.Context) error {
	for {
		select {
		case e := <-n.queue:
			n.publish(ctx, e)
		case <-ctx.Done():
			n.drain()
			return nil
		}
	}
}

func (n *KafkaNotifier) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()
	for {
		select {
		case e := <-n.queue:
			n.publish(ctx, e)
		default:
			return
		}
	}
}

func (n *KafkaNotifier) publish(ctx context.Context, e order.Event) {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(e.OrderID),
		Value: EncodeOrderCreated(uuid.NewString(), e),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventOrderCreated)},
		},
		Time: e.OccurredAt,
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		n.lg.Error("Publish order event",
			zap.String("order_id", e.OrderID),
			zap.Error(err),
		)
		return
	}
	n.lg.Debug("Published order event", zap.String("order_id", e.OrderID))
}

// Close releases the underlying writer. Call it after Run has returned.
func (n *KafkaNotifier) Close() error {
	if err := n.writer.Close(); err != nil {
		return errors.Wrap(err, "close kafka writer")
	}
	return nil
}

// EncodeOrderCreated renders the JSON payload of an OrderCreated message.
func EncodeOrderCreated(eventID string, e order.Event) []byte {
	var enc jx.Encoder
	enc.ObjStart()
	enc.FieldStart("event_id")
	enc.Str(eventID)
	enc.FieldStart("event_type")
	enc.Str(EventOrderCreated)
	enc.FieldStart("order_id")
	enc.Str(e.OrderID)
	enc.FieldStart("owner_id")
	enc.Str(e.OwnerID)
	enc.FieldStart("total")
	enc.ObjStart()
	enc.FieldStart("amount")
	enc.Str(e.Total.Amount.StringFixed(2))
	enc.FieldStart("currency")
	enc.Str(e.Total.Currency)
	enc.ObjEnd()
	enc.FieldStart("course_ids")
	enc.ArrStart()
	for _, id := range e.CourseIDs {
		enc.Str(id)
	}
	enc.ArrEnd()
	enc.FieldStart("occurred_at")
	enc.Str(e.OccurredAt.UTC().Format(time.RFC3339Nano))
	enc.ObjEnd()
	return enc.Bytes()
}

// Nop discards events. Used when no brokers are configured.
type Nop struct{}

var _ order.Notifier = Nop{}

// OrderCreated implements order.Notifier.
func (Nop) OrderCreated(context.Context, order.Event) error { return nil }
