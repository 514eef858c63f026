package health

import (
	"context"
	"runtime"

	"github.com/go-faster/errors"
	"github.com/segmentio/kafka-go"
)

// GoroutineCountCheck fails when more than threshold goroutines are running.
func GoroutineCountCheck(threshold int) CheckFunc {
	return func(context.Context) error {
		if n := runtime.NumGoroutine(); n > threshold {
			return errors.Errorf("goroutine count %d exceeds threshold %d", n, threshold)
		}
		return nil
	}
}

// Pinger is implemented by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck fails when p cannot be pinged.
func PingCheck(p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		if err := p.Ping(ctx); err != nil {
			return errors.Wrap(err, "ping")
		}
		return nil
	}
}

// KafkaCheck fails when none of the brokers accepts a connection.
func KafkaCheck(brokers []string) CheckFunc {
	return func(ctx context.Context) error {
		var lastErr error
		for _, addr := range brokers {
			conn, err := kafka.DialContext(ctx, "tcp", addr)
			if err != nil {
				lastErr = err
				continue
			}
			_ = conn.Close()
			return nil
		}
		if lastErr == nil {
			return errors.New("no brokers configured")
		}
		return errors.Wrap(lastErr, "dial kafka")
	}
}
