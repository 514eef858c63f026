package gateway

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/xenking/academy-checkout/internal/domain/payment"
)

const maxResponseBody = 64 << 10

var _ payment.Gateway = (*HTTPGateway)(nil)

// HTTPGateway charges through a remote JSON endpoint.
//
// Request:  {"payment_id","order_id","token","amount","currency","method"}
// Response: {"status":"succeeded"|..., "transaction_id", "reason"}
type HTTPGateway struct {
	url     string
	client  *http.Client
	timeout time.Duration
}

// NewHTTPGateway creates an adapter posting to url. A nil client gets an
// otelhttp-instrumented default.
func NewHTTPGateway(url string, timeout time.Duration, client *http.Client) *HTTPGateway {
	if client == nil {
		client = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPGateway{url: url, client: client, timeout: timeout}
}

// Charge implements payment.Gateway. Non-2xx responses and any status other
// than "succeeded" are declines; transport and decode failures are errors.
func (g *HTTPGateway) Charge(ctx context.Context, req payment.ChargeRequest) (payment.ChargeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(encodeCharge(req)))
	if err != nil {
		return payment.ChargeResult{}, errors.Wrap(err, "build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", req.PaymentID)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return payment.ChargeResult{}, errors.Wrap(err, "do request")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return payment.ChargeResult{}, errors.Wrap(err, "read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return payment.ChargeResult{
			Approved:      false,
			DeclineReason: http.StatusText(resp.StatusCode),
		}, nil
	}

	status, res, err := decodeCharge(body)
	if err != nil {
		return payment.ChargeResult{}, errors.Wrap(err, "decode response")
	}
	if status != "succeeded" {
		res.Approved = false
		if res.DeclineReason == "" {
			res.DeclineReason = status
		}
		return res, nil
	}
	res.Approved = true
	return res, nil
}

func encodeCharge(req payment.ChargeRequest) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("payment_id")
	e.Str(req.PaymentID)
	e.FieldStart("order_id")
	e.Str(req.OrderID)
	e.FieldStart("token")
	e.Str(req.Token)
	e.FieldStart("amount")
	e.Str(req.Amount.Amount.StringFixed(2))
	e.FieldStart("currency")
	e.Str(req.Amount.Currency)
	e.FieldStart("method")
	e.Str(string(req.Method))
	e.ObjEnd()
	return e.Bytes()
}

func decodeCharge(body []byte) (string, payment.ChargeResult, error) {
	var (
		status string
		res    payment.ChargeResult
	)
	err := jx.DecodeBytes(body).Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "status":
			status, err = d.Str()
		case "transaction_id":
			res.TransactionID, err = d.Str()
		case "reason":
			res.DeclineReason, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	return status, res, err
}
