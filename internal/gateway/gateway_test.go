package gateway

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/jx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/academy-checkout/internal/domain/money"
	"github.com/xenking/academy-checkout/internal/domain/payment"
)

func chargeRequest(token string) payment.ChargeRequest {
	return payment.ChargeRequest{
		PaymentID: "p1",
		OrderID:   "o1",
		Amount:    money.MustParse("90", "USD"),
		Method:    payment.MethodCard,
		Token:     token,
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry().
		Register(payment.MethodCard, Sandbox{}).
		Register(payment.MethodGateway, Sandbox{})

	gw, err := r.Gateway(payment.MethodCard)
	require.NoError(t, err)
	assert.Equal(t, Sandbox{}, gw)

	_, err = r.Gateway(payment.MethodWallet)
	require.ErrorIs(t, err, payment.ErrUnknownMethod)
}

func TestSandbox(t *testing.T) {
	ctx := context.Background()

	res, err := Sandbox{}.Charge(ctx, chargeRequest("tok_visa"))
	require.NoError(t, err)
	assert.True(t, res.Approved)
	assert.True(t, strings.HasPrefix(res.TransactionID, "sbx_"))

	res, err = Sandbox{}.Charge(ctx, chargeRequest("tok_decline_insufficient"))
	require.NoError(t, err)
	assert.False(t, res.Approved)
	assert.Equal(t, "card declined", res.DeclineReason)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = Sandbox{}.Charge(cancelled, chargeRequest("tok_visa"))
	require.ErrorIs(t, err, context.Canceled)
}

func TestHTTPGateway(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantOK     bool
		wantTxn    string
		wantReason string
		wantErr    bool
	}{
		{
			name:    "succeeded",
			status:  http.StatusOK,
			body:    `{"status":"succeeded","transaction_id":"txn_42","extra":{"a":1}}`,
			wantOK:  true,
			wantTxn: "txn_42",
		},
		{
			name:       "declined with reason",
			status:     http.StatusOK,
			body:       `{"status":"declined","reason":"insufficient funds"}`,
			wantReason: "insufficient funds",
		},
		{
			name:       "declined without reason",
			status:     http.StatusOK,
			body:       `{"status":"failed"}`,
			wantReason: "failed",
		},
		{
			name:       "non-2xx",
			status:     http.StatusPaymentRequired,
			body:       `{}`,
			wantReason: "Payment Required",
		},
		{
			name:    "garbage",
			status:  http.StatusOK,
			body:    `not json`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got map[string]string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "p1", r.Header.Get("Idempotency-Key"))
				raw, _ := io.ReadAll(r.Body)
				got = map[string]string{}
				_ = jx.DecodeBytes(raw).Obj(func(d *jx.Decoder, key string) error {
					v, err := d.Str()
					got[key] = v
					return err
				})
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			gw := NewHTTPGateway(srv.URL, time.Second, srv.Client())
			res, err := gw.Charge(context.Background(), chargeRequest("tok_visa"))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, res.Approved)
			assert.Equal(t, tt.wantTxn, res.TransactionID)
			assert.Equal(t, tt.wantReason, res.DeclineReason)

			assert.Equal(t, "90.00", got["amount"])
			assert.Equal(t, "USD", got["currency"])
			assert.Equal(t, "card", got["method"])
			assert.Equal(t, "tok_visa", got["token"])
		})
	}
}

func TestHTTPGateway_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPGateway(url, 200*time.Millisecond, nil).Charge(context.Background(), chargeRequest("tok_visa"))
	require.Error(t, err)
}
