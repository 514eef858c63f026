package health

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passing(context.Context) error { return nil }

func failing(msg string) CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

func serve(h http.HandlerFunc) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/", nil))
	return w
}

func TestLiveEndpoint(t *testing.T) {
	h := New()
	h.AddLivenessCheck("goroutines", time.Second, passing)
	h.AddLivenessCheck("db", time.Second, failing("connection refused"))

	// Checks start healthy.
	w := serve(h.LiveEndpoint)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	db := h.liveness[1]
	for range FailureThreshold - 1 {
		db.poll(context.Background())
	}
	assert.Equal(t, http.StatusOK, serve(h.LiveEndpoint).Code, "below threshold")

	db.poll(context.Background())
	w = serve(h.LiveEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"unhealthy","checks":{"db":"connection refused"}}`, w.Body.String())
}

func TestProbe_RecoversAfterOneSuccess(t *testing.T) {
	var broken atomic.Bool
	broken.Store(true)
	p := newProbe("db", time.Second, func(context.Context) error {
		if broken.Load() {
			return errors.New("down")
		}
		return nil
	})

	for range FailureThreshold {
		p.poll(context.Background())
	}
	_, failed := p.failure()
	require.True(t, failed)

	broken.Store(false)
	p.poll(context.Background())
	_, failed = p.failure()
	assert.False(t, failed)
}

func TestProbe_Timeout(t *testing.T) {
	p := newProbe("slow", 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	for range FailureThreshold {
		p.poll(context.Background())
	}
	msg, failed := p.failure()
	require.True(t, failed)
	assert.Contains(t, msg, "deadline exceeded")
}

func TestReadyEndpoint(t *testing.T) {
	h := New()
	h.AddReadinessCheck("postgres", time.Second, passing)

	w := serve(h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"unhealthy","checks":{"_readiness":"service is not ready"}}`, w.Body.String())
	assert.False(t, h.IsReady())

	h.SetReady(true)
	assert.Equal(t, http.StatusOK, serve(h.ReadyEndpoint).Code)
	assert.True(t, h.IsReady())

	h.SetReady(false)
	assert.False(t, h.IsReady())
}

func TestRun(t *testing.T) {
	h := New()
	var calls atomic.Int32
	h.AddReadinessCheck("counter", time.Second, func(context.Context) error {
		calls.Add(1)
		return errors.New("still warming up")
	})
	h.SetReady(true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx, 5*time.Millisecond) }()

	require.Eventually(t, func() bool { return !h.IsReady() }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.GreaterOrEqual(t, calls.Load(), int32(FailureThreshold))
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestCheckers(t *testing.T) {
	ctx := context.Background()

	require.NoError(t, GoroutineCountCheck(100000)(ctx))
	require.Error(t, GoroutineCountCheck(0)(ctx))

	require.NoError(t, PingCheck(pinger{})(ctx))
	require.ErrorContains(t, PingCheck(pinger{err: errors.New("refused")})(ctx), "refused")

	require.Error(t, KafkaCheck(nil)(ctx))

	// A listener that is closed immediately refuses connections.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	dialCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.Error(t, KafkaCheck([]string{addr})(dialCtx))
}
