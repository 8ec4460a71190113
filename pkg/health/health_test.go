package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type probeBody struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func probe(t *testing.T, handler http.HandlerFunc) (int, probeBody) {
	t.Helper()
	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body probeBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func runAll(h *Health, probe Probe, times int) {
	for range times {
		for _, c := range h.checks[probe] {
			c.run(context.Background())
		}
	}
}

func TestLiveEndpoint(t *testing.T) {
	h := New()
	h.Add(Liveness, "ok", func(context.Context) error { return nil }, Options{})

	code, body := probe(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body.Status)
	assert.Empty(t, body.Checks)
}

func TestThresholds(t *testing.T) {
	h := New()
	var fail bool
	h.Add(Liveness, "receipts", func(context.Context) error {
		if fail {
			return errors.New("read-only file system")
		}
		return nil
	}, Options{FailureThreshold: 3, SuccessThreshold: 2})

	fail = true
	runAll(h, Liveness, 2)
	code, _ := probe(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusOK, code, "below failure threshold")

	runAll(h, Liveness, 1)
	code, body := probe(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "read-only file system", body.Checks["receipts"])

	fail = false
	runAll(h, Liveness, 1)
	code, _ = probe(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code, "below success threshold")

	runAll(h, Liveness, 1)
	code, _ = probe(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusOK, code)
}

func TestReadyEndpoint(t *testing.T) {
	h := New()
	h.Add(Readiness, "postgres", func(context.Context) error { return errors.New("connection refused") }, Options{FailureThreshold: 1})

	code, body := probe(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "service is not ready", body.Checks["_readiness"])
	assert.False(t, h.IsReady())

	h.SetReady(true)
	code, _ = probe(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusOK, code, "check has not run yet")
	assert.True(t, h.IsReady())

	runAll(h, Readiness, 1)
	code, body = probe(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, map[string]string{"postgres": "connection refused"}, body.Checks)
	assert.False(t, h.IsReady())

	// Liveness is independent of readiness failures.
	code, _ = probe(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusOK, code)
}

func TestCheckTimeout(t *testing.T) {
	h := New()
	h.Add(Liveness, "slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, Options{Timeout: 10 * time.Millisecond, FailureThreshold: 1})

	runAll(h, Liveness, 1)
	_, body := probe(t, h.LiveEndpoint)
	assert.Equal(t, context.DeadlineExceeded.Error(), body.Checks["slow"])
}

func TestStartStop(t *testing.T) {
	h := New()
	h.Add(Readiness, "broken", func(context.Context) error { return errors.New("down") }, Options{FailureThreshold: 1})
	h.SetReady(true)

	h.Start(context.Background(), 10*time.Millisecond)
	defer h.Stop()

	require.Eventually(t, func() bool { return !h.IsReady() }, time.Second, 5*time.Millisecond)

	h.Stop()
	h.Stop()
}

func TestCheckers(t *testing.T) {
	ctx := context.Background()

	assert.NoError(t, GoroutineCountCheck(1_000_000)(ctx))
	assert.Error(t, GoroutineCountCheck(0)(ctx))

	err := Wrapped("receipts dir", func(context.Context) error { return errors.New("permission denied") })(ctx)
	assert.EqualError(t, err, "receipts dir: permission denied")
	assert.NoError(t, Wrapped("x", func(context.Context) error { return nil })(ctx))
}
