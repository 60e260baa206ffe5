package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskbot/internal/bot"
	"taskbot/internal/conversation"
)

type fakeActivities struct {
	mu   sync.Mutex
	acts []bot.Activity
	err  error
}

func (f *fakeActivities) Handle(_ context.Context, act bot.Activity, _ conversation.Messenger) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acts = append(f.acts, act)
	return f.err
}

func okCallback() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("callback:" + r.URL.Query().Get("state")))
	})
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	req.RemoteAddr = "192.0.2.1:5555"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRoutes(t *testing.T) {
	s := New(Config{CallbackPath: "/auth/cb"}, Deps{
		Callback: okCallback(),
		Metrics:  http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("metrics")) }),
	})
	h := s.Handler()

	rr := do(t, h, http.MethodGet, "/auth/cb?state=u1&code=c", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "callback:u1", rr.Body.String())

	rr = do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, "ok", rr.Body.String())

	rr = do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, "metrics", rr.Body.String())

	rr = do(t, h, http.MethodPost, "/auth/cb", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	// No activity handler, no ingress route.
	rr = do(t, h, http.MethodPost, "/api/messages", "{}")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestActivityIngress(t *testing.T) {
	acts := &fakeActivities{}
	s := New(Config{}, Deps{Callback: okCallback(), Activities: acts, Messenger: conversation.NewRecorder()})
	h := s.Handler()

	body := `{"intent":"ExecuteCommands","address":{"channelId":"teams","user":{"id":"u1"}},"commands":[{"type":"Say","opts":{"text":"hi"}}]}`
	rr := do(t, h, http.MethodPost, "/api/messages", body)
	require.Equal(t, http.StatusAccepted, rr.Code)
	require.Len(t, acts.acts, 1)
	assert.Equal(t, "u1", acts.acts[0].Address.User.ID)
	assert.Equal(t, "Say", acts.acts[0].Commands[0].Type)

	rr = do(t, h, http.MethodPost, "/api/messages", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodPost, "/api/messages", `{"intent":"ExecuteCommands","address":{"channelId":"teams"}}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	acts.err = errors.New("store down")
	rr = do(t, h, http.MethodPost, "/api/messages", body)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestCallbackRateLimit(t *testing.T) {
	s := New(Config{CallbackRate: 0.001, CallbackBurst: 2}, Deps{Callback: okCallback()})
	h := s.Handler()

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/oauth/callback?state=a", "").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/oauth/callback?state=a", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, h, http.MethodGet, "/oauth/callback?state=a", "").Code)

	// Other clients have their own bucket.
	req := httptest.NewRequest(http.MethodGet, "/oauth/callback?state=b", nil)
	req.RemoteAddr = "198.51.100.7:1234"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	// Health checks are not limited.
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/healthz", "").Code)
}

func TestLimiterSweep(t *testing.T) {
	l := newIPLimiter(1, 1)
	now := time.Now()
	l.now = func() time.Time { return now }

	l.allow("a")
	l.allow("b")
	assert.Equal(t, 2, l.size())

	now = now.Add(limiterTTL + time.Second)
	l.allow("b")
	l.sweep()
	assert.Equal(t, 1, l.size())
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := New(Config{}, Deps{Callback: okCallback()})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
