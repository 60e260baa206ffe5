package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskbot/internal/bot"
	"taskbot/internal/command"
)

func startApplication(t *testing.T, app *Application) (string, func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Serve(ctx, ln) }()

	stop := func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(15 * time.Second):
			t.Fatal("application did not stop")
		}
	}
	return "http://" + ln.Addr().String(), stop
}

func TestApplication_ServesRoutes(t *testing.T) {
	idp := newIdentityProvider(t, "ann@contoso.com")
	app, err := New(Options{}, "", testConfig(idp.URL))
	require.NoError(t, err)

	base, stop := startApplication(t, app)
	defer stop()

	resp, err := http.Get(base + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	act := bot.Activity{
		ID:       "a-1",
		Address:  testAddress("user-9"),
		Intent:   bot.IntentExecuteCommands,
		Commands: []command.Raw{{Type: "Authenticate"}},
	}
	body, err := json.Marshal(act)
	require.NoError(t, err)
	resp, err = http.Post(base+"/api/messages", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.True(t, app.Services().Registry.Pending("user-9"))

	resp, err = http.Get(base + "/oauth/callback?state=nobody")
	require.NoError(t, err)
	text, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "Wrong callback", string(text))

	resp, err = http.Get(base + "/metrics")
	require.NoError(t, err)
	metricsText, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(metricsText), "taskbot_pending_authentications 1")
}

func TestApplication_IngressDisabled(t *testing.T) {
	cfg := testConfig("https://idp.example.com")
	cfg.Server.Ingress = false
	app, err := New(Options{}, "", cfg)
	require.NoError(t, err)

	base, stop := startApplication(t, app)
	defer stop()

	resp, err := http.Post(base+"/api/messages", "application/json", bytes.NewReader([]byte(`{}`)))
	require.NoError(t, err)
	resp.Body.Close()
	assert.NotEqual(t, http.StatusAccepted, resp.StatusCode)
}

func TestApplication_WatchAppliesDomains(t *testing.T) {
	for _, key := range []string{"OauthAppId", "OauthAppSecret", "OauthCallbackURL", "TASKBOT_ALLOWED_DOMAINS", "TASKBOT_REDIS_ADDR", "TASKBOT_NATS_URL"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	write := func(domain string) {
		yaml := "server:\n  addr: 127.0.0.1:0\noauth:\n  appId: app\n  appSecret: secret\n" +
			"  callbackUrl: https://bot.example.com/oauth/callback\n  allowedDomains: [" + domain + "]\n"
		require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	}
	write("contoso.com")

	app, err := NewApplication(Options{ConfigPath: path, Watch: true, LogOutput: io.Discard})
	require.NoError(t, err)
	assert.Equal(t, []string{"contoso.com"}, app.Services().Policy.Domains())

	_, stop := startApplication(t, app)
	defer stop()

	// Give the watcher a moment to register before editing.
	time.Sleep(100 * time.Millisecond)
	write("fabrikam.com")

	assert.Eventually(t, func() bool {
		d := app.Services().Policy.Domains()
		return len(d) == 1 && d[0] == "fabrikam.com"
	}, 5*time.Second, 50*time.Millisecond)
}

func TestNewApplication_InvalidConfig(t *testing.T) {
	t.Setenv("OauthAppId", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: verbose\n"), 0o600))

	_, err := NewApplication(Options{ConfigPath: path, LogOutput: io.Discard})
	assert.Error(t, err)
}
