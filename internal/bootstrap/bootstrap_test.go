package bootstrap

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appRxn "github.com/turtacn/ARChemistry/internal/application/reaction"
	"github.com/turtacn/ARChemistry/internal/config"
	domainRxn "github.com/turtacn/ARChemistry/internal/domain/reaction"
	"github.com/turtacn/ARChemistry/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ARChemistry/internal/infrastructure/recognition"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Server.Mode = "test"
	cfg.Recognition.Placeholder = true
	cfg.Storage.Backend = config.BackendFile
	cfg.Storage.Dir = t.TempDir()
	cfg.Metrics.Enabled = true
	cfg.Metrics.Namespace = "archem_boot"
	cfg.Log.OutputPaths = []string{"stderr"}
	config.ApplyDefaults(cfg)
	require.NoError(t, cfg.Validate())
	return cfg
}

func newApp(t *testing.T, cfg *config.Config, opts ...Option) *App {
	t.Helper()
	app, err := New(context.Background(), cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestNew_NilConfig(t *testing.T) {
	_, err := New(context.Background(), nil)
	assert.Error(t, err)
}

func TestNew_UnknownBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Backend = "tape"
	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"tape"`)
}

func TestNew_FileBackend(t *testing.T) {
	app := newApp(t, testConfig(t))

	require.NotNil(t, app.Service)
	require.NotNil(t, app.Sink)
	require.NotNil(t, app.Metrics)
	assert.Len(t, app.Checkers, 1)
	assert.Equal(t, "storage", app.Checkers[0].Name())

	found := false
	for _, e := range app.Sink.Entries() {
		if e.Message == "application assembled" {
			found = true
			assert.Equal(t, "file", e.Fields["storage_backend"])
		}
	}
	assert.True(t, found)
}

func TestApp_RouterServesReactions(t *testing.T) {
	app := newApp(t, testConfig(t))
	r := app.Router("test")

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/readyz", "").Code)

	w := serve(r, http.MethodPost, "/api/v1/reactions", `{
		"reagent_name": "H₂ (Hydrogen)", "persist": true,
		"reactant": {"atoms": ["C", "C"], "coords": [[-0.5, 0, 0], [0.5, 0, 0]], "bonds": [[0, 1, 2]]}
	}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"product_formula":"C2H6"`)

	keys, err := app.Store.List(context.Background(), "product")
	require.NoError(t, err)
	assert.Len(t, keys, 1)

	w = serve(r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "archem_boot_http_requests_total")

	w = serve(r, http.MethodGet, "/api/v1/logs?level=INFO", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "application assembled")
}

func TestNew_BadgerInMemory(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Backend = config.BackendBadger
	cfg.Storage.Badger.InMemory = true
	app := newApp(t, cfg)

	res, err := app.Service.React(context.Background(), &appRxn.ReactInput{
		Reactant:    recognition.EtheneGraph(),
		ReagentName: domainRxn.NameBromine,
		Persist:     true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.ProductKey)

	g, err := app.Service.LoadGraph(context.Background(), res.ProductKey)
	require.NoError(t, err)
	assert.Equal(t, "C2H4Br2", g.Formula())
	assert.NoError(t, app.Close())
}

type fixedRecognizer struct{ calls int }

func (f *fixedRecognizer) Recognize(_ context.Context, _ recognition.Image, _ string) (*recognition.Result, error) {
	f.calls++
	return &recognition.Result{Reactant: recognition.EtheneGraph(), RequestID: "fixed"}, nil
}

func TestNew_WithRecognizerAndLogger(t *testing.T) {
	rec := &fixedRecognizer{}
	sink := logging.NewMemorySink(50)
	app := newApp(t, testConfig(t), WithRecognizer(rec), WithLogger(logging.NewSinkLogger(sink, "debug")))

	assert.Nil(t, app.Sink)
	res, err := app.Service.ProcessImage(context.Background(), &appRxn.ProcessImageInput{
		Image:       recognition.Image{Filename: "a.png", Data: bytes.NewReader([]byte{1})},
		ReagentName: domainRxn.NamePermanganate,
	})
	require.NoError(t, err)
	assert.Equal(t, "fixed", res.RequestID)
	assert.Equal(t, 1, rec.calls)
	assert.NotZero(t, sink.Len())
}

func TestApp_ApplyConfigChangesLevel(t *testing.T) {
	app := newApp(t, testConfig(t))
	app.Logger.Debug("hidden")

	next := testConfig(t)
	next.Log.Level = "debug"
	app.ApplyConfig(next)
	app.Logger.Debug("visible")

	var messages []string
	for _, e := range app.Sink.Entries() {
		messages = append(messages, e.Message)
	}
	assert.NotContains(t, messages, "hidden")
	assert.Contains(t, messages, "visible")
	assert.Contains(t, messages, "log level changed")
	assert.Equal(t, "debug", app.Level.String())

	app.ApplyConfig(nil)
	assert.Equal(t, "debug", app.Level.String())
}

func TestApp_RouterRateLimitAndCORS(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.RateLimit = 1
	cfg.Server.RateBurst = 1
	cfg.Server.CORSOrigins = []string{"https://viewer.local"}
	app := newApp(t, cfg)
	r := app.Router("test")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reagents", nil)
	req.Header.Set("Origin", "https://viewer.local")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://viewer.local", w.Header().Get("Access-Control-Allow-Origin"))

	assert.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodGet, "/api/v1/reagents", "").Code)
}

func TestApp_CloseIdempotent(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Backend = config.BackendBadger
	cfg.Storage.Badger.InMemory = true
	app, err := New(context.Background(), cfg)
	require.NoError(t, err)

	assert.NoError(t, app.Close())
	assert.NoError(t, app.Close())
}

func TestApp_ServeUntilCancelled(t *testing.T) {
	app := newApp(t, testConfig(t))
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Serve(ctx, ln, "test") }()

	url := "http://" + ln.Addr().String() + "/healthz"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestApp_WatchConfigReloadsLevel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "archem.yaml")
	write := func(level string) {
		doc := "log:\n  level: " + level + "\n  output_paths: [stderr]\n" +
			"recognition:\n  placeholder: true\n" +
			"storage:\n  backend: file\n  dir: " + filepath.Join(dir, "graphs") + "\n"
		require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	}
	write("info")

	cfg, err := config.Load(config.WithConfigPath(path))
	require.NoError(t, err)
	app := newApp(t, cfg)
	require.NoError(t, app.WatchConfig(path))

	write("debug")
	assert.Eventually(t, func() bool { return app.Level.String() == "debug" }, 5*time.Second, 20*time.Millisecond)
}

func TestApp_WatchConfigMissingFile(t *testing.T) {
	app := newApp(t, testConfig(t))
	assert.Error(t, app.WatchConfig(filepath.Join(t.TempDir(), "absent.yaml")))
}

func TestNew_PostgresUnreachable(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Backend = config.BackendPostgres
	cfg.Storage.Postgres.Host = "127.0.0.1"
	cfg.Storage.Postgres.Port = 1
	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bootstrap: postgres")
}
