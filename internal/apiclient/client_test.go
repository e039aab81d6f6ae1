package apiclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_FromOrigin(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/config.json" {
			_, _ = io.WriteString(w, `{"apiBase":"https://api.example/"}`)
			return
		}
		http.NotFound(w, r)
	}))
	defer origin.Close()

	c := New(Options{Origin: origin.URL})
	c.LoadConfig(context.Background())
	assert.Equal(t, "https://api.example", c.APIBase())
}

func TestLoadConfig_InvalidMeansSameOrigin(t *testing.T) {
	for name, body := range map[string]string{
		"not json":      `{`,
		"numeric base":  `{"apiBase": 3}`,
		"missing field": `{}`,
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, body)
			}))
			defer srv.Close()
			c := New(Options{Origin: srv.URL})
			c.LoadConfig(context.Background())
			assert.Equal(t, "", c.APIBase())
		})
	}
}

func TestLoadConfig_LocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"apiBase":"http://remote:9000"}`), 0o644))

	c := New(Options{Origin: "http://localhost:8081", ConfigURL: path})
	c.LoadConfig(context.Background())
	assert.Equal(t, "http://remote:9000", c.APIBase())
}

func TestResolve_LocalServicesBypassBase(t *testing.T) {
	c := New(Options{Origin: "http://origin"})
	c.SetAPIBase("http://remote/")

	cases := map[string]struct {
		url     string
		viaBase bool
	}{
		"/usuarios":             {"http://origin/usuarios", false},
		"/usuarios/ana":         {"http://origin/usuarios/ana", false},
		"/login":                {"http://origin/login", false},
		"/config.json":          {"http://origin/config.json", false},
		"/api/caja":             {"http://remote/api/caja", true},
		"api/categorias":        {"http://remote/api/categorias", true},
		"/loginx":               {"http://remote/loginx", true},
		"http://other/api/logs": {"http://other/api/logs", false},
	}
	for in, want := range cases {
		url, via := c.resolve(in)
		assert.Equal(t, want.url, url, in)
		assert.Equal(t, want.viaBase, via, in)
	}
}

func TestDo_ReadFallsBackToOrigin(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"from":"origin"}`)
	}))
	defer origin.Close()

	c := New(Options{Origin: origin.URL, Retry: DefaultRetryPolicy()})
	c.SetAPIBase("http://127.0.0.1:1") // nothing listens here

	var out map[string]string
	require.NoError(t, c.GetJSON(context.Background(), "/api/caja", &out))
	assert.Equal(t, "origin", out["from"])
}

func TestDo_MutationsAreNeverRetried(t *testing.T) {
	var hits int32
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer origin.Close()

	c := New(Options{Origin: origin.URL, Retry: RetryPolicy{MaxAttempts: 3, FallbackToOrigin: true}})
	c.SetAPIBase("http://127.0.0.1:1")

	_, err := c.SendJSON(context.Background(), http.MethodPost, "/api/transacciones", map[string]int{"monto": 1}, nil)
	assert.ErrorIs(t, err, ErrServerUnreachable)
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestDo_ReadAttempts(t *testing.T) {
	c := New(Options{Origin: "http://127.0.0.1:1", Retry: RetryPolicy{MaxAttempts: 2}})
	c.SetAPIBase("")
	err := c.GetJSON(context.Background(), "/api/caja", nil)
	assert.ErrorIs(t, err, ErrServerUnreachable)
}

func TestGetJSON_StatusErrorCarriesText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "Usuario no encontrado", http.StatusNotFound)
	}))
	defer srv.Close()
	c := New(Options{Origin: srv.URL})
	c.SetAPIBase("")

	err := c.GetJSON(context.Background(), "/usuarios", nil)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Status)
	assert.Equal(t, "Usuario no encontrado", se.Error())
}

func TestPing_CandidatesInOrder(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.RequestURI())
		mu.Unlock()
		if r.URL.Path == "/" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(Options{Origin: srv.URL})
	c.SetAPIBase("")
	assert.True(t, c.Ping(context.Background(), time.Second))
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/health", "/api/caja?solo_caja=true", "/"}, paths)
}

func TestPing_BreakerOpensAndManualRetryResets(t *testing.T) {
	var healthy atomic.Bool
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if healthy.Load() {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(Options{Origin: srv.URL, Breaker: CircuitBreakerConfig{FailureThreshold: 2, OpenTimeout: time.Hour}})
	c.SetAPIBase("")
	ctx := context.Background()

	assert.False(t, c.Ping(ctx, time.Second))
	assert.False(t, c.Ping(ctx, time.Second))
	assert.Equal(t, CBOpen, c.BreakerState())

	before := atomic.LoadInt32(&hits)
	healthy.Store(true)
	assert.False(t, c.Ping(ctx, time.Second), "open breaker fails fast")
	assert.Equal(t, before, atomic.LoadInt32(&hits))

	assert.True(t, c.Retry(ctx, time.Second))
	assert.Equal(t, CBClosed, c.BreakerState())
}
