package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/ziadkadry99/context-store/internal/contextengine"
	"github.com/ziadkadry99/context-store/internal/storage"
)

func newTestServer(t *testing.T, cfg Config, backend storage.Backend) *Server {
	t.Helper()
	log, _ := test.NewNullLogger()
	return New(cfg, contextengine.NewService(backend, contextengine.Config{}, log), log)
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(t, Config{Port: 0}, storage.NewMemoryBackend(storage.MemoryConfig{}))

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", body["status"])
	}
}

func TestReadyz(t *testing.T) {
	mr := miniredis.RunT(t)
	backend, err := storage.NewRedisBackend(storage.RedisConfig{
		URL:         "redis://" + mr.Addr(),
		DialTimeout: 200 * time.Millisecond,
	}, nil)
	if err != nil {
		t.Fatalf("NewRedisBackend: %v", err)
	}
	defer backend.Close()

	srv := newTestServer(t, Config{}, backend)

	req := httptest.NewRequest("GET", "/readyz", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 while redis is up, got %d", w.Code)
	}

	mr.Close()

	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest("GET", "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 while redis is down, got %d", w.Code)
	}
}

func TestCORSHeaders(t *testing.T) {
	srv := newTestServer(t, Config{Port: 0, AllowAll: true}, storage.NewMemoryBackend(storage.MemoryConfig{}))

	req := httptest.NewRequest("OPTIONS", "/healthz", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("expected CORS Allow-Origin header")
	}
}

func TestContextRoutesMounted(t *testing.T) {
	srv := newTestServer(t, Config{}, storage.NewMemoryBackend(storage.MemoryConfig{}))

	body := `{"type":"documentation","content":"hello","metadata":{"title":"Hello"}}`
	req := httptest.NewRequest("POST", "/api/contexts", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest("GET", "/api/contexts/count", nil))
	var count map[string]int
	if err := json.Unmarshal(w.Body.Bytes(), &count); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if count["count"] != 1 {
		t.Errorf("expected count 1, got %d", count["count"])
	}
}
