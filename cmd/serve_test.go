package cmd

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/routeql/routeql/internal/engine"
	"github.com/routeql/routeql/internal/httpgql"
)

type testStartup struct {
	done chan struct{}
	err  error
}

func (s *testStartup) Done() <-chan struct{} { return s.done }
func (s *testStartup) Err() error            { return s.err }

func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	setupTestConfig(t)

	logger := log.New(io.Discard)
	h := newHandler(newEngine(), logger)
	if err := httpgql.Wait(t.Context(), h.Startup()); err != nil {
		t.Fatalf("engine startup: %v", err)
	}
	return newRouter(h, logger)
}

func serve(router http.Handler, method, target, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRouterGraphQL(t *testing.T) {
	router := setupTestRouter(t)

	t.Run("POST", func(t *testing.T) {
		rec := serve(router, http.MethodPost, "/graphql", "application/json", `{"query":"{ hello }"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body)
		}
		if got := rec.Body.String(); got != `{"data":{"hello":"Hello, world!"}}` {
			t.Errorf("body = %s", got)
		}
		if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
			t.Errorf("content-type = %q", ct)
		}
	})

	t.Run("GET", func(t *testing.T) {
		rec := serve(router, http.MethodGet, "/graphql?query=%7B%20request%20%7B%20search%20%7D%20%7D", "", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body)
		}
		want := `{"data":{"request":{"search":"?query=%7B%20request%20%7B%20search%20%7D%20%7D"}}}`
		if got := rec.Body.String(); got != want {
			t.Errorf("body = %s, want %s", got, want)
		}
	})

	t.Run("method not allowed", func(t *testing.T) {
		for _, method := range []string{http.MethodPut, http.MethodDelete, http.MethodPatch} {
			rec := serve(router, method, "/graphql", "application/json", `{"query":"{ hello }"}`)
			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("%s status = %d, want 405", method, rec.Code)
			}
			if rec.Body.Len() != 0 {
				t.Errorf("%s body = %q, want empty", method, rec.Body)
			}
		}
	})

	t.Run("malformed JSON is a server error", func(t *testing.T) {
		rec := serve(router, http.MethodPost, "/graphql", "application/json", `{"query":`)
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", rec.Code)
		}
	})

	t.Run("user header reaches the context", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{"query":"{ viewer { name } }"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-User", "grace")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if got := rec.Body.String(); got != `{"data":{"viewer":{"name":"grace"}}}` {
			t.Errorf("body = %s", got)
		}
	})
}

func TestRouterPlayground(t *testing.T) {
	router := setupTestRouter(t)

	rec := serve(router, http.MethodGet, "/playground", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "/graphql") {
		t.Error("playground page should point at the GraphQL endpoint")
	}
}

func TestRouterPlaygroundDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	testCfg := setupTestConfig(t)
	testCfg.Server.Playground = false

	logger := log.New(io.Discard)
	router := newRouter(newHandler(newEngine(), logger), logger)

	rec := serve(router, http.MethodGet, "/playground", "", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestRequestID(t *testing.T) {
	router := setupTestRouter(t)

	t.Run("generated", func(t *testing.T) {
		rec := serve(router, http.MethodGet, "/healthz", "", "")
		if id := rec.Header().Get(requestIDHeader); len(id) != 21 {
			t.Errorf("request id = %q, want a 21 character nanoid", id)
		}
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set(requestIDHeader, "abc")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if id := rec.Header().Get(requestIDHeader); id != "abc" {
			t.Errorf("request id = %q, want %q", id, "abc")
		}
	})
}

func TestHealthz(t *testing.T) {
	gin.SetMode(gin.TestMode)

	status := func(t *testing.T, startup httpgql.Startup) (int, string) {
		t.Helper()
		router := gin.New()
		router.GET("/healthz", healthz(startup))
		rec := serve(router, http.MethodGet, "/healthz", "", "")

		var body struct {
			Status string `json:"status"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		return rec.Code, body.Status
	}

	t.Run("starting", func(t *testing.T) {
		code, s := status(t, &testStartup{done: make(chan struct{})})
		if code != http.StatusServiceUnavailable || s != "starting" {
			t.Errorf("healthz = %d %q, want 503 starting", code, s)
		}
	})

	t.Run("ready", func(t *testing.T) {
		done := make(chan struct{})
		close(done)
		code, s := status(t, &testStartup{done: done})
		if code != http.StatusOK || s != "ok" {
			t.Errorf("healthz = %d %q, want 200 ok", code, s)
		}
	})

	t.Run("failed", func(t *testing.T) {
		done := make(chan struct{})
		close(done)
		code, s := status(t, &testStartup{done: done, err: engine.ErrStartupFailed})
		if code != http.StatusServiceUnavailable || s != "failed" {
			t.Errorf("healthz = %d %q, want 503 failed", code, s)
		}
	})

	t.Run("engine", func(t *testing.T) {
		setupTestConfig(t)
		srv := newEngine()
		startup := srv.StartInBackground()
		select {
		case <-startup.Done():
		case <-time.After(5 * time.Second):
			t.Fatal("engine did not start")
		}
		code, s := status(t, startup)
		if code != http.StatusOK || s != "ok" {
			t.Errorf("healthz = %d %q, want 200 ok", code, s)
		}
	})
}

func TestDisplayURL(t *testing.T) {
	testCfg := setupTestConfig(t)

	tests := []struct {
		addr string
		want string
	}{
		{":22880", "http://localhost:22880/graphql"},
		{"127.0.0.1:8080", "http://127.0.0.1:8080/graphql"},
	}
	for _, tt := range tests {
		testCfg.Server.Addr = tt.addr
		if got := displayURL("/graphql"); got != tt.want {
			t.Errorf("displayURL(%q) with addr %q = %q, want %q", "/graphql", tt.addr, got, tt.want)
		}
	}
}
