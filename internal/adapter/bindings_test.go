package adapter

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/routeql/routeql/internal/httpgql"
)

func TestEventFromHTTP(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/graphql?a=1", strings.NewReader(`{"query":"{a}"}`))
	r.Header.Set("Content-Type", "application/json")
	r.Header.Add("X-Multi", "1")
	r.Header.Add("X-Multi", "2")

	ev := EventFromHTTP(r)
	if ev.Method != http.MethodPost {
		t.Errorf("Method = %q, want POST", ev.Method)
	}
	if ev.URL != "http://example.com/graphql?a=1" {
		t.Errorf("URL = %q", ev.URL)
	}
	if got := ev.Headers.Get("content-type"); got != "application/json" {
		t.Errorf("content-type = %q", got)
	}

	got := normalizeHeaders(ev.Headers)
	if got["x-multi"] != "1, 2" {
		t.Errorf("x-multi = %q, want %q", got["x-multi"], "1, 2")
	}

	text, err := ev.Text()
	if err != nil || text != `{"query":"{a}"}` {
		t.Errorf("Text() = %q, %v", text, err)
	}
}

func TestEventFromHTTPRepeatedHeaders(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{"query":"{a}"}`))
	r.Header.Set("Content-Type", "application/json")
	r.Header.Add("Accept", "a")
	r.Header.Add("Accept", "b")
	r.Header["X-Empty"] = []string{}

	req, err := toNormalizedRequest(EventFromHTTP(r))
	if err != nil {
		t.Fatalf("toNormalizedRequest() error = %v", err)
	}
	if got := req.Headers["accept"]; got != "a, b" {
		t.Errorf("accept = %q, want %q", got, "a, b")
	}
	if got := req.Headers["content-type"]; got != "application/json" {
		t.Errorf("content-type = %q, want %q", got, "application/json")
	}
	if _, ok := req.Headers["x-empty"]; ok {
		t.Error("header without values should be dropped")
	}
}

func TestEventFromHTTPNoBody(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/graphql", nil)
	ev := EventFromHTTP(r)
	if ev.Body != nil {
		t.Error("Body != nil for a request without body")
	}
}

func TestServeHTTP(t *testing.T) {
	engine := newStubEngine()
	h := New(engine, nil)

	t.Run("ok", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/graphql?query=%7Ba%7D", nil))

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
		if got := rec.Header().Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q", got)
		}
		if rec.Body.String() != `{"data":{}}` {
			t.Errorf("body = %q", rec.Body.String())
		}
		if engine.lastArgs.Request.Search != "?query=%7Ba%7D" {
			t.Errorf("Search = %q", engine.lastArgs.Request.Search)
		}
	})

	t.Run("method not allowed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/graphql", nil))

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want 405", rec.Code)
		}
		if rec.Body.Len() != 0 {
			t.Errorf("body = %q, want empty", rec.Body.String())
		}
	})

	t.Run("engine error", func(t *testing.T) {
		failing := newStubEngine()
		failing.err = errors.New("boom")
		rec := httptest.NewRecorder()
		New(failing, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/graphql", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", rec.Code)
		}
	})
}

func TestGin(t *testing.T) {
	gin.SetMode(gin.TestMode)

	engine := newStubEngine()
	engine.execute = func(ctx context.Context, args httpgql.ExecuteArgs) (*httpgql.Response, error) {
		v, err := args.Context(ctx)
		if err != nil {
			return nil, err
		}
		tenant, _ := v.(string)
		return &httpgql.Response{
			Status:  http.StatusOK,
			Headers: []httpgql.Header{{Name: "x-tenant", Value: tenant}},
			Body:    httpgql.Body{String: `{"data":null}`},
		}, nil
	}
	h := New(engine, &Options{
		Context: func(_ context.Context, ev *RequestEvent) (any, error) {
			if ev.Params["tenant"] == "broken" {
				return nil, errors.New("unknown tenant")
			}
			return ev.Params["tenant"], nil
		},
	})

	router := gin.New()
	router.Any("/t/:tenant/graphql", Gin(h))

	t.Run("route params reach the context", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/t/acme/graphql", strings.NewReader("{}")))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if got := rec.Header().Get("X-Tenant"); got != "acme" {
			t.Errorf("X-Tenant = %q, want %q", got, "acme")
		}
		body, _ := io.ReadAll(rec.Body)
		if string(body) != `{"data":null}` {
			t.Errorf("body = %q", body)
		}
	})

	t.Run("method not allowed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/t/acme/graphql", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want 405", rec.Code)
		}
	})

	t.Run("errors abort with 500", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/t/broken/graphql", nil))
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", rec.Code)
		}
	})
}
