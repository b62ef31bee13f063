package engine

import (
	"context"
	"sync"

	"github.com/routeql/routeql/internal/httpgql"
)

type requestContextKey struct{}

// requestContext is the per-request state resolvers can reach.
type requestContext struct {
	value   any
	request *httpgql.Request

	mu    sync.Mutex
	extra []httpgql.Header
}

func newRequestContext(value any, req *httpgql.Request) *requestContext {
	return &requestContext{value: value, request: req}
}

func withRequestContext(ctx context.Context, rc *requestContext) context.Context {
	return context.WithValue(ctx, requestContextKey{}, rc)
}

func fromContext(ctx context.Context) *requestContext {
	rc, _ := ctx.Value(requestContextKey{}).(*requestContext)
	return rc
}

// ContextValue returns the value built by the context factory for the
// current request, or nil outside of a request.
func ContextValue(ctx context.Context) any {
	if rc := fromContext(ctx); rc != nil {
		return rc.value
	}
	return nil
}

// RequestFromContext returns the normalized request being executed.
func RequestFromContext(ctx context.Context) *httpgql.Request {
	if rc := fromContext(ctx); rc != nil {
		return rc.request
	}
	return nil
}

// SetResponseHeader adds a header to the response of the current request.
// It reports false outside of a request. Resolvers may run concurrently.
func SetResponseHeader(ctx context.Context, name, value string) bool {
	rc := fromContext(ctx)
	if rc == nil {
		return false
	}
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.extra = append(rc.extra, httpgql.Header{Name: name, Value: value})
	return true
}

func (rc *requestContext) headers() []httpgql.Header {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return append([]httpgql.Header(nil), rc.extra...)
}
