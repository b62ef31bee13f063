// Package adapter lets a web routing framework serve a GraphQL engine. It
// converts the host's request into an httpgql.Request, runs it through the
// engine and converts the engine's response back.
package adapter

import (
	"context"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/routeql/routeql/internal/httpgql"
)

// StatusTextMethodNotAllowed is the status text of rejected methods.
const StatusTextMethodNotAllowed = "Method not allowed"

// ContextFunc builds the per-request value that resolvers see.
type ContextFunc func(ctx context.Context, ev *RequestEvent) (any, error)

// HandlerFunc handles one request event.
type HandlerFunc func(ctx context.Context, ev *RequestEvent) (*Response, error)

// Options configures a Handler. A nil *Options is valid.
type Options struct {
	// Context builds the resolver context. Defaults to an empty map.
	Context ContextFunc
	// Logger receives errors from the net/http binding. Nil disables logging.
	Logger *log.Logger
}

// Response is what the handler hands back to the host framework.
type Response struct {
	Status     int
	StatusText string
	Body       string
	Headers    map[string]string
}

// Handler binds an engine to its context factory.
type Handler struct {
	engine      httpgql.Engine
	contextFunc ContextFunc
	startup     httpgql.Startup
	logger      *log.Logger
}

// defaultContext returns an empty context value.
func defaultContext(context.Context, *RequestEvent) (any, error) {
	return map[string]any{}, nil
}

// New creates a Handler and starts the engine in the background. The engine's
// StartInBackground is called exactly once, here.
func New(engine httpgql.Engine, opts *Options) *Handler {
	h := &Handler{
		engine:      engine,
		contextFunc: defaultContext,
	}
	if opts != nil {
		if opts.Context != nil {
			h.contextFunc = opts.Context
		}
		h.logger = opts.Logger
	}

	h.startup = engine.StartInBackground()
	return h
}

// CreateHandler is New reduced to its request function.
func CreateHandler(engine httpgql.Engine, opts *Options) HandlerFunc {
	return New(engine, opts).Handle
}

// Startup returns the engine's startup result.
func (h *Handler) Startup() httpgql.Startup {
	return h.startup
}

// Handle runs one request through the engine. Only GET and POST reach the
// engine; other methods get a 405 with no body. Errors from body decoding,
// the context factory and the engine are returned unchanged.
func (h *Handler) Handle(ctx context.Context, ev *RequestEvent) (*Response, error) {
	if ev.Method != http.MethodGet && ev.Method != http.MethodPost {
		return &Response{
			Status:     http.StatusMethodNotAllowed,
			StatusText: StatusTextMethodNotAllowed,
			Headers:    map[string]string{},
		}, nil
	}

	req, err := toNormalizedRequest(ev)
	if err != nil {
		return nil, err
	}

	resp, err := h.engine.ExecuteHTTPGraphQLRequest(ctx, httpgql.ExecuteArgs{
		Request: req,
		Context: func(ctx context.Context) (any, error) {
			return h.contextFunc(ctx, ev)
		},
	})
	if err != nil {
		return nil, err
	}

	headers := make(map[string]string, len(resp.Headers))
	for _, hdr := range resp.Headers {
		headers[hdr.Name] = hdr.Value
	}

	return &Response{
		Status:  resp.Status,
		Body:    resp.Body.String,
		Headers: headers,
	}, nil
}
