// Package httpgql defines the engine-agnostic shapes exchanged between an
// HTTP host binding and a GraphQL execution engine.
package httpgql

import (
	"context"
)

// Request is a GraphQL request as seen over HTTP, independent of the host
// framework that received it.
type Request struct {
	Method string
	// Headers holds one value per name; multi-valued headers are already
	// joined with commas.
	Headers map[string]string
	// Search is the query string including its leading "?", or "".
	Search string
	// Body is the decoded JSON value for application/json requests and the
	// raw body text otherwise.
	Body any
}

// Header is a single response header pair.
type Header struct {
	Name  string
	Value string
}

// Body carries a fully serialized response payload.
type Body struct {
	String string
}

// Response is what an engine produces for a Request.
type Response struct {
	Status  int
	Headers []Header
	Body    Body
}

// ContextFunc produces the per-request value handed to resolvers.
type ContextFunc func(ctx context.Context) (any, error)

// ExecuteArgs bundles the inputs of a single execution.
type ExecuteArgs struct {
	Request *Request
	Context ContextFunc
}

// Engine executes normalized GraphQL requests.
type Engine interface {
	// StartInBackground begins initialization without blocking. Startup
	// failures are not returned here; they are reported through the returned
	// Startup and make every later execution fail.
	StartInBackground() Startup
	ExecuteHTTPGraphQLRequest(ctx context.Context, args ExecuteArgs) (*Response, error)
}

// Startup reports the outcome of an engine's background initialization.
type Startup interface {
	// Done is closed once startup has finished, successfully or not.
	Done() <-chan struct{}
	// Err returns the startup error. Only meaningful after Done is closed.
	Err() error
}

// Wait blocks until s finishes or ctx ends.
func Wait(ctx context.Context, s Startup) error {
	select {
	case <-s.Done():
		return s.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}
