// Package graph holds the schema served by the routeql CLI.
package graph

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"slices"
	"strings"

	graphqlgo "github.com/graph-gophers/graphql-go"

	"github.com/routeql/routeql/internal/adapter"
	"github.com/routeql/routeql/internal/engine"
)

// SchemaSDL is the built-in schema served when no schema file is configured.
//
//go:embed schema.graphqls
var SchemaSDL string

const anonymousName = "anonymous"

// Resolver is the root resolver for both Query and Mutation.
type Resolver struct {
	// Greeting prefixes hello answers. Defaults to "Hello".
	Greeting string
}

// Viewer is the caller of a request.
type Viewer struct {
	Name      string
	Anonymous bool
}

// RequestContext is the context value built for every request.
type RequestContext struct {
	Viewer Viewer
}

// RequestInfo describes the normalized request.
type RequestInfo struct {
	Method  string
	Search  string
	Headers []*HeaderEntry
}

// HeaderEntry is one normalized request header.
type HeaderEntry struct {
	Name  string
	Value string
}

func (r *Resolver) Hello(args struct{ Name *string }) string {
	greeting := r.Greeting
	if greeting == "" {
		greeting = "Hello"
	}
	if args.Name == nil || *args.Name == "" {
		return greeting + ", world!"
	}
	return fmt.Sprintf("%s, %s!", greeting, *args.Name)
}

func (r *Resolver) Viewer(ctx context.Context) *Viewer {
	if rc, ok := engine.ContextValue(ctx).(*RequestContext); ok {
		v := rc.Viewer
		return &v
	}
	return &Viewer{Name: anonymousName, Anonymous: true}
}

func (r *Resolver) Request(ctx context.Context) *RequestInfo {
	info := &RequestInfo{Headers: []*HeaderEntry{}}
	req := engine.RequestFromContext(ctx)
	if req == nil {
		return info
	}

	info.Method = req.Method
	info.Search = req.Search
	for name, value := range req.Headers {
		info.Headers = append(info.Headers, &HeaderEntry{Name: name, Value: value})
	}
	slices.SortFunc(info.Headers, func(a, b *HeaderEntry) int {
		return strings.Compare(a.Name, b.Name)
	})
	return info
}

func (r *Resolver) Echo(args struct{ Message string }) string {
	return args.Message
}

// NewExecutor binds sdl to a Resolver.
func NewExecutor(sdl string, r *Resolver) (engine.Executor, error) {
	return engine.NewGophersExecutor(sdl, r, graphqlgo.UseFieldResolvers())
}

// Loader returns an engine.LoadFunc for the schema in file, or the embedded
// schema when file is empty. The file is re-read on every load.
func Loader(file string, r *Resolver) engine.LoadFunc {
	return func(context.Context) (engine.Executor, error) {
		sdl := SchemaSDL
		if file != "" {
			data, err := os.ReadFile(file)
			if err != nil {
				return nil, fmt.Errorf("reading schema: %w", err)
			}
			sdl = string(data)
		}
		return NewExecutor(sdl, r)
	}
}

// NewContextFunc returns a context factory that identifies the viewer by
// the value of userHeader. Requests without it are anonymous.
func NewContextFunc(userHeader string) adapter.ContextFunc {
	return func(_ context.Context, ev *adapter.RequestEvent) (any, error) {
		name := ""
		if userHeader != "" {
			name = ev.Headers.Get(userHeader)
		}
		if name == "" {
			return &RequestContext{Viewer: Viewer{Name: anonymousName, Anonymous: true}}, nil
		}
		return &RequestContext{Viewer: Viewer{Name: name}}, nil
	}
}
