// Package engine executes GraphQL-over-HTTP requests against a schema. It is
// the httpgql.Engine served by the adapter package.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/99designs/gqlgen/graphql"
	"github.com/charmbracelet/log"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/routeql/routeql/internal/httpgql"
)

const defaultStartupTimeout = 30 * time.Second

var (
	// ErrNotStarted is returned for requests executed before StartInBackground.
	ErrNotStarted = errors.New("engine not started")
	// ErrStartupFailed wraps the startup error for every request after a failed start.
	ErrStartupFailed = errors.New("engine failed to start")
)

// Executor runs operations against one schema.
type Executor interface {
	// Schema is used to parse and validate incoming operations.
	Schema() *ast.Schema
	// Execute runs an operation that has already passed validation.
	Execute(ctx context.Context, params *graphql.RawParams) *graphql.Response
}

// LoadFunc builds the executor. It runs during startup and on Reload.
type LoadFunc func(ctx context.Context) (Executor, error)

// Static returns a LoadFunc that always yields exec.
func Static(exec Executor) LoadFunc {
	return func(context.Context) (Executor, error) {
		return exec, nil
	}
}

// Config tunes a Server. The zero value is usable.
type Config struct {
	// StartupTimeout bounds the initial load. Defaults to 30s.
	StartupTimeout time.Duration
	Logger         *log.Logger
}

// Server is an httpgql.Engine. It is safe for concurrent use.
type Server struct {
	load   LoadFunc
	cfg    Config
	logger *log.Logger

	startOnce sync.Once
	started   atomic.Bool
	ready     *readiness

	exec atomic.Pointer[executorBox]
}

// executorBox lets an interface value live behind an atomic.Pointer.
type executorBox struct {
	Executor
}

var _ httpgql.Engine = (*Server)(nil)

// New creates a Server. Nothing is loaded until StartInBackground.
func New(load LoadFunc, cfg Config) *Server {
	if cfg.StartupTimeout == 0 {
		cfg.StartupTimeout = defaultStartupTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "engine"})
	}
	return &Server{
		load:   load,
		cfg:    cfg,
		logger: logger,
		ready:  newReadiness(),
	}
}

// StartInBackground runs the loader in a goroutine. Calling it again returns
// the same Startup without loading twice. A failed start is logged and makes
// every later request fail with ErrStartupFailed.
func (s *Server) StartInBackground() httpgql.Startup {
	s.startOnce.Do(func() {
		s.started.Store(true)
		go s.start()
	})
	return s.ready
}

func (s *Server) start() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.StartupTimeout)
	defer cancel()

	exec, err := s.load(ctx)
	if err == nil && (exec == nil || exec.Schema() == nil) {
		err = errors.New("loader returned no schema")
	}
	if err != nil {
		s.logger.Error("An error occurred during server startup. All GraphQL requests will now fail.", "err", err)
		s.ready.finish(fmt.Errorf("%w: %w", ErrStartupFailed, err))
		return
	}

	s.exec.Store(&executorBox{exec})
	s.logger.Debug("engine started")
	s.ready.finish(nil)
}

// Reload builds a fresh executor and swaps it in. On error the current
// executor keeps serving.
func (s *Server) Reload(ctx context.Context) error {
	if err := httpgql.Wait(ctx, s.StartInBackground()); err != nil {
		return err
	}

	exec, err := s.load(ctx)
	if err == nil && (exec == nil || exec.Schema() == nil) {
		err = errors.New("loader returned no schema")
	}
	if err != nil {
		s.logger.Warn("schema reload failed, keeping previous schema", "err", err)
		return fmt.Errorf("reloading schema: %w", err)
	}

	s.exec.Store(&executorBox{exec})
	s.logger.Info("schema reloaded")
	return nil
}

// Executor returns the active executor, or nil before a successful start.
func (s *Server) Executor() Executor {
	if box := s.exec.Load(); box != nil {
		return box.Executor
	}
	return nil
}

// ExecuteHTTPGraphQLRequest implements httpgql.Engine. Malformed HTTP
// requests and GraphQL request errors are answered with a response; only
// startup failures, context errors and context factory failures are
// returned as errors.
func (s *Server) ExecuteHTTPGraphQLRequest(ctx context.Context, args httpgql.ExecuteArgs) (*httpgql.Response, error) {
	if !s.started.Load() {
		return nil, ErrNotStarted
	}
	if err := httpgql.Wait(ctx, s.ready); err != nil {
		return nil, err
	}
	exec := s.Executor()

	op, resp := parseRequest(args.Request)
	if resp != nil {
		return resp, nil
	}

	doc, resp := validate(exec.Schema(), op.Query)
	if resp != nil {
		return resp, nil
	}

	if args.Request.Method == "GET" {
		if def := doc.Operations.ForName(op.OperationName); def != nil && def.Operation == ast.Mutation {
			return errorResponse(405, []httpgql.Header{{Name: "allow", Value: "POST"}},
				badRequest("Can only perform a mutation operation from a POST request.")), nil
		}
	}

	value := any(map[string]any{})
	if args.Context != nil {
		v, err := args.Context(ctx)
		if err != nil {
			return nil, err
		}
		value = v
	}

	rc := newRequestContext(value, args.Request)
	ctx = withRequestContext(ctx, rc)

	result := exec.Execute(ctx, &graphql.RawParams{
		Query:         op.Query,
		OperationName: op.OperationName,
		Variables:     op.Variables,
		Extensions:    op.Extensions,
		Headers:       httpHeader(args.Request.Headers),
	})
	return jsonResponse(statusFor(result), rc.headers(), result), nil
}

// readiness is an httpgql.Startup closed exactly once.
type readiness struct {
	done chan struct{}
	err  error
}

func newReadiness() *readiness {
	return &readiness{done: make(chan struct{})}
}

func (r *readiness) finish(err error) {
	r.err = err
	close(r.done)
}

func (r *readiness) Done() <-chan struct{} { return r.done }

func (r *readiness) Err() error {
	select {
	case <-r.done:
		return r.err
	default:
		return nil
	}
}
