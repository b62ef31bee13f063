package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/99designs/gqlgen/graphql/playground"
	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/spf13/cobra"

	"github.com/routeql/routeql/internal/adapter"
	"github.com/routeql/routeql/internal/engine"
	"github.com/routeql/routeql/internal/graph"
	"github.com/routeql/routeql/internal/httpgql"
	"github.com/routeql/routeql/internal/schemawatch"
	"github.com/routeql/routeql/internal/ui"
)

const requestIDHeader = "X-Request-ID"

var (
	serveAddr  string
	serveWatch bool
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Start the GraphQL server",
	Long: `Start an HTTP server that serves the GraphQL API.

The server exposes:
  - GraphQL endpoint at server.path (GET and POST; other methods get 405)
  - GraphQL Playground at server.playground_path
  - Engine readiness at /healthz

Examples:
  # Start server on the configured address (default :22880)
  routeql serve

  # Start server on a custom address and reload the schema file on change
  routeql serve --addr :3000 --watch`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}
		if cmd.Flags().Changed("watch") {
			cfg.Schema.Watch = serveWatch
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		return runServer()
	},
}

// newEngine builds the engine for the configured schema. It is not started.
func newEngine() *engine.Server {
	resolver := &graph.Resolver{Greeting: cfg.Engine.Greeting}
	return engine.New(graph.Loader(cfg.SchemaFile(), resolver), engine.Config{
		StartupTimeout: cfg.StartupTimeout(),
		Logger:         newLogger("engine"),
	})
}

// newHandler binds srv to the configured context factory and starts it.
func newHandler(srv *engine.Server, logger *log.Logger) *adapter.Handler {
	return adapter.New(srv, &adapter.Options{
		Context: graph.NewContextFunc(cfg.Context.UserHeader),
		Logger:  logger,
	})
}

// newRouter mounts h and the auxiliary endpoints.
func newRouter(h *adapter.Handler, logger *log.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	router.Any(cfg.Server.Path, adapter.Gin(h))
	if cfg.Server.Playground {
		router.GET(cfg.Server.PlaygroundPath, gin.WrapH(playground.Handler("routeql", cfg.Server.Path)))
	}
	router.GET("/healthz", healthz(h.Startup()))

	return router
}

// requestLogger tags each request with an ID and logs its outcome.
func requestLogger(logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id, _ = gonanoid.New()
		}
		c.Header(requestIDHeader, id)

		start := time.Now()
		c.Next()

		fields := []any{
			"id", id,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		}
		if err := c.Errors.Last(); err != nil {
			logger.Error("request failed", append(fields, "err", err.Err)...)
			return
		}
		logger.Info("request", fields...)
	}
}

// healthz reports engine readiness.
func healthz(startup httpgql.Startup) gin.HandlerFunc {
	return func(c *gin.Context) {
		select {
		case <-startup.Done():
			if err := startup.Err(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "failed", "error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		default:
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "starting"})
		}
	}
}

func runServer() error {
	gin.SetMode(gin.ReleaseMode)
	logger := newLogger("http")

	srv := newEngine()
	h := newHandler(srv, logger)
	router := newRouter(h, logger)

	if cfg.Schema.Watch {
		w, err := schemawatch.Watch(cfg.SchemaFile(), srv.Reload, schemawatch.WithLogger(newLogger("schemawatch")))
		if err != nil {
			return fmt.Errorf("watching schema: %w", err)
		}
		defer w.Close()
	}

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout(),
		WriteTimeout: cfg.WriteTimeout(),
		IdleTimeout:  60 * time.Second,
	}

	// Set up signal handling with context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Channel to listen for server errors
	serverErr := make(chan error, 1)

	// Start server in goroutine
	go func() {
		fmt.Printf("%s %s\n", ui.Title.Render("routeql"), ui.Muted.Render("listening on "+cfg.Server.Addr))
		fmt.Printf("GraphQL endpoint:   %s\n", ui.URL.Render(displayURL(cfg.Server.Path)))
		if cfg.Server.Playground {
			fmt.Printf("GraphQL Playground: %s\n", ui.URL.Render(displayURL(cfg.Server.PlaygroundPath)))
		}
		serverErr <- server.ListenAndServe()
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-serverErr:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		fmt.Printf("\nShutting down...\n")

		// Create context with timeout for graceful shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		fmt.Println(ui.Success.Render("Server stopped"))
	}

	return nil
}

// displayURL renders path as a local URL for the configured address.
func displayURL(path string) string {
	host := cfg.Server.Addr
	if len(host) > 0 && host[0] == ':' {
		host = "localhost" + host
	}
	return "http://" + host + path
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "Address to listen on (overrides server.addr)")
	serveCmd.Flags().BoolVarP(&serveWatch, "watch", "w", false, "Reload the schema file when it changes")
	rootCmd.AddCommand(serveCmd)
}
