package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/routeql/routeql/internal/config"
)

var (
	cfg        *config.Config
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "routeql",
	Short: "Serve a GraphQL engine through a web router",
	Long: `routeql mounts a GraphQL engine on a gin router. Requests to the GraphQL
path are normalized into a framework-independent shape, executed by the
engine, and written back as plain HTTP responses.

Configuration is read from routeql.toml in the current directory, or from
the file given with --config.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := log.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid --log-level: %w", err)
		}
		log.SetLevel(level)

		// Skip config loading for init command
		if cmd.Name() == "init" {
			return nil
		}

		if configPath != "" {
			cfg, err = config.LoadFile(configPath)
		} else {
			cfg, err = config.Load(".")
		}
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

// newLogger returns a logger for one component at the configured level.
func newLogger(prefix string) *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          prefix,
		Level:           log.GetLevel(),
		ReportTimestamp: true,
	})
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a routeql.toml file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
