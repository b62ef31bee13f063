package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/routeql/routeql/internal/config"
	"github.com/routeql/routeql/internal/graph"
	"github.com/routeql/routeql/internal/ui"
)

const schemaFileName = "schema.graphqls"

var (
	initForce      bool
	initWithSchema bool
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Initialize a routeql project",
	Long: `Creates a routeql.toml config file with default values in the given
directory (default: the current directory).

Use --with-schema to also write the built-in schema to schema.graphqls and
point schema.file at it, so it can be edited and served with --watch.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}

		force := initForce
		if !force && term.IsTerminal(int(os.Stdin.Fd())) {
			if _, err := os.Stat(filepath.Join(dir, config.ConfigFile)); err == nil {
				err := huh.NewConfirm().
					Title(fmt.Sprintf("Overwrite %s?", config.ConfigFile)).
					Affirmative("Yes").
					Negative("No").
					Value(&force).
					Run()
				if err != nil {
					return err
				}
				if !force {
					fmt.Println("Cancelled")
					return nil
				}
			}
		}

		path, err := initProject(dir, initWithSchema, force)
		if err != nil {
			return err
		}
		fmt.Println(ui.Success.Render("Initialized routeql project") + " " + ui.Muted.Render(path))
		return nil
	},
}

// initProject writes a default config, and optionally the built-in schema,
// into dir. It returns the path of the written config file.
func initProject(dir string, withSchema, force bool) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	path := filepath.Join(dir, config.ConfigFile)
	if !force {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
	}

	defaultCfg := config.Default()
	if withSchema {
		if err := os.WriteFile(filepath.Join(dir, schemaFileName), []byte(graph.SchemaSDL), 0644); err != nil {
			return "", fmt.Errorf("failed to write schema: %w", err)
		}
		defaultCfg.Schema.File = schemaFileName
	}

	if err := defaultCfg.Save(dir); err != nil {
		return "", fmt.Errorf("failed to create config: %w", err)
	}
	return path, nil
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing routeql.toml")
	initCmd.Flags().BoolVar(&initWithSchema, "with-schema", false, "Write the built-in schema to schema.graphqls")
	rootCmd.AddCommand(initCmd)
}
