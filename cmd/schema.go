package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"github.com/vektah/gqlparser/v2/formatter"
	"golang.org/x/term"

	"github.com/routeql/routeql/internal/graph"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the GraphQL schema",
	Long: `Print the schema the server would serve, in SDL.

The schema is read from schema.file when set, otherwise the built-in schema
is printed. It is validated before printing.

On a terminal the SDL is syntax highlighted; use --plain to disable that.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printSchema(cmd.Context())
	},
}

var schemaPlain bool

// printSchema outputs the GraphQL schema.
func printSchema(ctx context.Context) error {
	sdl, err := GetGraphQLSchema(ctx)
	if err != nil {
		return err
	}

	if !schemaPlain && term.IsTerminal(int(os.Stdout.Fd())) {
		if rendered, err := renderSchema(sdl, glamour.WithAutoStyle()); err == nil {
			fmt.Print(rendered)
			return nil
		}
	}
	fmt.Print(sdl)
	return nil
}

// renderSchema highlights sdl as a fenced graphql block.
func renderSchema(sdl string, style glamour.TermRendererOption) (string, error) {
	renderer, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(0))
	if err != nil {
		return "", err
	}
	return renderer.Render("```graphql\n" + sdl + "```\n")
}

// GetGraphQLSchema loads the configured schema and returns it formatted.
func GetGraphQLSchema(ctx context.Context) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	exec, err := graph.Loader(cfg.SchemaFile(), &graph.Resolver{})(ctx)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	f := formatter.NewFormatter(&buf, formatter.WithIndent("  "))
	f.FormatSchema(exec.Schema())

	return buf.String(), nil
}

func init() {
	schemaCmd.Flags().BoolVar(&schemaPlain, "plain", false, "Print the SDL without highlighting")
	rootCmd.AddCommand(schemaCmd)
}
