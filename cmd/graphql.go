package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"golang.org/x/term"

	"github.com/routeql/routeql/internal/adapter"
	"github.com/routeql/routeql/internal/ui"
)

var (
	queryJSON       bool
	queryVariables  string
	queryOperation  string
	queryUser       string
	querySchemaOnly bool
)

var graphqlCmd = &cobra.Command{
	Use:     "graphql <query>",
	Aliases: []string{"query"},
	Short:   "Execute a GraphQL query or mutation",
	Long: `Execute a GraphQL query or mutation against the configured schema.

The query goes through the same adapter and engine as requests to the
server, without opening a listener.

Examples:
  # Say hello
  routeql graphql '{ hello(name: "Ada") }'

  # Query as a named viewer (sent in context.user_header)
  routeql graphql --user ada '{ viewer { name anonymous } }'

  # Use variables
  routeql graphql -v '{"m": "hi"}' 'mutation Echo($m: String!) { echo(message: $m) }'

  # Read from stdin (useful for complex queries or escaping issues)
  cat query.graphql | routeql graphql

  # Print the schema
  routeql graphql --schema`,
	Args: func(cmd *cobra.Command, args []string) error {
		if querySchemaOnly {
			return nil
		}
		// Allow 0 args if stdin has data, or exactly 1 arg
		if len(args) > 1 {
			return fmt.Errorf("accepts at most 1 argument (the GraphQL query)")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Schema-only mode
		if querySchemaOnly {
			return printSchema(cmd.Context())
		}

		var query string
		if len(args) == 1 {
			query = args[0]
		} else {
			// Try to read from stdin
			stdinQuery, err := readFromStdin()
			if err != nil {
				return err
			}
			if stdinQuery == "" {
				return fmt.Errorf("no query provided (pass as argument or pipe to stdin)")
			}
			query = stdinQuery
		}

		// Parse variables if provided
		var variables map[string]any
		if queryVariables != "" {
			if err := json.Unmarshal([]byte(queryVariables), &variables); err != nil {
				return fmt.Errorf("invalid variables JSON: %w", err)
			}
		}

		result, err := executeQuery(cmd.Context(), query, variables, queryOperation, queryUser)
		if err != nil {
			return err
		}

		// Output
		if queryJSON || !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Println(string(pretty.Ugly(result)))
		} else {
			prettyPrint(result)
		}

		return nil
	},
}

// readFromStdin reads the query from stdin if data is available.
func readFromStdin() (string, error) {
	// Check if stdin has data (is a pipe or file, not a terminal)
	stat, err := os.Stdin.Stat()
	if err != nil {
		return "", fmt.Errorf("checking stdin: %w", err)
	}

	// If stdin is a terminal (no pipe), return empty
	if (stat.Mode() & os.ModeCharDevice) != 0 {
		return "", nil
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}

	return strings.TrimSpace(string(data)), nil
}

// graphqlResult is the wire shape of an engine response body.
type graphqlResult struct {
	Data   json.RawMessage `json:"data"`
	Errors gqlerror.List   `json:"errors"`
}

// executeQuery runs a GraphQL operation as a POST through the adapter.
// On success, it returns just the data portion of the response.
// On error, it returns an error so the CLI can handle it appropriately.
func executeQuery(ctx context.Context, query string, variables map[string]any, operationName, user string) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	payload := map[string]any{"query": query}
	if len(variables) > 0 {
		payload["variables"] = variables
	}
	if operationName != "" {
		payload["operationName"] = operationName
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	headers := adapter.Headers{
		{Name: "content-type", Value: adapter.Single("application/json")},
	}
	if user != "" && cfg.Context.UserHeader != "" {
		headers = append(headers, adapter.HeaderField{
			Name:  strings.ToLower(cfg.Context.UserHeader),
			Value: adapter.Single(user),
		})
	}

	h := newHandler(newEngine(), newLogger("graphql"))
	resp, err := h.Handle(ctx, &adapter.RequestEvent{
		Method:  http.MethodPost,
		URL:     "routeql:" + cfg.Server.Path,
		Headers: headers,
		Body:    bytes.NewReader(body),
	})
	if err != nil {
		return nil, err
	}

	var result graphqlResult
	if err := json.Unmarshal([]byte(resp.Body), &result); err != nil {
		return nil, fmt.Errorf("%s: decoding response: %w", ui.RenderStatus(resp.Status), err)
	}
	if len(result.Errors) > 0 {
		return nil, formatGraphQLErrors(result.Errors)
	}
	if resp.Status != http.StatusOK {
		return nil, fmt.Errorf("request failed: %s", ui.RenderStatus(resp.Status))
	}

	return result.Data, nil
}

// formatGraphQLErrors formats GraphQL errors into a single error.
func formatGraphQLErrors(errs gqlerror.List) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return fmt.Errorf("graphql: %s", errs[0].Message)
	}
	var msgs []string
	for _, e := range errs {
		msgs = append(msgs, e.Message)
	}
	return fmt.Errorf("graphql errors:\n  %s", strings.Join(msgs, "\n  "))
}

// prettyPrint outputs the JSON with colors and indentation.
func prettyPrint(data []byte) {
	fmt.Println(string(pretty.Color(pretty.Pretty(data), nil)))
}

func init() {
	graphqlCmd.Flags().BoolVar(&queryJSON, "json", false, "Output raw JSON (no formatting)")
	graphqlCmd.Flags().StringVarP(&queryVariables, "variables", "v", "", "Query variables as JSON string")
	graphqlCmd.Flags().StringVarP(&queryOperation, "operation", "o", "", "Operation name (for multi-operation documents)")
	graphqlCmd.Flags().StringVarP(&queryUser, "user", "u", "", "Viewer name sent in context.user_header")
	graphqlCmd.Flags().BoolVar(&querySchemaOnly, "schema", false, "Print the GraphQL schema and exit")
	rootCmd.AddCommand(graphqlCmd)
}
