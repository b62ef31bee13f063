package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/99designs/gqlgen/graphql"
	graphqlgo "github.com/graph-gophers/graphql-go"
	gqlerrors "github.com/graph-gophers/graphql-go/errors"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

// gophersExecutor runs a graph-gophers schema. The same SDL is loaded into
// gqlparser so operations can be validated before execution.
type gophersExecutor struct {
	schema *graphqlgo.Schema
	parsed *ast.Schema
}

// NewGophersExecutor binds sdl to resolver with graph-gophers/graphql-go.
func NewGophersExecutor(sdl string, resolver any, opts ...graphqlgo.SchemaOpt) (Executor, error) {
	parsed, err := gqlparser.LoadSchema(&ast.Source{Name: "schema.graphqls", Input: sdl})
	if err != nil {
		return nil, fmt.Errorf("loading schema: %w", err)
	}

	schema, err := graphqlgo.ParseSchema(sdl, resolver, opts...)
	if err != nil {
		return nil, fmt.Errorf("binding resolvers: %w", err)
	}

	return &gophersExecutor{schema: schema, parsed: parsed}, nil
}

func (g *gophersExecutor) Schema() *ast.Schema {
	return g.parsed
}

func (g *gophersExecutor) Execute(ctx context.Context, params *graphql.RawParams) *graphql.Response {
	resp := g.schema.Exec(ctx, params.Query, params.OperationName, plainVariables(params.Variables))

	out := &graphql.Response{
		Data:       resp.Data,
		Extensions: resp.Extensions,
	}
	for _, qe := range resp.Errors {
		out.Errors = append(out.Errors, convertQueryError(qe))
	}
	return out
}

// plainVariables replaces json.Number values with float64, the number type
// graph-gophers coerces from.
func plainVariables(vars map[string]any) map[string]any {
	if len(vars) == 0 {
		return vars
	}
	data, err := json.Marshal(vars)
	if err != nil {
		return vars
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return vars
	}
	return out
}

func convertQueryError(qe *gqlerrors.QueryError) *gqlerror.Error {
	err := &gqlerror.Error{
		Message:    qe.Message,
		Extensions: qe.Extensions,
	}
	for _, loc := range qe.Locations {
		err.Locations = append(err.Locations, gqlerror.Location{Line: loc.Line, Column: loc.Column})
	}
	for _, p := range qe.Path {
		switch v := p.(type) {
		case string:
			err.Path = append(err.Path, ast.PathName(v))
		case int:
			err.Path = append(err.Path, ast.PathIndex(v))
		}
	}
	return err
}
