package engine

import (
	"context"

	"github.com/99designs/gqlgen/graphql"
	"github.com/99designs/gqlgen/graphql/executor"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

// gqlgenExecutor runs a gqlgen ExecutableSchema.
type gqlgenExecutor struct {
	es   graphql.ExecutableSchema
	exec *executor.Executor
}

// NewGqlgenExecutor wraps a gqlgen ExecutableSchema. Extensions such as
// extension.Introspection are installed in order.
func NewGqlgenExecutor(es graphql.ExecutableSchema, exts ...graphql.HandlerExtension) Executor {
	exec := executor.New(es)
	for _, ext := range exts {
		exec.Use(ext)
	}
	return &gqlgenExecutor{es: es, exec: exec}
}

func (g *gqlgenExecutor) Schema() *ast.Schema {
	return g.es.Schema()
}

func (g *gqlgenExecutor) Execute(ctx context.Context, params *graphql.RawParams) *graphql.Response {
	ctx = graphql.StartOperationTrace(ctx)

	opCtx, errs := g.exec.CreateOperationContext(ctx, params)
	if errs != nil {
		return g.exec.DispatchError(graphql.WithOperationContext(ctx, opCtx), errs)
	}

	handler, ctx := g.exec.DispatchOperation(ctx, opCtx)
	resp := handler(ctx)
	if resp == nil {
		return &graphql.Response{Errors: gqlerror.List{gqlerror.Errorf("operation produced no response")}}
	}
	return resp
}
