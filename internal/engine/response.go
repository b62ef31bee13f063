package engine

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/99designs/gqlgen/graphql"
	"github.com/99designs/gqlgen/graphql/errcode"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/routeql/routeql/internal/httpgql"
)

// CodeBadRequest marks errors caused by a malformed HTTP request.
const CodeBadRequest = "BAD_REQUEST"

const contentTypeJSON = "application/json; charset=utf-8"

func badRequest(msg string) *gqlerror.Error {
	err := gqlerror.Errorf("%s", msg)
	errcode.Set(err, CodeBadRequest)
	return err
}

// validate parses and validates query against schema. A non-nil response
// carries the parse or validation errors.
func validate(schema *ast.Schema, query string) (*ast.QueryDocument, *httpgql.Response) {
	if _, err := parser.ParseQuery(&ast.Source{Input: query}); err != nil {
		var gqlErr *gqlerror.Error
		if !errors.As(err, &gqlErr) {
			gqlErr = gqlerror.Wrap(err)
		}
		errcode.Set(gqlErr, errcode.ParseFailed)
		return nil, errorResponse(http.StatusBadRequest, nil, gqlErr)
	}

	doc, errs := gqlparser.LoadQuery(schema, query)
	if len(errs) > 0 {
		for _, err := range errs {
			errcode.Set(err, errcode.ValidationFailed)
		}
		return nil, errorResponse(http.StatusBadRequest, nil, errs...)
	}
	return doc, nil
}

// statusFor maps an execution result to an HTTP status. Results without data
// whose errors are all request errors are answered with 400.
func statusFor(resp *graphql.Response) int {
	if len(resp.Errors) == 0 || (len(resp.Data) > 0 && string(resp.Data) != "null") {
		return http.StatusOK
	}
	for _, err := range resp.Errors {
		switch code, _ := err.Extensions["code"].(string); code {
		case errcode.ValidationFailed, errcode.ParseFailed, CodeBadRequest:
		default:
			return http.StatusOK
		}
	}
	return http.StatusBadRequest
}

func errorResponse(status int, headers []httpgql.Header, errs ...*gqlerror.Error) *httpgql.Response {
	return jsonResponse(status, headers, &graphql.Response{Errors: errs})
}

func jsonResponse(status int, headers []httpgql.Header, resp *graphql.Response) *httpgql.Response {
	body, err := json.Marshal(resp)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(&graphql.Response{
			Errors: gqlerror.List{gqlerror.Errorf("encoding response: %s", err)},
		})
	}

	out := make([]httpgql.Header, 0, len(headers)+1)
	out = append(out, httpgql.Header{Name: "content-type", Value: contentTypeJSON})
	out = append(out, headers...)

	return &httpgql.Response{
		Status:  status,
		Headers: out,
		Body:    httpgql.Body{String: string(body)},
	}
}
