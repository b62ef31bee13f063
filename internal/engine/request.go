package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/routeql/routeql/internal/httpgql"
)

// operation is a GraphQL request extracted from an httpgql.Request.
type operation struct {
	Query         string
	OperationName string
	Variables     map[string]any
	Extensions    map[string]any
}

// parseRequest extracts the operation from req. A non-nil response means the
// request is malformed and must be answered with it.
func parseRequest(req *httpgql.Request) (*operation, *httpgql.Response) {
	var (
		op  *operation
		msg string
	)
	switch req.Method {
	case http.MethodGet:
		op, msg = operationFromSearch(req.Search)
	case http.MethodPost:
		op, msg = operationFromBody(req.Body)
	default:
		return nil, errorResponse(http.StatusMethodNotAllowed,
			[]httpgql.Header{{Name: "allow", Value: "GET, POST"}},
			badRequest("GraphQL requests must use GET or POST."))
	}
	if msg != "" {
		return nil, errorResponse(http.StatusBadRequest, nil, badRequest(msg))
	}
	if op.Query == "" {
		return nil, errorResponse(http.StatusBadRequest, nil,
			badRequest("GraphQL operations must contain a non-empty `query`."))
	}
	return op, nil
}

func operationFromSearch(search string) (*operation, string) {
	values, err := url.ParseQuery(strings.TrimPrefix(search, "?"))
	if err != nil {
		return nil, "Invalid query string: " + err.Error()
	}

	op := &operation{
		Query:         values.Get("query"),
		OperationName: values.Get("operationName"),
	}
	if raw := values.Get("variables"); raw != "" {
		if op.Variables, err = decodeObject(raw); err != nil {
			return nil, "The `variables` search parameter must be a JSON-encoded object."
		}
	}
	if raw := values.Get("extensions"); raw != "" {
		if op.Extensions, err = decodeObject(raw); err != nil {
			return nil, "The `extensions` search parameter must be a JSON-encoded object."
		}
	}
	return op, ""
}

func operationFromBody(body any) (*operation, string) {
	obj, ok := body.(map[string]any)
	if !ok || len(obj) == 0 {
		return nil, "POST body missing, invalid Content-Type, or JSON object has no keys."
	}

	op := &operation{}
	if v, ok := obj["query"]; ok && v != nil {
		if op.Query, ok = v.(string); !ok {
			return nil, "`query` in a POST body must be a string."
		}
	}
	if v, ok := obj["operationName"]; ok && v != nil {
		if op.OperationName, ok = v.(string); !ok {
			return nil, "`operationName` in a POST body must be a string if provided."
		}
	}
	if v, ok := obj["variables"]; ok && v != nil {
		if op.Variables, ok = v.(map[string]any); !ok {
			return nil, "`variables` in a POST body must be an object if provided."
		}
	}
	if v, ok := obj["extensions"]; ok && v != nil {
		if op.Extensions, ok = v.(map[string]any); !ok {
			return nil, "`extensions` in a POST body must be an object if provided."
		}
	}
	return op, ""
}

var errInvalidJSON = errors.New("invalid JSON")

// decodeObject decodes a JSON object keeping numbers as json.Number. The
// whole input must be a single JSON value.
func decodeObject(raw string) (map[string]any, error) {
	if !json.Valid([]byte(raw)) {
		return nil, errInvalidJSON
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// httpHeader rebuilds an http.Header for resolvers that inspect headers
// through gqlgen's operation context.
func httpHeader(headers map[string]string) http.Header {
	h := make(http.Header, len(headers))
	for name, value := range headers {
		h.Set(name, value)
	}
	return h
}
