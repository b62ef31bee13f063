package adapter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/routeql/routeql/internal/httpgql"
)

// jsonContentType is the only content type whose body is decoded. The match
// is exact; parameters such as charset disable decoding.
const jsonContentType = "application/json"

// toNormalizedRequest converts ev into the engine's request shape.
func toNormalizedRequest(ev *RequestEvent) (*httpgql.Request, error) {
	search, err := searchOf(ev.URL)
	if err != nil {
		return nil, err
	}

	body, err := normalizeBody(ev)
	if err != nil {
		return nil, err
	}

	return &httpgql.Request{
		Method:  ev.Method,
		Headers: normalizeHeaders(ev.Headers),
		Search:  search,
		Body:    body,
	}, nil
}

// searchOf returns the query string of rawURL with its leading "?".
func searchOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing request URL: %w", err)
	}
	if u.RawQuery == "" && !u.ForceQuery {
		return "", nil
	}
	return "?" + u.RawQuery, nil
}

// normalizeBody reads the request body. JSON bodies are decoded, anything
// else is returned as text.
func normalizeBody(ev *RequestEvent) (any, error) {
	text, err := ev.Text()
	if err != nil {
		return nil, fmt.Errorf("reading request body: %w", err)
	}

	if ev.Headers.Get("content-type") != jsonContentType {
		return text, nil
	}
	if text == "" {
		return map[string]any{}, nil
	}
	return parseJSON(text)
}

// parseJSON decodes text keeping numbers as json.Number.
func parseJSON(text string) (any, error) {
	data := []byte(text)
	var v any
	if !json.Valid(data) {
		// Unmarshal reports the offending offset as a *json.SyntaxError.
		return nil, json.Unmarshal(data, &v)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// normalizeHeaders flattens headers into one string per name. Lists are
// joined with ",", empty lists and empty values are dropped. Names keep the
// case they arrived with.
func normalizeHeaders(headers Headers) map[string]string {
	out := make(map[string]string, len(headers))
	for _, f := range headers {
		var v string
		if f.Value.IsMultiple() {
			if len(f.Value.values) == 0 {
				continue
			}
			v = strings.Join(f.Value.values, ",")
		} else {
			if len(f.Value.values) == 0 || f.Value.values[0] == "" {
				continue
			}
			v = f.Value.values[0]
		}

		if prev, ok := out[f.Name]; ok {
			v = prev + "," + v
		}
		out[f.Name] = v
	}
	return out
}
