package adapter

import (
	"io"
	"net/http"
	"slices"
	"strings"
	"sync"
)

// HeaderValue is either a single header value or a list of values.
type HeaderValue struct {
	values   []string
	multiple bool
}

// Single returns a HeaderValue holding exactly one value.
func Single(v string) HeaderValue {
	return HeaderValue{values: []string{v}}
}

// Multiple returns a HeaderValue holding a list of values. The list may be empty.
func Multiple(vs ...string) HeaderValue {
	return HeaderValue{values: vs, multiple: true}
}

// IsMultiple reports whether v was built with Multiple.
func (v HeaderValue) IsMultiple() bool {
	return v.multiple
}

// Values returns the underlying values.
func (v HeaderValue) Values() []string {
	return v.values
}

// HeaderField is one named entry of a Headers collection.
type HeaderField struct {
	Name  string
	Value HeaderValue
}

// Headers is an ordered header collection as received by the host.
type Headers []HeaderField

// Get returns the value for name, matched case-insensitively. Multiple
// values, and repeated fields, are joined with ", ". It returns "" when name
// is absent.
func (h Headers) Get(name string) string {
	var found []string
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			found = append(found, f.Value.values...)
		}
	}
	return strings.Join(found, ", ")
}

// HeadersFromHTTP converts an http.Header into a plain name/value collection.
// Names are lower-cased and emitted in sorted order. Repeated header lines
// become one Single value joined with ", ".
func HeadersFromHTTP(hdr http.Header) Headers {
	names := make([]string, 0, len(hdr))
	for name := range hdr {
		names = append(names, name)
	}
	slices.Sort(names)

	out := make(Headers, 0, len(names))
	for _, name := range names {
		out = append(out, HeaderField{
			Name:  strings.ToLower(name),
			Value: Single(strings.Join(hdr[name], ", ")),
		})
	}
	return out
}

// RequestEvent is the inbound request as handed over by the host framework.
// It is read-only to the handler.
type RequestEvent struct {
	Method  string
	URL     string
	Headers Headers
	// Body may be nil when the request has no body.
	Body io.Reader
	// Params carries route parameters when the host provides them.
	Params map[string]string
	// Request is the originating *http.Request, if any.
	Request *http.Request

	once sync.Once
	text string
	err  error
}

// EventFromHTTP builds a RequestEvent from a net/http request.
func EventFromHTTP(r *http.Request) *RequestEvent {
	var body io.Reader
	if r.Body != nil && r.Body != http.NoBody {
		body = r.Body
	}
	return &RequestEvent{
		Method:  r.Method,
		URL:     requestURL(r),
		Headers: HeadersFromHTTP(r.Header),
		Body:    body,
		Request: r,
	}
}

// Text reads the whole body once and returns it. A nil body reads as "".
func (e *RequestEvent) Text() (string, error) {
	e.once.Do(func() {
		if e.Body == nil {
			return
		}
		data, err := io.ReadAll(e.Body)
		if err != nil {
			e.err = err
			return
		}
		e.text = string(data)
	})
	return e.text, e.err
}

// requestURL reconstructs an absolute URL for r.
func requestURL(r *http.Request) string {
	if r.URL.IsAbs() {
		return r.URL.String()
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}
