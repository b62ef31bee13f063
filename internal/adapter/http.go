package adapter

import (
	"io"
	"net/http"
)

// ServeHTTP makes Handler an http.Handler. Errors become a 500.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp, err := h.Handle(r.Context(), EventFromHTTP(r))
	if err != nil {
		if h.logger != nil {
			h.logger.Error("graphql request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		}
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	writeResponse(w, resp)
}

// writeResponse copies resp onto w. net/http always sends the standard
// reason phrase, so StatusText is not written.
func writeResponse(w http.ResponseWriter, resp *Response) {
	for name, value := range resp.Headers {
		w.Header().Set(name, value)
	}
	w.WriteHeader(resp.Status)
	if resp.Body != "" {
		_, _ = io.WriteString(w, resp.Body)
	}
}
