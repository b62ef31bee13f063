package adapter

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Gin returns a gin handler serving h. Route parameters are copied into the
// event. Errors abort the request with a 500 and are attached to the gin
// context for middleware to report.
func Gin(h *Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		ev := EventFromHTTP(c.Request)
		if len(c.Params) > 0 {
			ev.Params = make(map[string]string, len(c.Params))
			for _, p := range c.Params {
				ev.Params[p.Key] = p.Value
			}
		}

		resp, err := h.Handle(c.Request.Context(), ev)
		if err != nil {
			_ = c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		writeResponse(c.Writer, resp)
	}
}
