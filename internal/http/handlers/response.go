// Package handlers provides the HTTP handler implementations for the
// connector's two surfaces: the channel webhook (ack-first, always 200) and
// the dialogue engine's action endpoint (JSON request/response).
//
// This file defines the standard response utilities: the structured error
// envelope for the action surface, and the plain-text acknowledgment the
// channel webhook contract requires in every reachable case.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/channelkit/go-suggest-bridge/internal/http/middleware"
)

// ErrorResponse is the standard error envelope returned by the action
// surface. RequestID correlates server logs with client-side errors; Code is
// a stable machine-readable string (see errors.go constants).
type ErrorResponse struct {
	RequestID string `json:"request_id,omitempty"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// fail aborts the request with a structured error. Server errors (>= 500)
// are logged with the request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	reqID := c.Writer.Header().Get("X-Request-ID")
	resp := ErrorResponse{
		RequestID: reqID,
		Code:      code,
		Message:   msg,
	}

	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail(), for router-level fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// ack writes the webhook acknowledgment. The channel retries any delivery
// that is not acknowledged with a 2xx, so every reachable webhook outcome
// funnels through here.
func ack(c *gin.Context) {
	c.String(http.StatusOK, "success")
}
