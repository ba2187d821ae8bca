// Package handlers implements the deal listing, click and feed webhook
// endpoints.
//
// Errors use one envelope with a stable code:
//
//	HTTP/1.1 404 Not Found
//	{"request_id":"7f0c...","code":"not_found","message":"message not found"}
//
// Server-side failures are logged with the request logger and the client
// only sees a generic message.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-deals-backend/internal/http/middleware"
)

// ErrorResponse is the error envelope.
type ErrorResponse struct {
	RequestID string `json:"request_id,omitempty" example:"7f0c2a8e-3c41-4a8e-9b1e-0d6f1f1f6a10"`
	Code      string `json:"code" example:"not_found"`
	Message   string `json:"message" example:"message not found"`
}

func fail(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get(middleware.RequestIDHeader),
		Code:      code,
		Message:   msg,
	})
}

// failErr logs err and aborts with a 5xx whose message does not leak it.
func failErr(c *gin.Context, status int, code string, err error) {
	middleware.LoggerFrom(c).Error().Err(err).Int("status", status).Str("code", code).Msg("request failed")
	fail(c, status, code, http.StatusText(status))
}

// Fail writes the error envelope for callers outside this package.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
