package middleware

import (
	"net/http"

	"github.com/erp/production/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// BodyLimit rejects bodies over maxBytes. A declared Content-Length is
// checked up front; chunked bodies are cut off while reading and surface as
// *http.MaxBytesError from the bind, which HandleValidationError maps to 413.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, bodyTooLarge(c))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func bodyTooLarge(c *gin.Context) dto.Response {
	return dto.NewErrorResponseWithRequestID(dto.ErrCodeRequestTooLarge,
		"Request body exceeds maximum allowed size", getRequestID(c))
}
