// Package handler holds the gin handlers of the production HTTP API.
package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/erp/production/internal/domain/shared"
	"github.com/erp/production/internal/infrastructure/logger"
	"github.com/erp/production/internal/interfaces/http/dto"
	"github.com/erp/production/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

func getRequestID(c *gin.Context) string {
	if id := c.GetString(logger.GinRequestIDKey); id != "" {
		return id
	}
	return c.GetHeader(middleware.RequestIDHeader)
}

// getActor reads the acting user from the X-User-ID and X-User-Name headers.
// Authentication happens upstream; the API only records who acted.
func getActor(c *gin.Context) (shared.Actor, bool) {
	actor := shared.Actor{
		ID:   strings.TrimSpace(c.GetHeader(logger.ActorIDHeader)),
		Name: strings.TrimSpace(c.GetHeader(middleware.ActorNameHeader)),
	}
	return actor, actor.ID != ""
}

// requireActor writes a 400 and returns false when no actor header is set
func (h *BaseHandler) requireActor(c *gin.Context) (shared.Actor, bool) {
	actor, ok := getActor(c)
	if !ok {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeMissingActor, "X-User-ID header is required")
	}
	return actor, ok
}

// bindOptionalJSON binds the body when one was sent
func (h *BaseHandler) bindOptionalJSON(c *gin.Context, obj any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(obj); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// respondPage sends a page of results with its pagination meta.
func respondPage[T any](c *gin.Context, page *shared.Paginated[T]) {
	c.JSON(http.StatusOK, dto.NewPageResponse(page))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response with the given status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// HandleError converts an application error into a response. Domain errors
// keep their message and details; anything else is logged and hidden
// behind a 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		resp := dto.NewErrorResponseWithRequestID(code, domainErr.Message, getRequestID(c))
		if len(domainErr.Details) > 0 {
			resp.Error.Context = domainErr.Details
		}
		c.JSON(dto.GetHTTPStatus(code), resp)
		return
	}

	logger.L(c.Request.Context()).Error("Unhandled error", zap.Error(err))
	h.InternalError(c, "An unexpected error occurred")
}
