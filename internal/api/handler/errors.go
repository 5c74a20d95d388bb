package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cuongbtq/jobmatch-applications/internal/api/domain"
	"github.com/cuongbtq/jobmatch-applications/internal/api/dto"
	"github.com/gin-gonic/gin"
)

// statusFor maps an error kind to its HTTP status
func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindInvalidState:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the caller-safe part of err. Causes of internal errors
// are logged, never returned.
func (h *ApplicationHandler) respondError(c *gin.Context, err error) {
	var derr *domain.Error
	if !errors.As(err, &derr) {
		derr = &domain.Error{Kind: domain.KindInternal, Message: "internal error", Err: err}
	}

	if derr.Kind == domain.KindInternal {
		h.logger.Error("Request failed",
			slog.String("path", c.Request.URL.Path),
			slog.String("message", derr.Message),
			slog.Any("error", derr.Err),
		)
	}

	c.JSON(statusFor(derr.Kind), dto.ErrorResponse{
		Error:   derr.Kind.String(),
		Message: derr.Message,
	})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{
		Error:   "BAD_REQUEST",
		Message: message,
	})
}
