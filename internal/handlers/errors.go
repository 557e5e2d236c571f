package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"cleanhub/internal/middleware"
	"cleanhub/internal/models"
	"cleanhub/internal/service"
	"cleanhub/internal/validation"
)

// respondError writes err using the service error taxonomy. Unknown errors
// are logged and reported as 500.
func (h HandlerSet) respondError(c *gin.Context, err error) {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "errors": verrs})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrUnauthorized), errors.Is(err, service.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		status = http.StatusBadRequest
	}
	if status != http.StatusInternalServerError {
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	h.log.Error().
		Err(err).
		Str("path", c.FullPath()).
		Str("request_id", middleware.GetRequestID(c)).
		Msg("request failed")
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "internal_server_error",
		"message": err.Error(),
	})
}

// bindJSON decodes the request body into dst. A malformed body is reported
// like any other validation failure.
func (h HandlerSet) bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		var errs validation.Errors
		errs.Add("body", "malformed JSON: "+err.Error())
		h.respondError(c, errs)
		return false
	}
	return true
}

// identity is set by middleware.Auth on every authenticated route.
func identity(c *gin.Context) models.Identity {
	who, _ := middleware.CurrentIdentity(c)
	return who
}
