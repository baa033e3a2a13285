package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"geosafe/internal/domain/entities"
	"geosafe/internal/services"
)

// respondError maps service errors to HTTP statuses. Unknown errors are
// recorded on the context for the request logger and reported as 500.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrReportNotFound), errors.Is(err, services.ErrVoteNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrAlreadyVoted):
		status = http.StatusConflict
	case errors.Is(err, services.ErrNotAuthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, services.ErrDirectoryUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, entities.ErrInvalidVoteType),
		errors.Is(err, entities.ErrInvalidCategory),
		errors.Is(err, entities.ErrInvalidStatus),
		errors.Is(err, entities.ErrEmptyTitle),
		errors.Is(err, entities.ErrInvalidLocation),
		errors.Is(err, entities.ErrInvalidRadius):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
