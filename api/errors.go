package api

import (
	"errors"
	"net/http"

	"github.com/flightapp/platform/internal/domain"
	"github.com/gin-gonic/gin"
)

func writeError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientCapacity):
		return http.StatusConflict
	case errors.Is(err, domain.ErrCancellationNotAllowed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInventoryUnreachable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
