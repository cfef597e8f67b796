package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kseleznyov/spacebooking/internal/domain"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeError maps domain errors to stable machine codes. Anything unmapped is
// a 500 and its detail stays in the log, not the response body.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, errorResponse{Error: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse{Error: "NOT_FOUND"})
	case errors.Is(err, domain.ErrSlotUnavailable):
		c.JSON(http.StatusConflict, errorResponse{Error: "TIME_SLOT_UNAVAILABLE"})
	case errors.Is(err, domain.ErrReservationClosed):
		c.JSON(http.StatusConflict, errorResponse{Error: "RESERVATION_CLOSED"})
	case errors.Is(err, domain.ErrCannotDeletePaid):
		c.JSON(http.StatusConflict, errorResponse{Error: "CANNOT_DELETE_PAID"})
	case errors.Is(err, domain.ErrInvalidSpace):
		c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: "INVALID_SPACE"})
	case errors.Is(err, domain.ErrOverpayment):
		c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: "OVERPAYMENT", Message: err.Error()})
	default:
		log.Printf("ERROR: %v", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "INTERNAL"})
	}
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: "VALIDATION", Message: message})
}
