package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Domenick1991/carrental/internal/domain"
)

// retryAfter is advertised on 503 responses; it matches the default lock wait.
const retryAfter = 5 * time.Second

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindInvalidInput, domain.KindInvalidDateRange, domain.KindPickupInPast:
		return http.StatusBadRequest
	case domain.KindUnauthorized:
		return http.StatusForbidden
	case domain.KindCarNotFound, domain.KindBookingNotFound:
		return http.StatusNotFound
	case domain.KindBookingConflict, domain.KindCarUnavailable, domain.KindAlreadyCancelled,
		domain.KindAlreadyDeleted, domain.KindInvalidTransition:
		return http.StatusConflict
	case domain.KindStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err with the status of its kind. Internal errors are
// attached to the context for the request logger and not echoed back.
func writeError(c *gin.Context, err error) {
	kind := domain.KindOf(err)
	status := statusFor(kind)

	msg := err.Error()
	switch status {
	case http.StatusInternalServerError:
		_ = c.Error(err)
		msg = "internal error"
	case http.StatusServiceUnavailable:
		_ = c.Error(err)
		c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
	}
	c.AbortWithStatusJSON(status, errorResponse{Error: msg, Kind: string(kind)})
}
