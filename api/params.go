package api

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Domenick1991/carrental/internal/domain"
)

const dateLayout = "2006-01-02"

// parseDate accepts a calendar date or an RFC 3339 timestamp and returns UTC.
func parseDate(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: %s is required", domain.ErrInvalidInput, field)
	}
	if t, err := time.Parse(dateLayout, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be YYYY-MM-DD or RFC 3339", domain.ErrInvalidInput, field)
	}
	return t.UTC(), nil
}

func idParam(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", domain.ErrInvalidInput, c.Param("id"))
	}
	return id, nil
}

// dateRange reads the pickup and return query parameters.
func dateRange(c *gin.Context) (time.Time, time.Time, error) {
	pickup, err := parseDate("pickup", c.Query("pickup"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	ret, err := parseDate("return", c.Query("return"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return pickup, ret, nil
}
