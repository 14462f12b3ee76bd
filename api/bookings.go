package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/Domenick1991/carrental/internal/domain"
	"github.com/Domenick1991/carrental/internal/pricing"
	"github.com/Domenick1991/carrental/internal/service/booking"
)

// DayCounter reports the billed days of a stay. *pricing.Calculator
// implements it.
type DayCounter interface {
	Days(pickup, ret time.Time) int
}

type BookingHandler struct {
	service booking.BookingUseCase
	days    DayCounter
}

type createBookingRequest struct {
	CarID      int64   `json:"car_id"`
	PickupDate string  `json:"pickup_date"`
	ReturnDate string  `json:"return_date"`
	Notes      *string `json:"notes"`
}

type cancelBookingRequest struct {
	Reason *string `json:"reason"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
	Force  bool   `json:"force"`
}

type carSummary struct {
	Brand     string          `json:"brand"`
	Model     string          `json:"model"`
	Year      int             `json:"year"`
	DailyRate decimal.Decimal `json:"daily_rate"`
}

type userSummary struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

type bookingResponse struct {
	ID                 int64           `json:"id"`
	BookingNumber      string          `json:"booking_number"`
	CarID              int64           `json:"car_id"`
	UserID             string          `json:"user_id"`
	PickupDate         time.Time       `json:"pickup_date"`
	ReturnDate         time.Time       `json:"return_date"`
	TotalDays          int             `json:"total_days"`
	TotalPrice         decimal.Decimal `json:"total_price"`
	Status             string          `json:"status"`
	IsCancelled        bool            `json:"is_cancelled"`
	CancellationDate   *time.Time      `json:"cancellation_date,omitempty"`
	CancellationReason *string         `json:"cancellation_reason,omitempty"`
	CompletedDate      *time.Time      `json:"completed_date,omitempty"`
	Notes              *string         `json:"notes,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	Car                *carSummary     `json:"car,omitempty"`
	User               *userSummary    `json:"user,omitempty"`
}

type statsResponse struct {
	TotalBookings int64           `json:"total_bookings"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
}

// NewBookingHandler reports total_days with days, which should be the
// calculator that priced the bookings. A nil days rounds partial days up.
func NewBookingHandler(service booking.BookingUseCase, days DayCounter) *BookingHandler {
	if days == nil {
		days = pricing.NewCalculator(pricing.Config{RoundUpPartialDays: true})
	}
	return &BookingHandler{service: service, days: days}
}

// Register mounts the customer routes. The group must run Identity.
func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.create)
	router.GET("/me", h.mine)
	router.GET("/me/active", h.active)
	router.GET("/me/upcoming", h.upcoming)
	router.GET("/me/completed", h.completed)
	router.GET("/:id", h.get)
	router.POST("/:id/cancel", h.cancel)
}

// RegisterAdmin mounts the back-office routes. The group must run
// Identity and RequireAdmin.
func (h *BookingHandler) RegisterAdmin(router *gin.RouterGroup) {
	router.GET("/bookings", h.list)
	router.PATCH("/bookings/:id/status", h.updateStatus)
	router.POST("/bookings/:id/confirm", h.confirm)
	router.POST("/bookings/:id/complete", h.complete)
	router.DELETE("/bookings/:id", h.delete)
	router.GET("/stats", h.stats)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("%w: %s", domain.ErrInvalidInput, err.Error()))
		return
	}
	pickup, err := parseDate("pickup_date", req.PickupDate)
	if err != nil {
		writeError(c, err)
		return
	}
	ret, err := parseDate("return_date", req.ReturnDate)
	if err != nil {
		writeError(c, err)
		return
	}

	b, err := h.service.CreateBooking(c.Request.Context(), booking.CreateBookingInput{
		UserID:     requesterFrom(c).UserID,
		CarID:      req.CarID,
		PickupDate: pickup,
		ReturnDate: ret,
		Notes:      req.Notes,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.toBookingResponse(b))
}

// get returns the booking to its owner or an administrator.
func (h *BookingHandler) get(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		writeError(c, err)
		return
	}
	b, err := h.service.GetBooking(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	requester := requesterFrom(c)
	if b.UserID != requester.UserID && !requester.IsAdmin {
		writeError(c, fmt.Errorf("%w: booking %d belongs to another user", domain.ErrUnauthorized, id))
		return
	}
	c.JSON(http.StatusOK, h.toBookingResponse(b))
}

func (h *BookingHandler) mine(c *gin.Context) {
	list, err := h.service.ListByUser(c.Request.Context(), requesterFrom(c).UserID)
	h.respondList(c, list, err)
}

func (h *BookingHandler) active(c *gin.Context) {
	list, err := h.service.ActiveForUser(c.Request.Context(), requesterFrom(c).UserID)
	h.respondList(c, list, err)
}

func (h *BookingHandler) upcoming(c *gin.Context) {
	list, err := h.service.UpcomingForUser(c.Request.Context(), requesterFrom(c).UserID)
	h.respondList(c, list, err)
}

func (h *BookingHandler) completed(c *gin.Context) {
	list, err := h.service.CompletedForUser(c.Request.Context(), requesterFrom(c).UserID)
	h.respondList(c, list, err)
}

func (h *BookingHandler) cancel(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		writeError(c, err)
		return
	}
	// the body is optional and may arrive chunked with no Content-Length
	var req cancelBookingRequest
	if c.Request.Body != nil && c.Request.Body != http.NoBody {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(c, fmt.Errorf("%w: %s", domain.ErrInvalidInput, err.Error()))
			return
		}
	}

	b, err := h.service.CancelBooking(c.Request.Context(), id, requesterFrom(c), req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.toBookingResponse(b))
}

// list filters by the optional status, car_id and user_id query parameters.
func (h *BookingHandler) list(c *gin.Context) {
	var filter domain.BookingFilter
	if s := c.Query("status"); s != "" {
		status, err := domain.ParseBookingStatus(s)
		if err != nil {
			writeError(c, err)
			return
		}
		filter.Status = &status
	}
	if s := c.Query("car_id"); s != "" {
		carID, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			writeError(c, fmt.Errorf("%w: invalid car_id %q", domain.ErrInvalidInput, s))
			return
		}
		filter.CarID = &carID
	}
	if s := c.Query("user_id"); s != "" {
		filter.UserID = &s
	}

	list, err := h.service.ListAll(c.Request.Context(), filter)
	h.respondList(c, list, err)
}

func (h *BookingHandler) updateStatus(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		writeError(c, err)
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("%w: %s", domain.ErrInvalidInput, err.Error()))
		return
	}
	status, err := domain.ParseBookingStatus(req.Status)
	if err != nil {
		writeError(c, err)
		return
	}

	var b *domain.Booking
	if req.Force {
		b, err = h.service.ForceStatus(c.Request.Context(), id, status)
	} else {
		b, err = h.service.UpdateStatus(c.Request.Context(), id, status)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.toBookingResponse(b))
}

func (h *BookingHandler) confirm(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		writeError(c, err)
		return
	}
	b, err := h.service.ConfirmBooking(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.toBookingResponse(b))
}

func (h *BookingHandler) complete(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		writeError(c, err)
		return
	}
	b, err := h.service.CompleteBooking(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.toBookingResponse(b))
}

func (h *BookingHandler) delete(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		writeError(c, err)
		return
	}
	if err := h.service.DeleteBooking(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *BookingHandler) stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, statsResponse{TotalBookings: stats.TotalBookings, TotalRevenue: stats.TotalRevenue})
}

func (h *BookingHandler) respondList(c *gin.Context, list []domain.Booking, err error) {
	if err != nil {
		writeError(c, err)
		return
	}
	resp := make([]bookingResponse, 0, len(list))
	for i := range list {
		resp = append(resp, h.toBookingResponse(&list[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *BookingHandler) toBookingResponse(b *domain.Booking) bookingResponse {
	resp := bookingResponse{
		ID:                 b.ID,
		BookingNumber:      b.BookingNumber,
		CarID:              b.CarID,
		UserID:             b.UserID,
		PickupDate:         b.PickupDate,
		ReturnDate:         b.ReturnDate,
		TotalDays:          h.days.Days(b.PickupDate, b.ReturnDate),
		TotalPrice:         b.TotalPrice,
		Status:             string(b.Status),
		IsCancelled:        b.IsCancelled,
		CancellationDate:   b.CancellationDate,
		CancellationReason: b.CancellationReason,
		CompletedDate:      b.CompletedDate,
		Notes:              b.Notes,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
	if b.CarBrand != "" {
		resp.Car = &carSummary{Brand: b.CarBrand, Model: b.CarModel, Year: b.CarYear, DailyRate: b.DailyRate}
	}
	if b.UserFullName != "" || b.UserEmail != "" {
		resp.User = &userSummary{FullName: b.UserFullName, Email: b.UserEmail}
	}
	return resp
}
