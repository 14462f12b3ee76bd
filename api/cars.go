package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/Domenick1991/carrental/internal/domain"
	"github.com/Domenick1991/carrental/internal/service/booking"
	"github.com/Domenick1991/carrental/internal/service/cars"
)

type CarHandler struct {
	cars     cars.CarUseCase
	bookings booking.BookingUseCase
}

type carResponse struct {
	ID          int64            `json:"id"`
	Brand       string           `json:"brand"`
	Model       string           `json:"model"`
	Year        int              `json:"year"`
	DailyRate   decimal.Decimal  `json:"daily_rate"`
	WeeklyRate  *decimal.Decimal `json:"weekly_rate,omitempty"`
	MonthlyRate *decimal.Decimal `json:"monthly_rate,omitempty"`
	IsAvailable bool             `json:"is_available"`
}

type quoteResponse struct {
	CarID         int64           `json:"car_id"`
	PickupDate    time.Time       `json:"pickup_date"`
	ReturnDate    time.Time       `json:"return_date"`
	Days          int             `json:"days"`
	Months        int             `json:"months"`
	Weeks         int             `json:"weeks"`
	RemainderDays int             `json:"remainder_days"`
	Total         decimal.Decimal `json:"total"`
}

func NewCarHandler(cars cars.CarUseCase, bookings booking.BookingUseCase) *CarHandler {
	return &CarHandler{cars: cars, bookings: bookings}
}

func (h *CarHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.list)
	router.GET("/:id", h.get)
	router.GET("/:id/availability", h.availability)
	router.GET("/:id/quote", h.quote)
}

func (h *CarHandler) list(c *gin.Context) {
	list, err := h.cars.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	resp := make([]carResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toCarResponse(&list[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CarHandler) get(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		writeError(c, err)
		return
	}
	car, err := h.cars.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCarResponse(car))
}

func (h *CarHandler) availability(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		writeError(c, err)
		return
	}
	pickup, ret, err := dateRange(c)
	if err != nil {
		writeError(c, err)
		return
	}
	report, err := h.bookings.CheckAvailability(c.Request.Context(), id, pickup, ret)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *CarHandler) quote(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		writeError(c, err)
		return
	}
	pickup, ret, err := dateRange(c)
	if err != nil {
		writeError(c, err)
		return
	}
	q, err := h.bookings.QuotePrice(c.Request.Context(), id, pickup, ret)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, quoteResponse{
		CarID:         id,
		PickupDate:    pickup,
		ReturnDate:    ret,
		Days:          q.Days,
		Months:        q.Months,
		Weeks:         q.Weeks,
		RemainderDays: q.RemainderDays,
		Total:         q.Total,
	})
}

func toCarResponse(car *domain.Car) carResponse {
	return carResponse{
		ID:          car.ID,
		Brand:       car.Brand,
		Model:       car.Model,
		Year:        car.Year,
		DailyRate:   car.DailyRate,
		WeeklyRate:  car.WeeklyRate,
		MonthlyRate: car.MonthlyRate,
		IsAvailable: car.IsAvailable,
	}
}
