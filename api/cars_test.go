package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Domenick1991/carrental/internal/domain"
	"github.com/Domenick1991/carrental/internal/pricing"
)

func TestCarHandler_list(t *testing.T) {
	mockService := &MockCarUseCase{}
	handler := NewCarHandler(mockService, &MockBookingUseCase{})

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/api/v1/cars", nil)

	weekly := decimal.NewFromInt(250)
	cars := []domain.Car{
		{ID: 1, Brand: "Toyota", Model: "Corolla", Year: 2022, DailyRate: decimal.NewFromInt(45), WeeklyRate: &weekly, IsAvailable: true},
	}
	mockService.On("List", c.Request.Context()).Return(cars, nil)

	handler.list(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var response []carResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response, 1)
	assert.Equal(t, "Corolla", response[0].Model)
	require.NotNil(t, response[0].WeeklyRate)
	assert.True(t, weekly.Equal(*response[0].WeeklyRate))
	assert.Nil(t, response[0].MonthlyRate)
	mockService.AssertExpectations(t)
}

func TestCarHandler_get(t *testing.T) {
	cars := &MockCarUseCase{}
	cars.On("GetByID", mock.Anything, int64(1)).Return(&domain.Car{ID: 1, Brand: "Toyota"}, nil)
	cars.On("GetByID", mock.Anything, int64(2)).Return(nil, domain.ErrCarNotFound)
	r := newTestRouter(cars, &MockBookingUseCase{})

	assert.Equal(t, http.StatusOK, doRequest(r, http.MethodGet, "/api/v1/cars/1", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, doRequest(r, http.MethodGet, "/api/v1/cars/2", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, doRequest(r, http.MethodGet, "/api/v1/cars/0", "", nil).Code)
}

func TestCarHandler_availability(t *testing.T) {
	bookings := &MockBookingUseCase{}
	pickup := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	ret := time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)
	free := time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC)
	report := domain.AvailabilityReport{
		CarID:         7,
		AvailableFrom: &free,
		Conflicts:     []domain.BookingConflict{{BookingID: 3, PickupDate: pickup, ReturnDate: free}},
	}
	bookings.On("CheckAvailability", mock.Anything, int64(7), pickup, ret).Return(report, nil)
	r := newTestRouter(&MockCarUseCase{}, bookings)

	w := doRequest(r, http.MethodGet, "/api/v1/cars/7/availability?pickup=2025-06-10&return=2025-06-14", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var got domain.AvailabilityReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.False(t, got.IsAvailable)
	require.NotNil(t, got.AvailableFrom)
	assert.True(t, free.Equal(*got.AvailableFrom))
	assert.Len(t, got.Conflicts, 1)

	w = doRequest(r, http.MethodGet, "/api/v1/cars/7/availability?pickup=2025-06-10", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	bookings.AssertExpectations(t)
}

func TestCarHandler_quote(t *testing.T) {
	bookings := &MockBookingUseCase{}
	pickup := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	ret := time.Date(2025, 6, 20, 9, 0, 0, 0, time.UTC)
	bookings.On("QuotePrice", mock.Anything, int64(7), pickup, ret).
		Return(pricing.Quote{Days: 10, Weeks: 1, RemainderDays: 3, Total: decimal.NewFromInt(385)}, nil)
	bookings.On("QuotePrice", mock.Anything, int64(8), pickup, ret).
		Return(pricing.Quote{}, domain.ErrCarUnavailable)
	r := newTestRouter(&MockCarUseCase{}, bookings)

	w := doRequest(r, http.MethodGet, "/api/v1/cars/7/quote?pickup=2025-06-10T09:00:00Z&return=2025-06-20T09:00:00Z", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got quoteResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 10, got.Days)
	assert.Equal(t, 1, got.Weeks)
	assert.True(t, decimal.NewFromInt(385).Equal(got.Total))

	w = doRequest(r, http.MethodGet, "/api/v1/cars/8/quote?pickup=2025-06-10T09:00:00Z&return=2025-06-20T09:00:00Z", "", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	bookings.AssertExpectations(t)
}
