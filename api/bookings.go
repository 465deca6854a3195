package api

import (
	"net/http"
	"strconv"

	"github.com/flightapp/platform/internal/service/booking"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.Engine) {
	router.POST("/book/:flightId", h.book)
	router.GET("/ticket/:pnr", h.ticket)
	router.GET("/history/:email", h.history)
	router.DELETE("/cancel/:pnr", h.cancel)
}

func (h *BookingHandler) book(c *gin.Context) {
	flightID, err := strconv.ParseInt(c.Param("flightId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid flight id"})
		return
	}

	var req booking.BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	itinerary, err := h.service.BookItinerary(c.Request.Context(), flightID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, itinerary)
}

func (h *BookingHandler) ticket(c *gin.Context) {
	itinerary, err := h.service.GetByPNR(c.Request.Context(), c.Param("pnr"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, itinerary)
}

func (h *BookingHandler) history(c *gin.Context) {
	itineraries, err := h.service.HistoryByEmail(c.Request.Context(), c.Param("email"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, itineraries)
}

func (h *BookingHandler) cancel(c *gin.Context) {
	result, err := h.service.CancelByPNR(c.Request.Context(), c.Param("pnr"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
