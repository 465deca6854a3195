package api

import (
	"net/http"
	"strconv"

	"github.com/flightapp/platform/internal/service/flights"
	"github.com/gin-gonic/gin"
)

type FlightHandler struct {
	service flights.FlightUseCase
}

type addInventoryRequest struct {
	AirlineCode string                  `json:"airline_code" binding:"required"`
	Flights     []flights.InventoryItem `json:"flights" binding:"required"`
}

type addInventoryResponse struct {
	AirlineCode  string  `json:"airline_code"`
	FlightsAdded int     `json:"flights_added"`
	FlightIDs    []int64 `json:"flight_ids"`
}

func NewFlightHandler(service flights.FlightUseCase) *FlightHandler {
	return &FlightHandler{service: service}
}

func (h *FlightHandler) Register(router *gin.Engine) {
	router.GET("/flights", h.list)
	router.GET("/flights/:id", h.get)
	router.GET("/internal/flight/:id", h.summary)
	router.PUT("/internal/flight/:id/seats", h.adjustSeats)
	router.POST("/admin/airline/inventory", h.addInventory)
}

func (h *FlightHandler) list(c *gin.Context) {
	list, err := h.service.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *FlightHandler) get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	flight, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, flight)
}

func (h *FlightHandler) summary(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	summary, err := h.service.GetSummary(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// adjustSeats is the internal seat-mutation RPC: negative count reserves,
// positive count releases. Insufficient capacity maps to 409.
func (h *FlightHandler) adjustSeats(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	count, err := strconv.Atoi(c.Query("count"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid count"})
		return
	}
	if err := h.service.AdjustSeats(c.Request.Context(), id, count); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"flight_id": id, "adjusted_by": count})
}

func (h *FlightHandler) addInventory(c *gin.Context) {
	var req addInventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ids, err := h.service.AddInventory(c.Request.Context(), req.AirlineCode, req.Flights)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, addInventoryResponse{
		AirlineCode:  req.AirlineCode,
		FlightsAdded: len(ids),
		FlightIDs:    ids,
	})
}
