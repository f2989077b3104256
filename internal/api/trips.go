package api

import (
	"net/http"
	"strconv"
	"strings"

	"viagens/internal/models"

	"github.com/gin-gonic/gin"
)

func (s *HTTPServer) listTrips(c *gin.Context) {
	filter := models.TripFilter{
		PublishedOnly: c.Query("published") == "true",
		Search:        strings.TrimSpace(c.Query("q")),
	}
	if raw := c.Query("from"); raw != "" {
		from, err := models.ParseDate(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid_query", "from must be YYYY-MM-DD")
			return
		}
		filter.From = &from
	}
	trips, err := s.svc.Trips.List(c.Request.Context(), filter)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, trips)
}

func (s *HTTPServer) createTrip(c *gin.Context) {
	var trip models.Trip
	if !bindJSON(c, &trip) {
		return
	}
	if err := s.svc.Trips.Create(c.Request.Context(), &trip); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, trip)
}

func (s *HTTPServer) getTrip(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	trip, err := s.svc.Trips.Get(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, trip)
}

func (s *HTTPServer) updateTrip(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var trip models.Trip
	if !bindJSON(c, &trip) {
		return
	}
	trip.ID = id
	if err := s.svc.Trips.Update(c.Request.Context(), &trip); err != nil {
		writeServiceError(c, err)
		return
	}
	s.respondTrip(c, id)
}

func (s *HTTPServer) respondTrip(c *gin.Context, id int64) {
	trip, err := s.svc.Trips.Get(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, trip)
}

func (s *HTTPServer) deleteTrip(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := s.svc.Trips.Delete(c.Request.Context(), id); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type pricingRequest struct {
	DynamicPricing *bool `json:"dynamic_pricing" binding:"required"`
}

func (s *HTTPServer) setDynamicPricing(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req pricingRequest
	if !bindJSON(c, &req) {
		return
	}
	repriced, err := s.svc.Trips.SetDynamicPricing(c.Request.Context(), id, *req.DynamicPricing)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"repriced_clients": repriced})
}

func (s *HTTPServer) occupancy(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	view, err := s.svc.Trips.Occupancy(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type blockSeatRequest struct {
	Blocked bool `json:"blocked"`
}

func (s *HTTPServer) blockSeat(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	number, err := strconv.Atoi(c.Param("number"))
	if err != nil || number <= 0 {
		respondError(c, http.StatusBadRequest, "invalid_id", "invalid seat number")
		return
	}
	var req blockSeatRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := s.svc.Trips.BlockSeat(c.Request.Context(), id, number, req.Blocked); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *HTTPServer) addRoom(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var room models.Room
	if !bindJSON(c, &room) {
		return
	}
	if err := s.svc.Trips.AddRoom(c.Request.Context(), id, &room); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, room)
}

func (s *HTTPServer) recount(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	occupied, err := s.svc.Trips.Recount(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"occupied_seats": occupied})
}

func (s *HTTPServer) tripClients(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	clients, err := s.svc.Clients.ListByTrip(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, clients)
}

func (s *HTTPServer) tripOverdue(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	installments, err := s.svc.Billing.Overdue(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, installments)
}
