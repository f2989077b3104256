package api

import (
	"net/http"
	"strings"

	"viagens/internal/models"

	"github.com/gin-gonic/gin"
)

type createClientRequest struct {
	models.Client
	Companions []*models.Client `json:"companions"`
}

type createClientResponse struct {
	Client     *models.Client   `json:"client"`
	Companions []*models.Client `json:"companions"`
}

func (s *HTTPServer) listClients(c *gin.Context) {
	tripID, ok := optionalID(c, "trip_id")
	if !ok {
		return
	}
	principalID, ok := optionalID(c, "principal_id")
	if !ok {
		return
	}
	filter := models.ClientFilter{
		PaymentStatus: models.PaymentStatus(c.Query("payment_status")),
		Search:        strings.TrimSpace(c.Query("q")),
	}
	if tripID != nil {
		filter.TripID = *tripID
	}
	if principalID != nil {
		filter.PrincipalID = *principalID
	}
	clients, err := s.svc.Clients.List(c.Request.Context(), filter)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, clients)
}

func (s *HTTPServer) createClient(c *gin.Context) {
	var req createClientRequest
	if !bindJSON(c, &req) {
		return
	}
	principal := req.Client
	if err := s.svc.Clients.Create(c.Request.Context(), &principal, req.Companions); err != nil {
		writeServiceError(c, err)
		return
	}
	if req.Companions == nil {
		req.Companions = []*models.Client{}
	}
	c.JSON(http.StatusCreated, createClientResponse{Client: &principal, Companions: req.Companions})
}

func (s *HTTPServer) getClient(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	s.respondClient(c, id)
}

func (s *HTTPServer) respondClient(c *gin.Context, id int64) {
	client, err := s.svc.Clients.Get(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, client)
}

func (s *HTTPServer) updateClient(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var client models.Client
	if !bindJSON(c, &client) {
		return
	}
	client.ID = id
	if err := s.svc.Clients.Update(c.Request.Context(), &client); err != nil {
		writeServiceError(c, err)
		return
	}
	s.respondClient(c, id)
}

func (s *HTTPServer) deleteClient(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := s.svc.Clients.Delete(c.Request.Context(), id); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *HTTPServer) addCompanion(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var companion models.Client
	if !bindJSON(c, &companion) {
		return
	}
	if err := s.svc.Clients.AddCompanion(c.Request.Context(), id, &companion); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, companion)
}

type seatRequest struct {
	Number int `json:"number" binding:"required,min=1"`
}

func (s *HTTPServer) assignSeat(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req seatRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := s.svc.Clients.AssignSeat(c.Request.Context(), id, req.Number); err != nil {
		writeServiceError(c, err)
		return
	}
	s.respondClient(c, id)
}

func (s *HTTPServer) releaseSeat(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := s.svc.Clients.ReleaseSeat(c.Request.Context(), id); err != nil {
		writeServiceError(c, err)
		return
	}
	s.respondClient(c, id)
}

// roomRequest with a null room_id takes the client out of their room.
type roomRequest struct {
	RoomID *int64 `json:"room_id"`
}

func (s *HTTPServer) assignRoom(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req roomRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := s.svc.Clients.AssignRoom(c.Request.Context(), id, req.RoomID); err != nil {
		writeServiceError(c, err)
		return
	}
	s.respondClient(c, id)
}
