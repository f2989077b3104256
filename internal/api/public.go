package api

import (
	"net/http"

	"viagens/internal/models"

	"github.com/gin-gonic/gin"
)

// publicTrip is what the website sees of a published trip.
type publicTrip struct {
	ID             int64        `json:"id"`
	Title          string       `json:"title"`
	Destination    string       `json:"destination"`
	DepartureDate  *models.Date `json:"departure_date,omitempty"`
	ReturnDate     *models.Date `json:"return_date,omitempty"`
	AvailableSeats int          `json:"available_seats"`
	PriceCents     int64        `json:"price_cents"`
}

func (s *HTTPServer) publicTrips(c *gin.Context) {
	today := models.DateOf(s.now())
	trips, err := s.svc.Trips.List(c.Request.Context(), models.TripFilter{PublishedOnly: true, From: &today})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	out := make([]publicTrip, 0, len(trips))
	for _, t := range trips {
		price, _ := t.TierPrice(1)
		out = append(out, publicTrip{
			ID:             t.ID,
			Title:          t.Title,
			Destination:    t.Destination,
			DepartureDate:  t.DepartureDate,
			ReturnDate:     t.ReturnDate,
			AvailableSeats: t.AvailableSeats(),
			PriceCents:     price,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *HTTPServer) publicContact(c *gin.Context) {
	var contact models.Contact
	if !bindJSON(c, &contact) {
		return
	}
	contact.ID = 0
	if err := s.svc.Intake.SubmitContact(c.Request.Context(), &contact); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": contact.ID, "status": contact.Status})
}

func (s *HTTPServer) publicContractForm(c *gin.Context) {
	var form models.ContractForm
	if !bindJSON(c, &form) {
		return
	}
	form.ID = 0
	if err := s.svc.Intake.SubmitContractForm(c.Request.Context(), &form); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": form.ID, "status": form.Status})
}

func (s *HTTPServer) convertContractForm(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	client, err := s.svc.Intake.ConvertContractForm(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, client)
}

func (s *HTTPServer) rejectContractForm(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := s.svc.Intake.RejectContractForm(c.Request.Context(), id); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
