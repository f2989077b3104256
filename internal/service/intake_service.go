package service

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"viagens/internal/database"
	"viagens/internal/domain"
	"viagens/internal/events"
	"viagens/internal/models"
	"viagens/internal/notify"
	"viagens/internal/worker"

	"github.com/rs/zerolog"
)

// IntakeService handles what arrives from the public site: contact messages
// and trip sign-up forms.
type IntakeService struct {
	notifier
	db      *database.DB
	clients *ClientService
	render  *notify.Renderer
	now     func() time.Time
}

func NewIntakeService(db *database.DB, clients *ClientService, render *notify.Renderer, eventBus domain.EventPublisher, outbox domain.OutboxDispatcher, logger *zerolog.Logger) *IntakeService {
	return &IntakeService{
		notifier: newNotifier(eventBus, outbox, logger),
		db:       db,
		clients:  clients,
		render:   render,
		now:      time.Now,
	}
}

// tripOpen reports whether a trip still takes sign-ups on day now: it is
// published and has not departed.
func tripOpen(trip *models.Trip, now time.Time) bool {
	if trip == nil || !trip.Published {
		return false
	}
	if trip.DepartureDate == nil || trip.DepartureDate.IsZero() {
		return true
	}
	return !trip.DepartureDate.Before(models.DateOf(now))
}

// openTrip loads a trip that still takes sign-ups, or fails with ErrTripClosed.
func (s *IntakeService) openTrip(ctx context.Context, tx *database.Store, id int64) (*models.Trip, error) {
	trip, err := tx.GetTrip(ctx, id)
	if isNotFound(err) {
		return nil, ErrTripClosed
	}
	if err != nil {
		return nil, err
	}
	if !tripOpen(trip, s.now()) {
		return nil, ErrTripClosed
	}
	return trip, nil
}

func (s *IntakeService) SubmitContact(ctx context.Context, c *models.Contact) error {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	c.Message = strings.TrimSpace(c.Message)
	if c.Name == "" || c.Message == "" {
		return invalid("name and message are required")
	}
	if _, err := mail.ParseAddress(c.Email); err != nil {
		return invalid("invalid email %q", c.Email)
	}
	c.Status = models.ContactNew

	var task *models.OutboxTask
	err := s.db.InTx(ctx, func(tx *database.Store) error {
		if err := database.Records[models.Contact](tx).Create(ctx, c); err != nil {
			return err
		}
		var err error
		task, err = tx.EnqueueOutbox(ctx, worker.TaskStaffAlert, c.ID, alertTask{Text: s.render.ContactAlert(c)})
		return err
	})
	if err != nil {
		return err
	}

	s.dispatch(ctx, task)
	s.publishEvent(ctx, events.EventContactReceived, events.Payload{Entity: "contact", EntityID: c.ID, Detail: c.Name})
	return nil
}

func validateForm(f *models.ContractForm) error {
	f.Name = strings.TrimSpace(f.Name)
	f.Document = strings.TrimSpace(f.Document)
	f.Email = strings.TrimSpace(f.Email)
	if f.Name == "" || f.Document == "" {
		return invalid("name and document are required")
	}
	if f.Phone == "" && f.Email == "" {
		return invalid("a phone or an email is required")
	}
	if f.Email != "" {
		if _, err := mail.ParseAddress(f.Email); err != nil {
			return invalid("invalid email %q", f.Email)
		}
	}
	for i, c := range f.Companions {
		if strings.TrimSpace(c.Name) == "" {
			return invalid("companion %d has no name", i+1)
		}
	}
	if !f.Accepted {
		return ErrTermsNotAccepted
	}
	return nil
}

// SubmitContractForm stores a public sign-up for an open trip and alerts
// the staff.
func (s *IntakeService) SubmitContractForm(ctx context.Context, f *models.ContractForm) error {
	if err := validateForm(f); err != nil {
		return err
	}
	f.Status = models.ContractReceived
	f.ClientID = nil

	var (
		trip *models.Trip
		task *models.OutboxTask
	)
	err := s.db.InTx(ctx, func(tx *database.Store) error {
		var err error
		trip, err = s.openTrip(ctx, tx, f.TripID)
		if err != nil {
			return err
		}
		if err := database.Records[models.ContractForm](tx).Create(ctx, f); err != nil {
			return err
		}
		task, err = tx.EnqueueOutbox(ctx, worker.TaskStaffAlert, f.ID, alertTask{Text: s.render.ContractFormAlert(f, trip)})
		return err
	})
	if err != nil {
		return err
	}

	s.dispatch(ctx, task)
	s.logger.Info().Int64("form_id", f.ID).Int64("trip_id", f.TripID).Int("companions", len(f.Companions)).Msg("contract form received")
	s.publishEvent(ctx, events.EventContractReceived, events.Payload{
		Entity: "contract_form", EntityID: f.ID, TripID: f.TripID, Count: len(f.Companions) + 1, Detail: f.Name,
	})
	return nil
}

// ConvertContractForm turns a received form into a principal client with
// its companions. The trip must still be open. The form is marked converted
// in the same transaction.
func (s *IntakeService) ConvertContractForm(ctx context.Context, formID int64) (*models.Client, error) {
	var (
		principal *models.Client
		party     int
		task      *models.OutboxTask
	)
	err := s.db.InTx(ctx, func(tx *database.Store) error {
		forms := database.Records[models.ContractForm](tx)
		form, err := forms.Get(ctx, formID)
		if err != nil {
			return err
		}
		if form.Status != models.ContractReceived {
			return ErrAlreadyProcessed
		}
		if _, err := s.openTrip(ctx, tx, form.TripID); err != nil {
			return err
		}

		var companions []*models.Client
		principal, companions = clientsFromForm(form)
		party = len(companions) + 1
		task, err = s.clients.createParty(ctx, tx, principal, companions)
		if err != nil {
			return err
		}
		form.Status = models.ContractConverted
		form.ClientID = &principal.ID
		return forms.Update(ctx, form)
	})
	if err != nil {
		return nil, err
	}

	s.clients.partyCreated(ctx, task, principal, party)
	s.publishEvent(ctx, events.EventContractConverted, events.Payload{
		Entity: "contract_form", EntityID: formID, TripID: principal.TripID, ClientID: principal.ID, Count: party,
	})
	return principal, nil
}

// RejectContractForm closes a received form without creating clients.
func (s *IntakeService) RejectContractForm(ctx context.Context, formID int64) error {
	forms := database.Records[models.ContractForm](s.db.Store)
	form, err := forms.Get(ctx, formID)
	if err != nil {
		return err
	}
	if form.Status != models.ContractReceived {
		return ErrAlreadyProcessed
	}
	form.Status = models.ContractRejected
	return forms.Update(ctx, form)
}

func clientsFromForm(f *models.ContractForm) (*models.Client, []*models.Client) {
	notes := "Contrato online"
	if f.Address != "" {
		notes += " - " + f.Address
	}
	principal := &models.Client{
		TripID:    f.TripID,
		Name:      f.Name,
		Document:  f.Document,
		Phone:     f.Phone,
		Email:     f.Email,
		BirthDate: f.BirthDate,
		PriceTier: f.PriceTier,
		Notes:     notes,
	}
	companions := make([]*models.Client, 0, len(f.Companions))
	for _, c := range f.Companions {
		companions = append(companions, &models.Client{
			TripID:    f.TripID,
			Name:      c.Name,
			Document:  c.Document,
			BirthDate: c.BirthDate,
			LapChild:  c.LapChild,
			PriceTier: f.PriceTier,
		})
	}
	return principal, companions
}
