package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"viagens/internal/database"
	"viagens/internal/docs"
	"viagens/internal/domain"
	"viagens/internal/models"
	"viagens/internal/notify"
	"viagens/internal/worker"

	"github.com/rs/zerolog"
)

// Outbox payloads.
type rosterTask struct {
	TripID int64 `json:"trip_id"`
}

type receiptTask struct {
	PaymentID int64 `json:"payment_id"`
}

type emailTask struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type alertTask struct {
	Text string `json:"text"`
}

// NotificationHandlers deliver outbox tasks: receipt and reminder emails,
// staff alerts and the roster spreadsheet mirror.
type NotificationHandlers struct {
	db      *database.DB
	billing *BillingService
	render  *notify.Renderer
	docs    *docs.Generator
	mailer  domain.Mailer
	staff   domain.StaffNotifier
	roster  domain.RosterWriter
	logger  *zerolog.Logger
}

// NewNotificationHandlers wires the delivery side. A nil roster writer turns
// roster tasks into no-ops.
func NewNotificationHandlers(db *database.DB, billing *BillingService, render *notify.Renderer, generator *docs.Generator,
	mailer domain.Mailer, staff domain.StaffNotifier, roster domain.RosterWriter, logger *zerolog.Logger,
) *NotificationHandlers {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &NotificationHandlers{
		db:      db,
		billing: billing,
		render:  render,
		docs:    generator,
		mailer:  mailer,
		staff:   staff,
		roster:  roster,
		logger:  logger,
	}
}

// Register installs every handler on the outbox worker.
func (h *NotificationHandlers) Register(w *worker.OutboxWorker) {
	w.Handle(worker.TaskEmailReceipt, h.EmailReceipt)
	w.Handle(worker.TaskEmailGeneric, h.EmailGeneric)
	w.Handle(worker.TaskStaffAlert, h.StaffAlert)
	w.Handle(worker.TaskSheetsRoster, h.SheetsRoster)
}

func decodeTask(task *models.OutboxTask, v interface{}) error {
	if err := json.Unmarshal([]byte(task.Payload), v); err != nil {
		return fmt.Errorf("%w: bad %s payload: %v", worker.ErrPermanent, task.TaskType, err)
	}
	return nil
}

// permanentIfMissing stops retries for records that were deleted meanwhile.
func permanentIfMissing(err error) error {
	if errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("%w: %w", worker.ErrPermanent, err)
	}
	return err
}

// EmailReceipt mails the payment receipt with the PDF attached.
func (h *NotificationHandlers) EmailReceipt(ctx context.Context, task *models.OutboxTask) error {
	var p receiptTask
	if err := decodeTask(task, &p); err != nil {
		return err
	}
	rc, err := h.billing.Receipt(ctx, p.PaymentID)
	if err != nil {
		return permanentIfMissing(err)
	}
	if rc.Client.Email == "" {
		return nil
	}

	pdf, err := h.docs.Receipt(rc)
	if err != nil {
		return fmt.Errorf("%w: %w", worker.ErrPermanent, err)
	}
	subject, body := h.render.ReceiptEmail(rc)
	msg := &models.EmailMessage{
		To:      []string{rc.Client.Email},
		Subject: subject,
		Body:    body,
		Attachments: []models.EmailAttachment{{
			Name:        fmt.Sprintf("recibo-%06d.pdf", rc.Payment.ID),
			ContentType: "application/pdf",
			Data:        pdf,
		}},
	}
	if err := h.mailer.Send(ctx, msg); err != nil {
		return err
	}
	h.logger.Info().Int64("payment_id", p.PaymentID).Str("to", rc.Client.Email).Msg("receipt sent")
	return nil
}

func (h *NotificationHandlers) EmailGeneric(ctx context.Context, task *models.OutboxTask) error {
	var p emailTask
	if err := decodeTask(task, &p); err != nil {
		return err
	}
	if p.To == "" {
		return fmt.Errorf("%w: email without recipient", worker.ErrPermanent)
	}
	return h.mailer.Send(ctx, &models.EmailMessage{To: []string{p.To}, Subject: p.Subject, Body: p.Body})
}

func (h *NotificationHandlers) StaffAlert(ctx context.Context, task *models.OutboxTask) error {
	var p alertTask
	if err := decodeTask(task, &p); err != nil {
		return err
	}
	if h.staff == nil || p.Text == "" {
		return nil
	}
	return h.staff.Notify(ctx, p.Text)
}

// SheetsRoster rewrites the trip's roster sheet with its current clients.
func (h *NotificationHandlers) SheetsRoster(ctx context.Context, task *models.OutboxTask) error {
	var p rosterTask
	if err := decodeTask(task, &p); err != nil {
		return err
	}
	if h.roster == nil {
		return nil
	}
	trip, err := h.db.GetTrip(ctx, p.TripID)
	if err != nil {
		return permanentIfMissing(err)
	}
	clients, err := h.db.ListClients(ctx, models.ClientFilter{TripID: trip.ID})
	if err != nil {
		return err
	}
	return h.roster.ReplaceRoster(ctx, trip, clients)
}
