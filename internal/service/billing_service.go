package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"viagens/internal/billing"
	"viagens/internal/config"
	"viagens/internal/database"
	"viagens/internal/docs"
	"viagens/internal/domain"
	"viagens/internal/events"
	"viagens/internal/metrics"
	"viagens/internal/models"
	"viagens/internal/notify"
	"viagens/internal/worker"

	"github.com/rs/zerolog"
)

// InstallmentRequest asks for a client's open balance, or TotalCents when
// set, to be split into Count monthly installments.
type InstallmentRequest struct {
	ClientID   int64       `json:"-"`
	TotalCents int64       `json:"total_cents,omitempty"`
	Count      int         `json:"count"`
	FirstDue   models.Date `json:"first_due"`
	Method     string      `json:"method,omitempty"`
}

type BillingService struct {
	notifier
	db            *database.DB
	company       *CompanyService
	render        *notify.Renderer
	docs          *docs.Generator
	defaultMethod string
	now           func() time.Time
}

func NewBillingService(db *database.DB, cfg config.BillingConfig, company *CompanyService, render *notify.Renderer, generator *docs.Generator,
	eventBus domain.EventPublisher, outbox domain.OutboxDispatcher, logger *zerolog.Logger,
) *BillingService {
	method := cfg.DefaultMethod
	if method == "" {
		method = "pix"
	}
	return &BillingService{
		notifier:      newNotifier(eventBus, outbox, logger),
		db:            db,
		company:       company,
		render:        render,
		docs:          generator,
		defaultMethod: method,
		now:           time.Now,
	}
}

// GenerateInstallments replaces the client's unpaid installments with a new
// plan. Paid installments are kept and the new ones are numbered after them.
// The plan total defaults to the open balance and may not exceed it.
func (s *BillingService) GenerateInstallments(ctx context.Context, req InstallmentRequest) ([]*models.Installment, error) {
	if req.Method == "" {
		req.Method = s.defaultMethod
	}

	var items []*models.Installment
	err := s.db.InTx(ctx, func(tx *database.Store) error {
		client, err := tx.GetClient(ctx, req.ClientID)
		if err != nil {
			return err
		}
		existing, err := tx.ListInstallments(ctx, client.ID)
		if err != nil {
			return err
		}
		settled := 0
		for _, it := range existing {
			if it.Status == models.InstallmentPaid && it.Sequence > settled {
				settled = it.Sequence
			}
		}

		balance := client.BalanceCents()
		total := req.TotalCents
		if total == 0 {
			total = balance
		}
		if total > balance {
			return invalid("installment total %d exceeds the open balance %d", total, balance)
		}
		items, err = billing.Generate(billing.Plan{
			ClientID:   client.ID,
			TotalCents: total,
			Count:      req.Count,
			FirstDue:   req.FirstDue,
			Method:     req.Method,
			Settled:    settled,
		})
		if err != nil {
			return invalidErr(err)
		}
		if _, err := tx.DeleteOpenInstallments(ctx, client.ID); err != nil {
			return err
		}
		return tx.CreateInstallments(ctx, items)
	})
	if err != nil {
		return nil, err
	}

	metrics.AddInstallmentsGenerated(len(items))
	s.logger.Info().Int64("client_id", req.ClientID).Int("count", len(items)).Msg("installments generated")
	s.publishEvent(ctx, events.EventInstallmentsGenerated, events.Payload{
		Entity: "client", EntityID: req.ClientID, ClientID: req.ClientID,
		AmountCents: billing.Sum(items), Count: len(items),
	})
	return items, nil
}

// RecordPayment stores a payment, settles the linked installment, rolls the
// client's payment status up and queues the receipt email and staff alert,
// all in one transaction. Delivery happens after commit; a failed email
// never undoes the payment.
func (s *BillingService) RecordPayment(ctx context.Context, p *models.Payment) error {
	p.Method = strings.TrimSpace(p.Method)
	if p.Method == "" {
		p.Method = s.defaultMethod
	}
	if p.PaidAt.IsZero() {
		p.PaidAt = s.now()
	}
	if p.RecordedBy == "" {
		p.RecordedBy = ActorFrom(ctx)
	}

	var (
		client *models.Client
		tasks  []*models.OutboxTask
	)
	err := s.db.InTx(ctx, func(tx *database.Store) error {
		var err error
		client, err = tx.GetClient(ctx, p.ClientID)
		if err != nil {
			return err
		}

		if p.InstallmentID != nil {
			inst, err := tx.GetInstallment(ctx, *p.InstallmentID)
			if err != nil {
				return err
			}
			if inst.ClientID != client.ID {
				return invalid("installment %d belongs to another client", inst.ID)
			}
			if p.AmountCents == 0 {
				p.AmountCents = inst.AmountCents
			}
			if p.AmountCents != inst.AmountCents {
				return invalid("payment of %d does not settle installment %d of %d", p.AmountCents, inst.ID, inst.AmountCents)
			}
			if err := tx.MarkInstallmentPaid(ctx, inst.ID, p.Method, p.PaidAt); err != nil {
				return err
			}
		}
		if p.AmountCents <= 0 {
			return invalidErr(billing.ErrInvalidAmount)
		}

		if err := tx.CreatePayment(ctx, p); err != nil {
			return err
		}
		paid, err := tx.SumPayments(ctx, client.ID)
		if err != nil {
			return err
		}
		client.PaidCents = paid
		client.PaymentStatus = billing.Rollup(paid, client.PackageTotalCents)
		if err := tx.SetClientPayment(ctx, client.ID, paid, client.PaymentStatus); err != nil {
			return err
		}

		if client.Email != "" {
			task, err := tx.EnqueueOutbox(ctx, worker.TaskEmailReceipt, p.ID, receiptTask{PaymentID: p.ID})
			if err != nil {
				return err
			}
			tasks = append(tasks, task)
		}
		alert, err := tx.EnqueueOutbox(ctx, worker.TaskStaffAlert, p.ID, alertTask{Text: s.render.PaymentAlert(client, p)})
		if err != nil {
			return err
		}
		tasks = append(tasks, alert)
		return nil
	})
	if err != nil {
		return err
	}

	s.dispatch(ctx, tasks...)
	metrics.IncPayment(p.Method, p.AmountCents)
	s.logger.Info().Int64("payment_id", p.ID).Int64("client_id", client.ID).Int64("amount", p.AmountCents).
		Str("status", string(client.PaymentStatus)).Msg("payment recorded")
	s.publishEvent(ctx, events.EventPaymentRecorded, events.Payload{
		Entity: "payment", EntityID: p.ID, TripID: client.TripID, ClientID: client.ID,
		AmountCents: p.AmountCents, Detail: string(client.PaymentStatus),
	})
	return nil
}

// PayInstallment records the full amount of one installment.
func (s *BillingService) PayInstallment(ctx context.Context, installmentID int64, method string, paidAt time.Time) (*models.Payment, error) {
	inst, err := s.db.GetInstallment(ctx, installmentID)
	if err != nil {
		return nil, err
	}
	if method == "" {
		method = inst.Method
	}
	p := &models.Payment{
		ClientID:      inst.ClientID,
		InstallmentID: &inst.ID,
		AmountCents:   inst.AmountCents,
		Method:        method,
		PaidAt:        paidAt,
	}
	if err := s.RecordPayment(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// MarkOverdue flags pending installments due before today and queues a
// reminder to each affected client that has an email address.
func (s *BillingService) MarkOverdue(ctx context.Context, now time.Time) (int, error) {
	ids, err := s.db.MarkOverdue(ctx, models.DateOf(now))
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	metrics.AddInstallmentsOverdue(len(ids))

	company := s.company.configOrEmpty(ctx)
	var tasks []*models.OutboxTask
	for _, id := range ids {
		task, err := s.queueReminder(ctx, company, id)
		if err != nil {
			s.logger.Error().Err(err).Int64("installment_id", id).Msg("reminder enqueue error")
			continue
		}
		if task != nil {
			tasks = append(tasks, task)
		}
	}
	s.dispatch(ctx, tasks...)

	s.publishEvent(ctx, events.EventInstallmentsOverdue, events.Payload{Entity: "installment", Count: len(ids)})
	return len(ids), nil
}

func (s *BillingService) queueReminder(ctx context.Context, company *models.CompanyConfig, installmentID int64) (*models.OutboxTask, error) {
	inst, err := s.db.GetInstallment(ctx, installmentID)
	if err != nil {
		return nil, err
	}
	client, err := s.db.GetClient(ctx, inst.ClientID)
	if err != nil {
		return nil, err
	}
	if client.Email == "" {
		return nil, nil
	}
	trip, err := s.db.GetTrip(ctx, client.TripID)
	if err != nil {
		return nil, err
	}
	subject, body := s.render.ReminderEmail(company, trip, client, inst)
	return s.db.EnqueueOutbox(ctx, worker.TaskEmailGeneric, inst.ID, emailTask{To: client.Email, Subject: subject, Body: body})
}

func (s *BillingService) ListInstallments(ctx context.Context, clientID int64) ([]*models.Installment, error) {
	if _, err := s.db.GetClient(ctx, clientID); err != nil {
		return nil, err
	}
	return s.db.ListInstallments(ctx, clientID)
}

// Overdue lists overdue installments, optionally for one trip.
func (s *BillingService) Overdue(ctx context.Context, tripID int64) ([]*models.Installment, error) {
	return s.db.ListInstallmentsByStatus(ctx, models.InstallmentOverdue, tripID)
}

func (s *BillingService) ListPayments(ctx context.Context, clientID int64) ([]*models.Payment, error) {
	if _, err := s.db.GetClient(ctx, clientID); err != nil {
		return nil, err
	}
	return s.db.ListPayments(ctx, clientID)
}

func (s *BillingService) Statement(ctx context.Context, clientID int64) (*models.Statement, error) {
	client, err := s.db.GetClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	installments, err := s.db.ListInstallments(ctx, clientID)
	if err != nil {
		return nil, err
	}
	payments, err := s.db.ListPayments(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return &models.Statement{
		Client:       client,
		Installments: installments,
		Payments:     payments,
		BalanceCents: client.BalanceCents(),
	}, nil
}

// Receipt gathers everything printed on the receipt of a payment.
func (s *BillingService) Receipt(ctx context.Context, paymentID int64) (notify.Receipt, error) {
	p, err := s.db.GetPayment(ctx, paymentID)
	if err != nil {
		return notify.Receipt{}, err
	}
	client, err := s.db.GetClient(ctx, p.ClientID)
	if err != nil {
		return notify.Receipt{}, err
	}
	trip, err := s.db.GetTrip(ctx, client.TripID)
	if err != nil {
		return notify.Receipt{}, err
	}
	rc := notify.Receipt{Company: s.company.configOrEmpty(ctx), Trip: trip, Client: client, Payment: p}
	if p.InstallmentID != nil {
		inst, err := s.db.GetInstallment(ctx, *p.InstallmentID)
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			return notify.Receipt{}, err
		}
		rc.Installment = inst
	}
	return rc, nil
}

func (s *BillingService) ReceiptPDF(ctx context.Context, paymentID int64) ([]byte, error) {
	rc, err := s.Receipt(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	return s.docs.Receipt(rc)
}

// BookletPDF renders the installment booklet of a client.
func (s *BillingService) BookletPDF(ctx context.Context, clientID int64) ([]byte, error) {
	client, err := s.db.GetClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	trip, err := s.db.GetTrip(ctx, client.TripID)
	if err != nil {
		return nil, err
	}
	items, err := s.db.ListInstallments(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return s.docs.Booklet(s.company.configOrEmpty(ctx), trip, client, items)
}

// VerifyReceipt checks a verification code printed on a receipt.
func (s *BillingService) VerifyReceipt(ctx context.Context, paymentID int64, code string) (bool, error) {
	p, err := s.db.GetPayment(ctx, paymentID)
	if errors.Is(err, database.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return s.docs.Verify(p, code), nil
}
