package service

import (
	"context"
	"strings"

	"viagens/internal/database"
	"viagens/internal/domain"
	"viagens/internal/events"
	"viagens/internal/models"

	"github.com/rs/zerolog"
)

// RecordService is the back-office CRUD for one kind of JSON record
// (suppliers, staff, expenses, contacts, contract forms).
type RecordService[T any, PT interface {
	*T
	models.Record
}] struct {
	notifier
	db       *database.DB
	validate func(PT) error
}

func NewRecordService[T any, PT interface {
	*T
	models.Record
}](db *database.DB, validate func(PT) error, eventBus domain.EventPublisher, logger *zerolog.Logger) *RecordService[T, PT] {
	return &RecordService[T, PT]{
		notifier: newNotifier(eventBus, nil, logger),
		db:       db,
		validate: validate,
	}
}

func (s *RecordService[T, PT]) store() *database.RecordStore[T, PT] {
	return database.Records[T, PT](s.db.Store)
}

func (s *RecordService[T, PT]) Kind() string {
	return s.store().Kind()
}

// List returns every record, or those whose field equals value when field
// is set.
func (s *RecordService[T, PT]) List(ctx context.Context, field string, value interface{}) ([]PT, error) {
	if field == "" {
		return s.store().List(ctx)
	}
	recs, err := s.store().Filter(ctx, field, value)
	if err != nil {
		return nil, invalidErr(err)
	}
	return recs, nil
}

func (s *RecordService[T, PT]) Get(ctx context.Context, id int64) (PT, error) {
	return s.store().Get(ctx, id)
}

func (s *RecordService[T, PT]) Create(ctx context.Context, rec PT) error {
	if err := s.check(rec); err != nil {
		return err
	}
	if err := s.store().Create(ctx, rec); err != nil {
		return err
	}
	s.changed(ctx, rec.Meta().ID, "created", 1)
	return nil
}

// BulkCreate stores all records or none.
func (s *RecordService[T, PT]) BulkCreate(ctx context.Context, recs []PT) error {
	for _, rec := range recs {
		if err := s.check(rec); err != nil {
			return err
		}
	}
	err := s.db.InTx(ctx, func(tx *database.Store) error {
		return database.Records[T, PT](tx).BulkCreate(ctx, recs)
	})
	if err != nil {
		return err
	}
	s.changed(ctx, 0, "created", len(recs))
	return nil
}

// Update replaces the record with id; creation time is preserved.
func (s *RecordService[T, PT]) Update(ctx context.Context, id int64, rec PT) error {
	current, err := s.store().Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.check(rec); err != nil {
		return err
	}
	meta := rec.Meta()
	meta.ID = id
	meta.CreatedAt = current.Meta().CreatedAt
	if err := s.store().Update(ctx, rec); err != nil {
		return err
	}
	s.changed(ctx, id, "updated", 1)
	return nil
}

func (s *RecordService[T, PT]) Delete(ctx context.Context, id int64) error {
	if err := s.store().Delete(ctx, id); err != nil {
		return err
	}
	s.changed(ctx, id, "deleted", 1)
	return nil
}

func (s *RecordService[T, PT]) check(rec PT) error {
	if rec == nil {
		return invalid("empty %s", s.Kind())
	}
	if s.validate == nil {
		return nil
	}
	return s.validate(rec)
}

func (s *RecordService[T, PT]) changed(ctx context.Context, id int64, action string, count int) {
	s.publishEvent(ctx, events.EventRecordChanged, events.Payload{
		Entity: s.Kind(), EntityID: id, Count: count, Detail: action,
	})
}

func ValidateSupplier(s *models.Supplier) error {
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		return invalid("supplier name is required")
	}
	return nil
}

func ValidateStaffMember(m *models.StaffMember) error {
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		return invalid("staff member name is required")
	}
	if m.DailyRateCents < 0 {
		return invalid("daily rate must not be negative")
	}
	return nil
}

func ValidateExpense(e *models.CompanyExpense) error {
	e.Description = strings.TrimSpace(e.Description)
	e.Category = strings.ToLower(strings.TrimSpace(e.Category))
	if e.Description == "" {
		return invalid("expense description is required")
	}
	if e.AmountCents <= 0 {
		return invalid("expense amount must be positive")
	}
	if e.Date.IsZero() {
		return invalid("expense date is required")
	}
	return nil
}

func ValidateContact(c *models.Contact) error {
	switch c.Status {
	case "":
		c.Status = models.ContactNew
	case models.ContactNew, models.ContactAnswered, models.ContactArchived:
	default:
		return invalid("unknown contact status %q", c.Status)
	}
	if strings.TrimSpace(c.Name) == "" {
		return invalid("contact name is required")
	}
	return nil
}

// ValidateContractForm applies the public form rules to staff edits.
func ValidateContractForm(f *models.ContractForm) error {
	switch f.Status {
	case "":
		f.Status = models.ContractReceived
	case models.ContractReceived, models.ContractConverted, models.ContractRejected:
	default:
		return invalid("unknown contract form status %q", f.Status)
	}
	return validateForm(f)
}
