package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"viagens/internal/config"
	"viagens/internal/database"
	"viagens/internal/domain"
	"viagens/internal/events"
	"viagens/internal/models"

	"github.com/rs/zerolog"
)

// configStore is the part of the database the company profile lives in.
type configStore interface {
	GetCompanyConfig(ctx context.Context) (*models.CompanyConfig, error)
	SaveCompanyConfig(ctx context.Context, cfg *models.CompanyConfig) error
}

type CompanyService struct {
	notifier
	db      *database.DB
	configs configStore
	retries int
	delay   time.Duration
}

func NewCompanyService(db *database.DB, cfg config.CompanyConfig, eventBus domain.EventPublisher, logger *zerolog.Logger) *CompanyService {
	s := &CompanyService{
		notifier: newNotifier(eventBus, nil, logger),
		db:       db,
		retries:  cfg.FetchRetries,
		delay:    cfg.FetchRetryDelay,
	}
	if db != nil {
		s.configs = db.Store
	}
	if s.retries < 0 {
		s.retries = 0
	}
	return s
}

// Config returns the agency profile. Transient read failures are retried a
// fixed number of times with a fixed delay; a profile that was never saved
// comes back empty.
func (s *CompanyService) Config(ctx context.Context) (*models.CompanyConfig, error) {
	var lastErr error
	for attempt := 0; attempt <= s.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.delay):
			}
		}

		cfg, err := s.configs.GetCompanyConfig(ctx)
		if errors.Is(err, database.ErrNotFound) {
			return &models.CompanyConfig{}, nil
		}
		if err == nil {
			return cfg, nil
		}
		lastErr = err
		s.logger.Warn().Err(err).Int("attempt", attempt+1).Msg("company config fetch failed")
	}
	return nil, fmt.Errorf("failed to load company config after %d attempts: %w", s.retries+1, lastErr)
}

// configOrEmpty is used where the profile only decorates output.
func (s *CompanyService) configOrEmpty(ctx context.Context) *models.CompanyConfig {
	cfg, err := s.Config(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("using empty company config")
		return &models.CompanyConfig{}
	}
	return cfg
}

func (s *CompanyService) UpdateConfig(ctx context.Context, cfg *models.CompanyConfig) error {
	cfg.Name = strings.TrimSpace(cfg.Name)
	if cfg.Name == "" {
		return invalid("company name is required")
	}
	if err := s.configs.SaveCompanyConfig(ctx, cfg); err != nil {
		return err
	}
	s.publishEvent(ctx, events.EventConfigUpdated, events.Payload{Entity: "company_config", Detail: cfg.Name})
	return nil
}

// FinancialReport sums what clients owe and paid against company expenses,
// for one trip or for everything when tripID is nil.
func (s *CompanyService) FinancialReport(ctx context.Context, tripID *int64) (*models.FinancialReport, error) {
	filter := models.ClientFilter{}
	if tripID != nil {
		if _, err := s.db.GetTrip(ctx, *tripID); err != nil {
			return nil, err
		}
		filter.TripID = *tripID
	}
	clients, err := s.db.ListClients(ctx, filter)
	if err != nil {
		return nil, err
	}

	expenseStore := database.Records[models.CompanyExpense](s.db.Store)
	var expenses []*models.CompanyExpense
	if tripID != nil {
		expenses, err = expenseStore.Filter(ctx, "trip_id", *tripID)
	} else {
		expenses, err = expenseStore.List(ctx)
	}
	if err != nil {
		return nil, err
	}

	report := &models.FinancialReport{
		TripID:     tripID,
		ByCategory: map[string]int64{},
		ByStatus:   map[string]int{},
	}
	for _, c := range clients {
		report.ExpectedCents += c.PackageTotalCents
		report.ReceivedCents += c.PaidCents
		report.OutstandingCents += c.BalanceCents()
		report.ByStatus[string(c.PaymentStatus)]++
	}
	for _, e := range expenses {
		category := e.Category
		if category == "" {
			category = "outros"
		}
		report.ExpensesCents += e.AmountCents
		report.ByCategory[category] += e.AmountCents
	}
	report.ResultCents = report.ReceivedCents - report.ExpensesCents
	return report, nil
}
