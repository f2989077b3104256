package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"viagens/internal/models"
)

// GetCompanyConfig returns the agency profile; ErrNotFound until one is saved.
func (s *Store) GetCompanyConfig(ctx context.Context) (*models.CompanyConfig, error) {
	var data string
	err := s.q.QueryRowContext(ctx, `SELECT data FROM company_config WHERE id = 1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get company config: %w", err)
	}

	var cfg models.CompanyConfig
	if err := json.Unmarshal([]byte(data), &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode company config: %w", err)
	}
	return &cfg, nil
}

func (s *Store) SaveCompanyConfig(ctx context.Context, cfg *models.CompanyConfig) error {
	cfg.UpdatedAt = now()
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode company config: %w", err)
	}
	_, err = s.q.ExecContext(ctx,
		`INSERT INTO company_config (id, data, updated_at) VALUES (1, ?, ?)
         ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		string(data), cfg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save company config: %w", err)
	}
	return nil
}
