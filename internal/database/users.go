package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"viagens/internal/models"
)

const userColumns = `id, email, name, password_hash, role, active, last_login_at, created_at, updated_at`

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	ts := now()
	result, err := s.q.ExecContext(ctx,
		`INSERT INTO users (email, name, password_hash, role, active, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		normalizeEmail(user.Email), user.Name, user.PasswordHash, user.Role, user.Active, ts, ts)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	user.ID = id
	user.Email = normalizeEmail(user.Email)
	user.CreatedAt = ts
	user.UpdatedAt = ts
	return nil
}

// UpsertUser creates the user or refreshes name, role, password and active
// flag of an existing account with the same email.
func (s *Store) UpsertUser(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (email, name, password_hash, role, active, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)
              ON CONFLICT(email) DO UPDATE SET
                name = excluded.name,
                password_hash = excluded.password_hash,
                role = excluded.role,
                active = excluded.active,
                updated_at = excluded.updated_at`
	ts := now()
	if _, err := s.q.ExecContext(ctx, query,
		normalizeEmail(user.Email), user.Name, user.PasswordHash, user.Role, user.Active, ts, ts); err != nil {
		return fmt.Errorf("failed to create or update user: %w", err)
	}
	stored, err := s.GetUserByEmail(ctx, user.Email)
	if err != nil {
		return err
	}
	*user = *stored
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.queryUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, normalizeEmail(email))
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return s.queryUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (s *Store) queryUser(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	var user models.User
	err := s.q.QueryRowContext(ctx, query, args...).Scan(
		&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.Role, &user.Active,
		&user.LastLoginAt, &user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u := &models.User{}
		err := rows.Scan(
			&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.Active,
			&u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) UpdateUser(ctx context.Context, user *models.User) error {
	ts := now()
	res, err := s.q.ExecContext(ctx,
		`UPDATE users SET name = ?, password_hash = ?, role = ?, active = ?, updated_at = ? WHERE id = ?`,
		user.Name, user.PasswordHash, user.Role, user.Active, ts, user.ID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if err := affectedOne(res, ErrNotFound); err != nil {
		return err
	}
	user.UpdatedAt = ts
	return nil
}

func (s *Store) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := s.q.ExecContext(ctx, `UPDATE users SET last_login_at = ? WHERE id = ?`, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
