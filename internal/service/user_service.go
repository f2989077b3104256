package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"viagens/internal/auth"
	"viagens/internal/database"
	"viagens/internal/domain"
	"viagens/internal/events"
	"viagens/internal/models"

	"github.com/rs/zerolog"
)

type UserService struct {
	notifier
	db     *database.DB
	tokens *auth.TokenIssuer
	now    func() time.Time
}

func NewUserService(db *database.DB, tokens *auth.TokenIssuer, eventBus domain.EventPublisher, logger *zerolog.Logger) *UserService {
	return &UserService{
		notifier: newNotifier(eventBus, nil, logger),
		db:       db,
		tokens:   tokens,
		now:      time.Now,
	}
}

// Session is the outcome of a successful login.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// Authenticate checks email and password and issues an access token. Unknown
// emails and wrong passwords fail the same way.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.db.GetUserByEmail(ctx, email)
	if errors.Is(err, database.ErrNotFound) {
		return nil, auth.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		return nil, err
	}
	if !user.Active {
		return nil, ErrInactiveUser
	}

	token, expires, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	at := s.now()
	if err := s.db.UpdateLastLogin(ctx, user.ID, at); err != nil {
		s.logger.Error().Err(err).Int64("user_id", user.ID).Msg("update last login error")
	} else {
		user.LastLoginAt = &at
	}
	return &Session{Token: token, ExpiresAt: expires, User: user}, nil
}

// Current resolves the user behind verified token claims.
func (s *UserService) Current(ctx context.Context, claims *auth.Claims) (*models.User, error) {
	user, err := s.db.GetUserByID(ctx, claims.UserID())
	if err != nil {
		return nil, err
	}
	if !user.Active {
		return nil, ErrInactiveUser
	}
	return user, nil
}

func validateUser(u *models.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.Name = strings.TrimSpace(u.Name)
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return invalid("invalid email %q", u.Email)
	}
	if !u.Role.Valid() {
		return invalid("unknown role %q", u.Role)
	}
	return nil
}

func (s *UserService) CreateUser(ctx context.Context, user *models.User, password string) error {
	if err := validateUser(user); err != nil {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return invalidErr(err)
	}
	user.PasswordHash = hash
	if err := s.db.CreateUser(ctx, user); err != nil {
		return err
	}
	s.publishEvent(ctx, events.EventUserCreated, events.Payload{Entity: "user", EntityID: user.ID, Detail: string(user.Role)})
	return nil
}

// UpdateUser changes name, role and active flag; a non-empty password
// replaces the current one.
func (s *UserService) UpdateUser(ctx context.Context, id int64, name string, role models.Role, active bool, password string) (*models.User, error) {
	user, err := s.db.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Name = strings.TrimSpace(name)
	user.Role = role
	user.Active = active
	if err := validateUser(user); err != nil {
		return nil, err
	}
	if password != "" {
		hash, err := auth.HashPassword(password)
		if err != nil {
			return nil, invalidErr(err)
		}
		user.PasswordHash = hash
	}
	if err := s.db.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]*models.User, error) {
	return s.db.ListUsers(ctx)
}

// SeedUsers makes sure the accounts from the users file exist with the
// listed role and password. Invalid entries are logged and skipped.
func (s *UserService) SeedUsers(ctx context.Context, users []models.User) (int, error) {
	seeded := 0
	for i := range users {
		u := users[i]
		if err := validateUser(&u); err != nil {
			s.logger.Warn().Err(err).Str("email", u.Email).Msg("skipping seed user")
			continue
		}
		hash, err := auth.HashPassword(u.Password)
		if err != nil {
			s.logger.Warn().Err(err).Str("email", u.Email).Msg("skipping seed user")
			continue
		}
		u.PasswordHash = hash
		u.Password = ""
		if err := s.db.UpsertUser(ctx, &u); err != nil {
			return seeded, err
		}
		seeded++
	}
	s.logger.Info().Int("users", seeded).Msg("users seeded")
	return seeded, nil
}
