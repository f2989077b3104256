package service

import (
	"context"
	"testing"
	"time"

	"viagens/internal/auth"
	"viagens/internal/database"
	"viagens/internal/events"
	"viagens/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserService(t *testing.T) (*UserService, *testEnv) {
	t.Helper()
	env := newTestEnv(t)
	logger := zerolog.Nop()
	svc := NewUserService(env.db, auth.NewTokenIssuer("test-secret", time.Hour, "viagens"), env.bus, &logger)
	svc.now = func() time.Time { return testNow }
	return svc, env
}

func TestUserService_CreateAndAuthenticate(t *testing.T) {
	svc, env := newUserService(t)
	ctx := context.Background()

	user := &models.User{Email: " Maria@Agencia.com ", Name: "Maria", Role: models.RoleStaff, Active: true}
	require.NoError(t, svc.CreateUser(ctx, user, "segredo123"))
	assert.Equal(t, "maria@agencia.com", user.Email)
	assert.NotEmpty(t, user.PasswordHash)
	assert.Contains(t, env.events.seen(), events.EventUserCreated)

	err := svc.CreateUser(ctx, &models.User{Email: "maria@agencia.com", Role: models.RoleViewer}, "segredo123")
	assert.ErrorIs(t, err, database.ErrDuplicate)

	session, err := svc.Authenticate(ctx, "maria@agencia.com", "segredo123")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, user.ID, session.User.ID)
	require.NotNil(t, session.User.LastLoginAt)

	claims, err := svc.tokens.Parse(session.Token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleStaff, claims.Role)
	current, err := svc.Current(ctx, claims)
	require.NoError(t, err)
	assert.Equal(t, "Maria", current.Name)

	_, err = svc.Authenticate(ctx, "maria@agencia.com", "errada123")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "ninguem@agencia.com", "segredo123")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestUserService_CreateRejects(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		user     *models.User
		password string
		target   error
	}{
		{"BadEmail", &models.User{Email: "maria", Role: models.RoleStaff}, "segredo123", ErrValidation},
		{"BadRole", &models.User{Email: "a@b.com", Role: "owner"}, "segredo123", ErrValidation},
		{"WeakPassword", &models.User{Email: "a@b.com", Role: models.RoleStaff}, "curta", auth.ErrWeakPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, svc.CreateUser(ctx, tt.user, tt.password), tt.target)
		})
	}
}

func TestUserService_UpdateUserAndDeactivate(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	user := &models.User{Email: "joao@agencia.com", Name: "João", Role: models.RoleViewer, Active: true}
	require.NoError(t, svc.CreateUser(ctx, user, "segredo123"))

	updated, err := svc.UpdateUser(ctx, user.ID, "João Pedro", models.RoleAdmin, true, "novasenha1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, updated.Role)

	_, err = svc.Authenticate(ctx, "joao@agencia.com", "segredo123")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	session, err := svc.Authenticate(ctx, "joao@agencia.com", "novasenha1")
	require.NoError(t, err)

	_, err = svc.UpdateUser(ctx, user.ID, "João Pedro", models.RoleAdmin, false, "")
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, "joao@agencia.com", "novasenha1")
	assert.ErrorIs(t, err, ErrInactiveUser)

	claims, err := svc.tokens.Parse(session.Token)
	require.NoError(t, err)
	_, err = svc.Current(ctx, claims)
	assert.ErrorIs(t, err, ErrInactiveUser)

	_, err = svc.UpdateUser(ctx, user.ID, "x", "owner", true, "")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.UpdateUser(ctx, 9999, "x", models.RoleStaff, true, "")
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestUserService_SeedUsers(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	seed := []models.User{
		{Email: "admin@agencia.com", Name: "Admin", Password: "admin12345", Role: models.RoleAdmin, Active: true},
		{Email: "bad", Password: "admin12345", Role: models.RoleAdmin, Active: true},
		{Email: "curta@agencia.com", Password: "123", Role: models.RoleStaff, Active: true},
	}
	n, err := svc.SeedUsers(ctx, seed)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// seeding again refreshes instead of duplicating
	seed[0].Role = models.RoleStaff
	n, err = svc.SeedUsers(ctx, seed[:1])
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	users, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, models.RoleStaff, users[0].Role)

	_, err = svc.Authenticate(ctx, "admin@agencia.com", "admin12345")
	require.NoError(t, err)
}
