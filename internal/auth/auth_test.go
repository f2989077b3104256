package auth

import (
	"testing"
	"time"

	"viagens/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapabilities(t *testing.T) {
	assert.True(t, Can(models.RoleViewer, CapTripsRead))
	assert.False(t, Can(models.RoleViewer, CapTripsWrite))
	assert.False(t, Can(models.RoleViewer, CapFinanceRead))

	assert.True(t, Can(models.RoleStaff, CapBillingWrite))
	assert.True(t, Can(models.RoleStaff, CapExport))
	assert.False(t, Can(models.RoleStaff, CapUsersManage))
	assert.False(t, Can(models.RoleStaff, CapBackup))

	assert.True(t, Can(models.RoleAdmin, CapUsersManage))
	assert.True(t, Can(models.RoleAdmin, CapAudit))

	assert.False(t, Can(models.Role("owner"), CapTripsRead))
	assert.Empty(t, Capabilities(models.Role("")))
	assert.Len(t, Capabilities(models.RoleAdmin), len(admin))
	assert.Equal(t, readOnly, Capabilities(models.RoleViewer))
}

func TestPasswords(t *testing.T) {
	_, err := HashPassword("short")
	assert.ErrorIs(t, err, ErrWeakPassword)

	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	assert.NoError(t, CheckPassword(hash, "correct horse"))
	assert.ErrorIs(t, CheckPassword(hash, "wrong horse"), ErrInvalidCredentials)
	assert.ErrorIs(t, CheckPassword("", "anything"), ErrInvalidCredentials)
}

func TestTokenIssuer(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	issuer := NewTokenIssuer("secret", time.Hour, "viagens")
	issuer.now = func() time.Time { return now }

	user := &models.User{ID: 42, Email: "ana@example.com", Role: models.RoleStaff}
	token, expires, err := issuer.Issue(user)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), expires)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID())
	assert.Equal(t, models.RoleStaff, claims.Role)
	assert.Equal(t, "ana@example.com", claims.Email)

	t.Run("Expired", func(t *testing.T) {
		later := NewTokenIssuer("secret", time.Hour, "viagens")
		later.now = func() time.Time { return now.Add(2 * time.Hour) }
		_, err := later.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		other := NewTokenIssuer("other", time.Hour, "viagens")
		other.now = issuer.now
		_, err := other.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("WrongIssuer", func(t *testing.T) {
		other := NewTokenIssuer("secret", time.Hour, "someone-else")
		other.now = issuer.now
		_, err := other.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("NoneAlgorithm", func(t *testing.T) {
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "1", "iss": "viagens"}).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = issuer.Parse(unsigned)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := issuer.Parse("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
