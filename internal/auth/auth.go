package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"viagens/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrWeakPassword       = errors.New("password must have at least 8 characters")
)

const MinPasswordLength = 8

// Capability is a permission checked by the HTTP layer.
type Capability string

const (
	CapTripsRead     Capability = "trips:read"
	CapTripsWrite    Capability = "trips:write"
	CapClientsRead   Capability = "clients:read"
	CapClientsWrite  Capability = "clients:write"
	CapBillingRead   Capability = "billing:read"
	CapBillingWrite  Capability = "billing:write"
	CapRecordsRead   Capability = "records:read"
	CapRecordsWrite  Capability = "records:write"
	CapFinanceRead   Capability = "finance:read"
	CapCompanyWrite  Capability = "company:write"
	CapDocumentsRead Capability = "documents:read"
	CapDocumentsEdit Capability = "documents:write"
	CapExport        Capability = "export"
	CapBackup        Capability = "backup"
	CapAudit         Capability = "audit"
	CapUsersManage   Capability = "users:manage"
)

var readOnly = []Capability{
	CapTripsRead, CapClientsRead, CapBillingRead, CapRecordsRead, CapDocumentsRead,
}

var staff = append(append([]Capability{}, readOnly...),
	CapTripsWrite, CapClientsWrite, CapBillingWrite, CapRecordsWrite, CapDocumentsEdit, CapExport, CapFinanceRead,
)

var admin = append(append([]Capability{}, staff...),
	CapCompanyWrite, CapBackup, CapAudit, CapUsersManage,
)

var roleCapabilities = map[models.Role]map[Capability]bool{
	models.RoleViewer: set(readOnly),
	models.RoleStaff:  set(staff),
	models.RoleAdmin:  set(admin),
}

func set(caps []Capability) map[Capability]bool {
	m := make(map[Capability]bool, len(caps))
	for _, c := range caps {
		m[c] = true
	}
	return m
}

// Can reports whether role grants capability. Unknown roles grant nothing.
func Can(role models.Role, c Capability) bool {
	return roleCapabilities[role][c]
}

// Capabilities lists what role grants, in a stable order.
func Capabilities(role models.Role) []Capability {
	var out []Capability
	for _, c := range admin {
		if Can(role, c) {
			out = append(out, c)
		}
	}
	return out
}

func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) error {
	if hash == "" {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// Claims carried by access tokens.
type Claims struct {
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
	jwt.RegisteredClaims
}

// UserID returns the numeric subject.
func (c *Claims) UserID() int64 {
	id, _ := strconv.ParseInt(c.Subject, 10, 64)
	return id
}

// TokenIssuer signs and verifies HS256 access tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration, issuer string) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, issuer: issuer, now: time.Now}
}

func (t *TokenIssuer) Issue(user *models.User) (string, time.Time, error) {
	now := t.now()
	expires := now.Add(t.ttl)
	claims := &Claims{
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expires, nil
}

func (t *TokenIssuer) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UserID() == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
