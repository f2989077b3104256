package models

import "time"

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleStaff  Role = "staff"
	RoleViewer Role = "viewer"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleViewer:
		return true
	}
	return false
}

type User struct {
	ID           int64      `json:"id" yaml:"-"`
	Email        string     `json:"email" yaml:"email"`
	Name         string     `json:"name" yaml:"name"`
	PasswordHash string     `json:"-" yaml:"-"`
	Password     string     `json:"-" yaml:"password"`
	Role         Role       `json:"role" yaml:"role"`
	Active       bool       `json:"active" yaml:"active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty" yaml:"-"`
	CreatedAt    time.Time  `json:"created_at" yaml:"-"`
	UpdatedAt    time.Time  `json:"updated_at" yaml:"-"`
}
