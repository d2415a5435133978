package domain

import (
	"strings"
	"time"
)

// UserRole enumerates operator roles on both sides of the house.
type UserRole string

const (
	RoleFedExAdmin UserRole = "fedex_admin"
	RoleFedExAgent UserRole = "fedex_agent"
	RoleDCAAdmin   UserRole = "dca_admin"
	RoleDCAAgent   UserRole = "dca_agent"
)

// IsFedEx reports whether the role belongs to the case-owning organization.
func (r UserRole) IsFedEx() bool {
	return r == RoleFedExAdmin || r == RoleFedExAgent
}

// IsDCA reports whether the role belongs to the agency side. The dca-
// prefix convention matters: WRITE_OFF closures are forbidden for it.
func (r UserRole) IsDCA() bool {
	return strings.HasPrefix(string(r), "dca")
}

// User is an authenticated operator profile.
type User struct {
	ID           string
	FullName     string
	Email        string
	PasswordHash string
	Role         UserRole
	DCAID        *string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
