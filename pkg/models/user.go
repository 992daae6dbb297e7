package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// IsAdmin is the only capability check in the system; callers must not
// branch on Role directly.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Role      Role      `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// UserProfile is an ephemeral taste vector aggregated from a user's recent
// borrows. It is rebuilt on every request and never persisted.
type UserProfile struct {
	Vector        []float64 `json:"-"`
	TopCategories []string  `json:"top_categories"`
	SourceCount   int       `json:"source_count"`
}

// HasCategory reports whether cat is among the profile's top categories.
func (p *UserProfile) HasCategory(cat string) bool {
	for _, c := range p.TopCategories {
		if c == cat {
			return true
		}
	}
	return false
}
