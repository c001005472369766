package models

import (
	"time"

	"github.com/google/uuid"
)

// Team roles.
const (
	TeamRoleOwner  = "owner"
	TeamRoleMember = "member"
)

// Team groups the users whose availability is aggregated together.
type Team struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TeamMember is a roster entry.
type TeamMember struct {
	User
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
	Online   bool      `json:"online"`
}
