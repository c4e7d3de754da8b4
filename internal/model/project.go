package model

import (
	"time"

	"github.com/google/uuid"
)

type Project struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	Description *string    `json:"description,omitempty" db:"description"`
	OwnerID     uuid.UUID  `json:"owner_id" db:"owner_id"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

type MemberStatus string

const (
	MemberStatusPending  MemberStatus = "pending"
	MemberStatusAccepted MemberStatus = "accepted"
	MemberStatusDeclined MemberStatus = "declined"
)

// ProjectMember is an invitation row. UserID stays nil until the invited
// email resolves to a registered profile.
type ProjectMember struct {
	ID        uuid.UUID    `json:"id" db:"id"`
	ProjectID uuid.UUID    `json:"project_id" db:"project_id"`
	UserID    *uuid.UUID   `json:"user_id,omitempty" db:"user_id"`
	Email     string       `json:"email" db:"email"`
	Status    MemberStatus `json:"status" db:"status"`
	InvitedBy uuid.UUID    `json:"invited_by" db:"invited_by"`
	InvitedAt time.Time    `json:"invited_at" db:"invited_at"`
	JoinedAt  *time.Time   `json:"joined_at,omitempty" db:"joined_at"`
}
