package model

import (
	"time"

	"github.com/google/uuid"
)

// Profile mirrors the account record owned by the identity provider.
// The chat binding fields are the only protocol state this service writes.
type Profile struct {
	ID                   uuid.UUID  `json:"id" db:"id"`
	Email                string     `json:"email" db:"email"`
	FullName             *string    `json:"full_name,omitempty" db:"full_name"`
	ChatUserID           *string    `json:"chat_user_id,omitempty" db:"chat_user_id"`
	ChatVerificationCode *string    `json:"-" db:"chat_verification_code"`
	ChatCodeExpiresAt    *time.Time `json:"-" db:"chat_code_expires_at"`
	CreatedAt            time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt            *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// ChatBound reports whether an external chat identity is associated
// with this profile.
func (p *Profile) ChatBound() bool {
	return p.ChatUserID != nil && *p.ChatUserID != ""
}

// DisplayName returns the full name when set, the email otherwise.
func (p *Profile) DisplayName() string {
	if p.FullName != nil && *p.FullName != "" {
		return *p.FullName
	}
	return p.Email
}
