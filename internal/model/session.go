package model

import (
	"time"
)

// Session maps an opaque token to a user with an expiry. A request carrying a
// token whose row is missing or expired runs with an anonymous context.
type Session struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	Token     string    `json:"-" gorm:"type:varchar(64);uniqueIndex;not null"`
	UserID    uint      `json:"user_id" gorm:"index;not null"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Expired reports whether the session is past its expiry
func (s *Session) Expired() bool {
	return time.Now().After(s.ExpiresAt)
}
