package models

import "time"

// SessionRecord is the storable snapshot of an auth session.
type SessionRecord struct {
	ID            string    `json:"id"`
	Authenticated bool      `json:"authenticated"`
	Token         string    `json:"token,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
