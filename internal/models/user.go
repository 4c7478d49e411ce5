package models

import "time"

// User is the authenticated operator identity. Credential issuance lives in a
// separate system; this core only reads identities and their daily limits.
type User struct {
	ID                string    `json:"id"`
	Email             string    `json:"email"`
	Name              string    `json:"name"`
	Role              string    `json:"role"`
	IsActive          bool      `json:"is_active"`
	MaxSearchesPerDay int       `json:"max_searches_per_day"`
	MaxExportsPerDay  int       `json:"max_exports_per_day"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
