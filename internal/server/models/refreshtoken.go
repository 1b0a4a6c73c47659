package models

import "time"

// RefreshToken is a stored, revocable refresh token. Rotation deletes the
// row it was exchanged for.
type RefreshToken struct {
	Token     string
	UserID    string
	Expires   time.Time
	CreatedAt time.Time
}
