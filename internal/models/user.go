package models

import "time"

// User represents a registered account. PasswordHash holds the encoded PBKDF2
// digest; the plaintext credential is never persisted or returned.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}
