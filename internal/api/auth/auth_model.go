package auth

import "time"

// User is the stored credential record. PasswordHash never leaves this
// package; handlers only ever see api.PublicUser.
type User struct {
	ID           int64
	Username     string
	Email        *string
	PasswordHash string
	CreatedAt    time.Time
}
