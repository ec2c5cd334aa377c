package models

import "time"

// User is an account on the reference sync server. The server keeps only a
// hash of the client-derived auth key, never the password.
type User struct {
	CreatedAt   time.Time
	LastLogin   *time.Time // nil until the first login
	ID          string
	Username    string
	AuthKeyHash string // hex SHA-256
	PublicSalt  string // base64, returned to the client before login
}
