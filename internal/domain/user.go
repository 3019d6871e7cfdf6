package domain

import "time"

// User is a registered account. PasswordHash never leaves the process;
// API responses marshal explicit payload structs instead of this type.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}
