package identity

import (
	"errors"
	"time"
)

var (
	ErrUserExists         = errors.New("user already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid phone number or password")
	ErrInvalidPhone       = errors.New("phone number must contain 6 to 15 digits")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
)

// User represents a registered wallet owner.
type User struct {
	ID           string
	Phone        string
	PasswordHash []byte
	TokenVersion int
	CreatedAt    time.Time
}

// Credentials request structure.
type Credentials struct {
	Phone    string
	Password string
}
