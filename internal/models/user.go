package models

import (
	"time"
)

type User struct {
	ID            int64
	Username      string
	Email         string
	PasswordHash  string
	Level         Level
	Banned        bool
	FirstName     string
	LastName      string
	LicenseNumber string // ciphertext at rest, plaintext only after decryption for display
	StreetAddress string
	City          string
	State         string
	Zip           string
	Phone         string
	CreatedAt     time.Time
	ModifiedAt    time.Time
	LastLogin     *time.Time
}

// UserInput carries the submitted fields of the create and update forms.
// Password is empty on update when the password should be left unchanged.
type UserInput struct {
	Username      string
	Email         string
	Password      string
	Level         Level
	Banned        bool
	FirstName     string
	LastName      string
	LicenseNumber string
	StreetAddress string
	City          string
	State         string
	Zip           string
	Phone         string
}
