package model

import (
	"strings"
	"time"
)

// Location is the site a user works at.
type Location string

const (
	LocationMain1    Location = "Main 1"
	LocationMain2    Location = "Main 2"
	LocationFastCare Location = "Fast Care"
	LocationAnnex    Location = "Annex"
)

// Valid reports whether l is empty or one of the known sites.
func (l Location) Valid() bool {
	switch l {
	case "", LocationMain1, LocationMain2, LocationFastCare, LocationAnnex:
		return true
	}
	return false
}

// User is an account. PasswordHash is never serialized.
type User struct {
	ID           string    `json:"_id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"firstName,omitempty"`
	LastName     string    `json:"lastName,omitempty"`
	Location     Location  `json:"location,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// RegisterInput is the body accepted by registration.
type RegisterInput struct {
	Username  string   `json:"username"`
	Password  string   `json:"password"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Location  Location `json:"location"`
}

// Validate normalizes the username and checks required fields and location.
func (in *RegisterInput) Validate() error {
	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" || in.Password == "" {
		return &ValidationError{Message: "Missing username and/or password"}
	}
	if !in.Location.Valid() {
		return &ValidationError{Message: "Invalid location"}
	}
	return nil
}
