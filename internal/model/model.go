// Package model holds the User and Post entities shared by the store and HTTP layers.
package model

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ValidationError is a client input problem. Message is safe to return verbatim.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// NewID returns a 24-char hex ObjectID. IDs sort in creation order within a process.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// ValidID reports whether id has the shape of an identifier produced by NewID.
func ValidID(id string) bool {
	return primitive.IsValidObjectID(id)
}

// Now is the store timestamp: UTC, millisecond precision so every backend round-trips it.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
