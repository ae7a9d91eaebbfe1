// internal/model/post.go
//
// Post is a paging record owned by exactly one user.
// Responsibilities:
//   - Wire shape of a post (JSON field names match the web client).
//   - Status enum and its default.
//   - Field validation for create/update bodies, in a fixed order.
//   - Lenient body decoding: text fields accept JSON numbers (bed 12 → "12").

package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Status is the paging state of a post. Any value may replace any other.
type Status string

const (
	StatusPaged     Status = "Paged"
	StatusRePaged   Status = "Re-Paged"
	StatusCompleted Status = "Completed"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPaged, StatusRePaged, StatusCompleted:
		return true
	}
	return false
}

// Owner is the post's user reference. Username is only filled on list.
type Owner struct {
	ID       string `json:"_id"`
	Username string `json:"username,omitempty"`
}

// Post is a persisted paging record.
type Post struct {
	ID            string    `json:"_id"`
	BedNumber     string    `json:"bedNumber"`
	ForEdProvider string    `json:"forEdProvider"`
	ProviderName  string    `json:"providerName"`
	ProviderGroup string    `json:"providerGroup"`
	Status        Status    `json:"status"`
	Notes         string    `json:"notes,omitempty"`
	User          Owner     `json:"user"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// PostInput is the body accepted by create and update.
type PostInput struct {
	BedNumber     string `json:"bedNumber"`
	ForEdProvider string `json:"forEdProvider"`
	ProviderName  string `json:"providerName"`
	ProviderGroup string `json:"providerGroup"`
	Status        Status `json:"status"`
	Notes         string `json:"notes"`
}

// UnmarshalJSON decodes a body whose text fields may be strings or numbers.
func (in *PostInput) UnmarshalJSON(b []byte) error {
	var raw struct {
		BedNumber     text   `json:"bedNumber"`
		ForEdProvider text   `json:"forEdProvider"`
		ProviderName  text   `json:"providerName"`
		ProviderGroup text   `json:"providerGroup"`
		Status        Status `json:"status"`
		Notes         text   `json:"notes"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*in = PostInput{
		BedNumber:     string(raw.BedNumber),
		ForEdProvider: string(raw.ForEdProvider),
		ProviderName:  string(raw.ProviderName),
		ProviderGroup: string(raw.ProviderGroup),
		Status:        raw.Status,
		Notes:         string(raw.Notes),
	}
	return nil
}

// text is a JSON string that also accepts a bare number, kept as written.
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.New("expected a string or number")
	}
	*t = text(n.String())
	return nil
}

// Validate checks required fields in order and returns the first failure.
// On success a missing status is set to StatusPaged.
func (in *PostInput) Validate() error {
	required := []struct {
		value string
		msg   string
	}{
		{in.BedNumber, "Bed number is required"},
		{in.ForEdProvider, "ED Provider name is required"},
		{in.ProviderName, "Provider name is required"},
		{in.ProviderGroup, "Provider group is required"},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return &ValidationError{Message: f.msg}
		}
	}
	if in.Status == "" {
		in.Status = StatusPaged
	}
	if !in.Status.Valid() {
		return &ValidationError{Message: "Invalid status"}
	}
	return nil
}

// NewPost builds a post owned by ownerID from a validated input.
func NewPost(ownerID string, in PostInput) *Post {
	now := Now()
	p := &Post{
		ID:        NewID(),
		User:      Owner{ID: ownerID},
		CreatedAt: now,
		UpdatedAt: now,
	}
	p.Apply(in)
	return p
}

// Apply copies the mutable fields of in onto p.
func (p *Post) Apply(in PostInput) {
	p.BedNumber = in.BedNumber
	p.ForEdProvider = in.ForEdProvider
	p.ProviderName = in.ProviderName
	p.ProviderGroup = in.ProviderGroup
	p.Status = in.Status
	p.Notes = in.Notes
}
