// Package contact defines contact form submissions and their validation.
package contact

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

var (
	// ErrInvalidSubmission is returned when a required field is missing or the
	// sender address cannot be parsed.
	ErrInvalidSubmission = errors.New("invalid contact submission")
	// ErrNotFound is returned by repositories for unknown ids.
	ErrNotFound = errors.New("contact submission not found")
)

// Field length limits.
const (
	MaxNameLength    = 200
	MaxSubjectLength = 300
	MaxMessageLength = 10000
)

type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// Form is the payload posted by the contact page.
type Form struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// Normalize trims surrounding whitespace from every field.
func (f Form) Normalize() Form {
	return Form{
		Name:    strings.TrimSpace(f.Name),
		Email:   strings.TrimSpace(f.Email),
		Subject: strings.TrimSpace(f.Subject),
		Message: strings.TrimSpace(f.Message),
	}
}

// Validate requires every field and a parseable sender address.
func (f Form) Validate() error {
	var missing []string
	if f.Name == "" {
		missing = append(missing, "name")
	}
	if f.Email == "" {
		missing = append(missing, "email")
	}
	if f.Subject == "" {
		missing = append(missing, "subject")
	}
	if f.Message == "" {
		missing = append(missing, "message")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidSubmission, strings.Join(missing, ", "))
	}

	addr, err := mail.ParseAddress(f.Email)
	if err != nil || addr.Address != f.Email {
		return fmt.Errorf("%w: malformed email %q", ErrInvalidSubmission, f.Email)
	}
	if len(f.Name) > MaxNameLength || len(f.Subject) > MaxSubjectLength || len(f.Message) > MaxMessageLength {
		return fmt.Errorf("%w: field too long", ErrInvalidSubmission)
	}
	if strings.ContainsAny(f.Name+f.Subject, "\r\n") {
		return fmt.Errorf("%w: header fields must be a single line", ErrInvalidSubmission)
	}
	return nil
}

// Submission is a persisted contact form post and its delivery outcome.
type Submission struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Subject     string     `json:"subject"`
	Message     string     `json:"message"`
	Status      Status     `json:"status"`
	Error       string     `json:"error,omitempty"`
	RemoteAddr  string     `json:"remoteAddr,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty"`
}

// NewSubmission records a validated form as pending.
func NewSubmission(id string, f Form, remoteAddr string, now time.Time) *Submission {
	return &Submission{
		ID:         id,
		Name:       f.Name,
		Email:      f.Email,
		Subject:    f.Subject,
		Message:    f.Message,
		Status:     StatusPending,
		RemoteAddr: remoteAddr,
		CreatedAt:  now.UTC(),
	}
}

// MarkSent records successful delivery.
func (s *Submission) MarkSent(at time.Time) {
	at = at.UTC()
	s.Status = StatusSent
	s.Error = ""
	s.DeliveredAt = &at
}

// MarkFailed records a delivery failure.
func (s *Submission) MarkFailed(err error) {
	s.Status = StatusFailed
	if err != nil {
		s.Error = err.Error()
	}
}
