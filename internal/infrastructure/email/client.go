// Package email provides the mail transports used to relay contact form posts.
package email

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/resendlabs/resend-go"
)

// ErrNotConfigured is returned when a transport lacks credentials.
var ErrNotConfigured = errors.New("email transport not configured")

// Message is a single outgoing email.
type Message struct {
	From    string
	To      []string
	ReplyTo string
	Subject string
	Text    string
	HTML    string
}

// Mailer defines a mail transport, allowing for fake implementations in tests.
type Mailer interface {
	// Verify checks credentials and reachability without sending.
	Verify(ctx context.Context) error
	Send(ctx context.Context, msg Message) error
	// Sender is the account address messages are sent from.
	Sender() string
}

// Settings selects and configures a transport.
type Settings struct {
	Transport          string // "smtp" or "resend"
	User               string
	Password           string
	Host               string
	Port               int
	InsecureSkipVerify bool
	ResendAPIKey       string
}

// NewMailer builds the configured transport. It returns ErrNotConfigured when
// the selected transport is missing credentials.
func NewMailer(s Settings) (Mailer, error) {
	switch strings.ToLower(s.Transport) {
	case "", "smtp":
		if s.User == "" || s.Password == "" {
			return nil, fmt.Errorf("smtp: %w", ErrNotConfigured)
		}
		return NewSMTPMailer(SMTPConfig{
			Host:               s.Host,
			Port:               s.Port,
			Username:           s.User,
			Password:           s.Password,
			InsecureSkipVerify: s.InsecureSkipVerify,
		}), nil
	case "resend":
		if s.ResendAPIKey == "" || s.User == "" {
			return nil, fmt.Errorf("resend: %w", ErrNotConfigured)
		}
		return NewResendMailer(s.ResendAPIKey, s.User), nil
	default:
		return nil, fmt.Errorf("unknown mail transport %q", s.Transport)
	}
}

// ResendMailer sends through the Resend API.
type ResendMailer struct {
	apiKey string
	from   string
	send   func(*resend.SendEmailRequest) error
}

// NewResendMailer creates a Resend-backed Mailer sending from the given address.
func NewResendMailer(apiKey, from string) *ResendMailer {
	client := resend.NewClient(apiKey)
	return &ResendMailer{
		apiKey: apiKey,
		from:   from,
		send: func(req *resend.SendEmailRequest) error {
			_, err := client.Emails.Send(req)
			return err
		},
	}
}

func (m *ResendMailer) Sender() string { return m.from }

// Verify only checks local configuration; the API has no dry-run send.
func (m *ResendMailer) Verify(ctx context.Context) error {
	if m.apiKey == "" || m.from == "" {
		return fmt.Errorf("resend: %w", ErrNotConfigured)
	}
	return ctx.Err()
}

func (m *ResendMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	from := msg.From
	if from == "" {
		from = m.from
	}
	req := &resend.SendEmailRequest{
		From:    from,
		To:      msg.To,
		ReplyTo: msg.ReplyTo,
		Subject: msg.Subject,
		Text:    msg.Text,
		Html:    msg.HTML,
	}
	if err := m.send(req); err != nil {
		return fmt.Errorf("failed to send email via Resend: %w", err)
	}
	return nil
}
