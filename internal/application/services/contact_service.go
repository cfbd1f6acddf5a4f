// Package services provides application-level orchestration services
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mkim/mystory/internal/domain/entities/contact"
	"github.com/mkim/mystory/internal/domain/repositories"
	"github.com/mkim/mystory/internal/infrastructure/email"
	"github.com/mkim/mystory/internal/infrastructure/email/templates"
	"github.com/mkim/mystory/internal/infrastructure/observability/logging"
	"github.com/mkim/mystory/internal/infrastructure/security"
)

var (
	// ErrMailerMissing means no mail transport is configured.
	ErrMailerMissing = errors.New("server configuration error")
	// ErrSendFailed means the transport rejected the message.
	ErrSendFailed = errors.New("failed to send email")
)

// VerifyError wraps a transport verification failure. Its Reason is shown to
// the client.
type VerifyError struct {
	Err error
}

func (e *VerifyError) Error() string { return "email service configuration error: " + e.Err.Error() }
func (e *VerifyError) Unwrap() error { return e.Err }

// Reason is the underlying transport message.
func (e *VerifyError) Reason() string { return e.Err.Error() }

// ContactService relays contact form posts to the site owner and records each
// attempt.
type ContactService struct {
	mailer  email.Mailer
	repo    repositories.SubmissionRepository
	to      string
	timeout time.Duration
	logger  *logging.ChanneledLogger
	now     func() time.Time
}

// NewContactService creates a contact service. A nil mailer makes every
// submission fail with ErrMailerMissing; a nil repo disables the log.
func NewContactService(mailer email.Mailer, repo repositories.SubmissionRepository, to string, timeout time.Duration, logger *logging.ChanneledLogger) *ContactService {
	return &ContactService{
		mailer:  mailer,
		repo:    repo,
		to:      to,
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
}

// Configured reports whether a transport is available.
func (s *ContactService) Configured() bool { return s.mailer != nil }

// Submit validates f, verifies the transport and sends the message. The
// returned submission reflects the final delivery status.
func (s *ContactService) Submit(ctx context.Context, f contact.Form, remoteAddr string) (*contact.Submission, error) {
	if s.mailer == nil {
		s.logger.Contact().Error("Contact submission with no mail transport configured")
		return nil, ErrMailerMissing
	}

	f = f.Normalize()
	if err := f.Validate(); err != nil {
		s.logger.Contact().Debug("Contact submission rejected", "error", err.Error(), "remoteAddr", remoteAddr)
		return nil, err
	}

	sub := contact.NewSubmission(security.GenerateULID(), f, remoteAddr, s.now())
	s.store(ctx, sub)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if err := s.mailer.Verify(ctx); err != nil {
		s.logger.Email().Error("Mail transport verification failed", "error", err.Error())
		sub.MarkFailed(err)
		s.update(ctx, sub)
		return sub, &VerifyError{Err: err}
	}

	msg := s.compose(f)
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Email().Error("Failed to send contact email", "submissionId", sub.ID, "error", err.Error())
		sub.MarkFailed(err)
		s.update(ctx, sub)
		return sub, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	sub.MarkSent(s.now())
	s.update(ctx, sub)
	s.logger.Contact().Info("Contact email sent", "submissionId", sub.ID, "replyTo", f.Email)
	return sub, nil
}

// compose builds the owner-facing message. The relay account sends to itself
// (or CONTACT_TO) with the visitor as reply-to.
func (s *ContactService) compose(f contact.Form) email.Message {
	from := s.mailer.Sender()
	to := s.to
	if to == "" {
		to = from
	}
	props := templates.ContactEmailProps{Name: f.Name, Email: f.Email, Subject: f.Subject, Message: f.Message}
	return email.Message{
		From:    from,
		To:      []string{to},
		ReplyTo: f.Email,
		Subject: templates.ContactSubject(f.Subject),
		Text:    templates.ContactText(props),
		HTML:    templates.ContactHTML(props),
	}
}

// The submission log is best effort: delivery does not depend on it.
func (s *ContactService) store(ctx context.Context, sub *contact.Submission) {
	if s.repo == nil {
		return
	}
	if err := s.repo.Store(ctx, sub); err != nil {
		s.logger.LogError(logging.ChannelContact, "store submission", err, "submissionId", sub.ID)
	}
}

func (s *ContactService) update(ctx context.Context, sub *contact.Submission) {
	if s.repo == nil {
		return
	}
	// The request context may already be past its mail deadline.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.repo.Update(ctx, sub); err != nil && !errors.Is(err, contact.ErrNotFound) {
		s.logger.LogError(logging.ChannelContact, "update submission", err, "submissionId", sub.ID)
	}
}
