package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/mkim/mystory/internal/domain/entities/contact"
	"github.com/mkim/mystory/internal/domain/repositories"
	"github.com/mkim/mystory/internal/infrastructure/messaging"
	"github.com/mkim/mystory/internal/infrastructure/observability/logging"
)

// Submission listing bounds.
const (
	DefaultSubmissionLimit = 50
	MaxSubmissionLimit     = 500
)

// SubmissionsResponse is the admin inbox payload.
type SubmissionsResponse struct {
	Submissions []*contact.Submission  `json:"submissions"`
	Counts      map[contact.Status]int `json:"counts"`
}

// SessionsResponse lists live page sessions.
type SessionsResponse struct {
	Sessions []messaging.SessionInfo `json:"sessions"`
	Stats    messaging.HubStats      `json:"stats"`
}

// AdminService backs the bearer-protected admin endpoints.
type AdminService struct {
	submissions repositories.SubmissionRepository
	sessions    messaging.SessionRegistry
	logger      *logging.ChanneledLogger
}

// NewAdminService creates an admin service. A nil submission repository makes
// the inbox report an error.
func NewAdminService(submissions repositories.SubmissionRepository, sessions messaging.SessionRegistry, logger *logging.ChanneledLogger) *AdminService {
	return &AdminService{submissions: submissions, sessions: sessions, logger: logger}
}

// ClampLimit bounds a requested page size.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultSubmissionLimit
	case limit > MaxSubmissionLimit:
		return MaxSubmissionLimit
	default:
		return limit
	}
}

// RecentSubmissions returns the newest submissions and per-status totals.
func (s *AdminService) RecentSubmissions(ctx context.Context, limit int) (*SubmissionsResponse, error) {
	if s.submissions == nil {
		return nil, fmt.Errorf("submission log is not available")
	}
	list, err := s.submissions.FindRecent(ctx, ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to load submissions: %w", err)
	}
	counts, err := s.submissions.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count submissions: %w", err)
	}
	if list == nil {
		list = []*contact.Submission{}
	}
	return &SubmissionsResponse{Submissions: list, Counts: counts}, nil
}

// Submission returns one submission by id.
func (s *AdminService) Submission(ctx context.Context, id string) (*contact.Submission, error) {
	if s.submissions == nil {
		return nil, fmt.Errorf("submission log is not available")
	}
	return s.submissions.FindByID(ctx, id)
}

// Sessions lists live experience sessions.
func (s *AdminService) Sessions() SessionsResponse {
	return SessionsResponse{Sessions: s.sessions.Sessions(), Stats: s.sessions.Stats()}
}

// LogLevels returns the current level of every channel.
func (s *AdminService) LogLevels() map[string]string {
	return s.logger.GetChannelLevels()
}

// SetLogLevel changes one channel's level, or every channel when channel is
// "all".
func (s *AdminService) SetLogLevel(channel, level string) error {
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return err
	}
	targets := []logging.Channel{logging.Channel(strings.ToLower(channel))}
	if strings.EqualFold(channel, "all") {
		targets = logging.AllChannels
	}
	for _, ch := range targets {
		if err := s.logger.SetChannelLevel(ch, lvl); err != nil {
			return err
		}
	}
	s.logger.System().Info("Log level changed", "channel", channel, "level", lvl.String())
	return nil
}
