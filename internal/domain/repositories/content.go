// Package repositories defines the persistence interfaces the application
// depends on.
package repositories

import (
	"context"

	"github.com/mkim/mystory/internal/domain/entities/contact"
	"github.com/mkim/mystory/internal/domain/entities/content"
)

// SiteRepository provides the current site content.
type SiteRepository interface {
	Site() *content.Site
	Reload() error
}

// SubmissionRepository persists contact submissions.
type SubmissionRepository interface {
	Store(ctx context.Context, s *contact.Submission) error
	Update(ctx context.Context, s *contact.Submission) error
	FindByID(ctx context.Context, id string) (*contact.Submission, error)
	FindRecent(ctx context.Context, limit int) ([]*contact.Submission, error)
	CountByStatus(ctx context.Context) (map[contact.Status]int, error)
}
