package services

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"

	"github.com/mkim/mystory/internal/domain/entities/content"
	"github.com/mkim/mystory/internal/domain/repositories"
	"github.com/mkim/mystory/internal/domain/scrollsync"
	"github.com/mkim/mystory/internal/infrastructure/media"
	"github.com/mkim/mystory/internal/infrastructure/observability/logging"
)

// DisplayWidth is the variant width pages reference.
const DisplayWidth = 160

// ContentService serves the site content and the experience tree derived
// from it.
type ContentService struct {
	repo   repositories.SiteRepository
	media  *media.ImageProcessor
	logger *logging.ChanneledLogger

	mu       sync.Mutex
	treeFor  *content.Site
	treeMemo *scrollsync.Tree
}

// NewContentService creates a content service. media may be nil.
func NewContentService(repo repositories.SiteRepository, processor *media.ImageProcessor, logger *logging.ChanneledLogger) *ContentService {
	return &ContentService{repo: repo, media: processor, logger: logger}
}

func (s *ContentService) Site() *content.Site { return s.repo.Site() }

// ExperienceTree returns the resolver tree for the current content, rebuilt
// only after a reload.
func (s *ContentService) ExperienceTree() (*scrollsync.Tree, error) {
	site := s.repo.Site()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.treeFor == site && s.treeMemo != nil {
		return s.treeMemo, nil
	}
	tree, err := site.ExperienceTree()
	if err != nil {
		return nil, err
	}
	s.treeFor, s.treeMemo = site, tree
	return tree, nil
}

// Reload re-reads the content source.
func (s *ContentService) Reload() error {
	if err := s.repo.Reload(); err != nil {
		s.logger.LogError(logging.ChannelContent, "reload content", err)
		return err
	}
	return nil
}

// ImageURL returns the display variant for src when one was generated, else
// the original path, escaped for use in a URL.
func (s *ContentService) ImageURL(src string) string {
	if src == "" {
		return ""
	}
	if s.media != nil {
		if u, ok := s.media.VariantURL(src, DisplayWidth); ok {
			return u
		}
	}
	p := "/" + strings.TrimLeft(strings.TrimPrefix(src, "."), "/")
	return (&url.URL{Path: p}).EscapedPath()
}

// WarmMedia generates image variants for every image the content references.
func (s *ContentService) WarmMedia(ctx context.Context) (media.Report, error) {
	if s.media == nil {
		return media.Report{}, errors.New("media processing is not configured")
	}
	return s.media.WarmAll(ctx, s.repo.Site().Images()), nil
}
