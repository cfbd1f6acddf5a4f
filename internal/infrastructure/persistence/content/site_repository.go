// Package content provides the YAML-backed site content repository
package content

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/mkim/mystory/internal/domain/entities/content"
	"github.com/mkim/mystory/internal/infrastructure/observability/logging"
)

//go:embed default_site.yaml
var defaultSite []byte

// DefaultSiteYAML returns the built-in site content.
func DefaultSiteYAML() []byte { return append([]byte(nil), defaultSite...) }

type SiteRepository struct {
	path   string
	logger *logging.ChanneledLogger

	mu     sync.RWMutex
	site   *content.Site
	source string
}

// NewSiteRepository loads path, falling back to the embedded content when the
// file does not exist. Any other read or validation error is returned.
func NewSiteRepository(path string, logger *logging.ChanneledLogger) (*SiteRepository, error) {
	r := &SiteRepository{path: path, logger: logger}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Site returns the current content. Callers must not mutate it.
func (r *SiteRepository) Site() *content.Site {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.site
}

// Source reports where the current content came from.
func (r *SiteRepository) Source() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.source
}

// Reload re-reads the content file. On error the previous content stays live.
func (r *SiteRepository) Reload() error {
	data, source, err := r.read()
	if err != nil {
		return err
	}

	site, err := ParseSite(data)
	if err != nil {
		r.logger.Content().Error("Site content rejected", "source", source, "error", err.Error())
		return fmt.Errorf("%s: %w", source, err)
	}

	r.mu.Lock()
	r.site = site
	r.source = source
	r.mu.Unlock()

	r.logger.Content().Info("Site content loaded",
		"source", source,
		"experiences", len(site.Experiences),
		"projects", len(site.Projects))
	return nil
}

func (r *SiteRepository) read() ([]byte, string, error) {
	if r.path != "" {
		data, err := os.ReadFile(r.path)
		if err == nil {
			return data, r.path, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, "", fmt.Errorf("failed to read content file: %w", err)
		}
		r.logger.Content().Debug("Content file not found, using embedded default", "path", r.path)
	}
	return defaultSite, "embedded", nil
}

// ParseSite decodes and validates site YAML. Unknown keys are rejected.
func ParseSite(data []byte) (*content.Site, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var site content.Site
	if err := dec.Decode(&site); err != nil {
		return nil, fmt.Errorf("%w: %v", content.ErrInvalidSite, err)
	}
	normalize(&site)
	if err := site.Validate(); err != nil {
		return nil, err
	}
	return &site, nil
}

// normalize trims the trailing newlines folded YAML scalars leave behind.
func normalize(s *content.Site) {
	s.Profile.About = strings.TrimSpace(s.Profile.About)
	var trimExp func(e *content.Experience)
	trimExp = func(e *content.Experience) {
		e.Description = strings.TrimSpace(e.Description)
		for _, sub := range e.SubItems {
			trimExp(sub)
		}
	}
	for _, e := range s.Experiences {
		trimExp(e)
	}
	for _, p := range s.Projects {
		p.Description = strings.TrimSpace(p.Description)
	}
	for _, h := range s.Hobbies {
		h.Description = strings.TrimSpace(h.Description)
	}
}
