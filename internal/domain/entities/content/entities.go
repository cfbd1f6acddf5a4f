// Package content defines the site's content entities: the profile, the
// experience timeline and the project list.
package content

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mkim/mystory/internal/domain/scrollsync"
)

// ErrInvalidSite is returned when loaded content fails validation.
var ErrInvalidSite = errors.New("invalid site content")

type Site struct {
	Profile        Profile          `yaml:"profile" json:"profile"`
	Experiences    []*Experience    `yaml:"experiences" json:"experiences"`
	Projects       []*Project       `yaml:"projects" json:"projects"`
	Hobbies        []*Hobby         `yaml:"hobbies" json:"hobbies"`
	Certifications []*Certification `yaml:"certifications" json:"certifications"`
}

type Profile struct {
	Name        string `yaml:"name" json:"name"`
	Tagline     string `yaml:"tagline" json:"tagline"`
	Description string `yaml:"description" json:"description"`
	Instagram   string `yaml:"instagram" json:"instagram"`
	Email       string `yaml:"email" json:"email"`
	Song        string `yaml:"song" json:"song"`
	Portrait    string `yaml:"portrait,omitempty" json:"portrait,omitempty"`
	About       string `yaml:"about" json:"about"` // markdown
	Aside       string `yaml:"aside,omitempty" json:"aside,omitempty"`
}

// Experience is one timeline entry. Sub-items share the parent's layout but are
// never nested further.
type Experience struct {
	ID          string        `yaml:"id" json:"id"`
	Title       string        `yaml:"title" json:"title"`
	Company     string        `yaml:"company" json:"company"`
	Period      string        `yaml:"period" json:"period"`
	Description string        `yaml:"description" json:"description"`
	Logo        string        `yaml:"logo" json:"logo"`
	SubItems    []*Experience `yaml:"subItems,omitempty" json:"subItems,omitempty"`
}

type Project struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Link        string `yaml:"link" json:"link"`
	Image       string `yaml:"image,omitempty" json:"image,omitempty"`
}

type Hobby struct {
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	Image       string `yaml:"image,omitempty" json:"image,omitempty"`
}

type Certification struct {
	Title  string `yaml:"title" json:"title"`
	Issuer string `yaml:"issuer" json:"issuer"`
	Year   string `yaml:"year" json:"year"`
	Skills string `yaml:"skills,omitempty" json:"skills,omitempty"`
}

// Validate checks the fields pages depend on and that the experience tree is
// well formed.
func (s *Site) Validate() error {
	if strings.TrimSpace(s.Profile.Name) == "" {
		return fmt.Errorf("%w: profile name is required", ErrInvalidSite)
	}
	if len(s.Experiences) == 0 {
		return fmt.Errorf("%w: at least one experience is required", ErrInvalidSite)
	}
	for _, exp := range s.Experiences {
		for _, sub := range exp.SubItems {
			if len(sub.SubItems) > 0 {
				return fmt.Errorf("%w: experience %q nests more than one level", ErrInvalidSite, sub.ID)
			}
		}
	}
	if _, err := s.ExperienceTree(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSite, err)
	}
	return nil
}

// ExperienceTree builds the scroll-tracking tree for the experience page.
func (s *Site) ExperienceTree() (*scrollsync.Tree, error) {
	nodes := make([]scrollsync.Node, 0, len(s.Experiences))
	for _, exp := range s.Experiences {
		node := scrollsync.Node{ID: exp.ID}
		for _, sub := range exp.SubItems {
			node.SubItems = append(node.SubItems, sub.ID)
		}
		nodes = append(nodes, node)
	}
	return scrollsync.NewTree(nodes)
}

// FindExperience returns the experience or sub-item with id.
func (s *Site) FindExperience(id string) (*Experience, bool) {
	for _, exp := range s.Experiences {
		if exp.ID == id {
			return exp, true
		}
		for _, sub := range exp.SubItems {
			if sub.ID == id {
				return sub, true
			}
		}
	}
	return nil, false
}

// Images lists every logo and project image path, deduplicated, in content order.
func (s *Site) Images() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		if p == "" || seen[p] {
			return
		}
		seen[p] = true
		out = append(out, p)
	}
	for _, exp := range s.Experiences {
		add(exp.Logo)
		for _, sub := range exp.SubItems {
			add(sub.Logo)
		}
	}
	for _, p := range s.Projects {
		add(p.Image)
	}
	for _, h := range s.Hobbies {
		add(h.Image)
	}
	return out
}
