// Package templates renders the site's pages from embedded html/template files.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"strings"

	"github.com/mkim/mystory/internal/domain/entities/content"
	"github.com/mkim/mystory/internal/domain/scrollsync"
)

//go:embed pages/*.html
var pageFS embed.FS

//go:embed assets
var assetFS embed.FS

// Assets returns the embedded client scripts and styles, rooted at assets/.
func Assets() fs.FS {
	sub, err := fs.Sub(assetFS, "assets")
	if err != nil {
		panic(err)
	}
	return sub
}

const defaultDescription = "Personal portfolio website"

// Page describes one routable page.
type Page struct {
	Name        string // template name
	Label       string // nav label and title prefix
	Path        string
	Description string
}

// Pages in nav order.
var Pages = []Page{
	{Name: "home", Label: "Home", Path: "/"},
	{Name: "about", Label: "About", Path: "/about"},
	{Name: "projects", Label: "Projects", Path: "/projects",
		Description: "Explore my portfolio of web development and design projects."},
	{Name: "experience", Label: "Experience", Path: "/experience"},
	{Name: "contact", Label: "Contact", Path: "/contact"},
}

// FindPage looks a page up by template name.
func FindPage(name string) (Page, bool) {
	for _, p := range Pages {
		if p.Name == name {
			return p, true
		}
	}
	return Page{}, false
}

// Title is "<Label> | <Name>", or just the owner's name on the home page.
func (p Page) Title(owner string) string {
	if p.Name == "home" || p.Label == "" {
		return owner
	}
	return p.Label + " | " + owner
}

func (p Page) MetaDescription() string {
	if p.Description != "" {
		return p.Description
	}
	return defaultDescription
}

// PageData is passed to every page template.
type PageData struct {
	Page  Page
	Title string
	Site  *content.Site
	Nav   []Page

	// Experience page only: the state a fresh session starts in.
	Experience *scrollsync.State
}

// Renderer owns one parsed template set per page.
type Renderer struct {
	pages    map[string]*template.Template
	markdown *Markdown
	imageURL func(string) string
}

// NewRenderer parses the embedded layout and page templates. imageURL maps a
// content image path to the URL pages should reference.
func NewRenderer(imageURL func(string) string) (*Renderer, error) {
	if imageURL == nil {
		imageURL = func(s string) string { return s }
	}
	r := &Renderer{
		pages:    make(map[string]*template.Template, len(Pages)),
		markdown: NewMarkdown(),
		imageURL: imageURL,
	}

	funcs := template.FuncMap{
		"markdown":  r.markdown.Render,
		"image":     func(src string) string { return r.imageURL(src) },
		"navOffset": navOffset,
		"isActive":  isActive,
		"handle":    func(s string) string { return strings.TrimPrefix(s, "@") },
	}

	for _, p := range Pages {
		t, err := template.New(p.Name).Funcs(funcs).ParseFS(pageFS, "pages/layout.html", "pages/"+p.Name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", p.Name, err)
		}
		r.pages[p.Name] = t
	}
	return r, nil
}

// Data assembles the template data for page.
func (r *Renderer) Data(page Page, site *content.Site) PageData {
	return PageData{
		Page:  page,
		Title: page.Title(site.Profile.Name),
		Site:  site,
		Nav:   Pages,
	}
}

// Render executes the named page into w. Output is buffered so a template
// error never produces a half-written page.
func (r *Renderer) Render(w io.Writer, data PageData) error {
	t, ok := r.pages[data.Page.Name]
	if !ok {
		return fmt.Errorf("unknown page %q", data.Page.Name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("failed to render %s: %w", data.Page.Name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

func navOffset(st *scrollsync.State, id string) template.CSS {
	if st == nil {
		return ""
	}
	return template.CSS(fmt.Sprintf("transform: translateY(%gpx)", st.NavOffsets[id]))
}

func isActive(st *scrollsync.State, id string) bool {
	if st == nil {
		return false
	}
	for _, h := range st.Highlighted {
		if h == id {
			return true
		}
	}
	return false
}
