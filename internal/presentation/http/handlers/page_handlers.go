package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mkim/mystory/internal/application/services"
	"github.com/mkim/mystory/internal/domain/scrollsync"
	"github.com/mkim/mystory/internal/infrastructure/observability/logging"
	"github.com/mkim/mystory/internal/presentation/templates"
)

// PageHandlers renders the site's HTML pages
type PageHandlers struct {
	contentService *services.ContentService
	renderer       *templates.Renderer
	logger         *logging.ChanneledLogger
}

// NewPageHandlers creates page handlers with injected dependencies
func NewPageHandlers(contentService *services.ContentService, renderer *templates.Renderer, logger *logging.ChanneledLogger) *PageHandlers {
	return &PageHandlers{
		contentService: contentService,
		renderer:       renderer,
		logger:         logger,
	}
}

// Page returns a handler rendering the named page.
func (h *PageHandlers) Page(name string) gin.HandlerFunc {
	page, ok := templates.FindPage(name)
	if !ok {
		panic("handlers: unknown page " + name)
	}
	return func(c *gin.Context) {
		site := h.contentService.Site()
		data := h.renderer.Data(page, site)

		if page.Name == "experience" {
			tree, err := h.contentService.ExperienceTree()
			if err != nil {
				h.logger.LogError(logging.ChannelContent, "build experience tree", err)
				c.String(http.StatusInternalServerError, "Experience content unavailable")
				return
			}
			first := tree.First()
			data.Experience = &scrollsync.State{
				ActiveItemID: first,
				Highlighted:  []string{first},
				NavOffsets:   scrollsync.NavOffsets(tree, first),
			}
		}

		c.Header("Content-Type", "text/html; charset=utf-8")
		if err := h.renderer.Render(c.Writer, data); err != nil {
			h.logger.LogError(logging.ChannelContent, "render page", err, "page", page.Name)
			c.String(http.StatusInternalServerError, "Failed to render page")
		}
	}
}
