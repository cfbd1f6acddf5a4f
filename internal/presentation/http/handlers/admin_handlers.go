package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mkim/mystory/internal/application/services"
	"github.com/mkim/mystory/internal/domain/entities/contact"
	"github.com/mkim/mystory/internal/infrastructure/observability/logging"
)

// AdminHandlers serves the bearer-protected admin API
type AdminHandlers struct {
	adminService   *services.AdminService
	contentService *services.ContentService
	broadcaster    *logging.LogBroadcaster
	logger         *logging.ChanneledLogger
}

// NewAdminHandlers creates admin handlers. broadcaster may be nil, which
// disables log streaming.
func NewAdminHandlers(adminService *services.AdminService, contentService *services.ContentService, broadcaster *logging.LogBroadcaster, logger *logging.ChanneledLogger) *AdminHandlers {
	return &AdminHandlers{
		adminService:   adminService,
		contentService: contentService,
		broadcaster:    broadcaster,
		logger:         logger,
	}
}

// GetSubmissions handles GET /api/admin/submissions?limit=
func (h *AdminHandlers) GetSubmissions(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a number"})
			return
		}
		limit = n
	}

	resp, err := h.adminService.RecentSubmissions(c.Request.Context(), limit)
	if err != nil {
		h.logger.LogError(logging.ChannelContact, "list submissions", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetSubmission handles GET /api/admin/submissions/:id
func (h *AdminHandlers) GetSubmission(c *gin.Context) {
	sub, err := h.adminService.Submission(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, contact.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
	case err != nil:
		h.logger.LogError(logging.ChannelContact, "get submission", err, "submissionId", c.Param("id"))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, sub)
	}
}

// GetSessions handles GET /api/admin/sessions
func (h *AdminHandlers) GetSessions(c *gin.Context) {
	c.JSON(http.StatusOK, h.adminService.Sessions())
}

// GetLogLevels handles GET /api/admin/logs/levels
func (h *AdminHandlers) GetLogLevels(c *gin.Context) {
	c.JSON(http.StatusOK, h.adminService.LogLevels())
}

// SetLogLevel handles POST /api/admin/logs/levels
func (h *AdminHandlers) SetLogLevel(c *gin.Context) {
	var req struct {
		Channel string `json:"channel" binding:"required"`
		Level   string `json:"level" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if err := h.adminService.SetLogLevel(req.Channel, req.Level); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to set log level", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": fmt.Sprintf("Log level for channel '%s' set to '%s'", req.Channel, req.Level)})
}

// StreamLogs handles the SSE connection for live log streaming.
func (h *AdminHandlers) StreamLogs(c *gin.Context) {
	if h.broadcaster == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Log broadcaster not available"})
		return
	}

	level, err := logging.ParseLevel(c.DefaultQuery("level", "INFO"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid log level specified"})
		return
	}
	filters := logging.AppliedFilters{
		Channel: logging.Channel(c.DefaultQuery("channel", "all")),
		Level:   level,
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	client := h.broadcaster.NewClient(filters)
	h.broadcaster.RegisterClient(client)
	defer h.broadcaster.UnregisterClient(client)

	fmt.Fprintf(c.Writer, ": connection established\n\n")
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case message, ok := <-client.Channel:
			if !ok {
				return false
			}
			fmt.Fprintf(w, "data: %s\n\n", message)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// PostReloadContent handles POST /api/admin/content/reload
func (h *AdminHandlers) PostReloadContent(c *gin.Context) {
	if err := h.contentService.Reload(); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Failed to reload content", "details": err.Error()})
		return
	}
	site := h.contentService.Site()
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"experiences": len(site.Experiences),
		"projects":    len(site.Projects),
	})
}

// PostWarmMedia handles POST /api/admin/media/warm
func (h *AdminHandlers) PostWarmMedia(c *gin.Context) {
	start := time.Now()
	report, err := h.contentService.WarmMedia(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	h.logger.Media().Info("Media warm request completed", "images", report.Images, "written", report.Written, "failed", len(report.Failed), "duration", time.Since(start))
	c.JSON(http.StatusOK, report)
}
