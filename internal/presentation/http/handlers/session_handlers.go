package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/mkim/mystory/internal/application/services"
	"github.com/mkim/mystory/internal/domain/scrollsync"
	"github.com/mkim/mystory/internal/infrastructure/messaging"
	"github.com/mkim/mystory/internal/infrastructure/observability/logging"
)

// SessionHandlers bridges experience page sockets to per-connection sessions
type SessionHandlers struct {
	contentService *services.ContentService
	hub            *messaging.Hub
	scrollConfig   scrollsync.Config
	connOptions    messaging.ConnOptions
	upgrader       websocket.Upgrader
	logger         *logging.ChanneledLogger
}

// NewSessionHandlers creates session handlers. Sockets are accepted from the
// page's own host and from allowedOrigins.
func NewSessionHandlers(contentService *services.ContentService, hub *messaging.Hub, scrollConfig scrollsync.Config, connOptions messaging.ConnOptions, allowedOrigins []string, logger *logging.ChanneledLogger) *SessionHandlers {
	h := &SessionHandlers{
		contentService: contentService,
		hub:            hub,
		scrollConfig:   scrollConfig,
		connOptions:    connOptions,
		logger:         logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4 * 1024,
		WriteBufferSize: 4 * 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		if strings.EqualFold(u.Host, r.Host) {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(strings.TrimRight(a, "/"), origin) {
				return true
			}
		}
		return false
	}
}

// ServeExperience handles GET /ws/experience
func (h *SessionHandlers) ServeExperience(c *gin.Context) {
	tree, err := h.contentService.ExperienceTree()
	if err != nil {
		h.logger.LogError(logging.ChannelSession, "build experience tree", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Experience content unavailable"})
		return
	}

	session, err := h.hub.Open(tree, messaging.SessionOptions{
		Config: h.scrollConfig,
		Song:   h.contentService.Site().Profile.Song,
	})
	if err != nil {
		if errors.Is(err, messaging.ErrHubFull) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Too many active sessions"})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	defer h.hub.Close(session)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Session().Debug("Websocket upgrade failed", "error", err.Error())
		return
	}
	defer conn.Close()

	start := time.Now()
	h.logger.Session().Debug("Experience socket connected", "sessionId", session.ID(), "remoteAddr", c.ClientIP())
	if err := messaging.Serve(c.Request.Context(), conn, session, h.connOptions); err != nil {
		h.logger.Session().Debug("Experience session ended with error", "sessionId", session.ID(), "error", err.Error())
	}
	h.logger.Session().Debug("Experience socket disconnected", "sessionId", session.ID(), "duration", time.Since(start))
}
