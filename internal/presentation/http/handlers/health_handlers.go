package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mkim/mystory/internal/application/services"
	"github.com/mkim/mystory/internal/infrastructure/messaging"
	"github.com/mkim/mystory/internal/infrastructure/persistence/database"
)

// HealthHandlers reports liveness and degraded subsystems
type HealthHandlers struct {
	contactService *services.ContactService
	hub            *messaging.Hub
	db             *database.DB
}

// NewHealthHandlers creates health handlers. db is nil when the submission
// log failed to open.
func NewHealthHandlers(contactService *services.ContactService, hub *messaging.Hub, db *database.DB) *HealthHandlers {
	return &HealthHandlers{contactService: contactService, hub: hub, db: db}
}

// GetHealth handles GET /healthz
func (h *HealthHandlers) GetHealth(c *gin.Context) {
	resp := gin.H{
		"status":        "ok",
		"mail":          h.contactService.Configured(),
		"submissionLog": h.db != nil,
		"liveSessions":  h.hub.Count(),
	}
	if h.db != nil {
		resp["database"] = h.db.Info()
	}
	c.JSON(http.StatusOK, resp)
}
