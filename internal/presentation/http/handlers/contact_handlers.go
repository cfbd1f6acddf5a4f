package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mkim/mystory/internal/application/services"
	"github.com/mkim/mystory/internal/domain/entities/contact"
	"github.com/mkim/mystory/internal/infrastructure/observability/logging"
	"github.com/mkim/mystory/internal/presentation/http/middleware"
)

// ContactHandlers relays the contact form to the mail transport
type ContactHandlers struct {
	contactService *services.ContactService
	logger         *logging.ChanneledLogger
}

// NewContactHandlers creates contact handlers with injected dependencies
func NewContactHandlers(contactService *services.ContactService, logger *logging.ChanneledLogger) *ContactHandlers {
	return &ContactHandlers{
		contactService: contactService,
		logger:         logger,
	}
}

// PostContact handles POST /api/contact
func (h *ContactHandlers) PostContact(c *gin.Context) {
	start := time.Now()
	log := h.logger.WithContext(c.Request.Context(), logging.ChannelContact)
	log.Debug("Received contact request", "method", c.Request.Method, "path", c.Request.URL.Path)

	var form contact.Form
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	sub, err := h.contactService.Submit(c.Request.Context(), form, c.ClientIP())
	if err != nil {
		var verr *services.VerifyError
		switch {
		case errors.Is(err, services.ErrMailerMissing):
			serverError(c, "Server configuration error")
		case errors.Is(err, contact.ErrInvalidSubmission):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		case errors.As(err, &verr):
			serverError(c, "Email service configuration error: "+verr.Reason())
		default:
			serverError(c, "Failed to send email")
		}
		return
	}

	log.Info("Contact request completed", "submissionId", sub.ID, "duration", time.Since(start))
	c.JSON(http.StatusOK, gin.H{"message": "Email sent successfully"})
}

// serverError writes a 500 with the request id attached when one is set.
func serverError(c *gin.Context, msg string) {
	resp := gin.H{"error": msg}
	if id := middleware.GetRequestID(c); id != "" {
		resp["requestId"] = id
	}
	c.JSON(http.StatusInternalServerError, resp)
}
