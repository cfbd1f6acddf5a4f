// Package routes provides HTTP route configuration for the presentation layer.
package routes

import (
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/mkim/mystory/internal/application/container"
	"github.com/mkim/mystory/internal/infrastructure/observability/logging"
	"github.com/mkim/mystory/internal/presentation/http/handlers"
	"github.com/mkim/mystory/internal/presentation/http/middleware"
	"github.com/mkim/mystory/internal/presentation/templates"
	"github.com/mkim/mystory/pkg/config"
)

// SetupRoutes configures all HTTP routes and middleware with dependency injection.
func SetupRoutes(container *container.Container) (*gin.Engine, error) {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestMiddleware(container.Logger))
	r.Use(middleware.CORSMiddleware(config.CORSOrigins))

	renderer, err := templates.NewRenderer(container.ContentService.ImageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to load page templates: %w", err)
	}

	// Initialize handlers
	pageHandlers := handlers.NewPageHandlers(container.ContentService, renderer, container.Logger)
	contactHandlers := handlers.NewContactHandlers(container.ContactService, container.Logger)
	sessionHandlers := handlers.NewSessionHandlers(
		container.ContentService,
		container.Hub,
		container.ScrollConfig,
		container.ConnOptions,
		config.CORSOrigins,
		container.Logger,
	)
	authHandlers := handlers.NewAuthHandlers(container.AuthService, container.Logger)
	adminHandlers := handlers.NewAdminHandlers(container.AdminService, container.ContentService, logging.GetBroadcaster(), container.Logger)
	healthHandlers := handlers.NewHealthHandlers(container.ContactService, container.Hub, container.DB)

	// Pages
	for _, p := range templates.Pages {
		r.GET(p.Path, pageHandlers.Page(p.Name))
	}
	r.StaticFS("/assets", http.FS(templates.Assets()))
	r.Static("/media", config.MediaDir)
	r.GET("/healthz", healthHandlers.GetHealth)

	// Experience page session bridge
	r.GET("/ws/experience", sessionHandlers.ServeExperience)

	api := r.Group("/api")
	{
		api.POST("/contact", contactHandlers.PostContact)
	}

	adminAPI := r.Group("/api/admin")
	{
		adminAPI.GET("/auth", authHandlers.AuthCheck)
		adminAPI.POST("/login", authHandlers.PostLogin)

		// Admin authenticated endpoints
		protected := adminAPI.Group("")
		protected.Use(authHandlers.AdminAuthMiddleware())
		{
			protected.GET("/submissions", adminHandlers.GetSubmissions)
			protected.GET("/submissions/:id", adminHandlers.GetSubmission)
			protected.GET("/sessions", adminHandlers.GetSessions)
			protected.GET("/logs/levels", adminHandlers.GetLogLevels)
			protected.POST("/logs/levels", adminHandlers.SetLogLevel)
			protected.GET("/logs/stream", adminHandlers.StreamLogs)
			protected.POST("/content/reload", adminHandlers.PostReloadContent)
			protected.POST("/media/warm", adminHandlers.PostWarmMedia)
		}
	}

	// Content images (logos, portrait, song) live at the site root.
	r.NoRoute(staticFallback(config.StaticDir))

	return r, nil
}

func staticFallback(dir string) gin.HandlerFunc {
	fileServer := http.FileServer(http.Dir(dir))
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
			name := filepath.Join(dir, filepath.FromSlash(path.Clean("/"+c.Request.URL.Path)))
			if st, err := os.Stat(name); err == nil && !st.IsDir() {
				fileServer.ServeHTTP(c.Writer, c.Request)
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	}
}
