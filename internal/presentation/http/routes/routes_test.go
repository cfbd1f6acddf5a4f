package routes

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mkim/mystory/internal/application/container"
	"github.com/mkim/mystory/internal/application/services"
	"github.com/mkim/mystory/internal/infrastructure/messaging"
	"github.com/mkim/mystory/internal/infrastructure/observability/logging"
	contentrepo "github.com/mkim/mystory/internal/infrastructure/persistence/content"
	"github.com/mkim/mystory/pkg/config"
)

func testContainer(t *testing.T) *container.Container {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := logging.DefaultLoggerConfig()
	cfg.Console = io.Discard
	cfg.Broadcast = false
	logger, err := logging.NewChanneledLogger(cfg)
	if err != nil {
		t.Fatal(err)
	}
	repo, err := contentrepo.NewSiteRepository(filepath.Join(t.TempDir(), "none.yaml"), logger)
	if err != nil {
		t.Fatal(err)
	}
	hub := messaging.NewHub(1, logger)
	t.Cleanup(hub.Shutdown)
	return &container.Container{
		ContentService: services.NewContentService(repo, nil, logger),
		ContactService: services.NewContactService(nil, nil, "", time.Second, logger),
		AuthService:    services.NewAuthService("", "", time.Hour, logger),
		AdminService:   services.NewAdminService(nil, hub, logger),
		Logger:         logger,
		Hub:            hub,
		ScrollConfig:   container.ScrollConfigFromEnv(),
	}
}

func TestSetupRoutes(t *testing.T) {
	static := t.TempDir()
	if err := os.WriteFile(filepath.Join(static, "SAP logo.png"), []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}
	prevStatic := config.StaticDir
	config.StaticDir = static
	t.Cleanup(func() { config.StaticDir = prevStatic })

	r, err := SetupRoutes(testContainer(t))
	if err != nil {
		t.Fatalf("SetupRoutes: %v", err)
	}

	tests := []struct {
		method, path string
		want         int
		contains     string
	}{
		{http.MethodGet, "/healthz", http.StatusOK, `"mail":false`},
		{http.MethodGet, "/healthz", http.StatusOK, `"submissionLog":false`},
		{http.MethodGet, "/experience", http.StatusOK, "Experience | Matthew Kim"},
		{http.MethodGet, "/assets/app.js", http.StatusOK, "/ws/experience"},
		{http.MethodGet, "/SAP%20logo.png", http.StatusOK, "png"},
		{http.MethodGet, "/missing.png", http.StatusNotFound, "Not found"},
		{http.MethodPost, "/api/contact", http.StatusInternalServerError, "Server configuration error"},
		{http.MethodPost, "/api/contact", http.StatusInternalServerError, `"requestId":`},
		{http.MethodGet, "/api/admin/sessions", http.StatusUnauthorized, "Unauthorized"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(`{"name":"a","email":"a@b.co","subject":"s","message":"m"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tt.want {
			t.Errorf("%s %s = %d, want %d", tt.method, tt.path, w.Code, tt.want)
			continue
		}
		if !strings.Contains(w.Body.String(), tt.contains) {
			t.Errorf("%s %s body missing %q", tt.method, tt.path, tt.contains)
		}
		if w.Header().Get("X-Request-ID") == "" {
			t.Errorf("%s %s missing request id", tt.method, tt.path)
		}
	}
}
