package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mkim/mystory/internal/application/services"
	"github.com/mkim/mystory/internal/domain/entities/contact"
	"github.com/mkim/mystory/internal/infrastructure/email"
	"github.com/mkim/mystory/internal/infrastructure/messaging"
	"github.com/mkim/mystory/internal/infrastructure/observability/logging"
	contentrepo "github.com/mkim/mystory/internal/infrastructure/persistence/content"
	"github.com/mkim/mystory/internal/infrastructure/security"
	"github.com/mkim/mystory/internal/presentation/templates"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger(t *testing.T) *logging.ChanneledLogger {
	t.Helper()
	cfg := logging.DefaultLoggerConfig()
	cfg.Console = io.Discard
	cfg.Broadcast = false
	l, err := logging.NewChanneledLogger(cfg)
	if err != nil {
		t.Fatalf("NewChanneledLogger: %v", err)
	}
	return l
}

type stubMailer struct {
	verifyErr error
	sendErr   error
	sent      int
}

func (m *stubMailer) Verify(context.Context) error { return m.verifyErr }
func (m *stubMailer) Sender() string               { return "relay@example.com" }
func (m *stubMailer) Send(context.Context, email.Message) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent++
	return nil
}

func do(t *testing.T, r http.Handler, method, target, body string, header map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode %s %s: %v (%s)", method, target, err, w.Body.String())
		}
	}
	return w, out
}

func TestPostContact(t *testing.T) {
	const valid = `{"name":"Ada","email":"ada@example.com","subject":"Hi","message":"Hello"}`

	tests := []struct {
		name       string
		mailer     email.Mailer
		body       string
		wantStatus int
		wantKey    string
		wantValue  string
	}{
		{"no transport", nil, valid, 500, "error", "Server configuration error"},
		{"malformed body", &stubMailer{}, `{"name":`, 400, "error", "Invalid request body"},
		{"missing field", &stubMailer{}, `{"name":"Ada","email":"ada@example.com","subject":"","message":"x"}`, 400, "error", "Missing required fields"},
		{"bad email", &stubMailer{}, `{"name":"Ada","email":"nope","subject":"s","message":"x"}`, 400, "error", "Missing required fields"},
		{"verify failure", &stubMailer{verifyErr: errors.New("535 bad credentials")}, valid, 500, "error", "Email service configuration error: 535 bad credentials"},
		{"send failure", &stubMailer{sendErr: errors.New("connection reset")}, valid, 500, "error", "Failed to send email"},
		{"success", &stubMailer{}, valid, 200, "message", "Email sent successfully"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := testLogger(t)
			svc := services.NewContactService(tt.mailer, nil, "", time.Second, logger)
			r := gin.New()
			r.POST("/api/contact", NewContactHandlers(svc, logger).PostContact)

			w, out := do(t, r, http.MethodPost, "/api/contact", tt.body, nil)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if got := out[tt.wantKey]; got != tt.wantValue {
				t.Errorf("%s = %v, want %q", tt.wantKey, got, tt.wantValue)
			}
		})
	}
}

type memSubmissions struct {
	subs []*contact.Submission
}

func (r *memSubmissions) Store(_ context.Context, s *contact.Submission) error {
	r.subs = append(r.subs, s)
	return nil
}
func (r *memSubmissions) Update(context.Context, *contact.Submission) error { return nil }
func (r *memSubmissions) FindByID(_ context.Context, id string) (*contact.Submission, error) {
	for _, s := range r.subs {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, contact.ErrNotFound
}
func (r *memSubmissions) FindRecent(_ context.Context, limit int) ([]*contact.Submission, error) {
	if len(r.subs) < limit {
		limit = len(r.subs)
	}
	return r.subs[:limit], nil
}
func (r *memSubmissions) CountByStatus(context.Context) (map[contact.Status]int, error) {
	counts := map[contact.Status]int{}
	for _, s := range r.subs {
		counts[s.Status]++
	}
	return counts, nil
}

func adminRouter(t *testing.T) (*gin.Engine, *memSubmissions) {
	t.Helper()
	logger := testLogger(t)
	hash, err := security.HashPassword("letmein")
	if err != nil {
		t.Fatal(err)
	}
	repo := &memSubmissions{}
	repo.Store(context.Background(), contact.NewSubmission("01HZX", contact.Form{Name: "Ada"}, "", time.Now()))

	auth := NewAuthHandlers(services.NewAuthService(hash, "test-secret", time.Hour, logger), logger)
	admin := NewAdminHandlers(
		services.NewAdminService(repo, messaging.NewHub(0, logger), logger),
		nil, nil, logger,
	)

	r := gin.New()
	g := r.Group("/api/admin")
	g.GET("/auth", auth.AuthCheck)
	g.POST("/login", auth.PostLogin)
	p := g.Group("")
	p.Use(auth.AdminAuthMiddleware())
	p.GET("/submissions", admin.GetSubmissions)
	p.GET("/submissions/:id", admin.GetSubmission)
	p.GET("/sessions", admin.GetSessions)
	p.GET("/logs/levels", admin.GetLogLevels)
	p.POST("/logs/levels", admin.SetLogLevel)
	p.GET("/logs/stream", admin.StreamLogs)
	return r, repo
}

func TestAdminFlow(t *testing.T) {
	r, _ := adminRouter(t)

	if w, _ := do(t, r, http.MethodGet, "/api/admin/submissions", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d", w.Code)
	}
	if w, _ := do(t, r, http.MethodPost, "/api/admin/login", `{"password":"wrong"}`, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password status = %d", w.Code)
	}

	w, out := do(t, r, http.MethodPost, "/api/admin/login", `{"password":"letmein"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d (%s)", w.Code, w.Body.String())
	}
	token, _ := out["token"].(string)
	if token == "" || out["role"] != "admin" {
		t.Fatalf("login response = %v", out)
	}
	bearer := map[string]string{"Authorization": "Bearer " + token}

	if _, out := do(t, r, http.MethodGet, "/api/admin/auth", "", bearer); out["authenticated"] != true {
		t.Errorf("auth check = %v", out)
	}

	w, out = do(t, r, http.MethodGet, "/api/admin/submissions?limit=10", "", bearer)
	if w.Code != http.StatusOK {
		t.Fatalf("submissions status = %d", w.Code)
	}
	if subs, _ := out["submissions"].([]any); len(subs) != 1 {
		t.Errorf("submissions = %v", out["submissions"])
	}
	if w, _ := do(t, r, http.MethodGet, "/api/admin/submissions?limit=x", "", bearer); w.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d", w.Code)
	}

	if w, _ := do(t, r, http.MethodGet, "/api/admin/submissions/01HZX", "", bearer); w.Code != http.StatusOK {
		t.Errorf("submission by id status = %d", w.Code)
	}
	if w, _ := do(t, r, http.MethodGet, "/api/admin/submissions/missing", "", bearer); w.Code != http.StatusNotFound {
		t.Errorf("missing submission status = %d", w.Code)
	}

	if w, _ := do(t, r, http.MethodGet, "/api/admin/sessions", "", bearer); w.Code != http.StatusOK {
		t.Errorf("sessions status = %d", w.Code)
	}

	if w, _ := do(t, r, http.MethodPost, "/api/admin/logs/levels", `{"channel":"email","level":"DEBUG"}`, bearer); w.Code != http.StatusOK {
		t.Errorf("set level status = %d (%s)", w.Code, w.Body.String())
	}
	if _, out := do(t, r, http.MethodGet, "/api/admin/logs/levels", "", bearer); out["email"] != "DEBUG" {
		t.Errorf("levels = %v", out)
	}
	if w, _ := do(t, r, http.MethodPost, "/api/admin/logs/levels", `{"channel":"email","level":"LOUD"}`, bearer); w.Code != http.StatusBadRequest {
		t.Errorf("bad level status = %d", w.Code)
	}

	if w, _ := do(t, r, http.MethodGet, "/api/admin/logs/stream", "", bearer); w.Code != http.StatusInternalServerError {
		t.Errorf("stream without broadcaster status = %d", w.Code)
	}
}

func TestAdminDisabled(t *testing.T) {
	logger := testLogger(t)
	auth := NewAuthHandlers(services.NewAuthService("", "", time.Hour, logger), logger)
	r := gin.New()
	r.POST("/login", auth.PostLogin)
	r.GET("/guarded", auth.AdminAuthMiddleware(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	if w, _ := do(t, r, http.MethodPost, "/login", `{"password":"x"}`, nil); w.Code != http.StatusServiceUnavailable {
		t.Errorf("login status = %d", w.Code)
	}
	if w, _ := do(t, r, http.MethodGet, "/guarded", "", map[string]string{"Authorization": "Bearer abc"}); w.Code != http.StatusServiceUnavailable {
		t.Errorf("guarded status = %d", w.Code)
	}
}

func pageRouter(t *testing.T) *gin.Engine {
	t.Helper()
	logger := testLogger(t)
	repo, err := contentrepo.NewSiteRepository(filepath.Join(t.TempDir(), "missing.yaml"), logger)
	if err != nil {
		t.Fatalf("NewSiteRepository: %v", err)
	}
	contentSvc := services.NewContentService(repo, nil, logger)
	renderer, err := templates.NewRenderer(contentSvc.ImageURL)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	h := NewPageHandlers(contentSvc, renderer, logger)

	r := gin.New()
	for _, p := range templates.Pages {
		r.GET(p.Path, h.Page(p.Name))
	}
	return r
}

func TestPages(t *testing.T) {
	r := pageRouter(t)

	tests := []struct {
		path  string
		wants []string
	}{
		{"/", []string{"<title>Matthew Kim</title>", "@irish_poatato_ (instagram)", "email@gmail.com"}},
		{"/projects", []string{
			"<title>Projects | Matthew Kim</title>",
			`content="Explore my portfolio of web development and design projects."`,
		}},
		{"/about", []string{"<title>About | Matthew Kim</title>", `content="Personal portfolio website"`, "HOBBIES:"}},
		{"/experience", []string{
			"<title>Experience | Matthew Kim</title>",
			`data-item="amazon"`,
			`data-item="sap-cloud"`,
			`/SAP%20logo.png`,
			"translateY(4px)",
		}},
		{"/contact", []string{"<title>Contact | Matthew Kim</title>", "Get in Touch", "data-contact-form"}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w, _ := do(t, r, http.MethodGet, tt.path, "", nil)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d", w.Code)
			}
			body := w.Body.String()
			for _, want := range tt.wants {
				if !strings.Contains(body, want) {
					t.Errorf("body missing %q", want)
				}
			}
		})
	}
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://mkim.dev/"})
	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://example.test", true},
		{"https://mkim.dev", true},
		{"https://evil.test", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "http://example.test/ws/experience", nil)
		if tt.origin != "" {
			req.Header.Set("Origin", tt.origin)
		}
		if got := check(req); got != tt.want {
			t.Errorf("origin %q = %v, want %v", tt.origin, got, tt.want)
		}
	}
}
