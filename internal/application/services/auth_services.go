package services

import (
	"errors"
	"time"

	"github.com/mkim/mystory/internal/infrastructure/observability/logging"
	"github.com/mkim/mystory/internal/infrastructure/security"
)

var (
	// ErrAdminDisabled means no admin password hash or JWT secret is set.
	ErrAdminDisabled = errors.New("admin access is not configured")
	// ErrInvalidCredentials is returned for a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// AuthResult holds authentication result data
type AuthResult struct {
	Token     string    `json:"token"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AuthService handles admin authentication and JWT operations
type AuthService struct {
	passwordHash string
	jwtSecret    string
	ttl          time.Duration
	logger       *logging.ChanneledLogger
	now          func() time.Time
}

// NewAuthService creates a new authentication service
func NewAuthService(passwordHash, jwtSecret string, ttl time.Duration, logger *logging.ChanneledLogger) *AuthService {
	return &AuthService{
		passwordHash: passwordHash,
		jwtSecret:    jwtSecret,
		ttl:          ttl,
		logger:       logger,
		now:          time.Now,
	}
}

// Enabled reports whether admin login is possible.
func (a *AuthService) Enabled() bool {
	return a.passwordHash != "" && a.jwtSecret != ""
}

// AuthenticateAdmin checks password against the configured bcrypt hash and
// issues an admin token.
func (a *AuthService) AuthenticateAdmin(password, remoteAddr string) (*AuthResult, error) {
	if !a.Enabled() {
		a.logger.Auth().Warn("Admin login attempted but admin access is not configured", "remoteAddr", remoteAddr)
		return nil, ErrAdminDisabled
	}
	if err := security.CheckPassword(a.passwordHash, password); err != nil {
		a.logger.Auth().Warn("Admin login failed", "remoteAddr", remoteAddr)
		return nil, ErrInvalidCredentials
	}

	token, expires, err := security.GenerateAdminToken(a.jwtSecret, a.ttl, a.now())
	if err != nil {
		a.logger.LogError(logging.ChannelAuth, "generate admin token", err)
		return nil, err
	}
	a.logger.Auth().Info("Admin login succeeded", "remoteAddr", remoteAddr, "expiresAt", expires)
	return &AuthResult{Token: token, Role: "admin", ExpiresAt: expires}, nil
}

// ValidateAdminToken returns nil for a live admin token.
func (a *AuthService) ValidateAdminToken(token string) error {
	if !a.Enabled() {
		return ErrAdminDisabled
	}
	_, err := security.ValidateAdminToken(token, a.jwtSecret)
	return err
}
