package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/BradenHooton/warden/internal/models"
	pkgauth "github.com/BradenHooton/warden/pkg/auth"
	pkglogger "github.com/BradenHooton/warden/pkg/logger"
)

// LoginRepository defines the user lookups needed to sign in
type LoginRepository interface {
	GetByLogin(ctx context.Context, login string) (*models.User, error)
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
}

// TokenGenerator issues session tokens
type TokenGenerator interface {
	GenerateAccessToken(userID int64) (string, error)
}

// LoginDelay pads failed logins to a uniform duration
type LoginDelay interface {
	WaitFrom(start time.Time, success bool)
}

// AuthService handles authentication business logic
type AuthService struct {
	repo   LoginRepository
	tokens TokenGenerator
	delay  LoginDelay
	audit  *pkglogger.AuditLogger
	logger *slog.Logger
	env    string
}

// NewAuthService creates a new AuthService
func NewAuthService(repo LoginRepository, tokens TokenGenerator, delay LoginDelay, audit *pkglogger.AuditLogger, logger *slog.Logger, env string) *AuthService {
	return &AuthService{
		repo:   repo,
		tokens: tokens,
		delay:  delay,
		audit:  audit,
		logger: logger,
		env:    env,
	}
}

// LoginResult is a successful sign-in
type LoginResult struct {
	Token string
	User  *models.User
}

// Login verifies a username or email address and password.
// Unknown accounts, wrong passwords and banned accounts all return ErrUnauthorized
// after the same padded delay.
func (s *AuthService) Login(ctx context.Context, login, password, ip string) (*LoginResult, error) {
	start := time.Now()

	user, reason, err := s.verify(ctx, login, password)
	if err != nil {
		s.delay.WaitFrom(start, false)
		if errors.Is(err, models.ErrInternalServer) {
			return nil, err
		}

		s.logger.Info("login failed",
			pkglogger.RedactedAttr("login", pkglogger.SanitizedLogin(login), s.env),
			slog.String("reason", reason))
		event := pkglogger.AuditEvent{
			EventType:     models.AuditEventTypeLogin,
			IPAddress:     ip,
			Success:       false,
			FailureReason: reason,
		}
		if user != nil {
			event.ActorID = user.ID
		}
		s.audit.Log(ctx, event)
		return nil, models.ErrUnauthorized
	}

	token, err := s.tokens.GenerateAccessToken(user.ID)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := s.repo.TouchLastLogin(ctx, user.ID, time.Now()); err != nil {
		s.logger.Warn("failed to record last login", slog.Int64("user_id", user.ID), slog.Any("error", err))
	}

	s.logger.Info("user logged in", slog.Int64("user_id", user.ID))
	s.audit.Log(ctx, pkglogger.AuditEvent{
		EventType: models.AuditEventTypeLogin,
		ActorID:   user.ID,
		IPAddress: ip,
		Success:   true,
	})

	return &LoginResult{Token: token, User: user}, nil
}

// verify returns the user, or a failure reason for the audit trail
func (s *AuthService) verify(ctx context.Context, login, password string) (*models.User, string, error) {
	if login = strings.TrimSpace(login); login == "" || password == "" {
		return nil, "missing_credentials", models.ErrUnauthorized
	}

	user, err := s.repo.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// burn a comparable amount of work so unknown accounts are not faster
			_ = pkgauth.ComparePassword(dummyHash(), password)
			return nil, "invalid_credentials", models.ErrUnauthorized
		}
		s.logger.Error("failed to look up login", slog.Any("error", err))
		return nil, "", models.ErrInternalServer
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		return user, "invalid_credentials", models.ErrUnauthorized
	}

	if user.Banned {
		return user, "account_banned", models.ErrAccountBanned
	}

	return user, "", nil
}

// Logout records the end of a session
func (s *AuthService) Logout(ctx context.Context, principal models.Principal, ip string) {
	s.audit.Log(ctx, pkglogger.AuditEvent{
		EventType: models.AuditEventTypeLogout,
		ActorID:   principal.UserID,
		IPAddress: ip,
		Success:   true,
	})
}

// dummyHash is compared against when the account does not exist
var dummyHash = sync.OnceValue(func() string {
	hash, _ := pkgauth.HashPassword("warden-unknown-account")
	return hash
})
