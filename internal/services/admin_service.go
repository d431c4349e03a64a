package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/BradenHooton/warden/internal/models"
	pkglogger "github.com/BradenHooton/warden/pkg/logger"
	"github.com/BradenHooton/warden/pkg/pagination"
)

// AdminUserRepository is the subset of UserRepository methods needed by AdminService.
type AdminUserRepository interface {
	CountManaged(ctx context.Context, q models.SearchQuery) (int, error)
	ListManaged(ctx context.Context, q models.SearchQuery) ([]*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	LevelOf(ctx context.Context, id int64) (models.Level, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	UpdateBelowLevel(ctx context.Context, id int64, actorLevel models.Level, user *models.User) (*models.User, error)
	DeleteBelowLevel(ctx context.Context, id int64, actorLevel models.Level) (bool, error)
}

// FieldCipher encrypts profile fields that are stored encrypted at rest.
type FieldCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// AdminServiceConfig carries the listing settings.
type AdminServiceConfig struct {
	ManageUsersURL string
	PerPage        int
	NumLinks       int
}

// ManageUsersPage is one page of the user management listing.
type ManageUsersPage struct {
	Query models.SearchQuery
	Users []*models.User
	Total int
	Links pagination.Links
}

// AdminService applies the user administration rules: every listed, viewed,
// updated or deleted account must rank strictly below the acting principal.
type AdminService struct {
	repo   AdminUserRepository
	cipher FieldCipher
	audit  *pkglogger.AuditLogger
	logger *slog.Logger
	cfg    AdminServiceConfig
}

// NewAdminService creates a new AdminService.
func NewAdminService(repo AdminUserRepository, cipher FieldCipher, audit *pkglogger.AuditLogger, logger *slog.Logger, cfg AdminServiceConfig) *AdminService {
	return &AdminService{
		repo:   repo,
		cipher: cipher,
		audit:  audit,
		logger: logger,
		cfg:    cfg,
	}
}

// ManageUsers returns the requested page of users the actor outranks. The count and
// the page slice are read with the same filter so totals and rows never drift; a page
// past the end is read as the last page.
func (s *AdminService) ManageUsers(ctx context.Context, actor models.Principal, searchIn, searchFor string, page int) (*ManageUsersPage, error) {
	if searchIn != "" && !models.IsSearchable(searchIn) {
		s.logger.Debug("manage users: dropped unknown search field", slog.String("search_in", searchIn))
	}
	q := models.NewSearchQuery(searchIn, searchFor, actor.Level, page, s.cfg.PerPage)

	total, err := s.repo.CountManaged(ctx, q)
	if err != nil {
		s.logger.Error("manage users: failed to count users", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	links := pagination.Build(pagination.Config{
		BaseURL:  s.cfg.ManageUsersURL,
		PerPage:  s.cfg.PerPage,
		NumLinks: s.cfg.NumLinks,
	}, total, q.Page)
	q.Page = links.Current

	users, err := s.repo.ListManaged(ctx, q)
	if err != nil {
		s.logger.Error("manage users: failed to list users", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return &ManageUsersPage{Query: q, Users: users, Total: total, Links: links}, nil
}

// DeleteUser removes an account the actor outranks. Every failure cause is returned
// as a distinct error so callers can log it even when they answer generically.
func (s *AdminService) DeleteUser(ctx context.Context, actor models.Principal, targetID int64, ip string) error {
	err := s.deleteUser(ctx, actor, targetID)
	s.auditUser(ctx, models.AuditEventTypeUserDelete, actor, targetID, ip, err)
	return err
}

func (s *AdminService) deleteUser(ctx context.Context, actor models.Principal, targetID int64) error {
	if targetID <= 0 {
		return models.ErrInvalidTarget
	}
	if targetID == actor.UserID {
		return models.ErrSelfDeletion
	}

	deleted, err := s.repo.DeleteBelowLevel(ctx, targetID, actor.Level)
	if err != nil {
		s.logger.Error("delete user: repository failure", slog.Int64("target_id", targetID), slog.Any("error", err))
		return fmt.Errorf("delete user %d: %w", targetID, err)
	}
	if deleted {
		s.logger.Info("user deleted", slog.Int64("target_id", targetID), slog.Int64("actor_id", actor.UserID))
		return nil
	}

	// Nothing was removed: tell a missing account apart from one the actor does not outrank
	if _, err := s.repo.LevelOf(ctx, targetID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		return fmt.Errorf("delete user %d: %w", targetID, err)
	}
	return models.ErrPrivilegeViolation
}

// AuthorizeTarget checks that the actor may view or modify the target account.
// It returns ErrInvalidTarget for a non-positive id, ErrNotFound for a missing account
// and ErrPrivilegeViolation when the target is not strictly below the actor.
func (s *AdminService) AuthorizeTarget(ctx context.Context, actor models.Principal, targetID int64) error {
	if targetID <= 0 {
		return models.ErrInvalidTarget
	}

	level, err := s.repo.LevelOf(ctx, targetID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to read target level", slog.Int64("target_id", targetID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if !actor.Outranks(level) {
		s.audit.Log(ctx, pkglogger.AuditEvent{
			EventType:     models.AuditEventTypeAccessCheck,
			ActorID:       actor.UserID,
			TargetID:      targetID,
			Success:       false,
			FailureReason: models.ErrPrivilegeViolation.Error(),
		})
		return models.ErrPrivilegeViolation
	}
	return nil
}

// RecordRejected audits a mutation that was refused before reaching the repository,
// such as a CSRF token mismatch.
func (s *AdminService) RecordRejected(ctx context.Context, actor models.Principal, eventType string, targetID int64, ip string, reason error) {
	s.audit.Log(ctx, pkglogger.AuditEvent{
		EventType:     eventType,
		ActorID:       actor.UserID,
		TargetID:      targetID,
		IPAddress:     ip,
		Success:       false,
		FailureReason: reason.Error(),
	})
}
