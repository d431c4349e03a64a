package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/BradenHooton/warden/internal/models"
	pkgauth "github.com/BradenHooton/warden/pkg/auth"
	pkglogger "github.com/BradenHooton/warden/pkg/logger"
)

const conflictMessage = "Username or email address already in use"

// CreateUser creates an account ranked below the actor.
// Field problems are returned as *models.ValidationError.
func (s *AdminService) CreateUser(ctx context.Context, actor models.Principal, in models.UserInput, ip string) (*models.User, error) {
	user, err := s.buildUser(actor, in, true)
	if err != nil {
		s.auditUser(ctx, models.AuditEventTypeUserCreate, actor, 0, ip, err)
		return nil, err
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			err = models.NewValidationError("username", conflictMessage)
		} else {
			s.logger.Error("create user: repository failure", slog.Any("error", err))
			err = models.ErrInternalServer
		}
		s.auditUser(ctx, models.AuditEventTypeUserCreate, actor, 0, ip, err)
		return nil, err
	}

	s.logger.Info("user created", slog.Int64("user_id", created.ID), slog.Int64("actor_id", actor.UserID))
	s.auditUser(ctx, models.AuditEventTypeUserCreate, actor, created.ID, ip, nil)
	return created, nil
}

// UpdateUser rewrites the profile of an account the actor outranks. An empty password keeps the current one.
func (s *AdminService) UpdateUser(ctx context.Context, actor models.Principal, targetID int64, in models.UserInput, ip string) (*models.User, error) {
	if err := s.AuthorizeTarget(ctx, actor, targetID); err != nil {
		return nil, err
	}

	user, err := s.buildUser(actor, in, false)
	if err != nil {
		s.auditUser(ctx, models.AuditEventTypeUserUpdate, actor, targetID, ip, err)
		return nil, err
	}

	updated, err := s.repo.UpdateBelowLevel(ctx, targetID, actor.Level, user)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrConflict):
			err = models.NewValidationError("username", conflictMessage)
		case errors.Is(err, models.ErrNotFound):
			// the target was removed or promoted between the check and the write
			err = models.ErrPrivilegeViolation
		default:
			s.logger.Error("update user: repository failure", slog.Int64("target_id", targetID), slog.Any("error", err))
			err = models.ErrInternalServer
		}
		s.auditUser(ctx, models.AuditEventTypeUserUpdate, actor, targetID, ip, err)
		return nil, err
	}

	s.logger.Info("user updated", slog.Int64("user_id", targetID), slog.Int64("actor_id", actor.UserID))
	s.auditUser(ctx, models.AuditEventTypeUserUpdate, actor, targetID, ip, nil)
	return updated, nil
}

// GetUserForDisplay loads an account the actor outranks with encrypted fields decrypted.
func (s *AdminService) GetUserForDisplay(ctx context.Context, actor models.Principal, targetID int64) (*models.User, error) {
	if err := s.AuthorizeTarget(ctx, actor, targetID); err != nil {
		return nil, err
	}

	user, err := s.repo.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to load user", slog.Int64("user_id", targetID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	license, err := s.cipher.Decrypt(user.LicenseNumber)
	if err != nil {
		s.logger.Warn("failed to decrypt license number", slog.Int64("user_id", targetID), slog.Any("error", err))
		license = ""
	}
	user.LicenseNumber = license

	return user, nil
}

// buildUser applies the domain rules to submitted input and returns the record to store
func (s *AdminService) buildUser(actor models.Principal, in models.UserInput, passwordRequired bool) (*models.User, error) {
	fields := map[string]string{}

	if !in.Level.Valid() || !actor.Outranks(in.Level) {
		fields["user_level"] = "Level must be below your own"
	}

	var passwordHash string
	switch {
	case in.Password == "" && passwordRequired:
		fields["user_pass"] = "Password is required"
	case in.Password != "":
		if err := pkgauth.ValidatePassword(in.Password, in.Username, in.Email); err != nil {
			fields["user_pass"] = capitalize(err.Error())
			break
		}
		hash, err := pkgauth.HashPassword(in.Password)
		if err != nil {
			s.logger.Error("failed to hash password", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		passwordHash = hash
	}

	if len(fields) > 0 {
		return nil, &models.ValidationError{Fields: fields}
	}

	license, err := s.cipher.Encrypt(strings.TrimSpace(in.LicenseNumber))
	if err != nil {
		s.logger.Error("failed to encrypt license number", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return &models.User{
		Username:      strings.TrimSpace(in.Username),
		Email:         strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash:  passwordHash,
		Level:         in.Level,
		Banned:        in.Banned,
		FirstName:     strings.TrimSpace(in.FirstName),
		LastName:      strings.TrimSpace(in.LastName),
		LicenseNumber: license,
		StreetAddress: strings.TrimSpace(in.StreetAddress),
		City:          strings.TrimSpace(in.City),
		State:         strings.TrimSpace(in.State),
		Zip:           strings.TrimSpace(in.Zip),
		Phone:         strings.TrimSpace(in.Phone),
	}, nil
}

func (s *AdminService) auditUser(ctx context.Context, eventType string, actor models.Principal, targetID int64, ip string, err error) {
	event := pkglogger.AuditEvent{
		EventType: eventType,
		ActorID:   actor.UserID,
		TargetID:  targetID,
		IPAddress: ip,
		Success:   err == nil,
	}
	if err != nil {
		event.FailureReason = err.Error()
	}
	s.audit.Log(ctx, event)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
