package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BradenHooton/warden/internal/models"
	pkgauth "github.com/BradenHooton/warden/pkg/auth"
)

// BootstrapRepository is what EnsureAdmin needs from the user store
type BootstrapRepository interface {
	CountByLevel(ctx context.Context, level models.Level) (int, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
}

// EnsureAdmin creates the first Admin account when none exists yet.
// It reports whether an account was created.
func EnsureAdmin(ctx context.Context, repo BootstrapRepository, username, email, password string, logger *slog.Logger) (bool, error) {
	if username == "" || email == "" || password == "" {
		return false, nil
	}

	count, err := repo.CountByLevel(ctx, models.LevelAdmin)
	if err != nil {
		return false, fmt.Errorf("count admins: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	if err := pkgauth.ValidatePassword(password, username, email); err != nil {
		return false, fmt.Errorf("ADMIN_PASSWORD rejected: %w", err)
	}
	hash, err := pkgauth.HashPassword(password)
	if err != nil {
		return false, err
	}

	created, err := repo.Create(ctx, &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Level:        models.LevelAdmin,
	})
	if err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}

	logger.Info("bootstrap admin created", slog.Int64("user_id", created.ID), slog.String("username", username))
	return true, nil
}
