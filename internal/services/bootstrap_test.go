package services

import (
	"context"
	"testing"

	"github.com/BradenHooton/warden/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureAdmin_CreatesWhenNoneExists(t *testing.T) {
	var created *models.User
	repo := &MockUserRepository{
		CountByLevelFunc: func(ctx context.Context, level models.Level) (int, error) {
			assert.Equal(t, models.LevelAdmin, level)
			return 0, nil
		},
		CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
			created = user
			user.ID = 1
			return user, nil
		},
	}

	ok, err := EnsureAdmin(context.Background(), repo, "root", "root@example.com", "B00tstrapPass", testLogger())

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, models.LevelAdmin, created.Level)
	assert.NotEmpty(t, created.PasswordHash)
}

func TestEnsureAdmin_SkipsWhenAdminExists(t *testing.T) {
	repo := &MockUserRepository{
		CountByLevelFunc: func(ctx context.Context, level models.Level) (int, error) { return 1, nil },
	}

	ok, err := EnsureAdmin(context.Background(), repo, "root", "root@example.com", "B00tstrapPass", testLogger())

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEnsureAdmin_SkipsWithoutCredentials(t *testing.T) {
	ok, err := EnsureAdmin(context.Background(), &MockUserRepository{}, "", "", "", testLogger())

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEnsureAdmin_RejectsWeakPassword(t *testing.T) {
	repo := &MockUserRepository{}

	_, err := EnsureAdmin(context.Background(), repo, "root", "root@example.com", "weak", testLogger())

	assert.Error(t, err)
}
