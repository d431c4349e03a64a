package services

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/warden/internal/models"
	pkgauth "github.com/BradenHooton/warden/pkg/auth"
	pkglogger "github.com/BradenHooton/warden/pkg/logger"
)

func init() {
	pkgauth.BcryptCost = 4
}

// MockUserRepository implements every user repository interface used by the services
type MockUserRepository struct {
	CountManagedFunc     func(ctx context.Context, q models.SearchQuery) (int, error)
	ListManagedFunc      func(ctx context.Context, q models.SearchQuery) ([]*models.User, error)
	GetByIDFunc          func(ctx context.Context, id int64) (*models.User, error)
	GetByLoginFunc       func(ctx context.Context, login string) (*models.User, error)
	LevelOfFunc          func(ctx context.Context, id int64) (models.Level, error)
	CountByLevelFunc     func(ctx context.Context, level models.Level) (int, error)
	CreateFunc           func(ctx context.Context, user *models.User) (*models.User, error)
	UpdateBelowLevelFunc func(ctx context.Context, id int64, actorLevel models.Level, user *models.User) (*models.User, error)
	DeleteBelowLevelFunc func(ctx context.Context, id int64, actorLevel models.Level) (bool, error)
	TouchLastLoginFunc   func(ctx context.Context, id int64, at time.Time) error
}

func (m *MockUserRepository) CountManaged(ctx context.Context, q models.SearchQuery) (int, error) {
	if m.CountManagedFunc != nil {
		return m.CountManagedFunc(ctx, q)
	}
	return 0, nil
}

func (m *MockUserRepository) ListManaged(ctx context.Context, q models.SearchQuery) ([]*models.User, error) {
	if m.ListManagedFunc != nil {
		return m.ListManagedFunc(ctx, q)
	}
	return []*models.User{}, nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	if m.GetByLoginFunc != nil {
		return m.GetByLoginFunc(ctx, login)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) LevelOf(ctx context.Context, id int64) (models.Level, error) {
	if m.LevelOfFunc != nil {
		return m.LevelOfFunc(ctx, id)
	}
	return 0, models.ErrNotFound
}

func (m *MockUserRepository) CountByLevel(ctx context.Context, level models.Level) (int, error) {
	if m.CountByLevelFunc != nil {
		return m.CountByLevelFunc(ctx, level)
	}
	return 0, nil
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) UpdateBelowLevel(ctx context.Context, id int64, actorLevel models.Level, user *models.User) (*models.User, error) {
	if m.UpdateBelowLevelFunc != nil {
		return m.UpdateBelowLevelFunc(ctx, id, actorLevel, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) DeleteBelowLevel(ctx context.Context, id int64, actorLevel models.Level) (bool, error) {
	if m.DeleteBelowLevelFunc != nil {
		return m.DeleteBelowLevelFunc(ctx, id, actorLevel)
	}
	return false, nil
}

func (m *MockUserRepository) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	if m.TouchLastLoginFunc != nil {
		return m.TouchLastLoginFunc(ctx, id, at)
	}
	return nil
}

// MockDenyListRepository implements DenyListRepository for testing
type MockDenyListRepository struct {
	ListFunc  func(ctx context.Context) ([]models.DenyListEntry, error)
	ApplyFunc func(ctx context.Context, req models.DenialRequest) error
}

func (m *MockDenyListRepository) List(ctx context.Context) ([]models.DenyListEntry, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return []models.DenyListEntry{}, nil
}

func (m *MockDenyListRepository) Apply(ctx context.Context, req models.DenialRequest) error {
	if m.ApplyFunc != nil {
		return m.ApplyFunc(ctx, req)
	}
	return nil
}

// MockDenyFile records every sync
type MockDenyFile struct {
	Synced  [][]models.DenyListEntry
	SyncErr error
}

func (m *MockDenyFile) Sync(entries []models.DenyListEntry) error {
	m.Synced = append(m.Synced, entries)
	return m.SyncErr
}

// MockCipher is a reversible stand-in for the field cipher
type MockCipher struct {
	DecryptErr error
}

func (m *MockCipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	return "enc:" + plaintext, nil
}

func (m *MockCipher) Decrypt(ciphertext string) (string, error) {
	if m.DecryptErr != nil {
		return "", m.DecryptErr
	}
	return strings.TrimPrefix(ciphertext, "enc:"), nil
}

// MockTokenGenerator implements TokenGenerator for testing
type MockTokenGenerator struct {
	GenerateAccessTokenFunc func(userID int64) (string, error)
}

func (m *MockTokenGenerator) GenerateAccessToken(userID int64) (string, error) {
	if m.GenerateAccessTokenFunc != nil {
		return m.GenerateAccessTokenFunc(userID)
	}
	return "access-token", nil
}

// MockTimingDelay records delay calls without sleeping
type MockTimingDelay struct {
	Calls     int
	Succeeded []bool
}

func (m *MockTimingDelay) WaitFrom(startTime time.Time, succeeded bool) {
	m.Calls++
	m.Succeeded = append(m.Succeeded, succeeded)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// auditRecorder returns an audit logger whose JSON output is captured in buf
func auditRecorder(buf *strings.Builder) *pkglogger.AuditLogger {
	return pkglogger.NewAuditLogger(slog.New(slog.NewJSONHandler(buf, nil)))
}

// NewTestUser returns a user at the given level
func NewTestUser(id int64, username string, level models.Level) *models.User {
	now := time.Now()
	return &models.User{
		ID:         id,
		Username:   username,
		Email:      username + "@example.com",
		Level:      level,
		FirstName:  "Test",
		LastName:   "User",
		CreatedAt:  now,
		ModifiedAt: now,
	}
}

// NewTestUserWithPassword returns a user whose password hash matches password
func NewTestUserWithPassword(id int64, username string, level models.Level, password string) *models.User {
	user := NewTestUser(id, username, level)
	hash, err := pkgauth.HashPassword(password)
	if err != nil {
		panic(err)
	}
	user.PasswordHash = hash
	return user
}

func adminPrincipal() models.Principal {
	return models.Principal{UserID: 1, Username: "admin", Level: models.LevelAdmin}
}

func managerPrincipal() models.Principal {
	return models.Principal{UserID: 2, Username: "manager", Level: models.LevelManager}
}
