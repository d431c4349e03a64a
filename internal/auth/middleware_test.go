package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/warden/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-32-characters-long!!"

type MockUserRepository struct {
	GetByIDFunc func(ctx context.Context, id int64) (*models.User, error)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return m.GetByIDFunc(ctx, id)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func userRepoWith(user *models.User) *MockUserRepository {
	return &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id int64) (*models.User, error) {
			if user == nil || id != user.ID {
				return nil, models.ErrNotFound
			}
			return user, nil
		},
	}
}

// captureHandler records the principal the downstream handler observed
func captureHandler(got *models.Principal, seen *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got, *seen = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticate_CookieResolvesPrincipal(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)
	user := &models.User{ID: 42, Username: "boss", Level: models.LevelAdmin}
	token, err := tm.GenerateAccessToken(42)
	require.NoError(t, err)

	var got models.Principal
	var seen bool
	h := Authenticate(tm, userRepoWith(user), discardLogger())(captureHandler(&got, &seen))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookieName, Value: token})
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.True(t, seen)
	assert.Equal(t, models.Principal{UserID: 42, Username: "boss", Level: models.LevelAdmin}, got)
}

func TestAuthenticate_BearerHeader(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)
	user := &models.User{ID: 7, Username: "mgr", Level: models.LevelManager}
	token, err := tm.GenerateAccessToken(7)
	require.NoError(t, err)

	var got models.Principal
	var seen bool
	h := Authenticate(tm, userRepoWith(user), discardLogger())(captureHandler(&got, &seen))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.True(t, seen)
	assert.Equal(t, models.LevelManager, got.Level)
}

func TestAuthenticate_AnonymousCases(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)
	banned := &models.User{ID: 9, Username: "gone", Level: models.LevelAdmin, Banned: true}
	bannedToken, _ := tm.GenerateAccessToken(9)
	orphanToken, _ := tm.GenerateAccessToken(1000)
	otherToken, _ := NewTokenManager("another-secret-32-characters-long", time.Hour).GenerateAccessToken(9)

	tests := []struct {
		name  string
		token string
	}{
		{"no token", ""},
		{"garbage token", "not-a-jwt"},
		{"wrong signature", otherToken},
		{"deleted user", orphanToken},
		{"banned user", bannedToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got models.Principal
			var seen bool
			h := Authenticate(tm, userRepoWith(banned), discardLogger())(captureHandler(&got, &seen))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.token != "" {
				req.AddCookie(&http.Cookie{Name: AccessTokenCookieName, Value: tt.token})
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.False(t, seen)
		})
	}
}

func TestAuthenticate_RepositoryFailure(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)
	token, _ := tm.GenerateAccessToken(5)
	repo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id int64) (*models.User, error) {
			return nil, errors.New("connection refused")
		},
	}

	called := false
	h := Authenticate(tm, repo, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookieName, Value: token})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.False(t, called)
}

func TestGuards(t *testing.T) {
	customer := models.Principal{UserID: 1, Level: models.LevelCustomer}
	manager := models.Principal{UserID: 2, Level: models.LevelManager}
	admin := models.Principal{UserID: 3, Level: models.LevelAdmin}

	adminOrManager := RequireRole(models.RoleAdmin, models.RoleManager)
	adminOnly := RequireRole(models.RoleAdmin)
	employees := RequireGroup(models.GroupEmployees)

	tests := []struct {
		name      string
		guard     func(http.Handler) http.Handler
		principal *models.Principal
		ajax      bool
		status    int
	}{
		{"anonymous browser redirected", adminOrManager, nil, false, http.StatusSeeOther},
		{"anonymous ajax unauthorized", adminOrManager, nil, true, http.StatusUnauthorized},
		{"customer forbidden by role", adminOrManager, &customer, false, http.StatusForbidden},
		{"customer forbidden by role ajax", adminOrManager, &customer, true, http.StatusForbidden},
		{"manager allowed by role set", adminOrManager, &manager, false, http.StatusOK},
		{"admin allowed by role set", adminOrManager, &admin, false, http.StatusOK},
		{"manager refused admin-only", adminOnly, &manager, false, http.StatusForbidden},
		{"admin allowed admin-only", adminOnly, &admin, false, http.StatusOK},
		{"customer not an employee", employees, &customer, false, http.StatusForbidden},
		{"manager is an employee", employees, &manager, false, http.StatusOK},
		{"admin is an employee", employees, &admin, false, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			h := tt.guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodPost, "/administration/manage_users", nil)
			if tt.ajax {
				req.Header.Set("X-Requested-With", "XMLHttpRequest")
			}
			if tt.principal != nil {
				req = req.WithContext(WithPrincipal(req.Context(), *tt.principal))
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.status == http.StatusOK, called)
			if tt.status == http.StatusSeeOther {
				assert.Equal(t, LoginPath, w.Header().Get("Location"))
			}
		})
	}
}
