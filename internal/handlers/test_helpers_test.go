package handlers_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/handlers"
	"github.com/BradenHooton/warden/internal/models"
	"github.com/BradenHooton/warden/internal/services"
	"github.com/BradenHooton/warden/internal/views"
	pkgauth "github.com/BradenHooton/warden/pkg/auth"
	pkgcrypto "github.com/BradenHooton/warden/pkg/crypto"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
	pkglogger "github.com/BradenHooton/warden/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func init() {
	pkgauth.BcryptCost = 4
}

var (
	adminActor   = models.Principal{UserID: 1, Username: "admin", Level: models.LevelAdmin}
	managerActor = models.Principal{UserID: 2, Username: "manager", Level: models.LevelManager}
)

// fakeUserStore is an in-memory AdminUserRepository that applies the same level rules as the SQL
type fakeUserStore struct {
	mu      sync.Mutex
	users   map[int64]*models.User
	nextID  int64
	queries []models.SearchQuery
}

func newFakeUserStore(users ...*models.User) *fakeUserStore {
	s := &fakeUserStore{users: map[int64]*models.User{}, nextID: 100}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeUserStore) matching(q models.SearchQuery) []*models.User {
	var out []*models.User
	for _, u := range s.users {
		if !u.Level.Below(q.ActorLevel) {
			continue
		}
		if q.Searching() {
			var value string
			switch q.SearchIn {
			case "username":
				value = u.Username
			case "email":
				value = u.Email
			case "last_name":
				value = u.LastName
			}
			if !strings.Contains(strings.ToLower(value), strings.ToLower(q.SearchFor)) {
				continue
			}
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

func (s *fakeUserStore) CountManaged(ctx context.Context, q models.SearchQuery) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, q)
	return len(s.matching(q)), nil
}

func (s *fakeUserStore) ListManaged(ctx context.Context, q models.SearchQuery) ([]*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, q)
	all := s.matching(q)
	start := min(q.Offset(), len(all))
	end := min(start+q.PerPage, len(all))
	return all[start:end], nil
}

func (s *fakeUserStore) GetByID(ctx context.Context, id int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *fakeUserStore) LevelOf(ctx context.Context, id int64) (models.Level, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return 0, models.ErrNotFound
	}
	return u.Level, nil
}

func (s *fakeUserStore) Create(ctx context.Context, user *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Username, user.Username) || strings.EqualFold(u.Email, user.Email) {
			return nil, models.ErrConflict
		}
	}
	s.nextID++
	user.ID = s.nextID
	cp := *user
	s.users[user.ID] = &cp
	return user, nil
}

func (s *fakeUserStore) UpdateBelowLevel(ctx context.Context, id int64, actorLevel models.Level, user *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.users[id]
	if !ok || !current.Level.Below(actorLevel) {
		return nil, models.ErrNotFound
	}
	updated := *user
	updated.ID = id
	updated.CreatedAt = current.CreatedAt
	if updated.PasswordHash == "" {
		updated.PasswordHash = current.PasswordHash
	}
	s.users[id] = &updated
	cp := updated
	return &cp, nil
}

func (s *fakeUserStore) DeleteBelowLevel(ctx context.Context, id int64, actorLevel models.Level) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok || !u.Level.Below(actorLevel) {
		return false, nil
	}
	delete(s.users, id)
	return true, nil
}

func (s *fakeUserStore) has(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[id]
	return ok
}

func (s *fakeUserStore) get(id int64) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.users[id]
}

// fakeDenyRepo is an in-memory deny list repository
type fakeDenyRepo struct {
	entries   []models.DenyListEntry
	applied   int
	listCalls int
}

func (r *fakeDenyRepo) List(ctx context.Context) ([]models.DenyListEntry, error) {
	r.listCalls++
	return append([]models.DenyListEntry(nil), r.entries...), nil
}

func (r *fakeDenyRepo) Apply(ctx context.Context, req models.DenialRequest) error {
	r.applied++
	if req.Add != nil {
		for _, e := range r.entries {
			if e.IPAddress == req.Add.IPAddress {
				return models.ErrConflict
			}
		}
		r.entries = append(r.entries, models.DenyListEntry{
			ID:         int64(len(r.entries) + 1),
			IPAddress:  req.Add.IPAddress,
			ReasonCode: req.Add.ReasonCode,
			CreatedAt:  time.Now(),
		})
	}
	kept := r.entries[:0]
	for _, e := range r.entries {
		remove := false
		for _, ip := range req.RemoveIPs {
			if e.IPAddress == ip {
				remove = true
			}
		}
		if !remove {
			kept = append(kept, e)
		}
	}
	r.entries = kept
	return nil
}

// fakeDenyFile records synced lists
type fakeDenyFile struct {
	synced [][]models.DenyListEntry
}

func (f *fakeDenyFile) Sync(entries []models.DenyListEntry) error {
	f.synced = append(f.synced, entries)
	return nil
}

// adminFixture wires the real services, CSRF manager and views over in-memory stores
type adminFixture struct {
	store    *fakeUserStore
	denyRepo *fakeDenyRepo
	denyFile *fakeDenyFile
	csrf     *auth.CSRFTokenManager
	cipher   *pkgcrypto.FieldCipher
	router   chi.Router
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRenderer(t *testing.T) *views.Renderer {
	t.Helper()
	renderer, err := views.New()
	require.NoError(t, err)
	return renderer
}

func newAdminFixture(t *testing.T, denyEnabled bool, users ...*models.User) *adminFixture {
	t.Helper()

	cipher, err := pkgcrypto.NewFieldCipher(make([]byte, 32))
	require.NoError(t, err)

	logger := discardLogger()
	audit := pkglogger.NewAuditLogger(logger)

	f := &adminFixture{
		store:    newFakeUserStore(users...),
		denyRepo: &fakeDenyRepo{},
		denyFile: &fakeDenyFile{},
		csrf:     auth.NewCSRFTokenManager(15*time.Minute, auth.CookieConfig{}),
		cipher:   cipher,
	}

	admin := services.NewAdminService(f.store, cipher, audit, logger, services.AdminServiceConfig{
		ManageUsersURL: handlers.ManageUsersPath,
		PerPage:        2,
		NumLinks:       2,
	})
	denyList := services.NewDenyListService(f.denyRepo, f.denyFile, audit, logger, denyEnabled)
	h := handlers.NewAdminHandler(admin, denyList, f.csrf, testRenderer(t), &pkghttp.IPConfig{}, logger)

	r := chi.NewRouter()
	r.Route("/administration", func(r chi.Router) {
		r.HandleFunc("/create_user", h.CreateUser)
		r.HandleFunc("/manage_users", h.ManageUsers)
		r.HandleFunc("/manage_users/{page}", h.ManageUsers)
		r.HandleFunc("/delete_user/{user_id}", h.DeleteUser)
		r.HandleFunc("/delete_user/{user_id}/{page}", h.DeleteUser)
		r.HandleFunc("/update_user/{user_id}", h.UpdateUser)
		r.HandleFunc("/deny_access", h.DenyAccess)
	})
	f.router = r

	return f
}

// token issues a form token for the principal
func (f *adminFixture) token(t *testing.T, p models.Principal) string {
	t.Helper()
	token, err := f.csrf.GenerateToken(p.UserID)
	require.NoError(t, err)
	return token
}

func (f *adminFixture) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

// newFormRequest builds a request carrying the principal and an optional urlencoded form
func newFormRequest(method, target string, form url.Values, p *models.Principal, ajax bool) *http.Request {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if ajax {
		req.Header.Set("X-Requested-With", "XMLHttpRequest")
	}
	req.RemoteAddr = "192.0.2.10:54321"
	if p != nil {
		req = req.WithContext(auth.WithPrincipal(req.Context(), *p))
	}
	return req
}

// decodeEnvelope decodes an AJAX JSON response
func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func testUser(id int64, username string, level models.Level) *models.User {
	now := time.Now()
	return &models.User{
		ID:         id,
		Username:   username,
		Email:      username + "@example.com",
		Level:      level,
		LastName:   "Last" + username,
		CreatedAt:  now,
		ModifiedAt: now,
	}
}

// standardUsers returns an admin, a manager, a second manager and three customers
func standardUsers() []*models.User {
	return []*models.User{
		testUser(1, "admin", models.LevelAdmin),
		testUser(2, "manager", models.LevelManager),
		testUser(3, "manager2", models.LevelManager),
		testUser(7, "alice", models.LevelCustomer),
		testUser(8, "bob", models.LevelCustomer),
		testUser(9, "carol", models.LevelCustomer),
	}
}
