package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/models"
	"github.com/BradenHooton/warden/internal/services"
	"github.com/BradenHooton/warden/internal/views"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
	"github.com/go-chi/chi/v5"
)

// ManageUsersPath is the user listing; delete redirects back to it
const ManageUsersPath = "/administration/manage_users"

const (
	resubmitNotice = "Your form token expired or was already used. Please review the form and submit it again."
	fieldsMessage  = "Please correct the highlighted fields"
)

// AdminServiceInterface defines the user administration contract
type AdminServiceInterface interface {
	ManageUsers(ctx context.Context, actor models.Principal, searchIn, searchFor string, page int) (*services.ManageUsersPage, error)
	CreateUser(ctx context.Context, actor models.Principal, in models.UserInput, ip string) (*models.User, error)
	UpdateUser(ctx context.Context, actor models.Principal, targetID int64, in models.UserInput, ip string) (*models.User, error)
	GetUserForDisplay(ctx context.Context, actor models.Principal, targetID int64) (*models.User, error)
	AuthorizeTarget(ctx context.Context, actor models.Principal, targetID int64) error
	DeleteUser(ctx context.Context, actor models.Principal, targetID int64, ip string) error
	RecordRejected(ctx context.Context, actor models.Principal, eventType string, targetID int64, ip string, reason error)
}

// DenyListServiceInterface defines the deny list contract
type DenyListServiceInterface interface {
	Enabled() bool
	List(ctx context.Context) ([]models.DenyListEntry, error)
	Process(ctx context.Context, actor models.Principal, req models.DenialRequest, clientIP string) error
}

// CSRFProvider issues and checks the per-user form token and the site-wide hash
type CSRFProvider interface {
	TokenMatch(r *http.Request) bool
	GenerateToken(userID int64) (string, error)
	SiteHash(w http.ResponseWriter, r *http.Request) string
}

// AdminHandler serves the administration pages
type AdminHandler struct {
	admin    AdminServiceInterface
	denyList DenyListServiceInterface
	csrf     CSRFProvider
	views    *views.Renderer
	ipConfig *pkghttp.IPConfig
	logger   *slog.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(admin AdminServiceInterface, denyList DenyListServiceInterface, csrf CSRFProvider, renderer *views.Renderer, ipConfig *pkghttp.IPConfig, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		admin:    admin,
		denyList: denyList,
		csrf:     csrf,
		views:    renderer,
		ipConfig: ipConfig,
		logger:   logger,
	}
}

// CreateUser handles GET and POST /administration/create_user
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	ajax := pkghttp.IsAjax(r)
	data := views.CreateUserData{Levels: models.AssignableLevels(principal.Level)}
	var notice string
	var fieldErrs map[string]string

	if r.Method == http.MethodPost {
		ip := pkghttp.ExtractClientIP(r, h.ipConfig)
		form := parseUserForm(r)

		if !h.csrf.TokenMatch(r) {
			h.admin.RecordRejected(r.Context(), principal, models.AuditEventTypeUserCreate, 0, ip, models.ErrTokenMismatch)
			if ajax {
				pkghttp.WriteEnvelopeError(w, pkghttp.TokenMismatchMessage)
				return
			}
			notice = resubmitNotice
			data.Form = redisplay(form)
		} else {
			var in models.UserInput
			in, fieldErrs = form.input()
			var created *models.User
			if len(fieldErrs) == 0 {
				var err error
				created, err = h.admin.CreateUser(r.Context(), principal, in, ip)
				var ve *models.ValidationError
				switch {
				case errors.As(err, &ve):
					fieldErrs = ve.Fields
				case err != nil:
					h.serverError(w, r, "create user", err)
					return
				}
			}

			if ajax {
				if len(fieldErrs) > 0 {
					h.writeFieldErrors(w, r, principal, fieldErrs)
					return
				}
				h.writeSuccess(w, r, principal, pkghttp.Envelope{"user_id": created.ID})
				return
			}

			if len(fieldErrs) > 0 {
				data.Form = redisplay(form)
			} else {
				data.Created = created
				notice = "User created"
			}
		}
	}

	page := h.newPage(w, r, principal, "Create User")
	page.Notice = notice
	page.Errors = fieldErrs
	page.Data = data
	h.render(w, r, views.PageCreateUser, page)
}

// ManageUsers handles GET and POST /administration/manage_users[/{page}]
func (h *AdminHandler) ManageUsers(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	if pkghttp.IsAjax(r) && !h.csrf.TokenMatch(r) {
		pkghttp.WriteEnvelopeError(w, pkghttp.TokenMismatchMessage)
		return
	}

	pageNum, err := strconv.Atoi(chi.URLParam(r, "page"))
	if err != nil || pageNum < 1 {
		pageNum = 1
	}
	searchIn := r.PostFormValue("search_in")
	searchFor := strings.TrimSpace(r.PostFormValue("search_for"))

	result, err := h.admin.ManageUsers(r.Context(), principal, searchIn, searchFor, pageNum)
	if err != nil {
		h.serverError(w, r, "manage users", err)
		return
	}

	page := h.newPage(w, r, principal, "Manage Users")
	table := views.TableData{
		Users:    result.Users,
		Page:     result.Links.Current,
		Token:    page.Token,
		SiteHash: page.SiteHash,
	}

	if pkghttp.IsAjax(r) {
		tableContent, err := h.views.RenderFragment(views.FragmentTableContent, table)
		if err != nil {
			h.serverError(w, r, "manage users", err)
			return
		}
		links, err := h.views.RenderFragment(views.FragmentPagination, result.Links)
		if err != nil {
			h.serverError(w, r, "manage users", err)
			return
		}
		pkghttp.WriteEnvelopeSuccess(w, pkghttp.Envelope{
			"table_content":    tableContent,
			"pagination_links": links,
			"token":            page.Token,
			"ci_csrf_token":    page.SiteHash,
		})
		return
	}

	page.Javascripts = []string{"/assets/js/manage-users.js"}
	page.Data = views.ManageUsersData{
		Options:   models.ManageUsersSearchOptions,
		SearchIn:  result.Query.SearchIn,
		SearchFor: result.Query.SearchFor,
		Total:     result.Total,
		Table:     table,
		Links:     result.Links,
	}
	h.render(w, r, views.PageManageUsers, page)
}

// DeleteUser handles /administration/delete_user/{user_id}[/{page}].
// AJAX callers get one generic failure envelope; the cause is logged and audited.
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	err := h.deleteUser(r, principal)
	if err != nil {
		h.logger.Info("delete user rejected",
			slog.Int64("actor_id", principal.UserID),
			slog.String("user_id", chi.URLParam(r, "user_id")),
			slog.Any("error", err))
	}

	if pkghttp.IsAjax(r) {
		if err != nil {
			pkghttp.WriteEnvelopeError(w, pkghttp.TokenMismatchMessage)
			return
		}
		h.writeSuccess(w, r, principal, nil)
		return
	}

	target := ManageUsersPath
	if p, perr := strconv.Atoi(chi.URLParam(r, "page")); perr == nil && p > 0 {
		target += "/" + strconv.Itoa(p)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *AdminHandler) deleteUser(r *http.Request, principal models.Principal) error {
	ip := pkghttp.ExtractClientIP(r, h.ipConfig)

	targetID, err := parseUserID(chi.URLParam(r, "user_id"))
	if err != nil {
		return models.ErrInvalidTarget
	}
	if targetID == principal.UserID {
		h.admin.RecordRejected(r.Context(), principal, models.AuditEventTypeUserDelete, targetID, ip, models.ErrSelfDeletion)
		return models.ErrSelfDeletion
	}

	if !h.csrf.TokenMatch(r) {
		h.admin.RecordRejected(r.Context(), principal, models.AuditEventTypeUserDelete, targetID, ip, models.ErrTokenMismatch)
		return models.ErrTokenMismatch
	}

	return h.admin.DeleteUser(r.Context(), principal, targetID, ip)
}

// UpdateUser handles GET and POST /administration/update_user/{user_id}.
// A target the actor does not outrank ends the request with 403 and no body.
func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	ajax := pkghttp.IsAjax(r)

	targetID, err := parseUserID(chi.URLParam(r, "user_id"))
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if err := h.admin.AuthorizeTarget(r.Context(), principal, targetID); err != nil {
		h.targetError(w, r, err)
		return
	}

	var notice string
	var fieldErrs map[string]string

	if r.Method == http.MethodPost {
		ip := pkghttp.ExtractClientIP(r, h.ipConfig)

		if !h.csrf.TokenMatch(r) {
			h.admin.RecordRejected(r.Context(), principal, models.AuditEventTypeUserUpdate, targetID, ip, models.ErrTokenMismatch)
			if ajax {
				pkghttp.WriteEnvelopeError(w, pkghttp.TokenMismatchMessage)
				return
			}
			notice = resubmitNotice
		} else {
			var in models.UserInput
			in, fieldErrs = parseUserForm(r).input()
			if len(fieldErrs) == 0 {
				_, err := h.admin.UpdateUser(r.Context(), principal, targetID, in, ip)
				var ve *models.ValidationError
				switch {
				case errors.As(err, &ve):
					fieldErrs = ve.Fields
				case err != nil:
					h.targetError(w, r, err)
					return
				default:
					notice = "User updated"
				}
			}

			if ajax {
				if len(fieldErrs) > 0 {
					h.writeFieldErrors(w, r, principal, fieldErrs)
					return
				}
				h.writeSuccess(w, r, principal, nil)
				return
			}
		}
	}

	user, err := h.admin.GetUserForDisplay(r.Context(), principal, targetID)
	if err != nil {
		h.targetError(w, r, err)
		return
	}

	page := h.newPage(w, r, principal, "Update User")
	page.Notice = notice
	page.Errors = fieldErrs
	page.Data = views.UpdateUserData{User: user, Levels: models.AssignableLevels(principal.Level)}
	h.render(w, r, views.PageUpdateUser, page)
}

// DenyAccess handles GET and POST /administration/deny_access.
// With the feature switched off the page is rendered without list data and POSTs are ignored.
func (h *AdminHandler) DenyAccess(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	ajax := pkghttp.IsAjax(r)
	data := views.DenyAccessData{Enabled: h.denyList.Enabled()}

	if !data.Enabled {
		if ajax {
			pkghttp.WriteEnvelopeError(w, "Deny list management is disabled")
			return
		}
		page := h.newPage(w, r, principal, "Deny Access")
		page.Data = data
		h.render(w, r, views.PageDenyAccess, page)
		return
	}

	var notice string
	var fieldErrs map[string]string

	if r.Method == http.MethodPost {
		ip := pkghttp.ExtractClientIP(r, h.ipConfig)
		req, formErrs := parseDenialForm(r)

		if !h.csrf.TokenMatch(r) {
			h.admin.RecordRejected(r.Context(), principal, denialEventType(req), 0, ip, models.ErrTokenMismatch)
			if ajax {
				pkghttp.WriteEnvelopeError(w, pkghttp.TokenMismatchMessage)
				return
			}
			notice = resubmitNotice
		} else {
			fieldErrs = formErrs
			if len(fieldErrs) == 0 {
				err := h.denyList.Process(r.Context(), principal, req, ip)
				var ve *models.ValidationError
				switch {
				case errors.As(err, &ve):
					fieldErrs = ve.Fields
				case err != nil:
					h.serverError(w, r, "deny access", err)
					return
				default:
					notice = "Deny list updated"
				}
			}

			if ajax {
				if len(fieldErrs) > 0 {
					h.writeFieldErrors(w, r, principal, fieldErrs)
					return
				}
				h.writeSuccess(w, r, principal, nil)
				return
			}
		}

		if len(fieldErrs) > 0 && req.Add != nil {
			data.IPAddress = req.Add.IPAddress
			data.ReasonCode = req.Add.ReasonCode
		}
	}

	entries, err := h.denyList.List(r.Context())
	if err != nil {
		h.serverError(w, r, "deny access", err)
		return
	}
	data.Entries = entries
	data.Reasons = models.DenyReasons

	page := h.newPage(w, r, principal, "Deny Access")
	page.Notice = notice
	page.Errors = fieldErrs
	page.Data = data
	h.render(w, r, views.PageDenyAccess, page)
}

// newPage issues the tokens every rendered form carries
func (h *AdminHandler) newPage(w http.ResponseWriter, r *http.Request, principal models.Principal, title string) views.Page {
	return views.Page{
		Title:     title,
		Principal: &principal,
		Token:     h.issueToken(principal),
		SiteHash:  h.csrf.SiteHash(w, r),
	}
}

func (h *AdminHandler) issueToken(principal models.Principal) string {
	token, err := h.csrf.GenerateToken(principal.UserID)
	if err != nil {
		h.logger.Error("failed to generate form token", slog.Int64("user_id", principal.UserID), slog.Any("error", err))
		return ""
	}
	return token
}

// writeSuccess writes the AJAX success envelope with a fresh token and the site hash
func (h *AdminHandler) writeSuccess(w http.ResponseWriter, r *http.Request, principal models.Principal, fields pkghttp.Envelope) {
	if fields == nil {
		fields = pkghttp.Envelope{}
	}
	fields["token"] = h.issueToken(principal)
	fields["ci_csrf_token"] = h.csrf.SiteHash(w, r)
	pkghttp.WriteEnvelopeSuccess(w, fields)
}

// writeFieldErrors answers an AJAX submission whose token matched but whose fields did not validate.
// The token was consumed, so a fresh one is included.
func (h *AdminHandler) writeFieldErrors(w http.ResponseWriter, r *http.Request, principal models.Principal, fields map[string]string) {
	token := h.issueToken(principal)
	pkghttp.WriteJSON(w, http.StatusOK, pkghttp.Envelope{
		"test":          pkghttp.EnvelopeError,
		"message":       fieldsMessage,
		"errors":        fields,
		"token":         token,
		"ci_csrf_token": h.csrf.SiteHash(w, r),
	})
}

func (h *AdminHandler) render(w http.ResponseWriter, r *http.Request, name string, page views.Page) {
	if err := h.views.Render(w, name, page); err != nil {
		h.serverError(w, r, name, err)
	}
}

// targetError maps the outcome of a target check to an empty-bodied status
func (h *AdminHandler) targetError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, models.ErrPrivilegeViolation):
		w.WriteHeader(http.StatusForbidden)
	case errors.Is(err, models.ErrNotFound), errors.Is(err, models.ErrInvalidTarget):
		w.WriteHeader(http.StatusNotFound)
	default:
		h.serverError(w, r, "update user", err)
	}
}

func (h *AdminHandler) serverError(w http.ResponseWriter, r *http.Request, action string, err error) {
	h.logger.Error(action+" failed", slog.Any("error", err))
	if pkghttp.IsAjax(r) {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// parseUserID accepts only positive decimal ids
func parseUserID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, models.ErrInvalidTarget
	}
	return id, nil
}

// redisplay returns submitted values for the form without the passwords
func redisplay(form userForm) models.UserInput {
	in, _ := form.input()
	in.Password = ""
	return in
}
