// Package views renders the administration pages from embedded html/template files.
package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/BradenHooton/warden/internal/models"
	"github.com/BradenHooton/warden/pkg/pagination"
)

//go:embed templates
var templateFS embed.FS

//go:embed assets
var assetFS embed.FS

// Page names accepted by Render
const (
	PageLogin       = "login"
	PageCreateUser  = "create_user"
	PageManageUsers = "manage_users"
	PageUpdateUser  = "update_user"
	PageDenyAccess  = "deny_access"
)

// Fragment names accepted by RenderFragment
const (
	FragmentTableContent = "manage_users_table_content"
	FragmentPagination   = "pagination"
)

// Page is the data handed to the layout. Data holds the page specific view model.
type Page struct {
	Title       string
	Principal   *models.Principal
	Token       string
	SiteHash    string
	Notice      string
	Error       string
	Errors      map[string]string
	Javascripts []string
	Data        any
}

// CreateUserData is the view model of the create user form
type CreateUserData struct {
	Form    models.UserInput
	Levels  []models.Level
	Created *models.User
}

// ManageUsersData is the view model of the user management listing
type ManageUsersData struct {
	Options   []models.SearchOption
	SearchIn  string
	SearchFor string
	Total     int
	Table     TableData
	Links     pagination.Links
}

// TableData feeds the table rows fragment, which is also returned to AJAX callers
type TableData struct {
	Users    []*models.User
	Page     int
	Token    string
	SiteHash string
}

// UpdateUserData is the view model of the update user form
type UpdateUserData struct {
	User   *models.User
	Levels []models.Level
}

// DenyAccessData is the view model of the deny list page. Entries is nil when the feature is off.
type DenyAccessData struct {
	Enabled    bool
	Entries    []models.DenyListEntry
	Reasons    map[int]string
	IPAddress  string
	ReasonCode int
}

// LoginData is the view model of the login form
type LoginData struct {
	Login string
}

// UserFields feeds the shared profile fieldset. User is a *models.User or a models.UserInput.
type UserFields struct {
	User             any
	Levels           []models.Level
	Errors           map[string]string
	PasswordRequired bool
}

// Renderer executes the parsed page and fragment templates
type Renderer struct {
	pages     map[string]*template.Template
	fragments *template.Template
}

var funcs = template.FuncMap{
	"fieldError": func(errs map[string]string, field string) string {
		return errs[field]
	},
	"deleteURL": func(userID int64, page int) string {
		if page > 1 {
			return fmt.Sprintf("/administration/delete_user/%d/%d", userID, page)
		}
		return fmt.Sprintf("/administration/delete_user/%d", userID)
	},
	"updateURL": func(userID int64) string {
		return fmt.Sprintf("/administration/update_user/%d", userID)
	},
	"userFields": func(user any, levels []models.Level, errs map[string]string, passwordRequired bool) UserFields {
		return UserFields{User: user, Levels: levels, Errors: errs, PasswordRequired: passwordRequired}
	},
	"isEmployee": func(p *models.Principal) bool {
		return p != nil && p.InGroup(models.GroupEmployees)
	},
	"isAdmin": func(p *models.Principal) bool {
		return p != nil && p.HasRole(models.RoleAdmin)
	},
}

// New parses every embedded template. Each page is parsed together with the layout and partials.
func New() (*Renderer, error) {
	partials, err := fs.Glob(templateFS, "templates/partials/*.html")
	if err != nil {
		return nil, err
	}

	fragments, err := template.New("fragments").Funcs(funcs).ParseFS(templateFS, partials...)
	if err != nil {
		return nil, fmt.Errorf("parse partials: %w", err)
	}

	pageFiles, err := fs.Glob(templateFS, "templates/pages/*.html")
	if err != nil {
		return nil, err
	}

	pages := make(map[string]*template.Template, len(pageFiles))
	for _, file := range pageFiles {
		name := strings.TrimSuffix(path.Base(file), ".html")
		files := append([]string{"templates/layout.html", file}, partials...)
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(templateFS, files...)
		if err != nil {
			return nil, fmt.Errorf("parse page %s: %w", name, err)
		}
		pages[name] = tmpl
	}

	return &Renderer{pages: pages, fragments: fragments}, nil
}

// Render writes a full page inside the layout. The page is buffered so a template
// error never leaves a half written response.
func (r *Renderer) Render(w io.Writer, name string, page Page) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", page); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}

	if hw, ok := w.(http.ResponseWriter); ok {
		hw.Header().Set("Content-Type", "text/html; charset=utf-8")
	}
	_, err := buf.WriteTo(w)
	return err
}

// RenderFragment executes a partial template and returns the HTML
func (r *Renderer) RenderFragment(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.fragments.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render fragment %s: %w", name, err)
	}
	return buf.String(), nil
}

// Assets serves the embedded static files; mount it under /assets/
func Assets() http.Handler {
	sub, err := fs.Sub(assetFS, "assets")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/assets/", http.FileServerFS(sub))
}
