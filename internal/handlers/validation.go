package handlers

import (
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/BradenHooton/warden/internal/models"
	"github.com/go-playground/validator/v10"
)

// Global validator instance (reused across all handlers).
// Field names in errors are taken from the form tag.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// userForm is the submitted create/update user form
type userForm struct {
	Username        string `form:"username" validate:"required,min=3,max=12,alphanum"`
	Email           string `form:"email" validate:"required,email,max=100"`
	Password        string `form:"user_pass" validate:"max=72"`
	PasswordConfirm string `form:"user_pass_confirm" validate:"eqfield=Password"`
	Level           string `form:"user_level" validate:"required,numeric"`
	Banned          bool   `form:"user_banned"`
	FirstName       string `form:"first_name" validate:"max=50"`
	LastName        string `form:"last_name" validate:"max=50"`
	LicenseNumber   string `form:"license_number" validate:"max=30"`
	StreetAddress   string `form:"street_address" validate:"max=60"`
	City            string `form:"city" validate:"max=60"`
	State           string `form:"state" validate:"max=50"`
	Zip             string `form:"zip" validate:"omitempty,max=10,numeric"`
	Phone           string `form:"phone" validate:"omitempty,max=20,e164|numeric"`
}

func parseUserForm(r *http.Request) userForm {
	banned := r.PostFormValue("user_banned")
	return userForm{
		Username:        strings.TrimSpace(r.PostFormValue("username")),
		Email:           strings.TrimSpace(r.PostFormValue("email")),
		Password:        r.PostFormValue("user_pass"),
		PasswordConfirm: r.PostFormValue("user_pass_confirm"),
		Level:           strings.TrimSpace(r.PostFormValue("user_level")),
		Banned:          banned == "1" || banned == "on",
		FirstName:       strings.TrimSpace(r.PostFormValue("first_name")),
		LastName:        strings.TrimSpace(r.PostFormValue("last_name")),
		LicenseNumber:   strings.TrimSpace(r.PostFormValue("license_number")),
		StreetAddress:   strings.TrimSpace(r.PostFormValue("street_address")),
		City:            strings.TrimSpace(r.PostFormValue("city")),
		State:           strings.TrimSpace(r.PostFormValue("state")),
		Zip:             strings.TrimSpace(r.PostFormValue("zip")),
		Phone:           strings.TrimSpace(r.PostFormValue("phone")),
	}
}

// input validates the form and converts it for the service.
// Field errors are keyed by form field name.
func (f userForm) input() (models.UserInput, map[string]string) {
	fields := ValidateForm(f)

	level, err := models.ParseLevel(f.Level)
	if err != nil && fields["user_level"] == "" {
		if fields == nil {
			fields = map[string]string{}
		}
		fields["user_level"] = "Select a valid level"
	}

	in := models.UserInput{
		Username:      f.Username,
		Email:         f.Email,
		Password:      f.Password,
		Level:         level,
		Banned:        f.Banned,
		FirstName:     f.FirstName,
		LastName:      f.LastName,
		LicenseNumber: f.LicenseNumber,
		StreetAddress: f.StreetAddress,
		City:          f.City,
		State:         f.State,
		Zip:           f.Zip,
		Phone:         f.Phone,
	}
	return in, fields
}

// ValidateForm validates a form struct using go-playground/validator.
// It returns nil when the form is valid, otherwise one message per field.
func ValidateForm(form any) map[string]string {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}

	fields := map[string]string{}
	if ve, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range ve {
			if _, seen := fields[fe.Field()]; !seen {
				fields[fe.Field()] = formatValidationError(fe)
			}
		}
		return fields
	}

	fields["form"] = "The form could not be validated"
	return fields
}

// formatValidationError converts a validator FieldError to a user-friendly message
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Must be a valid email address"
	case "min":
		return fmt.Sprintf("Must have a minimum of %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("Must have a maximum of %s characters", fe.Param())
	case "alphanum":
		return "Only letters and numbers are allowed"
	case "numeric":
		return "Only numbers are allowed"
	case "eqfield":
		return "Passwords do not match"
	case "e164|numeric":
		return "Must be a valid phone number"
	default:
		return fmt.Sprintf("Failed validation: %s", fe.Tag())
	}
}

// denialForm is the add_denial half of the deny access form
type denialForm struct {
	IPAddress  string `form:"ip_address" validate:"required,max=49"`
	ReasonCode string `form:"reason_code" validate:"required,numeric"`
}

// parseDenialForm reads an add_denial or remove_selected submission
func parseDenialForm(r *http.Request) (models.DenialRequest, map[string]string) {
	var req models.DenialRequest
	var fields map[string]string

	if r.PostFormValue("add_denial") != "" {
		form := denialForm{
			IPAddress:  strings.TrimSpace(r.PostFormValue("ip_address")),
			ReasonCode: strings.TrimSpace(r.PostFormValue("reason_code")),
		}
		fields = ValidateForm(form)
		code, _ := strconv.Atoi(form.ReasonCode)
		req.Add = &models.DenyListEntry{IPAddress: form.IPAddress, ReasonCode: code}
	}

	if r.PostFormValue("remove_selected") != "" {
		req.RemoveIPs = r.PostForm["ip_removals[]"]
	}

	return req, fields
}

func denialEventType(req models.DenialRequest) string {
	if req.Add == nil && len(req.RemoveIPs) > 0 {
		return models.AuditEventTypeDenyRemove
	}
	return models.AuditEventTypeDenyAdd
}
