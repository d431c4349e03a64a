package auth

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLen = 8
	MaxPasswordLen = 72 // bcrypt ignores bytes beyond 72

	// identity fragments shorter than this are not matched against passwords
	minIdentityLen = 3
)

// BcryptCost is the work factor for new password hashes. Tests lower it.
var BcryptCost = 12

// PasswordValidationError lists every policy rule a password broke
type PasswordValidationError struct {
	Errors []string
}

func (e *PasswordValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "password rejected"
	}
	return "password " + strings.Join(e.Errors, ", ")
}

// passwordProfile is the character inventory a rule inspects
type passwordProfile struct {
	raw    string
	folded string
	upper  bool
	lower  bool
	digit  bool
	space  bool
}

func profile(password string) passwordProfile {
	p := passwordProfile{raw: password, folded: strings.ToLower(password)}
	for _, r := range password {
		p.upper = p.upper || unicode.IsUpper(r)
		p.lower = p.lower || unicode.IsLower(r)
		p.digit = p.digit || unicode.IsDigit(r)
		p.space = p.space || unicode.IsSpace(r)
	}
	return p
}

type passwordRule struct {
	broken  func(p passwordProfile) bool
	message string
}

var passwordRules = []passwordRule{
	{func(p passwordProfile) bool { return len(p.raw) < MinPasswordLen }, fmt.Sprintf("must be at least %d characters", MinPasswordLen)},
	{func(p passwordProfile) bool { return len(p.raw) > MaxPasswordLen }, fmt.Sprintf("must be at most %d characters", MaxPasswordLen)},
	{func(p passwordProfile) bool { return p.space }, "must not contain spaces"},
	{func(p passwordProfile) bool { return !p.upper }, "must contain at least one uppercase letter"},
	{func(p passwordProfile) bool { return !p.lower }, "must contain at least one lowercase letter"},
	{func(p passwordProfile) bool { return !p.digit }, "must contain at least one digit"},
	{func(p passwordProfile) bool { return blockedPasswords[p.folded] }, "is too common"},
}

var blockedPasswords = map[string]bool{
	"password":     true,
	"12345678":     true,
	"qwerty":       true,
	"abc123":       true,
	"password1":    true,
	"password123":  true,
	"password123!": true,
	"letmein":      true,
	"welcome":      true,
	"welcome1":     true,
	"passw0rd":     true,
	"trustno1":     true,
	"changeme":     true,
}

// HashPassword returns the bcrypt hash stored in users.passwd
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// ComparePassword returns nil when password matches the stored hash
func ComparePassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// ValidatePassword checks a password set by staff against the policy.
// identity carries the account's username and email; a password that
// contains either (or the email's local part) is rejected.
func ValidatePassword(password string, identity ...string) error {
	p := profile(password)

	var broken []string
	for _, rule := range passwordRules {
		if rule.broken(p) {
			broken = append(broken, rule.message)
		}
	}
	if containsIdentity(p.folded, identity) {
		broken = append(broken, "must not contain your username or email")
	}

	if len(broken) > 0 {
		return &PasswordValidationError{Errors: broken}
	}
	return nil
}

func containsIdentity(folded string, identity []string) bool {
	for _, id := range identity {
		id = strings.ToLower(strings.TrimSpace(id))
		if local, _, ok := strings.Cut(id, "@"); ok {
			id = local
		}
		if len(id) >= minIdentityLen && strings.Contains(folded, id) {
			return true
		}
	}
	return false
}
