package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database    DatabaseConfig
	Server      ServerConfig
	Auth        AuthConfig
	Admin       AdminConfig
	Maintenance MaintenanceConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	ForceSSL       bool
	TrustedProxies []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

type AuthConfig struct {
	JWTSecret          string
	AccessTokenExpiry  time.Duration
	CSRFTokenTTL       time.Duration
	CookieSecure       bool
	CookieSameSite     string
	CookieDomain       string
	LoginTimingBaseMs  int
	LoginTimingRandMs  int
	LoginRatePerMinute int
}

// AdminConfig carries the administration panel settings.
type AdminConfig struct {
	// DenyAccess mirrors the deny_access switch: any value above zero enables deny list management.
	DenyAccess         int
	DenyFilePath       string
	DenyFileFormat     string
	FieldEncryptionKey []byte
	UsersPerPage       int
	PaginationNumLinks int
	RatePerMinute      int

	// Bootstrap account, created only when no Admin exists
	BootstrapUsername string
	BootstrapEmail    string
	BootstrapPassword string
}

// DenyAccessEnabled reports whether deny list management is switched on.
func (c AdminConfig) DenyAccessEnabled() bool {
	return c.DenyAccess > 0
}

type MaintenanceConfig struct {
	Interval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	env := getEnv("ENV", "development")
	production := env == "production"

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "warden"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			ForceSSL:       getEnvAsBool("FORCE_SSL", false),
			TrustedProxies: getEnvAsList("TRUSTED_PROXIES"),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret:          jwtSecret,
			AccessTokenExpiry:  getEnvAsDuration("ACCESS_TOKEN_EXPIRY", 2*time.Hour),
			CSRFTokenTTL:       getEnvAsDuration("CSRF_TOKEN_TTL", 15*time.Minute),
			CookieSecure:       getEnvAsBool("COOKIE_SECURE", production),
			CookieSameSite:     getEnv("COOKIE_SAMESITE", "lax"),
			CookieDomain:       getEnv("COOKIE_DOMAIN", ""),
			LoginTimingBaseMs:  getEnvAsInt("LOGIN_TIMING_BASE_MS", 250),
			LoginTimingRandMs:  getEnvAsInt("LOGIN_TIMING_RANDOM_MS", 250),
			LoginRatePerMinute: getEnvAsInt("LOGIN_RATE_PER_MINUTE", 5),
		},
		Admin: AdminConfig{
			DenyAccess:         getEnvAsInt("DENY_ACCESS_ENABLED", 0),
			DenyFilePath:       getEnv("DENY_FILE_PATH", ""),
			DenyFileFormat:     getEnv("DENY_FILE_FORMAT", "apache"),
			UsersPerPage:       getEnvAsInt("MANAGE_USERS_PER_PAGE", 10),
			PaginationNumLinks: getEnvAsInt("MANAGE_USERS_NUM_LINKS", 2),
			RatePerMinute:      getEnvAsInt("ADMIN_RATE_PER_MINUTE", 60),
			BootstrapUsername:  getEnv("ADMIN_USERNAME", ""),
			BootstrapEmail:     getEnv("ADMIN_EMAIL", ""),
			BootstrapPassword:  getEnv("ADMIN_PASSWORD", ""),
		},
		Maintenance: MaintenanceConfig{
			Interval: getEnvAsDuration("MAINTENANCE_INTERVAL", 5*time.Minute),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if err := validateJWTSecret(jwtSecret, env); err != nil {
		return nil, err
	}

	key, err := parseEncryptionKey(getEnv("FIELD_ENCRYPTION_KEY", ""))
	if err != nil {
		return nil, err
	}
	cfg.Admin.FieldEncryptionKey = key

	if cfg.Admin.UsersPerPage < 1 {
		return nil, fmt.Errorf("MANAGE_USERS_PER_PAGE must be positive (got %d)", cfg.Admin.UsersPerPage)
	}

	switch cfg.Admin.DenyFileFormat {
	case "apache", "nginx":
	default:
		return nil, fmt.Errorf("DENY_FILE_FORMAT must be apache or nginx (got %q)", cfg.Admin.DenyFileFormat)
	}

	return cfg, nil
}

// validateJWTSecret enforces minimum security standards for JWT secret
func validateJWTSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

// parseEncryptionKey decodes the hex encoded 32 byte key used for encrypted profile fields
func parseEncryptionKey(raw string) ([]byte, error) {
	if raw == "" {
		return nil, fmt.Errorf("FIELD_ENCRYPTION_KEY is required")
	}
	key, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("FIELD_ENCRYPTION_KEY must be hex encoded: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("FIELD_ENCRYPTION_KEY must decode to 32 bytes (got %d)", len(key))
	}
	return key, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
