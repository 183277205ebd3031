package config

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Security SecurityConfig
	AMQP     AMQPConfig
	Mail     MailConfig
	Budget   BudgetConfig
}

type ServerConfig struct {
	Port             string
	Host             string
	Environment      string
	LogLevel         string
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	CORSAllowOrigins []string
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxConnections  int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MigrationsPath  string
	SeedsPath       string
	AutoMigrate     bool
	SeedDatabase    bool
}

type JWTConfig struct {
	AccessTokenDuration        time.Duration
	RefreshTokenDuration       time.Duration
	PasswordResetTokenDuration time.Duration
	PrivateKey                 *rsa.PrivateKey
	PublicKey                  *rsa.PublicKey
	Issuer                     string
}

type SecurityConfig struct {
	BCryptCost          int
	RateLimitPerSecond  int
	RateLimitBurst      int
	AuditRetention      time.Duration
	MaxFailedAttempts   int
	PasswordMinLength   int
	RequireUppercase    bool
	RequireLowercase    bool
	RequireNumbers      bool
	RequireSpecialChars bool
}

type AMQPConfig struct {
	URL         string
	Exchange    string
	Queue       string
	MaxAttempts int
}

// Enabled reports whether tasks go through a broker. Without one they run in-process.
func (c AMQPConfig) Enabled() bool {
	return c.URL != ""
}

type MailConfig struct {
	SendGridAPIKey          string
	FromEmail               string
	FromName                string
	PasswordResetTemplateID string
	FrontendURL             string
}

type BudgetConfig struct {
	NotificationCooldown time.Duration
	SweepInterval        time.Duration
}

func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "localhost"),
			Environment:  getEnv("APP_ENV", "development"),
			LogLevel:     getEnv("LOG_LEVEL", "info"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "expense_user"),
			Password:        getEnv("DB_PASSWORD", "expense_password"),
			Name:            getEnv("DB_NAME", "expense_tracker"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxConnections:  getIntEnv("DB_MAX_CONNECTIONS", 25),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour),
			MigrationsPath:  getEnv("DB_MIGRATIONS_PATH", "db/migrations"),
			SeedsPath:       getEnv("DB_SEEDS_PATH", "db/seeds"),
			AutoMigrate:     getBoolEnv("AUTO_MIGRATE", false),
			SeedDatabase:    getBoolEnv("SEED_DATABASE", false),
		},
		Security: SecurityConfig{
			BCryptCost:          getIntEnv("BCRYPT_COST", 12),
			RateLimitPerSecond:  getIntEnv("RATE_LIMIT_PER_SECOND", 5),
			RateLimitBurst:      getIntEnv("RATE_LIMIT_BURST", 10),
			AuditRetention:      getDurationEnv("AUDIT_RETENTION", 365*24*time.Hour),
			MaxFailedAttempts:   getIntEnv("MAX_FAILED_ATTEMPTS", 5),
			PasswordMinLength:   getIntEnv("PASSWORD_MIN_LENGTH", 8),
			RequireUppercase:    getBoolEnv("PASSWORD_REQUIRE_UPPERCASE", true),
			RequireLowercase:    getBoolEnv("PASSWORD_REQUIRE_LOWERCASE", true),
			RequireNumbers:      getBoolEnv("PASSWORD_REQUIRE_NUMBERS", true),
			RequireSpecialChars: getBoolEnv("PASSWORD_REQUIRE_SPECIAL", false),
		},
		JWT: JWTConfig{
			AccessTokenDuration:        getDurationEnv("JWT_ACCESS_TOKEN_DURATION", 24*time.Hour),
			RefreshTokenDuration:       getDurationEnv("JWT_REFRESH_TOKEN_DURATION", 7*24*time.Hour),
			PasswordResetTokenDuration: getDurationEnv("JWT_PASSWORD_RESET_DURATION", time.Hour),
			Issuer:                     getEnv("JWT_ISSUER", "expense-tracker"),
		},
		AMQP: AMQPConfig{
			URL:         getEnv("AMQP_URL", ""),
			Exchange:    getEnv("AMQP_EXCHANGE", "expense_tracker"),
			Queue:       getEnv("AMQP_QUEUE", "expense_tracker.tasks"),
			MaxAttempts: getIntEnv("AMQP_MAX_ATTEMPTS", 5),
		},
		Mail: MailConfig{
			SendGridAPIKey:          getEnv("SENDGRID_API_KEY", ""),
			FromEmail:               getEnv("MAIL_FROM_EMAIL", "no-reply@expense-tracker.local"),
			FromName:                getEnv("MAIL_FROM_NAME", "Expense Tracker"),
			PasswordResetTemplateID: getEnv("SENDGRID_PASSWORD_RESET_TEMPLATE_ID", ""),
			FrontendURL:             strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:3000"), "/"),
		},
		Budget: BudgetConfig{
			NotificationCooldown: getDurationEnv("BUDGET_NOTIFICATION_COOLDOWN", 24*time.Hour),
			SweepInterval:        getDurationEnv("BUDGET_SWEEP_INTERVAL", 24*time.Hour),
		},
	}

	config.Server.CORSAllowOrigins = getListEnv("CORS_ALLOW_ORIGINS", []string{"*"})
	if config.IsProduction() && len(config.Server.CORSAllowOrigins) == 1 && config.Server.CORSAllowOrigins[0] == "*" {
		slog.Warn("CORS_ALLOW_ORIGINS not set in production, allowing all origins")
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	var err error
	config.JWT.PrivateKey, config.JWT.PublicKey, err = config.loadJWTKeys()
	if err != nil {
		return nil, fmt.Errorf("failed to load RSA keys: %w", err)
	}

	return config, nil
}

// validate rejects settings the services cannot run with
func (c *Config) validate() error {
	var problems []error
	check := func(ok bool, format string, args ...interface{}) {
		if !ok {
			problems = append(problems, fmt.Errorf(format, args...))
		}
	}

	check(c.Security.BCryptCost >= 4 && c.Security.BCryptCost <= 31, "BCRYPT_COST must be between 4 and 31, got %d", c.Security.BCryptCost)
	check(c.Security.RateLimitPerSecond > 0, "RATE_LIMIT_PER_SECOND must be positive")
	check(c.Security.RateLimitBurst >= c.Security.RateLimitPerSecond, "RATE_LIMIT_BURST must be at least RATE_LIMIT_PER_SECOND")
	check(c.Security.MaxFailedAttempts > 0, "MAX_FAILED_ATTEMPTS must be positive")
	check(c.Security.AuditRetention >= 0, "AUDIT_RETENTION cannot be negative")
	check(c.JWT.AccessTokenDuration > 0 && c.JWT.RefreshTokenDuration > 0, "JWT token durations must be positive")
	check(c.Budget.NotificationCooldown >= 0, "BUDGET_NOTIFICATION_COOLDOWN cannot be negative")
	check(c.Budget.SweepInterval > 0, "BUDGET_SWEEP_INTERVAL must be positive")
	check(c.AMQP.MaxAttempts > 0, "AMQP_MAX_ATTEMPTS must be positive")

	if err := errors.Join(problems...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func (c *Config) IsTesting() bool {
	return c.Server.Environment == "testing"
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Server.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
