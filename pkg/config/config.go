package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Mail     MailConfig
	Upload   UploadConfig
	Log      LogConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port      string
	Env       string
	PublicURL string
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogLevel        string
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// JWTConfig holds token signing configuration
type JWTConfig struct {
	SigningKey                  string
	AccessTokenExpiration       time.Duration
	VerificationTokenExpiration time.Duration
}

// MailConfig holds SMTP configuration for verification emails.
// When Enabled is false the link is only written to the log.
type MailConfig struct {
	Enabled     bool
	Host        string
	Port        int
	Username    string
	Password    string
	From        string
	SendTimeout time.Duration
}

// UploadConfig holds image upload configuration
type UploadConfig struct {
	StaticDir string
	ImageDir  string
	Width     int
	Height    int
	MaxBytes  int64
}

// ImagePath returns the directory uploaded images are written to
func (c *UploadConfig) ImagePath() string {
	return strings.TrimRight(c.StaticDir, "/") + "/" + c.ImageDir
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// Load loads the application configuration from environment variables
func Load() (*Config, error) {
	// Load environment variables from .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:      getEnv("SERVER_PORT", "8080"),
			Env:       getEnv("APP_ENV", "development"),
			PublicURL: strings.TrimRight(getEnv("PUBLIC_URL", "http://localhost:8080"), "/"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Name:            getEnv("DB_NAME", "storefront"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 1*time.Hour),
			LogLevel:        getEnv("DB_LOG_LEVEL", ""),
		},
		JWT: JWTConfig{
			SigningKey:                  getEnv("JWT_SIGNING_KEY", "storefrontsecretkey"),
			AccessTokenExpiration:       getEnvAsDuration("JWT_ACCESS_TOKEN_EXPIRATION", 24*time.Hour),
			VerificationTokenExpiration: getEnvAsDuration("JWT_VERIFICATION_TOKEN_EXPIRATION", 48*time.Hour),
		},
		Mail: MailConfig{
			Enabled:     getEnvAsBool("MAIL_ENABLED", false),
			Host:        getEnv("MAIL_HOST", "localhost"),
			Port:        getEnvAsInt("MAIL_PORT", 587),
			Username:    getEnv("MAIL_USERNAME", ""),
			Password:    getEnv("MAIL_PASSWORD", ""),
			From:        getEnv("MAIL_FROM", "no-reply@storefront.local"),
			SendTimeout: getEnvAsDuration("MAIL_SEND_TIMEOUT", 30*time.Second),
		},
		Upload: UploadConfig{
			StaticDir: getEnv("STATIC_DIR", "./static"),
			ImageDir:  getEnv("IMAGE_DIR", "images"),
			Width:     getEnvAsInt("IMAGE_WIDTH", 200),
			Height:    getEnvAsInt("IMAGE_HEIGHT", 200),
			MaxBytes:  int64(getEnvAsInt("UPLOAD_MAX_BYTES", 5<<20)),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if cfg.JWT.SigningKey == "" {
		return nil, fmt.Errorf("JWT_SIGNING_KEY must not be empty")
	}
	if _, set := os.LookupEnv("JWT_SIGNING_KEY"); !set && cfg.IsProduction() {
		return nil, fmt.Errorf("JWT_SIGNING_KEY must be set when APP_ENV=production")
	}
	if cfg.Upload.Width <= 0 || cfg.Upload.Height <= 0 {
		return nil, fmt.Errorf("invalid image size %dx%d", cfg.Upload.Width, cfg.Upload.Height)
	}

	return cfg, nil
}

// IsProduction reports whether APP_ENV is "production"
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// LogFields returns the configuration as zap fields for the startup log
func (c *Config) LogFields() []zap.Field {
	return []zap.Field{
		zap.String("environment", c.Server.Env),
		zap.String("server_port", c.Server.Port),
		zap.String("public_url", c.Server.PublicURL),
		zap.String("db_host", c.Database.Host),
		zap.String("db_port", c.Database.Port),
		zap.String("db_user", c.Database.User),
		zap.String("db_name", c.Database.Name),
		zap.Bool("mail_enabled", c.Mail.Enabled),
		zap.String("image_path", c.Upload.ImagePath()),
	}
}

// Helper functions to get environment variables with defaults
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
