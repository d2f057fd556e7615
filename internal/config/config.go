package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	SMTP         SMTPConfig         `yaml:"smtp"`
	SendGrid     SendGridConfig     `yaml:"sendgrid"`
	Notification NotificationConfig `yaml:"notification"`
	JWT          JWTConfig          `yaml:"jwt"`
	Storage      StorageConfig      `yaml:"storage"`
	Share        ShareConfig        `yaml:"share"`
	Log          LogConfig          `yaml:"log"`
	Scheduler    SchedulerConfig    `yaml:"scheduler"`
	Migrations   MigrationsConfig   `yaml:"migrations"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host                   string `yaml:"host"`
	Port                   int    `yaml:"port"`
	PublicBaseURL          string `yaml:"public_base_url"` // Used to build customer-facing share links
	ReadTimeoutSeconds     int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds    int    `yaml:"write_timeout_seconds"`
	ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// SMTPConfig contains email service settings
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// SendGridConfig contains SendGrid API settings
type SendGridConfig struct {
	APIKey    string `yaml:"api_key"`
	FromEmail string `yaml:"from_email"`
	FromName  string `yaml:"from_name"`
}

// NotificationConfig controls outgoing email delivery
type NotificationConfig struct {
	Provider    string `yaml:"provider"` // "smtp", "sendgrid" or "log"
	Workers     int    `yaml:"workers"`
	QueueSize   int    `yaml:"queue_size"`
	MaxRetries  int    `yaml:"max_retries"`
	MaxAttempts int    `yaml:"max_attempts"` // Outbox attempts before a notification is abandoned
}

// JWTConfig contains staff access token settings
type JWTConfig struct {
	Secret string `yaml:"secret"`
	Issuer string `yaml:"issuer"`
}

// StorageConfig contains contract document storage settings
type StorageConfig struct {
	Type         string   `yaml:"type"`       // "mock" or "s3"
	UploadDir    string   `yaml:"upload_dir"` // For mock storage
	BaseURL      string   `yaml:"base_url"`   // Server base URL for mock URLs
	MaxPDFSizeMB int64    `yaml:"max_pdf_size_mb"`
	Primary      S3Config `yaml:"primary"`
	Fallback     S3Config `yaml:"fallback"`
}

// S3Config describes one S3 compatible bucket
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	PublicURL string `yaml:"public_url"` // Optional CDN/base URL for object links
}

// Enabled reports whether the bucket is configured
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// ShareConfig contains share link settings
type ShareConfig struct {
	DefaultExpiryDays   int    `yaml:"default_expiry_days"`
	MaxExpiryDays       int    `yaml:"max_expiry_days"`
	ViewDedupMinutes    int    `yaml:"view_dedup_minutes"`
	ViewDedupMode       string `yaml:"view_dedup_mode"` // "quote" or "visitor"
	FingerprintSecret   string `yaml:"fingerprint_secret"`
	ExpiryReminderHours int    `yaml:"expiry_reminder_hours"`
}

// ViewDedupWindow returns the viewed-event suppression window
func (c ShareConfig) ViewDedupWindow() time.Duration {
	return time.Duration(c.ViewDedupMinutes) * time.Minute
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	RetryFailedNotifications string `yaml:"retry_failed_notifications"`
	SendShareExpiryReminders string `yaml:"send_share_expiry_reminders"`
}

// MigrationsConfig controls embedded schema migrations
type MigrationsConfig struct {
	AutoApply bool `yaml:"auto_apply"`
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override with environment variables if present
	cfg.overrideWithEnv()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Database
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.Database = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		c.Database.SSLMode = val
	}

	// SMTP
	if val := os.Getenv("SMTP_HOST"); val != "" {
		c.SMTP.Host = val
	}
	if val := os.Getenv("SMTP_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.SMTP.Port)
	}
	if val := os.Getenv("SMTP_USER"); val != "" {
		c.SMTP.User = val
	}
	if val := os.Getenv("SMTP_PASSWORD"); val != "" {
		c.SMTP.Password = val
	}
	if val := os.Getenv("SMTP_FROM"); val != "" {
		c.SMTP.From = val
	}

	// SendGrid
	if val := os.Getenv("SENDGRID_API_KEY"); val != "" {
		c.SendGrid.APIKey = val
	}
	if val := os.Getenv("NOTIFICATION_PROVIDER"); val != "" {
		c.Notification.Provider = val
	}

	// JWT
	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.JWT.Secret = val
	}

	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}
	if val := os.Getenv("PUBLIC_BASE_URL"); val != "" {
		c.Server.PublicBaseURL = val
	}

	// Storage
	if val := os.Getenv("STORAGE_TYPE"); val != "" {
		c.Storage.Type = val
	}
	if val := os.Getenv("UPLOAD_DIR"); val != "" {
		c.Storage.UploadDir = val
	}
	if val := os.Getenv("S3_ACCESS_KEY"); val != "" {
		c.Storage.Primary.AccessKey = val
		c.Storage.Fallback.AccessKey = val
	}
	if val := os.Getenv("S3_SECRET_KEY"); val != "" {
		c.Storage.Primary.SecretKey = val
		c.Storage.Fallback.SecretKey = val
	}

	// Share
	if val := os.Getenv("SHARE_FINGERPRINT_SECRET"); val != "" {
		c.Share.FingerprintSecret = val
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	// Set defaults for log if not configured
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.PublicBaseURL == "" {
		c.Server.PublicBaseURL = fmt.Sprintf("http://localhost:%d", c.Server.Port)
	}
	if c.Server.ReadTimeoutSeconds <= 0 {
		c.Server.ReadTimeoutSeconds = 15
	}
	if c.Server.WriteTimeoutSeconds <= 0 {
		c.Server.WriteTimeoutSeconds = 30
	}
	if c.Server.ShutdownTimeoutSeconds <= 0 {
		c.Server.ShutdownTimeoutSeconds = 10
	}

	// Database validation
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}

	// Notification validation
	if c.Notification.Provider == "" {
		c.Notification.Provider = "smtp"
	}
	switch c.Notification.Provider {
	case "smtp":
		if c.SMTP.Host == "" {
			return fmt.Errorf("SMTP host is required")
		}
		if c.SMTP.Port <= 0 || c.SMTP.Port > 65535 {
			return fmt.Errorf("invalid SMTP port: %d", c.SMTP.Port)
		}
	case "sendgrid":
		if c.SendGrid.APIKey == "" {
			return fmt.Errorf("SendGrid API key is required")
		}
		if c.SendGrid.FromEmail == "" {
			return fmt.Errorf("SendGrid from email is required")
		}
	case "log":
	default:
		return fmt.Errorf("unsupported notification provider: %s", c.Notification.Provider)
	}
	if c.Notification.Workers <= 0 {
		c.Notification.Workers = 2
	}
	if c.Notification.QueueSize <= 0 {
		c.Notification.QueueSize = 256
	}
	if c.Notification.MaxRetries < 0 {
		c.Notification.MaxRetries = 0
	} else if c.Notification.MaxRetries == 0 {
		c.Notification.MaxRetries = 3
	}
	if c.Notification.MaxAttempts <= 0 {
		c.Notification.MaxAttempts = 8
	}

	// JWT validation
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}

	// Storage validation
	if c.Storage.Type == "" {
		c.Storage.Type = "mock"
	}
	switch c.Storage.Type {
	case "mock":
		if c.Storage.UploadDir == "" {
			return fmt.Errorf("upload directory is required")
		}
		if c.Storage.BaseURL == "" {
			c.Storage.BaseURL = c.Server.PublicBaseURL
		}
	case "s3":
		if !c.Storage.Primary.Enabled() {
			return fmt.Errorf("primary S3 bucket is required")
		}
		if c.Storage.Primary.Region == "" {
			return fmt.Errorf("primary S3 region is required")
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}
	if c.Storage.MaxPDFSizeMB <= 0 {
		c.Storage.MaxPDFSizeMB = 10
	}

	// Share defaults
	if c.Share.DefaultExpiryDays <= 0 {
		c.Share.DefaultExpiryDays = 7
	}
	if c.Share.MaxExpiryDays <= 0 {
		c.Share.MaxExpiryDays = 90
	}
	if c.Share.DefaultExpiryDays > c.Share.MaxExpiryDays {
		return fmt.Errorf("default share expiry (%d days) exceeds maximum (%d days)", c.Share.DefaultExpiryDays, c.Share.MaxExpiryDays)
	}
	if c.Share.ViewDedupMinutes <= 0 {
		c.Share.ViewDedupMinutes = 10
	}
	if c.Share.ViewDedupMode == "" {
		c.Share.ViewDedupMode = "quote"
	}
	if c.Share.ViewDedupMode != "quote" && c.Share.ViewDedupMode != "visitor" {
		return fmt.Errorf("invalid view dedup mode: %s", c.Share.ViewDedupMode)
	}
	if c.Share.ViewDedupMode == "visitor" && len(c.Share.FingerprintSecret) < 16 {
		return fmt.Errorf("fingerprint secret must be at least 16 characters in visitor dedup mode")
	}
	if c.Share.ExpiryReminderHours <= 0 {
		c.Share.ExpiryReminderHours = 24
	}

	// Scheduler defaults
	if c.Scheduler.RetryFailedNotifications == "" {
		c.Scheduler.RetryFailedNotifications = "0 */5 * * * *" // Every 5 minutes
	}
	if c.Scheduler.SendShareExpiryReminders == "" {
		c.Scheduler.SendShareExpiryReminders = "0 0 0 * * *" // Daily at midnight UTC
	}

	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection URL usable by
// both lib/pq and golang-migrate
func (c *Config) GetDatabaseConnectionString() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Database.User, c.Database.Password),
		Host:     fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port),
		Path:     "/" + c.Database.Database,
		RawQuery: "sslmode=" + url.QueryEscape(c.Database.SSLMode),
	}
	return u.String()
}

// GetServerAddress returns the HTTP server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// MaxPDFSizeBytes returns the upload limit for rendered contract documents
func (c *Config) MaxPDFSizeBytes() int64 {
	return c.Storage.MaxPDFSizeMB * 1024 * 1024
}
