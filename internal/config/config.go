package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Pricing    PricingConfig    `yaml:"pricing"`
	Layout     LayoutConfig     `yaml:"layout"`
	Billing    BillingConfig    `yaml:"billing"`
	Company    CompanyConfig    `yaml:"company"`
	Mail       MailConfig       `yaml:"mail"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Google     GoogleConfig     `yaml:"google"`
	Exports    ExportConfig     `yaml:"exports"`
	Uploads    UploadConfig     `yaml:"uploads"`
	Audit      AuditConfig      `yaml:"audit"`
	Outbox     OutboxConfig     `yaml:"outbox"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type APIConfig struct {
	HTTP      APIHTTPConfig      `yaml:"http"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
	CORS      APICORSConfig      `yaml:"cors"`
}

type APIHTTPConfig struct {
	Port int `yaml:"port"`
}

type APIAuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
	Issuer    string        `yaml:"issuer"`
}

// APIRateLimitConfig applies to the public intake endpoints, per client IP.
type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type APICORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address   string `yaml:"address"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	PoolSize  int    `yaml:"pool_size"`
	KeyPrefix string `yaml:"key_prefix"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

// PricingConfig holds the fixed age-bracket prices, in cents.
type PricingConfig struct {
	ChildPriceCents int64 `yaml:"child_price_cents"`
	AdultPriceCents int64 `yaml:"adult_price_cents"`
}

type LayoutConfig struct {
	RoomCount    int    `yaml:"room_count"`
	RoomCapacity int    `yaml:"room_capacity"`
	BedConfig    string `yaml:"bed_config"`
}

type BillingConfig struct {
	OverdueSweepInterval time.Duration `yaml:"overdue_sweep_interval"`
	DefaultMethod        string        `yaml:"default_method"`
	// ReceiptSecret signs receipt verification codes.
	ReceiptSecret string `yaml:"receipt_secret"`
}

type CompanyConfig struct {
	FetchRetries    int           `yaml:"fetch_retries"`
	FetchRetryDelay time.Duration `yaml:"fetch_retry_delay"`
}

type MailConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	TLS      bool   `yaml:"tls"`
}

type TelegramConfig struct {
	BotToken    string `yaml:"bot_token"`
	StaffChatID int64  `yaml:"staff_chat_id"`
	Debug       bool   `yaml:"debug"`
}

type GoogleConfig struct {
	GoogleCredentialsFile string `yaml:"credentials_file"`
	RosterSpreadSheetID   string `yaml:"roster_spreadsheet_id"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type UploadConfig struct {
	Path         string   `yaml:"path"`
	MaxSizeBytes int64    `yaml:"max_size_bytes"`
	AllowedTypes []string `yaml:"allowed_types"`
}

type AuditConfig struct {
	MaxEntries    int `yaml:"max_entries"`
	RetentionDays int `yaml:"retention_days"`
}

type OutboxConfig struct {
	PollInterval  time.Duration `yaml:"poll_interval"`
	BatchSize     int           `yaml:"batch_size"`
	MaxRetries    int           `yaml:"max_retries"`
	InitialDelay  time.Duration `yaml:"initial_delay"`
	MaxDelay      time.Duration `yaml:"max_delay"`
	BackoffFactor float64       `yaml:"backoff_factor"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; variables may come from the environment directly.
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if c.API.Auth.JWTSecret == "" || c.API.Auth.JWTSecret == "CHANGE_ME" {
		return errors.New("api.auth.jwt_secret is required")
	}
	if c.Pricing.ChildPriceCents < 0 || c.Pricing.AdultPriceCents < 0 {
		return errors.New("pricing values must not be negative")
	}
	if c.Layout.RoomCount < 0 || c.Layout.RoomCapacity <= 0 {
		return fmt.Errorf("invalid room layout: count=%d capacity=%d", c.Layout.RoomCount, c.Layout.RoomCapacity)
	}
	if c.Mail.Enabled && (c.Mail.Host == "" || c.Mail.From == "") {
		return errors.New("mail.host and mail.from are required when mail is enabled")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "viagens"
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.API.Auth.TokenTTL == 0 {
		c.API.Auth.TokenTTL = 24 * time.Hour
	}
	if c.API.Auth.Issuer == "" {
		c.API.Auth.Issuer = c.App.Name
	}
	if c.API.RateLimit.RPS == 0 {
		c.API.RateLimit.RPS = 1
	}
	if c.API.RateLimit.Burst == 0 {
		c.API.RateLimit.Burst = 5
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "viagens:"
	}

	if c.Pricing.ChildPriceCents == 0 {
		c.Pricing.ChildPriceCents = DefaultChildPriceCents
	}
	if c.Pricing.AdultPriceCents == 0 {
		c.Pricing.AdultPriceCents = DefaultAdultPriceCents
	}
	if c.Layout.RoomCount == 0 {
		c.Layout.RoomCount = DefaultRoomCount
	}
	if c.Layout.RoomCapacity == 0 {
		c.Layout.RoomCapacity = DefaultRoomCapacity
	}
	if c.Layout.BedConfig == "" {
		c.Layout.BedConfig = DefaultBedConfig
	}

	if c.Billing.OverdueSweepInterval == 0 {
		c.Billing.OverdueSweepInterval = time.Hour
	}
	if c.Billing.DefaultMethod == "" {
		c.Billing.DefaultMethod = "pix"
	}
	if c.Billing.ReceiptSecret == "" {
		c.Billing.ReceiptSecret = c.API.Auth.JWTSecret
	}
	if c.Company.FetchRetries == 0 {
		c.Company.FetchRetries = 3
	}
	if c.Company.FetchRetryDelay == 0 {
		c.Company.FetchRetryDelay = time.Second
	}
	if c.Mail.Port == 0 {
		c.Mail.Port = 587
	}

	if c.Exports.Path == "" {
		c.Exports.Path = "data/exports"
	}
	if c.Uploads.Path == "" {
		c.Uploads.Path = "data/uploads"
	}
	if c.Uploads.MaxSizeBytes == 0 {
		c.Uploads.MaxSizeBytes = 10 << 20
	}
	if len(c.Uploads.AllowedTypes) == 0 {
		c.Uploads.AllowedTypes = []string{"application/pdf", "image/jpeg", "image/png"}
	}
	if c.Backup.StoragePath == "" {
		c.Backup.StoragePath = "data/backups"
	}

	if c.Audit.MaxEntries == 0 {
		c.Audit.MaxEntries = 500
	}
	if c.Audit.RetentionDays == 0 {
		c.Audit.RetentionDays = 90
	}

	if c.Outbox.PollInterval == 0 {
		c.Outbox.PollInterval = 2 * time.Second
	}
	if c.Outbox.BatchSize == 0 {
		c.Outbox.BatchSize = 20
	}
	if c.Outbox.MaxRetries == 0 {
		c.Outbox.MaxRetries = 5
	}
}
