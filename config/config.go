package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	Enrollment EnrollmentConfig `yaml:"enrollment"`
	Payment    PaymentConfig    `yaml:"payment"`
	Redis      RedisConfig      `yaml:"redis"`
	Push       PushConfig       `yaml:"push"`
	Mail       MailConfig       `yaml:"mail"`
	Storage    StorageConfig    `yaml:"storage"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port                   int      `yaml:"port"`
	RateLimitPerSec        float64  `yaml:"rate_limit_per_sec"`
	RateLimitBurst         int      `yaml:"rate_limit_burst"`
	CacheTTLSeconds        int      `yaml:"cache_ttl_seconds"`
	AllowedOrigins         []string `yaml:"allowed_origins"`
	ReadTimeoutSeconds     int      `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds    int      `yaml:"write_timeout_seconds"`
	MaxUploadBytes         int64    `yaml:"max_upload_bytes"`
	ShutdownTimeoutSeconds int      `yaml:"shutdown_timeout_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	EnableChecks           bool   `yaml:"enable_checks"`
	LogLevel               string `yaml:"log_level"`
}

// AuthConfig configures the built-in identity provider.
type AuthConfig struct {
	JWTSecret       string         `yaml:"jwt_secret"`
	TokenTTLMinutes int            `yaml:"token_ttl_minutes"`
	TokenTTL        time.Duration  `yaml:"-"`
	BcryptCost      int            `yaml:"bcrypt_cost"`
	BootstrapAdmin  BootstrapAdmin `yaml:"bootstrap_admin"`
}

// BootstrapAdmin is the admin account ensured at start-up.
type BootstrapAdmin struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// EnrollmentConfig tunes the enrollment workflow.
type EnrollmentConfig struct {
	FeeAmount                float64       `yaml:"fee_amount"`
	Currency                 string        `yaml:"currency"`
	StepTimeoutSeconds       int           `yaml:"step_timeout_seconds"`
	StepTimeout              time.Duration `yaml:"-"`
	BacklinkAttempts         int           `yaml:"backlink_attempts"`
	ReconcileIntervalSeconds int           `yaml:"reconcile_interval_seconds"`
	ReconcileInterval        time.Duration `yaml:"-"`
	DisableCompensation      bool          `yaml:"disable_compensation"`
}

// PaymentConfig selects the payment gateway.
type PaymentConfig struct {
	Provider        string `yaml:"provider"`
	StripeSecretKey string `yaml:"stripe_secret_key"`
}

// RedisConfig holds the optional Redis connection used for token revocation.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// MailConfig holds the SMTP settings for outgoing mail. An empty host disables mail.
type MailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	FromName string `yaml:"from_name"`
}

// StorageConfig holds the S3 settings for avatar uploads. An empty bucket disables uploads.
type StorageConfig struct {
	Bucket        string `yaml:"bucket"`
	Region        string `yaml:"region"`
	PublicBaseURL string `yaml:"public_base_url"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// LogConfig holds the logging configuration.
type LogConfig struct {
	Level string `yaml:"level"`
}

const (
	PaymentProviderSimulated = "simulated"
	PaymentProviderStripe    = "stripe"
)

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if secret := os.Getenv("HOSTEL_JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills unset values and derives the duration fields.
func (cfg *Config) ApplyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 15
	}
	if cfg.Server.ReadTimeoutSeconds <= 0 {
		cfg.Server.ReadTimeoutSeconds = 15
	}
	if cfg.Server.WriteTimeoutSeconds <= 0 {
		cfg.Server.WriteTimeoutSeconds = 30
	}
	if cfg.Server.MaxUploadBytes <= 0 {
		cfg.Server.MaxUploadBytes = 5 << 20
	}
	if cfg.Server.ShutdownTimeoutSeconds <= 0 {
		cfg.Server.ShutdownTimeoutSeconds = 5
	}

	if cfg.Auth.TokenTTLMinutes <= 0 {
		cfg.Auth.TokenTTLMinutes = 12 * 60
	}
	cfg.Auth.TokenTTL = time.Duration(cfg.Auth.TokenTTLMinutes) * time.Minute
	if cfg.Auth.BcryptCost <= 0 {
		cfg.Auth.BcryptCost = 12
	}

	if cfg.Enrollment.FeeAmount <= 0 {
		cfg.Enrollment.FeeAmount = 1
	}
	if cfg.Enrollment.Currency == "" {
		cfg.Enrollment.Currency = "inr"
	}
	if cfg.Enrollment.StepTimeoutSeconds <= 0 {
		cfg.Enrollment.StepTimeoutSeconds = 10
	}
	cfg.Enrollment.StepTimeout = time.Duration(cfg.Enrollment.StepTimeoutSeconds) * time.Second
	if cfg.Enrollment.BacklinkAttempts <= 0 {
		cfg.Enrollment.BacklinkAttempts = 3
	}
	if cfg.Enrollment.ReconcileIntervalSeconds <= 0 {
		cfg.Enrollment.ReconcileIntervalSeconds = 60
	}
	cfg.Enrollment.ReconcileInterval = time.Duration(cfg.Enrollment.ReconcileIntervalSeconds) * time.Second

	if cfg.Payment.Provider == "" {
		cfg.Payment.Provider = PaymentProviderSimulated
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}
	if cfg.Mail.Port <= 0 {
		cfg.Mail.Port = 587
	}
	if cfg.Mail.FromName == "" {
		cfg.Mail.FromName = "Hostel Office"
	}

	if cfg.WorkerPool.Size <= 0 {
		cfg.WorkerPool.Size = 1
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
	}
}

// Validate reports configuration that the service cannot start with.
func (cfg *Config) Validate() error {
	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret must be set")
	}
	switch cfg.Payment.Provider {
	case PaymentProviderSimulated:
	case PaymentProviderStripe:
		if cfg.Payment.StripeSecretKey == "" {
			return errors.New("payment.stripe_secret_key is required for the stripe provider")
		}
	default:
		return fmt.Errorf("unknown payment.provider %q", cfg.Payment.Provider)
	}
	return nil
}
