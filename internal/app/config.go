package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (MEDIHUB_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (MEDIHUB_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	Environment  string `default:"development" usage:"Deployment environment: development, staging, production"`
	APIKeyPepper string `usage:"HMAC pepper for operator API key hashing" flag:"api-key-pepper"`
	Payment      PaymentConfig
	SMTP         SMTPConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// PaymentConfig controls the payment provider client.
type PaymentConfig struct {
	BaseURL   string        `default:"https://api.paystack.co" usage:"Payment provider base URL" flag:"payment-base-url"`
	SecretKey string        `usage:"Payment provider secret key" flag:"payment-secret-key"`
	Timeout   time.Duration `default:"10s" usage:"Per-request timeout for provider calls" flag:"payment-timeout"`

	// SkipVerification replaces the provider client with a stub that
	// approves everything. Refused outside development and staging.
	SkipVerification bool `default:"false" usage:"Skip payment verification (non-production only)" flag:"payment-skip-verification"`
}

// SMTPConfig controls the email dispatcher. Leaving Host empty falls back to
// log-only notifications.
type SMTPConfig struct {
	Host          string `usage:"SMTP server host; empty disables email" flag:"smtp-host"`
	Port          int    `default:"587" usage:"SMTP server port" flag:"smtp-port"`
	Username      string `usage:"SMTP username" flag:"smtp-username"`
	Password      string `usage:"SMTP password" flag:"smtp-password"`
	From          string `usage:"Sender address for order emails" flag:"smtp-from"`
	OperatorEmail string `usage:"Recipient for new-order alerts" flag:"smtp-operator-email"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// Production reports whether the deployment environment is production.
func (c *Config) Production() bool {
	return c.Environment == "production"
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "MEDIHUB",
		Files:     []string{"config.yaml", "/etc/medihub/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set MEDIHUB_DATABASE_URL or DATABASE_URL")
	}
	if cfg.Payment.SkipVerification && cfg.Production() {
		return nil, errors.New("payment verification cannot be skipped in production")
	}
	if !cfg.Payment.SkipVerification && cfg.Payment.SecretKey == "" {
		return nil, errors.New("payment secret key is required: set MEDIHUB_PAYMENT_SECRET_KEY")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables
// (Railway, Render, etc.) that use standard names like DATABASE_URL and PORT
// to the MEDIHUB_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
