package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

const defaultCheckoutPath = "/functions/v1/stripe-checkout"

type Config struct {
	AppHost   string `envconfig:"APP_HOST" default:"localhost"`
	AppPort   string `envconfig:"APP_PORT" default:"4000"`
	AppEnv    string `envconfig:"APP_ENV" default:"prod" validate:"oneof=dev prod test"`
	PublicURL string `envconfig:"PUBLIC_URL" default:"http://localhost:4000" validate:"required,url"`

	// External auth/data backend
	BackendURL       string        `envconfig:"BACKEND_URL" required:"true" validate:"required,url"`
	BackendAnonKey   string        `envconfig:"BACKEND_ANON_KEY" required:"true" validate:"required"`
	CheckoutEndpoint string        `envconfig:"CHECKOUT_ENDPOINT" validate:"omitempty,url"`
	JWTSecret        string        `envconfig:"JWT_SECRET"`
	JWKSURL          string        `envconfig:"JWKS_URL" validate:"omitempty,url"`
	HTTPTimeout      time.Duration `envconfig:"HTTP_TIMEOUT" default:"15s"`

	// Where subscription rows are read from
	SubscriptionSource      string `envconfig:"SUBSCRIPTION_SOURCE" default:"rest" validate:"oneof=rest postgres"`
	SubscriptionDatabaseURL string `envconfig:"SUBSCRIPTION_DATABASE_URL" validate:"required_if=SubscriptionSource postgres"`

	// Redis (sessions + checkout guard)
	CacheHost     string        `envconfig:"CACHE_HOST" default:"localhost"`
	CachePort     int           `envconfig:"CACHE_PORT" default:"6379"`
	CachePassword string        `envconfig:"CACHE_PASSWORD"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"1h"`

	// MySQL audit database
	AuditEnabled bool   `envconfig:"AUDIT_ENABLED" default:"true"`
	DBHost       string `envconfig:"DB_HOST" default:"127.0.0.1"`
	DBPort       string `envconfig:"DB_PORT" default:"3306"`
	DBUser       string `envconfig:"DB_USER" default:"plandeck"`
	DBPassword   string `envconfig:"DB_PASSWORD"`
	DBName       string `envconfig:"DB_NAME" default:"plandeck"`

	// Checkout + confirmation
	CheckoutGuard        string        `envconfig:"CHECKOUT_GUARD" default:"redis" validate:"oneof=memory redis"`
	ConfirmGrace         time.Duration `envconfig:"CONFIRM_GRACE" default:"3s"`
	ConfirmFollowUps     int           `envconfig:"CONFIRM_FOLLOW_UPS" default:"0" validate:"gte=0,lte=10"`
	ConfirmFollowUpDelay time.Duration `envconfig:"CONFIRM_FOLLOW_UP_DELAY" default:"5s"`

	PlanCatalogFile string `envconfig:"PLAN_CATALOG_FILE"`

	HCaptchaSiteKey string `envconfig:"HCAPTCHA_SITEKEY"`
	HCaptchaSecret  string `envconfig:"HCAPTCHA_SECRET"`

	MetricsUser     string `envconfig:"METRICS_USER" default:"admin"`
	MetricsPassword string `envconfig:"METRICS_PASSWORD"`
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.BackendURL = strings.TrimRight(strings.TrimSpace(c.BackendURL), "/")
	c.PublicURL = strings.TrimRight(strings.TrimSpace(c.PublicURL), "/")
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.ConfirmGrace <= 0 {
		return fmt.Errorf("invalid configuration: CONFIRM_GRACE must be positive")
	}
	return nil
}

func (c *Config) IsDev() bool {
	return c.AppEnv == "dev"
}

func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%s", c.AppHost, c.AppPort)
}

// CheckoutURL is the remote checkout-session endpoint. Defaults to the
// backend's stripe-checkout function.
func (c *Config) CheckoutURL() string {
	if c.CheckoutEndpoint != "" {
		return c.CheckoutEndpoint
	}
	return c.BackendURL + defaultCheckoutPath
}

// SuccessURL and CancelURL are the processor's return targets.
func (c *Config) SuccessURL() string {
	return c.PublicURL + "/success"
}

func (c *Config) CancelURL(from string) string {
	switch from {
	case "/", "/pricing":
		return c.PublicURL + from
	default:
		return c.PublicURL + "/pricing"
	}
}

func (c *Config) CacheAddr() string {
	return fmt.Sprintf("%s:%d", c.CacheHost, c.CachePort)
}

// MySQLDSN is the gorm DSN for the audit database.
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// MigrateURL is the golang-migrate URL for the audit database.
func (c *Config) MigrateURL() string {
	return fmt.Sprintf("mysql://%s:%s@tcp(%s:%s)/%s?multiStatements=true",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}
