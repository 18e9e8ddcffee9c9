// Package config loads service settings from the environment (and an
// optional .env file for local runs).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	ProviderMock    = "mock"
	ProviderGateway = "gateway"
)

// DevJWTSecret is the JWT_SECRET default. It is only accepted for local runs.
const DevJWTSecret = "secret-key-change-me"

type Config struct {
	Port     string `envconfig:"PORT" default:"8080"`
	RunLocal bool   `envconfig:"RUN_LOCAL" default:"false"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	AWSRegion        string        `envconfig:"AWS_REGION" default:"us-east-1"`
	AWSEndpoint      string        `envconfig:"AWS_ENDPOINT_OVERRIDE"`
	OrdersTable      string        `envconfig:"ORDERS_TABLE" default:"pos-orders"`
	TablesTable      string        `envconfig:"TABLES_TABLE" default:"pos-tables"`
	CategoriesTable  string        `envconfig:"CATEGORIES_TABLE" default:"pos-categories"`
	ProductsTable    string        `envconfig:"PRODUCTS_TABLE" default:"pos-products"`
	CustomersTable   string        `envconfig:"CUSTOMERS_TABLE" default:"pos-customers"`
	UsersTable       string        `envconfig:"USERS_TABLE" default:"pos-users"`
	CountersTable    string        `envconfig:"COUNTERS_TABLE" default:"pos-counters"`
	UniquesTable     string        `envconfig:"UNIQUES_TABLE" default:"pos-uniques"`
	IntentsTable     string        `envconfig:"INTENTS_TABLE" default:"pos-payment-intents"`
	IdempotencyTable string        `envconfig:"IDEMPOTENCY_TABLE" default:"pos-idempotency"`
	IdempotencyTTL   time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"48h"`
	QueueURL         string        `envconfig:"ORDERS_QUEUE_URL"`
	MetricsNamespace string        `envconfig:"METRICS_NAMESPACE"`

	JWTSecret    string        `envconfig:"JWT_SECRET" default:"secret-key-change-me"`
	JWTExpiresIn time.Duration `envconfig:"JWT_EXPIRES_IN" default:"2160h"`

	PaymentProvider   string        `envconfig:"PAYMENT_PROVIDER" default:"mock"`
	RazorpayKeyID     string        `envconfig:"RAZORPAY_KEY_ID"`
	RazorpayKeySecret string        `envconfig:"RAZORPAY_KEY_SECRET"`
	RazorpayBaseURL   string        `envconfig:"RAZORPAY_BASE_URL" default:"https://api.razorpay.com/v1"`
	IntentTTL         time.Duration `envconfig:"PAYMENT_INTENT_TTL" default:"1h"`
	Currency          string        `envconfig:"CURRENCY" default:"INR"`
	Timezone          string        `envconfig:"TIMEZONE" default:"Local"`

	CORSOrigins        []string `envconfig:"CORS_ORIGINS" default:"http://localhost:5173"`
	LoginRatePerMinute int      `envconfig:"LOGIN_RATE_PER_MINUTE" default:"20"`
}

// Load reads an optional .env file, then the process environment.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.PaymentProvider = strings.ToLower(strings.TrimSpace(c.PaymentProvider))
	switch c.PaymentProvider {
	case ProviderMock, ProviderGateway:
	default:
		return fmt.Errorf("PAYMENT_PROVIDER must be %q or %q, got %q", ProviderMock, ProviderGateway, c.PaymentProvider)
	}
	if c.JWTSecret == "" || (c.JWTSecret == DevJWTSecret && !c.RunLocal) {
		return errors.New("JWT_SECRET must be set outside local runs")
	}
	if c.JWTExpiresIn <= 0 {
		return errors.New("JWT_EXPIRES_IN must be positive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// EffectiveProvider is the provider actually used: the gateway needs both
// key id and secret, otherwise settlement runs in mock mode.
func (c *Config) EffectiveProvider() string {
	if c.PaymentProvider == ProviderGateway && c.RazorpayKeyID != "" && c.RazorpayKeySecret != "" {
		return ProviderGateway
	}
	return ProviderMock
}

// Location is the time zone used for invoice dates.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE: %w", err)
	}
	return loc, nil
}
