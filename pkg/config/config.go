package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix scopes all environment variables consumed by the service.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Midtrans MidtransConfig
	Shipping ShippingConfig
	Checkout CheckoutConfig
	CORS     CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env      string `envconfig:"LOKAPASAR_APP_ENV" default:"dev"`
	Port     string `envconfig:"LOKAPASAR_APP_PORT" default:"8080"`
	LogLevel string `envconfig:"LOKAPASAR_LOG_LEVEL" default:"info"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"LOKAPASAR_DB_DSN"`

	Host     string `envconfig:"LOKAPASAR_DB_HOST" default:"localhost"`
	Port     int    `envconfig:"LOKAPASAR_DB_PORT" default:"5432"`
	User     string `envconfig:"LOKAPASAR_DB_USER"`
	Password string `envconfig:"LOKAPASAR_DB_PASSWORD"`
	Name     string `envconfig:"LOKAPASAR_DB_NAME"`
	SSLMode  string `envconfig:"LOKAPASAR_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LOKAPASAR_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LOKAPASAR_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LOKAPASAR_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LOKAPASAR_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.User == "" || d.Name == "" {
		return fmt.Errorf("database DSN or host credentials are required")
	}
	d.DSN = fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(d.User),
		url.QueryEscape(d.Password),
		d.Host,
		d.Port,
		d.Name,
		d.SSLMode,
	)
	return nil
}

type RedisConfig struct {
	Address      string        `envconfig:"LOKAPASAR_REDIS_ADDR" default:"localhost:6379"`
	Password     string        `envconfig:"LOKAPASAR_REDIS_PASSWORD"`
	DB           int           `envconfig:"LOKAPASAR_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LOKAPASAR_REDIS_POOL_SIZE" default:"10"`
	DialTimeout  time.Duration `envconfig:"LOKAPASAR_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LOKAPASAR_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LOKAPASAR_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret string `envconfig:"LOKAPASAR_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"LOKAPASAR_JWT_ISSUER" default:"lokapasar"`
}

// MidtransConfig holds the payment gateway credentials.
type MidtransConfig struct {
	ServerKey   string        `envconfig:"LOKAPASAR_MIDTRANS_SERVER_KEY" required:"true"`
	Environment string        `envconfig:"LOKAPASAR_MIDTRANS_ENV" default:"sandbox"`
	SnapExpiry  time.Duration `envconfig:"LOKAPASAR_MIDTRANS_SNAP_EXPIRY" default:"24h"`
}

// ShippingConfig points at the external rate-quotation service.
type ShippingConfig struct {
	BaseURL string        `envconfig:"LOKAPASAR_SHIPPING_BASE_URL"`
	APIKey  string        `envconfig:"LOKAPASAR_SHIPPING_API_KEY"`
	Timeout time.Duration `envconfig:"LOKAPASAR_SHIPPING_TIMEOUT" default:"10s"`
}

// CheckoutConfig tunes order-creation behavior.
type CheckoutConfig struct {
	// RetryOnConflict controls the single automatic retry after a lost
	// stock or quota race.
	RetryOnConflict bool          `envconfig:"LOKAPASAR_CHECKOUT_RETRY_ON_CONFLICT" default:"true"`
	RetryBackoff    time.Duration `envconfig:"LOKAPASAR_CHECKOUT_RETRY_BACKOFF" default:"50ms"`
	// UnpaidTTL bounds how long a pending_unpaid order stays payable
	// before the sweep cancels it.
	UnpaidTTL time.Duration `envconfig:"LOKAPASAR_CHECKOUT_UNPAID_TTL" default:"24h"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"LOKAPASAR_CORS_ALLOWED_ORIGINS" default:"*"`
}
