package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Cart         CartConfig
	Checkout     CheckoutConfig
	Stripe       StripeConfig
	Sweep        SweepConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"OSCSHOP_APP_ENV" required:"true"`
	Port         string `envconfig:"OSCSHOP_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"OSCSHOP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"OSCSHOP_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"OSCSHOP_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"OSCSHOP_DB_DSN"`
	Driver string `envconfig:"OSCSHOP_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"OSCSHOP_DB_HOST"`
	LegacyPort     int    `envconfig:"OSCSHOP_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"OSCSHOP_DB_USER"`
	LegacyPassword string `envconfig:"OSCSHOP_DB_PASSWORD"`
	LegacyName     string `envconfig:"OSCSHOP_DB_NAME"`
	LegacySSLMode  string `envconfig:"OSCSHOP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"OSCSHOP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"OSCSHOP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"OSCSHOP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"OSCSHOP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"OSCSHOP_REDIS_URL" required:"true"`
	Address      string        `envconfig:"OSCSHOP_REDIS_ADDR"`
	Password     string        `envconfig:"OSCSHOP_REDIS_PASSWORD"`
	DB           int           `envconfig:"OSCSHOP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"OSCSHOP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"OSCSHOP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"OSCSHOP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"OSCSHOP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"OSCSHOP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type CartConfig struct {
	TTL time.Duration `envconfig:"OSCSHOP_CART_TTL" default:"24h"`
}

type CheckoutConfig struct {
	SuccessURL        string        `envconfig:"OSCSHOP_CHECKOUT_SUCCESS_URL" required:"true"`
	CancelURL         string        `envconfig:"OSCSHOP_CHECKOUT_CANCEL_URL" required:"true"`
	OrderNumberPrefix string        `envconfig:"OSCSHOP_ORDER_NUMBER_PREFIX" default:"OSC"`
	WebhookEventTTL   time.Duration `envconfig:"OSCSHOP_WEBHOOK_EVENT_TTL" default:"720h"`
}

type StripeConfig struct {
	APIKey string `envconfig:"OSCSHOP_STRIPE_API_KEY"`
	Secret string `envconfig:"OSCSHOP_STRIPE_SECRET"`
	Env    string `envconfig:"OSCSHOP_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type SweepConfig struct {
	PendingOrderTTL time.Duration `envconfig:"OSCSHOP_SWEEP_PENDING_ORDER_TTL" default:"24h"`
	Interval        time.Duration `envconfig:"OSCSHOP_SWEEP_INTERVAL" default:"1h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"OSCSHOP_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
