package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Stripe        StripeConfig
	Printify      PrintifyConfig
	Checkout      CheckoutConfig
	Admin         AdminConfig
	Webhooks      WebhooksConfig
	Cron          CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if cfg.App.IsProd() && cfg.Stripe.Secret == "" {
		return nil, fmt.Errorf("MERCHDROP_STRIPE_WEBHOOK_SECRET is required in production")
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MERCHDROP_APP_ENV" required:"true"`
	Port         string `envconfig:"MERCHDROP_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MERCHDROP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MERCHDROP_LOG_WARN_STACK" default:"false"`
	StoreName    string `envconfig:"MERCHDROP_STORE_NAME" default:"Merch Drop"`
	SiteURL      string `envconfig:"MERCHDROP_SITE_URL" default:"http://localhost:3000" validate:"url"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type ServiceConfig struct {
	Kind string `envconfig:"MERCHDROP_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"MERCHDROP_DB_DSN"`
	Driver string `envconfig:"MERCHDROP_DB_DRIVER" default:"postgres" validate:"oneof=postgres sqlite"`

	LegacyHost     string `envconfig:"MERCHDROP_DB_HOST"`
	LegacyPort     int    `envconfig:"MERCHDROP_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MERCHDROP_DB_USER"`
	LegacyPassword string `envconfig:"MERCHDROP_DB_PASSWORD"`
	LegacyName     string `envconfig:"MERCHDROP_DB_NAME"`
	LegacySSLMode  string `envconfig:"MERCHDROP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MERCHDROP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MERCHDROP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MERCHDROP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MERCHDROP_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// SlowQuery logs statements slower than this at warn level; zero disables.
	SlowQuery      time.Duration `envconfig:"MERCHDROP_DB_SLOW_QUERY" default:"500ms"`
	ConnectRetries uint64        `envconfig:"MERCHDROP_DB_CONNECT_RETRIES" default:"5"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MERCHDROP_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MERCHDROP_REDIS_ADDR"`
	Password     string        `envconfig:"MERCHDROP_REDIS_PASSWORD"`
	DB           int           `envconfig:"MERCHDROP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MERCHDROP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MERCHDROP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MERCHDROP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MERCHDROP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MERCHDROP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret string `envconfig:"MERCHDROP_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"MERCHDROP_JWT_ISSUER" default:"merchdrop"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"MERCHDROP_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"MERCHDROP_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"MERCHDROP_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"MERCHDROP_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"MERCHDROP_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	AdminSessionWindow  time.Duration `envconfig:"MERCHDROP_RATE_LIMIT_ADMIN_SESSION_WINDOW" default:"5m"`
	AdminSessionIPLimit int           `envconfig:"MERCHDROP_RATE_LIMIT_ADMIN_SESSION_IP_LIMIT" default:"10"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MERCHDROP_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"MERCHDROP_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"MERCHDROP_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"MERCHDROP_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic  string `envconfig:"MERCHDROP_PUBSUB_ORDERS_TOPIC" default:"md-order-events"`
	CatalogTopic string `envconfig:"MERCHDROP_PUBSUB_CATALOG_TOPIC" default:"md-catalog-events"`
}

type OutboxConfig struct {
	BatchSize       int           `envconfig:"MERCHDROP_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS  int           `envconfig:"MERCHDROP_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts     int           `envconfig:"MERCHDROP_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention       time.Duration `envconfig:"MERCHDROP_OUTBOX_RETENTION" default:"720h"`
	ParkedRetention time.Duration `envconfig:"MERCHDROP_OUTBOX_PARKED_RETENTION" default:"1440h"`
}

type StripeConfig struct {
	APIKey string `envconfig:"MERCHDROP_STRIPE_API_KEY"`
	Secret string `envconfig:"MERCHDROP_STRIPE_WEBHOOK_SECRET"`
	Env    string `envconfig:"MERCHDROP_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type PrintifyConfig struct {
	APIToken       string        `envconfig:"MERCHDROP_PRINTIFY_API_TOKEN"`
	ShopID         string        `envconfig:"MERCHDROP_PRINTIFY_SHOP_ID"`
	BaseURL        string        `envconfig:"MERCHDROP_PRINTIFY_BASE_URL" default:"https://api.printify.com/v1" validate:"url"`
	WebhookSecret  string        `envconfig:"MERCHDROP_PRINTIFY_WEBHOOK_SECRET"`
	RequestTimeout time.Duration `envconfig:"MERCHDROP_PRINTIFY_REQUEST_TIMEOUT" default:"30s"`
	MaxAttempts    int           `envconfig:"MERCHDROP_PRINTIFY_MAX_ATTEMPTS" default:"5" validate:"min=1"`
	RatePerSecond  float64       `envconfig:"MERCHDROP_PRINTIFY_RATE_PER_SECOND" default:"5"`
	WebhookDedupe  time.Duration `envconfig:"MERCHDROP_PRINTIFY_WEBHOOK_DEDUPE_TTL" default:"24h"`
}

// Configured reports whether provider credentials are present.
func (p PrintifyConfig) Configured() bool {
	return strings.TrimSpace(p.APIToken) != "" && strings.TrimSpace(p.ShopID) != ""
}

type CheckoutConfig struct {
	FreeShippingThreshold int64    `envconfig:"MERCHDROP_CHECKOUT_FREE_SHIPPING_THRESHOLD" default:"5000" validate:"min=0"`
	FlatShipping          int64    `envconfig:"MERCHDROP_CHECKOUT_FLAT_SHIPPING" default:"500" validate:"min=0"`
	TaxRate               string   `envconfig:"MERCHDROP_CHECKOUT_TAX_RATE" default:"0.08"`
	Currency              string   `envconfig:"MERCHDROP_CHECKOUT_CURRENCY" default:"usd" validate:"len=3"`
	AllowedCountries      []string `envconfig:"MERCHDROP_CHECKOUT_ALLOWED_COUNTRIES" default:"US,CA,GB,AU"`
	DefaultOrigin         string   `envconfig:"MERCHDROP_CHECKOUT_DEFAULT_ORIGIN" default:"http://localhost:3000"`
	GuestEmail            string   `envconfig:"MERCHDROP_CHECKOUT_GUEST_EMAIL" default:"guest@example.com" validate:"email"`
}

type AdminConfig struct {
	KeyHash    string        `envconfig:"MERCHDROP_ADMIN_KEY_HASH"`
	SessionTTL time.Duration `envconfig:"MERCHDROP_ADMIN_SESSION_TTL" default:"24h"`
}

type WebhooksConfig struct {
	ClaimLease time.Duration `envconfig:"MERCHDROP_WEBHOOK_CLAIM_LEASE" default:"10m"`
}

type CronConfig struct {
	Interval       time.Duration `envconfig:"MERCHDROP_CRON_INTERVAL" default:"1h"`
	LockTTL        time.Duration `envconfig:"MERCHDROP_CRON_LOCK_TTL" default:"50m"`
	RetentionEvery time.Duration `envconfig:"MERCHDROP_CRON_RETENTION_EVERY" default:"24h"`
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
