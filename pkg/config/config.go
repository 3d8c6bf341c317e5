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
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Stripe       StripeConfig
	Checkout     CheckoutConfig
	CartSession  CartSessionConfig
	Settings     SettingsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Sendgrid     SendgridConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if cfg.App.IsProd() {
		if err := cfg.validateProd(); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

func (c *Config) validateProd() error {
	missing := []string{}
	if strings.TrimSpace(c.Stripe.SecretKey) == "" {
		missing = append(missing, EnvStripeSecretKey)
	}
	if strings.TrimSpace(c.Stripe.WebhookSecret) == "" {
		missing = append(missing, EnvStripeWebhookSecret)
	}
	if len(c.CartSession.Secret) < 32 {
		missing = append(missing, EnvCartSessionSecret+" (>=32 bytes)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("production config missing: %s", strings.Join(missing, ", "))
	}
	return nil
}

type AppConfig struct {
	Env          string `envconfig:"ORDERING_APP_ENV" required:"true"`
	Port         string `envconfig:"ORDERING_APP_PORT" required:"true"`
	PublicURL    string `envconfig:"ORDERING_APP_PUBLIC_URL" default:"http://localhost:3000"`
	LogLevel     string `envconfig:"ORDERING_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"ORDERING_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"ORDERING_LOG_WARN_STACK" default:"false"`
	// CORSOrigins is a comma-separated allow list; PublicURL is always allowed.
	CORSOrigins []string `envconfig:"ORDERING_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"ORDERING_DB_DSN"`

	Host     string `envconfig:"ORDERING_DB_HOST"`
	Port     int    `envconfig:"ORDERING_DB_PORT" default:"5432"`
	User     string `envconfig:"ORDERING_DB_USER"`
	Password string `envconfig:"ORDERING_DB_PASSWORD"`
	Name     string `envconfig:"ORDERING_DB_NAME"`
	SSLMode  string `envconfig:"ORDERING_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ORDERING_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ORDERING_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ORDERING_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ORDERING_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"ORDERING_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ORDERING_REDIS_URL" required:"true"`
	PoolSize     int           `envconfig:"ORDERING_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ORDERING_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ORDERING_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ORDERING_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"ORDERING_REDIS_WRITE_TIMEOUT" default:"3s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"ORDERING_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"ORDERING_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"ORDERING_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"ORDERING_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"ORDERING_AUTO_MIGRATE" default:"false"`
	// TransactionalOrders=false switches order creation to the two-step insert
	// with a compensating delete, for stores that cannot hold a transaction.
	TransactionalOrders bool `envconfig:"ORDERING_TRANSACTIONAL_ORDERS" default:"true"`
}

type StripeConfig struct {
	SecretKey     string `envconfig:"ORDERING_STRIPE_SECRET_KEY"`
	WebhookSecret string `envconfig:"ORDERING_STRIPE_WEBHOOK_SECRET"`
	Env           string `envconfig:"ORDERING_STRIPE_ENV" default:"test"`
	Currency      string `envconfig:"ORDERING_STRIPE_CURRENCY" default:"gbp"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type CheckoutConfig struct {
	SuccessPath    string        `envconfig:"ORDERING_CHECKOUT_SUCCESS_PATH" default:"/checkout/success?session_id={CHECKOUT_SESSION_ID}"`
	CancelPath     string        `envconfig:"ORDERING_CHECKOUT_CANCEL_PATH" default:"/checkout"`
	GatewayTimeout time.Duration `envconfig:"ORDERING_CHECKOUT_GATEWAY_TIMEOUT" default:"15s"`
	// RateLimit caps payment sessions per user per RateWindow.
	RateLimit  int           `envconfig:"ORDERING_CHECKOUT_RATE_LIMIT" default:"10"`
	RateWindow time.Duration `envconfig:"ORDERING_CHECKOUT_RATE_WINDOW" default:"1m"`
}

// Timeout returns the gateway timeout clamped to [10s, 30s].
func (c CheckoutConfig) Timeout() time.Duration {
	switch {
	case c.GatewayTimeout < MinGatewayTimeout:
		return MinGatewayTimeout
	case c.GatewayTimeout > MaxGatewayTimeout:
		return MaxGatewayTimeout
	default:
		return c.GatewayTimeout
	}
}

type CartSessionConfig struct {
	Secret     string `envconfig:"ORDERING_CART_SESSION_SECRET" default:"dev-only-cart-session-secret-change-me"`
	CookieName string `envconfig:"ORDERING_CART_COOKIE_NAME" default:"guest_cart"`
	MaxAgeDays int    `envconfig:"ORDERING_CART_COOKIE_MAX_AGE_DAYS" default:"14"`
	Secure     bool   `envconfig:"ORDERING_CART_COOKIE_SECURE" default:"true"`
}

type SettingsConfig struct {
	CacheTTL time.Duration `envconfig:"ORDERING_SETTINGS_CACHE_TTL" default:"30s"`
}

type EventingConfig struct {
	WebhookIdempotencyTTL  time.Duration `envconfig:"ORDERING_WEBHOOK_IDEMPOTENCY_TTL" default:"72h"`
	ConsumerIdempotencyTTL time.Duration `envconfig:"ORDERING_CONSUMER_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"ORDERING_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	DomainTopic              string `envconfig:"ORDERING_PUBSUB_DOMAIN_TOPIC" default:"ordering-domain-events"`
	NotificationSubscription string `envconfig:"ORDERING_PUBSUB_NOTIFICATION_SUBSCRIPTION" default:"ordering-notifications"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"ORDERING_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"ORDERING_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"ORDERING_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"ORDERING_OUTBOX_RETENTION_DAYS" default:"14"`
}

type SendgridConfig struct {
	APIKey      string `envconfig:"ORDERING_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"ORDERING_SENDGRID_FROM_EMAIL" default:"orders@example.com"`
	FromName    string `envconfig:"ORDERING_SENDGRID_FROM_NAME" default:"Orders"`
}

type CronConfig struct {
	Interval         time.Duration `envconfig:"ORDERING_CRON_INTERVAL" default:"5m"`
	OrphanRetryLimit int           `envconfig:"ORDERING_CRON_ORPHAN_RETRY_LIMIT" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	for env, val := range map[string]string{EnvDBHost: db.Host, EnvDBUser: db.User, EnvDBName: db.Name} {
		if val == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(sortedCopy(missing), ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}
	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}
	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}
	db.DSN = u.String()
	return nil
}
