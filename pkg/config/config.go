package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Eventing      EventingConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Cron          CronConfig
	Checkout      CheckoutConfig
	Stripe        StripeConfig
	SMTP          SMTPConfig
	Storage       StorageConfig
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
	Env          string   `envconfig:"PEAKRENT_APP_ENV" required:"true"`
	Port         string   `envconfig:"PEAKRENT_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"PEAKRENT_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"PEAKRENT_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"PEAKRENT_CORS_ORIGINS" default:"http://localhost:3000"`
	PublicURL    string   `envconfig:"PEAKRENT_PUBLIC_URL" default:"http://localhost:3000"`
	// MetricsAddr is where background workers expose /metrics; empty disables it.
	MetricsAddr string `envconfig:"PEAKRENT_METRICS_ADDR" default:""`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"PEAKRENT_DB_DSN"`
	Driver string `envconfig:"PEAKRENT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PEAKRENT_DB_HOST"`
	LegacyPort     int    `envconfig:"PEAKRENT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PEAKRENT_DB_USER"`
	LegacyPassword string `envconfig:"PEAKRENT_DB_PASSWORD"`
	LegacyName     string `envconfig:"PEAKRENT_DB_NAME"`
	LegacySSLMode  string `envconfig:"PEAKRENT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PEAKRENT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PEAKRENT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PEAKRENT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PEAKRENT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"PEAKRENT_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PEAKRENT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PEAKRENT_REDIS_ADDR"`
	Password     string        `envconfig:"PEAKRENT_REDIS_PASSWORD"`
	DB           int           `envconfig:"PEAKRENT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PEAKRENT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PEAKRENT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PEAKRENT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PEAKRENT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PEAKRENT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"PEAKRENT_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"PEAKRENT_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"PEAKRENT_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"PEAKRENT_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"PEAKRENT_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"PEAKRENT_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"PEAKRENT_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"PEAKRENT_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"PEAKRENT_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"PEAKRENT_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"PEAKRENT_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"PEAKRENT_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"PEAKRENT_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"PEAKRENT_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"PEAKRENT_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"PEAKRENT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"PEAKRENT_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	ConsumerIdempotencyTTL time.Duration `envconfig:"PEAKRENT_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
	WebhookIdempotencyTTL  time.Duration `envconfig:"PEAKRENT_WEBHOOK_IDEMPOTENCY_TTL" default:"24h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"PEAKRENT_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"PEAKRENT_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"PEAKRENT_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"PEAKRENT_PUBSUB_ORDERS_TOPIC" required:"true"`
	OrdersSubscription string `envconfig:"PEAKRENT_PUBSUB_ORDERS_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"PEAKRENT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"PEAKRENT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"PEAKRENT_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	Interval         time.Duration `envconfig:"PEAKRENT_CRON_INTERVAL" default:"5m"`
	LockTTL          time.Duration `envconfig:"PEAKRENT_CRON_LOCK_TTL" default:"4m"`
	AbandonedCartAge time.Duration `envconfig:"PEAKRENT_CRON_ABANDONED_CART_AGE" default:"168h"`
	OutboxRetention  time.Duration `envconfig:"PEAKRENT_CRON_OUTBOX_RETENTION" default:"720h"`
	ExpiryBatchSize  int           `envconfig:"PEAKRENT_CRON_EXPIRY_BATCH_SIZE" default:"100"`
}

type CheckoutConfig struct {
	Currency        string        `envconfig:"PEAKRENT_CHECKOUT_CURRENCY" default:"eur"`
	PendingOrderTTL time.Duration `envconfig:"PEAKRENT_CHECKOUT_PENDING_ORDER_TTL" default:"24h"`
}

type StripeConfig struct {
	APIKey string `envconfig:"PEAKRENT_STRIPE_API_KEY"`
	Secret string `envconfig:"PEAKRENT_STRIPE_SECRET"`
	Env    string `envconfig:"PEAKRENT_STRIPE_ENV" default:"test"`

	// MaxNetworkRetries is passed to the SDK backend; stripe-go retries
	// idempotent-safe failures with its own backoff.
	MaxNetworkRetries int64 `envconfig:"PEAKRENT_STRIPE_MAX_RETRIES" default:"2"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type SMTPConfig struct {
	Host     string `envconfig:"PEAKRENT_SMTP_HOST"`
	Port     int    `envconfig:"PEAKRENT_SMTP_PORT" default:"587"`
	Username string `envconfig:"PEAKRENT_SMTP_USERNAME"`
	Password string `envconfig:"PEAKRENT_SMTP_PASSWORD"`
	From     string `envconfig:"PEAKRENT_SMTP_FROM" default:"PeakRent <no-reply@peakrent.local>"`
}

// Addr returns host:port for net/smtp.
func (s SMTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type StorageConfig struct {
	Bucket        string `envconfig:"PEAKRENT_S3_BUCKET"`
	Region        string `envconfig:"PEAKRENT_S3_REGION" default:"eu-central-1"`
	PublicBaseURL string `envconfig:"PEAKRENT_S3_PUBLIC_BASE_URL"`
	MaxUploadMB   int    `envconfig:"PEAKRENT_MAX_UPLOAD_MB" default:"10"`
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
