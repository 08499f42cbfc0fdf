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
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Paystack     PaystackConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	Metrics      MetricsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREPAY_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREPAY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STOREPAY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREPAY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"STOREPAY_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"STOREPAY_DB_DSN"`
	Driver string `envconfig:"STOREPAY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STOREPAY_DB_HOST"`
	LegacyPort     int    `envconfig:"STOREPAY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOREPAY_DB_USER"`
	LegacyPassword string `envconfig:"STOREPAY_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOREPAY_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOREPAY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREPAY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREPAY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREPAY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREPAY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREPAY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STOREPAY_REDIS_ADDR"`
	Password     string        `envconfig:"STOREPAY_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREPAY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREPAY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREPAY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREPAY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREPAY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREPAY_REDIS_WRITE_TIMEOUT" default:"5s"`

	SubscriptionLockTTL time.Duration `envconfig:"STOREPAY_SUBSCRIPTION_LOCK_TTL" default:"15s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"STOREPAY_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"STOREPAY_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"STOREPAY_JWT_EXPIRATION_MINUTES" required:"true"`
}

type FeatureFlagsConfig struct {
	UseSQLite        bool `envconfig:"STOREPAY_USE_SQLITE" default:"false"`
	AutoMigrate      bool `envconfig:"STOREPAY_AUTO_MIGRATE" default:"false"`
	SubscriptionLock bool `envconfig:"STOREPAY_SUBSCRIPTION_LOCK" default:"true"`
}

type PaystackConfig struct {
	SecretKey string        `envconfig:"STOREPAY_PAYSTACK_SECRET_KEY"`
	BaseURL   string        `envconfig:"STOREPAY_PAYSTACK_BASE_URL" default:"https://api.paystack.co"`
	Timeout   time.Duration `envconfig:"STOREPAY_PAYSTACK_TIMEOUT" default:"10s"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"STOREPAY_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"STOREPAY_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"STOREPAY_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	PaymentsTopic        string `envconfig:"STOREPAY_PUBSUB_PAYMENTS_TOPIC" default:"sp-payment-events"`
	PaymentsSubscription string `envconfig:"STOREPAY_PUBSUB_PAYMENTS_SUBSCRIPTION" default:"sp-payment-notifications"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"STOREPAY_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"STOREPAY_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"STOREPAY_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	Interval                  time.Duration `envconfig:"STOREPAY_CRON_INTERVAL" default:"24h"`
	LockTTL                   time.Duration `envconfig:"STOREPAY_CRON_LOCK_TTL" default:"25h"`
	OutboxRetentionDays       int           `envconfig:"STOREPAY_CRON_OUTBOX_RETENTION_DAYS" default:"30"`
	NotificationRetentionDays int           `envconfig:"STOREPAY_CRON_NOTIFICATION_RETENTION_DAYS" default:"90"`
}

type MetricsConfig struct {
	Enabled bool   `envconfig:"STOREPAY_METRICS_ENABLED" default:"true"`
	Path    string `envconfig:"STOREPAY_METRICS_PATH" default:"/metrics"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite {
		db.Driver = DriverSQLite
		if db.DSN == "" {
			db.DSN = DefaultSQLiteDSN
		}
		return nil
	}
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
