package config

const (
	EnvPrefix = "STOREPAY"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres   = "postgres"
	DriverSQLite     = "sqlite"
	DefaultSQLiteDSN = "file:storepay.db?cache=shared"

	EnvAppEnv   = "STOREPAY_APP_ENV"
	EnvPort     = "STOREPAY_APP_PORT"
	EnvLogLevel = "STOREPAY_LOG_LEVEL"

	EnvDBDSN  = "STOREPAY_DB_DSN"
	EnvDBHost = "STOREPAY_DB_HOST"
	EnvDBUser = "STOREPAY_DB_USER"
	EnvDBName = "STOREPAY_DB_NAME"

	EnvRedisURL = "STOREPAY_REDIS_URL"

	EnvJWTSecret  = "STOREPAY_JWT_SECRET"
	EnvJWTIssuer  = "STOREPAY_JWT_ISSUER"
	EnvJWTExpMins = "STOREPAY_JWT_EXPIRATION_MINUTES"

	EnvUseSQLite        = "STOREPAY_USE_SQLITE"
	EnvSubscriptionLock = "STOREPAY_SUBSCRIPTION_LOCK"

	EnvPaystackSecretKey = "STOREPAY_PAYSTACK_SECRET_KEY"
	EnvPaystackTimeout   = "STOREPAY_PAYSTACK_TIMEOUT"

	EnvGCPProjectID        = "STOREPAY_GCP_PROJECT_ID"
	EnvPubSubPaymentsTopic = "STOREPAY_PUBSUB_PAYMENTS_TOPIC"
	EnvPubSubPaymentsSub   = "STOREPAY_PUBSUB_PAYMENTS_SUBSCRIPTION"
	EnvOutboxMaxAttempts   = "STOREPAY_OUTBOX_MAX_ATTEMPTS"
	EnvEventingIdempotency = "STOREPAY_EVENTING_IDEMPOTENCY_TTL"

	EnvCronInterval = "STOREPAY_CRON_INTERVAL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
