package config

const EnvPrefix = "PEAKRENT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "PEAKRENT_APP_ENV"
	EnvPort     = "PEAKRENT_APP_PORT"
	EnvLogLevel = "PEAKRENT_LOG_LEVEL"

	EnvDBDSN  = "PEAKRENT_DB_DSN"
	EnvDBHost = "PEAKRENT_DB_HOST"
	EnvDBUser = "PEAKRENT_DB_USER"
	EnvDBName = "PEAKRENT_DB_NAME"

	EnvRedisURL = "PEAKRENT_REDIS_URL"

	EnvJWTSecret               = "PEAKRENT_JWT_SECRET"
	EnvJWTIssuer               = "PEAKRENT_JWT_ISSUER"
	EnvJWTExpMins              = "PEAKRENT_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes  = "PEAKRENT_REFRESH_TOKEN_TTL_MINUTES"
	EnvGCPProjectID            = "PEAKRENT_GCP_PROJECT_ID"
	EnvPubSubOrdersTopic       = "PEAKRENT_PUBSUB_ORDERS_TOPIC"
	EnvPubSubOrdersSub         = "PEAKRENT_PUBSUB_ORDERS_SUBSCRIPTION"
	EnvStripeAPIKey            = "PEAKRENT_STRIPE_API_KEY"
	EnvStripeSecret            = "PEAKRENT_STRIPE_SECRET"
	EnvCheckoutPendingOrderTTL = "PEAKRENT_CHECKOUT_PENDING_ORDER_TTL"
	EnvS3Bucket                = "PEAKRENT_S3_BUCKET"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
