package config

const (
	EnvPrefix = "PDV"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv        = "PDV_APP_ENV"
	EnvPort          = "PDV_APP_PORT"
	EnvLogLevel      = "PDV_LOG_LEVEL"
	EnvLogFormat     = "PDV_LOG_FORMAT"
	EnvDBDSN         = "PDV_DB_DSN"
	EnvDBHost        = "PDV_DB_HOST"
	EnvDBUser        = "PDV_DB_USER"
	EnvDBName        = "PDV_DB_NAME"
	EnvDBPassword    = "PDV_DB_PASSWORD"
	EnvRedisURL      = "PDV_REDIS_URL"
	EnvJWTSecret     = "PDV_JWT_SECRET"
	EnvJWTIssuer     = "PDV_JWT_ISSUER"
	EnvPubSubProject = "PDV_PUBSUB_PROJECT_ID"
	EnvPubSubAlerts  = "PDV_PUBSUB_ALERTS_TOPIC"

	EnvStoreTimezone     = "PDV_STORE_TIMEZONE"
	EnvAlertQueueSize    = "PDV_ALERT_QUEUE_SIZE"
	EnvAlertWorkers      = "PDV_ALERT_WORKERS"
	EnvSaleNumberRetries = "PDV_SALE_NUMBER_RETRIES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
