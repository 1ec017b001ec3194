package config

const (
	EnvPrefix = "ORDERDESK"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv         = "ORDERDESK_APP_ENV"
	EnvPort           = "ORDERDESK_APP_PORT"
	EnvDBDSN          = "ORDERDESK_DB_DSN"
	EnvDBHost         = "ORDERDESK_DB_HOST"
	EnvDBUser         = "ORDERDESK_DB_USER"
	EnvDBName         = "ORDERDESK_DB_NAME"
	EnvDBPassword     = "ORDERDESK_DB_PASSWORD"
	EnvRedisURL       = "ORDERDESK_REDIS_URL"
	EnvJWTSecret      = "ORDERDESK_JWT_SECRET"
	EnvAuthAllowDummy = "ORDERDESK_AUTH_ALLOW_DUMMY_TOKENS"
	EnvRateLimit      = "ORDERDESK_RATE_LIMIT_PER_MINUTE"
	EnvCORSOrigins    = "ORDERDESK_CORS_ORIGINS"
	EnvRuleSetTTL     = "ORDERDESK_RULESET_CACHE_TTL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
