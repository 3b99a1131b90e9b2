package config

// EnvPrefix is handed to envconfig; every field carries its full variable name.
const EnvPrefix = "NILGIRISFRESH"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv                 = "NILGIRISFRESH_APP_ENV"
	EnvPort                   = "NILGIRISFRESH_APP_PORT"
	EnvDBDSN                  = "NILGIRISFRESH_DB_DSN"
	EnvDBHost                 = "NILGIRISFRESH_DB_HOST"
	EnvDBUser                 = "NILGIRISFRESH_DB_USER"
	EnvDBName                 = "NILGIRISFRESH_DB_NAME"
	EnvRedisURL               = "NILGIRISFRESH_REDIS_URL"
	EnvJWTSecret              = "NILGIRISFRESH_JWT_SECRET"
	EnvJWTIssuer              = "NILGIRISFRESH_JWT_ISSUER"
	EnvJWTExpMins             = "NILGIRISFRESH_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "NILGIRISFRESH_REFRESH_TOKEN_TTL_MINUTES"
	EnvGCSBucket              = "NILGIRISFRESH_GCS_BUCKET_NAME"
	EnvGCSEvidenceBucket      = "NILGIRISFRESH_GCS_EVIDENCE_BUCKET_NAME"
	EnvCheckoutCurrency       = "NILGIRISFRESH_CHECKOUT_CURRENCY"
	EnvCheckoutAwaitTimeout   = "NILGIRISFRESH_CHECKOUT_AWAIT_TIMEOUT"
	EnvCORSAllowedOrigins     = "NILGIRISFRESH_CORS_ALLOWED_ORIGINS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
