package config

// EnvPrefix namespaces every environment variable the service reads.
const EnvPrefix = "SHIFTWISE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv  = "SHIFTWISE_APP_ENV"
	EnvAppPort = "SHIFTWISE_APP_PORT"

	EnvDBDSN  = "SHIFTWISE_DB_DSN"
	EnvDBHost = "SHIFTWISE_DB_HOST"
	EnvDBUser = "SHIFTWISE_DB_USER"
	EnvDBName = "SHIFTWISE_DB_NAME"

	EnvRedisURL  = "SHIFTWISE_REDIS_URL"
	EnvJWTSecret = "SHIFTWISE_JWT_SECRET"
	EnvJWTIssuer = "SHIFTWISE_JWT_ISSUER"
)

// requiredDBEnvVars must all be present when SHIFTWISE_DB_DSN is unset.
var requiredDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
