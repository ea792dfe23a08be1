package config

// EnvPrefix is handed to envconfig; every field carries its full variable name.
const EnvPrefix = "GARAGE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv     = "GARAGE_APP_ENV"
	EnvPort       = "GARAGE_APP_PORT"
	EnvDBDSN      = "GARAGE_DB_DSN"
	EnvDBHost     = "GARAGE_DB_HOST"
	EnvDBUser     = "GARAGE_DB_USER"
	EnvDBName     = "GARAGE_DB_NAME"
	EnvDBPassword = "GARAGE_DB_PASSWORD"
	EnvRedisURL   = "GARAGE_REDIS_URL"
	EnvJWTSecret  = "GARAGE_JWT_SECRET"
	EnvJWTIssuer  = "GARAGE_JWT_ISSUER"
	EnvJWTExpMins = "GARAGE_JWT_EXPIRATION_MINUTES"
	EnvUseSQLite  = "GARAGE_USE_SQLITE"
	EnvCORS       = "GARAGE_CORS_ALLOWED_ORIGINS"
)

var dbPartEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
