package config

const EnvPrefix = "CABLEQUOTES"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	MailDriverLog  = "log"
	MailDriverSMTP = "smtp"
)

const (
	EnvAppEnv                 = "CABLEQUOTES_APP_ENV"
	EnvPort                   = "CABLEQUOTES_APP_PORT"
	EnvDBDSN                  = "CABLEQUOTES_DB_DSN"
	EnvDBHost                 = "CABLEQUOTES_DB_HOST"
	EnvDBUser                 = "CABLEQUOTES_DB_USER"
	EnvDBName                 = "CABLEQUOTES_DB_NAME"
	EnvDBPassword             = "CABLEQUOTES_DB_PASSWORD"
	EnvRedisURL               = "CABLEQUOTES_REDIS_URL"
	EnvJWTSecret              = "CABLEQUOTES_JWT_SECRET"
	EnvJWTIssuer              = "CABLEQUOTES_JWT_ISSUER"
	EnvJWTExpMins             = "CABLEQUOTES_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "CABLEQUOTES_REFRESH_TOKEN_TTL_MINUTES"
	EnvUseSQLite              = "CABLEQUOTES_USE_SQLITE"
	EnvMailDriver             = "CABLEQUOTES_MAIL_DRIVER"
	EnvMailServer             = "CABLEQUOTES_MAIL_SERVER"
	EnvMailSender             = "CABLEQUOTES_MAIL_DEFAULT_SENDER"
	EnvNotifyLogistics        = "CABLEQUOTES_NOTIFY_LOGISTICS"
	EnvCORSOrigins            = "CABLEQUOTES_CORS_ALLOWED_ORIGINS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
