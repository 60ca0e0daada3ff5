package config

// EnvPrefix is passed to envconfig; every field carries an explicit envconfig tag
// so the prefix only matters for untagged additions.
const EnvPrefix = "REPAIRDESK"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const DefaultSQLiteDSN = "file:repairdesk.db?_foreign_keys=on"

const (
	EnvAppEnv   = "REPAIRDESK_APP_ENV"
	EnvPort     = "REPAIRDESK_APP_PORT"
	EnvLogLevel = "REPAIRDESK_LOG_LEVEL"

	EnvDBDSN  = "REPAIRDESK_DB_DSN"
	EnvDBHost = "REPAIRDESK_DB_HOST"
	EnvDBUser = "REPAIRDESK_DB_USER"
	EnvDBName = "REPAIRDESK_DB_NAME"

	EnvRedisURL = "REPAIRDESK_REDIS_URL"

	EnvJWTSecret = "REPAIRDESK_JWT_SECRET"
	EnvJWTIssuer = "REPAIRDESK_JWT_ISSUER"

	EnvUseSQLite         = "REPAIRDESK_USE_SQLITE"
	EnvStrictTransitions = "REPAIRDESK_STRICT_STATUS_TRANSITIONS"

	EnvOrderNumberPrefix = "REPAIRDESK_ORDER_NUMBER_PREFIX"
	EnvScopeCacheTTL     = "REPAIRDESK_SCOPE_CACHE_TTL"

	EnvGCSBucket = "REPAIRDESK_GCS_BUCKET_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
