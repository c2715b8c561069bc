package config

// EnvPrefix is empty because every field carries its fully qualified name.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "STOCKLEDGER_APP_ENV"
	EnvPort     = "STOCKLEDGER_APP_PORT"
	EnvLogLevel = "STOCKLEDGER_LOG_LEVEL"

	EnvDBDSN  = "STOCKLEDGER_DB_DSN"
	EnvDBHost = "STOCKLEDGER_DB_HOST"
	EnvDBPort = "STOCKLEDGER_DB_PORT"
	EnvDBUser = "STOCKLEDGER_DB_USER"
	EnvDBPass = "STOCKLEDGER_DB_PASSWORD"
	EnvDBName = "STOCKLEDGER_DB_NAME"

	EnvRedisURL = "STOCKLEDGER_REDIS_URL"

	EnvJWTSecret  = "STOCKLEDGER_JWT_SECRET"
	EnvJWTIssuer  = "STOCKLEDGER_JWT_ISSUER"
	EnvJWTExpMins = "STOCKLEDGER_JWT_EXPIRATION_MINUTES"

	EnvAllowNoUser             = "STOCKLEDGER_ALLOW_NO_USER"
	EnvAllowDuplicateMovements = "STOCKLEDGER_ALLOW_DUPLICATE_MOVEMENTS"
	EnvRollbackCost            = "STOCKLEDGER_ROLLBACK_COST"
	EnvCodesEnabled            = "STOCKLEDGER_CODES_ENABLED"
	EnvCodePrefixLength        = "STOCKLEDGER_CODE_PREFIX_LENGTH"
	EnvCodeSuffixLength        = "STOCKLEDGER_CODE_SUFFIX_LENGTH"
	EnvCodeSeparator           = "STOCKLEDGER_CODE_SEPARATOR"

	EnvGCPProjectID      = "STOCKLEDGER_GCP_PROJECT_ID"
	EnvPubSubStockTopic  = "STOCKLEDGER_PUBSUB_STOCK_TOPIC"
	EnvOutboxRetention   = "STOCKLEDGER_OUTBOX_RETENTION_DAYS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
