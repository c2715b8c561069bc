package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Inventory    InventoryConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	cfg.Inventory.normalize()
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOCKLEDGER_APP_ENV" required:"true"`
	Port         string `envconfig:"STOCKLEDGER_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STOCKLEDGER_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOCKLEDGER_LOG_WARN_STACK" default:"false"`
	// MetricsAddr exposes /metrics from the workers when set, e.g. ":9090".
	MetricsAddr string `envconfig:"STOCKLEDGER_METRICS_ADDR"`
	// CORSOrigins enables CORS for the listed origins (comma separated).
	CORSOrigins []string `envconfig:"STOCKLEDGER_CORS_ALLOWED_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"STOCKLEDGER_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"STOCKLEDGER_DB_DSN"`
	Driver string `envconfig:"STOCKLEDGER_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STOCKLEDGER_DB_HOST"`
	LegacyPort     int    `envconfig:"STOCKLEDGER_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOCKLEDGER_DB_USER"`
	LegacyPassword string `envconfig:"STOCKLEDGER_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOCKLEDGER_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOCKLEDGER_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOCKLEDGER_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOCKLEDGER_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOCKLEDGER_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOCKLEDGER_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOCKLEDGER_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STOCKLEDGER_REDIS_ADDR"`
	Password     string        `envconfig:"STOCKLEDGER_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOCKLEDGER_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOCKLEDGER_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOCKLEDGER_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOCKLEDGER_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOCKLEDGER_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOCKLEDGER_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"STOCKLEDGER_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"STOCKLEDGER_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"STOCKLEDGER_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"STOCKLEDGER_AUTO_MIGRATE" default:"false"`
}

// InventoryConfig is the single value object injected into the ledger,
// assembly and code services.
type InventoryConfig struct {
	AllowNoUser             bool          `envconfig:"STOCKLEDGER_ALLOW_NO_USER" default:"false"`
	AllowDuplicateMovements bool          `envconfig:"STOCKLEDGER_ALLOW_DUPLICATE_MOVEMENTS" default:"true"`
	RollbackCost            bool          `envconfig:"STOCKLEDGER_ROLLBACK_COST" default:"true"`
	CodesEnabled            bool          `envconfig:"STOCKLEDGER_CODES_ENABLED" default:"true"`
	CodePrefixLength        int           `envconfig:"STOCKLEDGER_CODE_PREFIX_LENGTH" default:"3"`
	CodeSuffixLength        int           `envconfig:"STOCKLEDGER_CODE_SUFFIX_LENGTH" default:"6"`
	CodeSeparator           string        `envconfig:"STOCKLEDGER_CODE_SEPARATOR" default:""`
	StockLockEnabled        bool          `envconfig:"STOCKLEDGER_STOCK_LOCK_ENABLED" default:"false"`
	StockLockTTL            time.Duration `envconfig:"STOCKLEDGER_STOCK_LOCK_TTL" default:"10s"`
}

// DefaultInventoryConfig mirrors the envconfig defaults for callers that
// build services without loading the environment.
func DefaultInventoryConfig() InventoryConfig {
	return InventoryConfig{
		AllowDuplicateMovements: true,
		RollbackCost:            true,
		CodesEnabled:            true,
		CodePrefixLength:        3,
		CodeSuffixLength:        6,
		StockLockTTL:            10 * time.Second,
	}
}

func (i *InventoryConfig) normalize() {
	i.CodeSeparator = strings.TrimSpace(i.CodeSeparator)
	if i.CodePrefixLength < 0 {
		i.CodePrefixLength = 0
	}
	if i.CodeSuffixLength < 0 {
		i.CodeSuffixLength = 0
	}
}

type GCPConfig struct {
	ProjectID string `envconfig:"STOCKLEDGER_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	StockTopic     string `envconfig:"STOCKLEDGER_PUBSUB_STOCK_TOPIC" default:"stockledger-stock-events"`
	AssemblyTopic  string `envconfig:"STOCKLEDGER_PUBSUB_ASSEMBLY_TOPIC" default:"stockledger-assembly-events"`
	CatalogueTopic string `envconfig:"STOCKLEDGER_PUBSUB_CATALOGUE_TOPIC" default:"stockledger-catalogue-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"STOCKLEDGER_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"STOCKLEDGER_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"STOCKLEDGER_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"STOCKLEDGER_OUTBOX_RETENTION_DAYS" default:"30"`
}

type CronConfig struct {
	Interval       time.Duration `envconfig:"STOCKLEDGER_CRON_INTERVAL" default:"1h"`
	ReconcileBatch int           `envconfig:"STOCKLEDGER_CRON_RECONCILE_BATCH" default:"500"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
