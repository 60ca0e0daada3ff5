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
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Orders       OrdersConfig
	GCP          GCPConfig
	GCS          GCSConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"REPAIRDESK_APP_ENV" required:"true"`
	Port         string   `envconfig:"REPAIRDESK_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"REPAIRDESK_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"REPAIRDESK_LOG_WARN_STACK" default:"false"`
	LogFormat    string   `envconfig:"REPAIRDESK_LOG_FORMAT" default:"json"`
	CORSOrigins  []string `envconfig:"REPAIRDESK_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"REPAIRDESK_DB_DSN"`
	Driver string `envconfig:"REPAIRDESK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"REPAIRDESK_DB_HOST"`
	LegacyPort     int    `envconfig:"REPAIRDESK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"REPAIRDESK_DB_USER"`
	LegacyPassword string `envconfig:"REPAIRDESK_DB_PASSWORD"`
	LegacyName     string `envconfig:"REPAIRDESK_DB_NAME"`
	LegacySSLMode  string `envconfig:"REPAIRDESK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"REPAIRDESK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"REPAIRDESK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"REPAIRDESK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"REPAIRDESK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"REPAIRDESK_REDIS_URL"`
	Address      string        `envconfig:"REPAIRDESK_REDIS_ADDR"`
	Password     string        `envconfig:"REPAIRDESK_REDIS_PASSWORD"`
	DB           int           `envconfig:"REPAIRDESK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"REPAIRDESK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"REPAIRDESK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"REPAIRDESK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"REPAIRDESK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"REPAIRDESK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig holds what the API needs to verify access tokens minted by the
// auth provider. Issuance lives outside this service.
type JWTConfig struct {
	Secret            string `envconfig:"REPAIRDESK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"REPAIRDESK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"REPAIRDESK_JWT_EXPIRATION_MINUTES" default:"60"`
	// LeewaySeconds tolerates clock skew between the provider and this API.
	LeewaySeconds int `envconfig:"REPAIRDESK_JWT_LEEWAY_SECONDS" default:"30"`
}

type FeatureFlagsConfig struct {
	UseSQLite               bool `envconfig:"REPAIRDESK_USE_SQLITE" default:"false"`
	AutoMigrate             bool `envconfig:"REPAIRDESK_AUTO_MIGRATE" default:"false"`
	StrictStatusTransitions bool `envconfig:"REPAIRDESK_STRICT_STATUS_TRANSITIONS" default:"false"`
}

type OrdersConfig struct {
	NumberPrefix      string        `envconfig:"REPAIRDESK_ORDER_NUMBER_PREFIX" default:"OS"`
	MaxSignatureBytes int           `envconfig:"REPAIRDESK_MAX_SIGNATURE_BYTES" default:"2097152"`
	MaxPhotoBytes     int           `envconfig:"REPAIRDESK_MAX_PHOTO_BYTES" default:"10485760"`
	ScopeCacheTTL     time.Duration `envconfig:"REPAIRDESK_SCOPE_CACHE_TTL" default:"5m"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"REPAIRDESK_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"REPAIRDESK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"REPAIRDESK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName    string `envconfig:"REPAIRDESK_GCS_BUCKET_NAME"`
	PublicBaseURL string `envconfig:"REPAIRDESK_GCS_PUBLIC_BASE_URL" default:"https://storage.googleapis.com"`
}

// Enabled reports whether a bucket is configured for signatures and photos.
func (g GCSConfig) Enabled() bool {
	return strings.TrimSpace(g.BucketName) != ""
}

type PubSubConfig struct {
	OrdersTopic string `envconfig:"REPAIRDESK_PUBSUB_ORDERS_TOPIC" default:"repairdesk-order-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"REPAIRDESK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"REPAIRDESK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"REPAIRDESK_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	Interval            time.Duration `envconfig:"REPAIRDESK_CRON_INTERVAL" default:"1h"`
	OutboxRetentionDays int           `envconfig:"REPAIRDESK_CRON_OUTBOX_RETENTION_DAYS" default:"30"`
	AuditPageSize       int           `envconfig:"REPAIRDESK_CRON_AUDIT_PAGE_SIZE" default:"100"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" {
		return nil
	}
	if useSQLite {
		db.DSN = DefaultSQLiteDSN
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
