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
	PDV          PDVConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if _, err := cfg.PDV.Location(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PDV_APP_ENV" required:"true"`
	Port         string `envconfig:"PDV_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PDV_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"PDV_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"PDV_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"PDV_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"PDV_DB_DSN"`
	Driver string `envconfig:"PDV_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PDV_DB_HOST"`
	LegacyPort     int    `envconfig:"PDV_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PDV_DB_USER"`
	LegacyPassword string `envconfig:"PDV_DB_PASSWORD"`
	LegacyName     string `envconfig:"PDV_DB_NAME"`
	LegacySSLMode  string `envconfig:"PDV_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PDV_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PDV_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PDV_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PDV_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PDV_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PDV_REDIS_ADDR"`
	Password     string        `envconfig:"PDV_REDIS_PASSWORD"`
	DB           int           `envconfig:"PDV_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PDV_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PDV_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PDV_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PDV_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PDV_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret string `envconfig:"PDV_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"PDV_JWT_ISSUER" required:"true"`
}

// PDVConfig holds the knobs of the point-of-sale engine.
type PDVConfig struct {
	StoreTimezone     string        `envconfig:"PDV_STORE_TIMEZONE" default:"America/Sao_Paulo"`
	AlertQueueSize    int           `envconfig:"PDV_ALERT_QUEUE_SIZE" default:"256"`
	AlertWorkers      int           `envconfig:"PDV_ALERT_WORKERS" default:"2"`
	SaleNumberRetries int           `envconfig:"PDV_SALE_NUMBER_RETRIES" default:"3"`
	IdempotencyTTL    time.Duration `envconfig:"PDV_IDEMPOTENCY_TTL" default:"24h"`
	ReportTopProducts int           `envconfig:"PDV_REPORT_TOP_PRODUCTS" default:"10"`
}

// Location resolves the configured store timezone.
func (p PDVConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(p.StoreTimezone)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", EnvStoreTimezone, name, err)
	}
	return loc, nil
}

type PubSubConfig struct {
	ProjectID   string `envconfig:"PDV_PUBSUB_PROJECT_ID"`
	AlertsTopic string `envconfig:"PDV_PUBSUB_ALERTS_TOPIC" default:"pdv-alert-events"`

	EmulatorEndpoint string `envconfig:"PDV_PUBSUB_EMULATOR_ENDPOINT"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"PDV_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"PDV_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"PDV_OUTBOX_MAX_ATTEMPTS" default:"10"`

	MetricsAddr string `envconfig:"PDV_OUTBOX_METRICS_ADDR"`
}

// CronConfig drives the maintenance worker.
type CronConfig struct {
	Interval            time.Duration `envconfig:"PDV_CRON_INTERVAL" default:"1h"`
	LockTTL             time.Duration `envconfig:"PDV_CRON_LOCK_TTL" default:"55m"`
	OutboxRetentionDays int           `envconfig:"PDV_OUTBOX_RETENTION_DAYS" default:"30"`
	MetricsAddr         string        `envconfig:"PDV_CRON_METRICS_ADDR"`
}

type FeatureFlagsConfig struct {
	AutoMigrate    bool `envconfig:"PDV_AUTO_MIGRATE" default:"false"`
	RealtimeAlerts bool `envconfig:"PDV_REALTIME_ALERTS" default:"true"`
	DurableAlerts  bool `envconfig:"PDV_DURABLE_ALERTS" default:"true"`
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
