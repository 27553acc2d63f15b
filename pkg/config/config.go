package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "ofistur"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "OFISTUR_APP_ENV"
	EnvPort     = "OFISTUR_APP_PORT"
	EnvDBDSN    = "OFISTUR_DB_DSN"
	EnvDBHost   = "OFISTUR_DB_HOST"
	EnvDBUser   = "OFISTUR_DB_USER"
	EnvDBName   = "OFISTUR_DB_NAME"
	EnvRedisURL = "OFISTUR_REDIS_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Billing      BillingConfig
	Bank         BankConfig
	Fiscal       FiscalConfig
	GCP          GCPConfig
	GCS          GCSConfig
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
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"OFISTUR_APP_ENV" required:"true"`
	Port         string `envconfig:"OFISTUR_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"OFISTUR_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"OFISTUR_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"OFISTUR_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"OFISTUR_DB_DSN"`
	Driver string `envconfig:"OFISTUR_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"OFISTUR_DB_HOST"`
	LegacyPort     int    `envconfig:"OFISTUR_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"OFISTUR_DB_USER"`
	LegacyPassword string `envconfig:"OFISTUR_DB_PASSWORD"`
	LegacyName     string `envconfig:"OFISTUR_DB_NAME"`
	LegacySSLMode  string `envconfig:"OFISTUR_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"OFISTUR_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"OFISTUR_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"OFISTUR_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"OFISTUR_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"OFISTUR_REDIS_URL" required:"true"`
	Address      string        `envconfig:"OFISTUR_REDIS_ADDR"`
	Password     string        `envconfig:"OFISTUR_REDIS_PASSWORD"`
	DB           int           `envconfig:"OFISTUR_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"OFISTUR_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"OFISTUR_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"OFISTUR_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"OFISTUR_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"OFISTUR_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// BillingConfig drives cycle generation and the attempt schedule.
type BillingConfig struct {
	AttemptCount       int `envconfig:"OFISTUR_BILLING_ATTEMPT_COUNT" default:"3"`
	AttemptOffsetDays  int `envconfig:"OFISTUR_BILLING_ATTEMPT_OFFSET_DAYS" default:"7"`
	MaxFxStalenessDays int `envconfig:"OFISTUR_BILLING_MAX_FX_STALENESS_DAYS" default:"5"`
}

// BankConfig selects the file adapter used for presentment and responses.
type BankConfig struct {
	AdapterName     string `envconfig:"OFISTUR_BANK_ADAPTER" default:"pagodirecto"`
	ProtocolVersion string `envconfig:"OFISTUR_BANK_PROTOCOL_VERSION" default:"02"`
	OriginatorID    string `envconfig:"OFISTUR_BANK_ORIGINATOR_ID" default:"OFISTUR"`
}

// FiscalConfig controls the tax-authority issuer collaborator.
type FiscalConfig struct {
	Mode       string `envconfig:"OFISTUR_FISCAL_MODE" default:"MOCK"`
	Autorun    bool   `envconfig:"OFISTUR_FISCAL_AUTORUN" default:"false"`
	MaxRetries int    `envconfig:"OFISTUR_FISCAL_MAX_RETRIES" default:"5"`
}

func (f FiscalConfig) IsMock() bool {
	return strings.EqualFold(f.Mode, "MOCK")
}

type GCPConfig struct {
	ProjectID              string `envconfig:"OFISTUR_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"OFISTUR_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"OFISTUR_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName string `envconfig:"OFISTUR_GCS_BUCKET_NAME"`
}

type FeatureFlagsConfig struct {
	UseSQLite     bool `envconfig:"OFISTUR_USE_SQLITE" default:"false"`
	AutoMigrate   bool `envconfig:"OFISTUR_AUTO_MIGRATE" default:"false"`
	MemoryStorage bool `envconfig:"OFISTUR_MEMORY_STORAGE" default:"false"`
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
		return fmt.Errorf("database config incomplete: set %s or %s", EnvDBDSN, strings.Join(missing, ", "))
	}

	dsn := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(db.LegacyUser, db.LegacyPassword),
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}
	query := dsn.Query()
	query.Set("sslmode", db.LegacySSLMode)
	dsn.RawQuery = query.Encode()

	db.DSN = dsn.String()
	return nil
}
