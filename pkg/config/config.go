package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "cryptomart"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "CRYPTOMART_DB_DSN"
	EnvDBHost = "CRYPTOMART_DB_HOST"
	EnvDBUser = "CRYPTOMART_DB_USER"
	EnvDBName = "CRYPTOMART_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Password      PasswordConfig
	Earnings      EarningsConfig
	Withdrawals   WithdrawalsConfig
	BalanceCache  BalanceCacheConfig
	Cron          CronConfig
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
	Env          string `envconfig:"CRYPTOMART_APP_ENV" required:"true"`
	Port         string `envconfig:"CRYPTOMART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CRYPTOMART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CRYPTOMART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"CRYPTOMART_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"CRYPTOMART_DB_DSN"`
	Driver string `envconfig:"CRYPTOMART_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CRYPTOMART_DB_HOST"`
	LegacyPort     int    `envconfig:"CRYPTOMART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CRYPTOMART_DB_USER"`
	LegacyPassword string `envconfig:"CRYPTOMART_DB_PASSWORD"`
	LegacyName     string `envconfig:"CRYPTOMART_DB_NAME"`
	LegacySSLMode  string `envconfig:"CRYPTOMART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CRYPTOMART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CRYPTOMART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CRYPTOMART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CRYPTOMART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CRYPTOMART_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CRYPTOMART_REDIS_ADDR"`
	Password     string        `envconfig:"CRYPTOMART_REDIS_PASSWORD"`
	DB           int           `envconfig:"CRYPTOMART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CRYPTOMART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CRYPTOMART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CRYPTOMART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CRYPTOMART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CRYPTOMART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"CRYPTOMART_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"CRYPTOMART_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"CRYPTOMART_JWT_EXPIRATION_MINUTES" required:"true"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"CRYPTOMART_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"CRYPTOMART_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"CRYPTOMART_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"CRYPTOMART_AUTO_MIGRATE" default:"false"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"CRYPTOMART_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"CRYPTOMART_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"CRYPTOMART_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"CRYPTOMART_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"CRYPTOMART_ARGON_KEY_LEN" default:"32"`
}

type EarningsConfig struct {
	HorizonDays int `envconfig:"CRYPTOMART_EARNINGS_HORIZON_DAYS" default:"45"`
}

type WithdrawalsConfig struct {
	FeeRatePercent int `envconfig:"CRYPTOMART_WITHDRAWAL_FEE_RATE_PERCENT" default:"10"`
}

type BalanceCacheConfig struct {
	TTL time.Duration `envconfig:"CRYPTOMART_BALANCE_CACHE_TTL" default:"30s"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"CRYPTOMART_CRON_INTERVAL" default:"24h"`
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
