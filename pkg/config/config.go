package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	Idempotency   IdempotencyConfig
	Invoice       InvoiceConfig
	Cron          CronConfig
	CORS          CORSConfig
	FeatureFlags  FeatureFlagsConfig
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
	Env          string `envconfig:"GARAGE_APP_ENV" required:"true"`
	Port         string `envconfig:"GARAGE_APP_PORT" default:"5000"`
	LogLevel     string `envconfig:"GARAGE_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"GARAGE_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"GARAGE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev) || strings.EqualFold(a.Env, "development")
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type DBConfig struct {
	DSN    string `envconfig:"GARAGE_DB_DSN"`
	Driver string `envconfig:"GARAGE_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"GARAGE_DB_HOST"`
	Port     int    `envconfig:"GARAGE_DB_PORT" default:"5432"`
	User     string `envconfig:"GARAGE_DB_USER"`
	Password string `envconfig:"GARAGE_DB_PASSWORD"`
	Name     string `envconfig:"GARAGE_DB_NAME"`
	SSLMode  string `envconfig:"GARAGE_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"GARAGE_DB_SQLITE_PATH" default:"garage.db"`

	MaxOpenConns    int           `envconfig:"GARAGE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GARAGE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GARAGE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GARAGE_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"GARAGE_DB_SLOW_QUERY_THRESHOLD" default:"250ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GARAGE_REDIS_URL"`
	Address      string        `envconfig:"GARAGE_REDIS_ADDR" default:"localhost:6379"`
	Password     string        `envconfig:"GARAGE_REDIS_PASSWORD"`
	DB           int           `envconfig:"GARAGE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GARAGE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GARAGE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GARAGE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GARAGE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GARAGE_REDIS_WRITE_TIMEOUT" default:"5s"`
	KeyPrefix    string        `envconfig:"GARAGE_REDIS_KEY_PREFIX" default:"garage"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"GARAGE_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"GARAGE_JWT_ISSUER" default:"garage-backend"`
	ExpirationMinutes      int    `envconfig:"GARAGE_JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTokenTTLMinutes int    `envconfig:"GARAGE_REFRESH_TOKEN_TTL_MINUTES" default:"10080"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"GARAGE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"GARAGE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"GARAGE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"GARAGE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"GARAGE_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow      time.Duration `envconfig:"GARAGE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit  int           `envconfig:"GARAGE_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit     int           `envconfig:"GARAGE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	SignupWindow     time.Duration `envconfig:"GARAGE_AUTH_RATE_LIMIT_SIGNUP_WINDOW" default:"5m"`
	SignupEmailLimit int           `envconfig:"GARAGE_AUTH_RATE_LIMIT_SIGNUP_EMAIL_LIMIT" default:"3"`
	SignupIPLimit    int           `envconfig:"GARAGE_AUTH_RATE_LIMIT_SIGNUP_IP_LIMIT" default:"20"`
}

type IdempotencyConfig struct {
	TTL time.Duration `envconfig:"GARAGE_IDEMPOTENCY_TTL" default:"24h"`
}

type InvoiceConfig struct {
	DefaultTaxRate  string `envconfig:"GARAGE_INVOICE_DEFAULT_TAX_RATE" default:"16"`
	BusinessName    string `envconfig:"GARAGE_BUSINESS_NAME" default:"Garage Works"`
	BusinessAddress string `envconfig:"GARAGE_BUSINESS_ADDRESS"`
	BusinessPhone   string `envconfig:"GARAGE_BUSINESS_PHONE"`
	BusinessEmail   string `envconfig:"GARAGE_BUSINESS_EMAIL"`
}

type CronConfig struct {
	Interval        time.Duration `envconfig:"GARAGE_CRON_INTERVAL" default:"1h"`
	LockTTL         time.Duration `envconfig:"GARAGE_CRON_LOCK_TTL" default:"55m"`
	UnpaidAgingDays int           `envconfig:"GARAGE_CRON_UNPAID_AGING_DAYS" default:"30"`
	MetricsAddr     string        `envconfig:"GARAGE_CRON_METRICS_ADDR" default:":9091"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"GARAGE_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"GARAGE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"GARAGE_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" || useSQLite {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range dbPartEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
