package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "RECEIPTWISE"

	AppEnvDev  = "development"
	AppEnvProd = "production"
)

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	OpenAI    OpenAIConfig
	Upload    UploadConfig
	RateLimit RateLimitConfig
	Options   OptionsConfig
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
	Env          string `envconfig:"RECEIPTWISE_APP_ENV" default:"development"`
	Port         string `envconfig:"RECEIPTWISE_APP_PORT" default:"3456"`
	LogLevel     string `envconfig:"RECEIPTWISE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RECEIPTWISE_LOG_WARN_STACK" default:"false"`

	CORSOrigins ListValue `envconfig:"RECEIPTWISE_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"RECEIPTWISE_DB_DSN"`

	Host     string `envconfig:"RECEIPTWISE_DB_HOST"`
	Port     int    `envconfig:"RECEIPTWISE_DB_PORT" default:"5432"`
	User     string `envconfig:"RECEIPTWISE_DB_USER"`
	Password string `envconfig:"RECEIPTWISE_DB_PASSWORD"`
	Name     string `envconfig:"RECEIPTWISE_DB_NAME"`
	SSLMode  string `envconfig:"RECEIPTWISE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RECEIPTWISE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RECEIPTWISE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RECEIPTWISE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RECEIPTWISE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	var missing []string
	if db.Host == "" {
		missing = append(missing, "RECEIPTWISE_DB_HOST")
	}
	if db.User == "" {
		missing = append(missing, "RECEIPTWISE_DB_USER")
	}
	if db.Name == "" {
		missing = append(missing, "RECEIPTWISE_DB_NAME")
	}
	if len(missing) > 0 {
		return fmt.Errorf("database configuration incomplete: set RECEIPTWISE_DB_DSN or %s", strings.Join(missing, ", "))
	}

	dsn := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}
	if db.Password != "" {
		dsn.User = url.UserPassword(db.User, db.Password)
	} else {
		dsn.User = url.User(db.User)
	}
	query := url.Values{}
	query.Set("sslmode", db.SSLMode)
	dsn.RawQuery = query.Encode()

	db.DSN = dsn.String()
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"RECEIPTWISE_REDIS_URL"`
	PoolSize     int           `envconfig:"RECEIPTWISE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RECEIPTWISE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RECEIPTWISE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RECEIPTWISE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RECEIPTWISE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret string `envconfig:"RECEIPTWISE_JWT_SECRET"`
	Issuer string `envconfig:"RECEIPTWISE_JWT_ISSUER" default:"receiptwise"`
}

type OpenAIConfig struct {
	APIKey         string        `envconfig:"RECEIPTWISE_OPENAI_API_KEY"`
	Model          string        `envconfig:"RECEIPTWISE_OPENAI_MODEL" default:"gpt-4o-mini"`
	MaxTokens      int           `envconfig:"RECEIPTWISE_OPENAI_MAX_TOKENS" default:"1000"`
	RequestTimeout time.Duration `envconfig:"RECEIPTWISE_OPENAI_REQUEST_TIMEOUT" default:"120s"`
}

type UploadConfig struct {
	Dir         string `envconfig:"RECEIPTWISE_UPLOAD_DIR" default:"uploads"`
	MaxUploadMB int    `envconfig:"RECEIPTWISE_MAX_UPLOAD_MB" default:"16"`
}

func (u UploadConfig) MaxUploadBytes() int64 {
	return int64(u.MaxUploadMB) << 20
}

type RateLimitConfig struct {
	UploadWindow  time.Duration `envconfig:"RECEIPTWISE_RATE_LIMIT_UPLOAD_WINDOW" default:"1m"`
	UploadIPLimit int           `envconfig:"RECEIPTWISE_RATE_LIMIT_UPLOAD_IP_LIMIT" default:"10"`
}
