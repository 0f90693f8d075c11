package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix is the envconfig prefix: ONLYCARS_APP_ENV, ONLYCARS_DB_DSN, etc.
	EnvPrefix = "onlycars"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Config is the root configuration shared by all binaries.
type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Sadad        SadadConfig
	FCM          FCMConfig
	Orders       OrdersConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	RateLimit    RateLimitConfig
	Outbox       OutboxConfig
	FeatureFlags FeatureFlagsConfig
}

type AppConfig struct {
	Env      string `envconfig:"ONLYCARS_APP_ENV" default:"dev"`
	Port     string `envconfig:"ONLYCARS_PORT" default:"8080"`
	LogLevel string `envconfig:"ONLYCARS_LOG_LEVEL" default:"info"`
}

func (c AppConfig) IsDev() bool { return c.Env == AppEnvDev }

// DBConfig carries the postgres connection. DSN wins when set; otherwise the
// discrete host/user fields are assembled into one.
type DBConfig struct {
	DSN             string        `envconfig:"ONLYCARS_DB_DSN"`
	Host            string        `envconfig:"ONLYCARS_DB_HOST" default:"localhost"`
	Port            string        `envconfig:"ONLYCARS_DB_PORT" default:"5432"`
	User            string        `envconfig:"ONLYCARS_DB_USER" default:"postgres"`
	Password        string        `envconfig:"ONLYCARS_DB_PASSWORD"`
	Name            string        `envconfig:"ONLYCARS_DB_NAME" default:"onlycars"`
	SSLMode         string        `envconfig:"ONLYCARS_DB_SSLMODE" default:"disable"`
	MaxOpenConns    int           `envconfig:"ONLYCARS_DB_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns    int           `envconfig:"ONLYCARS_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"ONLYCARS_DB_CONN_MAX_LIFETIME" default:"30m"`
	ConnMaxIdleTime time.Duration `envconfig:"ONLYCARS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ONLYCARS_REDIS_URL"`
	Address      string        `envconfig:"ONLYCARS_REDIS_ADDR" default:"localhost:6379"`
	Password     string        `envconfig:"ONLYCARS_REDIS_PASSWORD"`
	DB           int           `envconfig:"ONLYCARS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ONLYCARS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ONLYCARS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ONLYCARS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ONLYCARS_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"ONLYCARS_REDIS_WRITE_TIMEOUT" default:"3s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"ONLYCARS_JWT_SECRET"`
	Issuer            string `envconfig:"ONLYCARS_JWT_ISSUER" default:"onlycars"`
	ExpirationMinutes int    `envconfig:"ONLYCARS_JWT_EXPIRATION_MINUTES" default:"60"`
}

// SadadConfig configures the Sadad payment gateway client.
type SadadConfig struct {
	BaseURL     string        `envconfig:"ONLYCARS_SADAD_BASE_URL" default:"https://api.sadadqatar.com/api-v4"`
	MerchantID  string        `envconfig:"ONLYCARS_SADAD_MERCHANT_ID" default:"2334863"`
	SecretKey   string        `envconfig:"ONLYCARS_SADAD_SECRET_KEY"`
	Timeout     time.Duration `envconfig:"ONLYCARS_SADAD_TIMEOUT" default:"15s"`
	CallbackURL string        `envconfig:"ONLYCARS_SADAD_CALLBACK_URL"`
	SuccessURL  string        `envconfig:"ONLYCARS_SADAD_SUCCESS_URL"`
	FailureURL  string        `envconfig:"ONLYCARS_SADAD_FAILURE_URL"`
}

type FCMConfig struct {
	ServerKey string        `envconfig:"ONLYCARS_FCM_SERVER_KEY"`
	Timeout   time.Duration `envconfig:"ONLYCARS_FCM_TIMEOUT" default:"10s"`
}

// OrdersConfig carries the marketplace money knobs.
type OrdersConfig struct {
	CommissionRate string `envconfig:"ONLYCARS_ORDERS_COMMISSION_RATE" default:"0.15"`
	DeliveryFee    string `envconfig:"ONLYCARS_ORDERS_DELIVERY_FEE" default:"25"`
	Currency       string `envconfig:"ONLYCARS_ORDERS_CURRENCY" default:"QAR"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"ONLYCARS_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	TopicID        string `envconfig:"ONLYCARS_PUBSUB_TOPIC_ID" default:"onlycars-domain-events"`
	SubscriptionID string `envconfig:"ONLYCARS_PUBSUB_SUBSCRIPTION_ID" default:"onlycars-domain-events-worker"`
}

// RateLimitConfig throttles the unauthenticated webhook surface.
type RateLimitConfig struct {
	WebhookWindow  time.Duration `envconfig:"ONLYCARS_RATE_LIMIT_WEBHOOK_WINDOW" default:"1m"`
	WebhookIPLimit int           `envconfig:"ONLYCARS_RATE_LIMIT_WEBHOOK_IP_LIMIT" default:"120"`
}

type OutboxConfig struct {
	PollIntervalMS int           `envconfig:"ONLYCARS_OUTBOX_POLL_INTERVAL_MS" default:"500"`
	BatchSize      int           `envconfig:"ONLYCARS_OUTBOX_BATCH_SIZE" default:"50"`
	MaxAttempts    int           `envconfig:"ONLYCARS_OUTBOX_MAX_ATTEMPTS" default:"10"`
	ProcessedTTL   time.Duration `envconfig:"ONLYCARS_OUTBOX_PROCESSED_TTL" default:"72h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"ONLYCARS_FEATURE_AUTO_MIGRATE" default:"false"`
}

// Load reads .env when present, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.DB.DSN = ensureDSN(cfg.DB)
	return &cfg, nil
}

// MustLoad is Load for binaries that cannot start without config.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return cfg
}

func ensureDSN(db DBConfig) string {
	if strings.TrimSpace(db.DSN) != "" {
		return db.DSN
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%s", db.Host, db.Port),
		Path:   "/" + db.Name,
	}
	if db.Password != "" {
		u.User = url.UserPassword(db.User, db.Password)
	} else {
		u.User = url.User(db.User)
	}
	q := url.Values{}
	q.Set("sslmode", db.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
