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
	Geo           GeoConfig
	Stripe        StripeConfig
	GoogleMaps    GoogleMapsConfig
	GCP           GCPConfig
	GCS           GCSConfig
	PubSub        PubSubConfig
	Email         EmailConfig
	Webhook       WebhookConfig
	Signature     SignatureConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
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
	Env          string `envconfig:"SHIFTWISE_APP_ENV" required:"true"`
	Port         string `envconfig:"SHIFTWISE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SHIFTWISE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SHIFTWISE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SHIFTWISE_DB_DSN"`
	Driver string `envconfig:"SHIFTWISE_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"SHIFTWISE_DB_HOST"`
	Port     int    `envconfig:"SHIFTWISE_DB_PORT" default:"5432"`
	User     string `envconfig:"SHIFTWISE_DB_USER"`
	Password string `envconfig:"SHIFTWISE_DB_PASSWORD"`
	Name     string `envconfig:"SHIFTWISE_DB_NAME"`
	SSLMode  string `envconfig:"SHIFTWISE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SHIFTWISE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SHIFTWISE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SHIFTWISE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SHIFTWISE_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	AutoMigrate bool `envconfig:"SHIFTWISE_AUTO_MIGRATE" default:"false"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SHIFTWISE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SHIFTWISE_REDIS_ADDR"`
	Password     string        `envconfig:"SHIFTWISE_REDIS_PASSWORD"`
	DB           int           `envconfig:"SHIFTWISE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SHIFTWISE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SHIFTWISE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SHIFTWISE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SHIFTWISE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SHIFTWISE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SHIFTWISE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SHIFTWISE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SHIFTWISE_JWT_EXPIRATION_MINUTES" default:"60"`
}

// GeoConfig controls completion proximity enforcement.
type GeoConfig struct {
	ProximityThresholdMeters float64 `envconfig:"SHIFTWISE_GEO_PROXIMITY_THRESHOLD_METERS" default:"500"`
	AllowAdminOverride       bool    `envconfig:"SHIFTWISE_GEO_ALLOW_ADMIN_OVERRIDE" default:"false"`
}

type StripeConfig struct {
	APIKey string `envconfig:"SHIFTWISE_STRIPE_API_KEY"`
	Secret string `envconfig:"SHIFTWISE_STRIPE_SECRET"`
	Env    string `envconfig:"SHIFTWISE_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type GoogleMapsConfig struct {
	APIKey string `envconfig:"SHIFTWISE_GOOGLE_MAPS_API_KEY"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SHIFTWISE_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"SHIFTWISE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SHIFTWISE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName        string        `envconfig:"SHIFTWISE_GCS_BUCKET_NAME"`
	DownloadURLExpiry time.Duration `envconfig:"SHIFTWISE_GCS_DOWNLOAD_URL_EXPIRY" default:"15m"`
}

type PubSubConfig struct {
	NotificationTopic        string `envconfig:"SHIFTWISE_PUBSUB_NOTIFICATION_TOPIC" default:"sw-notification-events"`
	NotificationSubscription string `envconfig:"SHIFTWISE_PUBSUB_NOTIFICATION_SUBSCRIPTION" default:"sw-notification-worker"`
}

type EmailConfig struct {
	Region      string `envconfig:"SHIFTWISE_EMAIL_AWS_REGION" default:"eu-west-2"`
	DefaultFrom string `envconfig:"SHIFTWISE_EMAIL_FROM" default:"noreply@shiftwise.app"`
}

// WebhookConfig tunes billing webhook protection.
type WebhookConfig struct {
	IdempotencyTTL  time.Duration `envconfig:"SHIFTWISE_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
	RateLimitWindow time.Duration `envconfig:"SHIFTWISE_WEBHOOK_RATE_LIMIT_WINDOW" default:"1m"`
	RateLimit       int64         `envconfig:"SHIFTWISE_WEBHOOK_RATE_LIMIT" default:"120"`
}

// SignatureConfig bounds completion signature payloads.
type SignatureConfig struct {
	MaxBytes int `envconfig:"SHIFTWISE_SIGNATURE_MAX_BYTES" default:"1048576"`
}

// AuthRateLimitConfig throttles credential-guessing traffic on the login
// endpoint. A zero window disables the limiter.
type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"SHIFTWISE_AUTH_RL_LOGIN_WINDOW" default:"5m"`
	LoginIPLimit    int           `envconfig:"SHIFTWISE_AUTH_RL_LOGIN_IP_LIMIT" default:"30"`
	LoginEmailLimit int           `envconfig:"SHIFTWISE_AUTH_RL_LOGIN_EMAIL_LIMIT" default:"10"`
}

// PasswordConfig carries the Argon2id hashing parameters.
type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"SHIFTWISE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"SHIFTWISE_ARGON_TIME" default:"1"`
	ArgonParallelism int `envconfig:"SHIFTWISE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"SHIFTWISE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"SHIFTWISE_ARGON_KEY_LEN" default:"32"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range requiredDBEnvVars {
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
