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
	Password     PasswordConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	CORS         CORSConfig
	GCP          GCPConfig
	GCS          GCSConfig
	Media        MediaConfig
	PubSub       PubSubConfig
	Stripe       StripeConfig
	Checkout     CheckoutConfig
	Cart         CartConfig
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
	if err := cfg.Checkout.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"NILGIRISFRESH_APP_ENV" required:"true"`
	Port         string `envconfig:"NILGIRISFRESH_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"NILGIRISFRESH_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"NILGIRISFRESH_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"NILGIRISFRESH_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type ServiceConfig struct {
	Kind string `envconfig:"NILGIRISFRESH_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"NILGIRISFRESH_DB_DSN"`
	Driver string `envconfig:"NILGIRISFRESH_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"NILGIRISFRESH_DB_HOST"`
	LegacyPort     int    `envconfig:"NILGIRISFRESH_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"NILGIRISFRESH_DB_USER"`
	LegacyPassword string `envconfig:"NILGIRISFRESH_DB_PASSWORD"`
	LegacyName     string `envconfig:"NILGIRISFRESH_DB_NAME"`
	LegacySSLMode  string `envconfig:"NILGIRISFRESH_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"NILGIRISFRESH_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"NILGIRISFRESH_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"NILGIRISFRESH_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"NILGIRISFRESH_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"NILGIRISFRESH_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"NILGIRISFRESH_REDIS_URL" required:"true"`
	Address      string        `envconfig:"NILGIRISFRESH_REDIS_ADDR"`
	Password     string        `envconfig:"NILGIRISFRESH_REDIS_PASSWORD"`
	DB           int           `envconfig:"NILGIRISFRESH_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"NILGIRISFRESH_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"NILGIRISFRESH_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"NILGIRISFRESH_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"NILGIRISFRESH_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"NILGIRISFRESH_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"NILGIRISFRESH_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"NILGIRISFRESH_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"NILGIRISFRESH_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"NILGIRISFRESH_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"NILGIRISFRESH_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"NILGIRISFRESH_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"NILGIRISFRESH_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"NILGIRISFRESH_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"NILGIRISFRESH_ARGON_KEY_LEN" default:"32"`
}

// RateLimitConfig throttles the unauthenticated write surfaces. A zero
// window disables a policy.
type RateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"NILGIRISFRESH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"NILGIRISFRESH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"NILGIRISFRESH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"NILGIRISFRESH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"NILGIRISFRESH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"NILGIRISFRESH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
	EnquiryWindow      time.Duration `envconfig:"NILGIRISFRESH_RATE_LIMIT_ENQUIRY_WINDOW" default:"1h"`
	EnquiryPhoneLimit  int           `envconfig:"NILGIRISFRESH_RATE_LIMIT_ENQUIRY_PHONE_LIMIT" default:"5"`
	EnquiryIPLimit     int           `envconfig:"NILGIRISFRESH_RATE_LIMIT_ENQUIRY_IP_LIMIT" default:"10"`
}

type FeatureFlagsConfig struct {
	AutoMigrate   bool `envconfig:"NILGIRISFRESH_AUTO_MIGRATE" default:"false"`
	PublishEvents bool `envconfig:"NILGIRISFRESH_PUBLISH_EVENTS" default:"false"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"NILGIRISFRESH_CORS_ALLOWED_ORIGINS" default:"http://localhost:8080,http://localhost:5173"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"NILGIRISFRESH_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"NILGIRISFRESH_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"NILGIRISFRESH_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName        string        `envconfig:"NILGIRISFRESH_GCS_BUCKET_NAME" required:"true"`
	EvidenceBucket    string        `envconfig:"NILGIRISFRESH_GCS_EVIDENCE_BUCKET_NAME"`
	DownloadURLExpiry time.Duration `envconfig:"NILGIRISFRESH_GCS_DOWNLOAD_URL_EXPIRY" default:"1h"`
}

type MediaConfig struct {
	MaxUploadMB int `envconfig:"NILGIRISFRESH_MAX_UPLOAD_MB" default:"10"`
}

// MaxUploadBytes converts the configured megabyte limit to bytes.
func (m MediaConfig) MaxUploadBytes() int64 {
	if m.MaxUploadMB <= 0 {
		return 10 << 20
	}
	return int64(m.MaxUploadMB) << 20
}

type PubSubConfig struct {
	OrdersTopic string `envconfig:"NILGIRISFRESH_PUBSUB_ORDERS_TOPIC" default:"nf-order-events"`
}

type StripeConfig struct {
	APIKey string `envconfig:"NILGIRISFRESH_STRIPE_API_KEY"`
	Secret string `envconfig:"NILGIRISFRESH_STRIPE_SECRET"`
	Env    string `envconfig:"NILGIRISFRESH_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type CheckoutConfig struct {
	Currency     string        `envconfig:"NILGIRISFRESH_CHECKOUT_CURRENCY" default:"inr"`
	LockTTL      time.Duration `envconfig:"NILGIRISFRESH_CHECKOUT_LOCK_TTL" default:"15m"`
	AwaitTimeout time.Duration `envconfig:"NILGIRISFRESH_CHECKOUT_AWAIT_TIMEOUT" default:"20s"`
	AttemptTTL   time.Duration `envconfig:"NILGIRISFRESH_CHECKOUT_ATTEMPT_TTL" default:"2h"`
}

func (c CheckoutConfig) validate() error {
	if len(strings.TrimSpace(c.Currency)) != 3 {
		return fmt.Errorf("%s must be a three letter currency code", EnvCheckoutCurrency)
	}
	if c.AwaitTimeout <= 0 {
		return fmt.Errorf("%s must be positive", EnvCheckoutAwaitTimeout)
	}
	return nil
}

type CartConfig struct {
	GuestTTL time.Duration `envconfig:"NILGIRISFRESH_CART_GUEST_TTL" default:"720h"`
}

type CronConfig struct {
	Interval       time.Duration `envconfig:"NILGIRISFRESH_CRON_INTERVAL" default:"5m"`
	LockTTL        time.Duration `envconfig:"NILGIRISFRESH_CRON_LOCK_TTL" default:"10m"`
	BatchSize      int           `envconfig:"NILGIRISFRESH_CRON_BATCH_SIZE" default:"50"`
	ReconcileGrace time.Duration `envconfig:"NILGIRISFRESH_CRON_RECONCILE_GRACE" default:"2m"`
	JobTimeout     time.Duration `envconfig:"NILGIRISFRESH_CRON_JOB_TIMEOUT" default:"2m"`
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
