package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "VERDANT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "VERDANT_DB_DSN"
	EnvDBHost = "VERDANT_DB_HOST"
	EnvDBUser = "VERDANT_DB_USER"
	EnvDBName = "VERDANT_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Guest         GuestConfig
	Verification  VerificationConfig
	Mail          MailConfig
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
	Env          string `envconfig:"VERDANT_APP_ENV" required:"true"`
	Port         string `envconfig:"VERDANT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"VERDANT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VERDANT_LOG_WARN_STACK" default:"false"`
	BaseURL      string `envconfig:"VERDANT_APP_BASE_URL" default:"http://localhost:8080"`

	CORSOrigins []string `envconfig:"VERDANT_APP_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"VERDANT_DB_DSN"`
	Driver string `envconfig:"VERDANT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"VERDANT_DB_HOST"`
	LegacyPort     int    `envconfig:"VERDANT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"VERDANT_DB_USER"`
	LegacyPassword string `envconfig:"VERDANT_DB_PASSWORD"`
	LegacyName     string `envconfig:"VERDANT_DB_NAME"`
	LegacySSLMode  string `envconfig:"VERDANT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VERDANT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VERDANT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VERDANT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VERDANT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// UsesSQLite reports whether the sqlite driver was requested (dev/test only).
func (db DBConfig) UsesSQLite() bool {
	return strings.EqualFold(db.Driver, "sqlite")
}

type RedisConfig struct {
	URL          string        `envconfig:"VERDANT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"VERDANT_REDIS_ADDR"`
	Password     string        `envconfig:"VERDANT_REDIS_PASSWORD"`
	DB           int           `envconfig:"VERDANT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VERDANT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VERDANT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VERDANT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VERDANT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VERDANT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"VERDANT_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"VERDANT_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"VERDANT_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"VERDANT_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"VERDANT_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"VERDANT_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"VERDANT_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"VERDANT_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"VERDANT_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"VERDANT_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"VERDANT_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"VERDANT_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"VERDANT_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"VERDANT_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"VERDANT_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"VERDANT_AUTO_MIGRATE" default:"false"`
}

// GuestConfig controls the anonymous identity cookies.
type GuestConfig struct {
	CookieName        string        `envconfig:"VERDANT_GUEST_COOKIE_NAME" default:"vd_guest"`
	SessionCookieName string        `envconfig:"VERDANT_GUEST_SESSION_COOKIE_NAME" default:"vd_sess"`
	CookieTTL         time.Duration `envconfig:"VERDANT_GUEST_COOKIE_TTL" default:"8760h"`
	CookieSecure      bool          `envconfig:"VERDANT_GUEST_COOKIE_SECURE" default:"false"`
}

type VerificationConfig struct {
	TokenTTL time.Duration `envconfig:"VERDANT_VERIFICATION_TOKEN_TTL" default:"48h"`
}

type MailConfig struct {
	SendgridAPIKey string `envconfig:"VERDANT_SENDGRID_API_KEY"`
	DefaultFrom    string `envconfig:"VERDANT_MAIL_FROM" default:"noreply@verdant.example"`
	FromName       string `envconfig:"VERDANT_MAIL_FROM_NAME" default:"Verdant"`
	MaxAttempts    int    `envconfig:"VERDANT_MAIL_MAX_ATTEMPTS" default:"3"`
}

// Enabled reports whether outbound email is configured at all.
func (m MailConfig) Enabled() bool {
	return strings.TrimSpace(m.SendgridAPIKey) != ""
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" || db.UsesSQLite() {
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
