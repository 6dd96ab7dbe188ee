package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
	GRPCAddr string `env:"GRPC_ADDR" envDefault:":9090"`

	Version string `env:"APP_VERSION" envDefault:"dev"`
	Commit  string `env:"APP_COMMIT" envDefault:"unknown"`

	Database DatabaseConfig
	Auth     AuthConfig
	HTTP     HTTPConfig
	Uploads  UploadConfig
}

type DatabaseConfig struct {
	URL             string        `env:"DATABASE_URL"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
}

type AuthConfig struct {
	AccessSecret  string        `env:"AUTH_ACCESS_SECRET,required,notEmpty"`
	RefreshSecret string        `env:"AUTH_REFRESH_SECRET,required,notEmpty"`
	Issuer        string        `env:"AUTH_ISSUER" envDefault:"app-portal"`
	AccessTTL     time.Duration `env:"AUTH_ACCESS_TTL" envDefault:"1h"`
	RefreshTTL    time.Duration `env:"AUTH_REFRESH_TTL" envDefault:"168h"`
	ResetTTL      time.Duration `env:"AUTH_RESET_TTL" envDefault:"1h"`
}

type HTTPConfig struct {
	MaxBodyBytes      int64         `env:"MAX_BODY_BYTES" envDefault:"1048576"`
	RateLimitBurst    int           `env:"RATE_LIMIT_BURST" envDefault:"10"`
	RateLimitPerSec   int           `env:"RATE_LIMIT_PER_SEC" envDefault:"5"`
	TrustProxyHeaders bool          `env:"TRUST_PROXY_HEADERS" envDefault:"false"`
	CORSOrigins       []string      `env:"CORS_ORIGINS" envSeparator:","`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

type UploadConfig struct {
	Dir      string `env:"UPLOAD_DIR" envDefault:"public/uploads"`
	MaxBytes int64  `env:"UPLOAD_MAX_BYTES" envDefault:"5242880"`
}

// Load reads the configuration from the process environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints the env tags cannot express.
func (c Config) Validate() error {
	if c.Auth.AccessSecret == c.Auth.RefreshSecret {
		return errors.New("config: AUTH_ACCESS_SECRET and AUTH_REFRESH_SECRET must differ")
	}
	if c.Auth.AccessTTL <= 0 || c.Auth.RefreshTTL <= 0 || c.Auth.ResetTTL <= 0 {
		return errors.New("config: token TTLs must be positive")
	}
	if c.Auth.AccessTTL >= c.Auth.RefreshTTL {
		return errors.New("config: AUTH_ACCESS_TTL must be shorter than AUTH_REFRESH_TTL")
	}
	if c.HTTP.RateLimitBurst <= 0 || c.HTTP.RateLimitPerSec <= 0 {
		return errors.New("config: rate limit settings must be positive")
	}
	return nil
}
