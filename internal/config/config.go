package config // package config loads application configuration from environment variables

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each leaf field corresponds
// to an environment variable; nested groups mirror the concern they serve.
type Config struct {
	Env       string `env:"APP_ENV" envDefault:"dev"`
	Port      string `env:"APP_PORT" envDefault:"8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	DB        DBConfig
	Auth      AuthConfig
	Bootstrap BootstrapConfig
	Redis     RedisConfig
	RabbitMQ  RabbitMQConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
}

// DBConfig describes the MySQL connection.
type DBConfig struct {
	User        string        `env:"DB_USER,required,notEmpty"`
	Pass        string        `env:"DB_PASS"` // empty allowed
	Host        string        `env:"DB_HOST" envDefault:"127.0.0.1"`
	Port        string        `env:"DB_PORT" envDefault:"3306"`
	Name        string        `env:"DB_NAME,required,notEmpty"`
	MaxOpen     int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdle     int           `env:"DB_MAX_IDLE_CONNS" envDefault:"25"`
	MaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
	AutoMigrate bool          `env:"DB_AUTO_MIGRATE" envDefault:"false"`
}

// AuthConfig configures token issuing and password hashing.
type AuthConfig struct {
	JWTSecret    string        `env:"JWT_SECRET,required,notEmpty"`
	AccessTTL    time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"1h"`
	RefreshTTL   time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`
	SessionCap   int           `env:"SESSION_CAP" envDefault:"5"`
	PasswordSalt string        `env:"PASSWORD_SALT,required,notEmpty"`
	BcryptCost   int           `env:"BCRYPT_COST" envDefault:"10"`
}

// BootstrapConfig optionally seeds the first administrator.  Nothing is
// done unless Email is set.
type BootstrapConfig struct {
	Username string `env:"BOOTSTRAP_ADMIN_USERNAME" envDefault:"admin"`
	Email    string `env:"BOOTSTRAP_ADMIN_EMAIL"`
	Password string `env:"BOOTSTRAP_ADMIN_PASSWORD"`
}

// RabbitMQConfig points at the broker receiving domain events.  An empty
// URL disables publishing.
type RabbitMQConfig struct {
	URL      string `env:"RABBITMQ_URL"`
	Exchange string `env:"RABBITMQ_EXCHANGE" envDefault:"backoffice.events"`
	Queue    string `env:"RABBITMQ_AUDIT_QUEUE" envDefault:"backoffice.audit"`
	LogDir   string `env:"EVENT_LOG_DIR" envDefault:"logs"`
}

// Load reads an optional .env file and then the process environment.
// Missing required variables are reported as an error.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Auth.SessionCap < 1 {
		cfg.Auth.SessionCap = 1
	}
	if cfg.Auth.AccessTTL <= 0 || cfg.Auth.RefreshTTL <= 0 {
		return Config{}, errors.New("token TTLs must be positive")
	}
	cfg.RateLimit.normalize()
	cfg.Cache.normalize()
	return cfg, nil
}
