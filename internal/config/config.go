package config // package config loads application configuration from environment variables

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Durations use Go duration syntax (e.g. "2h").
type Config struct {
	Env             string        `envconfig:"APP_ENV" default:"dev"`
	Port            string        `envconfig:"APP_PORT" default:"5000"`
	DatabaseDSN     string        `envconfig:"DATABASE_DSN" required:"true"`
	DBMigrate       bool          `envconfig:"DB_MIGRATE" default:"false"`
	JWTSecret       string        `envconfig:"JWT_SECRET" required:"true"`
	AccessTTL       time.Duration `envconfig:"ACCESS_TOKEN_TTL" default:"2h"`
	RefreshTTL      time.Duration `envconfig:"REFRESH_TOKEN_TTL" default:"720h"`
	BcryptCost      int           `envconfig:"BCRYPT_COST" default:"10"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"5s"`
	NotifyTimeout   time.Duration `envconfig:"NOTIFY_TIMEOUT" default:"3s"`
	RabbitURL       string        `envconfig:"RABBITMQ_URL"`
	ConsumerEnabled bool          `envconfig:"EVENTS_CONSUMER_ENABLED" default:"false"`
	EventsLogDir    string        `envconfig:"EVENTS_LOG_DIR" default:"logs"`
	CORSOrigins     []string      `envconfig:"CORS_ALLOW_ORIGINS" default:"*"`
}

// IsDev reports whether the service runs in a development environment.
func (c Config) IsDev() bool { return c.Env == "dev" || c.Env == "development" }

// Load reads an optional .env file and then the process environment into a
// Config.  A missing .env file is not an error; a missing required variable
// is.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("config: no .env file found, using process environment")
	}
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if c.BcryptCost < 4 {
		c.BcryptCost = 10
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 5 * time.Second
	}
	if c.NotifyTimeout <= 0 {
		c.NotifyTimeout = 3 * time.Second
	}
	return c, nil
}
