package config // package config loads application configuration from environment variables

import (
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"strings"
	"time"

	"github.com/joho/godotenv"     // optional .env file for local runs
	"github.com/sirupsen/logrus" // fatal logging on broken configuration
)

// Store backends selectable through STORE_BACKEND.
const (
	StoreMySQL  = "mysql"
	StoreMemory = "memory"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Database settings are only required when the
// MySQL store backend is selected.
type Config struct {
	Env           string        // application environment (e.g. "dev", "prod")
	Port          string        // HTTP port to listen on
	LogLevel      string        // logrus level name
	StoreBackend  string        // "mysql" (default) or "memory"
	DBUser        string        // database username
	DBPass        string        // database password (optional)
	DBHost        string        // database host address
	DBPort        string        // database port number
	DBName        string        // database name
	DBMigrate     bool          // apply embedded migrations on start
	SeedCatalog   bool          // write the sample catalog on start
	JWTSecret     string        // secret used to verify access tokens
	AMQPURL       string        // RabbitMQ connection URL; empty disables events
	SweepInterval time.Duration // how often PAYMENT_COMPLETED bookings are checked for finished travel
}

// Load reads configuration values from the environment, after merging an
// optional .env file from the working directory.  Missing required
// variables stop the process with a fatal log message.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("config: could not read .env file")
	}
	cfg := Config{
		Env:           must("APP_ENV"),
		Port:          must("APP_PORT"),
		LogLevel:      envStr("LOG_LEVEL", "info"),
		StoreBackend:  strings.ToLower(envStr("STORE_BACKEND", StoreMySQL)),
		DBMigrate:     envBool("DB_MIGRATE", true),
		JWTSecret:     must("JWT_SECRET"),
		AMQPURL:       amqpURL(),
		SweepInterval: envDur("TRAVEL_SWEEP_INTERVAL", time.Hour),
	}
	switch cfg.StoreBackend {
	case StoreMySQL:
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS") // empty allowed
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = strconv.Itoa(mustInt("DB_PORT"))
		cfg.DBName = must("DB_NAME")
	case StoreMemory:
	default:
		logrus.Fatalf("invalid STORE_BACKEND %q (want mysql or memory)", cfg.StoreBackend)
	}
	// The memory store starts empty, so it is seeded unless told otherwise.
	cfg.SeedCatalog = envBool("SEED_CATALOG", cfg.StoreBackend == StoreMemory)
	if cfg.SweepInterval < time.Minute {
		cfg.SweepInterval = time.Minute
	}
	return cfg
}

// amqpURL prefers RABBITMQ_URL and falls back to AMQP_URL.
func amqpURL() string {
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		return v
	}
	return os.Getenv("AMQP_URL")
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		logrus.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		logrus.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
