package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort        string
	APIBaseURL      string
	PublicBaseURL   string
	RequestTimeout  time.Duration
	BackendTimeout  time.Duration
	ShutdownTimeout time.Duration

	BadgePollInterval time.Duration

	SessionBackend string // redis, mongo or memory
	SessionTTL     time.Duration
	RedisAddr      string
	RedisPassword  string
	MongoURI       string
	MongoDBName    string

	KafkaBrokers []string

	DB DBConfig

	LogLevel       string
	LogDevelopment bool
}

// DBConfig selects the payment ledger database.
type DBConfig struct {
	Driver         string // sqlite or postgres
	Path           string
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	MigrationsPath string
}

// Load reads .env (if present) and then the process environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		HTTPPort:          getEnv("HTTP_PORT", "8080"),
		APIBaseURL:        strings.TrimSuffix(getEnv("API_BASE_URL", "http://localhost:5000/api"), "/"),
		PublicBaseURL:     strings.TrimSuffix(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		RequestTimeout:    getDuration("REQUEST_TIMEOUT", 30*time.Second),
		BackendTimeout:    getDuration("BACKEND_TIMEOUT", 10*time.Second),
		ShutdownTimeout:   getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		BadgePollInterval: getDuration("BADGE_POLL_INTERVAL", 20*time.Second),
		SessionBackend:    getEnv("SESSION_BACKEND", "redis"),
		SessionTTL:        getDuration("SESSION_TTL", 7*24*time.Hour),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		MongoURI:          getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:       getEnv("MONGO_DB_NAME", "storefront"),
		KafkaBrokers:      getList("KAFKA_BROKERS"),
		DB: DBConfig{
			Driver:         getEnv("DB_DRIVER", "sqlite"),
			Path:           getEnv("DB_PATH", "./storefront.db"),
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getInt("DB_PORT", 5432),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			Name:           getEnv("DB_NAME", "storefront"),
			MigrationsPath: getEnv("MIGRATIONS_PATH", "./internal/payment/migrations"),
		},
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogDevelopment: getBool("LOG_DEVELOPMENT", false),
	}
}

// SuccessURL is the fixed absolute URL the payment provider returns to.
func (c *Config) SuccessURL() string {
	return c.PublicBaseURL + "/success"
}

func (c *Config) CancelURL() string {
	return c.PublicBaseURL + "/cancel"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

func getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

func getList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
