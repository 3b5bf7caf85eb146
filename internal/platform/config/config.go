package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds runtime configuration loaded from environment variables so
// main stays lean.
type Config struct {
	Addr        string
	PostgresURL string
	Redis       RedisConfig

	JWTSigningKey string
	JWTIssuer     string

	// QRBaseURL is the public URL prefix embedded in generated QR payloads.
	QRBaseURL string

	// TokenTTL bounds the validity of issued clock tokens. Fixed per
	// deployment, never per call.
	TokenTTL time.Duration

	// RateLimitAttempts per RateLimitWindow, keyed by employee.
	RateLimitAttempts int
	RateLimitWindow   time.Duration

	// DefaultAccuracyMaxMeters applies when a location carries no accuracy
	// policy of its own.
	DefaultAccuracyMaxMeters float64

	// AllowUnknownAccuracy accepts submissions without a client-reported
	// accuracy. Off by default: absent accuracy is treated as worst-case.
	AllowUnknownAccuracy bool

	// KafkaBrokers enables the reporting event publisher when non-empty.
	KafkaBrokers string
	KafkaTopic   string

	// StoreTimeout bounds every call into redis/postgres.
	StoreTimeout time.Duration
}

// RedisConfig carries connection settings for the shared Redis client.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Config from environment variables with development
// defaults.
func FromEnv() Config {
	return Config{
		Addr:        getEnv("RCP_ADDR", ":8080"),
		PostgresURL: getEnv("RCP_POSTGRES_URL", ""),
		Redis: RedisConfig{
			URL:          getEnv("RCP_REDIS_URL", ""),
			PoolSize:     intEnv("RCP_REDIS_POOL_SIZE", 10),
			MinIdleConns: intEnv("RCP_REDIS_MIN_IDLE", 2),
			DialTimeout:  durationEnv("RCP_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  durationEnv("RCP_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: durationEnv("RCP_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		JWTSigningKey:            getEnv("RCP_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTIssuer:                getEnv("RCP_JWT_ISSUER", "workclock"),
		QRBaseURL:                getEnv("RCP_QR_BASE_URL", "https://app.workclock.local/rcp/clock"),
		TokenTTL:                 durationEnv("RCP_TOKEN_TTL", 10*time.Minute),
		RateLimitAttempts:        intEnv("RCP_RATE_LIMIT_ATTEMPTS", 5),
		RateLimitWindow:          durationEnv("RCP_RATE_LIMIT_WINDOW", time.Minute),
		DefaultAccuracyMaxMeters: floatEnv("RCP_DEFAULT_ACCURACY_MAX_METERS", 100),
		AllowUnknownAccuracy:     boolEnv("RCP_ALLOW_UNKNOWN_ACCURACY", false),
		KafkaBrokers:             getEnv("RCP_KAFKA_BROKERS", ""),
		KafkaTopic:               getEnv("RCP_KAFKA_TOPIC", "rcp.clock-events"),
		StoreTimeout:             durationEnv("RCP_STORE_TIMEOUT", 5*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			log.Printf("invalid duration for %s: %v, using fallback %s", key, err, fallback)
			return fallback
		}
		return d
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Printf("invalid int for %s, using fallback %d", key, fallback)
			return fallback
		}
		return parsed
	}
	return fallback
}

func floatEnv(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			log.Printf("invalid float for %s, using fallback %g", key, fallback)
			return fallback
		}
		return parsed
	}
	return fallback
}

func boolEnv(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		parsed, err := strconv.ParseBool(val)
		if err != nil {
			log.Printf("invalid bool for %s, using fallback %v", key, fallback)
			return fallback
		}
		return parsed
	}
	return fallback
}
