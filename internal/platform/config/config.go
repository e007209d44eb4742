package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures process-level configuration. FromEnv builds it from the
// environment so main stays lean.
type Config struct {
	Addr string

	// JWTSigningKey signs impersonation session tokens.
	JWTSigningKey string
	// OperatorTokenHash is the bcrypt hash of the shared operator API token.
	OperatorTokenHash string

	// SessionTTL is the fixed impersonation token lifetime from issuance.
	SessionTTL time.Duration
	// JustificationDefault is the grant duration applied when a request
	// does not specify one.
	JustificationDefault time.Duration
	// JustificationCeiling is the policy maximum for a single grant.
	JustificationCeiling time.Duration

	PostgresDSN  string
	Redis        RedisConfig
	KafkaBrokers []string
	KafkaTopic   string
}

// RedisConfig carries connection settings for the shared Redis instance.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Config from environment variables, applying development
// defaults where unset.
func FromEnv() Config {
	cfg := Config{
		Addr:                 getenv("OPSGATE_ADDR", ":8080"),
		JWTSigningKey:        getenv("OPSGATE_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		OperatorTokenHash:    os.Getenv("OPSGATE_OPERATOR_TOKEN_HASH"),
		SessionTTL:           getduration("OPSGATE_SESSION_TTL", 60*time.Minute),
		JustificationDefault: getduration("OPSGATE_JUSTIFICATION_DEFAULT", 120*time.Minute),
		JustificationCeiling: getduration("OPSGATE_JUSTIFICATION_CEILING", 8*time.Hour),
		PostgresDSN:          os.Getenv("OPSGATE_POSTGRES_DSN"),
		Redis: RedisConfig{
			URL:          os.Getenv("OPSGATE_REDIS_URL"),
			PoolSize:     getint("OPSGATE_REDIS_POOL_SIZE", 10),
			MinIdleConns: getint("OPSGATE_REDIS_MIN_IDLE", 2),
			DialTimeout:  getduration("OPSGATE_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getduration("OPSGATE_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getduration("OPSGATE_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		KafkaTopic: getenv("OPSGATE_KAFKA_ALERT_TOPIC", "opsgate.alerts"),
	}
	if brokers := os.Getenv("OPSGATE_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
