package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr string
}

// RedisConfig captures connection settings for the shared Redis client.
// An empty URL means Redis is not configured and in-memory stores are used.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig captures PostgreSQL settings. An empty DSN means the
// in-memory stores are used.
type DatabaseConfig struct {
	DSN string
}

// KafkaConfig captures event publishing settings. Empty brokers disable
// anchor event publishing.
type KafkaConfig struct {
	Brokers         string
	Acks            string
	Retries         int
	DeliveryTimeout time.Duration
	AnchorTopic     string
}

// AnchorConfig drives the anchor submission pipeline. Mode is a process-wide
// configuration value set at startup and injected into the anchor service so
// tests can exercise all three modes deterministically.
type AnchorConfig struct {
	Mode           string
	LedgerURL      string
	LedgerTimeout  time.Duration
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	MaxAttempts    int
	PollInterval   time.Duration
	BatchSize      int
}

// IssuerConfig locates the issuing authority consulted for revocation and
// names the issuer DIDs this verifier trusts.
type IssuerConfig struct {
	BaseURL     string
	Timeout     time.Duration
	TrustedDIDs []string
}

// Config aggregates all subsystem configuration.
type Config struct {
	Server          Server
	Redis           RedisConfig
	Database        DatabaseConfig
	Kafka           KafkaConfig
	Anchor          AnchorConfig
	Issuer          IssuerConfig
	ReplayTTL       time.Duration
	PresentationTTL time.Duration
}

// FromEnv builds configuration from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr: envOr("ATTESTO_ADDR", ":8080"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Database: DatabaseConfig{
			DSN: os.Getenv("DATABASE_DSN"),
		},
		Kafka: KafkaConfig{
			Brokers:         os.Getenv("KAFKA_BROKERS"),
			Acks:            envOr("KAFKA_ACKS", "all"),
			Retries:         envInt("KAFKA_RETRIES", 5),
			DeliveryTimeout: envDuration("KAFKA_DELIVERY_TIMEOUT", 10*time.Second),
			AnchorTopic:     envOr("KAFKA_ANCHOR_TOPIC", "attesto.anchor.events"),
		},
		Anchor: AnchorConfig{
			Mode:           envOr("ANCHOR_MODE", "active"),
			LedgerURL:      os.Getenv("LEDGER_URL"),
			LedgerTimeout:  envDuration("LEDGER_TIMEOUT", 10*time.Second),
			RetryBaseDelay: envDuration("ANCHOR_RETRY_BASE_DELAY", 30*time.Second),
			RetryMaxDelay:  envDuration("ANCHOR_RETRY_MAX_DELAY", 30*time.Minute),
			MaxAttempts:    envInt("ANCHOR_MAX_ATTEMPTS", 6),
			PollInterval:   envDuration("ANCHOR_POLL_INTERVAL", 5*time.Second),
			BatchSize:      envInt("ANCHOR_BATCH_SIZE", 50),
		},
		Issuer: IssuerConfig{
			BaseURL:     os.Getenv("ISSUER_BASE_URL"),
			Timeout:     envDuration("ISSUER_TIMEOUT", 5*time.Second),
			TrustedDIDs: envList("TRUSTED_ISSUER_DIDS"),
		},
		ReplayTTL:       envDuration("REPLAY_TTL", 10*time.Minute),
		PresentationTTL: envDuration("PRESENTATION_REQUEST_TTL", 5*time.Minute),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
