// Package config reads service configuration from the environment. Empty
// backend URLs select the in-memory implementations.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    Server
	Postgres  PostgresConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Auth      AuthConfig
	OAuth     OAuthConfig
	Lifecycle LifecycleConfig
	Location  LocationConfig
	LogLevel  string
}

type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
}

type PostgresConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
	// AuditBuffer is the async publisher capacity; 0 emits synchronously.
	AuditBuffer int
}

type AuthConfig struct {
	JWTSigningKey     string
	SessionTTL        time.Duration
	RecentLoginWindow time.Duration
	AdminEmails       []string
}

type OAuthConfig struct {
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
}

// Enabled reports whether federated sign-in is configured.
func (o OAuthConfig) Enabled() bool {
	return o.GoogleClientID != "" && o.GoogleClientSecret != ""
}

type LifecycleConfig struct {
	// CompletedStatuses are the status strings the admin metrics count as completed.
	CompletedStatuses []string
}

type LocationConfig struct {
	SampleTimeout time.Duration
	// KeyTTL expires a live location that stopped receiving samples.
	KeyTTL time.Duration
}

// FromEnv builds the configuration, failing on malformed values rather than
// silently falling back.
func FromEnv() (Config, error) {
	var errs []string
	durationVar := func(key string, def time.Duration) time.Duration {
		v := os.Getenv(key)
		if v == "" {
			return def
		}
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Sprintf("%s: invalid duration %q", key, v))
			return def
		}
		return d
	}
	intVar := func(key string, def int) int {
		v := os.Getenv(key)
		if v == "" {
			return def
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			errs = append(errs, fmt.Sprintf("%s: invalid integer %q", key, v))
			return def
		}
		return n
	}

	cfg := Config{
		Server: Server{
			Addr:            stringVar("GIVETRACK_ADDR", ":8080"),
			ShutdownTimeout: durationVar("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Postgres: PostgresConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: intVar("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns: intVar("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     intVar("REDIS_POOL_SIZE", 10),
			MinIdleConns: intVar("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  durationVar("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  durationVar("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: durationVar("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:     listVar("KAFKA_BROKERS", nil),
			AuditTopic:  stringVar("AUDIT_TOPIC", "givetrack.audit"),
			AuditBuffer: intVar("AUDIT_BUFFER", 1024),
		},
		Auth: AuthConfig{
			// Development default; production deployments must override it.
			JWTSigningKey:     stringVar("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			SessionTTL:        durationVar("SESSION_TTL", 24*time.Hour),
			RecentLoginWindow: durationVar("RECENT_LOGIN_WINDOW", 5*time.Minute),
			AdminEmails:       listVar("ADMIN_EMAILS", nil),
		},
		OAuth: OAuthConfig{
			GoogleClientID:     os.Getenv("OAUTH_GOOGLE_CLIENT_ID"),
			GoogleClientSecret: os.Getenv("OAUTH_GOOGLE_CLIENT_SECRET"),
			GoogleRedirectURL:  os.Getenv("OAUTH_GOOGLE_REDIRECT_URL"),
		},
		Lifecycle: LifecycleConfig{
			CompletedStatuses: listVar("COMPLETED_STATUSES", []string{"received", "confirmed", "completed"}),
		},
		Location: LocationConfig{
			SampleTimeout: durationVar("LOCATION_SAMPLE_TIMEOUT", 5*time.Second),
			KeyTTL:        durationVar("LOCATION_KEY_TTL", 30*time.Minute),
		},
		LogLevel: stringVar("LOG_LEVEL", "info"),
	}
	if len(errs) > 0 {
		return Config{}, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

func stringVar(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// listVar splits a comma-separated value, dropping blanks.
func listVar(key string, def []string) []string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
