package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Cache backend names accepted by CACHE_BACKEND.
const (
	CacheFile     = "file"
	CacheRedis    = "redis"
	CachePostgres = "postgres"
	CacheMemory   = "memory"
)

// Config holds the runtime configuration for the ZivaCare SDK and zivactl.
type Config struct {
	ServiceName string
	Env         string
	LogLevel    string

	// ManagementURL serves auth and user lifecycle calls; APIURL serves the
	// versioned per-resource endpoints.
	ManagementURL string
	APIURL        string
	DemoMode      bool

	CacheBackend string
	CachePath    string
	CacheKey     string
	RedisAddr    string
	RedisDB      int
	RedisPass    string
	DatabaseURL  string

	RequestTimeout    time.Duration
	MaxRetries        int
	BackoffMultiplier float64
	Workers           int
	RateLimitRPS      int
	RateLimitBurst    int

	NATSURL       string
	EventsSubject string

	// CredentialsSecret names an AWS Secrets Manager secret used to seed
	// clientId/clientSecret/... at start-up. Empty disables seeding.
	AWSRegion         string
	CredentialsSecret string

	StatusPort int
}

// Load loads configuration from environment variables and optional .env file.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServiceName:       GetEnv("SERVICE_NAME", "zivactl"),
		Env:               GetEnv("ENV", "dev"),
		LogLevel:          GetEnv("LOG_LEVEL", "info"),
		ManagementURL:     strings.TrimSuffix(GetEnv("ZIVA_MANAGEMENT_URL", ""), "/"),
		APIURL:            strings.TrimSuffix(GetEnv("ZIVA_API_URL", ""), "/"),
		DemoMode:          GetEnvBool("ZIVA_DEMO", false),
		CacheBackend:      strings.ToLower(GetEnv("CACHE_BACKEND", CacheFile)),
		CachePath:         GetEnv("CACHE_PATH", "ziva_cache"),
		CacheKey:          GetEnv("CACHE_KEY", "ziva:credentials"),
		RedisAddr:         GetEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:           GetEnvInt("REDIS_DB", 0),
		RedisPass:         GetEnv("REDIS_PASS", ""),
		DatabaseURL:       GetEnv("DATABASE_URL", ""),
		RequestTimeout:    GetEnvDuration("REQUEST_TIMEOUT", 15*time.Second),
		MaxRetries:        GetEnvInt("REQUEST_MAX_RETRIES", 1),
		BackoffMultiplier: GetEnvFloat("REQUEST_BACKOFF_MULT", 1.0),
		Workers:           GetEnvInt("TRANSPORT_WORKERS", 4),
		RateLimitRPS:      GetEnvInt("RATE_LIMIT_RPS", 10),
		RateLimitBurst:    GetEnvInt("RATE_LIMIT_BURST", 20),
		NATSURL:           GetEnv("NATS_URL", ""),
		EventsSubject:     GetEnv("EVENTS_SUBJECT", "evt.ziva.credentials.v1"),
		AWSRegion:         GetEnv("AWS_REGION", "us-east-2"),
		CredentialsSecret: GetEnv("CREDENTIALS_SECRET", ""),
		StatusPort:        GetEnvInt("STATUS_PORT", 9040),
	}
}

// Validate reports configuration that would make the client unusable.
func (c *Config) Validate() error {
	var errs []error
	if c.ManagementURL == "" {
		errs = append(errs, errors.New("ZIVA_MANAGEMENT_URL is required"))
	}
	if c.APIURL == "" {
		errs = append(errs, errors.New("ZIVA_API_URL is required"))
	}
	switch c.CacheBackend {
	case CacheFile, CacheRedis, CacheMemory:
	case CachePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres cache backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown CACHE_BACKEND %q", c.CacheBackend))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, errors.New("REQUEST_MAX_RETRIES must not be negative"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("REQUEST_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}
