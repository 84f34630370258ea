package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort              string
	ServerReadHeaderTimeout time.Duration
	ServerWriteTimeout      time.Duration
	ServerIdleTimeout       time.Duration
	RequestTimeout          time.Duration

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	RedisURL     string
	CacheTTL     time.Duration
	RedisRetries int

	JWTSecret     string
	JWTAlgorithm  string
	JWTAccessTTL  time.Duration
	JWTRefreshTTL time.Duration
	EmailTokenTTL time.Duration

	MailHost     string
	MailPort     int
	MailUsername string
	MailPassword string
	MailFrom     string
	MailFromName string
	MailDev      bool

	AppHost string

	CORSOrigins      []string
	RateLimitRPM     int
	AuthRateLimitRPM int
}

// allowed JWT signing algorithms; anything else is rejected at startup.
var allowedAlgorithms = map[string]struct{}{
	"HS256": {},
	"HS512": {},
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:              getEnv("SERVER_PORT", "8080"),
		ServerReadHeaderTimeout: getDuration("SERVER_READ_HEADER_TIMEOUT", 15*time.Second),
		ServerWriteTimeout:      getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		ServerIdleTimeout:       getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		RequestTimeout:          getDuration("REQUEST_TIMEOUT", 30*time.Second),
		DatabaseURL:             strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:              int32(getInt("DB_MAX_CONNS", 10)),
		DBMinConns:              int32(getInt("DB_MIN_CONNS", 2)),
		RedisURL:                getEnv("REDIS_URL", "redis://localhost:6379/0"),
		CacheTTL:                getDuration("CACHE_TTL", 900*time.Second),
		RedisRetries:            getInt("REDIS_RETRY_ATTEMPTS", 3),
		JWTSecret:               strings.TrimSpace(os.Getenv("SECRET_KEY_JWT")),
		JWTAlgorithm:            getEnv("JWT_ALGORITHM", "HS256"),
		JWTAccessTTL:            getDuration("JWT_ACCESS_TTL", 15*time.Minute),
		JWTRefreshTTL:           getDuration("JWT_REFRESH_TTL", 168*time.Hour),
		EmailTokenTTL:           getDuration("EMAIL_TOKEN_TTL", 168*time.Hour),
		MailHost:                getEnv("MAIL_SERVER", "localhost"),
		MailPort:                getInt("MAIL_PORT", 465),
		MailUsername:            strings.TrimSpace(os.Getenv("MAIL_USERNAME")),
		MailPassword:            os.Getenv("MAIL_PASSWORD"),
		MailFrom:                strings.TrimSpace(os.Getenv("MAIL_FROM")),
		MailFromName:            getEnv("MAIL_FROM_NAME", "Contacts App"),
		MailDev:                 getBool("MAIL_DEV", false),
		AppHost:                 getEnv("APP_HOST", "http://localhost:8080"),
		CORSOrigins:             splitCSV(getEnv("CORS_ORIGINS", "*")),
		RateLimitRPM:            getInt("RATE_LIMIT_RPM", 100),
		AuthRateLimitRPM:        getInt("AUTH_RATE_LIMIT_RPM", 10),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("SECRET_KEY_JWT is required")
	}

	if _, ok := allowedAlgorithms[c.JWTAlgorithm]; !ok {
		return fmt.Errorf("JWT_ALGORITHM must be HS256 or HS512, got %q", c.JWTAlgorithm)
	}

	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT cannot be empty")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive")
	}

	if !c.MailDev && c.MailFrom == "" {
		return fmt.Errorf("MAIL_FROM is required unless MAIL_DEV is set")
	}

	return nil
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}
