package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

var ErrMissingSecret = errors.New("JWT_SECRET is required")

type Config struct {
	Env   string
	Port  int
	DBURL string

	JWTSecret string
	TokenTTL  time.Duration

	CORSOrigins []string

	RedisAddr     string
	RedisPassword string

	OTLPEndpoint     string
	TraceSampleRatio float64

	Workers           int
	BcryptCost        int
	DBConnectAttempts int
}

func (c Config) IsProd() bool {
	return c.Env == "prod"
}

// Load reads the process environment once. Malformed values are errors, never zero.
func Load() (Config, error) {
	var errs []error

	intVar := func(key string, fallback, min int) int {
		n, err := getEnvInt(key, fallback)
		if err != nil {
			errs = append(errs, err)
			return fallback
		}
		if n < min {
			errs = append(errs, fmt.Errorf("%s must be >= %d, got %d", key, min, n))
			return fallback
		}
		return n
	}

	cfg := Config{
		Env:               getEnv("APP_ENV", "dev"),
		Port:              intVar("PORT", 3000, 1),
		DBURL:             getEnv("DATABASE_URL", ""),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		CORSOrigins:       splitList(getEnv("CORS_ORIGIN", "*")),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		OTLPEndpoint:      os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		Workers:           intVar("WORKERS", runtime.NumCPU(), 1),
		BcryptCost:        intVar("BCRYPT_COST", 10, 4),
		DBConnectAttempts: intVar("DB_CONNECT_ATTEMPTS", 10, 1),
	}

	if cfg.DBURL == "" {
		cfg.DBURL = buildDBURL()
	}

	ttl, err := getEnvDuration("TOKEN_TTL", 24*time.Hour)
	if err != nil {
		errs = append(errs, err)
	} else if ttl <= 0 {
		errs = append(errs, fmt.Errorf("TOKEN_TTL must be positive, got %s", ttl))
	}
	cfg.TokenTTL = ttl

	ratio, err := getEnvFloat("OTEL_TRACES_SAMPLER_ARG", 1)
	if err != nil {
		errs = append(errs, err)
	} else if ratio < 0 || ratio > 1 {
		errs = append(errs, fmt.Errorf("OTEL_TRACES_SAMPLER_ARG must be within [0,1], got %v", ratio))
	}
	cfg.TraceSampleRatio = ratio

	switch cfg.Env {
	case "dev", "test", "prod":
	default:
		errs = append(errs, fmt.Errorf("APP_ENV must be one of dev, test, prod, got %q", cfg.Env))
	}

	if cfg.JWTSecret == "" {
		errs = append(errs, ErrMissingSecret)
	}

	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return cfg, nil
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "feedbackhub")
	pass := getEnv("DB_PASSWORD", "feedbackhub")
	name := getEnv("DB_NAME", "feedbackhub")
	ssl := getEnv("DB_SSLMODE", "disable")

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, pass),
		Host:     host + ":" + port,
		Path:     "/" + name,
		RawQuery: "sslmode=" + url.QueryEscape(ssl),
	}
	return u.String()
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}

	num, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fallback, fmt.Errorf("%s: invalid integer %q", key, v)
	}
	return num, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return fallback, fmt.Errorf("%s: invalid number %q", key, v)
	}
	return f, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}

	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return fallback, fmt.Errorf("%s: invalid duration %q", key, v)
	}
	return d, nil
}

func splitList(v string) []string {
	out := make([]string, 0)
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
