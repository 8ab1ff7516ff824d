package config

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env   string
	Port  int
	DBURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret           string
	JWTAccessTTLMinutes int

	AdminEmail     string
	AdminPassword  string
	AdminFirstName string
	AdminLastName  string

	GeocoderURL       string
	GeocoderUserAgent string
	GeocoderTimeout   time.Duration

	Notifier           string
	SESRegion          string
	SESAccessKeyID     string
	SESSecretAccessKey string
	MailFrom           string

	WorkerHealthPort  int
	WorkerConcurrency int

	OTLPEndpoint string
	CORSOrigins  []string
}

func Load() Config {
	// .env is optional; real deployments use the process environment
	_ = godotenv.Load()

	return Config{
		Env:   getEnv("APP_ENV", "dev"),
		Port:  getEnvInt("PORT", 8080),
		DBURL: buildDBURL(),

		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		JWTSecret:           getEnv("JWT_SECRET", "dev-secret-change-me"),
		JWTAccessTTLMinutes: getEnvInt("JWT_ACCESS_TTL_MINUTES", 60),

		AdminEmail:     getEnv("ADMIN_EMAIL", ""),
		AdminPassword:  getEnv("ADMIN_PASSWORD", ""),
		AdminFirstName: getEnv("ADMIN_FIRST_NAME", "Admin"),
		AdminLastName:  getEnv("ADMIN_LAST_NAME", "CrossLove"),

		GeocoderURL:       getEnv("GEOCODER_URL", "https://nominatim.openstreetmap.org/search"),
		GeocoderUserAgent: getEnv("GEOCODER_USER_AGENT", "TheCrossLove/1.0 (contact@thecrosslove.com)"),
		GeocoderTimeout:   time.Duration(getEnvInt("GEOCODER_TIMEOUT_MS", 3000)) * time.Millisecond,

		Notifier:           getEnv("NOTIFIER", "log"),
		SESRegion:          getEnv("SES_REGION", "eu-west-3"),
		SESAccessKeyID:     getEnv("SES_ACCESS_KEY_ID", ""),
		SESSecretAccessKey: getEnv("SES_SECRET_ACCESS_KEY", ""),
		MailFrom:           getEnv("MAIL_FROM", "no-reply@thecrosslove.com"),

		WorkerHealthPort:  getEnvInt("WORKER_HEALTH_PORT", 9090),
		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 4),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		CORSOrigins:  splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
	}
}

func (c Config) AccessTTL() time.Duration {
	return time.Duration(c.JWTAccessTTLMinutes) * time.Minute
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "eventhub")
	pass := getEnv("DB_PASSWORD", "eventhub")
	name := getEnv("DB_NAME", "eventhub")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

// WithTimeoutFrom bounds a storage call made on behalf of a request; the parent keeps
// the trace span and log attributes attached to it.
func WithTimeoutFrom(parent context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	num, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("config: invalid integer, using fallback", "key", key, "value", v, "fallback", fallback)
		return fallback
	}

	return num
}

func splitList(raw string) []string {
	out := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
