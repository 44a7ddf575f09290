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
	// postgres | memory
	StoreBackend string

	JWTSecret     string
	JWTTTLMinutes int

	UploadDir       string
	UploadURLPrefix string
	UploadMaxBytes  int64
	UploadMaxFiles  int

	RateLimitMax    int
	RateLimitWindow time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AMQPURL      string
	OTLPEndpoint string
	CORSOrigins  []string

	// CIDRs or IPs whose X-Forwarded-For is believed; empty trusts none
	TrustedProxies []string

	AdminEmail    string
	AdminPassword string
	AdminUsername string
	AdminPhone    string

	CleanupPollInterval time.Duration
	CleanupBatchSize    int
	WorkerPort          int
}

func Load() Config {
	// a missing .env is fine, the process environment wins anyway
	_ = godotenv.Load()

	return Config{
		Env:          getEnv("APP_ENV", "dev"),
		Port:         getEnvInt("PORT", 8080),
		DBURL:        buildDBURL(),
		StoreBackend: getEnv("STORE_BACKEND", "postgres"),

		JWTSecret:     getEnv("JWT_SECRET", "dev-secret-change-me"),
		JWTTTLMinutes: getEnvInt("JWT_TTL_MINUTES", 0),

		UploadDir:       getEnv("UPLOAD_DIR", "uploads"),
		UploadURLPrefix: getEnv("UPLOAD_URL_PREFIX", "/uploads"),
		UploadMaxBytes:  int64(getEnvInt("UPLOAD_MAX_BYTES", 5*1024*1024)),
		UploadMaxFiles:  getEnvInt("UPLOAD_MAX_FILES", 10),

		RateLimitMax:    getEnvInt("RATE_LIMIT_MAX", 5),
		RateLimitWindow: getEnvDuration("RATE_LIMIT_WINDOW", 15*time.Minute),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		AMQPURL:      getEnv("AMQP_URL", ""),
		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		CORSOrigins:  splitList(getEnv("CORS_ORIGINS", "")),

		TrustedProxies: splitList(getEnv("TRUSTED_PROXIES", "")),

		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminPhone:    getEnv("ADMIN_PHONE", "0000000000"),

		CleanupPollInterval: getEnvDuration("CLEANUP_POLL_INTERVAL", 5*time.Second),
		CleanupBatchSize:    getEnvInt("CLEANUP_BATCH_SIZE", 20),
		WorkerPort:          getEnvInt("WORKER_PORT", 8081),
	}
}

// JWTTTL is zero when tokens should not carry an expiry claim.
func (c Config) JWTTTL() time.Duration {
	if c.JWTTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(c.JWTTTLMinutes) * time.Minute
}

func (c Config) IsDev() bool {
	return c.Env == "dev"
}

func buildDBURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "househub")
	pass := getEnv("DB_PASSWORD", "househub")
	name := getEnv("DB_NAME", "househub")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
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

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			slog.Warn("invalid integer env, using default", "key", key, "value", v)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)

		if err != nil {
			slog.Warn("invalid duration env, using default", "key", key, "value", v)
			return fallback
		}

		return d
	}
	return fallback
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
