package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	OAuth      OAuthConfig
	Cloudinary CloudinaryConfig
	Generation GenerationConfig
	Tokens     TokensConfig
	Reconcile  ReconcileConfig
	RateLimit  RateLimitConfig
	Log        LogConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Driver          string // mysql | postgres | sqlite
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
	Issuer        string
}

type OAuthConfig struct {
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
}

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// GenerationConfig selects the AI provider. Provider "stub" produces placeholder media and needs no key.
type GenerationConfig struct {
	Provider   string // openrouter | stub
	APIKey     string
	BaseURL    string
	PhotoModel string
	VideoModel string
	Timeout    time.Duration
}

type TokensConfig struct {
	PhotoCost   int
	VideoCost   int
	SignupGrant int
}

type ReconcileConfig struct {
	Enabled      bool
	Schedule     string
	StaleAfter   time.Duration
	BatchSize    int
	MaxAttempts  int
	RetryBackoff time.Duration
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

type LogConfig struct {
	Level string
}

// Load reads .env when present and builds the config from environment variables over defaults.
func Load() *Config {
	_ = godotenv.Load()
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Env:          getEnv("APP_ENV", "development"),
			ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 5*time.Minute),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "mysql"),
			DSN:             getEnv("DB_DSN", "adgen:adgen@tcp(localhost:3306)/adgen?charset=utf8mb4&parseTime=True&loc=Local"),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", time.Hour),
		},
		JWT: JWTConfig{
			AccessSecret:  getEnv("JWT_ACCESS_SECRET", "change-me-in-production"),
			RefreshSecret: getEnv("JWT_REFRESH_SECRET", "change-me-refresh"),
			AccessExpiry:  getDuration("JWT_ACCESS_EXPIRY", 15*time.Minute),
			RefreshExpiry: getDuration("JWT_REFRESH_EXPIRY", 168*time.Hour),
			Issuer:        getEnv("JWT_ISSUER", "adgen"),
		},
		OAuth: OAuthConfig{
			GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
			GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
			GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/api/v1/auth/google/callback"),
		},
		Cloudinary: CloudinaryConfig{
			CloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
			APIKey:    os.Getenv("CLOUDINARY_API_KEY"),
			APISecret: os.Getenv("CLOUDINARY_API_SECRET"),
			Folder:    getEnv("CLOUDINARY_FOLDER", "adgen/assets"),
		},
		Generation: GenerationConfig{
			Provider:   strings.ToLower(getEnv("GENERATION_PROVIDER", "stub")),
			APIKey:     os.Getenv("OPEN_ROUTER_API_KEY"),
			BaseURL:    getEnv("OPEN_ROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
			PhotoModel: getEnv("GENERATION_PHOTO_MODEL", "google/gemini-2.5-flash-image"),
			VideoModel: getEnv("GENERATION_VIDEO_MODEL", ""),
			Timeout:    getDuration("GENERATION_TIMEOUT", 3*time.Minute),
		},
		Tokens: TokensConfig{
			PhotoCost:   getInt("TOKENS_PHOTO_COST", 1),
			VideoCost:   getInt("TOKENS_VIDEO_COST", 5),
			SignupGrant: getInt("TOKENS_SIGNUP_GRANT", 10),
		},
		Reconcile: ReconcileConfig{
			Enabled:      getBool("RECONCILE_ENABLED", true),
			Schedule:     getEnv("RECONCILE_SCHEDULE", "@every 1m"),
			StaleAfter:   getDuration("RECONCILE_STALE_AFTER", 15*time.Minute),
			BatchSize:    getInt("RECONCILE_BATCH_SIZE", 100),
			MaxAttempts:  getInt("RECONCILE_MAX_ATTEMPTS", 10),
			RetryBackoff: getDuration("RECONCILE_RETRY_BACKOFF", time.Minute),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getFloat("RATE_LIMIT_RPS", 5),
			Burst:             getInt("RATE_LIMIT_BURST", 20),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return fallback
}
