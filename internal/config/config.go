package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Addr          string
	DatabaseURL   string
	JWTSecret     string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	MigrationsDir string
	CORSOrigin    string
	// Upload handling
	UploadDir      string
	UploadMaxBytes int64
	// Gemini augmenter - disabled if no API key
	GeminiAPIKey   string
	GeminiModel    string
	AugmentTimeout time.Duration
	// Redis - refresh token storage; falls back to the primary store if empty
	RedisURL string
	// MinIO object storage for diagnosis images - local disk if no endpoint
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
}

func Load() Config {
	return Config{
		Addr:           getenv("API_ADDR", ":3003"),
		DatabaseURL:    getenv("DATABASE_URL", ""),
		JWTSecret:      getenv("PLANTAI_JWT_SECRET", "plantai-dev-secret"),
		AccessTTL:      time.Duration(getenvInt("PLANTAI_ACCESS_TTL_SECONDS", 86400)) * time.Second,
		RefreshTTL:     time.Duration(getenvInt("PLANTAI_REFRESH_TTL_SECONDS", 2592000)) * time.Second,
		MigrationsDir:  getenv("PLANTAI_MIGRATIONS_DIR", "./db/migrations"),
		CORSOrigin:     getenv("PLANTAI_CORS_ORIGIN", "*"),
		UploadDir:      getenv("PLANTAI_UPLOAD_DIR", "./uploads"),
		UploadMaxBytes: int64(getenvInt("PLANTAI_UPLOAD_MAX_BYTES", 10*1024*1024)),
		GeminiAPIKey:   getenv("GEMINI_API_KEY", ""),
		GeminiModel:    getenv("GEMINI_MODEL", "gemini-2.0-flash"),
		AugmentTimeout: time.Duration(getenvInt("AUGMENT_TIMEOUT_SECONDS", 10)) * time.Second,
		RedisURL:       getenv("REDIS_URL", ""),
		MinioEndpoint:  getenv("MINIO_ENDPOINT", ""),
		MinioAccessKey: getenv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getenv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getenv("MINIO_BUCKET", "plantai-uploads"),
		MinioUseSSL:    getenv("MINIO_USE_SSL", "false") == "true",
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
