package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config carries everything the API process needs at startup.
type Config struct {
	Server  ServerConfig
	DB      DBConfig
	Storage StorageConfig
	Auth    AuthConfig
}

type ServerConfig struct {
	Port         string
	Environment  string
	AllowOrigins []string
}

type DBConfig struct {
	URL string
}

type StorageConfig struct {
	Bucket          string
	ProjectID       string
	CredentialsPath string
}

type AuthConfig struct {
	JWTSecret string
}

// Load reads a .env file when present, then falls back to process env vars.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			AllowOrigins: splitList(getEnv("ALLOW_ORIGINS", "*")),
		},
		DB: DBConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Storage: StorageConfig{
			Bucket:          os.Getenv("STORAGE_BUCKET"),
			ProjectID:       os.Getenv("GOOGLE_CLOUD_PROJECT"),
			CredentialsPath: os.Getenv("STORAGE_CREDENTIALS_PATH"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", "dev-secret"),
		},
	}

	if cfg.DB.URL == "" {
		return nil, fmt.Errorf("config: DATABASE_URL is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
