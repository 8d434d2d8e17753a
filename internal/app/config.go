package app

import (
	"github.com/yungbote/braingraph-backend/internal/platform/envutil"
)

type Config struct {
	Port         string
	LogMode      string
	Environment  string
	EmbedBackend string
	Version      string
}

func LoadConfig() Config {
	return Config{
		Port:         envutil.String("PORT", "8080"),
		LogMode:      envutil.String("LOG_MODE", "development"),
		Environment:  envutil.String("ENVIRONMENT", "development"),
		EmbedBackend: envutil.String("EMBED_BACKEND", "ollama"),
		Version:      envutil.String("SERVICE_VERSION", "dev"),
	}
}
