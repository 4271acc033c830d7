package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the process settings
type Config struct {
	Store  StoreConfig
	Server ServerConfig
	Logger LoggerConfig
}

type StoreConfig struct {
	Path      string // backing sqlite file
	ExportDir string // where backups are written
	Seed      bool   // insert demo data into an empty store on start
}

type ServerConfig struct {
	Addr     string
	APIToken string
}

type LoggerConfig struct {
	Level string
}

// Load reads the first .env file found, then the environment
func Load() (*Config, error) {
	for _, envFile := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	seed, err := strconv.ParseBool(getEnv("JELLYSAVE_SEED", "true"))
	if err != nil {
		seed = true
	}

	return &Config{
		Store: StoreConfig{
			Path:      getEnv("JELLYSAVE_DB_PATH", filepath.Join(".", "data", "jellysave.db")),
			ExportDir: getEnv("JELLYSAVE_EXPORT_DIR", os.TempDir()),
			Seed:      seed,
		},
		Server: ServerConfig{
			Addr:     getEnv("JELLYSAVE_GRPC_ADDR", "127.0.0.1:8080"),
			APIToken: getEnv("JELLYSAVE_API_TOKEN", "dev-token"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
