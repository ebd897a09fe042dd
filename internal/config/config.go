// Package config loads gateway and client settings from the environment,
// with a .env file as the development convenience.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	MongoDB  MongoDBConfig
	Auth     AuthConfig
	Chat     ChatConfig
}

// ServerConfig contains the gateway's listen settings.
type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  int // seconds
	WriteTimeout int // seconds

	// Backend selects persistence: "memory" for development, "mysql" to
	// store messages in MySQL and attachments in GridFS.
	Backend string

	// MediaBaseURL prefixes the file URLs handed back by uploads.
	MediaBaseURL string
}

// DatabaseConfig contains the MySQL connection settings.
type DatabaseConfig struct {
	Host         string
	Port         string
	Username     string
	Password     string
	DatabaseName string
	MaxOpenConns int
	MaxIdleConns int
}

// MongoDBConfig contains the GridFS connection settings.
type MongoDBConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// AuthConfig contains token issuing settings.
type AuthConfig struct {
	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// ChatConfig carries the room defaults handed to clients.
type ChatConfig struct {
	PageSize        int
	ScrollThreshold float64
}

// LoadConfig reads .env when present and falls back to development
// defaults for anything unset.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment and defaults")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("GATEWAY_PORT", "8080"),
			Host:         getEnv("GATEWAY_HOST", "0.0.0.0"),
			ReadTimeout:  getEnvInt("GATEWAY_READ_TIMEOUT", 15),
			WriteTimeout: getEnvInt("GATEWAY_WRITE_TIMEOUT", 15),
			Backend:      getEnv("GATEWAY_BACKEND", "memory"),
		},
		Database: DatabaseConfig{
			Host:         getEnv("MYSQL_HOST", "localhost"),
			Port:         getEnv("MYSQL_PORT", "3306"),
			Username:     getEnv("MYSQL_USERNAME", "coursechat"),
			Password:     getEnv("MYSQL_PASSWORD", "coursechat123"),
			DatabaseName: getEnv("MYSQL_DATABASE", "coursechat"),
			MaxOpenConns: getEnvInt("MYSQL_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("MYSQL_MAX_IDLE_CONNS", 5),
		},
		MongoDB: MongoDBConfig{
			Host:     getEnv("MONGO_HOST", "localhost"),
			Port:     getEnv("MONGO_PORT", "27017"),
			Username: getEnv("MONGO_USERNAME", ""),
			Password: getEnv("MONGO_PASSWORD", ""),
			Database: getEnv("MONGO_DATABASE", "coursechat"),
		},
		Auth: AuthConfig{
			JWTSecret:  getEnv("JWT_SECRET", "dev-secret-change-me"),
			AccessTTL:  time.Duration(getEnvInt("JWT_ACCESS_TTL_MINUTES", 15)) * time.Minute,
			RefreshTTL: time.Duration(getEnvInt("JWT_REFRESH_TTL_HOURS", 24*7)) * time.Hour,
		},
		Chat: ChatConfig{
			PageSize:        getEnvInt("CHAT_PAGE_SIZE", 20),
			ScrollThreshold: float64(getEnvInt("CHAT_SCROLL_THRESHOLD", 100)),
		},
	}

	cfg.Server.MediaBaseURL = getEnv("MEDIA_BASE_URL",
		fmt.Sprintf("http://localhost:%s/media", cfg.Server.Port))

	return cfg
}

// DSN builds the MySQL connection string for GORM.
func (cfg *Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.Database.Username,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.DatabaseName,
	)
}

// GetMongoURI builds the MongoDB connection URI, omitting credentials when
// none are configured.
func (cfg *Config) GetMongoURI() string {
	if cfg.MongoDB.Username != "" {
		return fmt.Sprintf("mongodb://%s:%s@%s:%s",
			cfg.MongoDB.Username, cfg.MongoDB.Password,
			cfg.MongoDB.Host, cfg.MongoDB.Port)
	}
	return fmt.Sprintf("mongodb://%s:%s", cfg.MongoDB.Host, cfg.MongoDB.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("invalid %s=%q, using default %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}
