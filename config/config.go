package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort string
	AppMode string

	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string

	RedisHost     string
	RedisPort     string
	RedisPassword string

	S3Region     string
	S3Bucket     string
	S3AccessKey  string
	S3SecretKey  string
	S3Endpoint   string
	S3PublicBase string

	MetaAppID          string
	MetaAppSecret      string
	MetaGraphBase      string
	WebhookVerifyToken string
	OAuthRedirectURI   string

	JWTSecret string

	// Ceiling for a single platform API call (profile lookup, send).
	PlatformHTTPTimeout time.Duration
}

func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		AppPort:             getEnv("APP_PORT", "8080"),
		AppMode:             getEnv("APP_MODE", "debug"),
		DBHost:              getEnv("DB_HOST", "localhost"),
		DBUser:              getEnv("DB_USER", "postgres"),
		DBPassword:          getEnv("DB_PASSWORD", "postgres"),
		DBName:              getEnv("DB_NAME", "supporthub"),
		DBPort:              getEnv("DB_PORT", "5432"),
		RedisHost:           getEnv("REDIS_HOST", "localhost"),
		RedisPort:           getEnv("REDIS_PORT", "6379"),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		S3Region:            getEnv("S3_REGION", ""),
		S3Bucket:            getEnv("S3_BUCKET", ""),
		S3AccessKey:         getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:         getEnv("S3_SECRET_KEY", ""),
		S3Endpoint:          getEnv("S3_ENDPOINT", ""),
		S3PublicBase:        getEnv("S3_PUBLIC_BASE", ""),
		MetaAppID:           getEnv("META_APP_ID", ""),
		MetaAppSecret:       getEnv("META_APP_SECRET", ""),
		MetaGraphBase:       getEnv("META_GRAPH_BASE", "https://graph.facebook.com/v19.0"),
		WebhookVerifyToken:  getEnv("WEBHOOK_VERIFY_TOKEN", "change-me"),
		OAuthRedirectURI:    getEnv("OAUTH_REDIRECT_URI", "http://localhost:8080/oauth/callback"),
		JWTSecret:           getEnv("JWT_SECRET", "change-me"),
		PlatformHTTPTimeout: time.Duration(getEnvAsInt("PLATFORM_HTTP_TIMEOUT_SEC", 15)) * time.Second,
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}
