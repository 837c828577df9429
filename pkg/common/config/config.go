package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64

	// Model serving
	ModelArtifactPath string
	MedicationMapPath string
	FallbackRulesPath string
	StaticDir         string

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
	AuditLogEnabled  bool

	// Redis
	RedisHost              string
	RedisPort              string
	RedisPassword          string
	RedisDB                int
	PredictionCacheEnabled bool
	PredictionCacheTTL     time.Duration

	// Kafka
	KafkaBrokers          []string
	KafkaGroupID          string
	PredictionEventsTopic string

	// Rate limiting
	RateLimitRPS   int
	RateLimitBurst int
}

func Load() *Config {
	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 30*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 1024*1024)),

		ModelArtifactPath: getEnv("MODEL_ARTIFACT_PATH", "complication_predictor_pipeline.json"),
		MedicationMapPath: getEnv("MEDICATION_MAP_PATH", "medication_map.csv"),
		FallbackRulesPath: getEnv("FALLBACK_RULES_PATH", ""),
		StaticDir:         getEnv("STATIC_DIR", "web"),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "periop"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "periop123"),
		PostgresDB:       getEnv("POSTGRES_DB", "periop"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		AuditLogEnabled:  getBoolEnv("AUDIT_LOG_ENABLED", false),

		RedisHost:              getEnv("REDIS_HOST", "localhost"),
		RedisPort:              getEnv("REDIS_PORT", "6379"),
		RedisPassword:          getEnv("REDIS_PASSWORD", ""),
		RedisDB:                getIntEnv("REDIS_DB", 0),
		PredictionCacheEnabled: getBoolEnv("PREDICTION_CACHE_ENABLED", false),
		PredictionCacheTTL:     getDuration("PREDICTION_CACHE_TTL", 10*time.Minute),

		KafkaBrokers:          getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID:          getEnv("KAFKA_GROUP_ID", "periop-platform"),
		PredictionEventsTopic: getEnv("PREDICTION_EVENTS_TOPIC", ""),

		RateLimitRPS:   getIntEnv("RATE_LIMIT_RPS", 50),
		RateLimitBurst: getIntEnv("RATE_LIMIT_BURST", 100),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
