package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime configuration for the alerting daemon.
type Config struct {
	HTTP struct {
		Addr string
		// Bearer token required by the manual trigger endpoint. When empty
		// the endpoint is disabled.
		TriggerAuthToken string
	}

	Database struct {
		Host     string
		Port     int
		User     string
		Password string
		Database string
		SSLMode  string
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	// Kafka reading ingestion. Disabled when Brokers is empty.
	Kafka struct {
		Brokers []string
		Topic   string
		GroupID string
	}

	Cooldown struct {
		// Minimum interval between dispatched alert cycles.
		Interval time.Duration
		// TTL on the in-flight cycle lock. Bounds how long a crashed cycle
		// can keep the gate held.
		LockTTL time.Duration
		// Redis key prefix for gate state.
		KeyPrefix string
	}

	Dispatch struct {
		// Max concurrent provider calls per channel.
		ConcurrencyPerChannel int
		// Timeout applied to each individual provider call.
		ProviderTimeout time.Duration
		// When true, SMS is sent for CRITICAL alerts only. HIGH alerts skip
		// SMS even for residents who enabled it.
		SMSCriticalOnly bool
	}

	Providers struct {
		SMS struct {
			BaseURL    string
			AccountSID string
			AuthToken  string
			FromNumber string
		}
		Email struct {
			BaseURL     string
			APIKey      string
			FromAddress string
		}
		Push struct {
			BaseURL string
			APIKey  string
		}
	}

	Log struct {
		Level string
	}
}

// Load builds a Config from environment variables with local-dev defaults.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")
	cfg.HTTP.TriggerAuthToken = getEnv("TRIGGER_AUTH_TOKEN", "")

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "waterlevel")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		cfg.Kafka.Brokers = strings.Split(brokers, ",")
	}
	cfg.Kafka.Topic = getEnv("KAFKA_TOPIC", "water-level-readings")
	cfg.Kafka.GroupID = getEnv("KAFKA_GROUP_ID", "alertd")

	cfg.Cooldown.Interval = getEnvDuration("COOLDOWN_INTERVAL", 30*time.Minute)
	cfg.Cooldown.LockTTL = getEnvDuration("COOLDOWN_LOCK_TTL", 2*time.Minute)
	cfg.Cooldown.KeyPrefix = getEnv("COOLDOWN_KEY_PREFIX", "alert:cooldown:")

	cfg.Dispatch.ConcurrencyPerChannel = getEnvInt("DISPATCH_CONCURRENCY", 8)
	cfg.Dispatch.ProviderTimeout = getEnvDuration("PROVIDER_TIMEOUT", 10*time.Second)
	cfg.Dispatch.SMSCriticalOnly = getEnvBool("SMS_CRITICAL_ONLY", true)

	cfg.Providers.SMS.BaseURL = getEnv("SMS_API_URL", "https://api.twilio.com")
	cfg.Providers.SMS.AccountSID = getEnv("SMS_ACCOUNT_SID", "")
	cfg.Providers.SMS.AuthToken = getEnv("SMS_AUTH_TOKEN", "")
	cfg.Providers.SMS.FromNumber = getEnv("SMS_FROM_NUMBER", "")

	cfg.Providers.Email.BaseURL = getEnv("EMAIL_API_URL", "")
	cfg.Providers.Email.APIKey = getEnv("EMAIL_API_KEY", "")
	cfg.Providers.Email.FromAddress = getEnv("EMAIL_FROM_ADDRESS", "alerts@cupang-waterlevel.ph")

	cfg.Providers.Push.BaseURL = getEnv("PUSH_API_URL", "")
	cfg.Providers.Push.APIKey = getEnv("PUSH_API_KEY", "")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
