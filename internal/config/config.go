package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	Port     string
	Mode     string
	LogLevel string
	APIKey   string

	// Database configuration
	DatabaseURL string

	// Redis configuration
	RedisURL       string
	ReplayTTLHours int

	// App Store configuration
	AppStoreSharedSecret    string
	AppStoreProductionURL   string
	AppStoreSandboxURL      string
	ExcludeOldTransactions  bool
	AppleRootCAPath         string
	AppleRequireMarkerOIDs  bool
	JWSVerifyTimeoutSeconds int
	ReceiptTimeoutSeconds   int
	AllowedBundleIDs        []string

	// Google Play configuration
	GoogleCredentialsFile string
	GooglePlayEndpoint    string

	// Outbound delivery
	WebhookCallbackURL string
	WebhookSecret      string
	KafkaBrokers       []string
	KafkaTopic         string
}

var AppConfig *Config

func InitConfig() error {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		// Ignore error if .env file doesn't exist
	}

	AppConfig = &Config{
		Port:                    getEnv("PORT", "8080"),
		Mode:                    getEnv("GIN_MODE", "debug"),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		APIKey:                  getEnv("API_KEY", ""),
		DatabaseURL:             getEnv("DATABASE_URL", ""),
		RedisURL:                getEnv("REDIS_URL", ""),
		ReplayTTLHours:          getEnvInt("REPLAY_TTL_HOURS", 24),
		AppStoreSharedSecret:    getEnv("APPSTORE_SHARED_SECRET", ""),
		AppStoreProductionURL:   getEnv("APPSTORE_PRODUCTION_URL", "https://buy.itunes.apple.com/verifyReceipt"),
		AppStoreSandboxURL:      getEnv("APPSTORE_SANDBOX_URL", "https://sandbox.itunes.apple.com/verifyReceipt"),
		ExcludeOldTransactions:  getEnvBool("APPSTORE_EXCLUDE_OLD_TRANSACTIONS", false),
		AppleRootCAPath:         getEnv("APPLE_ROOT_CA_PATH", ""),
		AppleRequireMarkerOIDs:  getEnvBool("APPLE_REQUIRE_MARKER_OIDS", true),
		JWSVerifyTimeoutSeconds: getEnvInt("JWS_VERIFY_TIMEOUT_SECONDS", 5),
		ReceiptTimeoutSeconds:   getEnvInt("RECEIPT_TIMEOUT_SECONDS", 30),
		AllowedBundleIDs:        getEnvList("ALLOWED_BUNDLE_IDS"),
		GoogleCredentialsFile:   getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		GooglePlayEndpoint:      getEnv("GOOGLE_PLAY_ENDPOINT", ""),
		WebhookCallbackURL:      getEnv("WEBHOOK_CALLBACK_URL", ""),
		WebhookSecret:           getEnv("WEBHOOK_SECRET", ""),
		KafkaBrokers:            getEnvList("KAFKA_BROKERS"),
		KafkaTopic:              getEnv("KAFKA_TOPIC", "iap.events"),
	}

	return nil
}

// JWSVerifyTimeout returns the signature key-resolution bound
func (c *Config) JWSVerifyTimeout() time.Duration {
	return time.Duration(c.JWSVerifyTimeoutSeconds) * time.Second
}

// ReceiptTimeout returns the HTTP timeout for verifyReceipt calls
func (c *Config) ReceiptTimeout() time.Duration {
	return time.Duration(c.ReceiptTimeoutSeconds) * time.Second
}

// ReplayTTL returns how long processed notifications are remembered
func (c *Config) ReplayTTL() time.Duration {
	return time.Duration(c.ReplayTTLHours) * time.Hour
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping blanks
func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
