package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string
	Environment string
	Database    DatabaseConfig
	MercadoPago MercadoPagoConfig
	API         APIConfig
	PublicURLs  PublicURLConfig
	LogLevel    string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type MercadoPagoConfig struct {
	AccessToken   string
	WebhookSecret string
	BaseURL       string // override for tests; empty means the real API
}

type APIConfig struct {
	Key     string // plain shared secret for x-api-key
	KeyHash string // bcrypt hash alternative; takes precedence when set
}

type PublicURLConfig struct {
	Site    string // storefront, used for back_urls
	Backend string // this service's public base, used for notification_url
}

func Load() (*Config, error) {
	viper.SetConfigType("env")
	viper.SetConfigName(".env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")

	// Set defaults
	viper.SetDefault("PORT", "4000")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("LOG_LEVEL", "info")

	// Read from environment variables
	viper.AutomaticEnv()

	// Try to read .env file (optional)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{
		Port:        getEnvOrViper("PORT", "4000"),
		Environment: getEnvOrViper("ENVIRONMENT", "development"),
		Database: DatabaseConfig{
			Host:     getEnvOrViper("DB_HOST", "localhost"),
			Port:     getEnvOrViper("DB_PORT", "5432"),
			User:     getEnvOrViper("DB_USER", "postgres"),
			Password: getEnvOrViper("DB_PASSWORD", "postgres"),
			DBName:   getEnvOrViper("DB_NAME", "tienda"),
			SSLMode:  getEnvOrViper("DB_SSLMODE", "disable"),
		},
		MercadoPago: MercadoPagoConfig{
			AccessToken:   getEnvOrViper("MP_ACCESS_TOKEN", ""),
			WebhookSecret: getEnvOrViper("MP_WEBHOOK_SECRET", ""),
			BaseURL:       getEnvOrViper("MP_BASE_URL", ""),
		},
		API: APIConfig{
			Key:     getEnvOrViper("API_KEY", ""),
			KeyHash: getEnvOrViper("API_KEY_HASH", ""),
		},
		PublicURLs: PublicURLConfig{
			Site:    getEnvOrViper("PUBLIC_SITE_URL", ""),
			Backend: getEnvOrViper("PUBLIC_BACKEND_URL", ""),
		},
		LogLevel: getEnvOrViper("LOG_LEVEL", "info"),
	}

	// Validate required fields
	if cfg.MercadoPago.AccessToken == "" {
		return nil, fmt.Errorf("MP_ACCESS_TOKEN is required")
	}
	// A missing webhook secret would silently disable signature checks;
	// refuse to start instead.
	if cfg.MercadoPago.WebhookSecret == "" {
		return nil, fmt.Errorf("MP_WEBHOOK_SECRET is required")
	}
	if cfg.API.Key == "" && cfg.API.KeyHash == "" {
		return nil, fmt.Errorf("API_KEY or API_KEY_HASH is required")
	}

	return cfg, nil
}

func getEnvOrViper(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	return defaultValue
}
