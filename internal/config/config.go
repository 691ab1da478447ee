// Package config loads application configuration from the environment, with
// .env support for local development.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/globetrotter-hq/globetrotter/internal/adapter"
	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	HTTPAddr string

	LogLevel  string
	LogFormat string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	RedisAddr     string
	RedisPassword string

	DefaultFlightsProvider string
	DefaultMapsProvider    string
	SmsProvider            string
	EmailProvider          string
	PushProvider           string

	// Adapters maps namespaced adapter keys ("payments.stripe") to their
	// provider configuration.
	Adapters map[string]adapter.Config
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "globetrotter"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),

		HTTPAddr: getenv("HTTP_ADDR", ":8080"),

		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: getenv("LOG_FORMAT", "json"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "globetrotter"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),

		RedisAddr:     getenv("REDIS_ADDR", ""),
		RedisPassword: getenv("REDIS_PASSWORD", ""),

		DefaultFlightsProvider: getenv("FLIGHTS_PROVIDER", "amadeus"),
		DefaultMapsProvider:    getenv("MAPS_PROVIDER", "google"),
		SmsProvider:            getenv("SMS_PROVIDER", "twilio"),
		EmailProvider:          getenv("EMAIL_PROVIDER", "sendgrid"),
		PushProvider:           getenv("PUSH_PROVIDER", "fcm"),

		Adapters: loadAdapterConfigs(),
	}
}

// loadAdapterConfigs collects per-provider configuration from the
// environment. Empty values are dropped so adapters can distinguish
// unconfigured from configured-empty.
func loadAdapterConfigs() map[string]adapter.Config {
	out := map[string]adapter.Config{
		"payments.stripe": fromEnv(map[string]string{
			"api_key":        "STRIPE_API_KEY",
			"webhook_secret": "STRIPE_WEBHOOK_SECRET",
		}),
		"payments.mpesa": fromEnv(map[string]string{
			"base_url":        "MPESA_BASE_URL",
			"consumer_key":    "MPESA_CONSUMER_KEY",
			"consumer_secret": "MPESA_CONSUMER_SECRET",
			"shortcode":       "MPESA_SHORTCODE",
			"passkey":         "MPESA_PASSKEY",
			"callback_url":    "MPESA_CALLBACK_URL",
			"webhook_secret":  "MPESA_WEBHOOK_SECRET",
		}),
		"payments.flutterwave": fromEnv(map[string]string{
			"secret_key":     "FLUTTERWAVE_SECRET_KEY",
			"webhook_secret": "FLUTTERWAVE_WEBHOOK_SECRET",
		}),
		"payments.fake": {},
		"flights.amadeus": fromEnv(map[string]string{
			"client_id":         "AMADEUS_CLIENT_ID",
			"client_secret":     "AMADEUS_CLIENT_SECRET",
			"environment":       "AMADEUS_ENVIRONMENT",
			"token_ttl_seconds": "AMADEUS_TOKEN_TTL_SECONDS",
		}),
		"flights.duffel": fromEnv(map[string]string{
			"access_token": "DUFFEL_ACCESS_TOKEN",
		}),
		"flights.fake": {},
		"maps.google": fromEnv(map[string]string{
			"api_key": "GOOGLE_MAPS_API_KEY",
		}),
		"maps.mapbox": fromEnv(map[string]string{
			"access_token": "MAPBOX_ACCESS_TOKEN",
			"style":        "MAPBOX_STYLE",
		}),
		"notifications.twilio": fromEnv(map[string]string{
			"account_sid": "TWILIO_ACCOUNT_SID",
			"auth_token":  "TWILIO_AUTH_TOKEN",
			"from_number": "TWILIO_FROM_NUMBER",
		}),
		"notifications.sendgrid": fromEnv(map[string]string{
			"api_key":    "SENDGRID_API_KEY",
			"from_email": "SENDGRID_FROM_EMAIL",
		}),
		"notifications.fcm": fromEnv(map[string]string{
			"service_account_json": "FCM_SERVICE_ACCOUNT_JSON",
		}),
		"notifications.fake": {},
	}
	return out
}

func fromEnv(keys map[string]string) adapter.Config {
	cfg := adapter.Config{}
	for key, env := range keys {
		if value := strings.TrimSpace(os.Getenv(env)); value != "" {
			cfg[key] = value
		}
	}
	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}
