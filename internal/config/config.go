/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the payments-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort                   string `mapstructure:"SERVER_PORT"`
	DatabaseURL                  string `mapstructure:"DATABASE_URL"`
	RedisURL                     string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix         string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL                  string `mapstructure:"RABBITMQ_URL"`
	JobEventQueue                string `mapstructure:"JOB_EVENT_QUEUE"`
	ProcessorAPIBaseURL          string `mapstructure:"PROCESSOR_API_BASE_URL"`
	ProcessorAPIKey              string `mapstructure:"PROCESSOR_API_KEY"`
	AuthJWKSURL                  string `mapstructure:"AUTH_JWKS_URL"`
	ChargeRateLimitPerMinute     int    `mapstructure:"CHARGE_RATE_LIMIT_PER_MINUTE"`
	PendingCaptureTimeoutSeconds int    `mapstructure:"PENDING_CAPTURE_TIMEOUT_SECONDS"`
	PendingCaptureReaperSchedule string `mapstructure:"PENDING_CAPTURE_REAPER_SCHEDULE"`
	CORSAllowedOriginsRaw        string `mapstructure:"CORS_ALLOWED_ORIGINS"`

	// Derived from CORSAllowedOriginsRaw after unmarshalling.
	CORSAllowedOrigins []string `mapstructure:"-"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("JOB_EVENT_QUEUE", "payments_service.job_updates")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "jamii:rate_limit")
	viper.SetDefault("CHARGE_RATE_LIMIT_PER_MINUTE", 10)
	viper.SetDefault("PENDING_CAPTURE_TIMEOUT_SECONDS", 30)
	viper.SetDefault("PENDING_CAPTURE_REAPER_SCHEDULE", "@every 1m")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL", "REDIS_URL", "PAYMENTS_REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("JOB_EVENT_QUEUE")
	_ = viper.BindEnv("PROCESSOR_API_BASE_URL")
	_ = viper.BindEnv("PROCESSOR_API_KEY", "PROCESSOR_API_KEY", "PAYMENT_PROCESSOR_API_KEY")
	_ = viper.BindEnv("AUTH_JWKS_URL")
	_ = viper.BindEnv("CHARGE_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("PENDING_CAPTURE_TIMEOUT_SECONDS")
	_ = viper.BindEnv("PENDING_CAPTURE_REAPER_SCHEDULE")
	_ = viper.BindEnv("CORS_ALLOWED_ORIGINS")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	// PORT (set by most hosting platforms) wins over SERVER_PORT.
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}

	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "jamii:rate_limit"
	}

	if strings.TrimSpace(config.ProcessorAPIKey) == "" {
		config.ProcessorAPIKey = strings.TrimSpace(os.Getenv("PAYMENT_PROCESSOR_API_KEY"))
	}

	if config.ChargeRateLimitPerMinute < 0 {
		log.Printf("level=warn component=config msg=\"negative charge rate limit configured; disabling limiter\" per_minute=%d", config.ChargeRateLimitPerMinute)
		config.ChargeRateLimitPerMinute = 0
	}
	if config.PendingCaptureTimeoutSeconds <= 0 {
		config.PendingCaptureTimeoutSeconds = 30
	}
	if strings.TrimSpace(config.PendingCaptureReaperSchedule) == "" {
		config.PendingCaptureReaperSchedule = "@every 1m"
	}

	config.CORSAllowedOrigins = splitOrigins(config.CORSAllowedOriginsRaw)

	return
}

// splitOrigins turns a comma-separated origin list into a slice, dropping
// empty entries. An empty input means allow everything.
func splitOrigins(raw string) []string {
	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
