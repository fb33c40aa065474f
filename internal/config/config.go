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
	ServerPort           string `mapstructure:"SERVER_PORT"`
	AppEnv               string `mapstructure:"APP_ENV"`
	DatabaseURL          string `mapstructure:"DATABASE_URL"`
	RedisURL             string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL          string `mapstructure:"RABBITMQ_URL"`
	JWTSecret            string `mapstructure:"JWT_SECRET"`
	JWTExpiryHours       int    `mapstructure:"JWT_EXPIRY_HOURS"`
	CORSOrigin           string `mapstructure:"CORS_ORIGIN"`
	APIRateLimit         int    `mapstructure:"API_RATE_LIMIT"`
	AuthRateLimit        int    `mapstructure:"AUTH_RATE_LIMIT"`
	RateLimitWindowMin   int    `mapstructure:"RATE_LIMIT_WINDOW_MINUTES"`
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
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "globepay:rate_limit")
	viper.SetDefault("JWT_EXPIRY_HOURS", 24)
	viper.SetDefault("CORS_ORIGIN", "http://localhost:3000")
	viper.SetDefault("API_RATE_LIMIT", 100)
	viper.SetDefault("AUTH_RATE_LIMIT", 5)
	viper.SetDefault("RATE_LIMIT_WINDOW_MINUTES", 15)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("APP_ENV")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("JWT_SECRET")
	_ = viper.BindEnv("JWT_EXPIRY_HOURS")
	_ = viper.BindEnv("CORS_ORIGIN")
	_ = viper.BindEnv("API_RATE_LIMIT")
	_ = viper.BindEnv("AUTH_RATE_LIMIT")
	_ = viper.BindEnv("RATE_LIMIT_WINDOW_MINUTES")

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

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "globepay:rate_limit"
	}
	config.JWTSecret = strings.TrimSpace(config.JWTSecret)

	if config.JWTExpiryHours <= 0 {
		config.JWTExpiryHours = 24
	}
	if config.APIRateLimit <= 0 {
		config.APIRateLimit = 100
	}
	if config.AuthRateLimit <= 0 {
		config.AuthRateLimit = 5
	}
	if config.RateLimitWindowMin <= 0 {
		config.RateLimitWindowMin = 15
	}

	return
}
