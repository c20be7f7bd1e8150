/**
 * @description
 * This package handles the configuration management for the schoolfees-service. It uses the
 * Viper library to read configuration from environment variables (or an optional .env file)
 * into a single Config struct that main builds once and passes to every component.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	PaystackEnvTest = "test"
	PaystackEnvProd = "prod"
)

// ErrMissingSecretKey is returned when no token signing key is configured.
var ErrMissingSecretKey = errors.New("SECRET_KEY must be configured")

// Config holds all the configuration variables for the schoolfees-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort  string `mapstructure:"SERVER_PORT"`
	AppEnv      string `mapstructure:"APP_ENV"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	SecretKey                string `mapstructure:"SECRET_KEY"`
	Algorithm                string `mapstructure:"ALGORITHM"`
	AccessTokenExpireMinutes int    `mapstructure:"ACCESS_TOKEN_EXPIRE_MINUTES"`
	RefreshTokenExpireDays   int    `mapstructure:"REFRESH_TOKEN_EXPIRE_DAYS"`
	CookieSecure             bool   `mapstructure:"COOKIE_SECURE"`

	PaystackBaseURL        string `mapstructure:"PAYSTACK_BASE_URL"`
	PaystackEnv            string `mapstructure:"PAYSTACK_ENV"`
	PaystackTestSecretKey  string `mapstructure:"PAYSTACK_TEST_SECRET_KEY"`
	PaystackProdSecretKey  string `mapstructure:"PAYSTACK_PROD_SECRET_KEY"`
	PaystackTimeoutSeconds int    `mapstructure:"PAYSTACK_TIMEOUT_SECONDS"`
	PaystackDefaultEmail   string `mapstructure:"PAYSTACK_DEFAULT_EMAIL"`

	PlatformAdminWalletID string `mapstructure:"PLATFORM_ADMIN_WALLET_ID"`

	RabbitMQURL    string `mapstructure:"RABBITMQ_URL"`
	EventsExchange string `mapstructure:"EVENTS_EXCHANGE"`

	RedisURL                string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix    string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	LoginRateLimitPerMinute int    `mapstructure:"LOGIN_RATE_LIMIT_PER_MINUTE"`
	USSDRateLimitPerMinute  int    `mapstructure:"USSD_RATE_LIMIT_PER_MINUTE"`
	USSDPhoneLimit          int    `mapstructure:"USSD_PHONE_LIMIT"`
	USSDPhoneWindowMinutes  int    `mapstructure:"USSD_PHONE_WINDOW_MINUTES"`
	OTPAttemptLimit         int    `mapstructure:"OTP_ATTEMPT_LIMIT"`
	OTPAttemptWindowMinutes int    `mapstructure:"OTP_ATTEMPT_WINDOW_MINUTES"`
	CORSAllowedOrigins      string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	TokenPurgeSchedule      string `mapstructure:"TOKEN_PURGE_SCHEDULE"`
	TokenPurgeRetentionDays int    `mapstructure:"TOKEN_PURGE_RETENTION_DAYS"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("APP_ENV", "production")
	viper.SetDefault("ALGORITHM", "HS256")
	viper.SetDefault("ACCESS_TOKEN_EXPIRE_MINUTES", 60)
	viper.SetDefault("REFRESH_TOKEN_EXPIRE_DAYS", 7)
	viper.SetDefault("COOKIE_SECURE", false)
	viper.SetDefault("PAYSTACK_BASE_URL", "https://api.paystack.co")
	viper.SetDefault("PAYSTACK_ENV", PaystackEnvTest)
	viper.SetDefault("PAYSTACK_TIMEOUT_SECONDS", 30)
	viper.SetDefault("PAYSTACK_DEFAULT_EMAIL", "payments@schoolfees.local")
	viper.SetDefault("EVENTS_EXCHANGE", "schoolfees.events")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "schoolfees:rate_limit")
	viper.SetDefault("LOGIN_RATE_LIMIT_PER_MINUTE", 10)
	viper.SetDefault("USSD_RATE_LIMIT_PER_MINUTE", 20)
	viper.SetDefault("USSD_PHONE_LIMIT", 3)
	viper.SetDefault("USSD_PHONE_WINDOW_MINUTES", 10)
	viper.SetDefault("OTP_ATTEMPT_LIMIT", 5)
	viper.SetDefault("OTP_ATTEMPT_WINDOW_MINUTES", 15)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "")
	viper.SetDefault("TOKEN_PURGE_RETENTION_DAYS", 30)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("APP_ENV")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("SECRET_KEY")
	_ = viper.BindEnv("ALGORITHM")
	_ = viper.BindEnv("ACCESS_TOKEN_EXPIRE_MINUTES")
	_ = viper.BindEnv("REFRESH_TOKEN_EXPIRE_DAYS")
	_ = viper.BindEnv("COOKIE_SECURE")
	_ = viper.BindEnv("PAYSTACK_BASE_URL")
	_ = viper.BindEnv("PAYSTACK_ENV")
	_ = viper.BindEnv("PAYSTACK_TEST_SECRET_KEY")
	_ = viper.BindEnv("PAYSTACK_PROD_SECRET_KEY")
	_ = viper.BindEnv("PAYSTACK_TIMEOUT_SECONDS")
	_ = viper.BindEnv("PAYSTACK_DEFAULT_EMAIL")
	_ = viper.BindEnv("PLATFORM_ADMIN_WALLET_ID")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("EVENTS_EXCHANGE")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("LOGIN_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("USSD_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("USSD_PHONE_LIMIT")
	_ = viper.BindEnv("USSD_PHONE_WINDOW_MINUTES")
	_ = viper.BindEnv("OTP_ATTEMPT_LIMIT")
	_ = viper.BindEnv("OTP_ATTEMPT_WINDOW_MINUTES")
	_ = viper.BindEnv("CORS_ALLOWED_ORIGINS")
	_ = viper.BindEnv("TOKEN_PURGE_SCHEDULE")
	_ = viper.BindEnv("TOKEN_PURGE_RETENTION_DAYS")

	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}

	config.SecretKey = strings.TrimSpace(config.SecretKey)
	config.Algorithm = strings.ToUpper(strings.TrimSpace(config.Algorithm))
	if config.Algorithm != "HS256" {
		log.Printf("level=warn component=config msg=\"unsupported token algorithm; using HS256\" algorithm=%q", config.Algorithm)
		config.Algorithm = "HS256"
	}
	if config.AccessTokenExpireMinutes <= 0 {
		config.AccessTokenExpireMinutes = 60
	}
	if config.RefreshTokenExpireDays <= 0 {
		config.RefreshTokenExpireDays = 7
	}

	config.PaystackBaseURL = strings.TrimSuffix(strings.TrimSpace(config.PaystackBaseURL), "/")
	config.PaystackEnv = strings.ToLower(strings.TrimSpace(config.PaystackEnv))
	if config.PaystackEnv != PaystackEnvProd {
		config.PaystackEnv = PaystackEnvTest
	}
	config.PaystackTestSecretKey = strings.TrimSpace(config.PaystackTestSecretKey)
	config.PaystackProdSecretKey = strings.TrimSpace(config.PaystackProdSecretKey)
	if config.PaystackTimeoutSeconds <= 0 {
		config.PaystackTimeoutSeconds = 30
	}

	config.PlatformAdminWalletID = strings.TrimSpace(config.PlatformAdminWalletID)
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "schoolfees:rate_limit"
	}
	if config.LoginRateLimitPerMinute < 0 {
		config.LoginRateLimitPerMinute = 0
	}
	if config.USSDRateLimitPerMinute < 0 {
		config.USSDRateLimitPerMinute = 0
	}
	if config.USSDPhoneLimit < 0 {
		config.USSDPhoneLimit = 0
	}
	if config.USSDPhoneWindowMinutes <= 0 {
		config.USSDPhoneWindowMinutes = 10
	}
	if config.OTPAttemptLimit < 0 {
		config.OTPAttemptLimit = 0
	}
	if config.OTPAttemptWindowMinutes <= 0 {
		config.OTPAttemptWindowMinutes = 15
	}
	config.TokenPurgeSchedule = strings.TrimSpace(config.TokenPurgeSchedule)
	if config.TokenPurgeRetentionDays <= 0 {
		config.TokenPurgeRetentionDays = 30
	}

	return
}

// Validate reports configuration that the HTTP server cannot start without.
func (c Config) Validate() error {
	if c.SecretKey == "" {
		return ErrMissingSecretKey
	}
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return errors.New("DATABASE_URL must be configured")
	}
	for _, origin := range c.AllowedOrigins() {
		if strings.Contains(origin, "*") {
			return fmt.Errorf("CORS_ALLOWED_ORIGINS must list explicit origins, got %q", origin)
		}
	}
	return nil
}

// PaystackSecretKey returns the secret key for the selected Paystack environment.
func (c Config) PaystackSecretKey() string {
	if c.PaystackEnv == PaystackEnvProd {
		return c.PaystackProdSecretKey
	}
	return c.PaystackTestSecretKey
}

func (c Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenExpireMinutes) * time.Minute
}

func (c Config) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenExpireDays) * 24 * time.Hour
}

func (c Config) PaystackTimeout() time.Duration {
	return time.Duration(c.PaystackTimeoutSeconds) * time.Second
}

func (c Config) USSDPhoneWindow() time.Duration {
	return time.Duration(c.USSDPhoneWindowMinutes) * time.Minute
}

func (c Config) OTPAttemptWindow() time.Duration {
	return time.Duration(c.OTPAttemptWindowMinutes) * time.Minute
}

func (c Config) RateLimitsEnabled() bool {
	return c.LoginRateLimitPerMinute > 0 || c.USSDRateLimitPerMinute > 0 || c.USSDPhoneLimit > 0 || c.OTPAttemptLimit > 0
}

func (c Config) TokenPurgeRetention() time.Duration {
	return time.Duration(c.TokenPurgeRetentionDays) * 24 * time.Hour
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS into its comma separated entries.
// The session cookies are sent cross-origin, so wildcards are rejected by Validate.
func (c Config) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(c.CORSAllowedOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
