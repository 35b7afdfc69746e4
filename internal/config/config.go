// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for our application
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Security SecurityConfig
	Gateway  GatewayConfig
	Shipping ShippingConfig
	Pricing  PricingConfig
	Mail     MailConfig
	Logging  LoggingConfig
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string
	Version     string
	Environment string
	Debug       bool
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig contains database connection configuration
type DatabaseConfig struct {
	Host         string
	Port         string
	Name         string
	User         string
	Password     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// RedisConfig contains Redis configuration
type RedisConfig struct {
	Host         string
	Port         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
}

// JWTConfig contains JWT token configuration
type JWTConfig struct {
	Secret            string
	AccessTokenExpiry time.Duration
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	RateLimitPerMinute int
	RateLimitBurst     int
	CORSAllowedOrigins []string
	CORSAllowedMethods []string
	CORSAllowedHeaders []string
	TrustedProxies     []string
}

// GatewayConfig contains payment gateway configuration
type GatewayConfig struct {
	BaseURL       string
	ServerKey     string
	ClientKey     string
	CallbackURL   string
	Timeout       time.Duration
	SessionExpiry time.Duration
}

// ShippingConfig contains shipping rate provider configuration
type ShippingConfig struct {
	BaseURL        string
	APIKey         string
	OriginID       string
	Timeout        time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
}

// PricingConfig contains order pricing configuration
type PricingConfig struct {
	TaxRatePercent        float64
	MemberDiscountPercent float64
	QuoteSessionTTL       time.Duration
}

// MailConfig contains outbound mail configuration
type MailConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string
	Enabled   bool
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	config := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Feedmarket Backend"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			Environment: getEnv("APP_ENV", "development"),
			Debug:       getEnvAsBool("APP_DEBUG", true),
		},
		Server: ServerConfig{
			Port:         getEnv("APP_PORT", "8080"),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			Name:         getEnv("DB_NAME", "feedmarket_db"),
			User:         getEnv("DB_USER", "feedmarket_user"),
			Password:     getEnv("DB_PASSWORD", "feedmarket_password"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getEnvAsDuration("DB_MAX_LIFETIME", 300*time.Second),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 5),
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", "your-super-secret-jwt-key-change-in-production"),
			AccessTokenExpiry: getEnvAsDuration("JWT_ACCESS_EXPIRE", 24*time.Hour),
		},
		Security: SecurityConfig{
			RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 100),
			RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 50),
			CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			CORSAllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			CORSAllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "Authorization"}),
			TrustedProxies:     getEnvAsSlice("TRUSTED_PROXIES", []string{}),
		},
		Gateway: GatewayConfig{
			BaseURL:       getEnv("GATEWAY_BASE_URL", "https://gateway.sandbox.example.com/v1"),
			ServerKey:     getEnv("GATEWAY_SERVER_KEY", ""),
			ClientKey:     getEnv("GATEWAY_CLIENT_KEY", ""),
			CallbackURL:   getEnv("GATEWAY_CALLBACK_URL", "http://localhost:3000/payment/return"),
			Timeout:       getEnvAsDuration("GATEWAY_TIMEOUT", 30*time.Second),
			SessionExpiry: getEnvAsDuration("GATEWAY_SESSION_EXPIRY", 24*time.Hour),
		},
		Shipping: ShippingConfig{
			BaseURL:        getEnv("SHIPPING_BASE_URL", "https://rates.example.com/starter"),
			APIKey:         getEnv("SHIPPING_API_KEY", ""),
			OriginID:       getEnv("SHIPPING_ORIGIN_ID", ""),
			Timeout:        getEnvAsDuration("SHIPPING_TIMEOUT", 15*time.Second),
			MaxRetries:     getEnvAsInt("SHIPPING_MAX_RETRIES", 3),
			RetryBaseDelay: getEnvAsDuration("SHIPPING_RETRY_BASE_DELAY", 500*time.Millisecond),
		},
		Pricing: PricingConfig{
			TaxRatePercent:        getEnvAsFloat("PRICING_TAX_RATE_PERCENT", 10),
			MemberDiscountPercent: getEnvAsFloat("PRICING_MEMBER_DISCOUNT_PERCENT", 5),
			QuoteSessionTTL:       getEnvAsDuration("PRICING_QUOTE_SESSION_TTL", 30*time.Minute),
		},
		Mail: MailConfig{
			Host:      getEnv("MAIL_HOST", ""),
			Port:      getEnvAsInt("MAIL_PORT", 587),
			Username:  getEnv("MAIL_USERNAME", ""),
			Password:  getEnv("MAIL_PASSWORD", ""),
			FromEmail: getEnv("MAIL_FROM_EMAIL", "noreply@feedmarket.example"),
			FromName:  getEnv("MAIL_FROM_NAME", "Feedmarket"),
			Enabled:   getEnvAsBool("MAIL_ENABLED", false),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "debug"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("DB_USER is required")
	}

	if c.Redis.Host == "" {
		return fmt.Errorf("REDIS_HOST is required")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("APP_PORT is required")
	}

	if c.Gateway.BaseURL == "" {
		return fmt.Errorf("GATEWAY_BASE_URL is required")
	}
	if c.Shipping.BaseURL == "" {
		return fmt.Errorf("SHIPPING_BASE_URL is required")
	}
	if c.Pricing.TaxRatePercent < 0 || c.Pricing.TaxRatePercent > 100 {
		return fmt.Errorf("PRICING_TAX_RATE_PERCENT must be between 0 and 100")
	}
	if c.Pricing.MemberDiscountPercent < 0 || c.Pricing.MemberDiscountPercent > 100 {
		return fmt.Errorf("PRICING_MEMBER_DISCOUNT_PERCENT must be between 0 and 100")
	}

	return nil
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
