package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Transfer movement handling modes
const (
	TransferModeLogOnly  = "log-only"
	TransferModeOutbound = "outbound"
)

// Supported database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
)

// Config holds all application configuration
type Config struct {
	DatabaseURL        string
	DatabaseDriver     string
	Port               string
	GoEnv              string
	Auth0Domain        string
	Auth0Audience      string
	AWSRegion          string
	AWSS3Bucket        string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	LogLevel           string
	CORSAllowedOrigins []string
	RabbitMQURL        string
	RabbitMQExchange   string

	// Ordering policy
	TaxRate               float64
	DeliveryFee           float64
	FreeDeliveryThreshold float64
	PrepTimeMinutes       int
	InitialOrderStatus    string

	// Inventory and catalog policy
	TransferMode           string
	ReviewRequiresPurchase bool
}

var appConfig *Config

// Load loads the configuration from environment variables
// It automatically determines which .env file to load based on GO_ENV
func Load() (*Config, error) {
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}

	// Try to load environment-specific file first
	envFile := fmt.Sprintf(".env.%s", env)
	if err := godotenv.Load(envFile); err != nil {
		if err := godotenv.Load(); err != nil {
			log.Printf("No .env file found, using system environment variables")
		}
	} else {
		log.Printf("Loaded configuration from %s", envFile)
	}

	p := &envParser{}
	config := &Config{
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		DatabaseDriver:     getEnv("DATABASE_DRIVER", DriverPostgres),
		Port:               getEnv("PORT", "8080"),
		GoEnv:              getEnv("GO_ENV", "development"),
		Auth0Domain:        getEnv("AUTH0_DOMAIN", ""),
		Auth0Audience:      getEnv("AUTH0_AUDIENCE", ""),
		AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
		AWSS3Bucket:        getEnv("AWS_S3_BUCKET", ""),
		AWSAccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		RabbitMQURL:        getEnv("RABBITMQ_URL", ""),
		RabbitMQExchange:   getEnv("RABBITMQ_EXCHANGE", "restaurant.events"),

		TaxRate:               p.floatVar("TAX_RATE", 0.08),
		DeliveryFee:           p.floatVar("DELIVERY_FEE", 3.99),
		FreeDeliveryThreshold: p.floatVar("FREE_DELIVERY_THRESHOLD", 50),
		PrepTimeMinutes:       p.intVar("PREP_TIME_MINUTES", 30),
		InitialOrderStatus:    getEnv("ORDER_INITIAL_STATUS", "pending"),

		TransferMode:           getEnv("INVENTORY_TRANSFER_MODE", TransferModeLogOnly),
		ReviewRequiresPurchase: p.boolVar("REVIEW_REQUIRES_PURCHASE", false),
	}

	if p.err != nil {
		return nil, p.err
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	SetConfig(config)
	return config, nil
}

// Validate checks that all required configuration values are set
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Auth0Domain == "" {
		return fmt.Errorf("AUTH0_DOMAIN is required")
	}
	if c.Auth0Audience == "" {
		return fmt.Errorf("AUTH0_AUDIENCE is required")
	}
	switch c.DatabaseDriver {
	case DriverPostgres, DriverSQLite, DriverMySQL:
	default:
		return fmt.Errorf("DATABASE_DRIVER must be one of postgres, sqlite, mysql (got %q)", c.DatabaseDriver)
	}
	if c.TaxRate < 0 || c.TaxRate >= 1 {
		return fmt.Errorf("TAX_RATE must be in [0, 1)")
	}
	if c.DeliveryFee < 0 {
		return fmt.Errorf("DELIVERY_FEE cannot be negative")
	}
	if c.FreeDeliveryThreshold < 0 {
		return fmt.Errorf("FREE_DELIVERY_THRESHOLD cannot be negative")
	}
	if c.PrepTimeMinutes <= 0 {
		return fmt.Errorf("PREP_TIME_MINUTES must be positive")
	}
	if c.InitialOrderStatus != "pending" && c.InitialOrderStatus != "confirmed" {
		return fmt.Errorf("ORDER_INITIAL_STATUS must be pending or confirmed (got %q)", c.InitialOrderStatus)
	}
	if c.TransferMode != TransferModeLogOnly && c.TransferMode != TransferModeOutbound {
		return fmt.Errorf("INVENTORY_TRANSFER_MODE must be %s or %s (got %q)", TransferModeLogOnly, TransferModeOutbound, c.TransferMode)
	}
	return nil
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GoEnv == "production"
}

// IsTest returns true if the application is running in test mode
func (c *Config) IsTest() bool {
	return c.GoEnv == "test"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GoEnv == "development"
}

// S3Enabled reports whether image uploads can be stored in S3
func (c *Config) S3Enabled() bool {
	return c.AWSS3Bucket != ""
}

// GetConfig returns the loaded configuration
func GetConfig() *Config {
	return appConfig
}

// SetConfig sets the configuration instance (primarily for testing)
func SetConfig(cfg *Config) {
	appConfig = cfg
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// envParser reads typed values and keeps the first parse error
type envParser struct {
	err error
}

func (p *envParser) floatVar(key string, defaultValue float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%s must be a number: %w", key, err)
	}
	return v
}

func (p *envParser) intVar(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return v
}

func (p *envParser) boolVar(key string, defaultValue bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(raw)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
