package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Service    ServiceConfig
	Server     ServerConfig
	Database   DatabaseConfig
	Payment    PaymentConfig
	Kitchen    KitchenConfig
	HTTPClient HTTPClientConfig
	Kafka      KafkaConfig
}

type ServiceConfig struct {
	Name     string
	Env      string
	LogLevel string
	LogFile  string
}

type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig selects PostgreSQL storage when URL is set; otherwise the
// service runs on in-memory repositories.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type PaymentConfig struct {
	RemittanceURL      string
	WebhookCallbackURL string
}

type KitchenConfig struct {
	IntakeURL         string
	DispatchMode      string
	ReconcileInterval time.Duration
	// DispatchLease must exceed HTTPClient.Timeout.
	DispatchLease time.Duration
}

type HTTPClientConfig struct {
	Timeout             time.Duration
	MaxIdleConns        int
	MaxIdleConnsPerHost int
}

// KafkaConfig enables the event relay when Brokers is non-empty.
type KafkaConfig struct {
	Brokers string
	Topic   string
}

// Load reads the environment after applying an optional .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Service: ServiceConfig{
			Name:     getEnv("SERVICE_NAME", "kiosk-orders"),
			Env:      getEnv("ENV", "dev"),
			LogLevel: getEnv("LOG_LEVEL", "info"),
			LogFile:  getEnv("LOG_FILE", ""),
		},
		Server: ServerConfig{
			Addr:            getEnv("SERVER_ADDR", ":8080"),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Payment: PaymentConfig{
			RemittanceURL:      getEnv("PAYMENT_REMITTANCE_URL", "http://localhost:5001/api/Remittances/generate"),
			WebhookCallbackURL: getEnv("PAYMENT_WEBHOOK_CALLBACK_URL", "http://localhost:8080/payment-status"),
		},
		Kitchen: KitchenConfig{
			IntakeURL:         getEnv("KITCHEN_INTAKE_URL", "http://localhost:5002/OrderSolicitation"),
			DispatchMode:      getEnv("KITCHEN_DISPATCH_MODE", "two_phase"),
			ReconcileInterval: getEnvDuration("KITCHEN_RECONCILE_INTERVAL", 30*time.Second),
			DispatchLease:     getEnvDuration("KITCHEN_DISPATCH_LEASE", 30*time.Second),
		},
		HTTPClient: HTTPClientConfig{
			Timeout:             getEnvDuration("HTTP_CLIENT_TIMEOUT", 5*time.Second),
			MaxIdleConns:        getEnvInt("HTTP_CLIENT_MAX_IDLE_CONNS", 100),
			MaxIdleConnsPerHost: getEnvInt("HTTP_CLIENT_MAX_IDLE_CONNS_PER_HOST", 10),
		},
		Kafka: KafkaConfig{
			Brokers: getEnv("KAFKA_BROKERS", ""),
			Topic:   getEnv("KAFKA_TOPIC", "kiosk.order-events"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.Payment.RemittanceURL == "" {
		errs = append(errs, errors.New("PAYMENT_REMITTANCE_URL is required"))
	}
	if c.Kitchen.IntakeURL == "" {
		errs = append(errs, errors.New("KITCHEN_INTAKE_URL is required"))
	}
	switch strings.ToLower(c.Kitchen.DispatchMode) {
	case "two_phase", "commit_first":
	default:
		errs = append(errs, fmt.Errorf("KITCHEN_DISPATCH_MODE must be two_phase or commit_first, got %q", c.Kitchen.DispatchMode))
	}
	if c.Kitchen.ReconcileInterval <= 0 {
		errs = append(errs, errors.New("KITCHEN_RECONCILE_INTERVAL must be positive"))
	}
	if c.Kitchen.DispatchLease <= c.HTTPClient.Timeout {
		errs = append(errs, fmt.Errorf("KITCHEN_DISPATCH_LEASE (%s) must be longer than HTTP_CLIENT_TIMEOUT (%s)",
			c.Kitchen.DispatchLease, c.HTTPClient.Timeout))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
