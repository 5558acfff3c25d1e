package utils

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	Credential CredentialConfig
	Booking    BookingConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	Gateway    GatewayConfig
	Telemetry  TelemetryConfig
}

type AppConfig struct {
	Name            string
	Port            string
	Debug           bool
	LogPath         string
	Timezone        string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	MaxConns int32
	MinConns int32
	Migrate  bool
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type CredentialConfig struct {
	Secret       string
	BookingTTL   time.Duration
	ShortTripTTL time.Duration
	CardTTL      time.Duration
}

type BookingConfig struct {
	HoldWindow     time.Duration
	MaxSeats       int
	TaxRatePercent string
	SweepInterval  time.Duration
	SweepBatchSize int
}

type RedisConfig struct {
	Addr           string
	Password       string
	DB             int
	IdempotencyTTL time.Duration
}

type KafkaConfig struct {
	Brokers           []string
	NotificationTopic string
}

type GatewayConfig struct {
	BaseURL  string
	APIKey   string
	Currency string
	Timeout  time.Duration
}

type TelemetryConfig struct {
	Enabled     bool
	ServiceName string
	Endpoint    string
}

// LoadConfig reads an optional .env file and the process environment.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")

	v.SetDefault("APP_NAME", "transit-booking")
	v.SetDefault("PORT", "8080")
	v.SetDefault("DEBUG", false)
	v.SetDefault("LOG_PATH", "logs/")
	v.SetDefault("APP_TIMEZONE", "Africa/Kigali")
	v.SetDefault("SHUTDOWN_TIMEOUT", "15s")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("DB_MIGRATE", false)

	v.SetDefault("JWT_ISSUER", "transit-auth")

	v.SetDefault("CREDENTIAL_BOOKING_TTL", "720h")
	v.SetDefault("CREDENTIAL_SHORT_TRIP_TTL", "24h")
	v.SetDefault("CREDENTIAL_CARD_TTL", "8760h")

	v.SetDefault("BOOKING_HOLD_WINDOW", "10m")
	v.SetDefault("BOOKING_MAX_SEATS", 8)
	v.SetDefault("BOOKING_TAX_RATE_PERCENT", "18")
	v.SetDefault("BOOKING_SWEEP_INTERVAL", "1m")
	v.SetDefault("BOOKING_SWEEP_BATCH_SIZE", 100)

	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_IDEMPOTENCY_TTL", "24h")

	v.SetDefault("KAFKA_NOTIFICATION_TOPIC", "booking-notifications")

	v.SetDefault("GATEWAY_CURRENCY", "RWF")
	v.SetDefault("GATEWAY_TIMEOUT", "10s")

	v.SetDefault("TELEMETRY_ENABLED", false)
	v.SetDefault("TELEMETRY_SERVICE_NAME", "transit-booking")
	v.SetDefault("TELEMETRY_ENDPOINT", "localhost:4317")

	if err := v.ReadInConfig(); err != nil && !isMissingFile(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	v.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:            v.GetString("APP_NAME"),
			Port:            v.GetString("PORT"),
			Debug:           v.GetBool("DEBUG"),
			LogPath:         v.GetString("LOG_PATH"),
			Timezone:        v.GetString("APP_TIMEZONE"),
			ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			Name:     v.GetString("DB_NAME"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASS"),
			SSLMode:  v.GetString("DB_SSLMODE"),
			MaxConns: v.GetInt32("DB_MAX_CONNS"),
			MinConns: v.GetInt32("DB_MIN_CONNS"),
			Migrate:  v.GetBool("DB_MIGRATE"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("JWT_SECRET"),
			Issuer: v.GetString("JWT_ISSUER"),
		},
		Credential: CredentialConfig{
			Secret:       v.GetString("CREDENTIAL_SECRET"),
			BookingTTL:   v.GetDuration("CREDENTIAL_BOOKING_TTL"),
			ShortTripTTL: v.GetDuration("CREDENTIAL_SHORT_TRIP_TTL"),
			CardTTL:      v.GetDuration("CREDENTIAL_CARD_TTL"),
		},
		Booking: BookingConfig{
			HoldWindow:     v.GetDuration("BOOKING_HOLD_WINDOW"),
			MaxSeats:       v.GetInt("BOOKING_MAX_SEATS"),
			TaxRatePercent: v.GetString("BOOKING_TAX_RATE_PERCENT"),
			SweepInterval:  v.GetDuration("BOOKING_SWEEP_INTERVAL"),
			SweepBatchSize: v.GetInt("BOOKING_SWEEP_BATCH_SIZE"),
		},
		Redis: RedisConfig{
			Addr:           v.GetString("REDIS_ADDR"),
			Password:       v.GetString("REDIS_PASSWORD"),
			DB:             v.GetInt("REDIS_DB"),
			IdempotencyTTL: v.GetDuration("REDIS_IDEMPOTENCY_TTL"),
		},
		Kafka: KafkaConfig{
			Brokers:           splitList(v.GetString("KAFKA_BROKERS")),
			NotificationTopic: v.GetString("KAFKA_NOTIFICATION_TOPIC"),
		},
		Gateway: GatewayConfig{
			BaseURL:  v.GetString("GATEWAY_BASE_URL"),
			APIKey:   v.GetString("GATEWAY_API_KEY"),
			Currency: v.GetString("GATEWAY_CURRENCY"),
			Timeout:  v.GetDuration("GATEWAY_TIMEOUT"),
		},
		Telemetry: TelemetryConfig{
			Enabled:     v.GetBool("TELEMETRY_ENABLED"),
			ServiceName: v.GetString("TELEMETRY_SERVICE_NAME"),
			Endpoint:    v.GetString("TELEMETRY_ENDPOINT"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks that required values are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Database.Name == "" {
		errs = append(errs, "DB_NAME is required")
	}
	if c.Database.User == "" {
		errs = append(errs, "DB_USER is required")
	}
	if c.JWT.Secret == "" {
		errs = append(errs, "JWT_SECRET is required")
	}
	if len(c.Credential.Secret) < 32 {
		errs = append(errs, "CREDENTIAL_SECRET must be at least 32 bytes")
	}
	if c.Booking.HoldWindow <= 0 {
		errs = append(errs, "BOOKING_HOLD_WINDOW must be positive")
	}
	if c.Booking.MaxSeats < 1 {
		errs = append(errs, "BOOKING_MAX_SEATS must be at least 1")
	}
	if c.Booking.SweepInterval <= 0 {
		errs = append(errs, "BOOKING_SWEEP_INTERVAL must be positive")
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("APP_TIMEZONE %q is not a valid location", c.App.Timezone))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func isMissingFile(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
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
