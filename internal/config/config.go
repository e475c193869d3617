package config

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	ServerPort string

	MigrationsPath string

	OTPTTL            time.Duration
	OTPResendCooldown time.Duration
	OTPSweepInterval  time.Duration

	MinTransactionAmount decimal.Decimal
	DefaultDailyRate     decimal.Decimal

	ResendAPIKey  string
	ResendBaseURL string
	EmailFrom     string

	WebhookSecret string
}

func Load() *Config {
	return &Config{
		DBHost:     getEnvOrDefault("DB_HOST", "localhost"),
		DBPort:     getEnvOrDefault("DB_PORT", "5432"),
		DBUser:     getEnvOrDefault("DB_USER", "postgres"),
		DBPassword: getEnvOrDefault("DB_PASSWORD", "password"),
		DBName:     getEnvOrDefault("DB_NAME", "growthfund"),
		ServerPort: getEnvOrDefault("SERVER_PORT", "8080"),

		MigrationsPath: getEnvOrDefault("MIGRATIONS_PATH", "migrations"),

		OTPTTL:            getEnvAsDuration("OTP_TTL", 10*time.Minute),
		OTPResendCooldown: getEnvAsDuration("OTP_RESEND_COOLDOWN", 540*time.Second),
		OTPSweepInterval:  getEnvAsDuration("OTP_SWEEP_INTERVAL", time.Hour),

		MinTransactionAmount: getEnvAsDecimal("MIN_TRANSACTION_AMOUNT", "10"),
		DefaultDailyRate:     getEnvAsDecimal("DEFAULT_DAILY_RATE", "0.05"),

		ResendAPIKey:  os.Getenv("RESEND_API_KEY"),
		ResendBaseURL: getEnvOrDefault("RESEND_BASE_URL", "https://api.resend.com"),
		EmailFrom:     getEnvOrDefault("EMAIL_FROM", "GrowthFund <onboarding@resend.dev>"),

		WebhookSecret: os.Getenv("WEBHOOK_SECRET"),
	}
}

func (c *Config) GetDBConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
}

func (c *Config) GetDBMigrationConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnvOrDefault(key, defaultValue.String())
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDecimal(key, defaultValue string) decimal.Decimal {
	valueStr := getEnvOrDefault(key, defaultValue)
	if value, err := decimal.NewFromString(valueStr); err == nil {
		return value
	}
	return decimal.RequireFromString(defaultValue)
}
