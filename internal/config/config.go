package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort  string
	Env         string
	LogLevel    string
	MySQLDSN    string
	ResetDB     bool
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	JWTSecret   string
	SwaggerHost string
	AppBaseURL  string
	RateLimit   string

	MailTransport string
	SMTP          SMTPConfig
	Kafka         KafkaConfig

	SeedAdmin SeedAdminConfig
}

// SMTPConfig configures the SMTP mail transport.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	FromName string
}

// Missing lists the names of required SMTP settings that are empty.
// Values are never included.
func (c SMTPConfig) Missing() []string {
	var missing []string
	if c.Host == "" {
		missing = append(missing, "SMTP_HOST")
	}
	if c.Port == 0 {
		missing = append(missing, "SMTP_PORT")
	}
	if c.User == "" {
		missing = append(missing, "SMTP_USER")
	}
	if c.Password == "" {
		missing = append(missing, "SMTP_PASSWORD")
	}
	if c.From == "" {
		missing = append(missing, "MAIL_FROM")
	}
	return missing
}

// KafkaConfig configures the kafka mail transport.
type KafkaConfig struct {
	Broker    string
	MailTopic string
	Username  string
	Password  string
}

// Missing lists the names of required kafka settings that are empty.
func (c KafkaConfig) Missing() []string {
	var missing []string
	if c.Broker == "" {
		missing = append(missing, "KAFKA_BROKER")
	}
	if c.MailTopic == "" {
		missing = append(missing, "KAFKA_MAIL_TOPIC")
	}
	return missing
}

// SeedAdminConfig is the bootstrap administrator created by cmd/seed.
type SeedAdminConfig struct {
	Name     string
	Email    string
	Password string
}

// IsProduction reports whether the service runs with production defaults.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load builds Config from environment with sensible defaults. Outside
// production a .env file in the working directory is loaded first.
func Load() *Config {
	if getEnv("APP_ENV", "development") != "production" {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			log.Printf("warning: .env not loaded: %v", err)
		}
	}

	return &Config{
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		Env:         getEnv("APP_ENV", "development"),
		LogLevel:    os.Getenv("LOG_LEVEL"),
		MySQLDSN:    getEnv("MYSQL_DSN", "user:password@tcp(localhost:3306)/app?charset=utf8mb4&parseTime=True&loc=Local"),
		ResetDB:     getEnvBool("RESET_DB", false),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:     getEnvInt("REDIS_DB", 0),
		RedisPass:   os.Getenv("REDIS_PASSWORD"),
		JWTSecret:   getEnv("JWT_SECRET", "change-me"),
		SwaggerHost: os.Getenv("SWAGGER_HOST"),
		AppBaseURL:  strings.TrimRight(getEnv("APP_BASE_URL", "http://localhost:3000"), "/"),
		RateLimit:   getEnv("RATE_LIMIT", "20-M"),

		MailTransport: strings.ToLower(getEnv("MAIL_TRANSPORT", "smtp")),
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getEnvInt("SMTP_PORT", 0),
			User:     os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("MAIL_FROM"),
			FromName: getEnv("MAIL_FROM_NAME", "المحترف لحساب الكميات"),
		},
		Kafka: KafkaConfig{
			Broker:    os.Getenv("KAFKA_BROKER"),
			MailTopic: os.Getenv("KAFKA_MAIL_TOPIC"),
			Username:  os.Getenv("KAFKA_USERNAME"),
			Password:  os.Getenv("KAFKA_PASSWORD"),
		},

		SeedAdmin: SeedAdminConfig{
			Name:     getEnv("SEED_ADMIN_NAME", "Administrator"),
			Email:    os.Getenv("SEED_ADMIN_EMAIL"),
			Password: os.Getenv("SEED_ADMIN_PASSWORD"),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}
