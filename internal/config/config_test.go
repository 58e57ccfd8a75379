package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("SERVER_PORT", "")
	t.Setenv("REDIS_DB", "not-a-number")
	t.Setenv("APP_BASE_URL", "https://app.example.com/")

	cfg := Load()

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, 0, cfg.RedisDB)
	assert.Equal(t, "https://app.example.com", cfg.AppBaseURL)
	assert.Equal(t, "smtp", cfg.MailTransport)
	assert.True(t, cfg.IsProduction())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("RESET_DB", "true")
	t.Setenv("MAIL_TRANSPORT", "KAFKA")
	t.Setenv("SMTP_PORT", "587")

	cfg := Load()

	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.True(t, cfg.ResetDB)
	assert.Equal(t, "kafka", cfg.MailTransport)
	assert.Equal(t, 587, cfg.SMTP.Port)
}

func TestSMTPConfig_Missing(t *testing.T) {
	cfg := SMTPConfig{Host: "smtp.example.com", Password: "s3cret"}

	missing := cfg.Missing()

	assert.Equal(t, []string{"SMTP_PORT", "SMTP_USER", "MAIL_FROM"}, missing)
	for _, name := range missing {
		assert.NotContains(t, name, "s3cret")
	}
	assert.Empty(t, SMTPConfig{Host: "h", Port: 25, User: "u", Password: "p", From: "f@example.com"}.Missing())
}

func TestKafkaConfig_Missing(t *testing.T) {
	assert.Equal(t, []string{"KAFKA_BROKER", "KAFKA_MAIL_TOPIC"}, KafkaConfig{}.Missing())
	assert.Empty(t, KafkaConfig{Broker: "b:9092", MailTopic: "mail"}.Missing())
}
