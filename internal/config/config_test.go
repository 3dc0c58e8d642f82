package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     3306,
			User:     "autopilot",
			Password: "secret",
			DBName:   "autopilot",
		},
		Gmail: GmailConfig{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			RefreshToken: "refresh-token",
			UserEmail:    "me@example.com",
		},
		Scheduler: SchedulerConfig{
			IntervalMinutes: 5,
			MaxConcurrent:   4,
		},
	}
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidateRejectsMissingFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing server port", func(c *Config) { c.Server.Port = "" }},
		{"missing database host", func(c *Config) { c.Database.Host = "" }},
		{"missing database user", func(c *Config) { c.Database.User = "" }},
		{"missing database name", func(c *Config) { c.Database.DBName = "" }},
		{"missing gmail client id", func(c *Config) { c.Gmail.ClientID = "" }},
		{"missing gmail client secret", func(c *Config) { c.Gmail.ClientSecret = "" }},
		{"missing gmail refresh token", func(c *Config) { c.Gmail.RefreshToken = "" }},
		{"missing gmail user email", func(c *Config) { c.Gmail.UserEmail = "" }},
		{"zero scheduler interval", func(c *Config) { c.Scheduler.IntervalMinutes = 0 }},
		{"zero max concurrent", func(c *Config) { c.Scheduler.MaxConcurrent = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateRequiresOAuthEvenWithIMAP(t *testing.T) {
	cfg := validConfig()
	cfg.Gmail.UseIMAP = true
	cfg.Gmail.IMAPUser = "me@example.com"
	cfg.Gmail.IMAPPassword = "app-password"
	cfg.Gmail.RefreshToken = ""

	// label changes still go through the Gmail API
	assert.Error(t, cfg.Validate())
}

func TestValidateRequiresIMAPCredentialsWhenEnabled(t *testing.T) {
	cfg := validConfig()
	cfg.Gmail.UseIMAP = true
	assert.Error(t, cfg.Validate())

	cfg.Gmail.IMAPUser = "me@example.com"
	cfg.Gmail.IMAPPassword = "app-password"
	assert.NoError(t, cfg.Validate())
}

func TestGetDSN(t *testing.T) {
	db := DatabaseConfig{
		Host:     "db.internal",
		Port:     3307,
		User:     "autopilot",
		Password: "secret",
		DBName:   "autopilot",
	}

	expected := "autopilot:secret@tcp(db.internal:3307)/autopilot?charset=utf8mb4&parseTime=True&loc=Local"
	assert.Equal(t, expected, db.GetDSN())
}
