package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("schoolrun-api")
	require.NoError(t, err)

	assert.Equal(t, "schoolrun-api", cfg.Server.ServiceName)
	assert.Equal(t, "ZAR", cfg.Business.Currency)
	assert.True(t, cfg.Business.MinDeposit.Equal(decimal.NewFromInt(10)))
	assert.True(t, cfg.Business.MaxDeposit.Equal(decimal.NewFromInt(10000)))
	assert.True(t, cfg.Business.MinWithdrawal.Equal(decimal.NewFromInt(50)))
	assert.True(t, cfg.Business.MaxWithdrawal.Equal(decimal.NewFromInt(5000)))
	assert.Equal(t, 10*time.Minute, cfg.Business.OTPValidity)
	assert.Equal(t, 60*time.Second, cfg.Business.DedupTolerance)
	assert.Equal(t, "50%", cfg.Business.PenaltyRules["in_progress:parent"])
	assert.Equal(t, "20", cfg.Business.PenaltyRules["in_progress:driver"])
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("MIN_DEPOSIT", "25.50")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("EVENTS_DRIVER", "KAFKA")
	t.Setenv("OTP_VALIDITY_MINUTES", "5")

	cfg, err := Load("schoolrun-api")
	require.NoError(t, err)

	assert.Equal(t, "25.5", cfg.Business.MinDeposit.String())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Events.KafkaBrokers)
	assert.Equal(t, "kafka", cfg.Events.Driver)
	assert.Equal(t, 5*time.Minute, cfg.Business.OTPValidity)
}

func TestLoad_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"inverted deposit bounds", map[string]string{"MIN_DEPOSIT": "500", "MAX_DEPOSIT": "100"}},
		{"unknown events driver", map[string]string{"EVENTS_DRIVER": "smoke-signals"}},
		{"unknown storage driver", map[string]string{"STORAGE_DRIVER": "mongo"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("schoolrun-api")
			assert.Error(t, err)
		})
	}
}

func TestAllowFallbackOTP(t *testing.T) {
	tests := []struct {
		name     string
		cfg      BusinessConfig
		expected bool
	}{
		{"no code configured", BusinessConfig{Environment: "development"}, false},
		{"development with code", BusinessConfig{Environment: "development", FallbackOTP: "123456"}, true},
		{"production with code", BusinessConfig{Environment: "production", FallbackOTP: "123456"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.cfg.AllowFallbackOTP())
		})
	}
}

func TestDatabaseConfig_URL(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "rides", SSLMode: "disable"}
	assert.Equal(t, "pgx5://u:p@db:5432/rides?sslmode=disable", c.URL("pgx5"))
	assert.Contains(t, c.DSN(), "dbname=rides")
}
