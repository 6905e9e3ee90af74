package config

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse(env.Options{Environment: map[string]string{
		"PROVIDER_MOCK": "true",
	}})
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.True(t, cfg.KYC.GSTINRequired)
	assert.Zero(t, cfg.KYC.PANExpiry)
	assert.Equal(t, 730*24*time.Hour, cfg.KYC.AadhaarExpiry)
	assert.Equal(t, 365*24*time.Hour, cfg.KYC.GSTINExpiry)
	assert.Equal(t, 365*24*time.Hour, cfg.KYC.BankAccountExpiry)
	assert.Equal(t, 5, cfg.KYC.AttemptLimit)
	assert.Equal(t, time.Hour, cfg.KYC.AttemptWindow)
	assert.Empty(t, cfg.Database.URL)
}

func TestParse_Overrides(t *testing.T) {
	cfg, err := Parse(env.Options{Environment: map[string]string{
		"SERVER_ADDR":        ":9090",
		"PROVIDER_BASE_URL":  "https://registry.example.test",
		"PROVIDER_TIMEOUT":   "3s",
		"KAFKA_BROKERS":      "a:9092,b:9092",
		"KYC_GSTIN_REQUIRED": "false",
	}})
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 3*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.KYC.GSTINRequired)
}

func TestParse_RequiresProviderURL(t *testing.T) {
	_, err := Parse(env.Options{Environment: map[string]string{}})
	assert.ErrorContains(t, err, "PROVIDER_BASE_URL")
}

func TestParse_RegulatedModeRequiresSealingKey(t *testing.T) {
	_, err := Parse(env.Options{Environment: map[string]string{
		"PROVIDER_MOCK":         "true",
		"SERVER_REGULATED_MODE": "true",
	}})
	assert.ErrorContains(t, err, "SEALING_KEY")
}

func TestParse_RejectsNonPositiveAttemptWindow(t *testing.T) {
	for _, window := range []string{"0s", "-1m"} {
		_, err := Parse(env.Options{Environment: map[string]string{
			"PROVIDER_MOCK":      "true",
			"KYC_ATTEMPT_WINDOW": window,
		}})
		assert.ErrorContains(t, err, "KYC_ATTEMPT_WINDOW", window)
	}
}
