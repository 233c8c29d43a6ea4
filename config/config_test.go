package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "MIN_CONTRIBUTION", "PIN_LENGTH", "GATEWAY_TIMEOUT"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, int64(50), cfg.MinContribution)
	assert.Equal(t, 6, cfg.PINLength)
	assert.Equal(t, 10*time.Second, cfg.GatewayTimeout)
	assert.Same(t, cfg, AppConfig)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CURRENCY", "usd")
	t.Setenv("MIN_CONTRIBUTION", "100")
	t.Setenv("GATEWAY_TIMEOUT", "3s")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example ,")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "USD", cfg.Currency)
	assert.Equal(t, int64(100), cfg.MinContribution)
	assert.Equal(t, 3*time.Second, cfg.GatewayTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("PIN_LENGTH", "six")
	t.Setenv("SWEEP_INTERVAL", "soon")

	cfg := Load()

	assert.Equal(t, 6, cfg.PINLength)
	assert.Equal(t, 5*time.Minute, cfg.SweepInterval)
}
