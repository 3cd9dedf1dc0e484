package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
auth:
  jwt_secret: "s3cret"
database:
  dsn: "host=localhost"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 12*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 1.0, cfg.Enrollment.FeeAmount)
	assert.Equal(t, "inr", cfg.Enrollment.Currency)
	assert.Equal(t, 10*time.Second, cfg.Enrollment.StepTimeout)
	assert.Equal(t, 3, cfg.Enrollment.BacklinkAttempts)
	assert.Equal(t, time.Minute, cfg.Enrollment.ReconcileInterval)
	assert.False(t, cfg.Enrollment.DisableCompensation)
	assert.Equal(t, PaymentProviderSimulated, cfg.Payment.Provider)
	assert.Equal(t, 1, cfg.WorkerPool.Size)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_KeepsExplicitValues(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
auth:
  jwt_secret: "s3cret"
  token_ttl_minutes: 30
enrollment:
  fee_amount: 2500
  step_timeout_seconds: 3
  disable_compensation: true
worker_pool:
  size: 4
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 30*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, 2500.0, cfg.Enrollment.FeeAmount)
	assert.Equal(t, 3*time.Second, cfg.Enrollment.StepTimeout)
	assert.True(t, cfg.Enrollment.DisableCompensation)
	assert.Equal(t, 4, cfg.WorkerPool.Size)
}

func TestLoad_EnvOverridesSecret(t *testing.T) {
	t.Setenv("HOSTEL_JWT_SECRET", "from-env")
	path := writeConfig(t, "server:\n  port: 8081\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "missing secret", mutate: func(c *Config) { c.Auth.JWTSecret = "" }, wantErr: true},
		{name: "unknown provider", mutate: func(c *Config) { c.Payment.Provider = "paypal" }, wantErr: true},
		{name: "stripe without key", mutate: func(c *Config) { c.Payment.Provider = PaymentProviderStripe }, wantErr: true},
		{name: "stripe with key", mutate: func(c *Config) {
			c.Payment.Provider = PaymentProviderStripe
			c.Payment.StripeSecretKey = "sk_test_123"
		}},
		{name: "simulated", mutate: func(c *Config) {}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{Auth: AuthConfig{JWTSecret: "x"}}
			cfg.ApplyDefaults()
			tc.mutate(cfg)

			err := cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
