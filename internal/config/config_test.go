package config

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writePublicKey(t *testing.T) (string, *rsa.PrivateKey) {
	t.Helper()
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "public.pem")
	err = os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), 0o600)
	require.NoError(t, err)
	return path, privateKey
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("TEST_STRING", "value")
	t.Setenv("TEST_INT", "12")
	t.Setenv("TEST_INT_BAD", "-3")
	t.Setenv("TEST_BOOL", "true")
	t.Setenv("TEST_DURATION", "750ms")
	t.Setenv("TEST_DURATION_BAD", "soon")

	assert.Equal(t, "value", getEnv("TEST_STRING", "fallback"))
	assert.Equal(t, "fallback", getEnv("TEST_UNSET_STRING", "fallback"))
	assert.Equal(t, 12, getIntEnv("TEST_INT", 5))
	assert.Equal(t, 5, getIntEnv("TEST_INT_BAD", 5))
	assert.True(t, getBoolEnv("TEST_BOOL", false))
	assert.False(t, getBoolEnv("TEST_UNSET_BOOL", false))
	assert.Equal(t, 750*time.Millisecond, getDurationEnv("TEST_DURATION", time.Second))
	assert.Equal(t, time.Second, getDurationEnv("TEST_DURATION_BAD", time.Second))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, splitList(" https://a.example, ,https://b.example "))
	assert.Empty(t, splitList(""))
}

func TestBreakerSettings(t *testing.T) {
	cfg := &Config{
		CircuitBreakerMaxRequests: 3,
		CircuitBreakerInterval:    time.Minute,
		CircuitBreakerTimeout:     10 * time.Second,
	}

	settings := cfg.BreakerSettings("fdc")

	assert.Equal(t, "fdc", settings.Name)
	assert.Equal(t, uint32(3), settings.MaxRequests)
	assert.Equal(t, time.Minute, settings.Interval)
	assert.Equal(t, 10*time.Second, settings.Timeout)
	require.NotNil(t, settings.ReadyToTrip)
	assert.False(t, settings.ReadyToTrip(gobreaker.Counts{ConsecutiveFailures: 3}))
	assert.True(t, settings.ReadyToTrip(gobreaker.Counts{ConsecutiveFailures: 4}))
}

func TestLoadPublicKey(t *testing.T) {
	path, privateKey := writePublicKey(t)

	publicKey, err := loadPublicKey(path)
	require.NoError(t, err)
	assert.True(t, privateKey.PublicKey.Equal(publicKey))

	_, err = loadPublicKey(filepath.Join(t.TempDir(), "missing.pem"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path, _ := writePublicKey(t)
	t.Setenv("PUBLIC_KEY_PATH", path)
	t.Setenv("DB_CONNECTION_STRING", "postgres://localhost/nutrition?sslmode=disable")
	t.Setenv("FDC_API_KEY", "test-key")
	t.Setenv("FDC_TIMEOUT", "3s")
	t.Setenv("APP_ENV", "development")
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:3000")
	t.Setenv("PORT", "")

	cfg := Load(zap.NewNop())

	assert.Equal(t, "test-key", cfg.FDCAPIKey)
	assert.Equal(t, 3*time.Second, cfg.FDCTimeout)
	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
	assert.NotNil(t, cfg.JWTPublicKey)
}

func TestLoad_MissingRequiredVariable(t *testing.T) {
	path, _ := writePublicKey(t)
	t.Setenv("PUBLIC_KEY_PATH", path)
	t.Setenv("DB_CONNECTION_STRING", "postgres://localhost/nutrition")
	t.Setenv("FDC_API_KEY", "")

	assert.Panics(t, func() { Load(zap.NewNop()) })
}
