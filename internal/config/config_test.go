package config

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("INTRIC_BASE_URL", "http://localhost:9000")
	t.Setenv("JOBS_POLL_INTERVAL", "5s")
	t.Setenv("MAX_CONCURRENT_UPLOADS", "not-a-number")

	cfg := Load()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "http://localhost:9000", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Jobs.PollInterval)
	assert.Equal(t, 20*time.Second, cfg.Jobs.RetryDelay)
	assert.Equal(t, 5, cfg.Jobs.MaxFailures)
	assert.Equal(t, 5, cfg.Uploads.MaxConcurrent)
	assert.Equal(t, 30*time.Second, cfg.Socket.HeartbeatInterval)
	assert.Equal(t, 20*time.Second, cfg.Socket.HeartbeatTimeout)
	assert.False(t, cfg.IsProduction())
}

func TestValidate(t *testing.T) {
	cfg := Load()
	cfg.API.BaseURL = "not a url"
	cfg.Uploads.MaxConcurrent = 0
	cfg.App.Environment = "staging"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Config.API.BaseURL")
	assert.Contains(t, err.Error(), "Config.Uploads.MaxConcurrent")
	assert.Contains(t, err.Error(), "Config.App.Environment")
}

func TestTokenExpiry(t *testing.T) {
	cfg := Load()

	_, ok, err := cfg.TokenExpiry()
	require.NoError(t, err)
	assert.False(t, ok)

	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": exp.Unix(),
	}).SignedString([]byte("whatever"))
	require.NoError(t, err)

	cfg.API.Token = signed
	got, ok, err := cfg.TokenExpiry()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, exp.Equal(got))

	cfg.API.Token = "garbage"
	_, _, err = cfg.TokenExpiry()
	assert.Error(t, err)
}
