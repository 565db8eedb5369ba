package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ENV_PATH", t.TempDir()+"/missing.env")
	t.Setenv("FISHJAM_ID", "fj-123")
	t.Setenv("FISHJAM_MANAGEMENT_TOKEN", "management-token")
	t.Setenv("GOOGLE_API_KEY", "google-key")
}

func TestGetApplicationConfig_Defaults(t *testing.T) {
	setRequiredEnv(t)

	v, err := InitConfig()
	require.NoError(t, err)
	cfg, err := GetApplicationConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "live-bridge", cfg.Name)
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, DefaultGeminiModel, cfg.GeminiModel)
	assert.Equal(t, CallStoreMemory, cfg.CallStoreConfig.Type)
	assert.Equal(t, time.Hour, cfg.CallStoreConfig.Retention)
	assert.Empty(t, cfg.FishjamRoomType, "room type defaults to the room service choice")
	assert.Equal(t, 256, cfg.RelayConfig.ChannelSize)
	assert.Equal(t, 10*time.Second, cfg.RollbackTimeout)
	assert.Equal(t, []string{"*"}, cfg.CorsAllowOrigins)
	assert.Nil(t, cfg.RedisConfig, "redis config is only populated when selected")
	assert.False(t, cfg.IsProduction())
}

func TestGetApplicationConfig_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("GEMINI_MODEL", "gemini-live-custom")
	t.Setenv("PORT", "8080")
	t.Setenv("ENV", "PRODUCTION")
	t.Setenv("CALL_STORE__TYPE", "redis")
	t.Setenv("REDIS__HOST", "redis.internal")
	t.Setenv("FISHJAM_ROOM_TYPE", "audio_only")

	v, err := InitConfig()
	require.NoError(t, err)
	cfg, err := GetApplicationConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "gemini-live-custom", cfg.GeminiModel)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "audio_only", cfg.FishjamRoomType)
	assert.True(t, cfg.IsProduction())
	require.NotNil(t, cfg.RedisConfig)
	assert.Equal(t, "redis.internal", cfg.RedisConfig.Host)
	assert.Equal(t, 6379, cfg.RedisConfig.Port)
	assert.Equal(t, 6*time.Hour, cfg.RedisConfig.TTL)
}

func TestGetApplicationConfig_MissingCredentials(t *testing.T) {
	t.Setenv("ENV_PATH", t.TempDir()+"/missing.env")
	t.Setenv("FISHJAM_ID", "fj-123")
	t.Setenv("FISHJAM_MANAGEMENT_TOKEN", "")
	t.Setenv("GOOGLE_API_KEY", "")

	v, err := InitConfig()
	require.NoError(t, err)
	_, err = GetApplicationConfig(v)
	assert.Error(t, err)
}

func TestGetApplicationConfig_InvalidStoreType(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CALL_STORE__TYPE", "cassandra")

	v, err := InitConfig()
	require.NoError(t, err)
	_, err = GetApplicationConfig(v)
	assert.Error(t, err)
}
