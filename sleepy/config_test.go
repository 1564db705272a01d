package sleepy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTestConfig(t *testing.T) {
	cfg := DefaultTestConfig(t)
	require.NoError(t, structValidator.Struct(cfg))
}

func TestValidateRequiresToken(t *testing.T) {
	cfg := DefaultTestConfig(t)
	cfg.Discord.Token = ""
	require.Error(t, structValidator.Struct(cfg))
}

func TestValidateDatabaseType(t *testing.T) {
	cfg := DefaultTestConfig(t)
	cfg.DatabaseType = "mysql"
	require.Error(t, structValidator.Struct(cfg))

	cfg.DatabaseType = dbTypePostgres
	require.NoError(t, structValidator.Struct(cfg))
}

func TestValidateNegativeDurations(t *testing.T) {
	cfg := DefaultTestConfig(t)
	cfg.MenuTimeout = -time.Second
	require.Error(t, structValidator.Struct(cfg))

	cfg = DefaultTestConfig(t)
	cfg.HTTPCache.TTL = -time.Second
	require.Error(t, structValidator.Struct(cfg))

	cfg = DefaultTestConfig(t)
	cfg.HTTPCache.MaxEntries = -1
	require.Error(t, structValidator.Struct(cfg))
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultTestConfig(t)
	cfg.Discord.Token = ""

	_, err := New(cfg)
	require.Error(t, err)
}

func TestNewAppliesDefaults(t *testing.T) {
	cfg := DefaultTestConfig(t)
	cfg.HTTPClient = nil

	bot, err := New(cfg)
	require.NoError(t, err)
	assert.NotNil(t, bot.Requester.Client())
	assert.NotNil(t, bot.Router())
	assert.NotNil(t, bot.Extensions())
	assert.Nil(t, bot.DB(), "database opens on Run, not New")
	assert.Nil(t, bot.api, "status API stays off when disabled")
}

func TestDefaultConfigValues(t *testing.T) {
	cfg := DefaultConfig()

	assert.True(t, cfg.Mentionable)
	assert.True(t, cfg.Extensions.Autoload)
	assert.Equal(t, DefaultExtensionsRoot, cfg.Extensions.Root)
	assert.True(t, cfg.HTTPCache.Enabled)
	assert.Equal(t, DefaultHTTPCacheMaxEntries, cfg.HTTPCache.MaxEntries)
	assert.Equal(t, DefaultHTTPCacheTTL, cfg.HTTPCache.TTL)
	assert.Equal(t, DefaultDatabaseType, cfg.DatabaseType)
	assert.Equal(t, DefaultMenuTimeout, cfg.MenuTimeout)
	assert.Equal(t, DefaultDiscordGatewayIntent, cfg.Discord.GatewayIntents)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel.Level())
}

func TestCORSConfigGINConfig(t *testing.T) {
	cfg := CORSConfig{
		AllowOrigins:     []string{"https://example.com"},
		AllowMethods:     []string{"GET"},
		AllowHeaders:     []string{"Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           time.Hour,
	}

	gin := cfg.GINConfig()
	assert.Equal(t, cfg.AllowOrigins, gin.AllowOrigins)
	assert.Equal(t, cfg.AllowMethods, gin.AllowMethods)
	assert.Equal(t, cfg.AllowHeaders, gin.AllowHeaders)
	assert.Equal(t, cfg.ExposeHeaders, gin.ExposeHeaders)
	assert.True(t, gin.AllowCredentials)
	assert.Equal(t, time.Hour, gin.MaxAge)
}

func TestDefaultCORSConfigCopies(t *testing.T) {
	cfg := DefaultCORSConfig()
	require.NotEmpty(t, cfg.AllowMethods)

	cfg.AllowMethods[0] = "mutated"
	assert.NotEqual(t, "mutated", DefaultCORSAllowMethods[0])
}
