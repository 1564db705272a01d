package meta

import (
	"log/slog"
	"testing"
	"time"

	"github.com/HitchedSyringe/Sleepy/sleepy"
	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBot(t *testing.T) *sleepy.Bot {
	t.Helper()

	cfg := sleepy.DefaultConfig()
	cfg.Discord.Token = "test-token"
	cfg.LogLevel.Set(slog.LevelError)

	bot, err := sleepy.New(cfg)
	require.NoError(t, err)
	return bot
}

func TestCommandWiring(t *testing.T) {
	ext, err := New(testBot(t))
	require.NoError(t, err)
	assert.Equal(t, "Meta", ext.Name())

	seen := map[string]bool{}
	for _, cmd := range ext.Commands() {
		require.NotEmpty(t, cmd.Name)
		require.NotNil(t, cmd.Run, cmd.Name)

		for _, name := range append([]string{cmd.Name}, cmd.Aliases...) {
			assert.False(t, seen[name], "duplicate command name %q", name)
			seen[name] = true
		}
	}

	for _, name := range []string{
		"help", "hello", "ping", "uptime", "invite", "avatar",
		"permissions", "prefixes", "serverinfo", "userinfo", "source",
	} {
		assert.True(t, seen[name], name)
	}
}

func TestFeatureName(t *testing.T) {
	assert.Equal(t, "Animated Icon", featureName("ANIMATED_ICON"))
	assert.Equal(t, "Community", featureName("COMMUNITY"))
	assert.Equal(t, "Welcome Screen Enabled", featureName("WELCOME_SCREEN_ENABLED"))
}

func TestOrNA(t *testing.T) {
	assert.Equal(t, "N/A", orNA(""))
	assert.Equal(t, "something", orNA("something"))
}

func TestPremiumSince(t *testing.T) {
	assert.Equal(t, "N/A", premiumSince(&discordgo.Member{}))

	ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	got := premiumSince(&discordgo.Member{PremiumSince: &ts})
	assert.Equal(t, "<t:1717243200:R>", got)
}

func TestLevelNames(t *testing.T) {
	assert.Equal(t, "None", verificationLevelName(discordgo.VerificationLevelNone))
	assert.Equal(t, "Highest", verificationLevelName(discordgo.VerificationLevelVeryHigh))

	assert.Equal(t, "None", mfaLevelName(discordgo.MfaLevelNone))
	assert.Equal(t, "Elevated", mfaLevelName(discordgo.MfaLevelElevated))

	assert.Equal(
		t,
		"Disabled",
		contentFilterName(discordgo.ExplicitContentFilterDisabled),
	)
	assert.Equal(
		t,
		"All Members",
		contentFilterName(discordgo.ExplicitContentFilterAllMembers),
	)
}
