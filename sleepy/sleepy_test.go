package sleepy

import (
	"log/slog"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBotOwners(t *testing.T) {
	cfg := DefaultTestConfig(t)
	cfg.OwnerIDs = []string{"42", "43"}

	bot, err := New(cfg)
	require.NoError(t, err)

	assert.True(t, bot.IsOwner("42"))
	assert.True(t, bot.IsOwner("43"))
	assert.False(t, bot.IsOwner("44"))
	assert.ElementsMatch(t, []string{"42", "43"}, bot.OwnerIDs())

	bot.setOwnerIDs([]string{"44"})
	assert.False(t, bot.IsOwner("42"))
	assert.True(t, bot.IsOwner("44"))
}

func TestBotUserID(t *testing.T) {
	bot := newTestBot(t)
	assert.Empty(t, bot.UserID(), "no user before the session is ready")

	bot.Session().State.User = &discordgo.User{ID: "99"}
	assert.Equal(t, "99", bot.UserID())
}

func TestBotMenuTimeout(t *testing.T) {
	bot := newTestBot(t)
	assert.Equal(t, DefaultMenuTimeout, bot.menuTimeout())

	bot.config.MenuTimeout = 0
	assert.Equal(t, DefaultMenuTimeout, bot.menuTimeout())
}

func TestBotStopBeforeRun(t *testing.T) {
	bot := newTestBot(t)
	assert.NotPanics(t, bot.Stop)
}

func TestBotRegisterExtension(t *testing.T) {
	bot := newTestBot(t)

	require.NoError(t, bot.RegisterExtension(
		"ext/demo",
		func(*Bot) (Extension, error) {
			return &stubExtension{name: "Demo"}, nil
		},
	))
	assert.Equal(t, []string{"ext/demo"}, bot.Extensions().Names())
}

func TestLoadExtensionsAutoload(t *testing.T) {
	bot := newTestBot(t)

	for _, name := range []string{"ext/a", "ext/b"} {
		name := name
		require.NoError(t, bot.RegisterExtension(
			name,
			func(*Bot) (Extension, error) {
				return &stubExtension{name: name}, nil
			},
		))
	}

	loaded, failed := bot.loadExtensions()
	assert.Equal(t, 2, loaded)
	assert.Zero(t, failed)
	assert.Equal(t, []string{"ext/a", "ext/b"}, bot.Extensions().Loaded())
}

func TestLoadExtensionsFromList(t *testing.T) {
	cfg := DefaultTestConfig(t)
	cfg.Extensions.Autoload = false
	cfg.Extensions.List = []string{"$/a", "$/missing"}

	bot, err := New(cfg)
	require.NoError(t, err)

	require.NoError(t, bot.RegisterExtension(
		"ext/a",
		func(*Bot) (Extension, error) {
			return &stubExtension{name: "A"}, nil
		},
	))

	loaded, failed := bot.loadExtensions()
	assert.Equal(t, 1, loaded)
	assert.Equal(t, 1, failed)
	assert.Equal(t, []string{"ext/a"}, bot.Extensions().Loaded())
}

func TestDiscordgoLogLevel(t *testing.T) {
	assert.Equal(t, discordgo.LogDebug, discordgoLogLevel(slog.LevelDebug))
	assert.Equal(t, discordgo.LogInformational, discordgoLogLevel(slog.LevelInfo))
	assert.Equal(t, discordgo.LogWarning, discordgoLogLevel(slog.LevelWarn))
	assert.Equal(t, discordgo.LogError, discordgoLogLevel(slog.LevelError))
}
