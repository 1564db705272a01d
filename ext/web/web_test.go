package web

import (
	"log/slog"
	"testing"

	"github.com/HitchedSyringe/Sleepy/sleepy"
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
	assert.Equal(t, "Web", ext.Name())

	seen := map[string]bool{}
	for _, cmd := range ext.Commands() {
		require.NotEmpty(t, cmd.Name)
		require.NotNil(t, cmd.Run, cmd.Name)
		require.NotNil(t, cmd.Cooldown, cmd.Name)

		for _, name := range append([]string{cmd.Name}, cmd.Aliases...) {
			assert.False(t, seen[name], "duplicate command name %q", name)
			seen[name] = true
		}
	}

	for _, name := range []string{
		"advice", "dadjoke", "chucknorris", "xkcd", "urbandict", "urban",
	} {
		assert.True(t, seen[name], name)
	}
}

func TestApplyHyperlinks(t *testing.T) {
	assert.Equal(
		t,
		"A [cat](http://cat.urbanup.com) sleeps.",
		applyHyperlinks("A [cat] sleeps."),
	)
	assert.Equal(
		t,
		"[big nap](http://big-nap.urbanup.com)",
		applyHyperlinks("[big nap]"),
	)
	assert.Equal(
		t,
		"no references here",
		applyHyperlinks("no references here"),
	)
	assert.Equal(
		t,
		"[a](http://a.urbanup.com) and [b](http://b.urbanup.com)",
		applyHyperlinks("[a] and [b]"),
	)
}
