package sleepy

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/require"
)

// DefaultTestConfig returns a config suitable for offline tests: a
// throwaway SQLite database, no status API, and quiet logging.
func DefaultTestConfig(t testing.TB) *Config {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Prefixes = []string{"!"}
	cfg.DatabaseType = dbTypeSQLite
	cfg.Database = filepath.Join(
		t.TempDir(),
		fmt.Sprintf("%s.sqlite3", t.Name()),
	)
	cfg.Discord.Token = "test-token"
	cfg.Discord.ApplicationID = "1000000000000000001"
	cfg.API.Enabled = false
	cfg.StartupTimeout = 5 * time.Second
	cfg.ShutdownTimeout = 10 * time.Second

	logLevel := slog.LevelError
	cfg.LogLevel.Set(logLevel)
	cfg.Discord.LogLevel.Set(logLevel)
	cfg.Discord.DiscordGoLogLevel.Set(logLevel)
	cfg.DatabaseLogLevel.Set(logLevel)
	cfg.API.LogLevel.Set(logLevel)

	return cfg
}

func newTestBot(t testing.TB) *Bot {
	t.Helper()

	bot, err := New(DefaultTestConfig(t))
	require.NoError(t, err)
	return bot
}

// newTestMessage builds a guild message from the given author.
func newTestMessage(authorID, content string) *discordgo.Message {
	return &discordgo.Message{
		ID:        "500000000000000001",
		ChannelID: "300000000000000001",
		GuildID:   "200000000000000001",
		Content:   content,
		Timestamp: time.Now(),
		Author: &discordgo.User{
			ID:       authorID,
			Username: "testuser",
		},
	}
}

func newTestContext(
	t testing.TB,
	bot *Bot,
	cmd *Command,
	msg *discordgo.Message,
	args ...string,
) *Context {
	t.Helper()

	return &Context{
		Ctx:     context.Background(),
		Bot:     bot,
		Session: bot.Session(),
		Message: msg,
		Command: cmd,
		Prefix:  "!",
		Args:    args,
	}
}

type stubExtension struct {
	name     string
	commands []*Command
	handlers []any
	closed   bool
	closeErr error
}

func (e *stubExtension) Name() string         { return e.name }
func (e *stubExtension) Commands() []*Command { return e.commands }

func (e *stubExtension) Handlers() []any { return e.handlers }

func (e *stubExtension) Close() error {
	e.closed = true
	return e.closeErr
}

func stubCommand(name string, aliases ...string) *Command {
	return &Command{
		Name:    name,
		Aliases: aliases,
		Run:     func(*Context) error { return nil },
	}
}
