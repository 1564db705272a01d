package sleepy

import (
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouterAddCommand(t *testing.T) {
	bot := newTestBot(t)
	r := bot.Router()

	require.Error(t, r.AddCommand(nil))
	require.Error(t, r.AddCommand(&Command{Name: ""}))
	require.Error(t, r.AddCommand(&Command{Name: "nobody"}))

	require.NoError(t, r.AddCommand(stubCommand("greet", "hi", "hello")))

	// Collisions on the primary name or an alias are rejected.
	require.Error(t, r.AddCommand(stubCommand("greet")))
	require.Error(t, r.AddCommand(stubCommand("other", "hello")))
}

func TestRouterGetCommand(t *testing.T) {
	bot := newTestBot(t)
	r := bot.Router()

	cmd := stubCommand("greet", "hi")
	require.NoError(t, r.AddCommand(cmd))

	for _, name := range []string{"greet", "GREET", "hi", "Hi"} {
		got, ok := r.GetCommand(name)
		require.True(t, ok, name)
		assert.Same(t, cmd, got)
	}

	_, ok := r.GetCommand("nope")
	assert.False(t, ok)
}

func TestRouterRemoveCommand(t *testing.T) {
	bot := newTestBot(t)
	r := bot.Router()

	require.NoError(t, r.AddCommand(stubCommand("greet", "hi")))
	r.RemoveCommand("greet")

	_, ok := r.GetCommand("greet")
	assert.False(t, ok)
	_, ok = r.GetCommand("hi")
	assert.False(t, ok, "aliases are removed with the command")

	r.RemoveCommand("greet") // removing twice is a no-op
}

func TestRouterCommands(t *testing.T) {
	bot := newTestBot(t)
	r := bot.Router()

	require.NoError(t, r.AddCommand(stubCommand("zebra", "z")))
	require.NoError(t, r.AddCommand(stubCommand("apple", "a")))

	commands := r.Commands()
	require.Len(t, commands, 2, "aliases do not duplicate entries")
	assert.Equal(t, "apple", commands[0].Name)
	assert.Equal(t, "zebra", commands[1].Name)
}

func TestRouterFindPrefix(t *testing.T) {
	bot := newTestBot(t)
	r := bot.Router()
	bot.Session().State.User = &discordgo.User{ID: "99"}

	prefix, rest, ok := r.findPrefix("!ping pong")
	require.True(t, ok)
	assert.Equal(t, "!", prefix)
	assert.Equal(t, "ping pong", rest)

	prefix, rest, ok = r.findPrefix("<@99> ping")
	require.True(t, ok)
	assert.Equal(t, "<@99> ", prefix)
	assert.Equal(t, "ping", rest)

	// Nickname mention form.
	_, rest, ok = r.findPrefix("<@!99>ping")
	require.True(t, ok)
	assert.Equal(t, "ping", rest)

	_, _, ok = r.findPrefix("plain message")
	assert.False(t, ok)

	_, _, ok = r.findPrefix("<@100> not me")
	assert.False(t, ok)
}

func TestCommandRequiredArgs(t *testing.T) {
	cmd := &Command{Name: "kick", Usage: "<user> [reason]"}
	assert.Equal(t, []string{"user"}, cmd.requiredArgs())

	cmd = &Command{Name: "say", Usage: "<message...>"}
	assert.Equal(t, []string{"message"}, cmd.requiredArgs())

	cmd = &Command{Name: "ping"}
	assert.Empty(t, cmd.requiredArgs())
}

func TestCommandUsageDiagram(t *testing.T) {
	cmd := &Command{Name: "kick", Usage: "<user> [reason]"}
	assert.Equal(
		t,
		"kick <user> [reason]\n     ^^^^^^\n",
		cmd.usageDiagram("user"),
	)
	assert.Empty(t, cmd.usageDiagram("nonexistent"))
}

func TestCommandCooldown(t *testing.T) {
	cmd := stubCommand("slow")
	cmd.Cooldown = &Cooldown{Rate: 1, Per: time.Minute}

	release, err := cmd.reserveCooldown("user1")
	require.NoError(t, err)
	require.NotNil(t, release)

	_, err = cmd.reserveCooldown("user1")
	var cdErr *CooldownError
	require.ErrorAs(t, err, &cdErr)
	assert.Greater(t, cdErr.RetryAfter, time.Duration(0))

	// Buckets are per user.
	_, err = cmd.reserveCooldown("user2")
	require.NoError(t, err)

	// Refunding the token makes it available again.
	release()
	_, err = cmd.reserveCooldown("user1")
	assert.NoError(t, err)
}

func TestCommandResetCooldown(t *testing.T) {
	cmd := stubCommand("slow")
	cmd.Cooldown = &Cooldown{Rate: 1, Per: time.Minute}

	_, err := cmd.reserveCooldown("user1")
	require.NoError(t, err)
	_, err = cmd.reserveCooldown("user1")
	require.Error(t, err)

	cmd.resetCooldown("user1")
	_, err = cmd.reserveCooldown("user1")
	assert.NoError(t, err)
}

func TestCommandWithoutCooldown(t *testing.T) {
	cmd := stubCommand("fast")
	for i := 0; i < 50; i++ {
		release, err := cmd.reserveCooldown("user1")
		require.NoError(t, err)
		assert.Nil(t, release)
	}
}

func TestRouterCheckSpam(t *testing.T) {
	bot := newTestBot(t)
	r := bot.Router()

	now := time.Now()
	for i := 0; i < spamControlEvents; i++ {
		assert.False(t, r.checkSpam("user1", now))
	}
	assert.True(t, r.checkSpam("user1", now))

	// Another user has their own bucket.
	assert.False(t, r.checkSpam("user2", now))

	// The bucket refills over time.
	assert.False(t, r.checkSpam("user1", now.Add(spamControlWindow)))
}

func TestRouterInvokeRunsChecks(t *testing.T) {
	bot := newTestBot(t)

	checkErr := &CheckFailedError{Reason: "not here"}
	ran := false
	cmd := &Command{
		Name:   "guarded",
		Checks: []CheckFunc{func(*Context) error { return checkErr }},
		Run: func(*Context) error {
			ran = true
			return nil
		},
	}

	ctx := newTestContext(t, bot, cmd, newTestMessage("1", "!guarded"))
	err := bot.Router().invoke(ctx, false)
	require.ErrorIs(t, err, checkErr)
	assert.False(t, ran)
}

func TestRouterInvokeMissingArgument(t *testing.T) {
	bot := newTestBot(t)

	cmd := stubCommand("kick")
	cmd.Usage = "<user> [reason]"

	ctx := newTestContext(t, bot, cmd, newTestMessage("1", "!kick"))
	err := bot.Router().invoke(ctx, false)

	var missing *MissingRequiredArgumentError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "user", missing.Param)

	ctx = newTestContext(t, bot, cmd, newTestMessage("1", "!kick someone"), "someone")
	assert.NoError(t, bot.Router().invoke(ctx, false))
}

func TestRouterInvokeCooldownRefunds(t *testing.T) {
	bot := newTestBot(t)

	var result error
	cmd := &Command{
		Name:     "limited",
		Cooldown: &Cooldown{Rate: 1, Per: time.Hour},
		Run:      func(*Context) error { return result },
	}

	invoke := func() error {
		ctx := newTestContext(t, bot, cmd, newTestMessage("1", "!limited"))
		return bot.Router().invoke(ctx, false)
	}

	// Bad input forgives the cooldown: the command can be retried
	// immediately.
	result = &BadArgumentError{Message: "bad"}
	var badArg *BadArgumentError
	require.ErrorAs(t, invoke(), &badArg)
	result = nil
	require.NoError(t, invoke())

	// The successful run consumed the token.
	var cdErr *CooldownError
	require.ErrorAs(t, invoke(), &cdErr)
}

func TestRouterInvokeRequestFailureKeepsToken(t *testing.T) {
	bot := newTestBot(t)

	cmd := &Command{
		Name:     "webby",
		Cooldown: &Cooldown{Rate: 1, Per: time.Hour},
		Run: func(*Context) error {
			return &RequestFailedError{Method: "GET", Status: 500}
		},
	}

	invoke := func() error {
		ctx := newTestContext(t, bot, cmd, newTestMessage("1", "!webby"))
		return bot.Router().invoke(ctx, false)
	}

	var reqErr *RequestFailedError
	require.ErrorAs(t, invoke(), &reqErr)

	var cdErr *CooldownError
	require.ErrorAs(t, invoke(), &cdErr)
}

func TestRouterInvokeUnexpectedErrorRefunds(t *testing.T) {
	bot := newTestBot(t)

	boom := errors.New("boom")
	cmd := &Command{
		Name:     "flaky",
		Cooldown: &Cooldown{Rate: 1, Per: time.Hour},
		Run:      func(*Context) error { return boom },
	}

	for i := 0; i < 3; i++ {
		ctx := newTestContext(t, bot, cmd, newTestMessage("1", "!flaky"))
		require.ErrorIs(t, bot.Router().invoke(ctx, false), boom)
	}
}

func TestRouterInvokeOwnerSkipsCooldown(t *testing.T) {
	bot := newTestBot(t)

	cmd := &Command{
		Name:     "limited",
		Cooldown: &Cooldown{Rate: 1, Per: time.Hour},
		Run:      func(*Context) error { return nil },
	}

	for i := 0; i < 3; i++ {
		ctx := newTestContext(t, bot, cmd, newTestMessage("1", "!limited"))
		require.NoError(t, bot.Router().invoke(ctx, true))
	}
}

func TestRouterHandleMessageCreate(t *testing.T) {
	bot := newTestBot(t)

	ran := false
	cmd := &Command{
		Name: "greet",
		Run: func(ctx *Context) error {
			ran = true
			assert.Equal(t, "!", ctx.Prefix)
			assert.Equal(t, []string{"there", "friend"}, ctx.Args)
			assert.Equal(t, "there friend", ctx.RawArgs)
			return nil
		},
	}
	require.NoError(t, bot.Router().AddCommand(cmd))

	dispatch := func(msg *discordgo.Message) {
		bot.Router().handleMessageCreate(
			bot.Session(),
			&discordgo.MessageCreate{Message: msg},
		)
	}

	dispatch(newTestMessage("1", "!greet there friend"))
	assert.True(t, ran)

	// Bot authors, non-command messages, and unknown commands are
	// all ignored.
	ran = false

	msg := newTestMessage("1", "!greet there friend")
	msg.Author.Bot = true
	dispatch(msg)
	assert.False(t, ran)

	dispatch(newTestMessage("1", "greet there friend"))
	assert.False(t, ran)

	dispatch(newTestMessage("1", "!unknown"))
	assert.False(t, ran)

	dispatch(newTestMessage("1", "!"))
	assert.False(t, ran)
}
