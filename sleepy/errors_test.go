package sleepy

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMissingRequiredArgumentMessage(t *testing.T) {
	cmd := &Command{Name: "kick", Usage: "<user> [reason]"}
	err := &MissingRequiredArgumentError{Param: "user", Command: cmd}

	msg := err.CommandMessage()
	assert.Contains(t, msg, "Missing required argument: `user`.")
	assert.Contains(t, msg, "kick <user> [reason]")
	assert.Contains(t, msg, "^^^^^^")

	// No diagram when the parameter is not in the usage string.
	err = &MissingRequiredArgumentError{Param: "ghost", Command: cmd}
	assert.Equal(
		t,
		"Missing required argument: `ghost`.",
		err.CommandMessage(),
	)
}

func TestBadArgumentMessage(t *testing.T) {
	err := &BadArgumentError{Message: "That isn't a number."}
	assert.Equal(t, "That isn't a number.", err.CommandMessage())

	assert.Contains(
		t,
		(&BadArgumentError{}).CommandMessage(),
		"double-check your input",
	)
}

func TestCooldownMessage(t *testing.T) {
	err := &CooldownError{RetryAfter: 2500 * time.Millisecond}
	assert.Equal(
		t,
		"You are on cooldown. Try again in **2.50** seconds.",
		err.CommandMessage(),
	)
}

func TestPermissionErrorMessages(t *testing.T) {
	missing := &MissingPermissionsError{
		Missing: []string{"manage_messages", "ban_members"},
	}
	assert.Equal(
		t,
		"You need the `Manage Messages and Ban Members` permission(s) to use that command.",
		missing.CommandMessage(),
	)

	anyMissing := &MissingAnyPermissionsError{
		Missing: []string{"manage_guild", "administrator"},
	}
	assert.Equal(
		t,
		"You are missing either Manage Server or Administrator to run this command.",
		anyMissing.CommandMessage(),
	)

	botMissing := &BotMissingPermissionsError{Missing: []string{"embed_links"}}
	assert.Equal(
		t,
		"I need the `Embed Links` permission(s) to execute that command.",
		botMissing.CommandMessage(),
	)
}

func TestUserInputErrorClassification(t *testing.T) {
	var userErr UserInputError

	assert.True(t, errors.As(&BadArgumentError{}, &userErr))
	assert.True(t, errors.As(
		&MissingRequiredArgumentError{Command: &Command{Name: "x"}},
		&userErr,
	))

	// Cooldowns and permission failures keep their cooldown token.
	assert.False(t, errors.As(&CooldownError{}, &userErr))
	assert.False(t, errors.As(&MissingPermissionsError{}, &userErr))
}
