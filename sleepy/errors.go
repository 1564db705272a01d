package sleepy

import (
	"fmt"
	"time"
)

// CommandError is implemented by errors raised during command
// dispatch that have a user-facing message. The router's error
// reporter sends CommandMessage to the invoking channel.
type CommandError interface {
	error
	CommandMessage() string
}

// UserInputError is implemented by command errors caused by bad user
// input. The router refunds the command's cooldown token for these.
type UserInputError interface {
	CommandError
	userInput()
}

// MissingRequiredArgumentError is raised when an invocation omits a
// required command argument.
type MissingRequiredArgumentError struct {
	Param   string
	Command *Command
}

func (e *MissingRequiredArgumentError) Error() string {
	return fmt.Sprintf("missing required argument: %s", e.Param)
}

func (e *MissingRequiredArgumentError) CommandMessage() string {
	msg := fmt.Sprintf("Missing required argument: `%s`.", e.Param)
	if diagram := e.Command.usageDiagram(e.Param); diagram != "" {
		msg += "\n```\n" + diagram + "```"
	}
	return msg
}

func (*MissingRequiredArgumentError) userInput() {}

// BadArgumentError is raised by commands when an argument fails to
// parse or resolve.
type BadArgumentError struct {
	Message string
}

func (e *BadArgumentError) Error() string {
	return e.Message
}

func (e *BadArgumentError) CommandMessage() string {
	if e.Message == "" {
		return "Bad argument: Please double-check your input arguments and try again."
	}
	return e.Message
}

func (*BadArgumentError) userInput() {}

// CooldownError is raised when a command is invoked while its
// per-user cooldown bucket is exhausted.
type CooldownError struct {
	RetryAfter time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("command on cooldown, retry in %.2fs", e.RetryAfter.Seconds())
}

func (e *CooldownError) CommandMessage() string {
	return fmt.Sprintf(
		"You are on cooldown. Try again in **%.2f** seconds.",
		e.RetryAfter.Seconds(),
	)
}

// NotOwnerError is raised by the owner-only check.
type NotOwnerError struct{}

func (*NotOwnerError) Error() string {
	return "command invoker is not a bot owner"
}

func (*NotOwnerError) CommandMessage() string {
	return "Huh? You're not one of my higher-ups! Scram, skid!"
}

// NoPrivateMessageError is raised by guild-only checks invoked from a
// direct message.
type NoPrivateMessageError struct{}

func (*NoPrivateMessageError) Error() string {
	return "command cannot be used in private messages"
}

func (*NoPrivateMessageError) CommandMessage() string {
	return "This command cannot be used in private messages."
}

// MissingPermissionsError is raised when the command invoker lacks
// all of the permissions a check requires.
type MissingPermissionsError struct {
	Missing []string
}

func (e *MissingPermissionsError) Error() string {
	return fmt.Sprintf("invoker is missing permissions: %v", e.Missing)
}

func (e *MissingPermissionsError) CommandMessage() string {
	names := make([]string, len(e.Missing))
	for i, p := range e.Missing {
		names[i] = permissionName(p)
	}
	return fmt.Sprintf(
		"You need the `%s` permission(s) to use that command.",
		HumanJoin(names, "and"),
	)
}

// MissingAnyPermissionsError is raised when the command invoker has
// none of the permissions an any-of check accepts.
type MissingAnyPermissionsError struct {
	Missing []string
}

func (e *MissingAnyPermissionsError) Error() string {
	return fmt.Sprintf("invoker is missing all of: %v", e.Missing)
}

func (e *MissingAnyPermissionsError) CommandMessage() string {
	names := make([]string, len(e.Missing))
	for i, p := range e.Missing {
		names[i] = permissionName(p)
	}
	return fmt.Sprintf(
		"You are missing either %s to run this command.",
		HumanJoin(names, "or"),
	)
}

// BotMissingPermissionsError is raised when the bot's own member
// lacks permissions a check requires.
type BotMissingPermissionsError struct {
	Missing []string
}

func (e *BotMissingPermissionsError) Error() string {
	return fmt.Sprintf("bot is missing permissions: %v", e.Missing)
}

func (e *BotMissingPermissionsError) CommandMessage() string {
	names := make([]string, len(e.Missing))
	for i, p := range e.Missing {
		names[i] = permissionName(p)
	}
	return fmt.Sprintf(
		"I need the `%s` permission(s) to execute that command.",
		HumanJoin(names, "and"),
	)
}

// BotMissingAnyPermissionsError is raised when the bot's own member
// has none of the permissions an any-of check accepts.
type BotMissingAnyPermissionsError struct {
	Missing []string
}

func (e *BotMissingAnyPermissionsError) Error() string {
	return fmt.Sprintf("bot is missing all of: %v", e.Missing)
}

func (e *BotMissingAnyPermissionsError) CommandMessage() string {
	names := make([]string, len(e.Missing))
	for i, p := range e.Missing {
		names[i] = permissionName(p)
	}
	return fmt.Sprintf(
		"Bot requires either %s to run this command.",
		HumanJoin(names, "or"),
	)
}

// CheckFailedError is a generic check failure with no specific
// user-facing explanation. The router drops it silently.
type CheckFailedError struct {
	Reason string
}

func (e *CheckFailedError) Error() string {
	if e.Reason == "" {
		return "command check failed"
	}
	return e.Reason
}
