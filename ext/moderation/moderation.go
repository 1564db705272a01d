// Package moderation provides server moderation commands. None of
// these work in direct messages.
package moderation

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/HitchedSyringe/Sleepy/sleepy"
)

const (
	okHandEmoji = "<a:sapphire_ok_hand:786093988679516160>"

	// Discord refuses to bulk-delete messages older than this.
	bulkDeleteMaxAge = 14 * 24 * time.Hour

	purgeSearchLimit = 2000
	purgeChunkSize   = 100
)

// Cog bundles the moderation commands.
type Cog struct {
	bot *sleepy.Bot
}

// New constructs the extension.
func New(bot *sleepy.Bot) (sleepy.Extension, error) {
	return &Cog{bot: bot}, nil
}

func (c *Cog) Name() string { return "Moderation" }

func (c *Cog) Commands() []*sleepy.Command {
	return []*sleepy.Command{
		{
			Name:        "purge",
			Description: "Deletes a specified amount of recent messages.",
			Usage:       "[amount]",
			Checks: []sleepy.CheckFunc{
				sleepy.GuildOnly(),
				sleepy.HasGuildPermissions(discordgo.PermissionManageMessages),
				sleepy.BotHasPermissions(discordgo.PermissionManageMessages),
			},
			Run: c.purge,
		},
		{
			Name:        "cleanup",
			Description: "Deletes my messages and anything that looks like it invoked me.",
			Usage:       "[amount]",
			Checks: []sleepy.CheckFunc{
				sleepy.GuildOnly(),
				sleepy.HasPermissions(discordgo.PermissionManageMessages),
			},
			Run: c.cleanup,
		},
		{
			Name:        "kick",
			Description: "Kicks a member.",
			Usage:       "<user> [reason...]",
			Checks: []sleepy.CheckFunc{
				sleepy.GuildOnly(),
				sleepy.HasGuildPermissions(discordgo.PermissionKickMembers),
				sleepy.BotHasPermissions(discordgo.PermissionKickMembers),
			},
			Run: c.kick,
		},
		{
			Name:        "ban",
			Aliases:     []string{"hackban"},
			Description: "Bans a user, deleting a day's worth of their messages.",
			Usage:       "<user> [reason...]",
			Checks: []sleepy.CheckFunc{
				sleepy.GuildOnly(),
				sleepy.HasGuildPermissions(discordgo.PermissionBanMembers),
				sleepy.BotHasPermissions(discordgo.PermissionBanMembers),
			},
			Run: c.ban,
		},
		{
			Name:        "unban",
			Aliases:     []string{"pardon"},
			Description: "Unbans a user.",
			Usage:       "<user_id> [reason...]",
			Checks: []sleepy.CheckFunc{
				sleepy.GuildOnly(),
				sleepy.HasGuildPermissions(discordgo.PermissionBanMembers),
				sleepy.BotHasPermissions(discordgo.PermissionBanMembers),
			},
			Run: c.unban,
		},
	}
}

// auditReason formats the acting moderator into the audit log reason.
func auditReason(ctx *sleepy.Context, reason string) string {
	if reason == "" {
		reason = "No reason given."
	}
	author := ctx.Author()
	return sleepy.Truncate(
		fmt.Sprintf("%s (ID: %s): %s", author.String(), author.ID, reason), 512,
	)
}

func parseAmount(args []string, fallback int) (int, error) {
	if len(args) == 0 {
		return fallback, nil
	}
	amount, err := strconv.Atoi(args[0])
	if err != nil || amount < 1 || amount > purgeSearchLimit {
		return 0, &sleepy.BadArgumentError{
			Message: fmt.Sprintf(
				"Amount must be a number between 1 and %d.", purgeSearchLimit,
			),
		}
	}
	return amount, nil
}

// doPurge walks the channel history before the invoking message and
// bulk-deletes everything matching the filter, up to limit matches.
// Messages too old to bulk-delete are skipped.
func (c *Cog) doPurge(
	ctx *sleepy.Context,
	limit int,
	filter func(*discordgo.Message) bool,
) error {
	ctx.Typing()

	beforeID := ctx.Message.ID
	cutoff := time.Now().Add(-bulkDeleteMaxAge)
	deleted := 0
	searched := 0

	for deleted < limit && searched < purgeSearchLimit {
		messages, err := ctx.Session.ChannelMessages(
			ctx.Message.ChannelID, purgeChunkSize, beforeID, "", "",
		)
		if err != nil {
			_, sendErr := ctx.Send("Deleting the messages failed.\nTry again later?")
			if sendErr != nil {
				return sendErr
			}
			return nil
		}
		if len(messages) == 0 {
			break
		}
		beforeID = messages[len(messages)-1].ID

		var chunk []string
		for _, message := range messages {
			searched++
			if message.Timestamp.Before(cutoff) {
				continue
			}
			if !filter(message) {
				continue
			}
			chunk = append(chunk, message.ID)
			if deleted+len(chunk) >= limit {
				break
			}
		}
		if len(chunk) == 0 {
			continue
		}

		if len(chunk) == 1 {
			err = ctx.Session.ChannelMessageDelete(ctx.Message.ChannelID, chunk[0])
		} else {
			err = ctx.Session.ChannelMessagesBulkDelete(ctx.Message.ChannelID, chunk)
		}
		if err != nil {
			_, sendErr := ctx.Send("Deleting the messages failed.\nTry again later?")
			return sendErr
		}
		deleted += len(chunk)
	}

	if deleted == 0 {
		_, err := ctx.Send("No messages were deleted.")
		return err
	}

	_, err := ctx.Sendf("Deleted **%d/%d** messages.", deleted, limit)
	return err
}

func (c *Cog) purge(ctx *sleepy.Context) error {
	amount, err := parseAmount(ctx.Args, 10)
	if err != nil {
		return err
	}

	return c.doPurge(ctx, amount, func(*discordgo.Message) bool { return true })
}

func (c *Cog) cleanup(ctx *sleepy.Context) error {
	amount, err := parseAmount(ctx.Args, 10)
	if err != nil {
		return err
	}

	botID := c.bot.UserID()
	prefixes := ctx.Bot.Router().Prefixes()

	return c.doPurge(
		ctx, amount, func(message *discordgo.Message) bool {
			if message.Author != nil && message.Author.ID == botID {
				return true
			}
			for _, prefix := range prefixes {
				if strings.HasPrefix(message.Content, prefix) {
					return true
				}
			}
			return false
		},
	)
}

func (c *Cog) kick(ctx *sleepy.Context) error {
	member, err := ctx.ResolveMember(ctx.Args[0])
	if err != nil {
		return err
	}
	if member.User != nil && member.User.ID == ctx.Author().ID {
		_, err = ctx.Send("Kicking yourself is not something I can help with.")
		return err
	}

	reason := strings.Join(ctx.Args[1:], " ")
	err = ctx.Session.GuildMemberDeleteWithReason(
		ctx.GuildID(), member.User.ID, auditReason(ctx, reason),
	)
	if err != nil {
		return err
	}

	_, err = ctx.Send(okHandEmoji)
	return err
}

func (c *Cog) ban(ctx *sleepy.Context) error {
	user, err := ctx.ResolveUser(ctx.Args[0])
	if err != nil {
		return err
	}
	if user.ID == ctx.Author().ID {
		_, err = ctx.Send("Banning yourself is not something I can help with.")
		return err
	}

	reason := strings.Join(ctx.Args[1:], " ")
	err = ctx.Session.GuildBanCreateWithReason(
		ctx.GuildID(), user.ID, auditReason(ctx, reason), 1,
	)
	if err != nil {
		return err
	}

	_, err = ctx.Send(okHandEmoji)
	return err
}

func (c *Cog) unban(ctx *sleepy.Context) error {
	userID := ctx.Args[0]
	if _, err := strconv.ParseUint(userID, 10, 64); err != nil {
		return &sleepy.BadArgumentError{Message: "User ID must be a number."}
	}

	entry, err := ctx.Session.GuildBan(ctx.GuildID(), userID)
	if err != nil {
		_, sendErr := ctx.Send("That user isn't banned.")
		return sendErr
	}

	if err = ctx.Session.GuildBanDelete(ctx.GuildID(), userID); err != nil {
		return err
	}

	message := fmt.Sprintf(
		"Unbanned %s (ID: %s).", entry.User.String(), entry.User.ID,
	)
	if entry.Reason != "" {
		message += fmt.Sprintf("\n>>> **Previous Ban Reason:**\n%s", entry.Reason)
	}

	_, err = ctx.Send(message)
	return err
}
