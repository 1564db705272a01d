package sleepy

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// CheckFunc is a predicate run before a command's body. Returning a
// non-nil error aborts the invocation; CommandError values are
// surfaced to the invoking channel by the router.
type CheckFunc func(ctx *Context) error

// permissionBits maps permission flags to the snake_case names shown
// in permission error messages, in Discord's display order.
var permissionBits = []struct {
	Bit  int64
	Name string
}{
	{discordgo.PermissionCreateInstantInvite, "create_instant_invite"},
	{discordgo.PermissionKickMembers, "kick_members"},
	{discordgo.PermissionBanMembers, "ban_members"},
	{discordgo.PermissionAdministrator, "administrator"},
	{discordgo.PermissionManageChannels, "manage_channels"},
	{discordgo.PermissionManageServer, "manage_guild"},
	{discordgo.PermissionAddReactions, "add_reactions"},
	{discordgo.PermissionViewAuditLogs, "view_audit_log"},
	{discordgo.PermissionViewChannel, "view_channel"},
	{discordgo.PermissionSendMessages, "send_messages"},
	{discordgo.PermissionSendTTSMessages, "send_tts_messages"},
	{discordgo.PermissionManageMessages, "manage_messages"},
	{discordgo.PermissionEmbedLinks, "embed_links"},
	{discordgo.PermissionAttachFiles, "attach_files"},
	{discordgo.PermissionReadMessageHistory, "read_message_history"},
	{discordgo.PermissionMentionEveryone, "mention_everyone"},
	{discordgo.PermissionUseExternalEmojis, "use_external_emojis"},
	{discordgo.PermissionManageRoles, "manage_roles"},
	{discordgo.PermissionManageWebhooks, "manage_webhooks"},
	{discordgo.PermissionManageEmojis, "manage_emojis"},
	{discordgo.PermissionModerateMembers, "moderate_members"},
	{discordgo.PermissionManageNicknames, "manage_nicknames"},
	{discordgo.PermissionChangeNickname, "change_nickname"},
	{discordgo.PermissionVoiceMoveMembers, "move_members"},
	{discordgo.PermissionVoiceMuteMembers, "mute_members"},
	{discordgo.PermissionVoiceDeafenMembers, "deafen_members"},
}

// PermissionEntry pairs a permission flag with the display name shown
// in permission listings.
type PermissionEntry struct {
	Bit  int64
	Name string
}

// PermissionEntries returns every known permission flag with its
// display name, in Discord's display order.
func PermissionEntries() []PermissionEntry {
	entries := make([]PermissionEntry, 0, len(permissionBits))
	for _, p := range permissionBits {
		entries = append(entries, PermissionEntry{
			Bit:  p.Bit,
			Name: permissionName(p.Name),
		})
	}
	return entries
}

func permissionBitName(bit int64) string {
	for _, p := range permissionBits {
		if p.Bit == bit {
			return p.Name
		}
	}
	return fmt.Sprintf("0x%x", bit)
}

// missingBits returns the names of the wanted permission bits absent
// from have. Administrator implies everything.
func missingBits(have int64, want []int64) []string {
	if have&discordgo.PermissionAdministrator != 0 {
		return nil
	}
	var missing []string
	for _, bit := range want {
		if have&bit != bit {
			missing = append(missing, permissionBitName(bit))
		}
	}
	return missing
}

// IsOwner restricts a command to the bot owners.
func IsOwner() CheckFunc {
	return func(ctx *Context) error {
		if !ctx.Bot.IsOwner(ctx.Author().ID) {
			return &NotOwnerError{}
		}
		return nil
	}
}

// GuildOnly rejects invocations from direct messages.
func GuildOnly() CheckFunc {
	return func(ctx *Context) error {
		if ctx.GuildID() == "" {
			return &NoPrivateMessageError{}
		}
		return nil
	}
}

// HasPermissions requires the invoker to hold every given permission
// in the invoking channel. Owners bypass. Direct messages pass, since
// channel permissions are meaningless there.
func HasPermissions(perms ...int64) CheckFunc {
	return func(ctx *Context) error {
		if ctx.Bot.IsOwner(ctx.Author().ID) || ctx.GuildID() == "" {
			return nil
		}
		have, err := ctx.Permissions()
		if err != nil {
			return err
		}
		if missing := missingBits(have, perms); len(missing) > 0 {
			return &MissingPermissionsError{Missing: missing}
		}
		return nil
	}
}

// HasAnyPermissions requires the invoker to hold at least one of the
// given permissions in the invoking channel. Owners bypass.
func HasAnyPermissions(perms ...int64) CheckFunc {
	return func(ctx *Context) error {
		if ctx.Bot.IsOwner(ctx.Author().ID) || ctx.GuildID() == "" {
			return nil
		}
		have, err := ctx.Permissions()
		if err != nil {
			return err
		}
		if len(missingBits(have, perms)) < len(perms) {
			return nil
		}
		names := make([]string, len(perms))
		for i, bit := range perms {
			names[i] = permissionBitName(bit)
		}
		return &MissingAnyPermissionsError{Missing: names}
	}
}

// HasGuildPermissions is HasPermissions computed against the
// invoker's guild-wide permissions rather than the channel.
func HasGuildPermissions(perms ...int64) CheckFunc {
	return func(ctx *Context) error {
		if ctx.Bot.IsOwner(ctx.Author().ID) {
			return nil
		}
		if ctx.GuildID() == "" {
			return &NoPrivateMessageError{}
		}
		have, err := ctx.GuildPermissions()
		if err != nil {
			return err
		}
		if missing := missingBits(have, perms); len(missing) > 0 {
			return &MissingPermissionsError{Missing: missing}
		}
		return nil
	}
}

// HasAnyGuildPermissions requires at least one of the given guild
// permissions. Owners bypass; direct messages are rejected.
func HasAnyGuildPermissions(perms ...int64) CheckFunc {
	return func(ctx *Context) error {
		if ctx.Bot.IsOwner(ctx.Author().ID) {
			return nil
		}
		if ctx.GuildID() == "" {
			return &NoPrivateMessageError{}
		}
		have, err := ctx.GuildPermissions()
		if err != nil {
			return err
		}
		if len(missingBits(have, perms)) < len(perms) {
			return nil
		}
		names := make([]string, len(perms))
		for i, bit := range perms {
			names[i] = permissionBitName(bit)
		}
		return &MissingAnyPermissionsError{Missing: names}
	}
}

// BotHasPermissions requires the bot's own member to hold every given
// permission in the invoking channel. No owner bypass: the bot either
// has the permission or it does not.
func BotHasPermissions(perms ...int64) CheckFunc {
	return func(ctx *Context) error {
		if ctx.GuildID() == "" {
			return nil
		}
		have, err := ctx.BotPermissions()
		if err != nil {
			return err
		}
		if missing := missingBits(have, perms); len(missing) > 0 {
			return &BotMissingPermissionsError{Missing: missing}
		}
		return nil
	}
}

// BotHasAnyPermissions requires the bot's own member to hold at least
// one of the given permissions in the invoking channel.
func BotHasAnyPermissions(perms ...int64) CheckFunc {
	return func(ctx *Context) error {
		if ctx.GuildID() == "" {
			return nil
		}
		have, err := ctx.BotPermissions()
		if err != nil {
			return err
		}
		if len(missingBits(have, perms)) < len(perms) {
			return nil
		}
		names := make([]string, len(perms))
		for i, bit := range perms {
			names[i] = permissionBitName(bit)
		}
		return &BotMissingAnyPermissionsError{Missing: names}
	}
}

// IsGuildOwner restricts a command to the guild owner. Bot owners
// bypass.
func IsGuildOwner() CheckFunc {
	return func(ctx *Context) error {
		if ctx.Bot.IsOwner(ctx.Author().ID) {
			return nil
		}
		if ctx.GuildID() == "" {
			return &NoPrivateMessageError{}
		}
		guild, err := ctx.Guild()
		if err != nil {
			return err
		}
		if guild.OwnerID != ctx.Author().ID {
			return &CheckFailedError{Reason: "invoker does not own this server"}
		}
		return nil
	}
}

// IsGuildAdmin requires the Administrator guild permission.
func IsGuildAdmin() CheckFunc {
	return HasGuildPermissions(discordgo.PermissionAdministrator)
}

// IsGuildManager requires the Manage Server guild permission.
func IsGuildManager() CheckFunc {
	return HasGuildPermissions(discordgo.PermissionManageServer)
}

// AdminOr passes for guild administrators or members holding every
// given guild permission.
func AdminOr(perms ...int64) CheckFunc {
	return HasAnyGuildPermissions(
		append([]int64{discordgo.PermissionAdministrator}, perms...)...,
	)
}

// ManagerOr passes for server managers or members holding every given
// guild permission.
func ManagerOr(perms ...int64) CheckFunc {
	return HasAnyGuildPermissions(
		append([]int64{discordgo.PermissionManageServer}, perms...)...,
	)
}

// InGuilds allows a command only within the given guilds. Owners
// bypass.
func InGuilds(guildIDs ...string) CheckFunc {
	return func(ctx *Context) error {
		if ctx.Bot.IsOwner(ctx.Author().ID) {
			return nil
		}
		for _, id := range guildIDs {
			if ctx.GuildID() == id {
				return nil
			}
		}
		return &CheckFailedError{Reason: "command not available in this server"}
	}
}

// InChannels allows a command only within the given channels. Owners
// bypass.
func InChannels(channelIDs ...string) CheckFunc {
	return func(ctx *Context) error {
		if ctx.Bot.IsOwner(ctx.Author().ID) {
			return nil
		}
		for _, id := range channelIDs {
			if ctx.Message.ChannelID == id {
				return nil
			}
		}
		return &CheckFailedError{Reason: "command not available in this channel"}
	}
}

// IsUsers allows a command only for the given users. Owners bypass.
func IsUsers(userIDs ...string) CheckFunc {
	return func(ctx *Context) error {
		if ctx.Bot.IsOwner(ctx.Author().ID) {
			return nil
		}
		for _, id := range userIDs {
			if ctx.Author().ID == id {
				return nil
			}
		}
		return &CheckFailedError{Reason: "command not available to this user"}
	}
}

// CanStartMenu requires the channel permissions a pagination menu
// needs to render and update itself.
func CanStartMenu() CheckFunc {
	return BotHasPermissions(
		discordgo.PermissionSendMessages,
		discordgo.PermissionEmbedLinks,
		discordgo.PermissionReadMessageHistory,
	)
}
