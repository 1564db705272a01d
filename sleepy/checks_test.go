package sleepy

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testGuildID   = "200000000000000001"
	testChannelID = "300000000000000001"
	testOwnerID   = "777000000000000001"
	testModRoleID = "400000000000000001"
	testBotUserID = "990000000000000001"
)

// setupGuildState seeds the session state with a guild, a channel,
// and three members: the guild owner, a moderator holding Manage
// Messages, and the bot itself (also a moderator).
func setupGuildState(t testing.TB, bot *Bot) {
	t.Helper()

	state := bot.Session().State
	state.User = &discordgo.User{ID: testBotUserID}

	require.NoError(t, state.GuildAdd(&discordgo.Guild{
		ID:      testGuildID,
		OwnerID: testOwnerID,
		Roles: []*discordgo.Role{
			{
				ID: testGuildID, // @everyone
				Permissions: discordgo.PermissionViewChannel |
					discordgo.PermissionSendMessages,
			},
			{
				ID:          testModRoleID,
				Permissions: discordgo.PermissionManageMessages,
			},
		},
	}))
	require.NoError(t, state.ChannelAdd(&discordgo.Channel{
		ID:      testChannelID,
		GuildID: testGuildID,
		Type:    discordgo.ChannelTypeGuildText,
	}))

	members := []*discordgo.Member{
		{GuildID: testGuildID, User: &discordgo.User{ID: testOwnerID}},
		{
			GuildID: testGuildID,
			User:    &discordgo.User{ID: "1"},
		},
		{
			GuildID: testGuildID,
			User:    &discordgo.User{ID: "2"},
			Roles:   []string{testModRoleID},
		},
		{
			GuildID: testGuildID,
			User:    &discordgo.User{ID: testBotUserID},
			Roles:   []string{testModRoleID},
		},
	}
	for _, member := range members {
		require.NoError(t, state.MemberAdd(member))
	}
}

func guildContext(t testing.TB, bot *Bot, authorID string) *Context {
	t.Helper()

	msg := newTestMessage(authorID, "!test")
	msg.GuildID = testGuildID
	msg.ChannelID = testChannelID
	return newTestContext(t, bot, stubCommand("test"), msg)
}

func dmContext(t testing.TB, bot *Bot, authorID string) *Context {
	t.Helper()

	msg := newTestMessage(authorID, "!test")
	msg.GuildID = ""
	return newTestContext(t, bot, stubCommand("test"), msg)
}

func TestIsOwner(t *testing.T) {
	bot := newTestBot(t)
	bot.setOwnerIDs([]string{"42"})

	assert.NoError(t, IsOwner()(dmContext(t, bot, "42")))

	err := IsOwner()(dmContext(t, bot, "1"))
	var notOwner *NotOwnerError
	require.ErrorAs(t, err, &notOwner)
}

func TestGuildOnly(t *testing.T) {
	bot := newTestBot(t)
	setupGuildState(t, bot)

	assert.NoError(t, GuildOnly()(guildContext(t, bot, "1")))

	err := GuildOnly()(dmContext(t, bot, "1"))
	var noDM *NoPrivateMessageError
	require.ErrorAs(t, err, &noDM)
}

func TestHasPermissions(t *testing.T) {
	bot := newTestBot(t)
	setupGuildState(t, bot)

	check := HasPermissions(discordgo.PermissionManageMessages)

	assert.NoError(t, check(guildContext(t, bot, "2")))

	err := check(guildContext(t, bot, "1"))
	var missing *MissingPermissionsError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"manage_messages"}, missing.Missing)
	assert.Contains(t, missing.CommandMessage(), "`Manage Messages`")

	// Channel permissions are meaningless in direct messages.
	assert.NoError(t, check(dmContext(t, bot, "1")))

	// Owners bypass.
	bot.setOwnerIDs([]string{"1"})
	assert.NoError(t, check(guildContext(t, bot, "1")))
}

func TestHasAnyPermissions(t *testing.T) {
	bot := newTestBot(t)
	setupGuildState(t, bot)

	assert.NoError(t, HasAnyPermissions(
		discordgo.PermissionManageMessages,
		discordgo.PermissionSendMessages,
	)(guildContext(t, bot, "1")))

	err := HasAnyPermissions(
		discordgo.PermissionManageMessages,
		discordgo.PermissionBanMembers,
	)(guildContext(t, bot, "1"))

	var missing *MissingAnyPermissionsError
	require.ErrorAs(t, err, &missing)
	assert.Equal(
		t,
		[]string{"manage_messages", "ban_members"},
		missing.Missing,
	)
}

func TestHasGuildPermissions(t *testing.T) {
	bot := newTestBot(t)
	setupGuildState(t, bot)

	check := HasGuildPermissions(discordgo.PermissionManageMessages)

	// The guild owner holds every permission.
	assert.NoError(t, check(guildContext(t, bot, testOwnerID)))
	assert.NoError(t, check(guildContext(t, bot, "2")))

	var missing *MissingPermissionsError
	require.ErrorAs(t, check(guildContext(t, bot, "1")), &missing)

	// Unlike channel permission checks, direct messages are rejected.
	var noDM *NoPrivateMessageError
	require.ErrorAs(t, check(dmContext(t, bot, "1")), &noDM)
}

func TestBotHasPermissions(t *testing.T) {
	bot := newTestBot(t)
	setupGuildState(t, bot)

	assert.NoError(t, BotHasPermissions(
		discordgo.PermissionManageMessages,
	)(guildContext(t, bot, "1")))

	err := BotHasPermissions(
		discordgo.PermissionBanMembers,
	)(guildContext(t, bot, "1"))

	var missing *BotMissingPermissionsError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"ban_members"}, missing.Missing)
	assert.Contains(t, missing.CommandMessage(), "`Ban Members`")

	assert.NoError(t, BotHasPermissions(
		discordgo.PermissionBanMembers,
	)(dmContext(t, bot, "1")))
}

func TestIsGuildOwner(t *testing.T) {
	bot := newTestBot(t)
	setupGuildState(t, bot)

	assert.NoError(t, IsGuildOwner()(guildContext(t, bot, testOwnerID)))

	var failed *CheckFailedError
	require.ErrorAs(t, IsGuildOwner()(guildContext(t, bot, "1")), &failed)
}

func TestMembershipChecks(t *testing.T) {
	bot := newTestBot(t)
	setupGuildState(t, bot)

	assert.NoError(t, InGuilds(testGuildID)(guildContext(t, bot, "1")))
	assert.Error(t, InGuilds("another")(guildContext(t, bot, "1")))

	assert.NoError(t, InChannels(testChannelID)(guildContext(t, bot, "1")))
	assert.Error(t, InChannels("another")(guildContext(t, bot, "1")))

	assert.NoError(t, IsUsers("1")(guildContext(t, bot, "1")))
	assert.Error(t, IsUsers("2")(guildContext(t, bot, "1")))

	// Owners bypass all three.
	bot.setOwnerIDs([]string{"1"})
	assert.NoError(t, InGuilds("another")(guildContext(t, bot, "1")))
	assert.NoError(t, InChannels("another")(guildContext(t, bot, "1")))
	assert.NoError(t, IsUsers("2")(guildContext(t, bot, "1")))
}

func TestMissingBits(t *testing.T) {
	var have int64 = discordgo.PermissionSendMessages | discordgo.PermissionEmbedLinks

	assert.Nil(t, missingBits(have, []int64{discordgo.PermissionSendMessages}))
	assert.Equal(
		t,
		[]string{"ban_members"},
		missingBits(have, []int64{discordgo.PermissionBanMembers}),
	)

	// Administrator implies everything.
	assert.Nil(t, missingBits(
		discordgo.PermissionAdministrator,
		[]int64{discordgo.PermissionBanMembers},
	))
}

func TestPermissionEntries(t *testing.T) {
	entries := PermissionEntries()
	require.Len(t, entries, len(permissionBits))

	assert.Equal(t, "Create Instant Invite", entries[0].Name)
	assert.Equal(t, int64(discordgo.PermissionCreateInstantInvite), entries[0].Bit)

	names := make(map[string]bool, len(entries))
	for _, entry := range entries {
		names[entry.Name] = true
	}
	assert.True(t, names["Manage Server"])
	assert.True(t, names["Ban Members"])
}

func TestCanStartMenuInDM(t *testing.T) {
	bot := newTestBot(t)
	assert.NoError(t, CanStartMenu()(dmContext(t, bot, "1")))
}
