// Package meta provides commands about the bot itself and the place
// it is running in.
package meta

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/hako/durafmt"

	"github.com/HitchedSyringe/Sleepy/sleepy"
)

const embedColour = 0x2F3136

// invitePermissions is the permission set requested in the OAuth2
// invite link. Covers everything the stock commands need.
const invitePermissions = discordgo.PermissionViewChannel |
	discordgo.PermissionSendMessages |
	discordgo.PermissionEmbedLinks |
	discordgo.PermissionAttachFiles |
	discordgo.PermissionAddReactions |
	discordgo.PermissionUseExternalEmojis |
	discordgo.PermissionReadMessageHistory |
	discordgo.PermissionManageMessages |
	discordgo.PermissionKickMembers |
	discordgo.PermissionBanMembers

// Cog bundles the meta commands.
type Cog struct {
	bot *sleepy.Bot
}

// New constructs the extension.
func New(bot *sleepy.Bot) (sleepy.Extension, error) {
	return &Cog{bot: bot}, nil
}

func (c *Cog) Name() string { return "Meta" }

func (c *Cog) Commands() []*sleepy.Command {
	return []*sleepy.Command{
		{
			Name:        "help",
			Aliases:     []string{"commands"},
			Description: "Shows help for me or a specific command.",
			Usage:       "[command]",
			Checks:      []sleepy.CheckFunc{sleepy.CanStartMenu()},
			Run:         c.help,
		},
		{
			Name:        "hello",
			Aliases:     []string{"hi"},
			Description: "Shows my brief introduction.",
			Run:         c.hello,
		},
		{
			Name:        "ping",
			Description: "Pong!",
			Run:         c.ping,
		},
		{
			Name:        "uptime",
			Description: "Shows my uptime, including the time I was booted.",
			Run:         c.uptime,
		},
		{
			Name:        "invite",
			Description: "Gives you the invite link to join me to your server.",
			Run:         c.invite,
		},
		{
			Name:        "avatar",
			Description: "Shows an enlarged version of a user's avatar.",
			Usage:       "[user]",
			Checks:      []sleepy.CheckFunc{sleepy.BotHasPermissions(discordgo.PermissionEmbedLinks)},
			Run:         c.avatar,
		},
		{
			Name:        "permissions",
			Aliases:     []string{"perms"},
			Description: "Shows a user's permissions in the current channel.",
			Usage:       "[user]",
			Checks: []sleepy.CheckFunc{
				sleepy.GuildOnly(),
				sleepy.BotHasPermissions(discordgo.PermissionEmbedLinks),
			},
			Run: c.permissions,
		},
		{
			Name:        "prefixes",
			Description: "Shows my command prefixes.",
			Run:         c.prefixes,
		},
		{
			Name:        "serverinfo",
			Aliases:     []string{"guildinfo", "gi", "si"},
			Description: "Shows information about the server.",
			Checks: []sleepy.CheckFunc{
				sleepy.GuildOnly(),
				sleepy.BotHasPermissions(discordgo.PermissionEmbedLinks),
			},
			Run: c.serverInfo,
		},
		{
			Name:        "userinfo",
			Aliases:     []string{"memberinfo", "ui", "mi"},
			Description: "Shows information about a user.",
			Usage:       "[user]",
			Checks:      []sleepy.CheckFunc{sleepy.BotHasPermissions(discordgo.PermissionEmbedLinks)},
			Run:         c.userInfo,
		},
		{
			Name:        "source",
			Aliases:     []string{"src"},
			Description: "Sends a link to my full source code or for a specific command.",
			Usage:       "[command]",
			Run:         c.source,
		},
	}
}

func (c *Cog) help(ctx *sleepy.Context) error {
	if len(ctx.Args) > 0 {
		return c.commandHelp(ctx, strings.ToLower(ctx.Args[0]))
	}

	grouped := make(map[string][]*sleepy.Command)
	for _, cmd := range ctx.Bot.Router().Commands() {
		if cmd.Hidden {
			continue
		}
		ext := cmd.Extension
		if ext == "" {
			ext = "Miscellaneous"
		}
		grouped[ext] = append(grouped[ext], cmd)
	}

	exts := make([]string, 0, len(grouped))
	for ext := range grouped {
		exts = append(exts, ext)
	}
	sort.Strings(exts)

	embeds := make([]*discordgo.MessageEmbed, 0, len(exts))
	for _, ext := range exts {
		cmds := grouped[ext]
		sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })

		var sb strings.Builder
		for _, cmd := range cmds {
			signature := strings.TrimSpace(cmd.Name + " " + cmd.Usage)
			fmt.Fprintf(&sb, "`%s` - %s\n", signature, cmd.Description)
		}

		embeds = append(embeds, &discordgo.MessageEmbed{
			Title:       ext,
			Description: c.bot.Config().Description,
			Color:       embedColour,
			Fields: []*discordgo.MessageEmbedField{
				{
					Name:  fmt.Sprintf("Commands • %d", len(cmds)),
					Value: sleepy.Truncate(sb.String(), 1024),
				},
			},
		})
	}

	return ctx.PaginateEmbeds(embeds...)
}

func (c *Cog) commandHelp(ctx *sleepy.Context, name string) error {
	cmd, ok := ctx.Bot.Router().GetCommand(name)
	if !ok {
		_, err := ctx.Sendf("No command called %q found.", name)
		return err
	}

	embed := &discordgo.MessageEmbed{
		Title:       strings.TrimSpace(cmd.Name + " " + cmd.Usage),
		Description: cmd.Description,
		Color:       embedColour,
	}
	if len(cmd.Aliases) > 0 {
		embed.Footer = &discordgo.MessageEmbedFooter{
			Text: "Aliases: " + strings.Join(cmd.Aliases, ", "),
		}
	}

	_, err := ctx.SendEmbed(embed)
	return err
}

func (c *Cog) hello(ctx *sleepy.Context) error {
	_, err := ctx.Send("Hello! \U0001F44B I am a bot made by HitchedSyringe#0598.")
	return err
}

func (c *Cog) ping(ctx *sleepy.Context) error {
	processing := time.Duration(0)
	if ref, err := discordgo.SnowflakeTimestamp(ctx.Message.ID); err == nil {
		processing = time.Since(ref).Abs()
	}

	_, err := ctx.Sendf(
		"\U0001F3D3 **Pong!**```ldif"+
			"\nDiscord API Latency: %.2f ms"+
			"\nCommand processing time: %.2f ms```",
		float64(ctx.Bot.Latency().Microseconds())/1000,
		float64(processing.Microseconds())/1000,
	)
	return err
}

func (c *Cog) uptime(ctx *sleepy.Context) error {
	startedAt := c.bot.StartedAt()
	online := durafmt.Parse(time.Since(startedAt).Truncate(time.Second))

	_, err := ctx.Sendf(
		"I was booted on %s and have been online for `%s`.",
		sleepy.HumanTimestamp(startedAt, "F"),
		online,
	)
	return err
}

func (c *Cog) invite(ctx *sleepy.Context) error {
	applicationID := c.bot.Config().Discord.ApplicationID
	if applicationID == "" {
		applicationID = c.bot.UserID()
	}

	_, err := ctx.Sendf(
		"<https://discord.com/oauth2/authorize?client_id=%s&scope=bot&permissions=%d>",
		applicationID,
		invitePermissions,
	)
	return err
}

func (c *Cog) avatar(ctx *sleepy.Context) error {
	user := ctx.Author()
	if len(ctx.Args) > 0 {
		var err error
		if user, err = ctx.ResolveUser(ctx.RawArgs); err != nil {
			return err
		}
	}

	url := user.AvatarURL("1024")

	_, err := ctx.SendEmbed(&discordgo.MessageEmbed{
		Description: fmt.Sprintf("**[Avatar Link](%s)**", url),
		Color:       embedColour,
		Author:      &discordgo.MessageEmbedAuthor{Name: user.String()},
		Image:       &discordgo.MessageEmbedImage{URL: url},
	})
	return err
}

func (c *Cog) permissions(ctx *sleepy.Context) error {
	user := ctx.Author()
	if len(ctx.Args) > 0 {
		var err error
		if user, err = ctx.ResolveUser(ctx.RawArgs); err != nil {
			return err
		}
	}

	perms, err := ctx.Session.State.UserChannelPermissions(
		user.ID, ctx.Message.ChannelID,
	)
	if err != nil {
		return err
	}

	lines := make([]string, 0, len(sleepy.PermissionEntries()))
	for _, entry := range sleepy.PermissionEntries() {
		has := perms&entry.Bit == entry.Bit
		lines = append(
			lines, fmt.Sprintf("%s %s", sleepy.BoolToEmoji(&has), entry.Name),
		)
	}

	// Ceiling division so the first column is the longer one.
	half := (len(lines) + 1) / 2

	_, err = ctx.SendEmbed(&discordgo.MessageEmbed{
		Description: fmt.Sprintf(
			"Showing permissions in <#%s>.", ctx.Message.ChannelID,
		),
		Color: embedColour,
		Author: &discordgo.MessageEmbedAuthor{
			Name:    fmt.Sprintf("%s (ID: %s)", user.String(), user.ID),
			IconURL: user.AvatarURL(""),
		},
		Fields: []*discordgo.MessageEmbedField{
			{Name: "​", Value: strings.Join(lines[:half], "\n"), Inline: true},
			{Name: "​", Value: strings.Join(lines[half:], "\n"), Inline: true},
		},
	})
	return err
}

func (c *Cog) prefixes(ctx *sleepy.Context) error {
	prefixes := ctx.Bot.Router().Prefixes()

	var sb strings.Builder
	sb.WriteString("**Prefixes**\n>>> ")
	n := 1
	if c.bot.Config().Mentionable && c.bot.UserID() != "" {
		fmt.Fprintf(&sb, "%d. <@%s>\n", n, c.bot.UserID())
		n++
	}
	for _, prefix := range prefixes {
		fmt.Fprintf(&sb, "%d. %s\n", n, prefix)
		n++
	}

	_, err := ctx.Send(sb.String())
	return err
}

func (c *Cog) serverInfo(ctx *sleepy.Context) error {
	guild, err := ctx.Guild()
	if err != nil {
		return err
	}

	createdAt, _ := discordgo.SnowflakeTimestamp(guild.ID)

	var categories, text, voice int
	for _, channel := range guild.Channels {
		switch channel.Type {
		case discordgo.ChannelTypeGuildCategory:
			categories++
		case discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews:
			text++
		case discordgo.ChannelTypeGuildVoice, discordgo.ChannelTypeGuildStageVoice:
			voice++
		}
	}

	var animated int
	for _, emoji := range guild.Emojis {
		if emoji.Animated {
			animated++
		}
	}

	embed := &discordgo.MessageEmbed{
		Description: guild.Description,
		Color:       embedColour,
		Author:      &discordgo.MessageEmbedAuthor{Name: guild.Name},
		Fields: []*discordgo.MessageEmbedField{
			{
				Name: "ℹ️ Information",
				Value: fmt.Sprintf(
					"`ID:` %s"+
						"\n`Owner:` <@%s>"+
						"\n`Created:` %s"+
						"\n`Locale:` %s"+
						"\n`Vanity URL:` %s"+
						"\n`Security Level:` %s"+
						"\n`MFA Level:` %s"+
						"\n`NSFW Filter:` %s"+
						"\n`Max Members:` %s",
					guild.ID,
					guild.OwnerID,
					sleepy.HumanTimestamp(createdAt, "R"),
					guild.PreferredLocale,
					orNA(guild.VanityURLCode),
					verificationLevelName(guild.VerificationLevel),
					mfaLevelName(guild.MfaLevel),
					contentFilterName(guild.ExplicitContentFilter),
					sleepy.HumanNumber(float64(guild.MaxMembers), 3),
				),
				Inline: true,
			},
			{
				Name: "\U0001F4CA Statistics",
				Value: fmt.Sprintf(
					"`Members:` %d"+
						"\n`Channels:` %d"+
						"\n\U0001F5C2 %d • \U0001F4AC %d • \U0001F50A %d"+
						"\n`Roles:` %d"+
						"\n`Emojis:` %d"+
						"\n┝`Regular:` %d"+
						"\n╰`Animated:` %d"+
						"\n`Boosts:` %d ‒ Tier %d",
					guild.MemberCount,
					len(guild.Channels),
					categories, text, voice,
					len(guild.Roles),
					len(guild.Emojis),
					len(guild.Emojis)-animated,
					animated,
					guild.PremiumSubscriptionCount,
					guild.PremiumTier,
				),
				Inline: true,
			},
		},
	}

	if guild.Icon != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{
			URL: guild.IconURL("256"),
		}
	}
	if guild.Banner != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: guild.BannerURL("1024")}
	}

	if len(guild.Features) > 0 {
		features := make([]string, 0, len(guild.Features))
		for _, feature := range guild.Features {
			features = append(features, featureName(string(feature)))
		}
		sort.Strings(features)

		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("✨ Features • %d", len(features)),
			Value: fmt.Sprintf("```\n%s\n```", strings.Join(features, ", ")),
		})
	}

	_, err = ctx.SendEmbed(embed)
	return err
}

func (c *Cog) userInfo(ctx *sleepy.Context) error {
	user := ctx.Author()
	if len(ctx.Args) > 0 {
		var err error
		if user, err = ctx.ResolveUser(ctx.RawArgs); err != nil {
			return err
		}
	}

	createdAt, _ := discordgo.SnowflakeTimestamp(user.ID)
	isBot := user.Bot
	isSystem := user.System

	embed := &discordgo.MessageEmbed{
		Color:  embedColour,
		Author: &discordgo.MessageEmbedAuthor{Name: user.String()},
		Thumbnail: &discordgo.MessageEmbedThumbnail{
			URL: user.AvatarURL("256"),
		},
		Fields: []*discordgo.MessageEmbedField{
			{
				Name: "ℹ️ General Information",
				Value: fmt.Sprintf(
					"`Mention:` %s"+
						"\n`ID:` %s"+
						"\n`Created:` %s"+
						"\n`Is Bot User:` %s"+
						"\n`Is System User:` %s",
					user.Mention(),
					user.ID,
					sleepy.HumanTimestamp(createdAt, "R"),
					sleepy.BoolToEmoji(&isBot),
					sleepy.BoolToEmoji(&isSystem),
				),
			},
		},
	}

	member, _ := ctx.ResolveMember(user.ID)
	if member == nil {
		embed.Footer = &discordgo.MessageEmbedFooter{
			Text: "This user is not a member of this server.",
		}
	} else {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "\U0001F464 Member Information",
			Value: fmt.Sprintf(
				"`Nickname:` %s"+
					"\n`Joined:` %s"+
					"\n`Boosted:` %s",
				orNA(member.Nick),
				sleepy.HumanTimestamp(member.JoinedAt, "R"),
				premiumSince(member),
			),
		})

		if len(member.Roles) > 0 {
			shown := make([]string, 0, 15)
			for _, roleID := range member.Roles[:min(len(member.Roles), 15)] {
				shown = append(shown, fmt.Sprintf("<@&%s>", roleID))
			}
			value := strings.Join(shown, ", ")
			if extra := len(member.Roles) - 15; extra > 0 {
				value += fmt.Sprintf(" (+%d more)", extra)
			}

			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
				Name:  fmt.Sprintf("Roles • %d", len(member.Roles)),
				Value: value,
			})
		}
	}

	_, err := ctx.SendEmbed(embed)
	return err
}

func (c *Cog) source(ctx *sleepy.Context) error {
	if len(ctx.Args) == 0 {
		_, err := ctx.Sendf("<%s>", sleepy.GitHubURL)
		return err
	}

	cmd, ok := ctx.Bot.Router().GetCommand(strings.ToLower(ctx.Args[0]))
	if !ok {
		_, err := ctx.Send("That command wasn't found.")
		return err
	}

	location := "sleepy"
	if cmd.Extension != "" {
		location = "ext/" + strings.ToLower(cmd.Extension)
	}

	_, err := ctx.Sendf("<%s/tree/master/%s>", sleepy.GitHubURL, location)
	return err
}

func featureName(feature string) string {
	words := strings.Split(strings.ToLower(feature), "_")
	for i, word := range words {
		if word != "" {
			words[i] = strings.ToUpper(word[:1]) + word[1:]
		}
	}
	return strings.Join(words, " ")
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func premiumSince(member *discordgo.Member) string {
	if member.PremiumSince == nil {
		return "N/A"
	}
	return sleepy.HumanTimestamp(*member.PremiumSince, "R")
}

func verificationLevelName(level discordgo.VerificationLevel) string {
	switch level {
	case discordgo.VerificationLevelNone:
		return "None"
	case discordgo.VerificationLevelLow:
		return "Low"
	case discordgo.VerificationLevelMedium:
		return "Medium"
	case discordgo.VerificationLevelHigh:
		return "High"
	case discordgo.VerificationLevelVeryHigh:
		return "Highest"
	}
	return "Unknown"
}

func mfaLevelName(level discordgo.MfaLevel) string {
	if level == discordgo.MfaLevelElevated {
		return "Elevated"
	}
	return "None"
}

func contentFilterName(filter discordgo.ExplicitContentFilterLevel) string {
	switch filter {
	case discordgo.ExplicitContentFilterDisabled:
		return "Disabled"
	case discordgo.ExplicitContentFilterMembersWithoutRoles:
		return "Members Without Roles"
	case discordgo.ExplicitContentFilterAllMembers:
		return "All Members"
	}
	return "Unknown"
}
