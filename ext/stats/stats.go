// Package stats provides commands reporting on the bot's own
// activity: command usage from the database and gateway session
// counters.
package stats

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/olekukonko/tablewriter"

	"github.com/HitchedSyringe/Sleepy/sleepy"
)

const embedColour = 0x2F3136

// Cog bundles the statistics commands.
type Cog struct {
	bot *sleepy.Bot
}

// New constructs the extension.
func New(bot *sleepy.Bot) (sleepy.Extension, error) {
	return &Cog{bot: bot}, nil
}

func (c *Cog) Name() string { return "Stats" }

func (c *Cog) Commands() []*sleepy.Command {
	return []*sleepy.Command{
		{
			Name:        "about",
			Aliases:     []string{"info", "botinfo"},
			Description: "Shows information about me.",
			Checks:      []sleepy.CheckFunc{sleepy.BotHasPermissions(discordgo.PermissionEmbedLinks)},
			Run:         c.about,
		},
		{
			Name:        "commandstats",
			Aliases:     []string{"cs"},
			Description: "Shows command usage data.",
			Usage:       "[limit]",
			Checks:      []sleepy.CheckFunc{sleepy.CanStartMenu()},
			Cooldown:    &sleepy.Cooldown{Rate: 1, Per: 10 * time.Second},
			Run:         c.commandStats,
		},
		{
			Name:        "gatewaystats",
			Aliases:     []string{"gws"},
			Description: "Shows gateway connects/resumes for the current session.",
			Hidden:      true,
			Checks:      []sleepy.CheckFunc{sleepy.IsOwner()},
			Run:         c.gatewayStats,
		},
	}
}

func (c *Cog) about(ctx *sleepy.Context) error {
	var memory runtime.MemStats
	runtime.ReadMemStats(&memory)

	var guilds, members int
	if state := ctx.Session.State; state != nil {
		guilds = len(state.Guilds)
		for _, guild := range state.Guilds {
			members += guild.MemberCount
		}
	}

	owners := make([]string, 0, len(c.bot.OwnerIDs()))
	for _, id := range c.bot.OwnerIDs() {
		owners = append(owners, fmt.Sprintf("<@%s>", id))
	}

	var totalUses int64
	if usage, err := c.bot.CommandUsage(0); err == nil {
		for _, u := range usage {
			totalUses += u.Uses
		}
	}

	embed := &discordgo.MessageEmbed{
		Description: c.bot.Config().Description,
		Color:       embedColour,
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Check out my source code using the source command!",
		},
		Fields: []*discordgo.MessageEmbedField{
			{
				Name: "About Me",
				Value: fmt.Sprintf(
					"**Owner:** %s"+
						"\n**Booted:** %s"+
						"\n**Servers:** %s"+
						"\n**Members:** %s",
					sleepy.HumanJoin(owners, "and"),
					sleepy.HumanTimestamp(c.bot.StartedAt(), "R"),
					sleepy.HumanNumber(float64(guilds), 3),
					sleepy.HumanNumber(float64(members), 3),
				),
				Inline: true,
			},
			{
				Name: "Technical Information",
				Value: fmt.Sprintf(
					"**Version:** %s"+
						"\n**Runtime:** %s"+
						"\n**Memory Usage:** %.2f MiB"+
						"\n**Goroutines:** %d"+
						"\n**Commands:** %d (%s used)"+
						"\n**Extensions:** %d",
					sleepy.Version,
					runtime.Version(),
					float64(memory.HeapAlloc)/(1024*1024),
					runtime.NumGoroutine(),
					len(ctx.Bot.Router().Commands()),
					sleepy.HumanNumber(float64(totalUses), 3),
					len(c.bot.Extensions().Loaded()),
				),
				Inline: true,
			},
		},
	}

	if userID := c.bot.UserID(); userID != "" {
		if user, err := ctx.Session.User(userID); err == nil {
			embed.Author = &discordgo.MessageEmbedAuthor{Name: user.String()}
			embed.Thumbnail = &discordgo.MessageEmbedThumbnail{
				URL: user.AvatarURL("256"),
			}
		}
	}

	_, err := ctx.SendEmbed(embed)
	return err
}

func (c *Cog) commandStats(ctx *sleepy.Context) error {
	limit := 0
	if len(ctx.Args) > 0 {
		parsed, err := strconv.Atoi(ctx.Args[0])
		if err != nil || parsed < 0 {
			return &sleepy.BadArgumentError{Message: "Limit must be a positive number."}
		}
		limit = parsed
	}

	usage, err := c.bot.CommandUsage(limit)
	if err != nil {
		return err
	}
	if len(usage) == 0 {
		_, err = ctx.Send("No command usage data yet. Try again later.")
		return err
	}

	var total int64
	for _, u := range usage {
		total += u.Uses
	}

	elapsed := time.Since(c.bot.StartedAt())
	rate := float64(total) * 60 / elapsed.Seconds()

	var table strings.Builder
	writer := tablewriter.NewWriter(&table)
	writer.SetHeader([]string{"Command", "Uses"})
	for _, u := range usage {
		writer.Append([]string{u.Command, strconv.FormatInt(u.Uses, 10)})
	}
	writer.Render()

	paginator := sleepy.NewPaginator()
	paginator.MaxSize = 1000
	if err = paginator.AddLine(fmt.Sprintf(
		"%d total commands used. (%.2f/min)", total, rate,
	)); err != nil {
		return err
	}
	if err = paginator.AddLine(""); err != nil {
		return err
	}
	for _, line := range strings.Split(strings.TrimRight(table.String(), "\n"), "\n") {
		if err = paginator.AddLine(line); err != nil {
			return err
		}
	}

	return ctx.PaginateText(paginator)
}

func (c *Cog) gatewayStats(ctx *sleepy.Context) error {
	connects, disconnects, resumes := c.bot.GatewayStats()

	_, err := ctx.Sendf(
		"%s total gateway events observed.```py"+
			"\nCONNECT    | %d"+
			"\nDISCONNECT | %d"+
			"\nRESUME     | %d```",
		sleepy.HumanNumber(float64(connects+disconnects+resumes), 3),
		connects,
		disconnects,
		resumes,
	)
	return err
}
