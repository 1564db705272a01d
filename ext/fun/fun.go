// Package fun provides lighthearted chat commands.
package fun

import (
	"hash/fnv"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/HitchedSyringe/Sleepy/sleepy"
)

var ballResponses = []string{
	"+ It is certain.",
	"+ It is decidedly so.",
	"+ Without a doubt.",
	"+ Yes definitely.",
	"+ You may rely on it.",
	"+ As I see it, yes.",
	"+ Most likely.",
	"+ Outlook good.",
	"+ Yes.",
	"+ Signs point to yes.",
	"Reply hazy try again.",
	"Ask again later.",
	"Better not tell you now.",
	"Cannot predict now.",
	"Concentrate and ask again.",
	"- Don't count on it.",
	"- My reply is no.",
	"- My sources say no.",
	"- Outlook not so good.",
	"- Very doubtful.",
}

// Cog bundles the fun commands.
type Cog struct {
	bot *sleepy.Bot
	rng *rand.Rand
}

// New constructs the extension.
func New(bot *sleepy.Bot) (sleepy.Extension, error) {
	return &Cog{
		bot: bot,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

func (c *Cog) Name() string { return "Fun" }

func (c *Cog) Commands() []*sleepy.Command {
	return []*sleepy.Command{
		{
			Name:        "8ball",
			Description: "Asks the magic 8 ball a question.",
			Usage:       "<question...>",
			Run:         c.eightBall,
		},
		{
			Name:        "choose",
			Description: "Chooses between the given choices.",
			Usage:       "<choices...>",
			Run:         c.choose,
		},
		{
			Name:        "coinflip",
			Aliases:     []string{"flipcoin"},
			Description: "Flips a coin.",
			Run:         c.coinflip,
		},
		{
			Name:        "roll",
			Aliases:     []string{"rolldice"},
			Description: "Rolls dice in NdN format, e.g. 2d20.",
			Usage:       "[dice]",
			Run:         c.roll,
		},
		{
			Name:        "clap",
			Description: "\U0001F44F",
			Usage:       "<text...>",
			Run:         c.clap,
		},
		{
			Name:        "rate",
			Description: "Rates a user out of 10. 100% accurate or your money back.",
			Usage:       "[user]",
			Checks:      []sleepy.CheckFunc{sleepy.GuildOnly()},
			Run:         c.rate,
		},
		{
			Name:        "rockpaperscissors",
			Aliases:     []string{"rps"},
			Description: "Play a game of rock paper scissors against yours truly.",
			Usage:       "<choice>",
			Run:         c.rockPaperScissors,
		},
	}
}

func (c *Cog) eightBall(ctx *sleepy.Context) error {
	answer := ballResponses[c.rng.Intn(len(ballResponses))]
	_, err := ctx.Sendf("%s\n```diff\n%s```", ctx.RawArgs, answer)
	return err
}

func (c *Cog) choose(ctx *sleepy.Context) error {
	if len(ctx.Args) < 2 {
		_, err := ctx.Send("You must give me at least 2 options to choose from.")
		return err
	}

	choice := ctx.Args[c.rng.Intn(len(ctx.Args))]
	if len(choice) >= 1990 {
		_, err := ctx.Send("The option I chose was too long to post.")
		return err
	}
	_, err := ctx.Sendf("I choose %s!", choice)
	return err
}

func (c *Cog) coinflip(ctx *sleepy.Context) error {
	flip := "Heads"
	if c.rng.Float64() < 0.5 {
		flip = "Tails"
	}
	_, err := ctx.Sendf("You flipped **%s**!", flip)
	return err
}

func (c *Cog) roll(ctx *sleepy.Context) error {
	spec := "1d6"
	if len(ctx.Args) > 0 {
		spec = strings.ToLower(ctx.Args[0])
	}

	countRaw, sidesRaw, ok := strings.Cut(spec, "d")
	if !ok {
		return &sleepy.BadArgumentError{
			Message: "Dice must be given in NdN format, e.g. `2d20`.",
		}
	}
	count, err := strconv.Atoi(countRaw)
	if err != nil || count < 1 || count > 100 {
		return &sleepy.BadArgumentError{
			Message: "I can only roll between 1 and 100 dice.",
		}
	}
	sides, err := strconv.Atoi(sidesRaw)
	if err != nil || sides < 2 || sides > 1000 {
		return &sleepy.BadArgumentError{
			Message: "Dice must have between 2 and 1000 sides.",
		}
	}

	rolls := make([]string, count)
	total := 0
	for i := range rolls {
		roll := c.rng.Intn(sides) + 1
		total += roll
		rolls[i] = strconv.Itoa(roll)
	}

	if count == 1 {
		_, err = ctx.Sendf("You rolled a **%s**!", rolls[0])
		return err
	}
	_, err = ctx.Sendf(
		"You rolled %s for a total of **%d**!",
		sleepy.HumanJoin(rolls, "and"),
		total,
	)
	return err
}

func (c *Cog) clap(ctx *sleepy.Context) error {
	const clapEmoji = "\U0001F44F"
	clapped := clapEmoji + strings.Join(ctx.Args, clapEmoji) + clapEmoji

	if len(clapped) >= 2000 {
		_, err := ctx.Send("The result is too long to post.")
		return err
	}
	_, err := ctx.Send(clapped)
	return err
}

func (c *Cog) rate(ctx *sleepy.Context) error {
	user := ctx.Author()
	if ctx.RawArgs != "" {
		resolved, err := ctx.ResolveUser(ctx.RawArgs)
		if err != nil {
			return err
		}
		user = resolved
	}

	var rating uint64 = 10
	if !ctx.Bot.IsOwner(user.ID) && user.ID != ctx.Bot.UserID() {
		// Deterministic per user, so repeat ratings agree.
		h := fnv.New64a()
		_, _ = h.Write([]byte(user.ID))
		rating = h.Sum64() % 11
	}

	_, err := ctx.Sendf("I would give %s a **%d/10**!", user.Mention(), rating)
	return err
}

func (c *Cog) rockPaperScissors(ctx *sleepy.Context) error {
	items := []string{"rock", "paper", "scissors"}
	choice := strings.ToLower(ctx.Args[0])

	pick := -1
	for i, item := range items {
		if item == choice {
			pick = i
		}
	}
	if pick < 0 {
		_, err := ctx.Send(
			"Choice must be either `rock`, `paper`, or `scissors`.",
		)
		return err
	}

	botPick := c.rng.Intn(len(items))
	var outcome string
	switch (pick - botPick + 3) % 3 {
	case 0:
		outcome = "We tied!"
	case 1:
		outcome = "You win!"
	default:
		outcome = "I win!"
	}

	_, err := ctx.Sendf("I chose **%s**. %s", items[botPick], outcome)
	return err
}
