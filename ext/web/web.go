// Package web provides commands backed by third-party web APIs.
// These lean on the bot's requester, caching responses where the
// upstream data is stable.
package web

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/HitchedSyringe/Sleepy/sleepy"
)

// Cog bundles the web API commands.
type Cog struct {
	bot *sleepy.Bot
}

// New constructs the extension.
func New(bot *sleepy.Bot) (sleepy.Extension, error) {
	return &Cog{bot: bot}, nil
}

func (c *Cog) Name() string { return "Web" }

func (c *Cog) Commands() []*sleepy.Command {
	return []*sleepy.Command{
		{
			Name:        "advice",
			Description: "Gives some advice.",
			Cooldown:    &sleepy.Cooldown{Rate: 1, Per: 5 * time.Second},
			Run:         c.advice,
		},
		{
			Name:        "dadjoke",
			Description: "Tells a dad joke.",
			Cooldown:    &sleepy.Cooldown{Rate: 1, Per: 5 * time.Second},
			Run:         c.dadjoke,
		},
		{
			Name:        "chucknorris",
			Description: "Tells a Chuck Norris joke/fact.",
			Cooldown:    &sleepy.Cooldown{Rate: 1, Per: 5 * time.Second},
			Run:         c.chucknorris,
		},
		{
			Name:        "xkcd",
			Description: "Shows a comic from xkcd. Defaults to the latest comic.",
			Usage:       "[number]",
			Checks:      []sleepy.CheckFunc{sleepy.BotHasPermissions(discordgo.PermissionEmbedLinks)},
			Cooldown:    &sleepy.Cooldown{Rate: 1, Per: 5 * time.Second},
			Run:         c.xkcd,
		},
		{
			Name:        "urbandict",
			Aliases:     []string{"urban", "urbanup"},
			Description: "Searches for a term on Urban Dictionary.",
			Usage:       "<term...>",
			Checks:      []sleepy.CheckFunc{sleepy.CanStartMenu()},
			Cooldown:    &sleepy.Cooldown{Rate: 1, Per: 5 * time.Second},
			Run:         c.urbanDict,
		},
	}
}

func (c *Cog) advice(ctx *sleepy.Context) error {
	var data struct {
		Slip struct {
			Advice string `json:"advice"`
		} `json:"slip"`
	}
	if err := ctx.GetJSON("https://api.adviceslip.com/advice", &data); err != nil {
		return err
	}

	_, err := ctx.Sendf("%s\n`Powered by adviceslip.com`", data.Slip.Advice)
	return err
}

func (c *Cog) dadjoke(ctx *sleepy.Context) error {
	var data struct {
		Joke string `json:"joke"`
	}
	err := ctx.GetJSON(
		"https://icanhazdadjoke.com/",
		&data,
		sleepy.WithHeader("Accept", "application/json"),
	)
	if err != nil {
		return err
	}

	_, err = ctx.Sendf("%s\n`Powered by icanhazdadjoke.com`", data.Joke)
	return err
}

func (c *Cog) chucknorris(ctx *sleepy.Context) error {
	var data struct {
		Value string `json:"value"`
	}
	err := ctx.GetJSON("https://api.chucknorris.io/jokes/random", &data)
	if err != nil {
		return err
	}

	_, err = ctx.Sendf("%s\n`Powered by chucknorris.io`", data.Value)
	return err
}

type xkcdComic struct {
	Num   int    `json:"num"`
	Title string `json:"title"`
	Alt   string `json:"alt"`
	Img   string `json:"img"`
	Year  string `json:"year"`
	Month string `json:"month"`
	Day   string `json:"day"`
}

func (c *Cog) xkcd(ctx *sleepy.Context) error {
	comicURL := "https://xkcd.com/info.0.json"
	if len(ctx.Args) > 0 {
		number, err := strconv.Atoi(ctx.Args[0])
		if err != nil {
			return &sleepy.BadArgumentError{Message: "Comic number must be a number."}
		}
		if number == 404 {
			_, err = ctx.Send("Nice try, but I won't be searching for that comic.")
			return err
		}
		comicURL = fmt.Sprintf("https://xkcd.com/%d/info.0.json", number)
	}

	var comic xkcdComic
	if err := ctx.GetJSON(comicURL, &comic, sleepy.WithCache()); err != nil {
		var requestErr *sleepy.RequestFailedError
		if errors.As(err, &requestErr) && requestErr.Status == 404 {
			_, sendErr := ctx.Send("Invalid comic number.")
			return sendErr
		}
		return err
	}

	embed := &discordgo.MessageEmbed{
		Title:       comic.Title,
		Description: comic.Alt,
		URL:         fmt.Sprintf("https://xkcd.com/%d", comic.Num),
		Color:       0x708090,
		Author:      &discordgo.MessageEmbedAuthor{Name: fmt.Sprintf("#%d", comic.Num)},
		Image:       &discordgo.MessageEmbedImage{URL: comic.Img},
		Footer:      &discordgo.MessageEmbedFooter{Text: "Powered by xkcd.com"},
	}
	if ts, err := time.Parse(
		"2006-1-2", fmt.Sprintf("%s-%s-%s", comic.Year, comic.Month, comic.Day),
	); err == nil {
		embed.Timestamp = ts.UTC().Format(time.RFC3339)
	}

	_, err := ctx.SendEmbed(embed)
	return err
}

type urbanEntry struct {
	Word       string `json:"word"`
	Definition string `json:"definition"`
	Example    string `json:"example"`
	Author     string `json:"author"`
	Permalink  string `json:"permalink"`
	ThumbsUp   int    `json:"thumbs_up"`
	ThumbsDown int    `json:"thumbs_down"`
	WrittenOn  string `json:"written_on"`
}

var urbanBracketed = regexp.MustCompile(`\[.+?\]`)

// applyHyperlinks rewrites Urban Dictionary's [bracketed] references
// into markdown links to urbanup.com.
func applyHyperlinks(s string) string {
	return urbanBracketed.ReplaceAllStringFunc(
		s, func(m string) string {
			word := strings.Trim(m, "[]")
			return fmt.Sprintf(
				"[%s](http://%s.urbanup.com)",
				word,
				strings.ReplaceAll(word, " ", "-"),
			)
		},
	)
}

func (c *Cog) urbanDict(ctx *sleepy.Context) error {
	term := strings.ToLower(ctx.RawArgs)

	var data struct {
		List []urbanEntry `json:"list"`
	}
	err := ctx.GetJSON(
		"https://api.urbandictionary.com/v0/define",
		&data,
		sleepy.WithCache(),
		sleepy.WithParams(url.Values{"term": {term}}),
	)
	if err != nil {
		return err
	}

	if len(data.List) == 0 {
		_, err = ctx.Send("That term isn't on Urban Dictionary.")
		return err
	}

	embeds := make([]*discordgo.MessageEmbed, 0, len(data.List))
	for _, entry := range data.List {
		embed := &discordgo.MessageEmbed{
			Description: sleepy.Truncate(applyHyperlinks(entry.Definition), 2000),
			Color:       0x1D2439,
			Author: &discordgo.MessageEmbedAuthor{
				Name: entry.Word,
				URL:  entry.Permalink,
			},
			Footer: &discordgo.MessageEmbedFooter{
				Text: fmt.Sprintf(
					"Written by: %s • Powered by Urban Dictionary",
					entry.Author,
				),
			},
		}
		if entry.Example != "" {
			embed.Fields = append(
				embed.Fields, &discordgo.MessageEmbedField{
					Name:  "Example",
					Value: sleepy.Truncate(applyHyperlinks(entry.Example), 1000),
				},
			)
		}
		embed.Fields = append(
			embed.Fields,
			&discordgo.MessageEmbedField{
				Name:   ":thumbsup:",
				Value:  strconv.Itoa(entry.ThumbsUp),
				Inline: true,
			},
			&discordgo.MessageEmbedField{
				Name:   ":thumbsdown:",
				Value:  strconv.Itoa(entry.ThumbsDown),
				Inline: true,
			},
		)
		embeds = append(embeds, embed)
	}

	return ctx.PaginateEmbeds(embeds...)
}
