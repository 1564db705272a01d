// Package owner provides commands restricted to the bot owners:
// extension lifecycle management, raw SQL access, and shutdown.
package owner

import (
	"fmt"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/HitchedSyringe/Sleepy/sleepy"
)

// Cog bundles the owner-only commands. Every command here is hidden
// from help and gated behind an owner check.
type Cog struct {
	bot *sleepy.Bot
}

// New constructs the extension.
func New(bot *sleepy.Bot) (sleepy.Extension, error) {
	return &Cog{bot: bot}, nil
}

func (c *Cog) Name() string { return "Owner" }

func (c *Cog) Commands() []*sleepy.Command {
	ownerOnly := []sleepy.CheckFunc{sleepy.IsOwner()}

	return []*sleepy.Command{
		{
			Name:        "load",
			Description: "Loads the given extensions.",
			Usage:       "<extensions...>",
			Hidden:      true,
			Checks:      ownerOnly,
			Run:         c.load,
		},
		{
			Name:        "unload",
			Description: "Unloads the given extensions.",
			Usage:       "<extensions...>",
			Hidden:      true,
			Checks:      ownerOnly,
			Run:         c.unload,
		},
		{
			Name:        "reload",
			Description: "Reloads the given extensions.",
			Usage:       "<extensions...>",
			Hidden:      true,
			Checks:      ownerOnly,
			Run:         c.reload,
		},
		{
			Name:        "extensions",
			Aliases:     []string{"exts"},
			Description: "Lists every registered extension and its status.",
			Hidden:      true,
			Checks:      ownerOnly,
			Run:         c.listExtensions,
		},
		{
			Name:        "say",
			Aliases:     []string{"echo"},
			Description: "Repeats a message.",
			Usage:       "<message...>",
			Hidden:      true,
			Checks:      ownerOnly,
			Run:         c.say,
		},
		{
			Name:        "sql",
			Description: "Runs a raw query against my database.",
			Usage:       "<query...>",
			Hidden:      true,
			Checks:      ownerOnly,
			Run:         c.sql,
		},
		{
			Name:        "shutdown",
			Aliases:     []string{"die"},
			Description: "Shuts me down.",
			Hidden:      true,
			Checks:      ownerOnly,
			Run:         c.shutdown,
		},
	}
}

// lifecycle applies an extension manager operation to every expanded
// name and reports per-extension results.
func (c *Cog) lifecycle(
	ctx *sleepy.Context,
	verb string,
	op func(name string) error,
) error {
	names := c.bot.Extensions().ExpandNames(ctx.Args)
	if len(names) == 0 {
		_, err := ctx.Send("No extensions matched what you gave me.")
		return err
	}

	var sb strings.Builder
	for _, name := range names {
		if err := op(name); err != nil {
			fmt.Fprintf(&sb, "❌ `%s`: %s\n", name, err)
			continue
		}
		fmt.Fprintf(&sb, "✅ %s `%s`.\n", verb, name)
	}

	_, err := ctx.Send(sleepy.Truncate(sb.String(), 2000))
	return err
}

func (c *Cog) load(ctx *sleepy.Context) error {
	return c.lifecycle(ctx, "Loaded", c.bot.Extensions().Load)
}

func (c *Cog) unload(ctx *sleepy.Context) error {
	return c.lifecycle(ctx, "Unloaded", c.bot.Extensions().Unload)
}

func (c *Cog) reload(ctx *sleepy.Context) error {
	return c.lifecycle(ctx, "Reloaded", c.bot.Extensions().Reload)
}

func (c *Cog) listExtensions(ctx *sleepy.Context) error {
	names := c.bot.Extensions().Names()
	if len(names) == 0 {
		_, err := ctx.Send("No extensions are registered.")
		return err
	}

	var sb strings.Builder
	sb.WriteString("**Extensions**\n>>> ")
	for _, name := range names {
		loaded := c.bot.Extensions().IsLoaded(name)
		fmt.Fprintf(&sb, "%s `%s`\n", sleepy.BoolToEmoji(&loaded), name)
	}

	_, err := ctx.Send(sb.String())
	return err
}

func (c *Cog) say(ctx *sleepy.Context) error {
	_, err := ctx.Send(ctx.RawArgs)
	return err
}

func (c *Cog) sql(ctx *sleepy.Context) error {
	db := c.bot.DB()
	if db == nil {
		_, err := ctx.Send("No database is configured.")
		return err
	}

	query := strings.Trim(ctx.RawArgs, "` ")

	started := time.Now()
	rows, err := db.Raw(query).Rows()
	if err != nil {
		_, sendErr := ctx.Sendf("Query failed: ```\n%s```", err)
		return sendErr
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return err
	}

	var table strings.Builder
	writer := tablewriter.NewWriter(&table)
	writer.SetHeader(columns)

	count := 0
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err = rows.Scan(pointers...); err != nil {
			return err
		}

		row := make([]string, len(values))
		for i, value := range values {
			if raw, ok := value.([]byte); ok {
				value = string(raw)
			}
			row[i] = fmt.Sprint(value)
		}
		writer.Append(row)
		count++
	}
	if err = rows.Err(); err != nil {
		return err
	}

	if count == 0 {
		_, err = ctx.Sendf("No rows returned. Took %s.", time.Since(started).Round(time.Microsecond))
		return err
	}

	writer.Render()

	paginator := sleepy.NewPaginator()
	paginator.MaxSize = 1990
	if err = paginator.AddLine(fmt.Sprintf(
		"%s returned. Took %s.",
		sleepy.Plural(count, "row", "rows"),
		time.Since(started).Round(time.Microsecond),
	)); err != nil {
		return err
	}
	for _, line := range strings.Split(strings.TrimRight(table.String(), "\n"), "\n") {
		if err = paginator.AddLine(line); err != nil {
			return err
		}
	}

	return ctx.PaginateText(paginator)
}

func (c *Cog) shutdown(ctx *sleepy.Context) error {
	confirmed, err := ctx.Prompt("Are you sure you want me to shut down?", 30*time.Second)
	if err != nil {
		return err
	}
	if confirmed == nil || !*confirmed {
		_, err = ctx.Send("Aborted.")
		return err
	}

	if _, err = ctx.Send("Shutting down. Goodbye! \U0001F44B"); err != nil {
		return err
	}
	c.bot.Stop()
	return nil
}
