package sleepy

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
	"golang.org/x/time/rate"
)

// Cooldown limits a command to Rate invocations per Per window, per
// user (a token bucket, as discord.py's CooldownMapping).
type Cooldown struct {
	Rate int
	Per  time.Duration
}

// Command is a prefix-invoked bot command.
//
// Fields:
//   - Name: The primary (lowercase) name used for lookup.
//   - Aliases: Alternate lookup names.
//   - Description: Shown in help output.
//   - Usage: Argument signature, e.g. "<user> [reason]". Tokens
//     wrapped in <> are required; [] optional. Required tokens drive
//     the missing-argument diagnostics.
//   - Checks: Predicates run before invocation, in order.
//   - Cooldown: Optional per-user rate limit.
//   - Hidden: Excluded from help listings.
//   - Run: The command body.
type Command struct {
	Name        string
	Aliases     []string
	Description string
	Usage       string
	Checks      []CheckFunc
	Cooldown    *Cooldown
	Hidden      bool
	Run         func(ctx *Context) error

	// Extension is set by the extension manager when the command is
	// installed, for help grouping.
	Extension string

	bucketMu sync.Mutex
	buckets  map[string]*rate.Limiter
}

// requiredArgs returns the required argument names parsed from Usage.
func (c *Command) requiredArgs() []string {
	var required []string
	for _, token := range strings.Fields(c.Usage) {
		if strings.HasPrefix(token, "<") {
			required = append(required, strings.Trim(token, "<>."))
		}
	}
	return required
}

// usageDiagram renders the command signature with a caret marker
// under the named parameter, matching the original help diagnostics:
//
//	kick <user> [reason]
//	     ^^^^^^
func (c *Command) usageDiagram(param string) string {
	signature := strings.TrimSpace(c.Name + " " + c.Usage)
	token := "<" + param + ">"

	start := strings.Index(signature, token)
	if start < 0 {
		token = "<" + param + "...>"
		start = strings.Index(signature, token)
	}
	if start < 0 {
		return ""
	}
	return fmt.Sprintf(
		"%s\n%s%s\n",
		signature,
		strings.Repeat(" ", start),
		strings.Repeat("^", len(token)),
	)
}

// reserveCooldown takes a token from the user's bucket, returning a
// CooldownError if none is available. The returned release function
// refunds the token and is non-nil only when a token was taken.
func (c *Command) reserveCooldown(userID string) (func(), error) {
	if c.Cooldown == nil || c.Cooldown.Rate <= 0 {
		return nil, nil
	}

	c.bucketMu.Lock()
	if c.buckets == nil {
		c.buckets = map[string]*rate.Limiter{}
	}
	bucket, ok := c.buckets[userID]
	if !ok {
		bucket = rate.NewLimiter(
			rate.Limit(float64(c.Cooldown.Rate)/c.Cooldown.Per.Seconds()),
			c.Cooldown.Rate,
		)
		c.buckets[userID] = bucket
	}
	c.bucketMu.Unlock()

	reservation := bucket.Reserve()
	if delay := reservation.Delay(); delay > 0 {
		reservation.Cancel()
		return nil, &CooldownError{RetryAfter: delay}
	}
	return reservation.Cancel, nil
}

// resetCooldown clears the user's bucket for this command.
func (c *Command) resetCooldown(userID string) {
	c.bucketMu.Lock()
	defer c.bucketMu.Unlock()
	delete(c.buckets, userID)
}

// Anti-spam control: users invoking commands at a sustained rate above
// 10 events per 12 seconds have their commands dropped.
const (
	spamControlEvents = 10
	spamControlWindow = 12 * time.Second
)

// Router dispatches prefix commands from gateway message events.
type Router struct {
	bot    *Bot
	logger *slog.Logger

	prefixes    []string
	mentionable bool

	mu       sync.RWMutex
	commands map[string]*Command

	spamMu      sync.Mutex
	spamBuckets map[string]*rate.Limiter
}

func newRouter(bot *Bot, prefixes []string, mentionable bool, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		bot:         bot,
		logger:      logger.With(loggerNameKey, "router"),
		prefixes:    prefixes,
		mentionable: mentionable,
		commands:    map[string]*Command{},
		spamBuckets: map[string]*rate.Limiter{},
	}
}

// AddCommand registers a command and its aliases. Name collisions are
// an error.
func (r *Router) AddCommand(cmd *Command) error {
	if cmd == nil || cmd.Name == "" {
		return errors.New("command must have a name")
	}
	if cmd.Run == nil {
		return fmt.Errorf("command %q has no body", cmd.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	names := append([]string{cmd.Name}, cmd.Aliases...)
	for _, name := range names {
		if existing, ok := r.commands[strings.ToLower(name)]; ok {
			return fmt.Errorf(
				"command name %q already registered (by %q)",
				name,
				existing.Name,
			)
		}
	}
	for _, name := range names {
		r.commands[strings.ToLower(name)] = cmd
	}
	return nil
}

// RemoveCommand removes a command and its aliases by primary name.
func (r *Router) RemoveCommand(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cmd, ok := r.commands[strings.ToLower(name)]
	if !ok {
		return
	}
	for lookup, registered := range r.commands {
		if registered == cmd {
			delete(r.commands, lookup)
		}
	}
}

// GetCommand resolves a command by name or alias, case-insensitively.
func (r *Router) GetCommand(name string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[strings.ToLower(name)]
	return cmd, ok
}

// Commands returns the unique registered commands sorted by name.
func (r *Router) Commands() []*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := map[*Command]bool{}
	var out []*Command
	for _, cmd := range r.commands {
		if !seen[cmd] {
			seen[cmd] = true
			out = append(out, cmd)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Prefixes returns the configured command prefixes. The mention
// prefix is implicit and not included.
func (r *Router) Prefixes() []string {
	return r.prefixes
}

// findPrefix returns the matched prefix and the remaining content,
// or ok=false when the message is not a command invocation. When no
// prefixes are configured the bot responds to mentions only.
func (r *Router) findPrefix(content string) (prefix, rest string, ok bool) {
	if r.mentionable || len(r.prefixes) == 0 {
		botID := r.bot.UserID()
		if botID != "" {
			for _, mention := range []string{"<@" + botID + ">", "<@!" + botID + ">"} {
				if after, found := strings.CutPrefix(content, mention); found {
					return mention + " ", strings.TrimLeft(after, " "), true
				}
			}
		}
	}

	for _, p := range r.prefixes {
		if after, found := strings.CutPrefix(content, p); found {
			return p, after, true
		}
	}
	return "", "", false
}

// checkSpam reports whether the user's sustained command rate exceeds
// the global anti-spam limit. Event time follows the message's edit
// timestamp when present.
func (r *Router) checkSpam(userID string, eventTime time.Time) bool {
	r.spamMu.Lock()
	defer r.spamMu.Unlock()

	bucket, ok := r.spamBuckets[userID]
	if !ok {
		bucket = rate.NewLimiter(
			rate.Limit(float64(spamControlEvents)/spamControlWindow.Seconds()),
			spamControlEvents,
		)
		r.spamBuckets[userID] = bucket
	}
	return !bucket.AllowN(eventTime, 1)
}

// handleMessageCreate is the gateway MessageCreate handler: it parses
// a command invocation out of the message and dispatches it.
func (r *Router) handleMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}

	prefix, rest, ok := r.findPrefix(m.Content)
	if !ok {
		return
	}

	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return
	}

	cmd, ok := r.GetCommand(fields[0])
	if !ok {
		// Unknown commands are ignored, as the original bot does.
		return
	}

	rawArgs := strings.TrimSpace(strings.TrimPrefix(rest, fields[0]))
	ctx := newContext(r.bot, s, m.Message, cmd, prefix, fields[1:], rawArgs)

	r.dispatch(ctx)
}

func (r *Router) dispatch(ctx *Context) {
	cmd := ctx.Command
	author := ctx.Author()

	isOwner := r.bot.IsOwner(author.ID)

	// Owners bypass spam control and have their cooldowns reset.
	if !isOwner {
		eventTime := ctx.Message.Timestamp
		if ctx.Message.EditedTimestamp != nil {
			eventTime = *ctx.Message.EditedTimestamp
		}
		if r.checkSpam(author.ID, eventTime) {
			r.logger.Warn(
				"user is spamming",
				"user_id", author.ID,
				"username", author.Username,
				"channel_id", ctx.Message.ChannelID,
				"command", cmd.Name,
			)
			return
		}
	}

	err := r.invoke(ctx, isOwner)

	if isOwner {
		cmd.resetCooldown(author.ID)
	}

	r.bot.recordInvocation(ctx, err)

	if err != nil {
		r.reportError(ctx, err)
	}
}

func (r *Router) invoke(ctx *Context, isOwner bool) error {
	cmd := ctx.Command

	for _, check := range cmd.Checks {
		if err := check(ctx); err != nil {
			return err
		}
	}

	if required := cmd.requiredArgs(); len(ctx.Args) < len(required) {
		return &MissingRequiredArgumentError{
			Param:   required[len(ctx.Args)],
			Command: cmd,
		}
	}

	var refund func()
	if !isOwner {
		release, err := cmd.reserveCooldown(ctx.Author().ID)
		if err != nil {
			return err
		}
		refund = release
	}

	err := cmd.Run(ctx)
	if err != nil && refund != nil {
		// User errors and unexpected invocation failures forgive the
		// cooldown; HTTP request failures keep their token.
		var userErr UserInputError
		var requestErr *RequestFailedError
		switch {
		case errors.As(err, &userErr):
			refund()
		case errors.As(err, &requestErr):
		case !isCommandError(err):
			refund()
		}
	}
	return err
}

func isCommandError(err error) bool {
	var ce CommandError
	return errors.As(err, &ce)
}

// reportError surfaces a dispatch error to the invoking channel,
// mirroring the original on_command_error mapping. Generic check
// failures are dropped silently; unexpected errors are logged only.
func (r *Router) reportError(ctx *Context, err error) {
	var checkFailed *CheckFailedError
	if errors.As(err, &checkFailed) {
		return
	}

	var requestErr *RequestFailedError
	if errors.As(err, &requestErr) {
		_, _ = ctx.Send(fmt.Sprintf(
			"HTTP request failed with status code %d %s",
			requestErr.Status,
			requestErr.Reason,
		))
		return
	}

	var cmdErr CommandError
	if errors.As(err, &cmdErr) {
		if _, sendErr := ctx.Send(cmdErr.CommandMessage()); sendErr != nil {
			r.logger.Error(
				"error reporting command error",
				"command", ctx.Command.Name,
				tint.Err(sendErr),
			)
		}
		return
	}

	r.logger.Error(
		"command invocation error",
		"command", ctx.Command.Name,
		"user_id", ctx.Author().ID,
		"channel_id", ctx.Message.ChannelID,
		tint.Err(err),
	)
}
