package sleepy

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

// ErrPromptTimeout is returned by interactive helpers when the
// invoker does not respond in time.
var ErrPromptTimeout = errors.New("prompt timed out")

// Context carries the state of a single command invocation.
type Context struct {
	// Ctx is the bot's run context, for outbound HTTP and other
	// cancellable work done on behalf of the invocation.
	Ctx context.Context

	Bot     *Bot
	Session *discordgo.Session
	Message *discordgo.Message
	Command *Command

	// Prefix is the prefix the invocation used, including the mention
	// form when the bot was invoked by mention.
	Prefix string

	// Args holds the whitespace-split arguments after the command
	// name. RawArgs is the same region of the message, unsplit.
	Args    []string
	RawArgs string
}

func newContext(
	bot *Bot,
	s *discordgo.Session,
	m *discordgo.Message,
	cmd *Command,
	prefix string,
	args []string,
	rawArgs string,
) *Context {
	return &Context{
		Ctx:     bot.runContext(),
		Bot:     bot,
		Session: s,
		Message: m,
		Command: cmd,
		Prefix:  prefix,
		Args:    args,
		RawArgs: rawArgs,
	}
}

// Author returns the invoking user.
func (c *Context) Author() *discordgo.User {
	return c.Message.Author
}

// GuildID returns the invoking guild's ID, or "" in direct messages.
func (c *Context) GuildID() string {
	return c.Message.GuildID
}

// Guild returns the invoking guild from the session state.
func (c *Context) Guild() (*discordgo.Guild, error) {
	if c.GuildID() == "" {
		return nil, &NoPrivateMessageError{}
	}
	return c.Session.State.Guild(c.GuildID())
}

// Permissions returns the invoker's permissions in the invoking
// channel.
func (c *Context) Permissions() (int64, error) {
	return c.Session.State.UserChannelPermissions(
		c.Author().ID,
		c.Message.ChannelID,
	)
}

// BotPermissions returns the bot's own permissions in the invoking
// channel.
func (c *Context) BotPermissions() (int64, error) {
	return c.Session.State.UserChannelPermissions(
		c.Bot.UserID(),
		c.Message.ChannelID,
	)
}

// GuildPermissions returns the invoker's guild-wide permissions,
// computed from their roles. The guild owner holds every permission.
func (c *Context) GuildPermissions() (int64, error) {
	guild, err := c.Guild()
	if err != nil {
		return 0, err
	}
	if guild.OwnerID == c.Author().ID {
		return discordgo.PermissionAll, nil
	}

	member, err := c.Session.State.Member(c.GuildID(), c.Author().ID)
	if err != nil {
		member, err = c.Session.GuildMember(c.GuildID(), c.Author().ID)
		if err != nil {
			return 0, err
		}
	}

	var perms int64
	memberRoles := map[string]bool{}
	for _, id := range member.Roles {
		memberRoles[id] = true
	}
	for _, role := range guild.Roles {
		if role.ID == guild.ID || memberRoles[role.ID] {
			perms |= role.Permissions
		}
	}
	if perms&discordgo.PermissionAdministrator != 0 {
		return discordgo.PermissionAll, nil
	}
	return perms, nil
}

// Send sends a plain message to the invoking channel.
func (c *Context) Send(content string) (*discordgo.Message, error) {
	return c.Session.ChannelMessageSendComplex(
		c.Message.ChannelID, &discordgo.MessageSend{
			Content:         content,
			AllowedMentions: c.Bot.allowedMentions(),
		},
	)
}

// Sendf formats and sends a plain message to the invoking channel.
func (c *Context) Sendf(format string, args ...any) (*discordgo.Message, error) {
	return c.Send(fmt.Sprintf(format, args...))
}

// SendEmbed sends an embed to the invoking channel.
func (c *Context) SendEmbed(embed *discordgo.MessageEmbed) (*discordgo.Message, error) {
	return c.Session.ChannelMessageSendComplex(
		c.Message.ChannelID, &discordgo.MessageSend{
			Embeds:          []*discordgo.MessageEmbed{embed},
			AllowedMentions: c.Bot.allowedMentions(),
		},
	)
}

// Reply sends a message referencing the invoking message.
func (c *Context) Reply(content string) (*discordgo.Message, error) {
	return c.Session.ChannelMessageSendComplex(
		c.Message.ChannelID, &discordgo.MessageSend{
			Content:         content,
			Reference:       c.Message.Reference(),
			AllowedMentions: c.Bot.allowedMentions(),
		},
	)
}

// Typing triggers the typing indicator in the invoking channel.
func (c *Context) Typing() {
	_ = c.Session.ChannelTyping(c.Message.ChannelID)
}

// Get performs a GET through the bot's requester.
func (c *Context) Get(url string, opts ...RequestOption) (*Response, error) {
	return c.Bot.Requester.Get(c.Ctx, url, opts...)
}

// GetJSON performs a cached GET through the bot's requester and
// decodes the JSON response body into v.
func (c *Context) GetJSON(url string, v any, opts ...RequestOption) error {
	return c.Bot.Requester.GetJSON(c.Ctx, url, v, opts...)
}

// Post performs a POST through the bot's requester.
func (c *Context) Post(url string, opts ...RequestOption) (*Response, error) {
	return c.Bot.Requester.Post(c.Ctx, url, opts...)
}

// Paginate starts a button menu over the given page source, owned by
// the invoker.
func (c *Context) Paginate(source PageSource) error {
	return c.Bot.menus.Start(c, source, c.Bot.menuTimeout())
}

// PaginateEmbeds starts a button menu over a fixed embed sequence.
func (c *Context) PaginateEmbeds(embeds ...*discordgo.MessageEmbed) error {
	return c.Paginate(EmbedPages(embeds))
}

// PaginateText starts a button menu over a text paginator's pages.
func (c *Context) PaginateText(p *Paginator) error {
	return c.Paginate(TextPages(p))
}

// Prompt asks the invoker a yes/no question with confirm/deny
// buttons. The result is nil when the prompt expires unanswered.
func (c *Context) Prompt(message string, timeout time.Duration) (*bool, error) {
	return c.Bot.menus.Confirm(c, message, timeout)
}

// WaitForMessage blocks until a message passing the filter arrives or
// the timeout elapses.
func (c *Context) WaitForMessage(
	timeout time.Duration,
	filter func(m *discordgo.MessageCreate) bool,
) (*discordgo.Message, error) {
	received := make(chan *discordgo.Message, 1)
	remove := c.Session.AddHandler(
		func(_ *discordgo.Session, m *discordgo.MessageCreate) {
			if filter == nil || filter(m) {
				select {
				case received <- m.Message:
				default:
				}
			}
		},
	)
	defer remove()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case m := <-received:
		return m, nil
	case <-timer.C:
		return nil, ErrPromptTimeout
	case <-c.Ctx.Done():
		return nil, c.Ctx.Err()
	}
}

var mentionTrim = strings.NewReplacer("<@", "", "<@!", "", ">", "")

// ResolveUser resolves a command argument to a user: a mention, a
// raw user ID, or a name looked up in the invoking guild's members.
func (c *Context) ResolveUser(arg string) (*discordgo.User, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return nil, &BadArgumentError{Message: "No user given."}
	}

	id := mentionTrim.Replace(arg)
	if _, err := strconv.ParseUint(id, 10, 64); err == nil {
		if c.GuildID() != "" {
			if member, err := c.Session.State.Member(c.GuildID(), id); err == nil {
				return member.User, nil
			}
		}
		user, err := c.Session.User(id)
		if err == nil {
			return user, nil
		}
	}

	if c.GuildID() != "" {
		guild, err := c.Guild()
		if err == nil {
			lowered := strings.ToLower(arg)
			for _, member := range guild.Members {
				if member.User == nil {
					continue
				}
				if strings.ToLower(member.User.Username) == lowered ||
					strings.ToLower(member.Nick) == lowered {
					return member.User, nil
				}
			}
		}
	}

	return nil, &BadArgumentError{
		Message: fmt.Sprintf("I couldn't find the user `%s`.", Truncate(arg, 50)),
	}
}

// ResolveMember resolves a command argument to a member of the
// invoking guild.
func (c *Context) ResolveMember(arg string) (*discordgo.Member, error) {
	if c.GuildID() == "" {
		return nil, &NoPrivateMessageError{}
	}
	user, err := c.ResolveUser(arg)
	if err != nil {
		return nil, err
	}
	member, err := c.Session.State.Member(c.GuildID(), user.ID)
	if err == nil {
		return member, nil
	}
	member, err = c.Session.GuildMember(c.GuildID(), user.ID)
	if err != nil {
		return nil, &BadArgumentError{
			Message: fmt.Sprintf(
				"`%s` isn't a member of this server.", user.Username,
			),
		}
	}
	return member, nil
}

// Disambiguate presents numbered options and waits for the invoker
// to pick one by number, allowing three attempts. It returns the
// selected index.
func (c *Context) Disambiguate(question string, options []string) (int, error) {
	if len(options) == 0 {
		return 0, errors.New("no options to disambiguate")
	}
	if len(options) == 1 {
		return 0, nil
	}

	var sb strings.Builder
	sb.WriteString(question)
	sb.WriteString("\n")
	for i, option := range options {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, option)
	}
	if _, err := c.Send(sb.String()); err != nil {
		return 0, err
	}

	fromInvoker := func(m *discordgo.MessageCreate) bool {
		return m.Author != nil &&
			m.Author.ID == c.Author().ID &&
			m.ChannelID == c.Message.ChannelID
	}

	for attempt := 0; attempt < 3; attempt++ {
		reply, err := c.WaitForMessage(30*time.Second, fromInvoker)
		if err != nil {
			if errors.Is(err, ErrPromptTimeout) {
				return 0, &BadArgumentError{
					Message: "You took too long to respond.",
				}
			}
			return 0, err
		}

		pick, err := strconv.Atoi(strings.TrimSpace(reply.Content))
		if err == nil && pick >= 1 && pick <= len(options) {
			return pick - 1, nil
		}
		if _, err := c.Sendf(
			"Invalid choice. Pick a number between 1 and %d.", len(options),
		); err != nil {
			return 0, err
		}
	}
	return 0, &BadArgumentError{Message: "Too many invalid attempts. Aborting."}
}
