package sleepy

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/lmittmann/tint"
)

// PageSource supplies the pages a button menu flips through.
type PageSource interface {
	// PageCount returns the number of pages. Must be at least 1.
	PageCount() int

	// RenderPage returns the content and/or embed for the given page.
	RenderPage(index int) (string, *discordgo.MessageEmbed, error)
}

// EmbedPages returns a page source over a fixed embed sequence.
func EmbedPages(embeds []*discordgo.MessageEmbed) PageSource {
	return embedPages(embeds)
}

type embedPages []*discordgo.MessageEmbed

func (p embedPages) PageCount() int { return len(p) }

func (p embedPages) RenderPage(index int) (string, *discordgo.MessageEmbed, error) {
	if index < 0 || index >= len(p) {
		return "", nil, fmt.Errorf("page %d out of range", index)
	}
	return "", p[index], nil
}

// TextPages returns a page source over a text paginator's pages.
func TextPages(p *Paginator) PageSource {
	return textPages(p.Pages())
}

type textPages []string

func (p textPages) PageCount() int { return len(p) }

func (p textPages) RenderPage(index int) (string, *discordgo.MessageEmbed, error) {
	if index < 0 || index >= len(p) {
		return "", nil, fmt.Errorf("page %d out of range", index)
	}
	return p[index], nil, nil
}

const menuCustomIDFormat = "sleepy:%s:%s:%s"

const (
	menuActionFirst = "first"
	menuActionPrev  = "prev"
	menuActionNext  = "next"
	menuActionLast  = "last"
	menuActionStop  = "stop"

	confirmActionYes = "yes"
	confirmActionNo  = "no"
)

type menuSession struct {
	id        string
	kind      string
	invokerID string
	channelID string
	messageID string

	mu     sync.Mutex
	source PageSource
	page   int
	done   bool

	// confirm sessions deliver their result here.
	result chan bool

	expire *time.Timer
}

// menuManager owns the live button menu sessions and routes component
// interactions to them.
type menuManager struct {
	bot    *Bot
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*menuSession
}

func newMenuManager(bot *Bot, logger *slog.Logger) *menuManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &menuManager{
		bot:      bot,
		logger:   logger.With(loggerNameKey, "menus"),
		sessions: map[string]*menuSession{},
	}
}

// Start sends a paginated menu owned by the invoker. Single-page
// sources are sent plain, with no buttons and no footer.
func (m *menuManager) Start(
	ctx *Context,
	source PageSource,
	timeout time.Duration,
) error {
	count := source.PageCount()
	if count < 1 {
		return fmt.Errorf("page source has no pages")
	}

	content, embed, err := renderMenuPage(source, 0)
	if err != nil {
		return err
	}

	if count == 1 {
		send := &discordgo.MessageSend{
			Content:         content,
			AllowedMentions: ctx.Bot.allowedMentions(),
		}
		if embed != nil {
			send.Embeds = []*discordgo.MessageEmbed{embed}
		}
		_, err = ctx.Session.ChannelMessageSendComplex(ctx.Message.ChannelID, send)
		return err
	}

	session := &menuSession{
		id:        uuid.NewString(),
		kind:      "menu",
		invokerID: ctx.Author().ID,
		channelID: ctx.Message.ChannelID,
		source:    source,
	}

	send := &discordgo.MessageSend{
		Content:         content,
		Components:      session.menuComponents(),
		AllowedMentions: ctx.Bot.allowedMentions(),
	}
	if embed != nil {
		send.Embeds = []*discordgo.MessageEmbed{embed}
	}

	msg, err := ctx.Session.ChannelMessageSendComplex(ctx.Message.ChannelID, send)
	if err != nil {
		return err
	}
	session.messageID = msg.ID

	m.track(ctx.Session, session, timeout)
	return nil
}

// Confirm sends a yes/no prompt owned by the invoker. The result is
// nil when the prompt expires unanswered.
func (m *menuManager) Confirm(
	ctx *Context,
	message string,
	timeout time.Duration,
) (*bool, error) {
	session := &menuSession{
		id:        uuid.NewString(),
		kind:      "confirm",
		invokerID: ctx.Author().ID,
		channelID: ctx.Message.ChannelID,
		result:    make(chan bool, 1),
	}

	msg, err := ctx.Session.ChannelMessageSendComplex(
		ctx.Message.ChannelID, &discordgo.MessageSend{
			Content:         message,
			Components:      session.confirmComponents(),
			AllowedMentions: ctx.Bot.allowedMentions(),
		},
	)
	if err != nil {
		return nil, err
	}
	session.messageID = msg.ID

	m.track(ctx.Session, session, timeout)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case confirmed := <-session.result:
		return &confirmed, nil
	case <-timer.C:
		return nil, nil
	case <-ctx.Ctx.Done():
		return nil, ctx.Ctx.Err()
	}
}

func (m *menuManager) track(
	s *discordgo.Session,
	session *menuSession,
	timeout time.Duration,
) {
	m.mu.Lock()
	m.sessions[session.id] = session
	m.mu.Unlock()

	session.expire = time.AfterFunc(
		timeout, func() {
			m.expireSession(s, session.id)
		},
	)
}

// expireSession removes a session and edits its components away.
func (m *menuManager) expireSession(s *discordgo.Session, id string) {
	session := m.remove(id)
	if session == nil {
		return
	}

	components := []discordgo.MessageComponent{}
	_, err := s.ChannelMessageEditComplex(
		&discordgo.MessageEdit{
			ID:         session.messageID,
			Channel:    session.channelID,
			Components: &components,
		},
	)
	if err != nil {
		m.logger.Warn(
			"error clearing expired menu components",
			"message_id", session.messageID,
			"channel_id", session.channelID,
			tint.Err(err),
		)
	}
}

func (m *menuManager) remove(id string) *menuSession {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[id]
	if !ok {
		return nil
	}
	delete(m.sessions, id)
	if session.expire != nil {
		session.expire.Stop()
	}
	return session
}

func (m *menuManager) get(id string) *menuSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id]
}

// stopAll expires every live session, for shutdown.
func (m *menuManager) stopAll(s *discordgo.Session) {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		m.expireSession(s, id)
	}
}

// handleInteraction is the gateway InteractionCreate handler for menu
// components.
func (m *menuManager) handleInteraction(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}

	parts := strings.Split(i.MessageComponentData().CustomID, ":")
	if len(parts) != 4 || parts[0] != "sleepy" {
		return
	}
	kind, id, action := parts[1], parts[2], parts[3]

	session := m.get(id)
	if session == nil || session.kind != kind {
		return
	}

	user := i.User
	if i.Member != nil {
		user = i.Member.User
	}
	if user == nil {
		return
	}

	if user.ID != session.invokerID {
		err := s.InteractionRespond(
			i.Interaction, &discordgo.InteractionResponse{
				Type: discordgo.InteractionResponseChannelMessageWithSource,
				Data: &discordgo.InteractionResponseData{
					Content: "This menu isn't yours!",
					Flags:   discordgo.MessageFlagsEphemeral,
				},
			},
		)
		if err != nil {
			m.logger.Warn("error rejecting foreign interaction", tint.Err(err))
		}
		return
	}

	switch kind {
	case "menu":
		m.handleMenuAction(s, i, session, action)
	case "confirm":
		m.handleConfirmAction(s, i, session, action)
	}
}

func (m *menuManager) handleMenuAction(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	session *menuSession,
	action string,
) {
	if action == menuActionStop {
		m.remove(session.id)
		components := []discordgo.MessageComponent{}
		err := s.InteractionRespond(
			i.Interaction, &discordgo.InteractionResponse{
				Type: discordgo.InteractionResponseUpdateMessage,
				Data: &discordgo.InteractionResponseData{
					Components: components,
				},
			},
		)
		if err != nil {
			m.logger.Warn("error stopping menu", tint.Err(err))
		}
		return
	}

	session.mu.Lock()
	lastPage := session.source.PageCount() - 1
	switch action {
	case menuActionFirst:
		session.page = 0
	case menuActionPrev:
		if session.page > 0 {
			session.page--
		}
	case menuActionNext:
		if session.page < lastPage {
			session.page++
		}
	case menuActionLast:
		session.page = lastPage
	default:
		session.mu.Unlock()
		return
	}
	page := session.page
	source := session.source
	session.mu.Unlock()

	content, embed, err := renderMenuPage(source, page)
	if err != nil {
		m.logger.Error(
			"error rendering menu page",
			"page", page,
			tint.Err(err),
		)
		return
	}

	data := &discordgo.InteractionResponseData{
		Content:    content,
		Components: session.menuComponents(),
	}
	if embed != nil {
		data.Embeds = []*discordgo.MessageEmbed{embed}
	}

	err = s.InteractionRespond(
		i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseUpdateMessage,
			Data: data,
		},
	)
	if err != nil {
		m.logger.Warn("error updating menu page", tint.Err(err))
	}
}

func (m *menuManager) handleConfirmAction(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	session *menuSession,
	action string,
) {
	removed := m.remove(session.id)
	if removed == nil {
		return
	}

	session.mu.Lock()
	if !session.done {
		session.done = true
		session.result <- action == confirmActionYes
	}
	session.mu.Unlock()

	components := []discordgo.MessageComponent{}
	err := s.InteractionRespond(
		i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseUpdateMessage,
			Data: &discordgo.InteractionResponseData{
				Components: components,
			},
		},
	)
	if err != nil {
		m.logger.Warn("error resolving confirmation prompt", tint.Err(err))
	}
}

// renderMenuPage renders a page and appends the page-count footer.
// Single-page sources get no footer.
func renderMenuPage(source PageSource, index int) (
	string,
	*discordgo.MessageEmbed,
	error,
) {
	content, embed, err := source.RenderPage(index)
	if err != nil {
		return "", nil, err
	}

	count := source.PageCount()
	if count <= 1 {
		return content, embed, nil
	}

	footer := fmt.Sprintf("Page %d/%d", index+1, count)
	if embed != nil {
		if embed.Footer == nil || embed.Footer.Text == "" {
			clone := *embed
			clone.Footer = &discordgo.MessageEmbedFooter{Text: footer}
			return content, &clone, nil
		}
		return content, embed, nil
	}
	return content + "\n-# " + footer, nil, nil
}

func (ms *menuSession) button(label, action string, style discordgo.ButtonStyle) discordgo.Button {
	return discordgo.Button{
		Label: label,
		Style: style,
		CustomID: fmt.Sprintf(
			menuCustomIDFormat,
			ms.kind,
			ms.id,
			action,
		),
	}
}

// menuComponents returns the menu's button row. The double-skip
// buttons only appear for menus longer than two pages.
func (ms *menuSession) menuComponents() []discordgo.MessageComponent {
	wide := ms.source.PageCount() > 2

	var buttons []discordgo.MessageComponent
	if wide {
		buttons = append(
			buttons,
			ms.button("≪", menuActionFirst, discordgo.SecondaryButton),
		)
	}
	buttons = append(
		buttons,
		ms.button("Back", menuActionPrev, discordgo.PrimaryButton),
		ms.button("Next", menuActionNext, discordgo.PrimaryButton),
	)
	if wide {
		buttons = append(
			buttons,
			ms.button("≫", menuActionLast, discordgo.SecondaryButton),
		)
	}
	buttons = append(
		buttons,
		ms.button("Stop", menuActionStop, discordgo.DangerButton),
	)

	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: buttons},
	}
}

func (ms *menuSession) confirmComponents() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				ms.button("Confirm", confirmActionYes, discordgo.SuccessButton),
				ms.button("Cancel", confirmActionNo, discordgo.DangerButton),
			},
		},
	}
}
