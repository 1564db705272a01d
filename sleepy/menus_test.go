package sleepy

import (
	"fmt"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEmbeds(count int) []*discordgo.MessageEmbed {
	embeds := make([]*discordgo.MessageEmbed, count)
	for i := range embeds {
		embeds[i] = &discordgo.MessageEmbed{
			Title: fmt.Sprintf("Embed %d", i+1),
		}
	}
	return embeds
}

func TestEmbedPages(t *testing.T) {
	source := EmbedPages(testEmbeds(3))
	require.Equal(t, 3, source.PageCount())

	_, embed, err := source.RenderPage(1)
	require.NoError(t, err)
	assert.Equal(t, "Embed 2", embed.Title)

	_, _, err = source.RenderPage(3)
	assert.Error(t, err)
	_, _, err = source.RenderPage(-1)
	assert.Error(t, err)
}

func TestTextPages(t *testing.T) {
	p := NewPaginator()
	require.NoError(t, p.AddLine("one"))
	p.ClosePage()
	require.NoError(t, p.AddLine("two"))

	source := TextPages(p)
	require.Equal(t, 2, source.PageCount())

	content, embed, err := source.RenderPage(0)
	require.NoError(t, err)
	assert.Nil(t, embed)
	assert.Contains(t, content, "one")

	_, _, err = source.RenderPage(2)
	assert.Error(t, err)
}

func TestRenderMenuPage(t *testing.T) {
	// Single-page sources get no footer.
	content, _, err := renderMenuPage(TextPages(textPaginator(t, "only")), 0)
	require.NoError(t, err)
	assert.NotContains(t, content, "Page")

	// Text pages get a subtext footer.
	source := textPages([]string{"one", "two", "three"})
	content, embed, err := renderMenuPage(source, 1)
	require.NoError(t, err)
	assert.Nil(t, embed)
	assert.Contains(t, content, "-# Page 2/3")
}

func TestRenderMenuPageEmbedFooter(t *testing.T) {
	embeds := testEmbeds(2)
	_, rendered, err := renderMenuPage(EmbedPages(embeds), 0)
	require.NoError(t, err)
	require.NotNil(t, rendered.Footer)
	assert.Equal(t, "Page 1/2", rendered.Footer.Text)

	// The source embed is cloned, not mutated.
	assert.Nil(t, embeds[0].Footer)

	// An existing footer is kept as-is.
	embeds[1].Footer = &discordgo.MessageEmbedFooter{Text: "custom"}
	_, rendered, err = renderMenuPage(EmbedPages(embeds), 1)
	require.NoError(t, err)
	assert.Equal(t, "custom", rendered.Footer.Text)
}

func textPaginator(t testing.TB, lines ...string) *Paginator {
	t.Helper()

	p := NewPaginator()
	for _, line := range lines {
		require.NoError(t, p.AddLine(line))
	}
	return p
}

func menuButtons(t testing.TB, components []discordgo.MessageComponent) []discordgo.Button {
	t.Helper()

	require.Len(t, components, 1)
	row, ok := components[0].(discordgo.ActionsRow)
	require.True(t, ok)

	buttons := make([]discordgo.Button, 0, len(row.Components))
	for _, c := range row.Components {
		button, ok := c.(discordgo.Button)
		require.True(t, ok)
		buttons = append(buttons, button)
	}
	return buttons
}

func TestMenuComponents(t *testing.T) {
	session := &menuSession{
		id:     "abc",
		kind:   "menu",
		source: textPages([]string{"one", "two"}),
	}

	buttons := menuButtons(t, session.menuComponents())
	require.Len(t, buttons, 3)
	assert.Equal(t, "Back", buttons[0].Label)
	assert.Equal(t, "Next", buttons[1].Label)
	assert.Equal(t, "Stop", buttons[2].Label)
	assert.Equal(t, "sleepy:menu:abc:prev", buttons[0].CustomID)
	assert.Equal(t, "sleepy:menu:abc:stop", buttons[2].CustomID)
}

func TestMenuComponentsWide(t *testing.T) {
	// Menus longer than two pages also get double-skip buttons.
	session := &menuSession{
		id:     "abc",
		kind:   "menu",
		source: textPages([]string{"one", "two", "three"}),
	}

	buttons := menuButtons(t, session.menuComponents())
	require.Len(t, buttons, 5)
	assert.Equal(t, "≪", buttons[0].Label)
	assert.Equal(t, "≫", buttons[3].Label)
	assert.Equal(t, "sleepy:menu:abc:first", buttons[0].CustomID)
	assert.Equal(t, "sleepy:menu:abc:last", buttons[3].CustomID)
}

func TestConfirmComponents(t *testing.T) {
	session := &menuSession{id: "abc", kind: "confirm"}

	buttons := menuButtons(t, session.confirmComponents())
	require.Len(t, buttons, 2)
	assert.Equal(t, "Confirm", buttons[0].Label)
	assert.Equal(t, "sleepy:confirm:abc:yes", buttons[0].CustomID)
	assert.Equal(t, "Cancel", buttons[1].Label)
	assert.Equal(t, "sleepy:confirm:abc:no", buttons[1].CustomID)
}

func TestMenuManagerSessions(t *testing.T) {
	bot := newTestBot(t)
	m := bot.menus

	session := &menuSession{id: "abc", kind: "menu"}
	m.mu.Lock()
	m.sessions[session.id] = session
	m.mu.Unlock()

	assert.Same(t, session, m.get("abc"))
	assert.Nil(t, m.get("missing"))

	assert.Same(t, session, m.remove("abc"))
	assert.Nil(t, m.get("abc"))
	assert.Nil(t, m.remove("abc"))
}
