package sleepy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaginatorDefaults(t *testing.T) {
	p := NewPaginator()
	assert.Equal(t, "```", p.Prefix)
	assert.Equal(t, "```", p.Suffix)
	assert.Equal(t, 2000, p.MaxSize)
	assert.Empty(t, p.Pages())
	assert.Zero(t, p.Len())
}

func TestPaginatorSinglePage(t *testing.T) {
	p := NewPaginator()
	require.NoError(t, p.AddLine("hello"))
	require.NoError(t, p.AddLine("world"))

	pages := p.Pages()
	require.Len(t, pages, 1)
	assert.Equal(t, "```\nhello\nworld\n```", pages[0])
	assert.Equal(t, 1, p.Len())
}

func TestPaginatorStartsNewPageWhenFull(t *testing.T) {
	p := NewPaginator()
	p.MaxSize = 30

	require.NoError(t, p.AddLine("aaaaaaaaaa"))
	require.NoError(t, p.AddLine("bbbbbbbbbb"))
	require.NoError(t, p.AddLine("cccccccccc"))

	pages := p.Pages()
	require.Len(t, pages, 2)
	for _, page := range pages {
		assert.LessOrEqual(t, len(page), 30)
		assert.True(t, strings.HasPrefix(page, "```"))
		assert.True(t, strings.HasSuffix(page, "```"))
	}
}

func TestPaginatorWrapsLongLines(t *testing.T) {
	p := NewPaginator()
	p.MaxSize = 40

	line := strings.Repeat("word ", 20)
	require.NoError(t, p.AddLine(strings.TrimSpace(line)))

	for _, page := range p.Pages() {
		assert.LessOrEqual(t, len(page), 40)
	}
	// Wrapping on spaces keeps words intact.
	for _, page := range p.Pages() {
		inner := strings.Trim(page, "`\n")
		for _, w := range strings.Fields(inner) {
			assert.Equal(t, "word", w)
		}
	}
}

func TestPaginatorHardCutsUnbreakableLines(t *testing.T) {
	p := NewPaginator()
	p.MaxSize = 30

	require.NoError(t, p.AddLine(strings.Repeat("x", 100)))

	total := 0
	for _, page := range p.Pages() {
		assert.LessOrEqual(t, len(page), 30)
		total += strings.Count(page, "x")
	}
	assert.Equal(t, 100, total)
}

func TestPaginatorClosePage(t *testing.T) {
	p := NewPaginator()
	require.NoError(t, p.AddLine("first"))
	p.ClosePage()
	p.ClosePage() // closing an empty page is a no-op
	require.NoError(t, p.AddLine("second"))

	pages := p.Pages()
	require.Len(t, pages, 2)
	assert.Contains(t, pages[0], "first")
	assert.Contains(t, pages[1], "second")
}

func TestPaginatorNoFences(t *testing.T) {
	p := NewPaginator()
	p.Prefix = ""
	p.Suffix = ""
	require.NoError(t, p.AddLine("plain"))

	pages := p.Pages()
	require.Len(t, pages, 1)
	assert.Equal(t, "plain", pages[0])
}

func TestPaginatorMaxSizeTooSmall(t *testing.T) {
	p := NewPaginator()
	p.MaxSize = 5
	assert.Error(t, p.AddLine("does not fit"))
}
