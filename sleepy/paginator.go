package sleepy

import (
	"fmt"
	"strings"
)

// Paginator assembles lines into pages no longer than MaxSize,
// wrapping each page in Prefix and Suffix. Lines longer than a page
// are broken on the wrap delimiters, preferring the rightmost
// delimiter that still fits.
type Paginator struct {
	// Prefix and Suffix fence every page. Defaults to a code block.
	Prefix string
	Suffix string

	// MaxSize is the maximum rendered length of a page, fences
	// included. Defaults to 2000, the message content limit.
	MaxSize int

	// WrapOn holds the delimiters tried, in order, when a line
	// exceeds the page size. Defaults to newline then space.
	WrapOn []string

	pages   []string
	current []string
	count   int
}

// NewPaginator returns a paginator with code-block fencing and the
// message content size limit.
func NewPaginator() *Paginator {
	return &Paginator{
		Prefix:  "```",
		Suffix:  "```",
		MaxSize: 2000,
		WrapOn:  []string{"\n", " "},
	}
}

// fenceSize returns the page length consumed by the fences and their
// separating newlines.
func (p *Paginator) fenceSize() int {
	size := 0
	if p.Prefix != "" {
		size += len(p.Prefix) + 1
	}
	if p.Suffix != "" {
		size += len(p.Suffix) + 1
	}
	return size
}

// pageCapacity returns the longest line that fits on an empty page.
func (p *Paginator) pageCapacity() int {
	return p.MaxSize - p.fenceSize() - 1
}

// AddLine appends a line to the current page, starting a new page
// when it does not fit and wrapping the line itself when it exceeds
// the page capacity.
func (p *Paginator) AddLine(line string) error {
	capacity := p.pageCapacity()
	if capacity <= 0 {
		return fmt.Errorf("max size %d leaves no room for content", p.MaxSize)
	}

	for len(line) > capacity {
		cut := -1
		for _, delim := range p.WrapOn {
			if idx := strings.LastIndex(line[:capacity+1], delim); idx > 0 {
				cut = idx
				break
			}
		}
		if cut < 0 {
			cut = capacity
			p.appendLine(line[:cut])
			line = line[cut:]
			continue
		}
		p.appendLine(line[:cut])
		line = line[cut+1:]
	}
	p.appendLine(line)
	return nil
}

func (p *Paginator) appendLine(line string) {
	if p.count+len(line)+1 > p.pageCapacity()+1 && len(p.current) > 0 {
		p.ClosePage()
	}
	p.current = append(p.current, line)
	p.count += len(line) + 1
}

// ClosePage ends the current page, forcing subsequent lines onto a
// new one.
func (p *Paginator) ClosePage() {
	if len(p.current) == 0 {
		return
	}
	p.pages = append(p.pages, p.renderPage(p.current))
	p.current = nil
	p.count = 0
}

func (p *Paginator) renderPage(lines []string) string {
	var parts []string
	if p.Prefix != "" {
		parts = append(parts, p.Prefix)
	}
	parts = append(parts, lines...)
	if p.Suffix != "" {
		parts = append(parts, p.Suffix)
	}
	return strings.Join(parts, "\n")
}

// Pages returns the rendered pages, including the page in progress.
func (p *Paginator) Pages() []string {
	pages := make([]string, len(p.pages))
	copy(pages, p.pages)
	if len(p.current) > 0 {
		pages = append(pages, p.renderPage(p.current))
	}
	return pages
}

// Len returns the number of pages, including the page in progress.
func (p *Paginator) Len() int {
	n := len(p.pages)
	if len(p.current) > 0 {
		n++
	}
	return n
}
