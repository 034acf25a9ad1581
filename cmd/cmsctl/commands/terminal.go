package commands

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"site-cms/internal/render"
)

var (
	typeStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("170"))
	tagStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	headingStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	boxStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

const minPreviewWidth = 30

// RenderTerminal draws blocks as bordered boxes wrapped to width.
func RenderTerminal(blocks []*render.Block, width int) string {
	if width < minPreviewWidth {
		width = minPreviewWidth
	}
	// border and padding take four columns
	inner := width - 4

	boxes := make([]string, 0, len(blocks))
	for _, b := range blocks {
		boxes = append(boxes, boxStyle.Width(inner).Render(blockText(b, inner)))
	}
	return strings.Join(boxes, "\n")
}

func blockText(b *render.Block, width int) string {
	var lines []string
	add := func(s string) {
		if s != "" {
			lines = append(lines, wordwrap.String(s, width))
		}
	}

	header := typeStyle.Render(string(b.Type))
	if b.Tag != "" {
		header += " " + tagStyle.Render(b.Tag)
	}
	lines = append(lines, header)
	if b.Heading != "" {
		add(headingStyle.Render(b.Heading))
	}
	add(b.Subheading)
	for _, p := range b.Paragraphs {
		add(p)
	}
	add(b.Markdown)

	for _, c := range b.Cards {
		title := c.Title
		if c.Number != "" {
			title = c.Number + ". " + title
		}
		add(headingStyle.Render(title))
		add(c.Description)
		for _, f := range c.Features {
			add("  • " + f)
		}
		if c.Link != nil {
			add(mutedStyle.Render(fmt.Sprintf("  %s → %s", c.Link.Text, c.Link.Link)))
		}
	}

	if len(b.Stats) > 0 {
		stats := make([]string, len(b.Stats))
		for i, s := range b.Stats {
			stats[i] = s.Value + " " + s.Label
		}
		add(strings.Join(stats, "  |  "))
	}
	for _, a := range b.Actions {
		add(mutedStyle.Render(fmt.Sprintf("[%s] → %s", a.Text, a.Link)))
	}
	add(b.Email)

	return strings.Join(lines, "\n")
}
