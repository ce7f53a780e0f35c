package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mlukow/tabrefresh/internal/types"
)

// BrowserPicker is an overlay for switching the default vendor.
type BrowserPicker struct {
	Browsers []types.BrowserType
	Cursor   int
}

func NewBrowserPicker(current types.BrowserType) BrowserPicker {
	p := BrowserPicker{Browsers: types.KnownBrowsers}
	for i, b := range p.Browsers {
		if b == current {
			p.Cursor = i
			break
		}
	}
	return p
}

func (p *BrowserPicker) MoveUp() {
	if p.Cursor > 0 {
		p.Cursor--
	}
}

func (p *BrowserPicker) MoveDown() {
	if p.Cursor < len(p.Browsers)-1 {
		p.Cursor++
	}
}

func (p BrowserPicker) Selected() types.BrowserType {
	return p.Browsers[p.Cursor]
}

func (p *BrowserPicker) SelectByNumber(n int) bool {
	idx := n - 1
	if idx >= 0 && idx < len(p.Browsers) {
		p.Cursor = idx
		return true
	}
	return false
}

func (p BrowserPicker) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	selectedStyle := lipgloss.NewStyle().Bold(true).Reverse(true).Padding(0, 1)
	normalStyle := lipgloss.NewStyle().Padding(0, 1)
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1, 2)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Select browser:") + "\n\n")
	for i, browser := range p.Browsers {
		label := fmt.Sprintf("%d  %s", i+1, browser.AppName())
		if i == p.Cursor {
			b.WriteString(selectedStyle.Render(label) + "\n")
		} else {
			b.WriteString(normalStyle.Render("  "+label) + "\n")
		}
	}
	b.WriteString("\n" + normalStyle.Render("↑↓ navigate · enter select · 1-4 quick select · esc cancel"))

	return boxStyle.Render(b.String())
}
