package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mlukow/tabrefresh/internal/types"
)

// ScanPicker is an overlay listing discovery results for multi-select adding.
type ScanPicker struct {
	Browser types.BrowserType
	Windows []types.DiscoveredWindow
	Cursor  int
	Checked map[int]bool // index into Windows
}

func NewScanPicker(browser types.BrowserType, wins []types.DiscoveredWindow) ScanPicker {
	return ScanPicker{
		Browser: browser,
		Windows: wins,
		Checked: make(map[int]bool),
	}
}

func (p *ScanPicker) MoveUp() {
	if p.Cursor > 0 {
		p.Cursor--
	}
}

func (p *ScanPicker) MoveDown() {
	if p.Cursor < len(p.Windows)-1 {
		p.Cursor++
	}
}

func (p *ScanPicker) Toggle() {
	if len(p.Windows) == 0 {
		return
	}
	if p.Checked[p.Cursor] {
		delete(p.Checked, p.Cursor)
	} else {
		p.Checked[p.Cursor] = true
	}
}

// Chosen returns the checked windows, or just the cursor row when nothing
// is checked.
func (p ScanPicker) Chosen() []types.DiscoveredWindow {
	if len(p.Windows) == 0 {
		return nil
	}
	if len(p.Checked) == 0 {
		return []types.DiscoveredWindow{p.Windows[p.Cursor]}
	}
	var out []types.DiscoveredWindow
	for i, w := range p.Windows {
		if p.Checked[i] {
			out = append(out, w)
		}
	}
	return out
}

func (p ScanPicker) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	selectedStyle := lipgloss.NewStyle().Bold(true).Reverse(true).Padding(0, 1)
	normalStyle := lipgloss.NewStyle().Padding(0, 1)
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1, 2)

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Open %s tabs:", p.Browser.AppName())) + "\n\n")
	if len(p.Windows) == 0 {
		b.WriteString(normalStyle.Render("nothing found") + "\n")
	}
	for i, w := range p.Windows {
		mark := "[ ]"
		if p.Checked[i] {
			mark = "[x]"
		}
		label := fmt.Sprintf("%s %s", mark, truncate(w.Name, 60))
		if i == p.Cursor {
			b.WriteString(selectedStyle.Render(label) + "\n")
		} else {
			b.WriteString(normalStyle.Render(label) + "\n")
		}
	}
	b.WriteString("\n" + normalStyle.Render("↑↓ navigate · space select · enter add · esc cancel"))

	return boxStyle.Render(b.String())
}
