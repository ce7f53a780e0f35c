package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mlukow/tabrefresh/internal/core"
	"github.com/mlukow/tabrefresh/internal/timenorm"
	"github.com/mlukow/tabrefresh/internal/types"
)

// ScheduleEditor is an overlay editing one tab's refresh times. Typing goes
// into the input line; enter submits it as a new entry.
type ScheduleEditor struct {
	Tab     types.ManagedTab
	Entries []string
	Cursor  int
	Input   string
	ErrText string
}

func NewScheduleEditor(tab types.ManagedTab, entries []string) ScheduleEditor {
	return ScheduleEditor{Tab: tab, Entries: entries}
}

// Handle processes one key. Returns done when the overlay should close and
// changed when the schedule was mutated.
func (e *ScheduleEditor) Handle(msg tea.KeyMsg, mgr *core.Manager) (done, changed bool) {
	switch msg.String() {
	case "esc":
		return true, false
	case "ctrl+c":
		return true, false
	case "enter":
		raw := strings.TrimSpace(e.Input)
		if raw == "" {
			return false, false
		}
		if _, err := timenorm.Normalize(raw); err != nil {
			e.ErrText = fmt.Sprintf("bad time %q: want HH:MM or HH:MM:SS, * prefix repeats daily", raw)
			return false, false
		}
		if mgr.AddScheduleEntry(e.Tab.ID, timenorm.SingleTime(raw)) {
			e.Input = ""
			e.ErrText = ""
			return false, true
		}
		e.ErrText = "could not add entry"
		return false, false
	case "up":
		if e.Cursor > 0 {
			e.Cursor--
		}
	case "down":
		if e.Cursor < len(e.Entries)-1 {
			e.Cursor++
		}
	case "ctrl+d":
		if e.Cursor >= 0 && e.Cursor < len(e.Entries) {
			if mgr.RemoveScheduleEntry(e.Tab.ID, e.Entries[e.Cursor]) {
				if e.Cursor > 0 {
					e.Cursor--
				}
				return false, true
			}
		}
	case "ctrl+x":
		if len(e.Entries) > 0 && mgr.ClearSchedule(e.Tab.ID) {
			e.Cursor = 0
			return false, true
		}
	case "backspace":
		if len(e.Input) > 0 {
			e.Input = e.Input[:len(e.Input)-1]
		}
	default:
		if msg.Type == tea.KeyRunes {
			for _, r := range msg.Runes {
				if isTimeRune(r) {
					e.Input += string(r)
				}
			}
		}
	}
	return false, false
}

// isTimeRune admits only what a schedule entry can contain.
func isTimeRune(r rune) bool {
	return (r >= '0' && r <= '9') || r == ':' || r == '*'
}

func (e ScheduleEditor) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	selectedStyle := lipgloss.NewStyle().Bold(true).Reverse(true).Padding(0, 1)
	normalStyle := lipgloss.NewStyle().Padding(0, 1)
	errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Padding(0, 1)
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1, 2)

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Schedule for %q:", truncate(e.Tab.Name, 50))) + "\n\n")

	if len(e.Entries) == 0 {
		b.WriteString(normalStyle.Render("no entries") + "\n")
	}
	for i, entry := range e.Entries {
		label := entry
		if timenorm.IsRepeating(entry) {
			label += "  (daily)"
		} else {
			label += "  (once)"
		}
		if i == e.Cursor {
			b.WriteString(selectedStyle.Render(label) + "\n")
		} else {
			b.WriteString(normalStyle.Render(label) + "\n")
		}
	}

	b.WriteString("\n" + normalStyle.Render("add: "+e.Input+"▏") + "\n")
	if e.ErrText != "" {
		b.WriteString(errStyle.Render(e.ErrText) + "\n")
	}
	b.WriteString("\n" + normalStyle.Render("type HH:MM or *HH:MM · enter add · ctrl+d delete · ctrl+x clear all · esc close"))

	return boxStyle.Render(b.String())
}
