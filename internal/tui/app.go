// Package tui is the interactive terminal front end. It renders registry
// state and forwards every mutation to the core facade; no refresh or
// persistence logic lives here.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mlukow/tabrefresh/internal/core"
	"github.com/mlukow/tabrefresh/internal/types"
)

// --- Messages ---

type tickMsg time.Time

type scanDoneMsg struct {
	browser types.BrowserType
	wins    []types.DiscoveredWindow
}

type refreshDoneMsg struct {
	results []types.RefreshResult
}

// --- Model ---

type Model struct {
	mgr *core.Manager

	// Registry view, reloaded on every tick so scheduler-driven changes
	// (consumed one-shot entries) show up without user input.
	tabs      []types.ManagedTab
	schedules map[string][]string
	browser   types.BrowserType

	// Last manual/auto batch outcome, keyed by TabID.Key().
	results map[string]types.RefreshResult
	status  string

	cursor int
	width  int
	height int

	scanning   bool
	refreshing bool

	picker     BrowserPicker
	showPicker bool
	scan       ScanPicker
	showScan   bool
	editor     ScheduleEditor
	showEditor bool
}

func NewModel(mgr *core.Manager) Model {
	m := Model{
		mgr:     mgr,
		results: make(map[string]types.RefreshResult),
	}
	m.reload()
	return m
}

func (m *Model) reload() {
	m.tabs = m.mgr.List()
	m.schedules = m.mgr.Schedules()
	m.browser = m.mgr.Browser()
	if m.cursor >= len(m.tabs) {
		m.cursor = len(m.tabs) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) selectedTab() *types.ManagedTab {
	if m.cursor < 0 || m.cursor >= len(m.tabs) {
		return nil
	}
	return &m.tabs[m.cursor]
}

// --- Commands ---

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func runScan(mgr *core.Manager, browser types.BrowserType) tea.Cmd {
	return func() tea.Msg {
		return scanDoneMsg{browser: browser, wins: mgr.Scan(browser)}
	}
}

func runRefresh(mgr *core.Manager, ids []types.TabID) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		return refreshDoneMsg{results: mgr.RefreshMany(ctx, ids)}
	}
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		m.reload()
		return m, tick()

	case scanDoneMsg:
		m.scanning = false
		m.scan = NewScanPicker(msg.browser, msg.wins)
		m.showScan = true
		return m, nil

	case refreshDoneMsg:
		m.refreshing = false
		ok := 0
		for _, r := range msg.results {
			m.results[r.ID.Key()] = r
			if r.Success {
				ok++
			}
		}
		m.status = fmt.Sprintf("refreshed %d/%d at %s", ok, len(msg.results), time.Now().Format("15:04:05"))
		return m, nil

	case tea.KeyMsg:
		if m.showPicker {
			return m.updatePicker(msg)
		}
		if m.showScan {
			return m.updateScan(msg)
		}
		if m.showEditor {
			return m.updateEditor(msg)
		}
		return m.updateMain(msg)
	}

	return m, nil
}

func (m Model) updateMain(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.mgr.Save()
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.tabs)-1 {
			m.cursor++
		}
	case "s":
		if !m.scanning {
			m.scanning = true
			return m, runScan(m.mgr, m.browser)
		}
	case "b":
		m.showPicker = true
		m.picker = NewBrowserPicker(m.browser)
	case "r":
		if tab := m.selectedTab(); tab != nil && !m.refreshing {
			m.refreshing = true
			return m, runRefresh(m.mgr, []types.TabID{tab.ID})
		}
	case "a":
		if len(m.tabs) > 0 && !m.refreshing {
			m.refreshing = true
			ids := make([]types.TabID, len(m.tabs))
			for i, t := range m.tabs {
				ids[i] = t.ID
			}
			return m, runRefresh(m.mgr, ids)
		}
	case "e":
		if tab := m.selectedTab(); tab != nil {
			m.showEditor = true
			m.editor = NewScheduleEditor(*tab, m.mgr.GetSchedule(tab.ID))
		}
	case "x":
		if tab := m.selectedTab(); tab != nil {
			delete(m.results, tab.ID.Key())
			m.mgr.Remove(tab.ID)
			m.reload()
		}
	case "i":
		cfg := m.mgr.Config()
		cfg.IntervalEnabled = !cfg.IntervalEnabled
		m.mgr.SetConfig(cfg)
	case "+":
		cfg := m.mgr.Config()
		cfg.IntervalSeconds += 30
		m.mgr.SetConfig(cfg)
	case "-":
		cfg := m.mgr.Config()
		cfg.IntervalSeconds -= 30
		m.mgr.SetConfig(cfg)
	}
	return m, nil
}

func (m Model) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		m.picker.MoveUp()
	case "down", "j":
		m.picker.MoveDown()
	case "enter":
		m.mgr.SetBrowserType(m.picker.Selected())
		m.showPicker = false
		m.reload()
	case "esc":
		m.showPicker = false
	case "q", "ctrl+c":
		return m, tea.Quit
	case "1", "2", "3", "4":
		if m.picker.SelectByNumber(int(msg.String()[0] - '0')) {
			m.mgr.SetBrowserType(m.picker.Selected())
			m.showPicker = false
			m.reload()
		}
	}
	return m, nil
}

func (m Model) updateScan(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		m.scan.MoveUp()
	case "down", "j":
		m.scan.MoveDown()
	case " ":
		m.scan.Toggle()
	case "enter":
		added := 0
		for _, w := range m.scan.Chosen() {
			if m.mgr.AddDiscovered(w, m.scan.Browser) {
				added++
			}
		}
		m.showScan = false
		m.status = fmt.Sprintf("added %d tab(s)", added)
		m.reload()
	case "esc":
		m.showScan = false
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateEditor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	done, changed := m.editor.Handle(msg, m.mgr)
	if changed {
		m.editor.Entries = m.mgr.GetSchedule(m.editor.Tab.ID)
		m.reload()
	}
	if done {
		m.showEditor = false
	}
	return m, nil
}

// --- View ---

func (m Model) View() string {
	if m.showPicker {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.picker.View())
	}
	if m.showScan {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.scan.View())
	}
	if m.showEditor {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.editor.View())
	}

	topBarStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cfg := m.mgr.Config()
	intervalStr := "off"
	if cfg.IntervalEnabled {
		intervalStr = fmt.Sprintf("every %ds", cfg.IntervalSeconds)
	}
	top := fmt.Sprintf("Browser: %s  ·  %d tab(s)  ·  auto-refresh: %s", m.browser.AppName(), len(m.tabs), intervalStr)
	if m.scanning {
		top += "  ·  scanning..."
	}
	if m.refreshing {
		top += "  ·  refreshing..."
	}
	topBar := topBarStyle.Render(top)

	listBorder := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Width(max(m.width-4, 20)).
		Height(max(m.height-6, 3))

	var b strings.Builder
	if len(m.tabs) == 0 {
		b.WriteString("  No tabs managed yet. Press 's' to scan for open tabs.\n")
	}
	selectedStyle := lipgloss.NewStyle().Bold(true).Reverse(true)
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	for i, t := range m.tabs {
		line := fmt.Sprintf(" %-40s %-8s %s", truncate(t.Name, 40), t.Browser, scheduleSummary(m.schedules[t.ID.Key()]))
		if r, ok := m.results[t.ID.Key()]; ok {
			if r.Success {
				line += dimStyle.Render("  [ok: " + r.Tier + "]")
			} else {
				line += dimStyle.Render("  [failed]")
			}
		}
		if i == m.cursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	list := listBorder.Render(b.String())

	bottomBarStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Padding(0, 1)
	help := "↑↓/jk navigate · s scan · r refresh · a refresh all · e schedule · x remove · b browser · i interval · +/- adjust · q quit"
	if m.status != "" {
		help = m.status + "  ·  " + help
	}
	bottomBar := bottomBarStyle.Render(help)

	return lipgloss.JoinVertical(lipgloss.Left, topBar, list, bottomBar)
}

func scheduleSummary(entries []string) string {
	if len(entries) == 0 {
		return ""
	}
	if len(entries) <= 3 {
		return strings.Join(entries, " ")
	}
	return fmt.Sprintf("%s +%d more", strings.Join(entries[:3], " "), len(entries)-3)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
