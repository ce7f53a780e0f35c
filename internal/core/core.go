// Package core ties registry, discovery, dispatch, scheduling, and history
// together behind the surface the TUI and CLI call. Registry failures are
// absorbed here: mutating operations report a boolean and log the cause, so
// callers never branch on error types.
package core

import (
	"context"
	"database/sql"
	"time"

	"github.com/mlukow/tabrefresh/internal/applog"
	"github.com/mlukow/tabrefresh/internal/discover"
	"github.com/mlukow/tabrefresh/internal/dispatch"
	"github.com/mlukow/tabrefresh/internal/history"
	"github.com/mlukow/tabrefresh/internal/registry"
	"github.com/mlukow/tabrefresh/internal/sched"
	"github.com/mlukow/tabrefresh/internal/timenorm"
	"github.com/mlukow/tabrefresh/internal/titleprobe"
	"github.com/mlukow/tabrefresh/internal/types"
)

// Options configures a Manager.
type Options struct {
	ConfigPath string // registry snapshot file; "" keeps everything in memory
	CDPPort    int    // DevTools port; <= 0 disables the protocol paths
	Probe      bool   // fetch page titles for nameless scan results
	History    *sql.DB // refresh attempt log; nil disables recording
	Config     types.SchedulerConfig
}

// Manager is the application facade.
type Manager struct {
	reg   *registry.Registry
	disc  *discover.Adapter
	disp  *dispatch.Dispatcher
	sched *sched.Scheduler
	db    *sql.DB
	probe bool
}

// New loads the snapshot at opts.ConfigPath and assembles the engine.
// A corrupt snapshot file starts the registry empty rather than failing;
// the old file is overwritten on the next successful save.
func New(opts Options) *Manager {
	snap, err := registry.ReadSnapshot(opts.ConfigPath)
	if err != nil {
		applog.Warn("core.snapshot.unreadable", "path", opts.ConfigPath, "err", err)
		snap = types.RegistrySnapshot{}
	}

	m := &Manager{
		reg:   registry.New(opts.ConfigPath, snap, time.Now()),
		disc:  discover.New(opts.CDPPort),
		db:    opts.History,
		probe: opts.Probe,
	}
	m.disp = dispatch.New(m.reg, m.disc.CDP())
	m.sched = sched.New(m.reg, m.disp, opts.Config)
	if m.db != nil {
		m.sched.Recorder = func(results []types.RefreshResult) {
			m.recordAttempts(results)
		}
	}
	return m
}

// Run blocks driving the scheduler until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	m.sched.Run(ctx)
}

// Scan enumerates open windows/tabs for the given browser. An invalid
// vendor falls back to the current default selection.
func (m *Manager) Scan(browser types.BrowserType) []types.DiscoveredWindow {
	if !browser.Valid() {
		browser = m.reg.Browser()
	}
	wins := m.disc.Scan(browser)
	if m.probe {
		wins = titleprobe.Enrich(wins)
	}
	return wins
}

// Add registers a tab for management. A zero id with a non-empty name gets
// a stable hash id; duplicates and unknown vendors report false.
func (m *Manager) Add(id types.TabID, name string, browser types.BrowserType) bool {
	if id == (types.TabID{}) && name != "" {
		id = registry.HashID(browser, name, time.Now())
	}
	if err := m.reg.Add(id, name, browser); err != nil {
		applog.Warn("core.add", "id", id, "err", err)
		return false
	}
	return true
}

// AddDiscovered registers a scan result under the given vendor.
func (m *Manager) AddDiscovered(w types.DiscoveredWindow, browser types.BrowserType) bool {
	name := w.Name
	if name == "" {
		name = discover.ExtractName(w.Title)
	}
	return m.Add(w.ID, name, browser)
}

// Remove unregisters a tab and drops its schedule entries.
func (m *Manager) Remove(id types.TabID) bool {
	if err := m.reg.Remove(id); err != nil {
		applog.Warn("core.remove", "id", id, "err", err)
		return false
	}
	m.sched.Wake()
	return true
}

// List returns the managed tabs in registration order.
func (m *Manager) List() []types.ManagedTab {
	return m.reg.List()
}

// Browser returns the current default vendor.
func (m *Manager) Browser() types.BrowserType {
	return m.reg.Browser()
}

// SetBrowserType changes the default vendor selection.
func (m *Manager) SetBrowserType(b types.BrowserType) bool {
	if err := m.reg.SetBrowser(b); err != nil {
		applog.Warn("core.browser", "type", b, "err", err)
		return false
	}
	return true
}

// RefreshOne reloads a single tab.
func (m *Manager) RefreshOne(ctx context.Context, id types.TabID) bool {
	results := m.RefreshMany(ctx, []types.TabID{id})
	return len(results) == 1 && results[0].Success
}

// RefreshMany reloads tabs as one batch and records the attempts.
func (m *Manager) RefreshMany(ctx context.Context, ids []types.TabID) []types.RefreshResult {
	results := m.disp.RefreshMany(ctx, ids)
	m.recordAttempts(results)
	return results
}

// RefreshAll reloads every managed tab.
func (m *Manager) RefreshAll(ctx context.Context) []types.RefreshResult {
	return m.RefreshMany(ctx, m.reg.IDs())
}

// AddScheduleEntry merges the input's times into id's schedule.
func (m *Manager) AddScheduleEntry(id types.TabID, in timenorm.ScheduleInput) bool {
	if err := m.reg.AddSchedule(id, in); err != nil {
		applog.Warn("core.schedule.add", "id", id, "err", err)
		return false
	}
	m.sched.Wake()
	return true
}

// RemoveScheduleEntry removes one stored entry from id's schedule.
func (m *Manager) RemoveScheduleEntry(id types.TabID, stored string) bool {
	if err := m.reg.RemoveSchedule(id, stored); err != nil {
		applog.Warn("core.schedule.remove", "id", id, "time", stored, "err", err)
		return false
	}
	m.sched.Wake()
	return true
}

// ClearSchedule removes every entry for id.
func (m *Manager) ClearSchedule(id types.TabID) bool {
	if err := m.reg.RemoveSchedule(id, ""); err != nil {
		applog.Warn("core.schedule.clear", "id", id, "err", err)
		return false
	}
	m.sched.Wake()
	return true
}

// GetSchedule returns id's stored entries, empty when none.
func (m *Manager) GetSchedule(id types.TabID) []string {
	return m.reg.Schedule(id)
}

// Schedules returns every tab's stored entries keyed by id.
func (m *Manager) Schedules() map[string][]string {
	return m.reg.Schedules()
}

// CheckDue runs one absolute-time polling pass against now.
func (m *Manager) CheckDue(ctx context.Context, now time.Time) []types.TabID {
	return m.sched.CheckDue(ctx, now)
}

// Config returns the scheduler's interval config.
func (m *Manager) Config() types.SchedulerConfig {
	return m.sched.Config()
}

// SetConfig replaces the scheduler's interval config.
func (m *Manager) SetConfig(cfg types.SchedulerConfig) {
	m.sched.SetConfig(cfg)
}

// Snapshot returns the current persisted state.
func (m *Manager) Snapshot() types.RegistrySnapshot {
	return m.reg.Snapshot()
}

// LoadSnapshot replaces all registry state with snap.
func (m *Manager) LoadSnapshot(snap types.RegistrySnapshot) {
	m.reg.Reload(snap, time.Now())
	m.sched.Wake()
}

// Save persists the current state immediately.
func (m *Manager) Save() bool {
	return m.reg.Save()
}

// RecentAttempts returns the newest recorded refresh attempts.
func (m *Manager) RecentAttempts(limit int) []history.Attempt {
	if m.db == nil {
		return nil
	}
	attempts, err := history.Recent(m.db, limit)
	if err != nil {
		applog.Warn("core.history.recent", "err", err)
		return nil
	}
	return attempts
}

// LastSuccess returns when id last refreshed successfully, zero when never.
func (m *Manager) LastSuccess(id types.TabID) time.Time {
	if m.db == nil {
		return time.Time{}
	}
	at, err := history.LastSuccess(m.db, id.Key())
	if err != nil {
		applog.Warn("core.history.last", "id", id, "err", err)
		return time.Time{}
	}
	return at
}

func (m *Manager) recordAttempts(results []types.RefreshResult) {
	if m.db == nil || len(results) == 0 {
		return
	}
	if err := history.Record(m.db, results, time.Now()); err != nil {
		applog.Warn("core.history.record", "err", err)
	}
}
