// Package registry owns the durable set of managed tabs and their refresh
// schedules. One mutex guards both the tab list and the schedule map; the
// scheduler's timer goroutine and UI edits race on them otherwise.
package registry

import (
	"errors"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"time"

	"github.com/mlukow/tabrefresh/internal/applog"
	"github.com/mlukow/tabrefresh/internal/timenorm"
	"github.com/mlukow/tabrefresh/internal/types"
)

var (
	ErrDuplicate = errors.New("registry: tab already managed")
	ErrNotFound  = errors.New("registry: tab not found")
	ErrBadVendor = errors.New("registry: unknown browser type")
)

// Registry is the in-memory authority for managed tabs. Every mutation
// persists through save(); a failed save keeps memory authoritative and
// only defers durability.
type Registry struct {
	path string

	mu        chanMutex
	browser   types.BrowserType
	tabs      []types.ManagedTab
	schedules map[string][]string // TabID.Key() → stored entries
}

// New creates a registry persisting to path, initialized from snap.
// A zero-value snapshot yields an empty chrome-defaulted registry.
// One-shot entries already past now are pruned (stale schedule GC).
func New(path string, snap types.RegistrySnapshot, now time.Time) *Registry {
	r := &Registry{
		path:      path,
		mu:        newChanMutex(),
		browser:   types.Chrome,
		schedules: make(map[string][]string),
	}
	r.load(snap, now)
	return r
}

func (r *Registry) load(snap types.RegistrySnapshot, now time.Time) {
	if snap.BrowserType.Valid() {
		r.browser = snap.BrowserType
	}
	for _, st := range snap.ManagedTabs {
		r.tabs = append(r.tabs, types.ManagedTab{
			ID:      types.TabID{Source: types.ParseIDSource(st.Source), Value: st.ID},
			Name:    st.Name,
			Browser: st.Browser,
		})
	}
	for key, times := range snap.Schedules {
		var kept []string
		for _, raw := range times {
			e, err := timenorm.Normalize(raw)
			if err != nil {
				applog.Warn("registry.load.badtime", "key", key, "time", raw)
				continue
			}
			stored := e.Stored()
			if !e.Repeating && timenorm.PastToday(stored, now) {
				applog.Debug("registry.load.stale", "key", key, "time", stored)
				continue
			}
			kept = append(kept, stored)
		}
		if len(kept) > 0 {
			r.schedules[key] = kept
		}
	}
	applog.Info("registry.load", "tabs", len(r.tabs), "schedules", len(r.schedules))
}

// Reload replaces the registry's state with snap (stale one-shot entries
// pruned against now) and persists the result.
func (r *Registry) Reload(snap types.RegistrySnapshot, now time.Time) {
	r.mu.Lock()
	r.browser = types.Chrome
	r.tabs = nil
	r.schedules = make(map[string][]string)
	r.load(snap, now)
	out := r.snapshotLocked()
	r.mu.Unlock()
	r.persist(out)
}

// Snapshot returns the current persisted unit. Safe for concurrent use.
func (r *Registry) Snapshot() types.RegistrySnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Registry) snapshotLocked() types.RegistrySnapshot {
	snap := types.RegistrySnapshot{
		BrowserType: r.browser,
		ManagedTabs: make([]types.SnapshotTab, 0, len(r.tabs)),
		Schedules:   make(map[string][]string, len(r.schedules)),
	}
	for _, t := range r.tabs {
		st := types.SnapshotTab{ID: t.ID.Value, Name: t.Name, Browser: t.Browser}
		if t.ID.Source != types.SourceNative {
			st.Source = t.ID.Source.String()
		}
		snap.ManagedTabs = append(snap.ManagedTabs, st)
	}
	for k, v := range r.schedules {
		snap.Schedules[k] = append([]string(nil), v...)
	}
	return snap
}

// Add registers a tab. Duplicate (id, browser) pairs are rejected.
func (r *Registry) Add(id types.TabID, name string, browser types.BrowserType) error {
	if !browser.Valid() {
		return fmt.Errorf("%w: %q", ErrBadVendor, browser)
	}
	r.mu.Lock()
	for _, t := range r.tabs {
		if t.ID == id && t.Browser == browser {
			r.mu.Unlock()
			return ErrDuplicate
		}
	}
	r.tabs = append(r.tabs, types.ManagedTab{ID: id, Name: name, Browser: browser})
	snap := r.snapshotLocked()
	r.mu.Unlock()

	applog.Info("registry.add", "id", id, "name", name, "browser", browser)
	r.persist(snap)
	return nil
}

// Remove drops the first tab matching id, browser-type-agnostic.
// The tab's schedule entries go with it.
func (r *Registry) Remove(id types.TabID) error {
	r.mu.Lock()
	idx := -1
	for i, t := range r.tabs {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		r.mu.Unlock()
		return ErrNotFound
	}
	r.tabs = append(r.tabs[:idx], r.tabs[idx+1:]...)
	delete(r.schedules, id.Key())
	snap := r.snapshotLocked()
	r.mu.Unlock()

	applog.Info("registry.remove", "id", id)
	r.persist(snap)
	return nil
}

// List returns the managed tabs in registration order.
func (r *Registry) List() []types.ManagedTab {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]types.ManagedTab(nil), r.tabs...)
}

// IDs returns every managed tab id in registration order.
func (r *Registry) IDs() []types.TabID {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]types.TabID, len(r.tabs))
	for i, t := range r.tabs {
		ids[i] = t.ID
	}
	return ids
}

// Lookup returns the managed tab for id, if any.
func (r *Registry) Lookup(id types.TabID) (types.ManagedTab, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tabs {
		if t.ID == id {
			return t, true
		}
	}
	return types.ManagedTab{}, false
}

// Browser returns the current default vendor selection.
func (r *Registry) Browser() types.BrowserType {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.browser
}

// SetBrowser changes the default vendor. Only the fixed set is accepted.
func (r *Registry) SetBrowser(b types.BrowserType) error {
	if !b.Valid() {
		return fmt.Errorf("%w: %q", ErrBadVendor, b)
	}
	r.mu.Lock()
	r.browser = b
	snap := r.snapshotLocked()
	r.mu.Unlock()

	applog.Info("registry.browser", "type", b)
	r.persist(snap)
	return nil
}

// AddSchedule merges the input's valid times into id's schedule entries.
// Entries are stored canonical and sorted: one-shot first, repeating after.
func (r *Registry) AddSchedule(id types.TabID, in timenorm.ScheduleInput) error {
	entries, err := timenorm.Expand(in)
	if err != nil {
		return err
	}

	key := id.Key()
	r.mu.Lock()
	existing := r.schedules[key]
	for _, e := range entries {
		stored := e.Stored()
		if !contains(existing, stored) {
			existing = append(existing, stored)
		}
	}
	sortStored(existing)
	r.schedules[key] = existing
	snap := r.snapshotLocked()
	r.mu.Unlock()

	applog.Info("registry.schedule.add", "id", id, "count", len(entries))
	r.persist(snap)
	return nil
}

// RemoveSchedule removes one stored entry, or every entry when stored is "".
// The key is pruned when its list empties.
func (r *Registry) RemoveSchedule(id types.TabID, stored string) error {
	key := id.Key()
	r.mu.Lock()
	times, ok := r.schedules[key]
	if !ok {
		r.mu.Unlock()
		return ErrNotFound
	}
	if stored == "" {
		delete(r.schedules, key)
	} else {
		kept := times[:0]
		found := false
		for _, t := range times {
			if t == stored && !found {
				found = true
				continue
			}
			kept = append(kept, t)
		}
		if !found {
			r.mu.Unlock()
			return ErrNotFound
		}
		if len(kept) == 0 {
			delete(r.schedules, key)
		} else {
			r.schedules[key] = kept
		}
	}
	snap := r.snapshotLocked()
	r.mu.Unlock()

	applog.Info("registry.schedule.remove", "id", id, "time", stored)
	r.persist(snap)
	return nil
}

// Schedule returns id's stored entries, empty when none.
func (r *Registry) Schedule(id types.TabID) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.schedules[id.Key()]...)
}

// Schedules returns a copy of the whole schedule map.
func (r *Registry) Schedules() map[string][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string][]string, len(r.schedules))
	for k, v := range r.schedules {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// HasSchedules reports whether any tab has at least one entry. The scheduler
// gates its poll timer on this.
func (r *Registry) HasSchedules() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.schedules) > 0
}

// Consume removes fired one-shot entries in a single pass. Keys that empty
// out are pruned. Repeating entries are left untouched even when listed.
func (r *Registry) Consume(fired map[string][]string) {
	if len(fired) == 0 {
		return
	}
	r.mu.Lock()
	for key, times := range fired {
		existing, ok := r.schedules[key]
		if !ok {
			continue
		}
		var kept []string
		for _, t := range existing {
			if timenorm.IsRepeating(t) || !contains(times, t) {
				kept = append(kept, t)
			}
		}
		if len(kept) == 0 {
			delete(r.schedules, key)
		} else {
			r.schedules[key] = kept
		}
	}
	snap := r.snapshotLocked()
	r.mu.Unlock()

	r.persist(snap)
}

// ParseKey turns a schedule-map key back into a TabID.
func ParseKey(key string) (types.TabID, error) {
	src := types.SourceNative
	num := key
	if i := strings.IndexByte(key, ':'); i >= 0 {
		src = types.ParseIDSource(key[:i])
		num = key[i+1:]
	}
	v, err := strconv.ParseInt(num, 10, 64)
	if err != nil {
		return types.TabID{}, fmt.Errorf("registry: bad schedule key %q: %w", key, err)
	}
	return types.TabID{Source: src, Value: v}, nil
}

// HashID derives a stable fallback id when discovery could not produce a
// native handle: hash of browser type, name, and the moment of registration.
func HashID(browser types.BrowserType, name string, now time.Time) types.TabID {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%d", browser, name, now.UnixNano())
	return types.TabID{Source: types.SourceHash, Value: int64(h.Sum64() & 0x7fffffffffffffff)}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// sortStored orders one-shot entries first, repeating after, each ascending.
// Matches how the original schedule dialog listed them.
func sortStored(list []string) {
	for i := 1; i < len(list); i++ {
		for j := i; j > 0 && storedLess(list[j], list[j-1]); j-- {
			list[j], list[j-1] = list[j-1], list[j]
		}
	}
}

func storedLess(a, b string) bool {
	ra, rb := timenorm.IsRepeating(a), timenorm.IsRepeating(b)
	if ra != rb {
		return !ra
	}
	return a < b
}
