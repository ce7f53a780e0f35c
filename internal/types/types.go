package types

import (
	"fmt"
	"time"
)

// BrowserType identifies a supported browser vendor.
type BrowserType string

const (
	Chrome  BrowserType = "chrome"
	Firefox BrowserType = "firefox"
	Edge    BrowserType = "edge"
	Safari  BrowserType = "safari"
)

// KnownBrowsers is the fixed vendor set, in display order.
var KnownBrowsers = []BrowserType{Chrome, Firefox, Edge, Safari}

// Valid reports whether b is one of the supported vendors.
func (b BrowserType) Valid() bool {
	switch b {
	case Chrome, Firefox, Edge, Safari:
		return true
	}
	return false
}

// AppName returns the OS application name used for scripting automation.
func (b BrowserType) AppName() string {
	switch b {
	case Chrome:
		return "Google Chrome"
	case Edge:
		return "Microsoft Edge"
	case Safari:
		return "Safari"
	case Firefox:
		return "Firefox"
	}
	return string(b)
}

// IDSource says where a window/tab identifier came from. Ids from different
// sources never compare equal even when the numeric value collides (a scripted
// windowIndex*1000+tabIndex composite can land on a native handle value).
type IDSource int

const (
	SourceNative   IDSource = iota // native window handle
	SourceScripted                 // windowIndex*1000 + tabIndex composite
	SourceDebug                    // DevTools debugging endpoint
	SourceHash                     // stable hash fallback
)

func (s IDSource) String() string {
	switch s {
	case SourceNative:
		return "native"
	case SourceScripted:
		return "scripted"
	case SourceDebug:
		return "debug"
	case SourceHash:
		return "hash"
	}
	return "unknown"
}

// ParseIDSource is the inverse of IDSource.String. Unknown names map to
// SourceNative, which matches snapshots written before sources existed.
func ParseIDSource(s string) IDSource {
	switch s {
	case "scripted":
		return SourceScripted
	case "debug":
		return SourceDebug
	case "hash":
		return SourceHash
	}
	return SourceNative
}

// TabID is a tagged window/tab identifier.
type TabID struct {
	Source IDSource
	Value  int64
}

func (id TabID) String() string {
	return fmt.Sprintf("%s:%d", id.Source, id.Value)
}

// Key returns the schedule-map key for this id. Native ids keep the bare
// numeric form the original file format used; other sources are prefixed.
func (id TabID) Key() string {
	if id.Source == SourceNative {
		return fmt.Sprintf("%d", id.Value)
	}
	return id.String()
}

// ManagedTab is a browser window/tab the user registered for automated refresh.
// Name is the display label captured at discovery time; it is not live-updated.
type ManagedTab struct {
	ID      TabID
	Name    string
	Browser BrowserType
}

// DiscoveredWindow is one result of a discovery scan. Transient; never persisted.
type DiscoveredWindow struct {
	Title string // raw window title
	Name  string // title with the browser suffix stripped
	ID    TabID
	URL   string // optional; only some strategies know it
}

// RefreshResult is the per-tab outcome of a batch refresh.
type RefreshResult struct {
	ID      TabID
	Name    string
	Browser BrowserType
	Success bool
	Tier    string // name of the dispatch tier that succeeded, "" on failure
}

// RegistrySnapshot is the persisted unit: current vendor selection, managed
// tabs in registration order, and the schedule map keyed by stringified id.
type RegistrySnapshot struct {
	BrowserType BrowserType         `json:"browser_type"`
	ManagedTabs []SnapshotTab       `json:"managed_tabs"`
	Schedules   map[string][]string `json:"scheduled_refreshes,omitempty"`
}

// SnapshotTab is the wire form of a ManagedTab.
type SnapshotTab struct {
	ID      int64       `json:"id"`
	Source  string      `json:"source,omitempty"`
	Name    string      `json:"name"`
	Browser BrowserType `json:"browser_type"`
}

// SchedulerConfig is the explicit interval-mode state. No ambient globals.
type SchedulerConfig struct {
	IntervalSeconds int  // interval-mode period; floored at MinIntervalSeconds
	IntervalEnabled bool // whether interval mode runs at all
}

// MinIntervalSeconds is the enforced floor for interval-mode refresh.
const MinIntervalSeconds = 5

// DefaultIntervalSeconds matches the original default of five minutes.
const DefaultIntervalSeconds = 300

// Clamped returns the config with the interval floor applied.
func (c SchedulerConfig) Clamped() SchedulerConfig {
	if c.IntervalSeconds < MinIntervalSeconds {
		c.IntervalSeconds = MinIntervalSeconds
	}
	return c
}

// Interval returns the interval as a duration, floor applied.
func (c SchedulerConfig) Interval() time.Duration {
	return time.Duration(c.Clamped().IntervalSeconds) * time.Second
}
