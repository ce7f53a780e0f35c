// Package discover enumerates open browser windows/tabs across OSes and
// browsers, returning a uniform record shape. A scan is a fresh snapshot of
// the running browser; results are never cached or deduplicated here.
package discover

import (
	"strings"

	"github.com/mlukow/tabrefresh/internal/applog"
	"github.com/mlukow/tabrefresh/internal/types"
)

// Strategy is one way of enumerating browser windows. Strategies have a
// uniform contract so the adapter can run them as an ordered list.
type Strategy interface {
	Name() string
	Scan(browser types.BrowserType) ([]types.DiscoveredWindow, error)
}

// Adapter runs the host platform's strategy, merges in DevTools results for
// Chrome-family browsers, and degrades to deterministic placeholders when a
// strategy fails outright.
type Adapter struct {
	platform Strategy // selected once at startup for the host OS
	firefox  Strategy
	cdp      *CDPStrategy
}

// New builds the adapter for the current host platform. cdpPort <= 0
// disables the DevTools merge.
func New(cdpPort int) *Adapter {
	a := &Adapter{
		platform: hostStrategy(),
		firefox:  &firefoxStrategy{},
	}
	if cdpPort > 0 {
		a.cdp = NewCDPStrategy(cdpPort)
	}
	return a
}

// CDP returns the DevTools strategy, nil when disabled.
func (a *Adapter) CDP() *CDPStrategy {
	return a.cdp
}

// Scan returns the currently open windows/tabs for the given browser.
// Always returns a non-empty-looking result: strategy failure degrades to
// placeholder entries so the UI has something to show in broken
// environments. That fallback is logged, never silent.
func (a *Adapter) Scan(browser types.BrowserType) []types.DiscoveredWindow {
	var primary Strategy = a.platform
	if browser == types.Firefox {
		primary = a.firefox
	}

	wins, err := primary.Scan(browser)
	if err != nil {
		applog.Error("discover.scan", err, "strategy", primary.Name(), "browser", browser)
		wins = Placeholders(browser)
		applog.Warn("discover.placeholders", "browser", browser, "count", len(wins))
	} else {
		applog.Info("discover.scan", "strategy", primary.Name(), "browser", browser, "count", len(wins))
	}

	// DevTools results are merged with, not substituted for, the platform
	// scan. Only the Chrome family speaks the protocol.
	if a.cdp != nil && (browser == types.Chrome || browser == types.Edge) {
		extra, err := a.cdp.Scan(browser)
		if err != nil {
			applog.Debug("discover.cdp.unavailable", "err", err)
		} else {
			wins = append(wins, extra...)
			applog.Info("discover.cdp", "count", len(extra))
		}
	}

	return wins
}

// browserSuffixes are the known " - <Browser>" title endings, tried in order.
var browserSuffixes = []string{
	" - Google Chrome",
	" - Chrome",
	" - Microsoft Edge",
	" - Edge",
	" - Safari",
}

// ExtractName strips the browser-name suffix from a raw window title.
// Unknown titles are split on the first " - "; failing that, returned as-is.
func ExtractName(title string) string {
	for _, suffix := range browserSuffixes {
		if idx := strings.Index(title, suffix); idx >= 0 {
			return strings.TrimSpace(title[:idx])
		}
	}
	if idx := strings.Index(title, " - "); idx >= 0 {
		return strings.TrimSpace(title[:idx])
	}
	return strings.TrimSpace(title)
}

// Placeholders returns the fixed debug/test result set used when a real
// scan is impossible. Ids are synthetic and tagged as hashes so they can
// never collide with native handles.
func Placeholders(browser types.BrowserType) []types.DiscoveredWindow {
	titles := []string{"Google", "GitHub", "Stack Overflow", "YouTube"}
	if browser == types.Edge {
		titles = []string{"Bing", "Microsoft", "GitHub", "YouTube"}
	}
	app := browser.AppName()
	wins := make([]types.DiscoveredWindow, 0, len(titles))
	for i, name := range titles {
		wins = append(wins, types.DiscoveredWindow{
			Title: name + " - " + app,
			Name:  name,
			ID:    types.TabID{Source: types.SourceHash, Value: int64(1000 + i)},
		})
	}
	return wins
}

// matchesBrowser reports whether a raw window title belongs to the vendor.
func matchesBrowser(title string, browser types.BrowserType) bool {
	switch browser {
	case types.Chrome:
		return strings.Contains(title, "Google Chrome") || strings.Contains(title, "Chrome")
	case types.Edge:
		return strings.Contains(title, "Microsoft Edge") || strings.Contains(title, "Edge")
	case types.Safari:
		return strings.Contains(title, "Safari")
	case types.Firefox:
		return strings.Contains(title, "Firefox")
	}
	return false
}

// CompositeID builds the windowIndex*1000+tabIndex scripting id. The tagged
// Scripted source keeps these from colliding with native or DevTools ids.
func CompositeID(windowIndex, tabIndex int) types.TabID {
	return types.TabID{Source: types.SourceScripted, Value: int64(windowIndex)*1000 + int64(tabIndex)}
}
