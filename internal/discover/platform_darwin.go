//go:build darwin

package discover

import (
	"context"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"

	"github.com/mlukow/tabrefresh/internal/osa"
	"github.com/mlukow/tabrefresh/internal/types"
)

func hostStrategy() Strategy { return &appleScriptStrategy{} }

// appleScriptStrategy asks the browser application itself for its windows.
// Chrome-family windows expose a stable window id; Safari addresses tabs by
// nested window/tab indices, so those get composite scripted ids.
type appleScriptStrategy struct{}

func (*appleScriptStrategy) Name() string { return "applescript" }

func (s *appleScriptStrategy) Scan(browser types.BrowserType) ([]types.DiscoveredWindow, error) {
	if browser == types.Safari {
		return s.scanSafari()
	}
	return s.scanWindows(browser)
}

func (*appleScriptStrategy) scanWindows(browser types.BrowserType) ([]types.DiscoveredWindow, error) {
	app := browser.AppName()
	script := fmt.Sprintf(`
tell application %q
	set out to ""
	repeat with w in every window
		set out to out & (id of w) & "," & (name of w) & linefeed
	end repeat
	return out
end tell`, app)

	result, err := osa.Run(context.Background(), script)
	if err != nil {
		return nil, err
	}

	var wins []types.DiscoveredWindow
	for _, line := range strings.Split(result, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ",", 2)
		if len(parts) != 2 {
			continue
		}
		title := strings.TrimSpace(parts[1])
		id, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
		if err != nil {
			// Title-only line; fall back to a content hash id.
			wins = append(wins, types.DiscoveredWindow{
				Title: title,
				Name:  ExtractName(title),
				ID:    hashID(title),
			})
			continue
		}
		wins = append(wins, types.DiscoveredWindow{
			Title: title,
			Name:  ExtractName(title),
			ID:    types.TabID{Source: types.SourceNative, Value: id},
		})
	}
	return wins, nil
}

// scanSafari walks windows and tabs; Safari's automation model has no
// per-window id, so ids are windowIndex*1000+tabIndex composites.
func (*appleScriptStrategy) scanSafari() ([]types.DiscoveredWindow, error) {
	script := `
tell application "Safari"
	set out to ""
	set wi to 1
	repeat with w in every window
		set ti to 1
		repeat with t in every tab of w
			set out to out & wi & "," & ti & "," & (URL of t) & "," & (name of t) & linefeed
			set ti to ti + 1
		end repeat
		set wi to wi + 1
	end repeat
	return out
end tell`

	result, err := osa.Run(context.Background(), script)
	if err != nil {
		return nil, err
	}

	var wins []types.DiscoveredWindow
	for _, line := range strings.Split(result, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ",", 4)
		if len(parts) != 4 {
			continue
		}
		wi, err1 := strconv.Atoi(parts[0])
		ti, err2 := strconv.Atoi(parts[1])
		if err1 != nil || err2 != nil {
			continue
		}
		title := strings.TrimSpace(parts[3])
		wins = append(wins, types.DiscoveredWindow{
			Title: title,
			Name:  ExtractName(title),
			ID:    CompositeID(wi, ti),
			URL:   strings.TrimSpace(parts[2]),
		})
	}
	return wins, nil
}

func hashID(title string) types.TabID {
	h := fnv.New64a()
	h.Write([]byte(title))
	return types.TabID{Source: types.SourceHash, Value: int64(h.Sum64() & 0x7fffffffffffffff)}
}
