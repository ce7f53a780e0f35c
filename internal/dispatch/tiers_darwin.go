//go:build darwin

package dispatch

import (
	"context"
	"fmt"

	"github.com/mlukow/tabrefresh/internal/osa"
	"github.com/mlukow/tabrefresh/internal/types"
)

// platformTiers on macOS. Chrome and Edge address windows by id; Safari's
// automation model only knows nested window/tab indices, so it gets its own
// ladder with the set-URL-to-itself technique between the scripted reload
// and the keystroke fallbacks.
func platformTiers(t Target) []Tier {
	if t.Browser == types.Safari {
		return []Tier{
			{Name: "safari-js-reload", Run: safariJSReload},
			{Name: "safari-set-url", Run: safariSetURL},
			{Name: "safari-keystroke", Run: safariSelectAndKeystroke},
			{Name: "blind-keystroke", Run: blindKeystroke},
		}
	}
	return []Tier{
		{Name: "applescript-reload", Run: scriptedReload},
		{Name: "applescript-keystroke", Run: raiseAndKeystroke},
		{Name: "blind-keystroke", Run: blindKeystroke},
	}
}

// scriptedReload tells the browser to reload the active tab of the window
// with the target's id. No focus change, no key injection.
func scriptedReload(ctx context.Context, t Target) error {
	script := fmt.Sprintf(`
tell application %q
	set targetWindow to (every window whose id is %d)
	if length of targetWindow is 0 then error "window not found"
	set windowIndex to index of item 1 of targetWindow
	tell window windowIndex
		tell active tab to reload
	end tell
end tell`, t.Browser.AppName(), t.ID.Value)
	_, err := osa.Run(ctx, script)
	return err
}

// raiseAndKeystroke foregrounds the browser, raises the target window to
// the front, and sends cmd-R through System Events.
func raiseAndKeystroke(ctx context.Context, t Target) error {
	script := fmt.Sprintf(`
tell application %q
	activate
	set targetWindow to (every window whose id is %d)
	if length of targetWindow is 0 then error "window not found"
	set windowIndex to index of item 1 of targetWindow
	set index of window windowIndex to 1
end tell`, t.Browser.AppName(), t.ID.Value)
	if _, err := osa.Run(ctx, script); err != nil {
		return err
	}
	return osa.Keystroke(ctx, "r", "command down")
}

// blindKeystroke is the last resort: foreground the app and inject cmd-R
// with no target validation. May refresh the wrong tab.
func blindKeystroke(ctx context.Context, t Target) error {
	if err := osa.Activate(ctx, t.Browser.AppName()); err != nil {
		return err
	}
	return osa.Keystroke(ctx, "r", "command down")
}

func safariIndices(t Target) (wi, ti int64, err error) {
	if t.ID.Source != types.SourceScripted {
		return 0, 0, fmt.Errorf("id %s is not a window/tab composite", t.ID)
	}
	return t.ID.Value / 1000, t.ID.Value % 1000, nil
}

func safariJSReload(ctx context.Context, t Target) error {
	wi, ti, err := safariIndices(t)
	if err != nil {
		return err
	}
	script := fmt.Sprintf(`
tell application "Safari"
	do JavaScript "location.reload()" in tab %d of window %d
end tell`, ti, wi)
	_, err = osa.Run(ctx, script)
	return err
}

// safariSetURL re-sets the tab's current address to itself, which forces a
// load without the JavaScript permission Safari gates do JavaScript behind.
func safariSetURL(ctx context.Context, t Target) error {
	wi, ti, err := safariIndices(t)
	if err != nil {
		return err
	}
	script := fmt.Sprintf(`
tell application "Safari"
	set theURL to URL of tab %d of window %d
	set URL of tab %d of window %d to theURL
end tell`, ti, wi, ti, wi)
	_, err = osa.Run(ctx, script)
	return err
}

func safariSelectAndKeystroke(ctx context.Context, t Target) error {
	wi, ti, err := safariIndices(t)
	if err != nil {
		return err
	}
	script := fmt.Sprintf(`
tell application "Safari"
	activate
	set current tab of window %d to tab %d of window %d
	set index of window %d to 1
end tell`, wi, ti, wi, wi)
	if _, err := osa.Run(ctx, script); err != nil {
		return err
	}
	return osa.Keystroke(ctx, "r", "command down")
}
