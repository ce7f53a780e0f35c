// Package osa runs AppleScript through osascript, the macOS
// inter-application scripting facility. Callers treat any failure as a
// recoverable automation miss, never as fatal.
package osa

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds a single osascript invocation. Browser automation
// calls that hang past this are killed rather than blocking the caller.
const DefaultTimeout = 5 * time.Second

// Run executes an AppleScript and returns its trimmed stdout.
func Run(ctx context.Context, script string) (string, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "osascript", "-e", script)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("osascript: %s", msg)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// Keystroke sends a keyboard shortcut through System Events.
// Modifiers use AppleScript names ("command down", "shift down").
func Keystroke(ctx context.Context, key string, modifiers ...string) error {
	script := fmt.Sprintf("tell application %q to keystroke %q", "System Events", key)
	if len(modifiers) > 0 {
		script += " using {" + strings.Join(modifiers, ", ") + "}"
	}
	_, err := Run(ctx, script)
	return err
}

// Activate brings an application to the foreground.
func Activate(ctx context.Context, appName string) error {
	_, err := Run(ctx, fmt.Sprintf("tell application %q to activate", appName))
	return err
}
