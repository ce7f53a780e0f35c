//go:build windows

package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/mlukow/tabrefresh/internal/types"
	"github.com/mlukow/tabrefresh/internal/win32"
)

// platformTiers on Windows: activate the window by handle and send F5;
// if activation is refused, click inside the window to force focus first.
func platformTiers(t Target) []Tier {
	return []Tier{
		{Name: "win32-activate-f5", Run: activateAndRefresh},
		{Name: "win32-click-f5", Run: clickAndRefresh},
	}
}

func findHandle(t Target) (uintptr, error) {
	if t.ID.Source != types.SourceNative {
		return 0, fmt.Errorf("id %s is not a native handle", t.ID)
	}
	hwnd := uintptr(t.ID.Value)
	if !win32.Exists(hwnd) {
		return 0, fmt.Errorf("window %#x no longer exists", hwnd)
	}
	return hwnd, nil
}

func activateAndRefresh(ctx context.Context, t Target) error {
	hwnd, err := findHandle(t)
	if err != nil {
		return err
	}
	if err := win32.Activate(hwnd); err != nil {
		return err
	}
	time.Sleep(200 * time.Millisecond) // let focus settle before the key goes in
	win32.PressF5()
	return nil
}

func clickAndRefresh(ctx context.Context, t Target) error {
	hwnd, err := findHandle(t)
	if err != nil {
		return err
	}
	if err := win32.ClickInside(hwnd); err != nil {
		return err
	}
	time.Sleep(200 * time.Millisecond)
	win32.PressF5()
	return nil
}
