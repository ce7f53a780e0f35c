//go:build windows

// Package win32 wraps the handful of user32 calls needed to enumerate
// top-level windows, bring one to the front, and inject a refresh key.
package win32

import (
	"fmt"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32               = windows.NewLazySystemDLL("user32.dll")
	procEnumWindows      = user32.NewProc("EnumWindows")
	procGetWindowTextW   = user32.NewProc("GetWindowTextW")
	procIsWindowVisible  = user32.NewProc("IsWindowVisible")
	procSetForegroundWnd = user32.NewProc("SetForegroundWindow")
	procShowWindow       = user32.NewProc("ShowWindow")
	procGetWindowRect    = user32.NewProc("GetWindowRect")
	procSetCursorPos     = user32.NewProc("SetCursorPos")
	procMouseEvent       = user32.NewProc("mouse_event")
	procKeybdEvent       = user32.NewProc("keybd_event")
	procIsWindow         = user32.NewProc("IsWindow")
)

const (
	swRestore        = 9
	vkF5             = 0x74
	keyeventfKeyup   = 0x0002
	mouseeventfLDown = 0x0002
	mouseeventfLUp   = 0x0004
)

type rect struct {
	Left, Top, Right, Bottom int32
}

// Window is a visible top-level window.
type Window struct {
	Handle uintptr
	Title  string
}

// EnumWindows lists all visible top-level windows that have a title.
func EnumWindows() ([]Window, error) {
	var wins []Window
	cb := syscall.NewCallback(func(hwnd uintptr, _ uintptr) uintptr {
		visible, _, _ := procIsWindowVisible.Call(hwnd)
		if visible == 0 {
			return 1 // continue
		}
		title := windowTitle(hwnd)
		if title != "" {
			wins = append(wins, Window{Handle: hwnd, Title: title})
		}
		return 1
	})
	ret, _, err := procEnumWindows.Call(cb, 0)
	if ret == 0 {
		return nil, fmt.Errorf("EnumWindows: %v", err)
	}
	return wins, nil
}

func windowTitle(hwnd uintptr) string {
	buf := make([]uint16, 512)
	n, _, _ := procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if n == 0 {
		return ""
	}
	return windows.UTF16ToString(buf[:n])
}

// Exists reports whether the handle still names a window.
func Exists(hwnd uintptr) bool {
	ret, _, _ := procIsWindow.Call(hwnd)
	return ret != 0
}

// Activate restores and foregrounds the window.
func Activate(hwnd uintptr) error {
	procShowWindow.Call(hwnd, swRestore)
	ret, _, _ := procSetForegroundWnd.Call(hwnd)
	if ret == 0 {
		return fmt.Errorf("SetForegroundWindow failed for %#x", hwnd)
	}
	return nil
}

// ClickInside clicks a point inside the window (centered horizontally, just
// below the title bar) to force focus when activation is refused.
func ClickInside(hwnd uintptr) error {
	var r rect
	ret, _, err := procGetWindowRect.Call(hwnd, uintptr(unsafe.Pointer(&r)))
	if ret == 0 {
		return fmt.Errorf("GetWindowRect: %v", err)
	}
	x := r.Left + (r.Right-r.Left)/2
	y := r.Top + 20
	procSetCursorPos.Call(uintptr(x), uintptr(y))
	procMouseEvent.Call(mouseeventfLDown, 0, 0, 0, 0)
	procMouseEvent.Call(mouseeventfLUp, 0, 0, 0, 0)
	return nil
}

// PressF5 injects the refresh key into whichever window has focus.
func PressF5() {
	procKeybdEvent.Call(vkF5, 0, 0, 0)
	time.Sleep(50 * time.Millisecond)
	procKeybdEvent.Call(vkF5, 0, keyeventfKeyup, 0)
}
