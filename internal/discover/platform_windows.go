//go:build windows

package discover

import (
	"github.com/mlukow/tabrefresh/internal/types"
	"github.com/mlukow/tabrefresh/internal/win32"
)

func hostStrategy() Strategy { return &win32Strategy{} }

// win32Strategy enumerates top-level desktop windows and keeps the ones
// whose title carries the vendor's identifier. The native HWND is the id.
type win32Strategy struct{}

func (*win32Strategy) Name() string { return "win32" }

func (*win32Strategy) Scan(browser types.BrowserType) ([]types.DiscoveredWindow, error) {
	all, err := win32.EnumWindows()
	if err != nil {
		return nil, err
	}
	var wins []types.DiscoveredWindow
	for _, w := range all {
		if !matchesBrowser(w.Title, browser) {
			continue
		}
		wins = append(wins, types.DiscoveredWindow{
			Title: w.Title,
			Name:  ExtractName(w.Title),
			ID:    types.TabID{Source: types.SourceNative, Value: int64(w.Handle)},
		})
	}
	return wins, nil
}
