//go:build !windows && !darwin

package discover

import (
	"fmt"

	"github.com/mlukow/tabrefresh/internal/types"
)

func hostStrategy() Strategy { return &noopStrategy{} }

// noopStrategy covers hosts without a desktop enumeration path (plain
// Linux); the adapter turns its failure into placeholder entries, matching
// how the original behaved there.
type noopStrategy struct{}

func (*noopStrategy) Name() string { return "none" }

func (*noopStrategy) Scan(browser types.BrowserType) ([]types.DiscoveredWindow, error) {
	return nil, fmt.Errorf("no window enumeration available on this platform")
}
