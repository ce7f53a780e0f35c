package discover

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"net/http"
	"time"

	"github.com/mlukow/tabrefresh/internal/types"
)

// CDPStrategy queries a local DevTools debugging endpoint for open tabs.
// Only Chrome-family browsers launched with --remote-debugging-port expose
// it, so availability is probed on every scan and absence is not an error
// worth surfacing.
type CDPStrategy struct {
	port   int
	client *http.Client

	// base overrides the endpoint URL; used by tests.
	base string
}

// NewCDPStrategy targets the conventional local endpoint on the given port.
func NewCDPStrategy(port int) *CDPStrategy {
	return &CDPStrategy{
		port:   port,
		client: &http.Client{Timeout: 3 * time.Second},
	}
}

func (*CDPStrategy) Name() string { return "devtools" }

// Target is one DevTools page target.
type Target struct {
	ID                   string `json:"id"`
	Type                 string `json:"type"`
	Title                string `json:"title"`
	URL                  string `json:"url"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

func (c *CDPStrategy) endpoint() string {
	if c.base != "" {
		return c.base
	}
	return fmt.Sprintf("http://127.0.0.1:%d", c.port)
}

// Targets lists the endpoint's page targets.
func (c *CDPStrategy) Targets() ([]Target, error) {
	resp, err := c.client.Get(c.endpoint() + "/json/list")
	if err != nil {
		return nil, fmt.Errorf("devtools list: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("devtools list: HTTP %d", resp.StatusCode)
	}

	var all []Target
	if err := json.NewDecoder(resp.Body).Decode(&all); err != nil {
		return nil, fmt.Errorf("devtools list: decode: %w", err)
	}
	pages := all[:0]
	for _, t := range all {
		if t.Type == "page" {
			pages = append(pages, t)
		}
	}
	return pages, nil
}

// Scan lists page targets as DiscoveredWindows. Ids hash the DevTools
// target GUID under the Debug source, so they stay stable across scans and
// cannot collide with native or scripted ids.
func (c *CDPStrategy) Scan(browser types.BrowserType) ([]types.DiscoveredWindow, error) {
	targets, err := c.Targets()
	if err != nil {
		return nil, err
	}
	wins := make([]types.DiscoveredWindow, 0, len(targets))
	for _, t := range targets {
		wins = append(wins, types.DiscoveredWindow{
			Title: t.Title,
			Name:  ExtractName(t.Title),
			ID:    DebugID(t.ID),
			URL:   t.URL,
		})
	}
	return wins, nil
}

// Resolve maps a Debug-sourced id back to its current target.
func (c *CDPStrategy) Resolve(id types.TabID) (Target, bool) {
	if id.Source != types.SourceDebug {
		return Target{}, false
	}
	targets, err := c.Targets()
	if err != nil {
		return Target{}, false
	}
	for _, t := range targets {
		if DebugID(t.ID) == id {
			return t, true
		}
	}
	return Target{}, false
}

// DebugID derives the tagged id for a DevTools target GUID.
func DebugID(targetID string) types.TabID {
	h := fnv.New64a()
	h.Write([]byte(targetID))
	return types.TabID{Source: types.SourceDebug, Value: int64(h.Sum64() & 0x7fffffffffffffff)}
}
