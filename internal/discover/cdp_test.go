package discover

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mlukow/tabrefresh/internal/types"
)

const targetsJSON = `[
	{"id": "AAA1", "type": "page", "title": "GitHub - Google Chrome", "url": "https://github.com", "webSocketDebuggerUrl": "ws://127.0.0.1:9222/devtools/page/AAA1"},
	{"id": "BBB2", "type": "background_page", "title": "Extension", "url": "chrome-extension://x"},
	{"id": "CCC3", "type": "page", "title": "Example", "url": "https://example.com", "webSocketDebuggerUrl": "ws://127.0.0.1:9222/devtools/page/CCC3"}
]`

func testCDP(t *testing.T) *CDPStrategy {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/json/list" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(targetsJSON))
	}))
	t.Cleanup(srv.Close)
	c := NewCDPStrategy(0)
	c.base = srv.URL
	return c
}

func TestCDPScanFiltersToPages(t *testing.T) {
	c := testCDP(t)
	wins, err := c.Scan(types.Chrome)
	if err != nil {
		t.Fatal(err)
	}
	if len(wins) != 2 {
		t.Fatalf("got %d windows, want 2 (background page excluded)", len(wins))
	}
	if wins[0].Name != "GitHub" {
		t.Errorf("wins[0].Name = %q, want GitHub", wins[0].Name)
	}
	for _, w := range wins {
		if w.ID.Source != types.SourceDebug {
			t.Errorf("id source = %v, want debug", w.ID.Source)
		}
	}
	// Same target GUID gives the same id on every scan.
	if wins[0].ID != DebugID("AAA1") {
		t.Errorf("id = %v, want DebugID(AAA1)", wins[0].ID)
	}
}

func TestCDPResolve(t *testing.T) {
	c := testCDP(t)
	target, ok := c.Resolve(DebugID("CCC3"))
	if !ok {
		t.Fatal("expected to resolve CCC3")
	}
	if target.WebSocketDebuggerURL != "ws://127.0.0.1:9222/devtools/page/CCC3" {
		t.Errorf("ws url = %q", target.WebSocketDebuggerURL)
	}

	if _, ok := c.Resolve(DebugID("missing")); ok {
		t.Error("unknown target should not resolve")
	}
	if _, ok := c.Resolve(types.TabID{Source: types.SourceNative, Value: 1}); ok {
		t.Error("non-debug id should not resolve")
	}
}

func TestCDPScanErrorWhenEndpointDown(t *testing.T) {
	c := NewCDPStrategy(1) // nothing listens on port 1
	if _, err := c.Scan(types.Chrome); err == nil {
		t.Error("expected error when endpoint is unreachable")
	}
}
