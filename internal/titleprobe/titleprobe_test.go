package titleprobe

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mlukow/tabrefresh/internal/types"
)

const page = `<!doctype html><html><head><title>Release Notes</title></head>
<body><article><h1>Release Notes</h1><p>` +
	`A long enough paragraph of body text so the extractor has content to work with. ` +
	`Another sentence for good measure, because extraction needs real prose.` +
	`</p></article></body></html>`

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(page))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestProbeExtractsTitle(t *testing.T) {
	srv := testServer(t)
	title, err := Probe(srv.URL + "/doc")
	if err != nil {
		t.Fatal(err)
	}
	if title != "Release Notes" {
		t.Errorf("title = %q, want Release Notes", title)
	}
}

func TestProbeFailures(t *testing.T) {
	srv := testServer(t)
	if _, err := Probe(srv.URL + "/missing"); err == nil {
		t.Error("HTTP 404 should fail")
	}
	if _, err := Probe("about:blank"); err == nil {
		t.Error("about: URL should be skipped")
	}
	if _, err := Probe("chrome://settings"); err == nil {
		t.Error("chrome: URL should be skipped")
	}
}

func TestEnrichOnlyTouchesUnnamedWindows(t *testing.T) {
	srv := testServer(t)
	wins := []types.DiscoveredWindow{
		{Name: "Already Named", URL: srv.URL + "/a"},
		{Name: srv.URL + "/b", URL: srv.URL + "/b"}, // name echoes URL
		{Name: "", URL: srv.URL + "/c"},
		{Name: "", URL: ""}, // no URL, nothing to probe
	}
	out := Enrich(wins)
	if out[0].Name != "Already Named" {
		t.Errorf("named window was touched: %q", out[0].Name)
	}
	if out[1].Name != "Release Notes" || out[2].Name != "Release Notes" {
		t.Errorf("unnamed windows not enriched: %q, %q", out[1].Name, out[2].Name)
	}
	if out[3].Name != "" {
		t.Errorf("url-less window was touched: %q", out[3].Name)
	}
}
