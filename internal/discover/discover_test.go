package discover

import (
	"testing"

	"github.com/mlukow/tabrefresh/internal/types"
)

func TestExtractName(t *testing.T) {
	cases := []struct {
		title string
		want  string
	}{
		{"GitHub - Google Chrome", "GitHub"},
		{"GitHub - Chrome", "GitHub"},
		{"Docs - Microsoft Edge", "Docs"},
		{"Docs - Edge", "Docs"},
		{"Apple - Safari", "Apple"},
		{"Some Page - Some Browser", "Some Page"},
		{"No separator here", "No separator here"},
		{"  padded  ", "padded"},
	}
	for _, c := range cases {
		if got := ExtractName(c.title); got != c.want {
			t.Errorf("ExtractName(%q) = %q, want %q", c.title, got, c.want)
		}
	}
}

func TestPlaceholdersAreDeterministic(t *testing.T) {
	a := Placeholders(types.Chrome)
	b := Placeholders(types.Chrome)
	if len(a) == 0 {
		t.Fatal("placeholders should not be empty")
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("placeholder %d differs between calls: %+v vs %+v", i, a[i], b[i])
		}
		if a[i].ID.Source != types.SourceHash {
			t.Errorf("placeholder id source = %v, want hash", a[i].ID.Source)
		}
	}

	edge := Placeholders(types.Edge)
	if edge[0].Name == a[0].Name {
		t.Error("edge placeholders should differ from chrome's")
	}
}

func TestMatchesBrowser(t *testing.T) {
	cases := []struct {
		title   string
		browser types.BrowserType
		want    bool
	}{
		{"GitHub - Google Chrome", types.Chrome, true},
		{"GitHub - Google Chrome", types.Edge, false},
		{"Docs - Microsoft Edge", types.Edge, true},
		{"Apple - Safari", types.Safari, true},
		{"Bugzilla - Mozilla Firefox", types.Firefox, true},
		{"Terminal", types.Chrome, false},
	}
	for _, c := range cases {
		if got := matchesBrowser(c.title, c.browser); got != c.want {
			t.Errorf("matchesBrowser(%q, %s) = %v, want %v", c.title, c.browser, got, c.want)
		}
	}
}

func TestCompositeID(t *testing.T) {
	id := CompositeID(2, 7)
	if id.Source != types.SourceScripted || id.Value != 2007 {
		t.Errorf("CompositeID(2, 7) = %v, want scripted:2007", id)
	}
}

func TestScanFallsBackToPlaceholders(t *testing.T) {
	a := &Adapter{platform: failingStrategy{}, firefox: failingStrategy{}}
	wins := a.Scan(types.Chrome)
	if len(wins) == 0 {
		t.Fatal("scan must degrade to placeholders, not return nothing")
	}
	want := Placeholders(types.Chrome)
	if wins[0] != want[0] {
		t.Errorf("fallback result = %+v, want %+v", wins[0], want[0])
	}
}

type failingStrategy struct{}

func (failingStrategy) Name() string { return "failing" }
func (failingStrategy) Scan(types.BrowserType) ([]types.DiscoveredWindow, error) {
	return nil, errScan
}

var errScan = errType("scan failed")

type errType string

func (e errType) Error() string { return string(e) }
