// Package titleprobe derives a display name for a discovered tab whose
// title is missing or is just its URL, by fetching the page and taking the
// readability title. Strictly best-effort: any failure keeps the original.
package titleprobe

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/mlukow/tabrefresh/internal/applog"
	"github.com/mlukow/tabrefresh/internal/types"
)

var skipPrefixes = []string{"about:", "moz-extension:", "file:", "chrome:", "resource:", "data:", "edge:"}

var client = &http.Client{Timeout: 5 * time.Second}

// Probe fetches url and returns the page's readability title.
func Probe(url string) (string, error) {
	for _, prefix := range skipPrefixes {
		if strings.HasPrefix(url, prefix) {
			return "", fmt.Errorf("skipping non-HTTP URL: %s", url)
		}
	}

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("fetch %s: HTTP %d", url, resp.StatusCode)
	}

	article, err := readability.FromReader(resp.Body, nil)
	if err != nil {
		return "", fmt.Errorf("extract title from %s: %w", url, err)
	}
	title := strings.TrimSpace(article.Title)
	if title == "" {
		return "", fmt.Errorf("no title in %s", url)
	}
	return title, nil
}

// Enrich fills in names for windows whose name is empty or just echoes the
// URL. Windows without a URL are left alone.
func Enrich(wins []types.DiscoveredWindow) []types.DiscoveredWindow {
	for i, w := range wins {
		if w.URL == "" || !needsName(w) {
			continue
		}
		title, err := Probe(w.URL)
		if err != nil {
			applog.Debug("titleprobe.skip", "url", w.URL, "err", err)
			continue
		}
		wins[i].Name = title
		if wins[i].Title == "" {
			wins[i].Title = title
		}
	}
	return wins
}

func needsName(w types.DiscoveredWindow) bool {
	name := strings.TrimSpace(w.Name)
	return name == "" || name == w.URL || strings.HasPrefix(name, "http://") || strings.HasPrefix(name, "https://")
}
