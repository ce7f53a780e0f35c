package discover

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/mlukow/tabrefresh/internal/types"
	"github.com/pierrec/lz4/v4"
)

// firefoxStrategy enumerates tabs from the Firefox session store instead of
// the desktop: Firefox exposes no window-id scripting surface, but its
// recovery file lists every open tab. Ids are window/tab composites, so a
// tab keeps its id across scans as long as it keeps its position.
type firefoxStrategy struct {
	// profileDir overrides profile discovery; used by tests.
	profileDir string
}

func (*firefoxStrategy) Name() string { return "firefox-session" }

func (s *firefoxStrategy) Scan(browser types.BrowserType) ([]types.DiscoveredWindow, error) {
	dir := s.profileDir
	if dir == "" {
		var err error
		dir, err = defaultProfileDir()
		if err != nil {
			return nil, err
		}
	}
	data, err := readSessionFile(dir)
	if err != nil {
		return nil, err
	}
	return parseSession(data)
}

// mozlz4 header: 8-byte magic "mozLz40\x00" + 4-byte LE uncompressed size.
var mozLz4Magic = []byte("mozLz40\x00")

func decompressMozLz4(data []byte) ([]byte, error) {
	const headerSize = 12
	if len(data) < headerSize {
		return nil, fmt.Errorf("mozlz4: data too short (%d bytes)", len(data))
	}
	for i := range mozLz4Magic {
		if data[i] != mozLz4Magic[i] {
			return nil, fmt.Errorf("mozlz4: invalid header magic")
		}
	}
	size := binary.LittleEndian.Uint32(data[8:12])
	dst := make([]byte, size)
	n, err := lz4.UncompressBlock(data[headerSize:], dst)
	if err != nil {
		return nil, fmt.Errorf("mozlz4: decompress failed: %w", err)
	}
	return dst[:n], nil
}

func readSessionFile(profileDir string) ([]byte, error) {
	backupDir := filepath.Join(profileDir, "sessionstore-backups")
	var data []byte
	var err error
	for _, name := range []string{"recovery.jsonlz4", "previous.jsonlz4"} {
		data, err = os.ReadFile(filepath.Join(backupDir, name))
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("no session file found in %s", backupDir)
	}
	return decompressMozLz4(data)
}

type rawEntry struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

type rawTab struct {
	Entries []rawEntry `json:"entries"`
	Index   int        `json:"index"`
}

type rawWindow struct {
	Tabs []rawTab `json:"tabs"`
}

type rawSession struct {
	Windows []rawWindow `json:"windows"`
}

func parseSession(data []byte) ([]types.DiscoveredWindow, error) {
	var raw rawSession
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse session JSON: %w", err)
	}

	var wins []types.DiscoveredWindow
	for wi, window := range raw.Windows {
		for ti, rt := range window.Tabs {
			if len(rt.Entries) == 0 {
				continue
			}
			// index is 1-based; current page is entries[index-1].
			entryIdx := rt.Index - 1
			if entryIdx < 0 || entryIdx >= len(rt.Entries) {
				entryIdx = len(rt.Entries) - 1
			}
			entry := rt.Entries[entryIdx]
			wins = append(wins, types.DiscoveredWindow{
				Title: entry.Title,
				Name:  ExtractName(entry.Title),
				ID:    CompositeID(wi+1, ti+1),
				URL:   entry.URL,
			})
		}
	}
	return wins, nil
}

// defaultProfileDir finds the default Firefox profile via profiles.ini.
func defaultProfileDir() (string, error) {
	base := firefoxDir()
	if base == "" {
		return "", fmt.Errorf("no Firefox directory on %s", runtime.GOOS)
	}
	profiles, err := parseProfilesINI(filepath.Join(base, "profiles.ini"), base)
	if err != nil {
		return "", err
	}
	if len(profiles) == 0 {
		return "", fmt.Errorf("no Firefox profiles found in %s", base)
	}
	for _, p := range profiles {
		if p.isDefault {
			return p.path, nil
		}
	}
	return profiles[0].path, nil
}

func firefoxDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	switch runtime.GOOS {
	case "linux":
		return filepath.Join(home, ".mozilla", "firefox")
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Firefox")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "Mozilla", "Firefox")
	}
	return ""
}

type ffProfile struct {
	path      string
	isDefault bool
}

func parseProfilesINI(iniPath, firefoxDir string) ([]ffProfile, error) {
	f, err := os.Open(iniPath)
	if err != nil {
		return nil, fmt.Errorf("open profiles.ini: %w", err)
	}
	defer f.Close()

	var profiles []ffProfile
	var current *ffProfile
	relative := true

	flush := func() {
		if current != nil && current.path != "" {
			if relative {
				current.path = filepath.Join(firefoxDir, current.path)
			}
			profiles = append(profiles, *current)
		}
		current = nil
		relative = true
	}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			flush()
			if strings.HasPrefix(line[1:len(line)-1], "Profile") {
				current = &ffProfile{}
			}
			continue
		}
		if current == nil {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch key {
		case "Path":
			current.path = value
		case "IsRelative":
			relative = value == "1"
		case "Default":
			current.isDefault = value == "1"
		}
	}
	flush()
	return profiles, scanner.Err()
}
