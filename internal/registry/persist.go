package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/mlukow/tabrefresh/internal/applog"
	"github.com/mlukow/tabrefresh/internal/types"
)

// saveLockTimeout bounds how long a save waits for a concurrent save to
// finish. On timeout the write proceeds best-effort instead of blocking a
// reentrant caller forever.
const saveLockTimeout = 2 * time.Second

// chanMutex is a mutex that also supports bounded-timeout acquisition.
type chanMutex chan struct{}

func newChanMutex() chanMutex { return make(chanMutex, 1) }

func (m chanMutex) Lock()   { m <- struct{}{} }
func (m chanMutex) Unlock() { <-m }

func (m chanMutex) TryLock(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case m <- struct{}{}:
		return true
	case <-timer.C:
		return false
	}
}

var saveMu = newChanMutex()

// Save persists the current state now. Idempotent and safe to call
// frequently; the periodic write-through timer uses it. I/O failure is
// logged and reported as false, never raised.
func (r *Registry) Save() bool {
	return r.persist(r.Snapshot())
}

func (r *Registry) persist(snap types.RegistrySnapshot) bool {
	if r.path == "" {
		return true // in-memory registry (tests)
	}

	locked := saveMu.TryLock(saveLockTimeout)
	if !locked {
		applog.Warn("registry.save.locktimeout", "path", r.path)
	} else {
		defer saveMu.Unlock()
	}

	if err := writeSnapshot(r.path, snap); err != nil {
		applog.Error("registry.save", err, "path", r.path)
		return false
	}
	applog.Debug("registry.save.ok", "tabs", len(snap.ManagedTabs))
	return true
}

// writeSnapshot writes JSON to a temp file in the target directory and
// renames it into place, so a crash never leaves a truncated file.
func writeSnapshot(path string, snap types.RegistrySnapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tabrefresh-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// ReadSnapshot loads a persisted snapshot from path. A missing file yields
// the zero snapshot, not an error.
func ReadSnapshot(path string) (types.RegistrySnapshot, error) {
	var snap types.RegistrySnapshot
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return snap, nil
		}
		return snap, err
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return types.RegistrySnapshot{}, err
	}
	return snap, nil
}
