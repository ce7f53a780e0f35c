package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mlukow/tabrefresh/internal/history"
	"github.com/mlukow/tabrefresh/internal/timenorm"
	"github.com/mlukow/tabrefresh/internal/types"
)

func newManager(t *testing.T) *Manager {
	t.Helper()
	return New(Options{ConfigPath: filepath.Join(t.TempDir(), "tabs.json")})
}

func nativeID(v int64) types.TabID {
	return types.TabID{Source: types.SourceNative, Value: v}
}

func TestManageScheduleRemoveLifecycle(t *testing.T) {
	m := newManager(t)
	id := nativeID(101)

	if !m.Add(id, "Example", types.Chrome) {
		t.Fatal("add failed")
	}
	if !m.AddScheduleEntry(id, timenorm.SingleTime("23:59")) {
		t.Fatal("schedule add failed")
	}
	if got := m.GetSchedule(id); len(got) != 1 || got[0] != "23:59" {
		t.Fatalf("schedule = %v, want [23:59]", got)
	}
	if !m.Remove(id) {
		t.Fatal("remove failed")
	}
	if got := m.GetSchedule(id); len(got) != 0 {
		t.Errorf("schedule survived removal: %v", got)
	}
	if got := m.List(); len(got) != 0 {
		t.Errorf("list = %v, want empty", got)
	}
}

func TestAddRejectsDuplicatesAndBadVendors(t *testing.T) {
	m := newManager(t)
	id := nativeID(1)

	if !m.Add(id, "tab", types.Chrome) {
		t.Fatal("first add failed")
	}
	if m.Add(id, "tab again", types.Chrome) {
		t.Error("duplicate add reported success")
	}
	if m.Add(nativeID(2), "tab", "netscape") {
		t.Error("unknown vendor reported success")
	}
	if len(m.List()) != 1 {
		t.Errorf("list has %d tabs, want 1", len(m.List()))
	}
}

func TestAddDerivesHashIDForZeroID(t *testing.T) {
	m := newManager(t)
	if !m.Add(types.TabID{}, "Untrackable", types.Chrome) {
		t.Fatal("add failed")
	}
	tabs := m.List()
	if len(tabs) != 1 {
		t.Fatalf("list = %v", tabs)
	}
	if tabs[0].ID.Source != types.SourceHash || tabs[0].ID.Value == 0 {
		t.Errorf("id = %v, want non-zero hash id", tabs[0].ID)
	}
}

func TestScheduleEditorSemantics(t *testing.T) {
	m := newManager(t)
	id := nativeID(7)
	if !m.Add(id, "tab", types.Firefox) {
		t.Fatal("add failed")
	}

	if !m.AddScheduleEntry(id, timenorm.TimeList{"*09:30", "8:05", "not a time"}) {
		t.Fatal("schedule add failed")
	}
	got := m.GetSchedule(id)
	if len(got) != 2 || got[0] != "08:05" || got[1] != "*09:30" {
		t.Fatalf("schedule = %v, want [08:05 *09:30]", got)
	}

	if m.AddScheduleEntry(id, timenorm.TimeList{"nope"}) {
		t.Error("all-invalid input reported success")
	}
	if !m.RemoveScheduleEntry(id, "08:05") {
		t.Fatal("entry remove failed")
	}
	if m.RemoveScheduleEntry(id, "08:05") {
		t.Error("removing a missing entry reported success")
	}
	if !m.ClearSchedule(id) {
		t.Fatal("clear failed")
	}
	if got := m.GetSchedule(id); len(got) != 0 {
		t.Errorf("schedule = %v after clear", got)
	}
}

func TestCheckDueThroughFacade(t *testing.T) {
	m := newManager(t)
	id := nativeID(3)
	if !m.Add(id, "tab", types.Chrome) {
		t.Fatal("add failed")
	}
	if !m.AddScheduleEntry(id, timenorm.SingleTime("12:00")) {
		t.Fatal("schedule add failed")
	}

	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.Local)
	due := m.CheckDue(context.Background(), now)
	if len(due) != 1 || due[0] != id {
		t.Fatalf("due = %v, want [%v]", due, id)
	}
	if got := m.GetSchedule(id); len(got) != 0 {
		t.Errorf("one-shot entry survived firing: %v", got)
	}
}

func TestStateSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tabs.json")
	m := New(Options{ConfigPath: path})
	id := nativeID(42)
	if !m.Add(id, "persistent", types.Edge) {
		t.Fatal("add failed")
	}
	if !m.SetBrowserType(types.Edge) {
		t.Fatal("set browser failed")
	}

	m2 := New(Options{ConfigPath: path})
	if got := m2.List(); len(got) != 1 || got[0].ID != id || got[0].Browser != types.Edge {
		t.Fatalf("reopened list = %v", got)
	}
	if m2.Browser() != types.Edge {
		t.Errorf("browser = %v, want edge", m2.Browser())
	}
}

func TestLoadSnapshotReplacesState(t *testing.T) {
	m := newManager(t)
	if !m.Add(nativeID(1), "old", types.Chrome) {
		t.Fatal("add failed")
	}

	m.LoadSnapshot(types.RegistrySnapshot{
		BrowserType: types.Firefox,
		ManagedTabs: []types.SnapshotTab{{ID: 9, Name: "new", Browser: types.Firefox}},
	})
	tabs := m.List()
	if len(tabs) != 1 || tabs[0].ID != nativeID(9) {
		t.Fatalf("tabs = %v, want only id 9", tabs)
	}
	if m.Browser() != types.Firefox {
		t.Errorf("browser = %v, want firefox", m.Browser())
	}
}

func TestCorruptSnapshotStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tabs.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	m := New(Options{ConfigPath: path})
	if got := m.List(); len(got) != 0 {
		t.Errorf("list = %v, want empty", got)
	}
	if !m.Add(nativeID(1), "tab", types.Chrome) {
		t.Error("add after corrupt load failed")
	}
}

func TestRefreshRecordsHistory(t *testing.T) {
	db, err := history.OpenDB(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	m := New(Options{
		ConfigPath: filepath.Join(t.TempDir(), "tabs.json"),
		History:    db,
	})
	id := nativeID(5)
	if !m.Add(id, "tab", types.Chrome) {
		t.Fatal("add failed")
	}

	results := m.RefreshAll(context.Background())
	if len(results) != 1 {
		t.Fatalf("results = %v", results)
	}
	attempts := m.RecentAttempts(10)
	if len(attempts) != 1 || attempts[0].TabKey != "5" {
		t.Fatalf("attempts = %+v", attempts)
	}
	if results[0].Success && m.LastSuccess(id).IsZero() {
		t.Error("successful refresh left zero last-success time")
	}
}

func TestConfigFloorThroughFacade(t *testing.T) {
	m := newManager(t)
	m.SetConfig(types.SchedulerConfig{IntervalSeconds: 1, IntervalEnabled: true})
	if got := m.Config().IntervalSeconds; got != types.MinIntervalSeconds {
		t.Errorf("interval = %d, want %d", got, types.MinIntervalSeconds)
	}
}
