package sched

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mlukow/tabrefresh/internal/registry"
	"github.com/mlukow/tabrefresh/internal/timenorm"
	"github.com/mlukow/tabrefresh/internal/types"
)

type fakeRefresher struct {
	mu      sync.Mutex
	batches [][]types.TabID
}

func (f *fakeRefresher) RefreshMany(_ context.Context, ids []types.TabID) []types.RefreshResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, append([]types.TabID(nil), ids...))
	results := make([]types.RefreshResult, len(ids))
	for i, id := range ids {
		results[i] = types.RefreshResult{ID: id, Success: true}
	}
	return results
}

func (f *fakeRefresher) batchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

func nativeID(v int64) types.TabID {
	return types.TabID{Source: types.SourceNative, Value: v}
}

func testSetup(t *testing.T) (*registry.Registry, *fakeRefresher, *Scheduler) {
	t.Helper()
	reg := registry.New(filepath.Join(t.TempDir(), "tabs.json"), types.RegistrySnapshot{}, time.Now())
	fake := &fakeRefresher{}
	s := New(reg, fake, types.SchedulerConfig{IntervalSeconds: 300})
	return reg, fake, s
}

func at(h, m, sec int) time.Time {
	return time.Date(2026, 8, 23, h, m, sec, 0, time.Local)
}

func TestCheckDueConsumesOneShot(t *testing.T) {
	reg, fake, s := testSetup(t)
	id := nativeID(101)
	if err := reg.Add(id, "Example", types.Chrome); err != nil {
		t.Fatal(err)
	}
	if err := reg.AddSchedule(id, timenorm.SingleTime("08:00")); err != nil {
		t.Fatal(err)
	}

	due := s.CheckDue(context.Background(), at(8, 0, 0))
	if len(due) != 1 || due[0] != id {
		t.Fatalf("due = %v, want [%v]", due, id)
	}
	if got := reg.Schedule(id); len(got) != 0 {
		t.Errorf("one-shot entry still present after fire: %v", got)
	}
	if fake.batchCount() != 1 {
		t.Errorf("batch count = %d, want 1", fake.batchCount())
	}
}

func TestCheckDueKeepsRepeatingEntry(t *testing.T) {
	reg, _, s := testSetup(t)
	id := nativeID(101)
	if err := reg.Add(id, "Example", types.Chrome); err != nil {
		t.Fatal(err)
	}
	if err := reg.AddSchedule(id, timenorm.SingleTime("*08:00")); err != nil {
		t.Fatal(err)
	}

	due := s.CheckDue(context.Background(), at(8, 0, 0))
	if len(due) != 1 {
		t.Fatalf("due = %v, want one id", due)
	}
	got := reg.Schedule(id)
	if len(got) != 1 || got[0] != "*08:00" {
		t.Errorf("repeating entry changed: %v", got)
	}
}

func TestCheckDueNoRefireWithinSameMinute(t *testing.T) {
	reg, fake, s := testSetup(t)
	id := nativeID(101)
	if err := reg.Add(id, "Example", types.Chrome); err != nil {
		t.Fatal(err)
	}
	if err := reg.AddSchedule(id, timenorm.SingleTime("*08:00")); err != nil {
		t.Fatal(err)
	}

	if due := s.CheckDue(context.Background(), at(8, 0, 1)); len(due) != 1 {
		t.Fatalf("first tick: due = %v", due)
	}
	if due := s.CheckDue(context.Background(), at(8, 0, 2)); len(due) != 0 {
		t.Fatalf("second tick same minute: due = %v, want none", due)
	}
	if fake.batchCount() != 1 {
		t.Errorf("batch count = %d, want 1", fake.batchCount())
	}

	// The next day's (or next minute's) match fires again, even when no
	// other entry fired in between.
	if due := s.CheckDue(context.Background(), at(8, 0, 1).Add(24*time.Hour)); len(due) != 1 {
		t.Errorf("next-day tick: due should fire again")
	}
	if due := s.CheckDue(context.Background(), at(8, 0, 1).Add(48*time.Hour)); len(due) != 1 {
		t.Errorf("second-day tick: due should fire again")
	}
}

func TestCheckDueSecondPrecision(t *testing.T) {
	reg, _, s := testSetup(t)
	id := nativeID(7)
	if err := reg.Add(id, "Example", types.Chrome); err != nil {
		t.Fatal(err)
	}
	if err := reg.AddSchedule(id, timenorm.SingleTime("*08:00:30")); err != nil {
		t.Fatal(err)
	}

	if due := s.CheckDue(context.Background(), at(8, 0, 29)); len(due) != 0 {
		t.Errorf("fired a second early: %v", due)
	}
	if due := s.CheckDue(context.Background(), at(8, 0, 30)); len(due) != 1 {
		t.Error("did not fire at the exact second")
	}
	if due := s.CheckDue(context.Background(), at(8, 0, 31)); len(due) != 0 {
		t.Errorf("fired a second late: %v", due)
	}
}

func TestCheckDueBatchesMultipleTabs(t *testing.T) {
	reg, fake, s := testSetup(t)
	a, b, c := nativeID(1), nativeID(2), nativeID(3)
	for _, id := range []types.TabID{a, b, c} {
		if err := reg.Add(id, "tab", types.Chrome); err != nil {
			t.Fatal(err)
		}
	}
	if err := reg.AddSchedule(a, timenorm.SingleTime("09:00")); err != nil {
		t.Fatal(err)
	}
	if err := reg.AddSchedule(c, timenorm.SingleTime("09:00")); err != nil {
		t.Fatal(err)
	}
	if err := reg.AddSchedule(b, timenorm.SingleTime("10:00")); err != nil {
		t.Fatal(err)
	}

	due := s.CheckDue(context.Background(), at(9, 0, 0))
	if len(due) != 2 {
		t.Fatalf("due = %v, want tabs 1 and 3", due)
	}
	// One batch, not N calls, ordered by registration.
	if fake.batchCount() != 1 {
		t.Fatalf("batch count = %d, want 1", fake.batchCount())
	}
	if due[0] != a || due[1] != c {
		t.Errorf("due order = %v, want [1 3]", due)
	}
	// Tab b's later entry is untouched.
	if got := reg.Schedule(b); len(got) != 1 {
		t.Errorf("tab 2 schedule = %v", got)
	}
}

func TestCheckDueConsumesEvenWhenRefreshFails(t *testing.T) {
	reg := registry.New(filepath.Join(t.TempDir(), "tabs.json"), types.RegistrySnapshot{}, time.Now())
	id := nativeID(5)
	if err := reg.Add(id, "tab", types.Chrome); err != nil {
		t.Fatal(err)
	}
	if err := reg.AddSchedule(id, timenorm.SingleTime("08:00")); err != nil {
		t.Fatal(err)
	}

	s := New(reg, failingRefresher{}, types.SchedulerConfig{})
	s.CheckDue(context.Background(), at(8, 0, 0))
	if got := reg.Schedule(id); len(got) != 0 {
		t.Errorf("one-shot must be consumed regardless of refresh outcome: %v", got)
	}
}

type failingRefresher struct{}

func (failingRefresher) RefreshMany(_ context.Context, ids []types.TabID) []types.RefreshResult {
	results := make([]types.RefreshResult, len(ids))
	for i, id := range ids {
		results[i] = types.RefreshResult{ID: id, Success: false}
	}
	return results
}

func TestCheckDueNothingScheduled(t *testing.T) {
	_, fake, s := testSetup(t)
	if due := s.CheckDue(context.Background(), at(8, 0, 0)); due != nil {
		t.Errorf("due = %v, want nil", due)
	}
	if fake.batchCount() != 0 {
		t.Error("no batch should be dispatched")
	}
}

func TestRefreshAll(t *testing.T) {
	reg, fake, s := testSetup(t)
	for _, v := range []int64{1, 2} {
		if err := reg.Add(nativeID(v), "tab", types.Chrome); err != nil {
			t.Fatal(err)
		}
	}
	results := s.RefreshAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if fake.batchCount() != 1 {
		t.Errorf("batch count = %d, want 1", fake.batchCount())
	}
}

func TestRecorderSeesBatchResults(t *testing.T) {
	reg, _, s := testSetup(t)
	id := nativeID(1)
	if err := reg.Add(id, "tab", types.Chrome); err != nil {
		t.Fatal(err)
	}
	if err := reg.AddSchedule(id, timenorm.SingleTime("08:00")); err != nil {
		t.Fatal(err)
	}

	var recorded []types.RefreshResult
	s.Recorder = func(rs []types.RefreshResult) { recorded = append(recorded, rs...) }
	s.CheckDue(context.Background(), at(8, 0, 0))
	if len(recorded) != 1 || recorded[0].ID != id {
		t.Errorf("recorded = %+v", recorded)
	}
}

func TestSetConfigEnforcesFloor(t *testing.T) {
	_, _, s := testSetup(t)
	s.SetConfig(types.SchedulerConfig{IntervalSeconds: 1, IntervalEnabled: true})
	if got := s.Config().IntervalSeconds; got != types.MinIntervalSeconds {
		t.Errorf("interval = %d, want floor %d", got, types.MinIntervalSeconds)
	}
}

func TestWakeDoesNotRestartIntervalCountdown(t *testing.T) {
	if testing.Short() {
		t.Skip("needs the real 5s interval floor")
	}
	reg, fake, s := testSetup(t)
	if err := reg.Add(nativeID(1), "tab", types.Chrome); err != nil {
		t.Fatal(err)
	}
	s.SetConfig(types.SchedulerConfig{IntervalSeconds: 5, IntervalEnabled: true})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	// Schedule edits wake the run loop. If each wakeup restarted the
	// interval countdown, a 300ms wake drumbeat would keep the 5s tick
	// from ever firing.
	deadline := time.After(8 * time.Second)
	wake := time.NewTicker(300 * time.Millisecond)
	defer wake.Stop()
	for {
		if fake.batchCount() > 0 {
			return
		}
		select {
		case <-wake.C:
			s.Wake()
		case <-deadline:
			t.Fatal("interval tick never fired while the loop was being woken")
		}
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	_, _, s := testSetup(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}
