// Package sched drives the two refresh timers: interval mode (reload every
// managed tab every N seconds) and absolute-time mode (a fast poll matching
// wall-clock time against each tab's schedule entries).
package sched

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mlukow/tabrefresh/internal/applog"
	"github.com/mlukow/tabrefresh/internal/registry"
	"github.com/mlukow/tabrefresh/internal/timenorm"
	"github.com/mlukow/tabrefresh/internal/types"
)

// pollInterval is the absolute-time poll period. Sub-minute so that
// second-precision entries fire at their exact second.
const pollInterval = time.Second

// Refresher dispatches a batch reload. Satisfied by *dispatch.Dispatcher.
type Refresher interface {
	RefreshMany(ctx context.Context, ids []types.TabID) []types.RefreshResult
}

// Scheduler polls the registry's schedules and triggers the dispatcher.
type Scheduler struct {
	reg  *registry.Registry
	disp Refresher

	// Recorder, when set, receives every batch's results (history log).
	Recorder func([]types.RefreshResult)

	mu        sync.Mutex
	cfg       types.SchedulerConfig
	lastFired map[string]string // key+"\x00"+entry → date+minute it last fired

	notify chan struct{}
}

// New creates a scheduler with the given interval config.
func New(reg *registry.Registry, disp Refresher, cfg types.SchedulerConfig) *Scheduler {
	return &Scheduler{
		reg:       reg,
		disp:      disp,
		cfg:       cfg.Clamped(),
		lastFired: make(map[string]string),
		notify:    make(chan struct{}, 1),
	}
}

// Config returns the current interval config.
func (s *Scheduler) Config() types.SchedulerConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// SetConfig replaces the interval config. Takes effect on the next loop
// turn; the floor is enforced here.
func (s *Scheduler) SetConfig(cfg types.SchedulerConfig) {
	s.mu.Lock()
	s.cfg = cfg.Clamped()
	s.mu.Unlock()
	s.Wake()
}

// Wake nudges the run loop to re-evaluate its timers. Call after schedule
// entries are added or removed so the poll timer starts or stops.
func (s *Scheduler) Wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Run blocks, firing refreshes until ctx is cancelled. The absolute-time
// poll timer only runs while at least one schedule entry exists; interval
// mode only while enabled. In-flight refreshes are not cancelled on exit.
func (s *Scheduler) Run(ctx context.Context) {
	var intervalTicker *time.Ticker
	var intervalC <-chan time.Time
	var armedInterval time.Duration
	var pollTicker *time.Ticker
	var pollC <-chan time.Time

	stopTickers := func() {
		if intervalTicker != nil {
			intervalTicker.Stop()
		}
		if pollTicker != nil {
			pollTicker.Stop()
		}
	}
	defer stopTickers()

	arm := func() {
		cfg := s.Config()
		if cfg.IntervalEnabled {
			if intervalTicker == nil {
				intervalTicker = time.NewTicker(cfg.Interval())
				intervalC = intervalTicker.C
				armedInterval = cfg.Interval()
				applog.Info("sched.interval.start", "seconds", cfg.IntervalSeconds)
			} else if cfg.Interval() != armedInterval {
				// Resetting restarts the countdown; unrelated wakeups
				// (schedule edits) must not push the next tick out.
				intervalTicker.Reset(cfg.Interval())
				armedInterval = cfg.Interval()
			}
		} else if intervalTicker != nil {
			intervalTicker.Stop()
			intervalTicker, intervalC = nil, nil
			applog.Info("sched.interval.stop")
		}

		if s.reg.HasSchedules() {
			if pollTicker == nil {
				pollTicker = time.NewTicker(pollInterval)
				pollC = pollTicker.C
				applog.Info("sched.poll.start")
			}
		} else if pollTicker != nil {
			pollTicker.Stop()
			pollTicker, pollC = nil, nil
			applog.Info("sched.poll.stop")
		}
	}
	arm()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.notify:
			arm()
		case <-intervalC:
			s.RefreshAll(ctx)
		case <-pollC:
			s.CheckDue(ctx, time.Now())
			arm() // consuming the last one-shot entry stops the poll
		}
	}
}

// RefreshAll dispatches every managed tab in one batch.
func (s *Scheduler) RefreshAll(ctx context.Context) []types.RefreshResult {
	ids := s.reg.IDs()
	if len(ids) == 0 {
		return nil
	}
	results := s.disp.RefreshMany(ctx, ids)
	s.record(results)
	return results
}

// CheckDue runs one absolute-time polling pass: collect every tab with an
// entry matching now, dispatch them together as a single batch, then delete
// the one-shot entries that fired — regardless of per-tab refresh outcome.
// Returns the ids refreshed this tick.
func (s *Scheduler) CheckDue(ctx context.Context, now time.Time) []types.TabID {
	schedules := s.reg.Schedules()
	if len(schedules) == 0 {
		return nil
	}

	// The dedup stamp carries the date: yesterday's 08:00 firing must not
	// suppress today's.
	minute := now.Format("2006-01-02 15:04")
	fired := make(map[string][]string)
	for key, times := range schedules {
		var hit []string
		for _, stored := range times {
			if !timenorm.Matches(stored, now) {
				continue
			}
			if s.alreadyFired(key, stored, minute) {
				continue
			}
			hit = append(hit, stored)
		}
		if len(hit) > 0 {
			fired[key] = hit
		}
	}
	if len(fired) == 0 {
		return nil
	}

	ids := s.dueIDs(fired)
	applog.Info("sched.due", "tabs", len(ids), "at", now.Format("15:04:05"))

	results := s.disp.RefreshMany(ctx, ids)
	s.reg.Consume(fired)
	s.markFired(fired, minute)
	s.record(results)
	return ids
}

// dueIDs orders the due keys by registration order, unmanaged keys after,
// and drops keys that cannot be parsed back into an id.
func (s *Scheduler) dueIDs(fired map[string][]string) []types.TabID {
	pending := make(map[string]bool, len(fired))
	for key := range fired {
		pending[key] = true
	}

	var ids []types.TabID
	for _, id := range s.reg.IDs() {
		if pending[id.Key()] {
			ids = append(ids, id)
			delete(pending, id.Key())
		}
	}

	var rest []string
	for key := range pending {
		rest = append(rest, key)
	}
	sort.Strings(rest)
	for _, key := range rest {
		id, err := registry.ParseKey(key)
		if err != nil {
			applog.Warn("sched.badkey", "key", key)
			delete(fired, key)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// alreadyFired dedupes minute-granularity entries: with a sub-minute poll
// the same HH:MM would otherwise match on every tick of its minute. The
// stamp is date-qualified, so it only ever matches within that one minute.
func (s *Scheduler) alreadyFired(key, stored, stamp string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFired[key+"\x00"+stored] == stamp
}

func (s *Scheduler) markFired(fired map[string][]string, stamp string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Entries stamped with any earlier minute can't refire; drop them.
	for k, m := range s.lastFired {
		if m != stamp {
			delete(s.lastFired, k)
		}
	}
	for key, times := range fired {
		for _, stored := range times {
			s.lastFired[key+"\x00"+stored] = stamp
		}
	}
}

func (s *Scheduler) record(results []types.RefreshResult) {
	if s.Recorder != nil && len(results) > 0 {
		s.Recorder(results)
	}
}
