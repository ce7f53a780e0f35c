// Package dispatch performs the actual reload of a managed tab. Each
// (OS, vendor) pair gets an ordered ladder of tiers — increasingly blunt
// automation techniques tried until one succeeds. Nothing here raises to
// the caller: every failure path resolves to a boolean result.
package dispatch

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mlukow/tabrefresh/internal/applog"
	"github.com/mlukow/tabrefresh/internal/discover"
	"github.com/mlukow/tabrefresh/internal/registry"
	"github.com/mlukow/tabrefresh/internal/types"
)

// attemptTimeout bounds a single tier attempt. A hung OS automation call is
// abandoned rather than stalling the worker pool.
const attemptTimeout = 5 * time.Second

// Target is a resolved refresh target.
type Target struct {
	ID      types.TabID
	Name    string
	Browser types.BrowserType
}

// Tier is one rung of the fallback ladder: a uniform attempt contract the
// dispatcher can iterate without caring what the technique is.
type Tier struct {
	Name string
	Run  func(ctx context.Context, t Target) error
}

// Dispatcher resolves tab identity and runs the reload ladder.
type Dispatcher struct {
	reg *registry.Registry
	cdp *discover.CDPStrategy // nil when the DevTools merge is disabled

	// tiersFor picks the ladder for a target. Overridable in tests.
	tiersFor func(t Target) []Tier
}

// New builds a dispatcher using the host platform's ladders. cdp may be nil.
func New(reg *registry.Registry, cdp *discover.CDPStrategy) *Dispatcher {
	d := &Dispatcher{reg: reg, cdp: cdp}
	d.tiersFor = d.defaultTiers
	return d
}

func (d *Dispatcher) defaultTiers(t Target) []Tier {
	var tiers []Tier
	// A Debug-sourced id can only mean a DevTools target; reload it over
	// the protocol before falling back to window-level techniques.
	if d.cdp != nil && t.ID.Source == types.SourceDebug {
		tiers = append(tiers, d.cdpTier())
	}
	return append(tiers, platformTiers(t)...)
}

// resolve finds name and vendor for an id. Unmanaged ids fall back to the
// registry's current default vendor; no numeric-pattern guessing.
func (d *Dispatcher) resolve(id types.TabID) Target {
	if tab, ok := d.reg.Lookup(id); ok {
		return Target{ID: id, Name: tab.Name, Browser: tab.Browser}
	}
	browser := d.reg.Browser()
	applog.Warn("dispatch.unmanaged", "id", id, "assumed", browser)
	return Target{ID: id, Browser: browser}
}

// RefreshOne reloads a single tab, walking the ladder until a tier
// succeeds. Returns false only when every tier failed.
func (d *Dispatcher) RefreshOne(ctx context.Context, id types.TabID) bool {
	res := d.refresh(ctx, d.resolve(id))
	return res.Success
}

func (d *Dispatcher) refresh(ctx context.Context, t Target) (res types.RefreshResult) {
	res = types.RefreshResult{ID: t.ID, Name: t.Name, Browser: t.Browser}

	// A panicking automation binding must not take sibling tasks down.
	defer func() {
		if r := recover(); r != nil {
			applog.Error("dispatch.panic", fmt.Errorf("%v", r), "id", t.ID)
			res.Success = false
		}
	}()

	for _, tier := range d.tiersFor(t) {
		attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
		err := tier.Run(attemptCtx, t)
		cancel()
		if err == nil {
			applog.Info("dispatch.ok", "id", t.ID, "tier", tier.Name)
			res.Success = true
			res.Tier = tier.Name
			return res
		}
		applog.Warn("dispatch.tier", "id", t.ID, "tier", tier.Name, "err", err)
	}
	applog.Error("dispatch.exhausted", nil, "id", t.ID, "browser", t.Browser)
	return res
}

// RefreshMany reloads tabs concurrently on a bounded worker pool. Results
// come back in the input order no matter how execution interleaves, and an
// individual failure never aborts sibling attempts.
func (d *Dispatcher) RefreshMany(ctx context.Context, ids []types.TabID) []types.RefreshResult {
	results := make([]types.RefreshResult, len(ids))
	if len(ids) == 0 {
		return results
	}

	limit := 4 * runtime.GOMAXPROCS(0)
	if len(ids) < limit {
		limit = len(ids)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, id := range ids {
		g.Go(func() error {
			results[i] = d.refresh(gctx, d.resolve(id))
			return nil // failures are per-slot, never group-fatal
		})
	}
	g.Wait()

	ok := 0
	for _, r := range results {
		if r.Success {
			ok++
		}
	}
	applog.Info("dispatch.batch", "tabs", len(ids), "ok", ok)
	return results
}
