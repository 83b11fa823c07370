package sessionguard

import (
	"context"
	"time"

	"github.com/kovrenik/sessionguard/verify"
)

// StartRevalidation launches the background loop that re-checks the cached
// session every Revalidate.Interval while one is held. A failed check clears
// the store immediately — no grace period — and fires the expiry callback
// registered via [Builder.WithSessionExpiredFunc]. Repeated calls are no-ops;
// Close stops the loop.
func (g *Guard) StartRevalidation(ctx context.Context) {
	if g == nil || g.closed.Load() || !g.config.Revalidate.Enabled {
		return
	}
	g.loopOnce.Do(func() {
		g.loopGroup.Add(1)
		go g.revalidateLoop(ctx)
	})
}

// Wake triggers an immediate off-schedule revalidation pass. The gateway
// calls it when a client reconnects after being away, the server-side
// analogue of a page regaining visibility. A pass already in flight absorbs
// the wake; the validator's single-flight collapses any overlap into one
// network call.
func (g *Guard) Wake() {
	if g == nil || g.closed.Load() {
		return
	}
	select {
	case g.loopWake <- struct{}{}:
	default:
	}
}

func (g *Guard) revalidateLoop(ctx context.Context) {
	defer g.loopGroup.Done()

	ticker := time.NewTicker(g.config.Revalidate.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.RevalidateNow(ctx)
		case <-g.loopWake:
			g.RevalidateNow(ctx)
		case <-g.loopDone:
			return
		case <-ctx.Done():
			return
		}
	}
}

// RevalidateNow re-runs the validator against the cached token, skipping the
// route computation entirely. It reports whether a valid session remains.
// Absence is not failure: with nothing cached there is nothing to expire.
func (g *Guard) RevalidateNow(ctx context.Context) bool {
	if g == nil || g.closed.Load() {
		return false
	}

	token, err := g.store.GetToken(ctx)
	if err != nil {
		g.logger.Warn("guard: revalidation store read", "error", err)
		return false
	}
	if token == "" {
		return false
	}

	res := g.verifier.Validate(ctx, token)
	g.meterVerify(res)

	switch res.Status {
	case verify.StatusOK:
		fresh := res.User.Clone()
		fresh.RefreshedAt = time.Now().Unix()
		if cur, err := g.store.Get(ctx); err == nil && cur != nil {
			fresh.IssuedAt = cur.IssuedAt
		}
		if err := g.store.Refresh(ctx, fresh); err != nil {
			g.logger.Warn("guard: revalidation refresh", "error", err)
		}
		return true

	case verify.StatusNetworkError:
		if g.config.LenientOnNetworkError {
			g.logger.Warn("guard: revalidation unreachable, keeping session",
				"attempts", res.Attempts, "error", res.Err)
			return true
		}
	}

	if err := g.store.Clear(ctx); err != nil {
		g.logger.Warn("guard: revalidation clear", "error", err)
	}
	g.metrics.Inc(MetricRevalidateExpired)
	g.audit.Emit(ctx, AuditEvent{
		EventType: AuditRevalidateExpired,
		Error:     errString(res.Err),
	})
	if g.onSessionExpired != nil {
		g.onSessionExpired()
	}
	return false
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
