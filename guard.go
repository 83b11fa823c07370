package sessionguard

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/kovrenik/sessionguard/session"
	"github.com/kovrenik/sessionguard/verify"
)

// Guard is the access gatekeeper. Construct it through [Builder.Build];
// afterwards all methods are safe for concurrent use.
type Guard struct {
	config   Config
	store    *session.Store
	verifier *verify.Client
	audit    *auditDispatcher
	metrics  *Metrics
	logger   *slog.Logger

	onSessionExpired func()

	closed    atomic.Bool
	loopOnce  sync.Once
	loopWake  chan struct{}
	loopDone  chan struct{}
	loopGroup sync.WaitGroup
}

// Store exposes the session store so login handlers can cache the
// credentials the backend issued. The guard remains the only component that
// clears or refreshes sessions on its own authority.
func (g *Guard) Store() *session.Store {
	if g == nil {
		return nil
	}
	return g.store
}

// Close stops the revalidation loop and drains the audit queue. Subsequent
// CheckAccess calls return [ErrGuardClosed].
func (g *Guard) Close() {
	if g == nil || !g.closed.CompareAndSwap(false, true) {
		return
	}
	close(g.loopDone)
	g.loopGroup.Wait()
	if g.audit != nil {
		g.audit.Close()
	}
}

// AuditDropped reports events dropped by the audit dispatcher under
// backpressure.
func (g *Guard) AuditDropped() uint64 {
	if g == nil {
		return 0
	}
	return g.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of all guard metrics.
func (g *Guard) MetricsSnapshot() MetricsSnapshot {
	if g == nil || g.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return g.metrics.Snapshot()
}
