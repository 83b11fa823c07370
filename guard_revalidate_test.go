package sessionguard

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kovrenik/sessionguard/session"
)

func TestRevalidateNowKeepsValidSession(t *testing.T) {
	gt, done := newGuardTest(t, nil, nil)
	defer done()
	gt.seed(t, session.RoleViewer, true)

	if !gt.guard.RevalidateNow(context.Background()) {
		t.Fatal("valid session reported expired")
	}

	cached, err := gt.guard.Store().Get(context.Background())
	if err != nil {
		t.Fatalf("store get: %v", err)
	}
	if cached == nil {
		t.Fatal("session dropped by successful revalidation")
	}
	if cached.RefreshedAt == 0 {
		t.Fatal("revalidation did not refresh bookkeeping")
	}
	if cached.IssuedAt == 0 {
		t.Fatal("revalidation lost IssuedAt")
	}
}

func TestRevalidateNowExpiresRejectedSession(t *testing.T) {
	var expired atomic.Int64
	gt, done := newGuardTest(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}, nil)
	defer done()
	gt.guard.onSessionExpired = func() { expired.Add(1) }
	gt.seed(t, session.RoleViewer, true)

	if gt.guard.RevalidateNow(context.Background()) {
		t.Fatal("rejected session reported valid")
	}
	if expired.Load() != 1 {
		t.Fatalf("expiry callback fired %d times, want 1", expired.Load())
	}

	cached, err := gt.guard.Store().Get(context.Background())
	if err != nil {
		t.Fatalf("store get: %v", err)
	}
	if cached != nil {
		t.Fatalf("rejected session survived: %+v", cached)
	}

	snap := gt.guard.MetricsSnapshot()
	if got := snap.Counters[MetricRevalidateExpired]; got != 1 {
		t.Fatalf("revalidate expired counter = %d", got)
	}
}

func TestRevalidateNowEmptyStoreIsNotExpiry(t *testing.T) {
	var expired atomic.Int64
	gt, done := newGuardTest(t, nil, nil)
	defer done()
	gt.guard.onSessionExpired = func() { expired.Add(1) }

	if gt.guard.RevalidateNow(context.Background()) {
		t.Fatal("empty store reported a valid session")
	}
	if expired.Load() != 0 {
		t.Fatal("expiry callback fired with nothing cached")
	}
	if gt.calls.Load() != 0 {
		t.Fatalf("empty store hit the verify endpoint %d times", gt.calls.Load())
	}
}

func TestRevalidateNowNetworkFailurePolicies(t *testing.T) {
	// Fail-closed: unreachable backend expires the session.
	gt, done := newGuardTest(t, nil, func(cfg *Config) {
		cfg.Verify.BaseURL = "http://127.0.0.1:1"
	})
	gt.seed(t, session.RoleViewer, true)
	if gt.guard.RevalidateNow(context.Background()) {
		t.Fatal("fail-closed revalidation kept an unverifiable session")
	}
	done()

	// Lenient: the cached session outlives the outage.
	gt, done = newGuardTest(t, nil, func(cfg *Config) {
		cfg.Verify.BaseURL = "http://127.0.0.1:1"
		cfg.LenientOnNetworkError = true
	})
	defer done()
	gt.seed(t, session.RoleViewer, true)
	if !gt.guard.RevalidateNow(context.Background()) {
		t.Fatal("lenient revalidation expired the session on a network error")
	}
	cached, err := gt.guard.Store().Get(context.Background())
	if err != nil || cached == nil {
		t.Fatalf("session gone after lenient outage: %v %v", cached, err)
	}
}

func TestWakeTriggersRevalidation(t *testing.T) {
	gt, done := newGuardTest(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}, func(cfg *Config) {
		cfg.Revalidate.Enabled = true
	})
	defer done()
	gt.seed(t, session.RoleViewer, true)

	expired := make(chan struct{}, 1)
	gt.guard.onSessionExpired = func() { expired <- struct{}{} }

	gt.guard.StartRevalidation(context.Background())
	gt.guard.Wake()

	select {
	case <-expired:
	case <-time.After(5 * time.Second):
		t.Fatal("wake never triggered a revalidation pass")
	}

	cached, err := gt.guard.Store().Get(context.Background())
	if err != nil {
		t.Fatalf("store get: %v", err)
	}
	if cached != nil {
		t.Fatal("wake did not expire the rejected session")
	}
}

func TestStartRevalidationRespectsDisabled(t *testing.T) {
	gt, done := newGuardTest(t, nil, nil) // Revalidate.Enabled = false
	defer done()

	gt.guard.StartRevalidation(context.Background())
	gt.guard.Wake() // must not panic or block
}
