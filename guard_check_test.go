package sessionguard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/kovrenik/sessionguard/session"
	"github.com/kovrenik/sessionguard/verify"
)

type guardTest struct {
	guard   *Guard
	mr      *miniredis.Miniredis
	rdb     *redis.Client
	backend *httptest.Server
	calls   atomic.Int64
	logouts atomic.Int64
}

// newGuardTest wires a guard against miniredis and a stub verify backend.
// handler serves the verify endpoint; nil means "accept as viewer u-1".
func newGuardTest(t *testing.T, handler http.HandlerFunc, mutate func(*Config)) (*guardTest, func()) {
	t.Helper()

	gt := &guardTest{}
	if handler == nil {
		handler = func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, verifyOKBody("u-1", "viewer"))
		}
	}
	gt.backend = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case verify.VerifyPath:
			gt.calls.Add(1)
			handler(w, r)
		case verify.LogoutPath:
			gt.logouts.Add(1)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	gt.mr = mr
	gt.rdb = redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := defaultConfig()
	cfg.Verify.BaseURL = gt.backend.URL
	cfg.Verify.Timeout = 2 * time.Second
	cfg.Verify.RetryStep = time.Millisecond
	cfg.Revalidate.Enabled = false
	if mutate != nil {
		mutate(&cfg)
	}

	guard, err := New().WithConfig(cfg).WithRedis(gt.rdb).Build()
	if err != nil {
		t.Fatalf("build guard: %v", err)
	}
	gt.guard = guard

	return gt, func() {
		guard.Close()
		_ = gt.rdb.Close()
		mr.Close()
		gt.backend.Close()
	}
}

func verifyOKBody(id, role string) string {
	return fmt.Sprintf(`{"success":true,"data":{"user":{"id":%q,"name":"Ada","email":"ada@example.com","role":%q}}}`, id, role)
}

func (gt *guardTest) seed(t *testing.T, role session.Role, rememberMe bool) {
	t.Helper()
	sess := &session.UserSession{
		ID:       "u-1",
		Name:     "Ada",
		Email:    "ada@example.com",
		Role:     role,
		IssuedAt: time.Now().Unix(),
	}
	if err := gt.guard.Store().Set(context.Background(), sess, "tok-1", rememberMe); err != nil {
		t.Fatalf("seed session: %v", err)
	}
}

func TestCheckAccessPublicPathNeedsNoSessionAndNoNetwork(t *testing.T) {
	gt, done := newGuardTest(t, nil, nil)
	defer done()

	dec, err := gt.guard.CheckAccess(context.Background(), "/index.html")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if dec.Kind != DecisionGranted {
		t.Fatalf("kind = %s, want granted", dec.Kind)
	}
	if gt.calls.Load() != 0 {
		t.Fatalf("public path hit the verify endpoint %d times", gt.calls.Load())
	}
}

func TestCheckAccessNoSessionDeniesWithoutNetwork(t *testing.T) {
	gt, done := newGuardTest(t, nil, nil)
	defer done()

	dec, err := gt.guard.CheckAccess(context.Background(), "/admin/dashboard.html")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if dec.Kind != DecisionDeniedLogin {
		t.Fatalf("kind = %s, want denied login", dec.Kind)
	}
	if dec.RedirectTo != "/auth/login.html" {
		t.Fatalf("redirect = %q", dec.RedirectTo)
	}
	if !errors.Is(dec.Reason, ErrNoSession) {
		t.Fatalf("reason = %v, want ErrNoSession", dec.Reason)
	}
	if gt.calls.Load() != 0 {
		t.Fatalf("missing session still hit the verify endpoint %d times", gt.calls.Load())
	}
}

func TestCheckAccessGrantedOnMatchingRole(t *testing.T) {
	gt, done := newGuardTest(t, nil, nil)
	defer done()
	gt.seed(t, session.RoleViewer, true)

	dec, err := gt.guard.CheckAccess(context.Background(), "/viewer/dashboard.html")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if dec.Kind != DecisionGranted {
		t.Fatalf("kind = %s, reason = %v", dec.Kind, dec.Reason)
	}
	if dec.Session == nil || dec.Session.ID != "u-1" {
		t.Fatalf("session = %+v", dec.Session)
	}
	if gt.calls.Load() != 1 {
		t.Fatalf("verify calls = %d, want 1", gt.calls.Load())
	}

	// The store keeps the pair, with freshness bookkeeping updated.
	cached, err := gt.guard.Store().Get(context.Background())
	if err != nil {
		t.Fatalf("store get: %v", err)
	}
	if cached == nil || cached.RefreshedAt == 0 {
		t.Fatalf("cached session not refreshed: %+v", cached)
	}
	if cached.IssuedAt == 0 {
		t.Fatal("refresh lost IssuedAt")
	}
}

func TestCheckAccessRoleMismatchOverlay(t *testing.T) {
	gt, done := newGuardTest(t, nil, nil)
	defer done()
	gt.seed(t, session.RoleViewer, true)

	dec, err := gt.guard.CheckAccess(context.Background(), "/admin/dashboard.html")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if dec.Kind != DecisionDeniedRole {
		t.Fatalf("kind = %s, want denied role", dec.Kind)
	}
	if dec.RequiredRole != session.RoleAdmin || dec.ActualRole != session.RoleViewer {
		t.Fatalf("roles = required %q actual %q", dec.RequiredRole, dec.ActualRole)
	}
	if dec.RedirectTo != "/viewer/dashboard.html" {
		t.Fatalf("redirect = %q, want caller's own dashboard", dec.RedirectTo)
	}
	if dec.RedirectDelay != defaultDenyRedirectDelay {
		t.Fatalf("delay = %s", dec.RedirectDelay)
	}
	if !errors.Is(dec.Reason, ErrRoleMismatch) {
		t.Fatalf("reason = %v", dec.Reason)
	}

	// A role mismatch is not a bad session: the pair stays cached.
	cached, err := gt.guard.Store().Get(context.Background())
	if err != nil || cached == nil {
		t.Fatalf("session dropped on role mismatch: %v %v", cached, err)
	}
}

func TestCheckAccessServerRejectionClearsAndDenies(t *testing.T) {
	gt, done := newGuardTest(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}, nil)
	defer done()
	gt.seed(t, session.RoleViewer, true)

	dec, err := gt.guard.CheckAccess(context.Background(), "/viewer/library.html")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if dec.Kind != DecisionDeniedLogin {
		t.Fatalf("kind = %s, want denied login", dec.Kind)
	}
	if !errors.Is(dec.Reason, ErrSessionRejected) {
		t.Fatalf("reason = %v", dec.Reason)
	}
	if gt.calls.Load() != 1 {
		t.Fatalf("server rejection was retried: %d calls", gt.calls.Load())
	}

	cached, err := gt.guard.Store().Get(context.Background())
	if err != nil {
		t.Fatalf("store get: %v", err)
	}
	if cached != nil {
		t.Fatalf("rejected session survived: %+v", cached)
	}
}

func TestCheckAccessNetworkFailureFailClosed(t *testing.T) {
	gt, done := newGuardTest(t, nil, func(cfg *Config) {
		cfg.Verify.BaseURL = "http://127.0.0.1:1" // connection refused
	})
	defer done()
	gt.seed(t, session.RoleViewer, true)

	dec, err := gt.guard.CheckAccess(context.Background(), "/viewer/library.html")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if dec.Kind != DecisionDeniedLogin {
		t.Fatalf("kind = %s, want denied login", dec.Kind)
	}
	if !errors.Is(dec.Reason, ErrVerifyUnavailable) {
		t.Fatalf("reason = %v", dec.Reason)
	}

	cached, err := gt.guard.Store().Get(context.Background())
	if err != nil {
		t.Fatalf("store get: %v", err)
	}
	if cached != nil {
		t.Fatal("fail-closed policy kept the session")
	}

	snap := gt.guard.MetricsSnapshot()
	if snap.Counters[MetricVerifyNetworkError] != 1 {
		t.Fatalf("network error counter = %d", snap.Counters[MetricVerifyNetworkError])
	}
	if snap.Counters[MetricVerifyRetry] != 2 {
		t.Fatalf("retry counter = %d, want 2 for 3 attempts", snap.Counters[MetricVerifyRetry])
	}
}

func TestCheckAccessNetworkFailureLenient(t *testing.T) {
	gt, done := newGuardTest(t, nil, func(cfg *Config) {
		cfg.Verify.BaseURL = "http://127.0.0.1:1"
		cfg.LenientOnNetworkError = true
	})
	defer done()
	gt.seed(t, session.RoleViewer, true)

	dec, err := gt.guard.CheckAccess(context.Background(), "/viewer/library.html")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if dec.Kind != DecisionGranted {
		t.Fatalf("kind = %s, want granted on cached session", dec.Kind)
	}
	if dec.Session == nil || dec.Session.Role != session.RoleViewer {
		t.Fatalf("session = %+v", dec.Session)
	}

	cached, err := gt.guard.Store().Get(context.Background())
	if err != nil || cached == nil {
		t.Fatalf("lenient policy dropped the session: %v %v", cached, err)
	}

	// Role checks still apply against the cached identity.
	dec, err = gt.guard.CheckAccess(context.Background(), "/admin/dashboard.html")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if dec.Kind != DecisionDeniedRole {
		t.Fatalf("kind = %s, want denied role even when lenient", dec.Kind)
	}
}

func TestCheckAccessAuthPageBouncesSignedInUser(t *testing.T) {
	gt, done := newGuardTest(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, verifyOKBody("u-1", "creator"))
	}, nil)
	defer done()
	gt.seed(t, session.RoleCreator, false)

	dec, err := gt.guard.CheckAccess(context.Background(), "/auth/login.html")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if dec.Kind != DecisionGrantedRedirect {
		t.Fatalf("kind = %s, want granted redirect", dec.Kind)
	}
	if dec.RedirectTo != "/creator/dashboard.html" {
		t.Fatalf("redirect = %q", dec.RedirectTo)
	}
}

func TestCheckAccessAuthPageWithoutSessionRenders(t *testing.T) {
	gt, done := newGuardTest(t, nil, nil)
	defer done()

	dec, err := gt.guard.CheckAccess(context.Background(), "/auth/login.html")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if dec.Kind != DecisionGranted {
		t.Fatalf("kind = %s, want granted", dec.Kind)
	}
	if gt.calls.Load() != 0 {
		t.Fatalf("anonymous auth page hit the verify endpoint %d times", gt.calls.Load())
	}
}

func TestCheckAccessAdoptsServerIdentity(t *testing.T) {
	// The server may answer with a changed role; the fresh answer wins.
	gt, done := newGuardTest(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, verifyOKBody("u-1", "admin"))
	}, nil)
	defer done()
	gt.seed(t, session.RoleViewer, true)

	dec, err := gt.guard.CheckAccess(context.Background(), "/admin/dashboard.html")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if dec.Kind != DecisionGranted {
		t.Fatalf("kind = %s, reason = %v", dec.Kind, dec.Reason)
	}

	cached, err := gt.guard.Store().Get(context.Background())
	if err != nil {
		t.Fatalf("store get: %v", err)
	}
	if cached == nil || cached.Role != session.RoleAdmin {
		t.Fatalf("cached session not updated from server answer: %+v", cached)
	}
}

func TestCheckAccessStoreUnreachableDeniesProtected(t *testing.T) {
	gt, done := newGuardTest(t, nil, nil)
	defer done()
	gt.mr.Close() // persistent tier now unreachable

	dec, err := gt.guard.CheckAccess(context.Background(), "/viewer/library.html")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if dec.Kind != DecisionDeniedLogin {
		t.Fatalf("kind = %s, want denied login", dec.Kind)
	}

	dec, err = gt.guard.CheckAccess(context.Background(), "/auth/login.html")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if dec.Kind != DecisionGranted {
		t.Fatalf("auth page kind = %s, want granted", dec.Kind)
	}
}

func TestCheckAccessAfterCloseFails(t *testing.T) {
	gt, done := newGuardTest(t, nil, nil)
	done()

	if _, err := gt.guard.CheckAccess(context.Background(), "/index.html"); !errors.Is(err, ErrGuardClosed) {
		t.Fatalf("err = %v, want ErrGuardClosed", err)
	}
}

func TestCheckAccessCountsDecisions(t *testing.T) {
	gt, done := newGuardTest(t, nil, nil)
	defer done()
	gt.seed(t, session.RoleViewer, true)

	paths := []string{
		"/index.html",            // granted, public
		"/viewer/dashboard.html", // granted
		"/admin/dashboard.html",  // denied role
		"/auth/login.html",       // auth bounce
	}
	for _, p := range paths {
		if _, err := gt.guard.CheckAccess(context.Background(), p); err != nil {
			t.Fatalf("check %q: %v", p, err)
		}
	}

	snap := gt.guard.MetricsSnapshot()
	if got := snap.Counters[MetricCheckGranted]; got != 2 {
		t.Fatalf("granted = %d, want 2", got)
	}
	if got := snap.Counters[MetricCheckDeniedRole]; got != 1 {
		t.Fatalf("denied role = %d, want 1", got)
	}
	if got := snap.Counters[MetricCheckAuthBounce]; got != 1 {
		t.Fatalf("auth bounce = %d, want 1", got)
	}
	if got := snap.Counters[MetricVerifyOK]; got != 3 {
		t.Fatalf("verify ok = %d, want 3", got)
	}
}
