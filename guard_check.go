package sessionguard

import (
	"context"
	"fmt"
	"time"

	"github.com/kovrenik/sessionguard/route"
	"github.com/kovrenik/sessionguard/verify"
)

// CheckAccess runs the full gate for one page load: classify the path, read
// the cached session, validate it against the backend, and check the role.
// The returned error is non-nil only for misuse (closed guard); every
// operational failure folds into the Decision so callers always end in
// either revealed content or a navigation away.
func (g *Guard) CheckAccess(ctx context.Context, path string) (Decision, error) {
	if g == nil || g.closed.Load() {
		return Decision{}, ErrGuardClosed
	}
	start := time.Now()

	var dec Decision
	func() {
		defer func() {
			if r := recover(); r != nil {
				dec = g.recovered(ctx, r)
			}
		}()
		dec = g.check(ctx, path)
	}()

	g.metrics.Observe(MetricCheckLatency, time.Since(start))
	g.record(ctx, path, dec)
	return dec, nil
}

func (g *Guard) check(ctx context.Context, path string) Decision {
	cls := route.Classify(path)

	// Unprotected, non-auth paths are public; no storage read, no network.
	if !cls.IsProtectedPage && !cls.IsAuthPage {
		return Decision{Kind: DecisionGranted}
	}

	sess, err := g.store.Get(ctx)
	var token string
	if err == nil {
		token, err = g.store.GetToken(ctx)
	}
	if err != nil {
		// Store unreachable reads as absence: auth pages still render,
		// protected pages bounce to login.
		g.logger.Warn("guard: session store unreachable", "error", err)
		if cls.IsAuthPage {
			return Decision{Kind: DecisionGranted}
		}
		return deniedLogin(err)
	}

	if sess == nil || token == "" {
		if cls.IsAuthPage {
			return Decision{Kind: DecisionGranted}
		}
		return deniedLogin(ErrNoSession)
	}

	res := g.verifier.Validate(ctx, token)
	g.meterVerify(res)

	switch res.Status {
	case verify.StatusRejected:
		if err := g.store.Clear(ctx); err != nil {
			g.logger.Warn("guard: clear after rejection", "error", err)
		}
		if cls.IsAuthPage {
			return Decision{Kind: DecisionGranted}
		}
		return deniedLogin(ErrSessionRejected)

	case verify.StatusNetworkError:
		if g.config.LenientOnNetworkError {
			g.logger.Warn("guard: verify unreachable, granting on cached session",
				"attempts", res.Attempts, "error", res.Err)
			return g.roleDecision(cls, sess)
		}
		if err := g.store.Clear(ctx); err != nil {
			g.logger.Warn("guard: clear after network failure", "error", err)
		}
		if cls.IsAuthPage {
			return Decision{Kind: DecisionGranted}
		}
		return deniedLogin(ErrVerifyUnavailable)
	}

	// Server accepted: adopt its current view of the identity, keep local
	// freshness bookkeeping, and rewrite the session in its current tier.
	fresh := res.User.Clone()
	fresh.IssuedAt = sess.IssuedAt
	if fresh.IssuedAt == 0 {
		fresh.IssuedAt = time.Now().Unix()
	}
	fresh.RefreshedAt = time.Now().Unix()
	if err := g.store.Refresh(ctx, fresh); err != nil {
		g.logger.Warn("guard: session refresh", "error", err)
	}

	return g.roleDecision(cls, fresh)
}

func (g *Guard) roleDecision(cls route.Class, sess *UserSession) Decision {
	if cls.IsAuthPage {
		return Decision{
			Kind:       DecisionGrantedRedirect,
			Session:    sess,
			RedirectTo: route.DashboardPath(sess.Role),
		}
	}
	if cls.RequiredRole != "" && cls.RequiredRole != sess.Role {
		return Decision{
			Kind:          DecisionDeniedRole,
			Session:       sess,
			RequiredRole:  cls.RequiredRole,
			ActualRole:    sess.Role,
			RedirectTo:    route.DashboardPath(sess.Role),
			RedirectDelay: g.config.DenyRedirectDelay,
			Reason:        ErrRoleMismatch,
		}
	}
	return Decision{Kind: DecisionGranted, Session: sess}
}

// recovered maps a panic inside the state machine to a terminal decision.
// With a cached session present the leniency flag decides grant-vs-deny,
// mirroring the network-error policy; without one the answer is login.
func (g *Guard) recovered(ctx context.Context, r any) Decision {
	reason := fmt.Errorf("%w: %v", ErrCheckPanicked, r)
	g.logger.Error("guard: access check panicked", "panic", r)

	if g.config.LenientOnNetworkError {
		if sess, err := g.store.Get(ctx); err == nil && sess != nil {
			return Decision{Kind: DecisionGranted, Session: sess, Reason: reason}
		}
	}
	return deniedLogin(reason)
}

func deniedLogin(reason error) Decision {
	return Decision{
		Kind:       DecisionDeniedLogin,
		RedirectTo: route.LoginPath,
		Reason:     reason,
	}
}

func (g *Guard) meterVerify(res verify.Result) {
	switch res.Status {
	case verify.StatusOK:
		g.metrics.Inc(MetricVerifyOK)
	case verify.StatusRejected:
		g.metrics.Inc(MetricVerifyRejected)
	case verify.StatusNetworkError:
		g.metrics.Inc(MetricVerifyNetworkError)
	}
	if res.Attempts > 1 {
		g.metrics.Add(MetricVerifyRetry, uint64(res.Attempts-1))
	}
}

func (g *Guard) record(ctx context.Context, path string, dec Decision) {
	event := AuditEvent{
		Path:      path,
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
	}
	if dec.Session != nil {
		event.UserID = dec.Session.ID
		event.Role = string(dec.Session.Role)
	}
	if dec.Reason != nil {
		event.Error = dec.Reason.Error()
	}

	switch dec.Kind {
	case DecisionGranted:
		g.metrics.Inc(MetricCheckGranted)
		event.EventType = AuditCheckGranted
		event.Granted = true
	case DecisionGrantedRedirect:
		g.metrics.Inc(MetricCheckAuthBounce)
		event.EventType = AuditAuthBounce
		event.Granted = true
	case DecisionDeniedLogin:
		g.metrics.Inc(MetricCheckDeniedLogin)
		event.EventType = AuditCheckDeniedLogin
	case DecisionDeniedRole:
		g.metrics.Inc(MetricCheckDeniedRole)
		event.EventType = AuditCheckDeniedRole
	}

	g.audit.Emit(ctx, event)
}
