package sessionguard

import "context"

// Logout clears both storage tiers and tells the backend to drop the token.
// The server-side call is best effort: its failure never blocks the local
// logout. The returned error reports only local storage trouble.
func (g *Guard) Logout(ctx context.Context) error {
	if g == nil || g.closed.Load() {
		return ErrGuardClosed
	}

	token, err := g.store.GetToken(ctx)
	if err != nil {
		g.logger.Warn("guard: logout store read", "error", err)
	}
	if token != "" {
		g.verifier.Logout(ctx, token)
	}

	clearErr := g.store.Clear(ctx)
	g.metrics.Inc(MetricLogout)
	g.audit.Emit(ctx, AuditEvent{
		EventType: AuditLogout,
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Granted:   true,
	})
	return clearErr
}
