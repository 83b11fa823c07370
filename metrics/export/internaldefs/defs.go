package internaldefs

import (
	sessionguard "github.com/kovrenik/sessionguard"
)

// CounterDef binds a guard MetricID to its exported name and help text.
type CounterDef struct {
	ID   sessionguard.MetricID
	Name string
	Help string
}

// HistogramDef binds a histogrammed MetricID to its exported name.
type HistogramDef struct {
	ID   sessionguard.MetricID
	Name string
	Help string
}

// CounterDefs is the single source of truth for exported counter naming.
// Both exporters iterate it so names can never drift between backends.
var CounterDefs = []CounterDef{
	{ID: sessionguard.MetricCheckGranted, Name: "sessionguard_check_granted_total", Help: "Access checks that revealed content."},
	{ID: sessionguard.MetricCheckDeniedLogin, Name: "sessionguard_check_denied_login_total", Help: "Access checks redirected to the login page."},
	{ID: sessionguard.MetricCheckDeniedRole, Name: "sessionguard_check_denied_role_total", Help: "Access checks denied on role mismatch."},
	{ID: sessionguard.MetricCheckAuthBounce, Name: "sessionguard_check_auth_bounce_total", Help: "Signed-in users bounced from auth pages to their dashboard."},
	{ID: sessionguard.MetricVerifyOK, Name: "sessionguard_verify_ok_total", Help: "Verify calls accepted by the backend."},
	{ID: sessionguard.MetricVerifyRejected, Name: "sessionguard_verify_rejected_total", Help: "Verify calls denied by the backend."},
	{ID: sessionguard.MetricVerifyNetworkError, Name: "sessionguard_verify_network_error_total", Help: "Verify calls that got no answer after all retries."},
	{ID: sessionguard.MetricVerifyRetry, Name: "sessionguard_verify_retry_total", Help: "Individual retried verify attempts."},
	{ID: sessionguard.MetricRevalidateExpired, Name: "sessionguard_revalidate_expired_total", Help: "Sessions expired by the background revalidation loop."},
	{ID: sessionguard.MetricLogout, Name: "sessionguard_logout_total", Help: "Explicit logouts."},
}

// HistogramDefs lists the histogrammed metrics.
var HistogramDefs = []HistogramDef{
	{ID: sessionguard.MetricCheckLatency, Name: "sessionguard_check_latency_ms", Help: "Access-check latency distribution."},
}

// HistogramBounds are the upper bucket bounds in milliseconds, Prometheus
// `le` label form.
var HistogramBounds = [8]string{"5", "10", "25", "50", "100", "250", "500", "+Inf"}

// HistogramBoundSuffix are the same bounds as instrument-name-safe suffixes.
var HistogramBoundSuffix = [8]string{"5ms", "10ms", "25ms", "50ms", "100ms", "250ms", "500ms", "inf"}

// NormalizeBuckets pads or truncates a snapshot's bucket slice to the fixed
// width so exporters can index safely.
func NormalizeBuckets(buckets []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(buckets); i++ {
		out[i] = buckets[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into the cumulative form
// Prometheus histograms require.
func CumulativeBuckets(buckets [8]uint64) [8]uint64 {
	var out [8]uint64
	var sum uint64
	for i, v := range buckets {
		sum += v
		out[i] = sum
	}
	return out
}
