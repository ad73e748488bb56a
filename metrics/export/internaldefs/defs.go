package internaldefs

import (
	"github.com/MrEthical07/hrdesk"
)

// CounterDef names one client counter.
type CounterDef struct {
	ID   hrdesk.MetricID
	Name string
	Help string
}

// HistogramDef names one client histogram.
type HistogramDef struct {
	ID   hrdesk.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: hrdesk.MetricRequestSent, Name: "hrdesk_requests_sent_total", Help: "Requests dispatched through the client pipeline."},
	{ID: hrdesk.MetricTransportError, Name: "hrdesk_transport_errors_total", Help: "Requests that failed before a response arrived."},
	{ID: hrdesk.MetricUnauthorized, Name: "hrdesk_unauthorized_total", Help: "401 responses received."},
	{ID: hrdesk.MetricRefreshSuccess, Name: "hrdesk_refresh_success_total", Help: "Successful silent refreshes."},
	{ID: hrdesk.MetricRefreshFailure, Name: "hrdesk_refresh_failure_total", Help: "Failed silent refreshes."},
	{ID: hrdesk.MetricRefreshShared, Name: "hrdesk_refresh_shared_total", Help: "401s that joined a refresh already in flight."},
	{ID: hrdesk.MetricRefreshSkipped, Name: "hrdesk_refresh_skipped_total", Help: "401s replayed with a token refreshed by another request."},
	{ID: hrdesk.MetricReplay, Name: "hrdesk_replay_total", Help: "Requests replayed after a refresh."},
	{ID: hrdesk.MetricReplayUnauthorized, Name: "hrdesk_replay_unauthorized_total", Help: "Replayed requests answered with 401 again."},
	{ID: hrdesk.MetricPermissionDenied, Name: "hrdesk_permission_denied_total", Help: "403 responses received."},
	{ID: hrdesk.MetricSessionExpired, Name: "hrdesk_session_expired_total", Help: "Sessions ended by a failed refresh."},
	{ID: hrdesk.MetricLoginSuccess, Name: "hrdesk_login_success_total", Help: "Successful logins."},
	{ID: hrdesk.MetricLoginFailure, Name: "hrdesk_login_failure_total", Help: "Failed logins."},
	{ID: hrdesk.MetricLogout, Name: "hrdesk_logout_total", Help: "Completed logouts."},
	{ID: hrdesk.MetricLogoutFailure, Name: "hrdesk_logout_failure_total", Help: "Logouts the backend rejected."},
	{ID: hrdesk.MetricBootstrap, Name: "hrdesk_bootstrap_total", Help: "Session bootstraps."},
}

var HistogramDefs = []HistogramDef{
	{ID: hrdesk.MetricRequestLatency, Name: "hrdesk_request_latency_seconds", Help: "Round-trip latency of dispatched requests."},
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const (
	AuditDroppedName = "hrdesk_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

// HistogramUpperBounds are the finite bucket bounds in seconds; the last
// bucket of a snapshot is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to eight buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
