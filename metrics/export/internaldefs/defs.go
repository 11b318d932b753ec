package internaldefs

import (
	"github.com/MrEthical07/hrclient"
)

// CounterDef maps a client counter to its exported name.
type CounterDef struct {
	ID   hrclient.MetricID
	Name string
	Help string
}

// HistogramDef maps a client histogram to its exported name.
type HistogramDef struct {
	ID   hrclient.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in exposition order.
var CounterDefs = []CounterDef{
	{ID: hrclient.MetricRequestSuccess, Name: "hrclient_request_success_total", Help: "Logical requests that returned a 2xx response."},
	{ID: hrclient.MetricRequestFailure, Name: "hrclient_request_failure_total", Help: "Logical requests that returned an error."},
	{ID: hrclient.MetricNetworkError, Name: "hrclient_network_error_total", Help: "Requests that failed without a response."},
	{ID: hrclient.MetricUnauthorized, Name: "hrclient_unauthorized_total", Help: "401 responses observed by the retry layer."},
	{ID: hrclient.MetricRefreshStarted, Name: "hrclient_refresh_started_total", Help: "Refresh calls sent to the backend."},
	{ID: hrclient.MetricRefreshJoined, Name: "hrclient_refresh_joined_total", Help: "Callers that waited on an in-flight refresh."},
	{ID: hrclient.MetricRefreshSuccess, Name: "hrclient_refresh_success_total", Help: "Refreshes that produced a credential."},
	{ID: hrclient.MetricRefreshFailure, Name: "hrclient_refresh_failure_total", Help: "Refreshes that cleared the credential."},
	{ID: hrclient.MetricRetrySuccess, Name: "hrclient_retry_success_total", Help: "Replays accepted after a refresh."},
	{ID: hrclient.MetricRetryRejected, Name: "hrclient_retry_rejected_total", Help: "Replays rejected with a second 401."},
	{ID: hrclient.MetricAuthExpired, Name: "hrclient_auth_expired_total", Help: "Requests failed because authentication expired."},
	{ID: hrclient.MetricCredentialSet, Name: "hrclient_credential_set_total", Help: "Credential installs, including refreshes."},
	{ID: hrclient.MetricCredentialCleared, Name: "hrclient_credential_cleared_total", Help: "Credential removals."},
	{ID: hrclient.MetricProactiveRefresh, Name: "hrclient_proactive_refresh_total", Help: "Refreshes started ahead of token expiry."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: hrclient.MetricRequestLatency, Name: "hrclient_request_latency_seconds", Help: "Logical request latency, refresh and replay included."},
	{ID: hrclient.MetricRefreshLatency, Name: "hrclient_refresh_latency_seconds", Help: "Refresh call latency."},
}

// HistogramBounds are the upper bounds of the client's latency buckets, in seconds.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix holds HistogramBounds in a form usable in instrument names.
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

// NormalizeBuckets copies raw into a fixed array, padding with zeros.
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
