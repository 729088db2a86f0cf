package internaldefs

import (
	cineauth "github.com/cinemate/cineauth"
)

// CounterDef defines a public type used by cineauth APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   cineauth.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by cineauth APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   cineauth.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the authentication engine.
var CounterDefs = []CounterDef{
	{ID: cineauth.MetricLoginSuccess, Name: "cineauth_login_success_total", Help: "Successful login attempts."},
	{ID: cineauth.MetricLoginFailure, Name: "cineauth_login_failure_total", Help: "Failed login attempts."},
	{ID: cineauth.MetricSignupSuccess, Name: "cineauth_signup_success_total", Help: "Successful signups."},
	{ID: cineauth.MetricSignupDuplicate, Name: "cineauth_signup_duplicate_total", Help: "Signup attempts rejected as duplicate."},
	{ID: cineauth.MetricSignupFailure, Name: "cineauth_signup_failure_total", Help: "Failed signups."},
	{ID: cineauth.MetricRefreshSuccess, Name: "cineauth_refresh_success_total", Help: "Successful refresh operations."},
	{ID: cineauth.MetricRefreshFailure, Name: "cineauth_refresh_failure_total", Help: "Failed refresh operations."},
	{ID: cineauth.MetricValidateSuccess, Name: "cineauth_validate_success_total", Help: "Successful access-token validations."},
	{ID: cineauth.MetricValidateFailure, Name: "cineauth_validate_failure_total", Help: "Failed access-token validations."},
	{ID: cineauth.MetricSessionCreated, Name: "cineauth_session_created_total", Help: "Created sessions."},
	{ID: cineauth.MetricSessionTerminated, Name: "cineauth_session_terminated_total", Help: "Terminated sessions."},
	{ID: cineauth.MetricSessionExpired, Name: "cineauth_session_expired_total", Help: "Sessions expired by lazy expiry."},
	{ID: cineauth.MetricLogout, Name: "cineauth_logout_total", Help: "Logout operations."},
	{ID: cineauth.MetricResetRequested, Name: "cineauth_reset_requested_total", Help: "Password reset requests."},
	{ID: cineauth.MetricResetVerifySuccess, Name: "cineauth_reset_verify_success_total", Help: "Successful one-time code verifications."},
	{ID: cineauth.MetricResetVerifyFailure, Name: "cineauth_reset_verify_failure_total", Help: "Failed one-time code verifications."},
	{ID: cineauth.MetricResetAttemptsExceeded, Name: "cineauth_reset_attempts_exceeded_total", Help: "Reset requests revoked by the attempt cap."},
	{ID: cineauth.MetricResetCompleted, Name: "cineauth_reset_completed_total", Help: "Completed password resets."},
	{ID: cineauth.MetricRateLimitHit, Name: "cineauth_rate_limit_hit_total", Help: "Rate-limit checks that denied requests."},
	{ID: cineauth.MetricIPBlockHit, Name: "cineauth_ip_block_hit_total", Help: "Requests rejected by an active IP block."},
}

// HistogramDefs is an exported constant or variable used by the authentication engine.
var HistogramDefs = []HistogramDef{
	{ID: cineauth.MetricValidateLatency, Name: "cineauth_validate_latency_seconds", Help: "Validate latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the authentication engine.
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

// HistogramBoundSuffix is an exported constant or variable used by the authentication engine.
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

// NormalizeBuckets describes the normalizebuckets operation and its observable behavior.
//
// NormalizeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
