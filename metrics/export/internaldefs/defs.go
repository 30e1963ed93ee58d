package internaldefs

import (
	"github.com/MrEthical07/tokenkit"
)

// CounterDef names one counter for every exporter.
type CounterDef struct {
	ID   tokenkit.MetricID
	Name string
	Help string
}

// HistogramDef names one histogram for every exporter.
type HistogramDef struct {
	ID   tokenkit.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: tokenkit.MetricIssueAccess, Name: "tokenkit_issue_access_total", Help: "Access tokens issued."},
	{ID: tokenkit.MetricIssueRefresh, Name: "tokenkit_issue_refresh_total", Help: "Refresh tokens issued."},
	{ID: tokenkit.MetricIssueSliding, Name: "tokenkit_issue_sliding_total", Help: "Sliding tokens issued."},
	{ID: tokenkit.MetricVerifySuccess, Name: "tokenkit_verify_success_total", Help: "Tokens that passed verification."},
	{ID: tokenkit.MetricVerifyFailure, Name: "tokenkit_verify_failure_total", Help: "Tokens that failed verification."},
	{ID: tokenkit.MetricRefreshSuccess, Name: "tokenkit_refresh_success_total", Help: "Refresh tokens exchanged for access tokens."},
	{ID: tokenkit.MetricRefreshFailure, Name: "tokenkit_refresh_failure_total", Help: "Rejected refresh exchanges."},
	{ID: tokenkit.MetricRefreshRotated, Name: "tokenkit_refresh_rotated_total", Help: "Refresh tokens re-issued by rotation."},
	{ID: tokenkit.MetricSlidingExtendSuccess, Name: "tokenkit_sliding_extend_success_total", Help: "Sliding tokens extended."},
	{ID: tokenkit.MetricSlidingExtendFailure, Name: "tokenkit_sliding_extend_failure_total", Help: "Rejected sliding extensions."},
	{ID: tokenkit.MetricRevokeSuccess, Name: "tokenkit_revoke_success_total", Help: "Token identifiers added to the denylist."},
	{ID: tokenkit.MetricRevokeFailure, Name: "tokenkit_revoke_failure_total", Help: "Rejected revocation requests."},
	{ID: tokenkit.MetricRejectMalformed, Name: "tokenkit_reject_malformed_total", Help: "Rejections for malformed tokens."},
	{ID: tokenkit.MetricRejectBadSignature, Name: "tokenkit_reject_bad_signature_total", Help: "Rejections for bad signatures."},
	{ID: tokenkit.MetricRejectUnsupportedAlgorithm, Name: "tokenkit_reject_unsupported_algorithm_total", Help: "Rejections for a foreign alg header."},
	{ID: tokenkit.MetricRejectWrongType, Name: "tokenkit_reject_wrong_type_total", Help: "Rejections for an unexpected token type."},
	{ID: tokenkit.MetricRejectMissingClaim, Name: "tokenkit_reject_missing_claim_total", Help: "Rejections for a missing required claim."},
	{ID: tokenkit.MetricRejectInvalidClaim, Name: "tokenkit_reject_invalid_claim_total", Help: "Rejections for a claim of the wrong shape."},
	{ID: tokenkit.MetricRejectExpired, Name: "tokenkit_reject_expired_total", Help: "Rejections for a lapsed exp."},
	{ID: tokenkit.MetricRejectRefreshExpired, Name: "tokenkit_reject_refresh_expired_total", Help: "Rejections for a lapsed sliding refresh cutoff."},
	{ID: tokenkit.MetricRejectRevoked, Name: "tokenkit_reject_revoked_total", Help: "Rejections for revoked tokens."},
	{ID: tokenkit.MetricRejectRevocationUnavailable, Name: "tokenkit_reject_revocation_unavailable_total", Help: "Rejections because the revocation backend failed."},
}

var HistogramDefs = []HistogramDef{
	{ID: tokenkit.MetricVerifyLatency, Name: "tokenkit_verify_latency_seconds", Help: "Verification latency."},
}

// AuditDroppedName is the counter for audit events dropped under backpressure.
const (
	AuditDroppedName = "tokenkit_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

// HistogramBounds are the finite upper bounds in seconds; the last bucket is +Inf.
var HistogramBounds = []float64{
	0.0001,
	0.00025,
	0.0005,
	0.001,
	0.0025,
	0.005,
	0.01,
}

// HistogramBoundSuffix names each bucket, +Inf included, for exporters without native
// histogram labels.
var HistogramBoundSuffix = []string{
	"0_0001",
	"0_00025",
	"0_0005",
	"0_001",
	"0_0025",
	"0_005",
	"0_01",
	"inf",
}

// NormalizeBuckets pads or truncates raw to exactly eight buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
