package tokenkit

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/tokenkit/jwt"
)

// CodeTokenNotValid is the single outward-facing code for every rejected token.
const CodeTokenNotValid = "token_not_valid"

var (
	// ErrTokenInvalid matches every *TokenInvalid via errors.Is.
	ErrTokenInvalid = errors.New(CodeTokenNotValid)
	// ErrInvalidConfig is returned by Config.Validate and Builder.Build.
	ErrInvalidConfig = errors.New("invalid tokenkit configuration")
	// ErrReservedClaim is returned when caller-supplied claims try to set an engine-managed claim.
	ErrReservedClaim = errors.New("claim is reserved")
	// ErrEmptySubject is returned when a token is requested for an empty subject.
	ErrEmptySubject = errors.New("subject must not be empty")
	// ErrUnknownKind is returned when a token kind is not access, refresh or sliding.
	ErrUnknownKind = errors.New("unknown token kind")
	// ErrRevocationUnsupported is returned by Engine.Revoke when no writable revocation store is configured.
	ErrRevocationUnsupported = errors.New("revocation store not configured")
	// ErrRevocationFailed wraps a revocation store write failure.
	ErrRevocationFailed = errors.New("revocation failed")
	// ErrEncodeFailed wraps a codec failure while signing a token.
	ErrEncodeFailed = errors.New("token encoding failed")
)

// Reason classifies why a token was rejected. Reasons are for logs, metrics and audit;
// callers facing clients should expose only CodeTokenNotValid.
type Reason string

const (
	ReasonMalformed             Reason = "malformed"
	ReasonBadSignature          Reason = "bad_signature"
	ReasonUnsupportedAlgorithm  Reason = "unsupported_algorithm"
	ReasonWrongType             Reason = "wrong_type"
	ReasonMissingClaim          Reason = "missing_claim"
	ReasonInvalidClaim          Reason = "invalid_claim"
	ReasonExpired               Reason = "expired"
	ReasonRefreshExpired        Reason = "refresh_expired"
	ReasonRevoked               Reason = "revoked"
	ReasonRevocationUnavailable Reason = "revocation_unavailable"
)

// TokenInvalid is the only failure the verifier produces.
type TokenInvalid struct {
	Reason Reason
	Err    error
}

// Error returns the outward code followed by the internal reason.
func (e *TokenInvalid) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", CodeTokenNotValid, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %v", CodeTokenNotValid, e.Reason, e.Err)
}

// Code returns CodeTokenNotValid regardless of the reason.
func (e *TokenInvalid) Code() string {
	return CodeTokenNotValid
}

// Unwrap returns the underlying decode or backend error, if any.
func (e *TokenInvalid) Unwrap() error {
	return e.Err
}

// Is matches ErrTokenInvalid.
func (e *TokenInvalid) Is(target error) bool {
	return target == ErrTokenInvalid
}

// ReasonOf extracts the rejection reason from err. The second result is false when err
// is not a *TokenInvalid.
func ReasonOf(err error) (Reason, bool) {
	var ti *TokenInvalid
	if errors.As(err, &ti) {
		return ti.Reason, true
	}
	return "", false
}

func invalid(reason Reason, err error) *TokenInvalid {
	return &TokenInvalid{Reason: reason, Err: err}
}

func decodeReason(err error) Reason {
	switch {
	case errors.Is(err, jwt.ErrUnsupportedAlgorithm):
		return ReasonUnsupportedAlgorithm
	case errors.Is(err, jwt.ErrSignature):
		return ReasonBadSignature
	default:
		return ReasonMalformed
	}
}
