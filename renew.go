package tokenkit

import (
	"context"
	"fmt"
	"time"
)

// RefreshResult carries the outcome of exchanging a refresh token. Refresh is empty unless
// rotation is enabled.
type RefreshResult struct {
	Access  string
	Refresh string
}

// RevocationStore is a RevocationHook that can also record identifiers.
type RevocationStore interface {
	RevocationHook
	Revoke(ctx context.Context, tokenID string, until time.Time) error
}

// Refresh verifies a refresh token and issues a new access token from it. Every
// non-reserved claim is copied; exp is computed from the clock at the time of the call.
//
// With rotation enabled the refresh token itself is re-issued with a new jti, iat and exp,
// and with RevokeAfterRotation the old jti is revoked first.
func (e *Engine) Refresh(ctx context.Context, raw string) (RefreshResult, error) {
	refresh, err := e.verify(ctx, raw, gate{kinds: []Kind{KindRefresh}})
	if err != nil {
		e.rejected(ctx, MetricRefreshFailure, err)
		return RefreshResult{}, err
	}

	access := e.accessFrom(refresh)
	var out RefreshResult
	if out.Access, err = access.Encode(); err != nil {
		return RefreshResult{}, err
	}

	if e.cfg.Refresh.Rotate {
		if e.cfg.Refresh.RevokeAfterRotation {
			if err := e.revokeToken(ctx, refresh); err != nil {
				return RefreshResult{}, err
			}
		}
		now := e.policy.Now()
		refresh.SetID()
		refresh.SetExp(now, e.policy.Refresh)
		refresh.SetIssuedAt(now)
		if out.Refresh, err = refresh.Encode(); err != nil {
			return RefreshResult{}, err
		}
		e.metrics.Inc(MetricRefreshRotated)
	}

	e.metrics.Inc(MetricRefreshSuccess)
	e.emitAudit(ctx, EventTokenRefreshed, access, true, "")
	return out, nil
}

// ExtendSliding verifies a sliding token, including its refresh cutoff, and re-encodes the
// same token with exp moved to now + the sliding lifetime. No other claim changes.
func (e *Engine) ExtendSliding(ctx context.Context, raw string) (string, error) {
	tok, err := e.verify(ctx, raw, gate{kinds: []Kind{KindSliding}, refreshWindow: true})
	if err != nil {
		e.rejected(ctx, MetricSlidingExtendFailure, err)
		return "", err
	}

	tok.SetExp(e.policy.Now(), e.policy.Sliding)
	out, err := tok.Encode()
	if err != nil {
		return "", err
	}

	e.metrics.Inc(MetricSlidingExtendSuccess)
	e.emitAudit(ctx, EventTokenExtended, tok, true, "")
	return out, nil
}

// AccessFrom derives a new access token from an already verified refresh token.
func (e *Engine) AccessFrom(refresh *Token) (*Token, error) {
	if refresh == nil || refresh.Kind() != KindRefresh {
		return nil, invalid(ReasonWrongType, nil)
	}
	return e.accessFrom(refresh), nil
}

func (e *Engine) accessFrom(refresh *Token) *Token {
	// Kind and extra are engine-controlled, newToken cannot fail here.
	access, _ := e.newToken(KindAccess, nil)
	reserved := e.reservedClaims()
	src := refresh.claims
	for _, k := range src.Keys() {
		if _, skip := reserved[k]; skip {
			continue
		}
		v, _ := src.Get(k)
		access.Set(k, v)
	}
	return access
}

// Revoke verifies raw, ignoring its type, and records its jti in the revocation store
// until the token's own exp, or until the refresh cutoff for a sliding token.
func (e *Engine) Revoke(ctx context.Context, raw string) error {
	if _, ok := e.revocation.(RevocationStore); !ok {
		return ErrRevocationUnsupported
	}
	tok, err := e.verify(ctx, raw, gate{})
	if err != nil {
		e.rejected(ctx, MetricRevokeFailure, err)
		return err
	}
	return e.revokeToken(ctx, tok)
}

func (e *Engine) revokeToken(ctx context.Context, tok *Token) error {
	store, ok := e.revocation.(RevocationStore)
	if !ok {
		return ErrRevocationUnsupported
	}
	until, ok := tok.ExpiresAt()
	if !ok {
		return invalid(ReasonMissingClaim, fmt.Errorf("claim %q absent", "exp"))
	}
	// Extended copies of a sliding token share its jti and may outlive this copy's exp,
	// up to the refresh cutoff.
	if cutoff, ok := tok.claims.Time(e.cfg.Claims.SlidingRefreshExp); ok && cutoff.After(until) {
		until = cutoff
	}
	if err := store.Revoke(ctx, tok.ID(), until); err != nil {
		e.logger.WithError(err).Warn("revocation store write failed")
		return fmt.Errorf("%w: %v", ErrRevocationFailed, err)
	}
	e.metrics.Inc(MetricRevokeSuccess)
	e.emitAudit(ctx, EventTokenRevoked, tok, true, "")
	return nil
}

func (e *Engine) rejected(ctx context.Context, id MetricID, err error) {
	reason, _ := ReasonOf(err)
	e.metrics.Inc(id)
	e.metrics.Inc(rejectMetric(reason))
	e.logger.WithField("reason", reason).Debug("token rejected")
	e.emitAudit(ctx, EventTokenRejected, nil, false, reason)
}
