package tokenkit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/tokenkit/jwt"
)

// gate selects which states of the verification machine run.
//
// An empty kinds list skips the type check; refreshWindow adds the sliding refresh cutoff
// to the expiration state.
type gate struct {
	kinds         []Kind
	refreshWindow bool
}

// Verify checks that raw is authentic, structurally complete, unexpired and not revoked,
// and returns its claims.
//
// Verify ignores the token-type claim: any well-formed token of any declared
// type passes when the other gates do. Callers that need a particular variant use
// Authenticate, Refresh or ExtendSliding.
func (e *Engine) Verify(ctx context.Context, raw string) (*jwt.Claims, error) {
	tok, err := e.run(ctx, raw, gate{}, EventTokenVerified)
	if err != nil {
		return nil, err
	}
	return tok.Claims(), nil
}

// Authenticate verifies a token presented on a request. Access and sliding tokens are
// accepted; refresh tokens are not. A sliding token's refresh cutoff is not consulted here,
// only its exp.
func (e *Engine) Authenticate(ctx context.Context, raw string) (*Token, error) {
	return e.run(ctx, raw, gate{kinds: []Kind{KindAccess, KindSliding}}, EventTokenAuthenticated)
}

// Parse verifies raw as a token of kind and returns it as an owned Token. For sliding
// tokens the refresh cutoff is enforced as well.
func (e *Engine) Parse(ctx context.Context, raw string, kind Kind) (*Token, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return e.run(ctx, raw, gate{kinds: []Kind{kind}, refreshWindow: kind == KindSliding}, EventTokenVerified)
}

// run wraps verify with metrics, logging and audit.
func (e *Engine) run(ctx context.Context, raw string, g gate, event string) (*Token, error) {
	var start time.Time
	if e.metrics.LatencyEnabled() {
		start = time.Now()
	}

	tok, err := e.verify(ctx, raw, g)

	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricVerifyLatency, time.Since(start))
	}

	if err != nil {
		reason, _ := ReasonOf(err)
		e.metrics.Inc(MetricVerifyFailure)
		e.metrics.Inc(rejectMetric(reason))
		e.logger.WithField("reason", reason).Debug("token rejected")
		e.emitAudit(ctx, EventTokenRejected, nil, false, reason)
		return nil, err
	}

	e.metrics.Inc(MetricVerifySuccess)
	e.emitAudit(ctx, event, tok, true, "")
	return tok, nil
}

// verify is the stateless verification machine. Each state is a hard gate:
// decode, type, required claims, expiration, revocation.
func (e *Engine) verify(ctx context.Context, raw string, g gate) (*Token, error) {
	claims, err := e.codec.Decode(raw)
	if err != nil {
		return nil, invalid(decodeReason(err), err)
	}

	kind := Kind("")
	if len(g.kinds) > 0 {
		declared, _ := claims.String(e.cfg.Claims.TokenType)
		for _, k := range g.kinds {
			if declared == string(k) {
				kind = k
				break
			}
		}
		if kind == "" {
			return nil, invalid(ReasonWrongType, nil)
		}
	} else if declared, ok := claims.String(e.cfg.Claims.TokenType); ok {
		kind = Kind(declared)
	}

	required := Kind("")
	if len(g.kinds) > 0 {
		required = kind
	}
	for _, name := range required.requiredClaims(e.cfg.Claims) {
		if !claims.Has(name) {
			return nil, invalid(ReasonMissingClaim, fmt.Errorf("claim %q absent", name))
		}
	}

	now := e.policy.Now()
	if err := checkExp(claims, "exp", now, ReasonExpired); err != nil {
		return nil, err
	}
	if g.refreshWindow {
		if err := checkExp(claims, e.cfg.Claims.SlidingRefreshExp, now, ReasonRefreshExpired); err != nil {
			return nil, err
		}
	}

	if e.revocation != nil {
		id, ok := claims.String(e.cfg.Claims.TokenID)
		if !ok || id == "" {
			return nil, invalid(ReasonMissingClaim, fmt.Errorf("claim %q absent", e.cfg.Claims.TokenID))
		}
		revoked, err := e.revocation.IsRevoked(ctx, id)
		if err != nil {
			return nil, invalid(ReasonRevocationUnavailable, err)
		}
		if revoked {
			return nil, invalid(ReasonRevoked, nil)
		}
	}

	return &Token{kind: kind, claims: claims, engine: e}, nil
}

// checkExp requires claim to be strictly after now. A value equal to now has lapsed.
func checkExp(claims *jwt.Claims, claim string, now time.Time, lapsed Reason) error {
	if !claims.Has(claim) {
		return invalid(ReasonMissingClaim, fmt.Errorf("claim %q absent", claim))
	}
	at, ok := claims.Time(claim)
	if !ok {
		return invalid(ReasonInvalidClaim, fmt.Errorf("claim %q is not a timestamp", claim))
	}
	if !at.After(now) {
		return invalid(lapsed, errors.New("lapsed"))
	}
	return nil
}
