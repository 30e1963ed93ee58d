package tokenkit

import (
	"context"
	"fmt"
	"sort"

	"github.com/MrEthical07/tokenkit/jwt"
	"github.com/sirupsen/logrus"
)

// Engine issues, verifies and renews tokens.
//
// Engine is immutable after Builder.Build. Every method is safe to call from multiple
// goroutines; the only shared collaborator touched per call is the revocation hook.
type Engine struct {
	cfg        Config
	codec      *jwt.Codec
	policy     LifetimePolicy
	revocation RevocationHook
	logger     logrus.FieldLogger
	metrics    *Metrics
	audit      *auditDispatcher
}

// Pair is the result of obtaining tokens for a subject.
type Pair struct {
	Access  string
	Refresh string
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.cfg)
}

// Codec exposes the codec, for example to publish its public key.
func (e *Engine) Codec() *jwt.Codec {
	return e.codec
}

// Policy returns the lifetime policy the engine computes expirations with.
func (e *Engine) Policy() LifetimePolicy {
	return e.policy
}

// Issue creates a new token of kind. The engine stamps the token-type claim, exp, iat and a
// fresh jti; sliding tokens also get their refresh cutoff. extra is applied afterwards in
// key order and may not name any of those claims.
func (e *Engine) Issue(ctx context.Context, kind Kind, extra map[string]any) (*Token, error) {
	tok, err := e.newToken(kind, extra)
	if err != nil {
		return nil, err
	}
	e.metrics.Inc(issueMetric(kind))
	e.emitAudit(ctx, EventTokenIssued, tok, true, "")
	return tok, nil
}

// IssuePair issues a refresh token for subject and the access token derived from it.
// Credentials must already have been verified by the caller.
func (e *Engine) IssuePair(ctx context.Context, subject string, extra map[string]any) (Pair, error) {
	claims, err := e.subjectClaims(subject, extra)
	if err != nil {
		return Pair{}, err
	}

	refresh, err := e.Issue(ctx, KindRefresh, claims)
	if err != nil {
		return Pair{}, err
	}
	access := e.accessFrom(refresh)
	e.metrics.Inc(MetricIssueAccess)
	e.emitAudit(ctx, EventTokenIssued, access, true, "")

	var out Pair
	if out.Refresh, err = refresh.Encode(); err != nil {
		return Pair{}, err
	}
	if out.Access, err = access.Encode(); err != nil {
		return Pair{}, err
	}
	return out, nil
}

// IssueSlidingFor issues and encodes a sliding token for subject.
func (e *Engine) IssueSlidingFor(ctx context.Context, subject string, extra map[string]any) (string, error) {
	claims, err := e.subjectClaims(subject, extra)
	if err != nil {
		return "", err
	}
	tok, err := e.Issue(ctx, KindSliding, claims)
	if err != nil {
		return "", err
	}
	return tok.Encode()
}

// MetricsSnapshot returns current counter and histogram values.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	return e.metrics.Snapshot()
}

// AuditDropped returns the number of audit events dropped under backpressure.
func (e *Engine) AuditDropped() uint64 {
	return e.audit.Dropped()
}

// AuditDroppedByType breaks AuditDropped down by event type.
func (e *Engine) AuditDroppedByType() map[string]uint64 {
	return e.audit.DroppedByType()
}

// Close flushes and stops the audit dispatcher. Other methods keep working after Close.
func (e *Engine) Close() {
	e.audit.Close()
}

func (e *Engine) newToken(kind Kind, extra map[string]any) (*Token, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	reserved := e.reservedClaims()
	for k := range extra {
		if _, ok := reserved[k]; ok {
			return nil, fmt.Errorf("%w: %s", ErrReservedClaim, k)
		}
	}

	now := e.policy.Now()
	tok := &Token{kind: kind, claims: jwt.NewClaims(), engine: e}
	tok.Set(e.cfg.Claims.TokenType, string(kind))
	tok.SetExp(now, e.policy.LifetimeFor(kind))
	tok.SetIssuedAt(now)
	tok.SetID()
	if kind == KindSliding {
		tok.SetClaimExp(e.cfg.Claims.SlidingRefreshExp, now, e.policy.SlidingRefresh)
	}

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		tok.Set(k, extra[k])
	}
	return tok, nil
}

func (e *Engine) subjectClaims(subject string, extra map[string]any) (map[string]any, error) {
	if subject == "" {
		return nil, ErrEmptySubject
	}
	out := make(map[string]any, len(extra)+1)
	for k, v := range extra {
		out[k] = v
	}
	out[e.cfg.Claims.UserID] = subject
	return out, nil
}

// reservedClaims are managed by the engine and never copied between tokens.
func (e *Engine) reservedClaims() map[string]struct{} {
	return map[string]struct{}{
		e.cfg.Claims.TokenType:         {},
		e.cfg.Claims.TokenID:           {},
		e.cfg.Claims.SlidingRefreshExp: {},
		"exp":                          {},
		"iat":                          {},
	}
}

func (e *Engine) emitAudit(ctx context.Context, eventType string, tok *Token, success bool, reason Reason) {
	if e.audit == nil {
		return
	}
	event := AuditEvent{
		Timestamp: e.policy.Now(),
		EventType: eventType,
		Success:   success,
		Reason:    string(reason),
	}
	if tok != nil {
		event.Kind = string(tok.Kind())
		event.TokenID = tok.ID()
		event.Subject = tok.Subject()
	}
	e.audit.Emit(ctx, event)
}
