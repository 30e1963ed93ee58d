package tokenkit

import (
	"fmt"
	"time"

	"github.com/MrEthical07/tokenkit/jwt"
	"github.com/google/uuid"
)

// Kind discriminates the three token variants. Its value is what the token-type claim carries.
type Kind string

const (
	// KindAccess is short-lived and never renewable.
	KindAccess Kind = "access"
	// KindRefresh is renewable by exchanging it for a new access token.
	KindRefresh Kind = "refresh"
	// KindSliding is renewable in place until its refresh cutoff.
	KindSliding Kind = "sliding"
)

// Valid reports whether k is one of the three variants.
func (k Kind) Valid() bool {
	return k == KindAccess || k == KindRefresh || k == KindSliding
}

// Renewable reports whether a token of this kind can produce a successor.
func (k Kind) Renewable() bool {
	return k == KindRefresh || k == KindSliding
}

// requiredClaims lists the claims a token of kind k must carry. The empty kind is the
// type-agnostic verify-only gate and only needs exp.
func (k Kind) requiredClaims(names ClaimConfig) []string {
	switch k {
	case KindAccess, KindRefresh:
		return []string{names.TokenType, "exp"}
	case KindSliding:
		return []string{names.TokenType, "exp", names.SlidingRefreshExp}
	default:
		return []string{"exp"}
	}
}

// Token is an owned, mutable claim set of a known kind. Mutating a Token never changes a
// wire string already produced; call Encode again to obtain a new one.
//
// A Token is not safe for concurrent mutation.
type Token struct {
	kind   Kind
	claims *jwt.Claims
	engine *Engine
}

// Kind returns the variant the token was issued or verified as.
func (t *Token) Kind() Kind { return t.kind }

// Get returns a single claim.
func (t *Token) Get(key string) (any, bool) { return t.claims.Get(key) }

// Set stores a single claim.
func (t *Token) Set(key string, value any) { t.claims.Set(key, value) }

// Delete removes a single claim. A token whose required claims were deleted still encodes;
// verification rejects it.
func (t *Token) Delete(key string) { t.claims.Delete(key) }

// Claims returns a deep copy of the claim set.
func (t *Token) Claims() *jwt.Claims { return t.claims.Clone() }

// ID returns the unique token identifier, or "" when absent.
func (t *Token) ID() string {
	id, _ := t.claims.String(t.engine.cfg.Claims.TokenID)
	return id
}

// Subject returns the user-id claim, or "" when absent.
func (t *Token) Subject() string {
	v, ok := t.claims.Get(t.engine.cfg.Claims.UserID)
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// ExpiresAt returns the exp claim as a time.
func (t *Token) ExpiresAt() (time.Time, bool) {
	return t.claims.Time("exp")
}

// SetExp sets exp to from + lifetime. A zero from means the engine clock's now.
func (t *Token) SetExp(from time.Time, lifetime time.Duration) {
	t.SetClaimExp("exp", from, lifetime)
}

// SetClaimExp sets an arbitrary time claim, such as the sliding refresh cutoff, to
// from + lifetime in epoch seconds. A zero from means the engine clock's now.
func (t *Token) SetClaimExp(claim string, from time.Time, lifetime time.Duration) {
	if from.IsZero() {
		from = t.engine.policy.Now()
	}
	t.claims.Set(claim, from.Add(lifetime).Unix())
}

// SetIssuedAt sets iat. A zero at means the engine clock's now.
func (t *Token) SetIssuedAt(at time.Time) {
	if at.IsZero() {
		at = t.engine.policy.Now()
	}
	t.claims.Set("iat", at.Unix())
}

// SetID replaces the token identifier with a fresh random one.
func (t *Token) SetID() {
	t.claims.Set(t.engine.cfg.Claims.TokenID, newTokenID())
}

// Encode signs the current claim set. Each call produces a new wire string.
func (t *Token) Encode() (string, error) {
	s, err := t.engine.codec.Encode(t.claims)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncodeFailed, err)
	}
	return s, nil
}

func newTokenID() string {
	return uuid.NewString()
}
