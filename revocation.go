package tokenkit

import (
	"context"
	"time"
)

// RevocationHook answers whether a token identifier has been revoked. It is consulted only
// after every other verification gate has passed.
//
// An error from IsRevoked rejects the token with ReasonRevocationUnavailable; the verifier
// fails closed.
type RevocationHook interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// RevocationFunc adapts a function to RevocationHook.
type RevocationFunc func(ctx context.Context, tokenID string) (bool, error)

// IsRevoked calls f.
func (f RevocationFunc) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	return f(ctx, tokenID)
}

// ClockSetter is implemented by revocation stores that decide entry lifetimes from a clock.
// Builder.Build hands such a store the engine clock, so denylist entries lapse on the same
// timeline as the tokens they cover.
type ClockSetter interface {
	SetClock(now func() time.Time)
}
