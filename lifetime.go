package tokenkit

import "time"

// Clock supplies the current instant. Every expiration computation in the engine reads
// time through a Clock, never through time.Now directly.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time { return f() }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock returns the wall clock in UTC.
func SystemClock() Clock {
	return systemClock{}
}

// LifetimePolicy maps token kinds to lifetimes and supplies "now".
//
// LifetimePolicy is a value type with no mutable state; it is safe for concurrent use.
type LifetimePolicy struct {
	Access         time.Duration
	Refresh        time.Duration
	Sliding        time.Duration
	SlidingRefresh time.Duration
	Clock          Clock
}

// NewLifetimePolicy builds a policy from cfg. A nil clock selects SystemClock.
func NewLifetimePolicy(cfg LifetimeConfig, clock Clock) LifetimePolicy {
	if clock == nil {
		clock = SystemClock()
	}
	return LifetimePolicy{
		Access:         cfg.Access,
		Refresh:        cfg.Refresh,
		Sliding:        cfg.Sliding,
		SlidingRefresh: cfg.SlidingRefresh,
		Clock:          clock,
	}
}

// LifetimeFor returns how far exp is placed after issuance for kind. Unknown kinds get 0.
func (p LifetimePolicy) LifetimeFor(kind Kind) time.Duration {
	switch kind {
	case KindAccess:
		return p.Access
	case KindRefresh:
		return p.Refresh
	case KindSliding:
		return p.Sliding
	default:
		return 0
	}
}

// Now returns the policy clock's current instant.
func (p LifetimePolicy) Now() time.Time {
	if p.Clock == nil {
		return time.Now().UTC()
	}
	return p.Clock.Now()
}
