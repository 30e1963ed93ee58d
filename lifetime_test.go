package tokenkit

import (
	"testing"
	"time"
)

func TestLifetimePolicy(t *testing.T) {
	cfg := LifetimeConfig{
		Access:         time.Minute,
		Refresh:        time.Hour,
		Sliding:        2 * time.Minute,
		SlidingRefresh: 3 * time.Hour,
	}
	p := NewLifetimePolicy(cfg, ClockFunc(func() time.Time { return testEpoch }))

	cases := map[Kind]time.Duration{
		KindAccess:  time.Minute,
		KindRefresh: time.Hour,
		KindSliding: 2 * time.Minute,
		Kind("x"):   0,
	}
	for kind, want := range cases {
		if got := p.LifetimeFor(kind); got != want {
			t.Fatalf("%s: expected %v, got %v", kind, want, got)
		}
	}
	if !p.Now().Equal(testEpoch) {
		t.Fatalf("expected injected clock to be used")
	}
}

func TestLifetimePolicyDefaultsToSystemClock(t *testing.T) {
	p := NewLifetimePolicy(LifetimeConfig{}, nil)
	before := time.Now().Add(-time.Second)
	if now := p.Now(); now.Before(before) || now.Location() != time.UTC {
		t.Fatalf("unexpected system clock reading %v", now)
	}

	var zero LifetimePolicy
	if zero.Now().IsZero() {
		t.Fatalf("zero policy must still report a time")
	}
}

func TestKindPredicates(t *testing.T) {
	if !KindAccess.Valid() || !KindRefresh.Valid() || !KindSliding.Valid() || Kind("bearer").Valid() {
		t.Fatalf("unexpected Valid results")
	}
	if KindAccess.Renewable() || !KindRefresh.Renewable() || !KindSliding.Renewable() {
		t.Fatalf("unexpected Renewable results")
	}
}
