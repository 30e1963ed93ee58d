package tokenkit

import (
	"context"
	"sync"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var testEpoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: testEpoch}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Signing.SigningKey = testSecret
	return cfg
}

type engineOption func(*Builder)

func withRevocation(h RevocationHook) engineOption {
	return func(b *Builder) { b.WithRevocation(h) }
}

func withConfig(mutate func(*Config)) engineOption {
	return func(b *Builder) {
		cfg := testConfig()
		mutate(&cfg)
		b.WithConfig(cfg)
	}
}

func newTestEngine(t *testing.T, opts ...engineOption) (*Engine, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	b := New().WithConfig(testConfig()).WithClock(clock)
	for _, opt := range opts {
		opt(b)
	}
	e, err := b.Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(e.Close)
	return e, clock
}

func mustIssue(t *testing.T, e *Engine, kind Kind, extra map[string]any) *Token {
	t.Helper()
	tok, err := e.Issue(context.Background(), kind, extra)
	if err != nil {
		t.Fatalf("issue %s: %v", kind, err)
	}
	return tok
}

func mustEncode(t *testing.T, tok *Token) string {
	t.Helper()
	s, err := tok.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return s
}

func requireReason(t *testing.T, err error, want Reason) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected rejection %q, got nil", want)
	}
	got, ok := ReasonOf(err)
	if !ok {
		t.Fatalf("expected *TokenInvalid, got %T: %v", err, err)
	}
	if got != want {
		t.Fatalf("expected reason %q, got %q (%v)", want, got, err)
	}
}
