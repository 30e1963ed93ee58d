package tokenkit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordingSink struct {
	mu     sync.Mutex
	events []AuditEvent
}

func (s *recordingSink) Emit(_ context.Context, event AuditEvent) {
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
}

func (s *recordingSink) snapshot() []AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]AuditEvent(nil), s.events...)
}

type blockingSink struct {
	release chan struct{}
}

func (s blockingSink) Emit(context.Context, AuditEvent) {
	<-s.release
}

type gatedSink struct {
	entered chan struct{}
	release chan struct{}
}

func (s gatedSink) Emit(context.Context, AuditEvent) {
	select {
	case s.entered <- struct{}{}:
	default:
	}
	<-s.release
}

func TestAuditDispatcherDisabledIsNil(t *testing.T) {
	d := newAuditDispatcher(AuditConfig{Enabled: false}, &recordingSink{})
	if d != nil {
		t.Fatalf("expected nil dispatcher when disabled")
	}
	d.Emit(context.Background(), AuditEvent{})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatalf("nil dispatcher must report zero drops")
	}
}

func TestAuditDispatcherDeliversOnClose(t *testing.T) {
	sink := &recordingSink{}
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 16, DropIfFull: true}, sink)
	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: "token_issued"})
	}
	d.Close()

	if got := len(sink.snapshot()); got != 10 {
		t.Fatalf("expected 10 events flushed on close, got %d", got)
	}
	d.Emit(context.Background(), AuditEvent{EventType: "late"})
	if got := len(sink.snapshot()); got != 10 {
		t.Fatalf("expected emit after close to be ignored, got %d", got)
	}
}

func TestAuditDispatcherDropsWhenFull(t *testing.T) {
	sink := blockingSink{release: make(chan struct{})}
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	for i := 0; i < 50; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: "token_verified"})
	}
	if d.Dropped() == 0 {
		t.Fatalf("expected drops under backpressure")
	}
	close(sink.release)
	d.Close()
}

func TestAuditDispatcherCountsDropsPerEventType(t *testing.T) {
	sink := gatedSink{entered: make(chan struct{}, 1), release: make(chan struct{})}
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	// One event held by the sink and one queued leave no room for the rest.
	d.Emit(context.Background(), AuditEvent{EventType: EventTokenIssued})
	<-sink.entered
	d.Emit(context.Background(), AuditEvent{EventType: EventTokenIssued})
	for i := 0; i < 3; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: EventTokenRejected})
	}
	d.Emit(context.Background(), AuditEvent{EventType: "custom"})

	byType := d.DroppedByType()
	if byType[EventTokenRejected] != 3 {
		t.Fatalf("expected 3 rejected drops, got %v", byType)
	}
	if byType[EventTokenIssued] != 0 || byType["other"] != 1 {
		t.Fatalf("expected unknown type counted as other, got %v", byType)
	}
	var total uint64
	for _, n := range byType {
		total += n
	}
	if total != d.Dropped() {
		t.Fatalf("per-type drops %d do not add up to total %d", total, d.Dropped())
	}

	close(sink.release)
	d.Close()

	var nilDispatcher *auditDispatcher
	if len(nilDispatcher.DroppedByType()) != 0 {
		t.Fatalf("nil dispatcher must report no drops")
	}
}

func TestAuditDispatcherBlockingRespectsContext(t *testing.T) {
	sink := blockingSink{release: make(chan struct{})}
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 1, DropIfFull: false}, sink)
	defer func() {
		close(sink.release)
		d.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			d.Emit(ctx, AuditEvent{EventType: "token_verified"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("blocking emit did not honor context cancellation")
	}
	if d.Dropped() != 0 {
		t.Fatalf("blocking mode must not count drops")
	}
}

func TestEngineAuditEvents(t *testing.T) {
	sink := &recordingSink{}
	cfg := testConfig()
	cfg.Audit.Enabled = true
	e, err := New().WithConfig(cfg).WithClock(newFakeClock()).WithAuditSink(sink).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	ctx := context.Background()

	pair, err := e.IssuePair(ctx, "alice", nil)
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}
	if _, err := e.Verify(ctx, pair.Access); err != nil {
		t.Fatalf("verify: %v", err)
	}
	_, _ = e.Refresh(ctx, pair.Access)
	e.Close()

	events := sink.snapshot()
	types := make([]string, 0, len(events))
	for _, ev := range events {
		types = append(types, ev.EventType)
	}
	want := []string{"token_issued", "token_issued", "token_verified", "token_rejected"}
	if strings.Join(types, ",") != strings.Join(want, ",") {
		t.Fatalf("expected events %v, got %v", want, types)
	}

	issued := events[0]
	if issued.Kind != string(KindRefresh) || issued.Subject != "alice" || issued.TokenID == "" || !issued.Success {
		t.Fatalf("unexpected issue event: %+v", issued)
	}
	if !issued.Timestamp.Equal(testEpoch) {
		t.Fatalf("expected event timestamp from engine clock, got %v", issued.Timestamp)
	}

	rejected := events[3]
	if rejected.Success || rejected.Reason != string(ReasonWrongType) {
		t.Fatalf("unexpected rejection event: %+v", rejected)
	}
}

func TestJSONWriterSinkOmitsRawToken(t *testing.T) {
	var buf bytes.Buffer
	cfg := testConfig()
	cfg.Audit.Enabled = true
	e, err := New().WithConfig(cfg).WithAuditSink(NewJSONWriterSink(&buf)).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	pair, err := e.IssuePair(context.Background(), "alice", nil)
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}
	e.Close()

	out := buf.String()
	if strings.Contains(out, pair.Access) || strings.Contains(out, pair.Refresh) {
		t.Fatalf("audit output leaks encoded token")
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 audit lines, got %d", len(lines))
	}
	var ev AuditEvent
	if err := json.Unmarshal([]byte(lines[0]), &ev); err != nil {
		t.Fatalf("decode audit line: %v", err)
	}
	if ev.EventType != "token_issued" {
		t.Fatalf("unexpected event type %q", ev.EventType)
	}
}

func TestChannelSink(t *testing.T) {
	sink := NewChannelSink(0)
	sink.Emit(context.Background(), AuditEvent{EventType: "token_revoked"})
	select {
	case ev := <-sink.Events():
		if ev.EventType != "token_revoked" {
			t.Fatalf("unexpected event %q", ev.EventType)
		}
	default:
		t.Fatalf("expected buffered event")
	}
}
