package tokenkit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Audit event types emitted by the engine.
const (
	EventTokenIssued        = "token_issued"
	EventTokenVerified      = "token_verified"
	EventTokenAuthenticated = "token_authenticated"
	EventTokenRefreshed     = "token_refreshed"
	EventTokenExtended      = "token_extended"
	EventTokenRevoked       = "token_revoked"
	EventTokenRejected      = "token_rejected"
)

var auditEventTypes = [...]string{
	EventTokenIssued,
	EventTokenVerified,
	EventTokenAuthenticated,
	EventTokenRefreshed,
	EventTokenExtended,
	EventTokenRevoked,
	EventTokenRejected,
}

// eventSlot maps an event type to its drop counter. Unknown types share the last slot.
func eventSlot(eventType string) int {
	for i, t := range auditEventTypes {
		if t == eventType {
			return i
		}
	}
	return len(auditEventTypes)
}

// auditDispatcher moves events off the token path onto one sink goroutine. A nil
// dispatcher is disabled and every method is a no-op.
type auditDispatcher struct {
	sink       AuditSink
	dropIfFull bool
	queue      chan AuditEvent
	stop       chan struct{}
	wg         sync.WaitGroup
	closing    atomic.Bool
	closeOnce  sync.Once
	dropped    [len(auditEventTypes) + 1]atomic.Uint64
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	size := cfg.BufferSize
	if size <= 0 {
		size = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &auditDispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		queue:      make(chan AuditEvent, size),
		stop:       make(chan struct{}),
	}
	d.wg.Add(1)
	go d.loop()
	return d
}

func (d *auditDispatcher) loop() {
	defer d.wg.Done()
	for {
		select {
		case event := <-d.queue:
			d.sink.Emit(context.Background(), event)
		case <-d.stop:
			d.drain()
			return
		}
	}
}

// drain delivers whatever is still queued once Close has been called.
func (d *auditDispatcher) drain() {
	for {
		select {
		case event := <-d.queue:
			d.sink.Emit(context.Background(), event)
		default:
			return
		}
	}
}

// Emit queues event. With DropIfFull a full queue drops the event and counts it against
// its type; otherwise Emit waits for room until ctx is done.
func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil || d.closing.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		case <-d.stop:
		default:
			d.dropped[eventSlot(event.EventType)].Add(1)
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
	case <-d.stop:
	}
}

// Close stops accepting events, flushes the queue and waits for the sink goroutine.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closing.Store(true)
		close(d.stop)
		d.wg.Wait()
	})
}

// Dropped returns the total number of dropped events.
func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	var n uint64
	for i := range d.dropped {
		n += d.dropped[i].Load()
	}
	return n
}

// DroppedByType returns drop counts keyed by event type, omitting types with no drops.
// Events of an unrecognised type are reported under "other".
func (d *auditDispatcher) DroppedByType() map[string]uint64 {
	out := map[string]uint64{}
	if d == nil {
		return out
	}
	for i := range d.dropped {
		n := d.dropped[i].Load()
		if n == 0 {
			continue
		}
		name := "other"
		if i < len(auditEventTypes) {
			name = auditEventTypes[i]
		}
		out[name] = n
	}
	return out
}
