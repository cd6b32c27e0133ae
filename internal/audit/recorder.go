package audit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Recorder wraps a Sink with the fire-and-forget contract: Record never
// returns an error; sink failures are logged as warnings.
type Recorder struct {
	sink Sink
	log  *zap.Logger
	now  func() time.Time
}

// NewRecorder creates a Recorder. A nil sink discards events.
func NewRecorder(sink Sink, log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{sink: sink, log: log, now: time.Now}
}

// SetClock overrides the recorder's clock. Intended for tests.
func (r *Recorder) SetClock(now func() time.Time) {
	r.now = now
}

// Record stamps and persists one event, degrading failures to warnings.
func (r *Recorder) Record(ctx context.Context, e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = r.now()
	}
	if r.sink == nil {
		return
	}
	if err := r.sink.Record(ctx, []Event{e}); err != nil {
		r.log.Warn("audit event dropped",
			zap.String("action", e.Action),
			zap.String("severity", string(e.Severity)),
			zap.Error(err),
		)
	}
}

// MemorySink collects events in memory for tests.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

// Record implements Sink.
func (s *MemorySink) Record(_ context.Context, events []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	return nil
}

// Events returns a copy of everything recorded so far.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}
