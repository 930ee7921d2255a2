// Package profiler times the stages of a detection run.
package profiler

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// TimeTracker tracks operation timing statistics.
type TimeTracker struct {
	Name      string
	Count     int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration
	LastTime  time.Duration
}

// Average returns the mean duration, or zero before the first sample.
func (t TimeTracker) Average() time.Duration {
	if t.Count == 0 {
		return 0
	}
	return t.TotalTime / time.Duration(t.Count)
}

// Stopwatch records named operation timings. It is safe for concurrent use.
type Stopwatch struct {
	mu    sync.Mutex
	now   func() time.Time
	order []string
	ops   map[string]*TimeTracker
}

// NewStopwatch creates an empty stopwatch.
func NewStopwatch() *Stopwatch {
	return &Stopwatch{now: time.Now, ops: make(map[string]*TimeTracker)}
}

// StartOperation begins timing an operation.
//
// Arguments:
// - name: The name of the operation to track
//
// Returns:
// - A function to call when the operation completes
func (s *Stopwatch) StartOperation(name string) func() {
	start := s.now()
	return func() {
		s.Record(name, s.now().Sub(start))
	}
}

// Record adds one sample for name.
func (s *Stopwatch) Record(name string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.ops[name]
	if !ok {
		t = &TimeTracker{Name: name, MinTime: d, MaxTime: d}
		s.ops[name] = t
		s.order = append(s.order, name)
	}
	t.Count++
	t.TotalTime += d
	t.LastTime = d
	if d < t.MinTime {
		t.MinTime = d
	}
	if d > t.MaxTime {
		t.MaxTime = d
	}
}

// Get returns a copy of the tracker for name.
func (s *Stopwatch) Get(name string) (TimeTracker, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.ops[name]
	if !ok {
		return TimeTracker{}, false
	}
	return *t, true
}

// Operations returns copies of every tracker in first-recorded order.
func (s *Stopwatch) Operations() []TimeTracker {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]TimeTracker, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, *s.ops[name])
	}
	return out
}

// Fields renders the last duration of every operation as zap fields.
func (s *Stopwatch) Fields() []zap.Field {
	ops := s.Operations()
	fields := make([]zap.Field, 0, len(ops))
	for _, t := range ops {
		fields = append(fields, zap.Duration(t.Name, t.LastTime))
	}
	return fields
}
