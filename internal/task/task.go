package task

import (
	"math"
	"sync"
	"time"
)

// Snapshot is the externally visible status of a task.
type Snapshot struct {
	ID          string  `json:"id"`
	Type        Type    `json:"type"`
	Status      Status  `json:"status"`
	URL         string  `json:"url,omitempty"`
	Total       int     `json:"total"`
	Processed   int     `json:"processed"`
	Success     int     `json:"success"`
	Progress    float64 `json:"progress"`
	Description string  `json:"description"`
	Result      any     `json:"result,omitempty"`
	Error       string  `json:"error,omitempty"`
	CreatedAt   int64   `json:"created_at"`
	UpdatedAt   int64   `json:"updated_at"`
}

// Task is one job record. All fields are guarded by mu; readers go through
// Snapshot so they never observe counters and progress out of step.
type Task struct {
	mu     sync.Mutex
	s      Snapshot
	notify func(Snapshot)
}

// Field mutates a task during Update.
type Field func(*Snapshot)

func WithStatus(st Status) Field     { return func(s *Snapshot) { s.Status = st } }
func WithTotal(n int) Field          { return func(s *Snapshot) { s.Total = n } }
func WithProcessed(n int) Field      { return func(s *Snapshot) { s.Processed = n } }
func WithSuccess(n int) Field        { return func(s *Snapshot) { s.Success = n } }
func WithDescription(d string) Field { return func(s *Snapshot) { s.Description = d } }
func WithResult(v any) Field         { return func(s *Snapshot) { s.Result = v } }

// WithError marks the task failed with msg.
func WithError(msg string) Field {
	return func(s *Snapshot) {
		s.Status = StatusError
		s.Error = msg
	}
}

// Complete marks the task completed with result.
func Complete(result any) Field {
	return func(s *Snapshot) {
		s.Status = StatusCompleted
		s.Result = result
	}
}

// ID returns the task id.
func (t *Task) ID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.s.ID
}

// Snapshot returns a consistent copy of the task state.
func (t *Task) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.s
}

// Total returns the declared number of work items.
func (t *Task) Total() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.s.Total
}

// Status returns the lifecycle state.
func (t *Task) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.s.Status
}

// Apply merges fields into the task (last writer wins).
func (t *Task) Apply(fields ...Field) {
	t.mu.Lock()
	for _, f := range fields {
		f(&t.s)
	}
	t.touch()
	snap := t.s
	t.mu.Unlock()
	t.publish(snap)
}

// SetProgress overwrites the progress counters as one update. It is ignored
// once the task reached a terminal state, and processed never exceeds a
// known total.
func (t *Task) SetProgress(processed, success, total int) {
	t.mu.Lock()
	if t.s.Status.IsFinished() {
		t.mu.Unlock()
		return
	}
	if total > 0 && processed > total {
		processed = total
	}
	t.s.Total = total
	t.s.Processed = processed
	t.s.Success = success
	t.touch()
	snap := t.s
	t.mu.Unlock()
	t.publish(snap)
}

// touch recomputes derived fields. t.mu must be held.
func (t *Task) touch() {
	t.s.Progress = progress(t.s.Processed, t.s.Total)
	t.s.UpdatedAt = time.Now().Unix()
}

func (t *Task) publish(s Snapshot) {
	if t.notify != nil {
		t.notify(s)
	}
}

// progress returns processed/total as a percentage rounded to two decimals.
func progress(processed, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(processed)/float64(total)*100*100) / 100
}
