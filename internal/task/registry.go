// Package task tracks long-running batch jobs and their progress.
package task

import (
	"cmp"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("task not found")

// Sink receives every task snapshot change. Implementations must not block.
type Sink interface {
	Publish(Snapshot)
}

// Registry is the in-process store of tasks.
//
// Concurrency Model:
//   - The id→task map is guarded by an RWMutex.
//   - Each Task guards its own fields; Get hands out the live record and
//     writers coordinate through Task.Apply / Task.SetProgress.
//   - Nothing outlives the process. A Sink may mirror snapshots elsewhere.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]*Task
	sink  Sink
}

// NewRegistry returns an empty registry. sink may be nil.
func NewRegistry(sink Sink) *Registry {
	return &Registry{tasks: make(map[string]*Task), sink: sink}
}

// Create registers a pending task and returns its id.
func (r *Registry) Create(url string, total int, typ Type, description string) string {
	now := time.Now().Unix()
	t := &Task{s: Snapshot{
		ID:          uuid.NewString(),
		Type:        typ,
		Status:      StatusPending,
		URL:         url,
		Total:       total,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}}
	if r.sink != nil {
		t.notify = r.sink.Publish
	}

	r.mu.Lock()
	r.tasks[t.s.ID] = t
	r.mu.Unlock()

	t.publish(t.Snapshot())
	return t.s.ID
}

// Get returns the live task record.
func (r *Registry) Get(id string) (*Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return t, nil
}

// Update merges fields into task id.
func (r *Registry) Update(id string, fields ...Field) error {
	t, err := r.Get(id)
	if err != nil {
		return err
	}
	t.Apply(fields...)
	return nil
}

// Clear drops every task.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.tasks = make(map[string]*Task)
	r.mu.Unlock()
}

// List returns snapshots of all tasks, oldest first.
func (r *Registry) List() []Snapshot {
	r.mu.RLock()
	out := make([]Snapshot, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, t.Snapshot())
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b Snapshot) int {
		if c := cmp.Compare(a.CreatedAt, b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}
