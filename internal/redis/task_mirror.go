package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/edirooss/livesrc/internal/task"
)

const taskKeyPrefix = "livesrc:task:"

// TaskKey is the Redis key holding the JSON snapshot of task id.
func TaskKey(id string) string { return taskKeyPrefix + id }

// snapshotWriter persists one snapshot.
type snapshotWriter interface {
	Save(ctx context.Context, s task.Snapshot) error
}

// snapshotStore writes snapshots as JSON strings with a TTL.
type snapshotStore struct {
	client *Client
	ttl    time.Duration
}

func (s *snapshotStore) Save(ctx context.Context, snap task.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if err := s.client.Set(ctx, TaskKey(snap.ID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("set: %w", err)
	}
	return nil
}

// TaskMirror publishes task snapshots to Redis for external progress readers.
//
// Concurrency Model:
//   - Publish never blocks on the network: it records the latest snapshot
//     per task and wakes the flusher.
//   - A single background goroutine drains pending snapshots, so bursts of
//     progress updates for one task collapse into one write.
//   - Write failures are logged and dropped. Redis never holds the catalog.
type TaskMirror struct {
	log    *zap.Logger
	store  snapshotWriter
	opTime time.Duration

	mu      sync.Mutex
	pending map[string]task.Snapshot

	wake   chan struct{}
	cancel context.CancelFunc
	done   chan struct{}
}

// NewTaskMirror starts a mirror writing snapshots with the given TTL.
func NewTaskMirror(log *zap.Logger, client *Client, ttl time.Duration) *TaskMirror {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return newTaskMirror(log, &snapshotStore{client: client, ttl: ttl})
}

func newTaskMirror(log *zap.Logger, store snapshotWriter) *TaskMirror {
	ctx, cancel := context.WithCancel(context.Background())
	m := &TaskMirror{
		log:     log.Named("task_mirror"),
		store:   store,
		opTime:  2 * time.Second,
		pending: make(map[string]task.Snapshot),
		wake:    make(chan struct{}, 1),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go m.run(ctx)
	return m
}

// Publish implements task.Sink.
func (m *TaskMirror) Publish(s task.Snapshot) {
	m.mu.Lock()
	m.pending[s.ID] = s
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// Close stops the flusher after writing what is still pending.
func (m *TaskMirror) Close() {
	m.cancel()
	<-m.done
}

func (m *TaskMirror) run(ctx context.Context) {
	defer close(m.done)
	for {
		select {
		case <-m.wake:
			m.flush()
		case <-ctx.Done():
			m.flush()
			return
		}
	}
}

func (m *TaskMirror) flush() {
	m.mu.Lock()
	batch := m.pending
	m.pending = make(map[string]task.Snapshot, len(batch))
	m.mu.Unlock()

	for id, s := range batch {
		ctx, cancel := context.WithTimeout(context.Background(), m.opTime)
		err := m.store.Save(ctx, s)
		cancel()
		if err != nil {
			m.log.Warn("mirror task snapshot failed", zap.String("task_id", id), zap.Error(err))
		}
	}
}
