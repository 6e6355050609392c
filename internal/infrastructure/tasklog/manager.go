// Package tasklog keeps a bounded in-memory log per task, newest line first.
package tasklog

import (
	"fmt"
	"sync"
	"time"
)

// Manager owns one ring buffer per task id, created lazily.
type Manager struct {
	mu   sync.RWMutex
	bufs map[string]*buffer
}

// NewManager returns an empty manager.
func NewManager() *Manager {
	return &Manager{bufs: make(map[string]*buffer)}
}

func (m *Manager) get(id string) *buffer {
	m.mu.RLock()
	buf, ok := m.bufs[id]
	m.mu.RUnlock()
	if ok {
		return buf
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if buf, ok := m.bufs[id]; ok {
		return buf
	}
	buf = new(buffer)
	m.bufs[id] = buf
	return buf
}

// Logf appends a timestamped line to the log of task id. A nil manager
// discards the line.
func (m *Manager) Logf(id, format string, args ...any) {
	if m == nil || id == "" {
		return
	}
	line := time.Now().Format("15:04:05") + " " + fmt.Sprintf(format, args...)
	m.get(id).append(line)
}

// Lines is the log view of one task.
type Lines struct {
	Lines   []string `json:"lines"`
	Total   int      `json:"total"`
	Dropped int      `json:"dropped"`
}

// Read returns up to n lines of task id, newest first. ok is false when the
// task never logged anything.
func (m *Manager) Read(id string, n int) (Lines, bool) {
	m.mu.RLock()
	buf, ok := m.bufs[id]
	m.mu.RUnlock()
	if !ok {
		return Lines{}, false
	}
	size, dropped := buf.stats()
	return Lines{Lines: buf.read(n), Total: size, Dropped: dropped}, true
}

// Clear drops every buffer.
func (m *Manager) Clear() {
	m.mu.Lock()
	m.bufs = make(map[string]*buffer)
	m.mu.Unlock()
}
