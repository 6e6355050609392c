package tasklog

import "sync"

const capN = 500

// buffer is a fixed-size circular buffer of log lines with O(1) append.
type buffer struct {
	entries [capN]string
	head    int // next write position
	size    int // number of stored lines
	dropped int // lines overwritten after wrap-around
	mu      sync.RWMutex
}

// append adds a line, overwriting the oldest once full.
func (b *buffer) append(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[b.head] = line
	b.head = (b.head + 1) % capN
	if b.size == capN {
		b.dropped++
		return
	}
	b.size++
}

// read returns up to lines entries, newest first. lines <= 0 means all.
// The returned slice is owned by the caller.
func (b *buffer) read(lines int) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.size == 0 {
		return nil
	}
	if lines <= 0 || lines > b.size {
		lines = b.size
	}

	out := make([]string, lines)
	newest := (b.head - 1 + capN) % capN
	for i := 0; i < lines; i++ {
		out[i] = b.entries[(newest-i+capN)%capN]
	}
	return out
}

func (b *buffer) stats() (size, dropped int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size, b.dropped
}
