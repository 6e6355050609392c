// Package counter provides a goroutine-safe monotonic counter used for
// shared progress accounting across probe workers.
package counter

import "sync/atomic"

// Counter is a monotonically-incrementing integer. The zero value is ready
// to use and must not be copied after first use.
type Counter struct {
	v atomic.Int64
}

// Increment adds one and returns the new value.
func (c *Counter) Increment() int64 { return c.v.Add(1) }

// Value returns the current value.
func (c *Counter) Value() int64 { return c.v.Load() }
