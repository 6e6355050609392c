// Package checker decides whether candidate stream URLs are playable and
// runs that decision over many URLs with bounded concurrency.
package checker

import (
	"errors"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/edirooss/livesrc/internal/category"
	"github.com/edirooss/livesrc/internal/domain/catalog"
	"github.com/edirooss/livesrc/internal/infrastructure/tasklog"
	"github.com/edirooss/livesrc/internal/probe"
	"github.com/edirooss/livesrc/internal/task"
	"github.com/edirooss/livesrc/pkg/counter"
)

var (
	ErrNilTask     = errors.New("nil task")
	ErrBadTemplate = errors.New("url template must contain {i}")
	ErrBadRange    = errors.New("batch size must be positive")
)

// Options tunes the engine. Zero values fall back to defaults.
type Options struct {
	// IOFactor scales the worker cap: min(threads, NumCPU*IOFactor+1).
	IOFactor int
	// DefaultThreads is used when a request asks for none.
	DefaultThreads int
	// ProbeTimeout is the hard deadline of one probe.
	ProbeTimeout time.Duration
}

func (o *Options) setDefaults() {
	if o.IOFactor <= 0 {
		o.IOFactor = 4
	}
	if o.DefaultThreads <= 0 {
		o.DefaultThreads = 20
	}
	if o.ProbeTimeout <= 0 {
		o.ProbeTimeout = 60 * time.Second
	}
}

// Checker probes URLs on behalf of one catalog.
//
// Concurrency Model:
//   - Every probe runs in its own goroutine under a deadline. The caller
//     waits for the result or the deadline, whichever comes first; a probe
//     that overruns is cancelled and abandoned, never awaited.
//   - A probe only computes an outcome. The caller applies it to the URL
//     and record, and only when the probe finished in time, so an
//     abandoned probe cannot touch shared state.
//   - Batch modes feed a bounded errgroup from a producer loop; memory stays
//     proportional to the worker count, not to the batch size.
//   - One mutex per batch guards "bump counters + publish task progress".
type Checker struct {
	log     *zap.Logger
	catalog *catalog.Catalog
	fetcher probe.Fetcher
	prober  probe.ResolutionProber // nil: resolution stays unknown
	tables  *category.Tables       // nil: no group is ignored
	logs    *tasklog.Manager       // nil: failures are only logged
	opts    Options
}

// New wires a checker for cat.
func New(log *zap.Logger, cat *catalog.Catalog, fetcher probe.Fetcher, prober probe.ResolutionProber,
	tables *category.Tables, logs *tasklog.Manager, opts Options) *Checker {
	opts.setDefaults()
	return &Checker{
		log:     log.Named("checker"),
		catalog: cat,
		fetcher: fetcher,
		prober:  prober,
		tables:  tables,
		logs:    logs,
		opts:    opts,
	}
}

// workers returns the pool size for a request asking for threads.
func (c *Checker) workers(threads int) int {
	if threads <= 0 {
		threads = c.opts.DefaultThreads
	}
	return min(threads, runtime.NumCPU()*c.opts.IOFactor+1)
}

// tracker publishes batch progress. processed/success only change under mu,
// together with the task snapshot.
type tracker struct {
	mu        sync.Mutex
	processed counter.Counter
	success   counter.Counter
	total     int
	task      *task.Task
}

func (tr *tracker) done(ok bool) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if ok {
		tr.success.Increment()
	}
	p := tr.processed.Increment()
	tr.task.SetProgress(int(p), int(tr.success.Value()), tr.total)
}

func (tr *tracker) setTotal(n int) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.total = n
	tr.task.SetProgress(int(tr.processed.Value()), int(tr.success.Value()), n)
}

func (tr *tracker) counts() (processed, success, total int) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return int(tr.processed.Value()), int(tr.success.Value()), tr.total
}
