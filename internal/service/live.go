// Package service orchestrates one live-source session: the catalog, the
// checker running over it and the tasks reporting on it.
package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/edirooss/livesrc/internal/category"
	"github.com/edirooss/livesrc/internal/checker"
	"github.com/edirooss/livesrc/internal/domain/catalog"
	"github.com/edirooss/livesrc/internal/infrastructure/tasklog"
	"github.com/edirooss/livesrc/internal/probe"
	"github.com/edirooss/livesrc/internal/task"
)

type LiveOptions struct {
	// DefaultOutput receives update exports when a request names none.
	DefaultOutput string
	// SourceTimeout bounds one remote playlist download.
	SourceTimeout time.Duration
	// MaxSourceBytes caps one remote playlist download; larger sources
	// are skipped whole. Default 32 MiB.
	MaxSourceBytes int64
	// ExtraTxt and ExtraM3U are loaded after every tag-format update,
	// e.g. self-hosted channels. Empty disables them.
	ExtraTxt string
	ExtraM3U string
	// MergeMaxURLs caps URLs per channel in merge output (0 = all).
	MergeMaxURLs int
}

func (o *LiveOptions) setDefaults() {
	if o.DefaultOutput == "" {
		o.DefaultOutput = "/tmp/migu3721.txt"
	}
	if o.SourceTimeout <= 0 {
		o.SourceTimeout = 5 * time.Second
	}
	if o.MaxSourceBytes <= 0 {
		o.MaxSourceBytes = 32 << 20
	}
}

// LiveService is the process-wide session.
//
// Concurrency Model:
//   - Long operations (batch, update, posted check) create a task and run in
//     a background goroutine that always leaves the task completed or
//     error, including when the work panics.
//   - Nothing serializes background jobs against each other; two jobs over
//     the same catalog interleave like the checker workers do.
//   - Convert, sort and merge work on private catalogs and never touch the
//     session.
type LiveService struct {
	log     *zap.Logger
	catalog *catalog.Catalog
	tasks   *task.Registry
	logs    *tasklog.Manager
	checker *checker.Checker
	fetcher probe.Fetcher
	tables  *category.Tables
	exports *ExportCache
	opts    LiveOptions

	ctx context.Context // parent of every background job
	wg  sync.WaitGroup
}

// NewLiveService wires a session. ctx bounds background jobs; cancelling
// it stops them from starting new probes.
func NewLiveService(ctx context.Context, log *zap.Logger, cat *catalog.Catalog, tasks *task.Registry,
	logs *tasklog.Manager, chk *checker.Checker, fetcher probe.Fetcher, tables *category.Tables, opts LiveOptions) *LiveService {
	log = log.Named("live_service")
	opts.setDefaults()

	return &LiveService{
		log:     log,
		catalog: cat,
		tasks:   tasks,
		logs:    logs,
		checker: chk,
		fetcher: fetcher,
		tables:  tables,
		exports: NewExportCache(log, cat),
		opts:    opts,
		ctx:     ctx,
	}
}

// Wait blocks until every background job returned.
func (s *LiveService) Wait() { s.wg.Wait() }

// Clear empties the catalog, the task registry and the task logs.
func (s *LiveService) Clear() {
	s.catalog.Clear()
	s.tasks.Clear()
	s.logs.Clear()
	s.exports.Invalidate()
	s.log.Info("session cleared")
}

// Show returns the catalog in format f.
func (s *LiveService) Show(f Format) string {
	body, _ := s.exports.Get(f)
	return body
}

// Task returns the status of task id.
func (s *LiveService) Task(id string) (task.Snapshot, error) {
	t, err := s.tasks.Get(id)
	if err != nil {
		return task.Snapshot{}, err
	}
	return t.Snapshot(), nil
}

// Tasks lists every task, oldest first.
func (s *LiveService) Tasks() []task.Snapshot { return s.tasks.List() }

// TaskLogs returns up to n log lines of task id, newest first.
func (s *LiveService) TaskLogs(id string, n int) (tasklog.Lines, error) {
	if _, err := s.tasks.Get(id); err != nil {
		return tasklog.Lines{}, err
	}
	lines, _ := s.logs.Read(id, n)
	return lines, nil
}

// Single probes one URL with manifest checking and returns its grouped
// lines, or "" when it is not playable.
func (s *LiveService) Single(ctx context.Context, req SingleRequest) (string, error) {
	req.setDefaults()
	if err := req.validate(); err != nil {
		return "", err
	}
	s.catalog.SetEPG(catalog.EPG{})

	rec := catalog.NewRecord(req.ExtractID(), "")
	u := catalog.NewURL(req.URL)
	rec.AddURL(u)
	if !s.checker.CheckWithTimeout(ctx, rec, u, true, 0) {
		return "", nil
	}
	return rec.Lines(), nil
}

// Batch starts an index-ranged batch check and returns the task id.
func (s *LiveService) Batch(req BatchRequest) (string, error) {
	req.setDefaults()
	if err := req.validate(); err != nil {
		return "", err
	}
	if *req.IsClear {
		s.Clear()
	}
	s.catalog.SetEPG(catalog.EPG{})

	id := s.tasks.Create(req.URL, req.Size, task.TypeBatchCheck,
		fmt.Sprintf("check %d channels starting at id %d", req.Size, req.Start))

	s.dispatch(id, func(ctx context.Context, t *task.Task) (any, error) {
		n, err := s.checker.CheckBatch(ctx, checker.BatchRequest{
			Template:   req.URL,
			Start:      req.Start,
			Size:       req.Size,
			Resolution: *req.Resolution,
			Threads:    req.ThreadSize,
			Deep:       true,
		}, t)
		if err != nil {
			return nil, err
		}
		return map[string]any{"success": n, "channels": s.catalog.ChannelIDs()}, nil
	})
	return id, nil
}

// UpdateTxt loads grouped-format sources, then validates the catalog in the
// background and writes both exports to req.Output.
func (s *LiveService) UpdateTxt(ctx context.Context, req UpdateRequest) (string, error) {
	req.setDefaults(s.opts.DefaultOutput)
	if err := req.validate(); err != nil {
		return "", err
	}
	if *req.IsClear {
		s.Clear()
	}
	epg := *req.EPG
	epg.RenameCID = false
	s.catalog.SetEPG(epg)

	for _, src := range req.URL {
		s.loadTxt(ctx, src, false)
	}

	id := s.tasks.Create(strings.Join(req.URL, ","), s.catalog.TotalCount(), task.TypeUpdateLive,
		"output: "+req.Output)
	s.dispatch(id, func(ctx context.Context, t *task.Task) (any, error) {
		return s.updateLive(ctx, t, req)
	})
	return id, nil
}

// UpdateM3U is UpdateTxt for tag-format sources; the download happens in
// the background, so the task starts with an unknown total.
func (s *LiveService) UpdateM3U(req UpdateRequest) (string, error) {
	req.setDefaults(s.opts.DefaultOutput)
	if err := req.validate(); err != nil {
		return "", err
	}
	if *req.IsClear {
		s.Clear()
	}
	s.catalog.SetEPG(*req.EPG)

	id := s.tasks.Create(strings.Join(req.URL, ","), 0, task.TypeUpdateLive, "output: "+req.Output)
	s.dispatch(id, func(ctx context.Context, t *task.Task) (any, error) {
		t.Apply(task.WithProcessed(0))
		for _, src := range req.URL {
			s.loadM3U(ctx, src)
		}
		if s.opts.ExtraTxt != "" {
			s.loadTxt(ctx, s.opts.ExtraTxt, false)
		}
		if s.opts.ExtraM3U != "" {
			s.loadM3U(ctx, s.opts.ExtraM3U)
		}
		s.catalog.Sort()
		t.Apply(task.WithTotal(s.catalog.TotalCount()), task.WithProcessed(0))
		return s.updateLive(ctx, t, req)
	})
	return id, nil
}

// CheckPosted imports posted grouped-format text and validates it in the
// background.
func (s *LiveService) CheckPosted(text string, isClear bool) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("check posted: %w", ErrEmptyInput)
	}
	if isClear {
		s.Clear()
	}
	s.catalog.SetEPG(catalog.EPG{})

	if err := s.importTxt(strings.NewReader(text), false); err != nil {
		return "", fmt.Errorf("check posted: %w", err)
	}
	total := s.catalog.TotalCount()
	if total <= 0 {
		return "", fmt.Errorf("check posted: %w", ErrNoChannels)
	}

	id := s.tasks.Create("", total, task.TypeCheckPosted, "check posted txt sources")
	s.dispatch(id, func(ctx context.Context, t *task.Task) (any, error) {
		n, err := s.checker.UpdateBatchLive(ctx, checker.LiveRequest{Deep: true}, t)
		if err != nil {
			return nil, err
		}
		return map[string]any{"success": n}, nil
	})
	return id, nil
}

func (s *LiveService) updateLive(ctx context.Context, t *task.Task, req UpdateRequest) (any, error) {
	n, err := s.checker.UpdateBatchLive(ctx, checker.LiveRequest{
		Threads: req.ThreadSize,
		Deep:    req.CheckM3U8,
		Output:  req.Output,
	}, t)
	if err != nil {
		return nil, err
	}
	return map[string]any{"success": n}, nil
}

// dispatch runs fn in the background on behalf of task id and records its
// result or error on the task.
func (s *LiveService) dispatch(id string, fn func(ctx context.Context, t *task.Task) (any, error)) {
	t, err := s.tasks.Get(id)
	if err != nil {
		s.log.Error("dispatch: task vanished", zap.String("task_id", id), zap.Error(err))
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		log := s.log.With(zap.String("task_id", id))
		defer func() {
			if r := recover(); r != nil {
				log.Error("task panicked", zap.Any("panic", r))
				t.Apply(task.WithError(fmt.Sprintf("panic: %v", r)))
			}
		}()

		t.Apply(task.WithStatus(task.StatusRunning))
		result, err := fn(s.ctx, t)
		if err != nil {
			log.Error("task failed", zap.Error(err))
			t.Apply(task.WithError(err.Error()))
			return
		}
		t.Apply(task.Complete(result))
		log.Info("task completed")
	}()
}
