package checker

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/edirooss/livesrc/internal/infrastructure/atomicfile"
	"github.com/edirooss/livesrc/internal/task"
)

// LiveRequest describes a pass over the whole catalog.
type LiveRequest struct {
	Threads int
	Deep    bool
	// Output, when set, receives the grouped export; the tag export goes
	// next to it with a .m3u extension.
	Output string
}

// UpdateBatchLive probes every URL of every non-ignored group, removes the
// failing ones and drops records left without URLs. Returns the number of
// URLs that passed.
//
// Cancelling ctx stops scheduling and abandons in-flight probes without a
// verdict. The catalog keeps every URL that was not proven dead, nothing
// is pruned or exported, and the error wraps ctx.Err().
func (c *Checker) UpdateBatchLive(ctx context.Context, req LiveRequest, t *task.Task) (int, error) {
	if t == nil {
		return 0, ErrNilTask
	}
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("update live: %w", err)
	}

	log := c.log.With(zap.String("task", t.ID()))
	tr := &tracker{total: t.Total(), task: t}
	workers := c.workers(req.Threads)
	log.Info("live update started", zap.Int("declared", tr.total), zap.Int("workers", workers))

	var g errgroup.Group
	g.SetLimit(workers)

	actual := 0
	for _, ch := range c.catalog.Channels() {
		if ctx.Err() != nil {
			break
		}
		if c.tables.IsIgnore(ch.Group) {
			continue
		}
		rec := ch.Record
		for _, u := range rec.URLs() {
			if ctx.Err() != nil {
				break
			}
			actual++
			g.Go(func() error {
				ok, err := c.check(ctx, rec, u, req.Deep, 0)
				if err != nil {
					return nil
				}
				if !ok {
					c.catalog.RemoveURL(rec, u.URL)
					log.Debug("url invalid", zap.String("name", rec.Name()), zap.String("url", u.URL))
					c.logs.Logf(t.ID(), "invalid %s %s", rec.Name(), u.URL)
				}
				tr.done(ok)
				return nil
			})
		}
	}
	if ctx.Err() == nil && actual != tr.total {
		log.Warn("actual task count differs from declared total",
			zap.Int("actual", actual),
			zap.Int("declared", tr.total))
		tr.setTotal(actual)
	}
	_ = g.Wait()

	processed, success, total := tr.counts()
	if err := ctx.Err(); err != nil {
		log.Warn("live update cancelled, catalog left unpruned and not exported",
			zap.Int("total", total),
			zap.Int("processed", processed),
			zap.Error(err))
		return success, fmt.Errorf("update live: %w", err)
	}

	pruned := c.catalog.Prune()
	c.catalog.Sort()

	log.Info("live update finished",
		zap.Int("total", total),
		zap.Int("processed", processed),
		zap.Int("success", success),
		zap.Int("records_pruned", pruned))

	if req.Output != "" {
		c.writeOutputs(req.Output)
	}
	return success, nil
}

// writeOutputs exports the catalog in both formats. Failures are logged.
func (c *Checker) writeOutputs(output string) {
	files := []struct {
		path  string
		write func(io.Writer) error
	}{
		{output, c.catalog.WriteTxt},
		{atomicfile.WithExt(output, ".m3u"), c.catalog.WriteM3U},
	}
	for _, f := range files {
		if err := atomicfile.Write(f.path, f.write); err != nil {
			c.log.Error("save catalog failed", zap.String("path", f.path), zap.Error(err))
			continue
		}
		c.log.Info("catalog saved", zap.String("path", f.path))
	}
}
