package checker

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/edirooss/livesrc/internal/domain/catalog"
	"github.com/edirooss/livesrc/internal/task"
)

// Placeholder is replaced by the candidate index in batch templates.
const Placeholder = "{i}"

// BatchRequest describes an index-ranged batch: Size candidates built from
// Template with {i} = Start..Start+Size-1.
type BatchRequest struct {
	Template   string
	Start      int
	Size       int
	Resolution string // e.g. "1920*1080"; empty disables the gate
	Threads    int
	Deep       bool
}

// CheckBatch probes every candidate of req and adds the playable ones to
// the catalog under the default category. Returns the number of records
// added. Only setup problems and cancellation of ctx are returned as
// errors; a cancelled batch leaves the records added so far unsorted.
func (c *Checker) CheckBatch(ctx context.Context, req BatchRequest, t *task.Task) (int, error) {
	if t == nil {
		return 0, ErrNilTask
	}
	if !strings.Contains(req.Template, Placeholder) {
		return 0, ErrBadTemplate
	}
	if req.Size <= 0 {
		return 0, ErrBadRange
	}
	height, err := catalog.ParseResolution(req.Resolution)
	if err != nil {
		return 0, fmt.Errorf("check batch: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("check batch: %w", err)
	}

	workers := c.workers(req.Threads)
	log := c.log.With(zap.String("task", t.ID()))
	log.Info("batch check started",
		zap.String("template", req.Template),
		zap.Int("start", req.Start),
		zap.Int("size", req.Size),
		zap.Int("workers", workers))

	tr := &tracker{total: req.Size, task: t}
	var g errgroup.Group
	g.SetLimit(workers)

	for i := req.Start; i < req.Start+req.Size; i++ {
		if ctx.Err() != nil {
			break
		}
		id := strconv.Itoa(i)
		raw := strings.ReplaceAll(req.Template, Placeholder, id)
		g.Go(func() error {
			rec := catalog.NewRecord(id, "")
			u := catalog.NewURL(raw)
			rec.AddURL(u)

			ok, err := c.check(ctx, rec, u, req.Deep, 0)
			if err != nil {
				return nil
			}
			if !u.MatchesHeight(height) {
				rec.RemoveURL(u.URL)
			}
			added := ok && rec.Valid()
			if added {
				c.catalog.AddChannelInfo("", rec)
			} else {
				c.logs.Logf(t.ID(), "drop %s (playable=%v resolution=%d)", raw, ok, u.Resolution)
			}
			tr.done(added)
			return nil
		})
	}
	_ = g.Wait()

	processed, success, total := tr.counts()
	if err := ctx.Err(); err != nil {
		log.Warn("batch check cancelled",
			zap.Int("total", total),
			zap.Int("processed", processed),
			zap.Error(err))
		return success, fmt.Errorf("check batch: %w", err)
	}
	c.catalog.Sort()

	log.Info("batch check finished",
		zap.Int("total", total),
		zap.Int("processed", processed),
		zap.Int("success", success))
	return success, nil
}
