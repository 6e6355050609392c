package checker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/edirooss/livesrc/internal/domain/catalog"
	"github.com/edirooss/livesrc/pkg/urlutil"
)

var (
	errNotPlayable   = errors.New("not playable")
	errEmptyManifest = errors.New("empty manifest")
	errProbePanic    = errors.New("probe panic")
)

// mp4 files start with a box size of 0x18 or 0x20 followed by "ftyp".
var mp4Signatures = [][]byte{
	[]byte("\x00\x00\x00\x18ftyp"),
	[]byte("\x00\x00\x00\x20ftyp"),
}

const minMP4Length = 1024

// outcome is what a finished probe learned about a URL.
type outcome struct {
	resolution int
	name       string
}

type probeResult struct {
	out outcome
	err error
}

// CheckWithTimeout reports whether u is playable. timeout <= 0 uses the
// configured probe timeout. On success the probed resolution is stored on u,
// and rec gets a name derived from the URL when it has none.
func (c *Checker) CheckWithTimeout(ctx context.Context, rec *catalog.Record, u *catalog.URL, deep bool, timeout time.Duration) bool {
	ok, _ := c.check(ctx, rec, u, deep, timeout)
	return ok
}

// check is CheckWithTimeout with cancellation reported separately: when
// parent is cancelled before the probe settles, it returns parent's error
// and the URL's verdict is unknown. Only a per-probe deadline or a probe
// error counts as a failure.
func (c *Checker) check(parent context.Context, rec *catalog.Record, u *catalog.URL, deep bool, timeout time.Duration) (bool, error) {
	if timeout <= 0 {
		timeout = c.opts.ProbeTimeout
	}
	start := time.Now()
	defer func() { CheckDuration.Observe(time.Since(start).Seconds()) }()

	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	raw := u.URL
	needName := rec.Name() == ""

	done := make(chan probeResult, 1)
	ProbesInFlight.Inc()
	go func() {
		defer ProbesInFlight.Dec()
		defer func() {
			if r := recover(); r != nil {
				done <- probeResult{err: fmt.Errorf("%w: %v", errProbePanic, r)}
			}
		}()
		out, err := c.probe(ctx, raw, deep, needName)
		done <- probeResult{out: out, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			if err := parent.Err(); err != nil {
				return c.cancelled(raw, err)
			}
			result := "fail"
			if errors.Is(res.err, errProbePanic) {
				result = "panic"
			}
			ChecksTotal.WithLabelValues(result).Inc()
			c.log.Debug("check failed", zap.String("url", raw), zap.Error(res.err))
			return false, nil
		}
		u.Resolution = res.out.resolution
		if needName && res.out.name != "" && rec.Name() == "" {
			rec.SetName(res.out.name)
		}
		ChecksTotal.WithLabelValues("ok").Inc()
		return true, nil
	case <-ctx.Done():
		if err := parent.Err(); err != nil {
			return c.cancelled(raw, err)
		}
		ChecksTotal.WithLabelValues("timeout").Inc()
		c.log.Warn("check timed out",
			zap.String("name", rec.Name()),
			zap.String("url", raw),
			zap.Duration("timeout", timeout))
		return false, nil
	}
}

func (c *Checker) cancelled(raw string, err error) (bool, error) {
	ChecksTotal.WithLabelValues("cancelled").Inc()
	c.log.Debug("check cancelled", zap.String("url", raw), zap.Error(err))
	return false, err
}

// probe runs the checks for one URL. It must not touch anything but its
// own locals; the caller applies the outcome.
func (c *Checker) probe(ctx context.Context, raw string, deep, needName bool) (outcome, error) {
	if isMP4(raw) {
		return outcome{}, c.checkMP4(ctx, raw)
	}
	if !deep {
		return outcome{}, nil
	}

	text, err := c.fetcher.FetchText(ctx, raw, 0)
	if err != nil {
		return outcome{}, fmt.Errorf("fetch manifest: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return outcome{}, errEmptyManifest
	}

	var out outcome
	if c.prober != nil {
		out.resolution = c.prober.ProbeResolution(ctx, raw)
	}
	if needName {
		out.name = NameFromURL(raw)
	}
	return out, nil
}

func (c *Checker) checkMP4(ctx context.Context, raw string) error {
	head, err := c.fetcher.FetchHead(ctx, raw)
	if err != nil {
		return fmt.Errorf("head: %w", err)
	}
	if !head.OK() {
		return fmt.Errorf("head status %d: %w", head.Status, errNotPlayable)
	}
	if head.ContentType != "" && !strings.Contains(strings.ToLower(head.ContentType), "video/mp4") {
		return fmt.Errorf("content type %q: %w", head.ContentType, errNotPlayable)
	}
	if head.ContentLength >= 0 && head.ContentLength < minMP4Length {
		return fmt.Errorf("content length %d: %w", head.ContentLength, errNotPlayable)
	}

	chunk, err := c.fetcher.FetchBytes(ctx, raw, 8)
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	for _, sig := range mp4Signatures {
		if bytes.Contains(chunk, sig) {
			return nil
		}
	}
	return fmt.Errorf("no ftyp box: %w", errNotPlayable)
}

// isMP4 reports whether the URL path names an .mp4 file.
func isMP4(raw string) bool {
	return strings.HasSuffix(strings.ToLower(urlPath(raw)), ".mp4")
}

// urlPath returns the path of raw without query or fragment.
func urlPath(raw string) string {
	p := urlutil.Split(raw).Path
	if i := strings.IndexAny(p, "?#"); i != -1 {
		p = p[:i]
	}
	return p
}

var genericSegments = map[string]bool{
	"index":     true,
	"playlist":  true,
	"chunklist": true,
	"video":     true,
	"":          true,
}

// NameFromURL derives a channel name from a stream URL: the last path
// segment, percent-decoded, without .m3u8/.ts. Generic segments such as
// "index" fall back to the parent segment when there is one.
func NameFromURL(raw string) string {
	p := urlPath(raw)
	name := unescape(path.Base(p))
	if name == "/" || name == "." {
		name = ""
	}
	name = strings.ReplaceAll(name, ".m3u8", "")
	name = strings.ReplaceAll(name, ".ts", "")

	if genericSegments[strings.ToLower(name)] {
		segs := strings.Split(strings.Trim(p, "/"), "/")
		if len(segs) > 1 {
			return unescape(segs[len(segs)-2])
		}
	}
	return name
}

func unescape(s string) string {
	if v, err := url.PathUnescape(s); err == nil {
		return v
	}
	return s
}
