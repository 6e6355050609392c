package checker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/edirooss/livesrc/internal/category"
	"github.com/edirooss/livesrc/internal/domain/catalog"
	"github.com/edirooss/livesrc/internal/infrastructure/tasklog"
	"github.com/edirooss/livesrc/internal/playlist"
	"github.com/edirooss/livesrc/internal/probe"
	"github.com/edirooss/livesrc/internal/task"
)

type fakeFetcher struct {
	head  func(url string) (probe.Head, error)
	bytes func(url string) ([]byte, error)
	text  func(ctx context.Context, url string) (string, error)
	calls atomic.Int32
}

func (f *fakeFetcher) FetchHead(_ context.Context, url string) (probe.Head, error) {
	f.calls.Add(1)
	return f.head(url)
}

func (f *fakeFetcher) FetchBytes(_ context.Context, url string, _ int) ([]byte, error) {
	f.calls.Add(1)
	return f.bytes(url)
}

func (f *fakeFetcher) FetchText(ctx context.Context, url string, _ int64) (string, error) {
	f.calls.Add(1)
	return f.text(ctx, url)
}

// manifestOK serves a manifest for every URL not containing "bad".
func manifestOK() *fakeFetcher {
	return &fakeFetcher{text: func(_ context.Context, url string) (string, error) {
		if strings.Contains(url, "bad") {
			return "", errors.New("connection refused")
		}
		return "#EXTM3U\n#EXT-X-TARGETDURATION:6\n", nil
	}}
}

func newChecker(t *testing.T, cat *catalog.Catalog, f probe.Fetcher, p probe.ResolutionProber, tables *category.Tables) *Checker {
	t.Helper()
	return New(zaptest.NewLogger(t), cat, f, p, tables, tasklog.NewManager(), Options{ProbeTimeout: 2 * time.Second})
}

func newTask(t *testing.T, total int) *task.Task {
	t.Helper()
	r := task.NewRegistry(nil)
	id := r.Create("", total, task.TypeUpdateLive, "")
	tk, err := r.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	tk.Apply(task.WithStatus(task.StatusRunning))
	return tk
}

func TestCheckWithTimeout_SlowProbeFailsPromptly(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	f := &fakeFetcher{text: func(context.Context, string) (string, error) {
		<-release // ignores cancellation on purpose
		return "#EXTM3U", nil
	}}
	c := newChecker(t, catalog.New(), f, nil, nil)

	rec := catalog.NewRecord("1", "")
	u := catalog.NewURL("http://slow/live.m3u8")
	start := time.Now()
	if c.CheckWithTimeout(context.Background(), rec, u, true, 50*time.Millisecond) {
		t.Fatal("slow probe reported playable")
	}
	if d := time.Since(start); d > time.Second {
		t.Errorf("caller blocked for %s", d)
	}
	if rec.Name() != "" || u.Resolution != 0 {
		t.Error("timed out probe mutated the record")
	}
}

func TestCheckWithTimeout_PanicIsFailure(t *testing.T) {
	f := &fakeFetcher{text: func(context.Context, string) (string, error) { panic("boom") }}
	c := newChecker(t, catalog.New(), f, nil, nil)
	if c.CheckWithTimeout(context.Background(), catalog.NewRecord("", ""), catalog.NewURL("http://x/a.m3u8"), true, 0) {
		t.Error("panicking probe reported playable")
	}
}

func TestCheckWithTimeout_ShallowSkipsNetwork(t *testing.T) {
	f := manifestOK()
	c := newChecker(t, catalog.New(), f, nil, nil)
	if !c.CheckWithTimeout(context.Background(), catalog.NewRecord("", ""), catalog.NewURL("http://bad/a.m3u8"), false, 0) {
		t.Error("shallow check rejected a stream URL")
	}
	if n := f.calls.Load(); n != 0 {
		t.Errorf("shallow check made %d fetches", n)
	}
}

func TestCheckWithTimeout_Deep(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		text       string
		expected   bool
		resolution int
		recName    string
	}{
		{"manifest ok", "http://h/live/cctv1/index.m3u8", "#EXTM3U", true, 1080, "cctv1"},
		{"empty manifest", "http://h/live/cctv1/index.m3u8", "  \n", false, 0, ""},
		{"named segment", "http://h/live/%E6%B9%96%E5%8D%97.m3u8?k=v", "#EXTM3U", true, 1080, "湖南"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeFetcher{text: func(context.Context, string) (string, error) { return tt.text, nil }}
			p := probe.ResolutionFunc(func(context.Context, string) int { return 1080 })
			c := newChecker(t, catalog.New(), f, p, nil)

			rec := catalog.NewRecord("1", "")
			u := catalog.NewURL(tt.url)
			if got := c.CheckWithTimeout(context.Background(), rec, u, true, 0); got != tt.expected {
				t.Fatalf("CheckWithTimeout = %v, expected %v", got, tt.expected)
			}
			if u.Resolution != tt.resolution || rec.Name() != tt.recName {
				t.Errorf("resolution=%d name=%q, expected %d %q", u.Resolution, rec.Name(), tt.resolution, tt.recName)
			}
		})
	}
}

func TestCheckWithTimeout_KeepsExistingName(t *testing.T) {
	c := newChecker(t, catalog.New(), manifestOK(), nil, nil)
	rec := catalog.NewRecord("", "CCTV1")
	c.CheckWithTimeout(context.Background(), rec, catalog.NewURL("http://h/x/index.m3u8"), true, 0)
	if rec.Name() != "CCTV1" {
		t.Errorf("name = %q", rec.Name())
	}
}

func TestCheckMP4(t *testing.T) {
	good := []byte("\x00\x00\x00\x20ftypisom")
	tests := []struct {
		name     string
		head     probe.Head
		body     []byte
		expected bool
	}{
		{"valid", probe.Head{Status: 200, ContentType: "video/mp4", ContentLength: 4096}, good, true},
		{"no headers", probe.Head{Status: 200, ContentLength: -1}, []byte("\x00\x00\x00\x18ftyp"), true},
		{"not found", probe.Head{Status: 404, ContentLength: -1}, good, false},
		{"wrong type", probe.Head{Status: 200, ContentType: "text/html", ContentLength: -1}, good, false},
		{"too short", probe.Head{Status: 200, ContentType: "video/mp4", ContentLength: 100}, good, false},
		{"bad signature", probe.Head{Status: 200, ContentLength: -1}, []byte("<html></"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeFetcher{
				head:  func(string) (probe.Head, error) { return tt.head, nil },
				bytes: func(string) ([]byte, error) { return tt.body, nil },
			}
			c := newChecker(t, catalog.New(), f, nil, nil)
			// shallow mode still inspects direct files
			got := c.CheckWithTimeout(context.Background(), catalog.NewRecord("", ""), catalog.NewURL("http://h/movie.MP4?t=1"), false, 0)
			if got != tt.expected {
				t.Errorf("got %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestNameFromURL(t *testing.T) {
	tests := []struct {
		url      string
		expected string
	}{
		{"http://h/live/cctv1.m3u8", "cctv1"},
		{"http://h/live/cctv1/index.m3u8", "cctv1"},
		{"http://h/live/cctv1/playlist.m3u8?token=1", "cctv1"},
		{"http://h/hls/%E5%8C%97%E4%BA%AC/chunklist.m3u8", "北京"},
		{"http://h/index.m3u8", "index"},
		{"http://h/seg/001.ts", "001"},
		{"http://h/", ""},
	}
	for _, tt := range tests {
		if got := NameFromURL(tt.url); got != tt.expected {
			t.Errorf("NameFromURL(%q) = %q, expected %q", tt.url, got, tt.expected)
		}
	}
}

func TestWorkers(t *testing.T) {
	c := newChecker(t, catalog.New(), manifestOK(), nil, nil)
	if got := c.workers(1); got != 1 {
		t.Errorf("workers(1) = %d", got)
	}
	if got := c.workers(1 << 20); got >= 1<<20 {
		t.Errorf("workers not capped: %d", got)
	}
	if got := c.workers(0); got < 1 || got > 20 {
		t.Errorf("workers(0) = %d", got)
	}
}

func TestCheckBatch(t *testing.T) {
	cat := catalog.New()
	p := probe.ResolutionFunc(func(_ context.Context, url string) int {
		if strings.Contains(url, "/live/2/") || strings.Contains(url, "/live/4/") {
			return 1080
		}
		return 720
	})
	f := manifestOK()
	c := newChecker(t, cat, f, p, nil)
	tk := newTask(t, 5)

	n, err := c.CheckBatch(context.Background(), BatchRequest{
		Template:   "http://h/live/{i}/index.m3u8",
		Start:      1,
		Size:       5,
		Resolution: "1920*1080",
		Threads:    3,
		Deep:       true,
	}, tk)
	if err != nil {
		t.Fatalf("CheckBatch: %v", err)
	}
	if n != 2 {
		t.Errorf("success = %d, expected 2", n)
	}

	g, ok := cat.Group(catalog.DefaultCategory)
	if !ok {
		t.Fatal("default group missing")
	}
	if got := strings.Join(g.Names(), ","); got != "2,4" {
		t.Errorf("names = %s, expected 2,4", got)
	}
	if got := strings.Join(cat.ChannelIDs(), ","); got != "2,4" {
		t.Errorf("ids = %s", got)
	}

	s := tk.Snapshot()
	if s.Processed != 5 || s.Total != 5 || s.Success != 2 || s.Progress != 100 {
		t.Errorf("snapshot = %+v", s)
	}
}

func TestCheckBatch_SetupErrors(t *testing.T) {
	c := newChecker(t, catalog.New(), manifestOK(), nil, nil)
	tk := newTask(t, 1)
	tests := []struct {
		name string
		req  BatchRequest
		tk   *task.Task
		err  error
	}{
		{"nil task", BatchRequest{Template: "http://h/{i}", Size: 1}, nil, ErrNilTask},
		{"no placeholder", BatchRequest{Template: "http://h/1", Size: 1}, tk, ErrBadTemplate},
		{"empty range", BatchRequest{Template: "http://h/{i}", Size: 0}, tk, ErrBadRange},
	}
	for _, tt := range tests {
		if _, err := c.CheckBatch(context.Background(), tt.req, tt.tk); !errors.Is(err, tt.err) {
			t.Errorf("%s: err = %v, expected %v", tt.name, err, tt.err)
		}
	}
}

func TestUpdateBatchLive_EndToEnd(t *testing.T) {
	cat := catalog.New()
	text := "央视频道,#genre#\nCCTV1,http://good/cctv1.m3u8\nCCTV2,http://bad/cctv2.m3u8\n"
	for _, e := range playlist.ParseTxt(text) {
		cat.AddChannel(e.Category, e.Name, e.URL, e.ID, e.Logo)
	}

	out := filepath.Join(t.TempDir(), "out", "live.txt")
	c := newChecker(t, cat, manifestOK(), nil, nil)
	tk := newTask(t, cat.TotalCount())

	n, err := c.UpdateBatchLive(context.Background(), LiveRequest{Threads: 4, Deep: true, Output: out}, tk)
	if err != nil {
		t.Fatalf("UpdateBatchLive: %v", err)
	}
	if n != 1 {
		t.Errorf("success = %d, expected 1", n)
	}

	chs := cat.Channels()
	if len(chs) != 1 || chs[0].Record.Name() != "CCTV1" || chs[0].Record.Len() != 1 {
		t.Fatalf("surviving channels = %+v", chs)
	}

	s := tk.Snapshot()
	if s.Processed != s.Total || s.Success > s.Processed {
		t.Errorf("snapshot = %+v", s)
	}

	txt, err := os.ReadFile(out)
	if err != nil || string(txt) != "央视频道,#genre#\nCCTV1,http://good/cctv1.m3u8\n\n" {
		t.Errorf("txt export = %q, %v", txt, err)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(out), "live.m3u")); err != nil {
		t.Errorf("m3u export missing: %v", err)
	}
}

func TestUpdateBatchLive_CorrectsTotalAndSkipsIgnored(t *testing.T) {
	tables, err := category.Parse([]byte(`
category_map: {}
ignore_category: [港澳频道]
channel_map: {}
channel_id_map: {}
channel_name_map: {}
`))
	if err != nil {
		t.Fatal(err)
	}

	cat := catalog.New()
	cat.AddChannel("央视频道", "CCTV1", "http://good/1.m3u8", "", "")
	cat.AddChannel("央视频道", "CCTV1", "http://bad/1.m3u8", "", "")
	cat.AddChannel("港澳频道", "TVB", "http://bad/tvb.m3u8", "", "")

	c := newChecker(t, cat, manifestOK(), nil, tables)
	tk := newTask(t, 99)

	if _, err := c.UpdateBatchLive(context.Background(), LiveRequest{Deep: true}, tk); err != nil {
		t.Fatal(err)
	}
	s := tk.Snapshot()
	if s.Total != 2 || s.Processed != 2 || s.Success != 1 {
		t.Errorf("snapshot = %+v, expected total=2 processed=2 success=1", s)
	}
	g, _ := cat.Group("港澳频道")
	if rec, ok := g.Channel("TVB"); !ok || rec.Len() != 1 {
		t.Error("ignored group was probed")
	}
}

// cancelOnFetch cancels the batch context from inside the first fetch and
// then blocks like a stalled stream until the cancellation reaches it.
func cancelOnFetch(cancel context.CancelFunc) *fakeFetcher {
	return &fakeFetcher{text: func(ctx context.Context, _ string) (string, error) {
		cancel()
		<-ctx.Done()
		return "", ctx.Err()
	}}
}

func TestCheck_ParentCancelIsNotAFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := newChecker(t, catalog.New(), cancelOnFetch(cancel), nil, nil)

	rec := catalog.NewRecord("", "CCTV1")
	u := catalog.NewURL("http://good/cctv1.m3u8")
	rec.AddURL(u)

	ok, err := c.check(ctx, rec, u, true, time.Minute)
	if ok || !errors.Is(err, context.Canceled) {
		t.Errorf("check = %v, %v; expected false, context.Canceled", ok, err)
	}
	if c.CheckWithTimeout(context.Background(), rec, u, true, 50*time.Millisecond) {
		t.Error("expected a plain deadline to fail the URL")
	}
}

func TestUpdateBatchLive_CancelKeepsCatalogAndExport(t *testing.T) {
	cat := catalog.New()
	cat.AddChannel("央视频道", "CCTV1", "http://good/cctv1.m3u8", "", "")
	cat.AddChannel("央视频道", "CCTV2", "http://good/cctv2.m3u8", "", "")

	dir := t.TempDir()
	out := filepath.Join(dir, "live.txt")
	const previous = "previous good export\n"
	if err := os.WriteFile(out, []byte(previous), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := newChecker(t, cat, cancelOnFetch(cancel), nil, nil)
	tk := newTask(t, cat.TotalCount())

	_, err := c.UpdateBatchLive(ctx, LiveRequest{Threads: 2, Deep: true, Output: out}, tk)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("UpdateBatchLive err = %v, expected context.Canceled", err)
	}

	if n := cat.TotalCount(); n != 2 {
		t.Errorf("catalog has %d URLs after cancel, expected 2", n)
	}
	if got, _ := os.ReadFile(out); string(got) != previous {
		t.Errorf("export overwritten: %q", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "live.m3u")); !os.IsNotExist(err) {
		t.Errorf("m3u export written after cancel: %v", err)
	}
	if s := tk.Snapshot(); s.Processed != 0 {
		t.Errorf("cancelled probes counted as processed: %+v", s)
	}
}

func TestCheckBatch_CancelReturnsError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cat := catalog.New()
	c := newChecker(t, cat, cancelOnFetch(cancel), nil, nil)
	tk := newTask(t, 3)

	_, err := c.CheckBatch(ctx, BatchRequest{Template: "http://h/{i}/index.m3u8", Start: 1, Size: 3, Threads: 1, Deep: true}, tk)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("CheckBatch err = %v, expected context.Canceled", err)
	}
	if n := cat.TotalCount(); n != 0 {
		t.Errorf("catalog has %d URLs, expected none", n)
	}
}
