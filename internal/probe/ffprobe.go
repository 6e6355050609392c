package probe

import (
	"context"
	"os/exec"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// FFProbe reads the height of the first video stream with ffprobe.
type FFProbe struct {
	Path    string        // binary; default "ffprobe"
	Timeout time.Duration // default 5s
	log     *zap.Logger
}

var _ ResolutionProber = (*FFProbe)(nil)

// NewFFProbe returns a prober running the binary at path.
func NewFFProbe(log *zap.Logger, path string, timeout time.Duration) *FFProbe {
	if path == "" {
		path = "ffprobe"
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &FFProbe{Path: path, Timeout: timeout, log: log.Named("ffprobe")}
}

type ffprobeOutput struct {
	Streams []struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"streams"`
}

func ffprobeArgs(url string) []string {
	return []string{
		"-v", "error",
		"-connect_timeout", "5000",
		"-rw_timeout", "5000000",
		"-probesize", "32768",
		"-analyzeduration", "1000000",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "json",
		url,
	}
}

// ProbeResolution returns the stream height, or 0 on any failure.
func (p *FFProbe) ProbeResolution(ctx context.Context, url string) int {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, p.Path, ffprobeArgs(url)...).Output()
	if err != nil {
		FFProbeRuns.WithLabelValues("error").Inc()
		p.log.Debug("ffprobe failed", zap.String("url", url), zap.Error(err))
		return 0
	}
	return parseHeight(out)
}

func parseHeight(out []byte) int {
	var res ffprobeOutput
	if err := json.Unmarshal(out, &res); err != nil || len(res.Streams) == 0 {
		FFProbeRuns.WithLabelValues("no_stream").Inc()
		return 0
	}
	FFProbeRuns.WithLabelValues("ok").Inc()
	return res.Streams[0].Height
}
