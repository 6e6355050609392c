package service

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/edirooss/livesrc/internal/checker"
	"github.com/edirooss/livesrc/internal/domain/catalog"
	"github.com/edirooss/livesrc/pkg/hostutil"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrEmptyInput     = errors.New("empty input")
	ErrNoChannels     = errors.New("no valid channel data found")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// SingleRequest asks for one URL to be probed.
type SingleRequest struct {
	URL string `json:"url"`
	// Rule locates the channel id inside URL; "{i}" marks the digits.
	Rule string `json:"rule"`
}

func (r *SingleRequest) setDefaults() {
	if r.Rule == "" {
		r.Rule = "/" + checker.Placeholder + "/"
	}
}

func (r *SingleRequest) validate() error {
	if err := hostutil.ValidateStreamURL(r.URL); err != nil {
		return invalid("url: %v", err)
	}
	if !strings.Contains(r.Rule, checker.Placeholder) {
		return invalid("rule must contain %s", checker.Placeholder)
	}
	return nil
}

// ExtractID applies Rule to URL. Returns "index" when the rule does not match.
func (r *SingleRequest) ExtractID() string {
	pattern := strings.Replace(regexp.QuoteMeta(r.Rule), regexp.QuoteMeta(checker.Placeholder), `(\d+)`, 1)
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "index"
	}
	if m := re.FindStringSubmatch(r.URL); m != nil {
		return m[1]
	}
	return "index"
}

// BatchRequest asks for an index-ranged batch check.
type BatchRequest struct {
	URL        string  `json:"url"`
	Start      int     `json:"start"`
	Size       int     `json:"size"`
	Resolution *string `json:"resolution"`
	IsClear    *bool   `json:"is_clear"`
	ThreadSize int     `json:"thread_size"`
}

func (r *BatchRequest) setDefaults() {
	if r.Start == 0 {
		r.Start = 1
	}
	if r.Size == 0 {
		r.Size = 10
	}
	if r.Resolution == nil {
		res := "1920*1080"
		r.Resolution = &res
	}
	if r.IsClear == nil {
		r.IsClear = ptr(true)
	}
	if r.ThreadSize == 0 {
		r.ThreadSize = 20
	}
}

func (r *BatchRequest) validate() error {
	switch {
	case !strings.Contains(r.URL, checker.Placeholder):
		return invalid("url must contain %s", checker.Placeholder)
	case r.Start < 1:
		return invalid("start must be >= 1")
	case r.Size < 1 || r.Size > 1000:
		return invalid("size must be within 1..1000")
	case r.ThreadSize < 1 || r.ThreadSize > 64:
		return invalid("thread_size must be within 1..64")
	}
	if _, err := catalog.ParseResolution(*r.Resolution); err != nil {
		return invalid("resolution: %v", err)
	}
	return nil
}

// UpdateRequest asks for remote sources to be loaded, validated and saved.
type UpdateRequest struct {
	Output     string       `json:"output"`
	URL        []string     `json:"url"`
	EPG        *catalog.EPG `json:"epg"`
	IsClear    *bool        `json:"is_clear"`
	ThreadSize int          `json:"thread_size"`
	// CheckM3U8 fetches manifests instead of accepting non-file URLs unseen.
	CheckM3U8 bool `json:"check_m3u8"`
}

func (r *UpdateRequest) setDefaults(output string) {
	if r.Output == "" {
		r.Output = output
	}
	if r.IsClear == nil {
		r.IsClear = ptr(true)
	}
	if r.ThreadSize == 0 {
		r.ThreadSize = 20
	}
}

func (r *UpdateRequest) validate() error {
	if len(r.URL) == 0 || r.EPG == nil {
		return invalid("url or epg is empty")
	}
	if r.ThreadSize < 1 || r.ThreadSize > 64 {
		return invalid("thread_size must be within 1..64")
	}
	return nil
}

func ptr[T any](v T) *T { return &v }
