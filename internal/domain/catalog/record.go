package catalog

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// URL is one candidate stream location of a channel. Identity is the exact
// URL string; only Resolution and Rate change after creation.
type URL struct {
	URL        string   `json:"url"`
	Resolution int      `json:"resolution"` // pixel height, 0 = unknown
	Rate       *float64 `json:"rate,omitempty"`
}

// NewURL returns a URL with unknown resolution.
func NewURL(raw string) *URL { return &URL{URL: raw} }

// MatchesHeight reports whether the URL passes a resolution gate.
// height <= 0 disables the gate.
func (u *URL) MatchesHeight(height int) bool {
	return height <= 0 || u.Resolution == height
}

// ParseResolution extracts the pixel height from a filter such as
// "1920*1080", "1920x1080" or "1080". Empty input yields 0 (no filter).
func ParseResolution(filter string) (int, error) {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return 0, nil
	}
	h := filter
	if i := strings.LastIndexAny(filter, "*xX"); i != -1 {
		h = filter[i+1:]
	}
	v, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil || v < 0 {
		return 0, fmt.Errorf("bad resolution filter %q", filter)
	}
	return v, nil
}

// Record is a channel with its ordered, duplicate-free set of URLs.
// Records are safe for concurrent use: probe workers remove failing URLs
// of the same record in parallel.
type Record struct {
	mu   sync.Mutex
	id   string
	name string
	logo string
	urls []*URL
}

// NewRecord returns an empty record.
func NewRecord(id, name string) *Record {
	return &Record{id: id, name: name}
}

func (r *Record) ID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.id
}

func (r *Record) Name() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.name
}

func (r *Record) Logo() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.logo
}

// SetName sets the display name.
func (r *Record) SetName(name string) {
	r.mu.Lock()
	r.name = name
	r.mu.Unlock()
}

// SetLogo sets the logo URL.
func (r *Record) SetLogo(logo string) {
	r.mu.Lock()
	r.logo = logo
	r.mu.Unlock()
}

// fillMeta sets id/logo only where they are still empty.
func (r *Record) fillMeta(id, logo string) {
	r.mu.Lock()
	if r.id == "" {
		r.id = id
	}
	if r.logo == "" {
		r.logo = logo
	}
	r.mu.Unlock()
}

// AddURL appends u unless a URL with the same string is already present.
func (r *Record) AddURL(u *URL) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, have := range r.urls {
		if have.URL == u.URL {
			return false
		}
	}
	r.urls = append(r.urls, u)
	return true
}

// RemoveURL drops the URL with the given string. Reports whether it was present.
func (r *Record) RemoveURL(raw string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, have := range r.urls {
		if have.URL == raw {
			r.urls = append(r.urls[:i:i], r.urls[i+1:]...)
			return true
		}
	}
	return false
}

// URLs returns a snapshot of the URL list in insertion order.
func (r *Record) URLs() []*URL {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*URL, len(r.urls))
	copy(out, r.urls)
	return out
}

// Len returns the number of URLs.
func (r *Record) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.urls)
}

// Valid reports whether the record may be retained: it needs at least one URL.
func (r *Record) Valid() bool { return r.Len() > 0 }

// Lines renders the record in grouped-format body lines ("name,url\n").
func (r *Record) Lines() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var b strings.Builder
	for _, u := range r.urls {
		b.WriteString(r.name)
		b.WriteByte(',')
		b.WriteString(u.URL)
		b.WriteByte('\n')
	}
	return b.String()
}
