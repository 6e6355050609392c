// Package merger narrows a playlist with many mirrors per channel down to
// the mirrors served by the most popular hosts.
package merger

import (
	"slices"

	"github.com/edirooss/livesrc/internal/domain/catalog"
	"github.com/edirooss/livesrc/internal/playlist"
	"github.com/edirooss/livesrc/pkg/urlutil"
)

// Policy controls what survives a merge.
type Policy struct {
	// MaxURLsPerChannel caps the URLs kept per channel after host
	// filtering, in input order. 0 keeps all.
	MaxURLsPerChannel int
}

// HostCount is one ranked mirror host.
type HostCount struct {
	Host  string `json:"host"`
	Count int    `json:"count"`
}

// Merger ranks hosts by how many entries they serve.
//
// Popularity is the quality proxy: a host that appears for many channels
// is assumed to be a more complete mirror. Ties keep first-seen order.
// Entries without a host are never retained once a top-N filter ran.
type Merger struct {
	entries []playlist.Entry
	policy  Policy
}

type entryKey struct {
	category, name, url string
}

// New prepares a merge over entries. Repeated (category, name, url)
// entries are collapsed.
func New(entries []playlist.Entry, policy Policy) *Merger {
	seen := make(map[entryKey]bool, len(entries))
	out := make([]playlist.Entry, 0, len(entries))
	for _, e := range entries {
		k := entryKey{e.Category, e.Name, e.URL}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, e)
	}
	return &Merger{entries: out, policy: policy}
}

// Entries returns the current entry list.
func (m *Merger) Entries() []playlist.Entry {
	return slices.Clone(m.entries)
}

// Hosts ranks every host of the current entries, most popular first.
func (m *Merger) Hosts() []HostCount {
	index := make(map[string]int)
	var ranked []HostCount
	for _, e := range m.entries {
		h := urlutil.Host(e.URL)
		if h == "" {
			continue
		}
		i, ok := index[h]
		if !ok {
			i = len(ranked)
			index[h] = i
			ranked = append(ranked, HostCount{Host: h})
		}
		ranked[i].Count++
	}
	// stable: equal counts keep first-seen order
	slices.SortStableFunc(ranked, func(a, b HostCount) int { return b.Count - a.Count })
	return ranked
}

// FindTopHosts keeps only entries served by the n most popular hosts and
// returns those hosts. n <= 0 keeps every host.
func (m *Merger) FindTopHosts(n int) []HostCount {
	ranked := m.Hosts()
	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	keep := make(map[string]bool, len(ranked))
	for _, h := range ranked {
		keep[h.Host] = true
	}

	out := m.entries[:0]
	for _, e := range m.entries {
		if keep[urlutil.Host(e.URL)] {
			out = append(out, e)
		}
	}
	m.entries = out
	return ranked
}

// FormatOutput renders the entries in grouped format, categories and
// channels in natural order, URLs in input order.
func (m *Merger) FormatOutput() string {
	return m.Catalog().ToTxtString()
}

// Catalog builds a sorted catalog from the entries, applying the policy.
func (m *Merger) Catalog() *catalog.Catalog {
	cat := catalog.New()
	perChannel := make(map[[2]string]int)
	for _, e := range m.entries {
		k := [2]string{e.Category, e.Name}
		if m.policy.MaxURLsPerChannel > 0 && perChannel[k] >= m.policy.MaxURLsPerChannel {
			continue
		}
		perChannel[k]++
		cat.AddChannel(e.Category, e.Name, e.URL, e.ID, e.Logo)
	}
	cat.Sort()
	return cat
}
