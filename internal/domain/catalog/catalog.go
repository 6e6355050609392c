package catalog

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/edirooss/livesrc/pkg/ordering"
)

// DefaultCategory receives channels that arrive without a category.
const DefaultCategory = "其他频道"

// EPG carries the guide/presentation settings applied on tag-format export.
type EPG struct {
	URL       string `json:"url" yaml:"url"`               // x-tvg-url header attribute
	Source    string `json:"source" yaml:"source"`         // catch-up query template
	Domain    string `json:"domain" yaml:"domain"`         // prefix for relative logo paths
	ShowLogo  bool   `json:"show_logo" yaml:"show_logo"`   // emit tvg-logo
	RenameCID bool   `json:"rename_cid" yaml:"rename_cid"` // tvg-id := channel name
}

// Group is one category of channels.
type Group struct {
	Name     string
	channels map[string]*Record
	order    []string
}

func newGroup(name string) *Group {
	return &Group{Name: name, channels: make(map[string]*Record)}
}

// Names returns the channel names in presentation order.
func (g *Group) Names() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Channel returns the record registered under name.
func (g *Group) Channel(name string) (*Record, bool) {
	rec, ok := g.channels[name]
	return rec, ok
}

// Catalog is the grouped channel registry of one checking session.
//
// Concurrency Model:
//   - Group/channel membership is guarded by an RWMutex.
//   - Each Record guards its own URL list, so probe workers may drop URLs
//     of distinct (or the same) records in parallel.
//   - Presentation order is insertion order until Sort() is called; Sort is
//     not maintained incrementally. Call it after bulk insertion and before
//     serializing.
//   - Serialization must not overlap a running batch on the same catalog;
//     callers wait for the batch to finish first.
type Catalog struct {
	mu     sync.RWMutex
	groups map[string]*Group
	order  []string
	epg    EPG

	version atomic.Uint64 // bumped on every mutation
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{groups: make(map[string]*Group)}
}

// Version changes whenever the catalog content changes.
func (c *Catalog) Version() uint64 { return c.version.Load() }

// SetEPG replaces the export settings.
func (c *Catalog) SetEPG(epg EPG) {
	c.mu.Lock()
	c.epg = epg
	c.mu.Unlock()
	c.version.Add(1)
}

// EPG returns the export settings.
func (c *Catalog) EPG() EPG {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.epg
}

// Clear drops every group.
func (c *Catalog) Clear() {
	c.mu.Lock()
	c.groups = make(map[string]*Group)
	c.order = nil
	c.mu.Unlock()
	c.version.Add(1)
}

// groupLocked returns the named group, creating it if needed. c.mu must be held.
func (c *Catalog) groupLocked(name string) *Group {
	g, ok := c.groups[name]
	if !ok {
		g = newGroup(name)
		c.groups[name] = g
		c.order = append(c.order, name)
	}
	return g
}

// AddChannel registers url under (category, name). Idempotent by the triple:
// repeating it never duplicates the URL. id and logo fill empty fields of an
// existing record. Commas in category and name become "，" (see CleanName).
func (c *Catalog) AddChannel(category, name, url, id, logo string) {
	category, name = CleanName(category), CleanName(name)
	if category == "" {
		category = DefaultCategory
	}
	c.mu.Lock()
	g := c.groupLocked(category)
	rec, ok := g.channels[name]
	if !ok {
		rec = NewRecord(id, name)
		g.channels[name] = rec
		g.order = append(g.order, name)
	}
	c.mu.Unlock()

	rec.fillMeta(id, logo)
	if rec.AddURL(NewURL(url)) || !ok {
		c.version.Add(1)
	}
}

// AddChannelInfo merges a probed record into category. URLs are merged into
// an existing record of the same name; a record with neither name nor id is
// ignored.
func (c *Catalog) AddChannelInfo(category string, rec *Record) {
	category = CleanName(category)
	if category == "" {
		category = DefaultCategory
	}
	name := CleanName(rec.Name())
	if name == "" {
		name = rec.ID()
	}
	if name == "" {
		return
	}

	c.mu.Lock()
	g := c.groupLocked(category)
	have, ok := g.channels[name]
	if !ok {
		have = NewRecord(rec.ID(), name)
		g.channels[name] = have
		g.order = append(g.order, name)
	}
	c.mu.Unlock()

	have.fillMeta(rec.ID(), rec.Logo())
	for _, u := range rec.URLs() {
		have.AddURL(u)
	}
	c.version.Add(1)
}

// CleanName replaces ASCII commas with the full-width "，". The grouped
// format splits lines at the first comma, so a name carrying one would not
// survive an export and re-import.
func CleanName(s string) string {
	return strings.ReplaceAll(s, ",", "，")
}

// RemoveURL drops raw from rec. Reports whether it was present.
func (c *Catalog) RemoveURL(rec *Record, raw string) bool {
	if !rec.RemoveURL(raw) {
		return false
	}
	c.version.Add(1)
	return true
}

// Prune removes records without URLs and groups without records.
// Returns the number of records removed.
func (c *Catalog) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	groups := c.order[:0]
	for _, gname := range c.order {
		g := c.groups[gname]
		names := g.order[:0]
		for _, name := range g.order {
			if g.channels[name].Valid() {
				names = append(names, name)
				continue
			}
			delete(g.channels, name)
			removed++
		}
		g.order = names
		if len(g.order) == 0 {
			delete(c.groups, gname)
			continue
		}
		groups = append(groups, gname)
	}
	c.order = groups
	if removed > 0 {
		c.version.Add(1)
	}
	return removed
}

// Sort recomputes presentation order of groups and of channels within each group.
func (c *Catalog) Sort() {
	c.mu.Lock()
	defer c.mu.Unlock()
	ordering.Sort(c.order)
	for _, g := range c.groups {
		ordering.Sort(g.order)
	}
	c.version.Add(1)
}

// Groups returns group names in presentation order.
func (c *Catalog) Groups() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Group returns the named group. The returned group must only be read
// while no writer adds channels to it.
func (c *Catalog) Group(name string) (*Group, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	g, ok := c.groups[name]
	return g, ok
}

// Channel is one (group, record) pair in presentation order.
type Channel struct {
	Group  string
	Record *Record
}

// Channels returns every record in presentation order.
func (c *Catalog) Channels() []Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []Channel
	for _, gname := range c.order {
		g := c.groups[gname]
		for _, name := range g.order {
			out = append(out, Channel{Group: gname, Record: g.channels[name]})
		}
	}
	return out
}

// TotalCount returns the number of URL entries across all records. This is
// the denominator for batch progress, not the record count.
func (c *Catalog) TotalCount() int {
	n := 0
	for _, ch := range c.Channels() {
		n += ch.Record.Len()
	}
	return n
}

// ChannelIDs returns record ids (or names when the id is empty) in
// presentation order.
func (c *Catalog) ChannelIDs() []string {
	chs := c.Channels()
	out := make([]string, 0, len(chs))
	for _, ch := range chs {
		id := ch.Record.ID()
		if id == "" {
			id = ch.Record.Name()
		}
		out = append(out, id)
	}
	return out
}
