package category

import "github.com/edirooss/livesrc/internal/playlist"

// ImportTxt normalizes grouped-format entries for a session import. Entries
// outside any header, in undefined categories, or (with useIgnore) in
// ignored categories are dropped.
func (t *Tables) ImportTxt(entries []playlist.Entry, useIgnore bool) []playlist.Entry {
	out := make([]playlist.Entry, 0, len(entries))
	for _, e := range entries {
		cat := Clean(e.Category)
		if cat == "" {
			continue
		}
		cat = t.Category(cat)
		if (useIgnore && t.IsIgnore(cat)) || !t.Exists(cat) {
			continue
		}
		e.Category = cat
		e.Name = t.Channel(e.Name)
		out = append(out, e)
	}
	return out
}

// ImportM3U normalizes tag-format entries for a session import. Ignored and
// undefined categories are always dropped. logo, when non-nil, rewrites
// logos of categories flagged change_logo.
func (t *Tables) ImportM3U(entries []playlist.Entry, logo func(string) string) []playlist.Entry {
	out := make([]playlist.Entry, 0, len(entries))
	for _, e := range entries {
		cat := t.Category(e.Category)
		if t.IsIgnore(cat) || !t.Exists(cat) {
			continue
		}
		e.Category = cat
		e.Name = t.Channel(e.Name)
		e.ID = t.ChannelID(e.ID)
		if logo != nil && t.ChangeLogo(cat) {
			e.Logo = logo(e.Logo)
		}
		out = append(out, e)
	}
	return out
}

// Assign regroups posted entries by their definitions and drops excluded
// channels. Channel names are kept as written.
func (t *Tables) Assign(entries []playlist.Entry) []playlist.Entry {
	out := make([]playlist.Entry, 0, len(entries))
	for _, e := range entries {
		cat := Clean(e.Category)
		if cat == "" {
			continue
		}
		cat = t.Category(cat)
		def := t.Lookup(e.Name, cat)
		if IsExclude(def, e.Name) {
			continue
		}
		if def != nil {
			cat = def.Name
		}
		e.Category = cat
		out = append(out, e)
	}
	return out
}

// Rename canonicalizes channel names only, keeping categories as written.
// An entry without id keeps its name as written as the id.
func (t *Tables) Rename(entries []playlist.Entry) []playlist.Entry {
	out := make([]playlist.Entry, len(entries))
	for i, e := range entries {
		if e.ID == "" {
			e.ID = e.Name
		}
		e.Name = t.Channel(e.Name)
		out[i] = e
	}
	return out
}
