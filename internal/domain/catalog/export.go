package catalog

import (
	"bufio"
	"io"
	"strings"
)

// WriteTxt serializes the catalog in grouped format.
func (c *Catalog) WriteTxt(w io.Writer) error {
	bw := bufio.NewWriter(w)
	var group string
	first := true
	for _, ch := range c.Channels() {
		if first || ch.Group != group {
			if !first {
				bw.WriteString("\n")
			}
			group, first = ch.Group, false
			bw.WriteString(group)
			bw.WriteString(",#genre#\n")
		}
		bw.WriteString(ch.Record.Lines())
	}
	if !first {
		bw.WriteString("\n")
	}
	return bw.Flush()
}

// WriteM3U serializes the catalog in tag format.
func (c *Catalog) WriteM3U(w io.Writer) error {
	epg := c.EPG()
	bw := bufio.NewWriter(w)

	bw.WriteString("#EXTM3U")
	if epg.URL != "" {
		bw.WriteString(` x-tvg-url="`)
		bw.WriteString(epg.URL)
		bw.WriteString(`"`)
	}
	bw.WriteString("\n")

	for _, ch := range c.Channels() {
		rec := ch.Record
		name := rec.Name()
		id := rec.ID()
		if id == "" || epg.RenameCID {
			id = name
		}
		logo := logoURL(epg, rec.Logo())

		for _, u := range rec.URLs() {
			bw.WriteString(`#EXTINF:-1 tvg-id="`)
			bw.WriteString(id)
			bw.WriteString(`" tvg-name="`)
			bw.WriteString(name)
			bw.WriteString(`"`)
			if logo != "" {
				bw.WriteString(` tvg-logo="`)
				bw.WriteString(logo)
				bw.WriteString(`"`)
			}
			if epg.Source != "" {
				bw.WriteString(` catchup="append" catchup-source="`)
				bw.WriteString(epg.Source)
				bw.WriteString(`"`)
			}
			bw.WriteString(` group-title="`)
			bw.WriteString(ch.Group)
			bw.WriteString(`",`)
			bw.WriteString(name)
			bw.WriteString("\n")
			bw.WriteString(u.URL)
			bw.WriteString("\n")
		}
	}
	return bw.Flush()
}

// ToTxtString returns the grouped-format serialization.
func (c *Catalog) ToTxtString() string {
	var b strings.Builder
	_ = c.WriteTxt(&b)
	return b.String()
}

// ToM3UString returns the tag-format serialization.
func (c *Catalog) ToM3UString() string {
	var b strings.Builder
	_ = c.WriteM3U(&b)
	return b.String()
}

func logoURL(epg EPG, logo string) string {
	if !epg.ShowLogo || logo == "" {
		return ""
	}
	if epg.Domain == "" || strings.Contains(logo, "://") {
		return logo
	}
	return strings.TrimRight(epg.Domain, "/") + "/" + strings.TrimLeft(logo, "/")
}
