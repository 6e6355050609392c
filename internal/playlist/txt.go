package playlist

import (
	"io"
	"strings"
)

// ReadTxt parses a grouped-format list. Lines before the first header get an
// empty Category. Comment lines and lines without a comma are skipped.
func ReadTxt(r io.Reader) ([]Entry, error) {
	var (
		out      []Entry
		category string
	)
	err := scanLines(r, func(line string) {
		if strings.HasSuffix(line, genreMarker) {
			category = strings.TrimSpace(strings.TrimSuffix(strings.TrimSuffix(line, genreMarker), ","))
			return
		}
		if strings.HasPrefix(line, "#") {
			return
		}
		name, url, ok := strings.Cut(line, ",")
		if !ok {
			return
		}
		name, url = strings.TrimSpace(name), strings.TrimSpace(url)
		if url == "" {
			return
		}
		out = append(out, Entry{Category: category, Name: name, URL: url})
	})
	return out, err
}

// ParseTxt is ReadTxt over a string.
func ParseTxt(text string) []Entry {
	out, _ := ReadTxt(strings.NewReader(text))
	return out
}
