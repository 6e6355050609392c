package playlist

import (
	"io"
	"regexp"
	"strings"
)

// attrRe matches key="value" pairs. \w stops at '-', so tvg-id is read as
// "id", tvg-logo as "logo" and group-title as "title".
var attrRe = regexp.MustCompile(`(\w+)="((?:[^"\\]|\\.)*)"`)

// ParseExtInf splits the content after "#EXTINF:" into its attributes and
// the display name following the last comma.
func ParseExtInf(content string) (map[string]string, string) {
	params := make(map[string]string)
	attrs, name := content, ""
	if i := strings.LastIndexByte(content, ','); i != -1 {
		attrs, name = content[:i], strings.TrimSpace(content[i+1:])
	}
	for _, m := range attrRe.FindAllStringSubmatch(attrs, -1) {
		params[m[1]] = m[2]
	}
	return params, name
}

// ReadM3U parses a tag-format list. Each http(s) line becomes an entry
// carrying the metadata of the most recent #EXTINF line.
func ReadM3U(r io.Reader) ([]Entry, error) {
	var (
		out []Entry
		cur Entry
	)
	err := scanLines(r, func(line string) {
		switch {
		case strings.HasPrefix(line, "#EXTINF:"):
			params, name := ParseExtInf(strings.TrimSpace(line[len("#EXTINF:"):]))
			cur = Entry{
				Category: params["title"],
				Name:     name,
				ID:       params["id"],
				Logo:     params["logo"],
			}
		case strings.HasPrefix(line, "http:"), strings.HasPrefix(line, "https:"):
			e := cur
			e.URL = line
			out = append(out, e)
		}
	})
	return out, err
}

// ParseM3U is ReadM3U over a string.
func ParseM3U(text string) []Entry {
	out, _ := ReadM3U(strings.NewReader(text))
	return out
}
