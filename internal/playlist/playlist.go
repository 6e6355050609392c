// Package playlist reads the two channel list formats into flat entries.
//
// Grouped format:
//
//	央视频道,#genre#
//	CCTV1,http://host/cctv1.m3u8
//
// Tag format:
//
//	#EXTM3U
//	#EXTINF:-1 tvg-id="cctv1" tvg-logo="..." group-title="央视频道",CCTV1
//	http://host/cctv1.m3u8
package playlist

import (
	"bufio"
	"io"
	"strings"
)

// Entry is one (category, channel, url) tuple read from a list.
type Entry struct {
	Category string `json:"category"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	ID       string `json:"id,omitempty"`
	Logo     string `json:"logo,omitempty"`
}

const genreMarker = "#genre#"

// maxLine bounds a single line; real lists carry long signed URLs.
const maxLine = 512 * 1024

func scanLines(r io.Reader, fn func(line string)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(nil, maxLine)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fn(line)
	}
	return sc.Err()
}

// Sniff reports whether text looks like a tag-format list.
func Sniff(text string) bool {
	t := strings.TrimLeft(text, "\ufeff \t\r\n")
	return strings.HasPrefix(t, "#EXTM3U") || strings.HasPrefix(t, "#EXTINF:")
}
