package urlutil

import (
	"strings"
)

// Parts is the raw decomposition of a stream URL:
//
//	schema:[//][userinfo@]host[:port]path
//
// Nothing is decoded or validated; Path keeps query and fragment.
type Parts struct {
	Schema   string
	Userinfo string
	Host     string
	Port     string
	Path     string
}

// Split decomposes raw following FFmpeg's av_url_split rules, so that
// anything an ffmpeg-based player would accept splits the same way here.
// The port is kept as the raw substring ("123abc", "", "+42").
func Split(raw string) (p Parts) {
	var cursor int

	// scheme: everything up to ':', then up to two optional '/'
	colon := strings.IndexByte(raw, ':')
	if colon == -1 {
		p.Path = raw
		return
	}
	p.Schema = raw[:colon]
	cursor = colon + 1
	for i := 0; i < 2; i++ {
		if cursor == len(raw) {
			return
		}
		if raw[cursor] == '/' {
			cursor++
		}
	}
	if cursor == len(raw) {
		return
	}

	// authority ends at the first '/', '?' or '#'
	pathAt := cursor + strcspn(raw[cursor:], "/?#")
	p.Path = raw[pathAt:]
	if pathAt == cursor {
		return
	}

	// userinfo is everything up to the LAST '@' of the authority
	if at := strings.LastIndexByte(raw[cursor:pathAt], '@'); at != -1 {
		p.Userinfo = raw[cursor : cursor+at]
		cursor += at + 1
		if cursor == pathAt {
			return
		}
	}

	authority := raw[cursor:pathAt]
	switch {
	case authority[0] == '[' && strings.IndexByte(authority, ']') != -1:
		brk := strings.IndexByte(authority, ']')
		p.Host = authority[1:brk]
		if rest := authority[brk+1:]; strings.HasPrefix(rest, ":") {
			p.Port = rest[1:]
		}
	case strings.IndexByte(authority, ':') != -1:
		c := strings.IndexByte(authority, ':')
		p.Host = authority[:c]
		p.Port = authority[c+1:]
	default:
		p.Host = authority
	}
	return
}

// Host returns the lowercased host of raw, without port or brackets.
// Returns "" when raw has no authority.
func Host(raw string) string {
	return strings.ToLower(Split(strings.TrimSpace(raw)).Host)
}

// strcspn returns the length of the initial segment of s that
// contains none of the bytes in reject.
func strcspn(s, reject string) int {
	if idx := strings.IndexAny(s, reject); idx != -1 {
		return idx
	}
	return len(s)
}
