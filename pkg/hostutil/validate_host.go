package hostutil

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"unicode"
)

// ErrBadHost wraps every host rejected by ValidateHost.
var ErrBadHost = errors.New("bad host")

// ValidateHost accepts IP literals (IPv6 with or without brackets) and
// hostnames made of 1..63 byte labels of letters, digits and inner hyphens.
// Letters may be non-ASCII; mirror lists use IDN hosts unencoded.
func ValidateHost(raw string) error {
	host := strings.TrimSuffix(strings.TrimPrefix(raw, "["), "]")
	if strings.Contains(host, ":") {
		if addr, err := netip.ParseAddr(host); err != nil || !addr.Is6() {
			return fmt.Errorf("%w: ipv6 literal %q", ErrBadHost, raw)
		}
		return nil
	}
	if isDottedQuad(host) {
		if _, err := netip.ParseAddr(host); err != nil {
			return fmt.Errorf("%w: ipv4 %q", ErrBadHost, raw)
		}
		return nil
	}
	if !validHostname(host) {
		return fmt.Errorf("%w: hostname %q", ErrBadHost, raw)
	}
	return nil
}

func isDottedQuad(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return false
	}
	for _, p := range parts {
		if p == "" || strings.TrimFunc(p, unicode.IsDigit) != "" {
			return false
		}
	}
	return true
}

func validHostname(s string) bool {
	if s == "" || len(s) > 253 {
		return false
	}
	for _, label := range strings.Split(s, ".") {
		if len(label) == 0 || len(label) > 63 {
			return false
		}
		if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return false
		}
		for _, r := range label {
			if r != '-' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
				return false
			}
		}
	}
	return true
}
