package hostutil

import (
	"errors"
	"fmt"
	"strings"

	"github.com/edirooss/livesrc/pkg/urlutil"
)

var (
	// ErrNoScheme means the URL has no scheme or it is not http(s).
	ErrNoScheme = errors.New("url scheme must be http or https")
	// ErrNoHost means the URL has no authority.
	ErrNoHost = errors.New("url has no host")
)

// ValidateStreamURL accepts absolute http(s) URLs with a well-formed host.
func ValidateStreamURL(raw string) error {
	p := urlutil.Split(strings.TrimSpace(raw))
	switch strings.ToLower(p.Schema) {
	case "http", "https":
	default:
		return fmt.Errorf("%q: %w", raw, ErrNoScheme)
	}
	if p.Host == "" {
		return fmt.Errorf("%q: %w", raw, ErrNoHost)
	}
	if err := ValidateHost(p.Host); err != nil {
		return fmt.Errorf("%q: %w", raw, err)
	}
	return nil
}
