package viewport

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateURL checks that raw is an absolute, well-formed URL and returns it
// trimmed. Hierarchical schemes must carry a host; file URLs a path.
func ValidateURL(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidURL, s, err)
	}
	if u.Scheme == "" {
		return "", fmt.Errorf("%w: %q has no scheme", ErrInvalidURL, s)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https", "ws", "wss":
		if u.Host == "" {
			return "", fmt.Errorf("%w: %q has no host", ErrInvalidURL, s)
		}
	case "file":
		if u.Path == "" {
			return "", fmt.Errorf("%w: %q has no path", ErrInvalidURL, s)
		}
	default:
		if u.Opaque == "" && u.Host == "" && u.Path == "" {
			return "", fmt.Errorf("%w: %q is incomplete", ErrInvalidURL, s)
		}
	}
	return s, nil
}
