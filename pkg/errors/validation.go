package errors

import (
	"net/url"
	"strings"
	"unicode"
)

// ValidateHostID validates a host identifier before it is used as a storage
// key or a file name.
//
// An id must be non-empty, at most 128 bytes, and free of control
// characters, path separators and "..".
func ValidateHostID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidID, "host id cannot be empty")
	}

	if len(id) > 128 {
		return New(ErrCodeInvalidID, "host id too long (max 128 characters)")
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidID, "host id contains invalid control characters")
		}
	}

	for _, pattern := range []string{"..", "/", "\\", "\x00"} {
		if strings.Contains(id, pattern) {
			return New(ErrCodeInvalidID, "host id contains invalid characters: %q", pattern)
		}
	}

	return nil
}

// ValidateContentURL validates the location of an SVG document.
// Local paths, file:// and http(s):// URLs are accepted.
func ValidateContentURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return New(ErrCodeInvalidInput, "content url cannot be empty")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Wrap(ErrCodeInvalidInput, err, "invalid content url %q", raw)
	}

	switch u.Scheme {
	case "", "file", "http", "https":
		return nil
	default:
		// Windows drive letters parse as a one-letter scheme.
		if len(u.Scheme) == 1 {
			return nil
		}
		return New(ErrCodeUnsupported, "unsupported url scheme %q", u.Scheme)
	}
}
