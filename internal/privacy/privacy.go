// Package privacy provides privacy-focused utility functions for handling sensitive data
// such as service URLs with embedded credentials.
package privacy

import (
	"net/url"
	"regexp"
	"strings"
)

// Pre-compiled patterns
var (
	// URL pattern for finding service URLs in text (smtp://, telegram://, tcp://, https://, ...)
	urlPattern = regexp.MustCompile(`\b[a-zA-Z][a-zA-Z0-9+.-]*://\S+`)

	// phone pattern for international numbers such as +79001234567
	phonePattern = regexp.MustCompile(`\+\d{10,15}\b`)
)

// redacted replaces secrets in output.
const redacted = "***"

// ScrubMessage replaces every URL in message with its redacted form.
func ScrubMessage(message string) string {
	return urlPattern.ReplaceAllStringFunc(message, RedactURL)
}

// RedactURL strips credentials, path and query from rawURL, keeping the
// scheme and host for debugging. Unparseable input is fully redacted.
func RedactURL(rawURL string) string {
	trailer := ""
	if trimmed := strings.TrimRight(rawURL, `.,;:)"'`); trimmed != rawURL {
		trailer = rawURL[len(trimmed):]
		rawURL = trimmed
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" {
		return redacted + trailer
	}

	var b strings.Builder
	b.WriteString(u.Scheme)
	b.WriteString("://")
	if u.User != nil {
		b.WriteString(redacted)
		b.WriteByte('@')
	}
	b.WriteString(u.Host)
	if (u.Path != "" && u.Path != "/") || u.RawQuery != "" {
		b.WriteString("/" + redacted)
	}
	return b.String() + trailer
}

// MaskPhone keeps the country code and the last two digits of every phone
// number in s.
func MaskPhone(s string) string {
	return phonePattern.ReplaceAllStringFunc(s, func(p string) string {
		if len(p) <= 4 {
			return p
		}
		return p[:2] + strings.Repeat("*", len(p)-4) + p[len(p)-2:]
	})
}

// scrubbedError reports a credential-free message and unwraps to the
// original error.
type scrubbedError struct {
	err error
	msg string
}

func (e *scrubbedError) Error() string { return e.msg }
func (e *scrubbedError) Unwrap() error { return e.err }

// WrapError returns err with every URL in its message redacted. It returns
// nil for a nil err.
func WrapError(err error) error {
	if err == nil {
		return nil
	}
	return &scrubbedError{err: err, msg: ScrubMessage(err.Error())}
}
