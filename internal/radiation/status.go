// Package radiation defines the monitoring domain model: sensors, readings,
// threshold tiers and alert events.
package radiation

import (
	"fmt"
	"strings"
)

// Status is the threshold tier of a reading. Values are ordered by severity.
type Status int

const (
	StatusNormal Status = iota
	StatusWarning
	StatusDanger
)

// String returns the persisted and displayed tier name.
func (s Status) String() string {
	switch s {
	case StatusNormal:
		return "NORMAL"
	case StatusWarning:
		return "WARNING"
	case StatusDanger:
		return "DANGER"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Exceeded reports whether the tier is above NORMAL.
func (s Status) Exceeded() bool {
	return s > StatusNormal
}

// ParseStatus parses a tier name, case-insensitively.
func ParseStatus(s string) (Status, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NORMAL":
		return StatusNormal, nil
	case "WARNING":
		return StatusWarning, nil
	case "DANGER":
		return StatusDanger, nil
	default:
		return StatusNormal, fmt.Errorf("unknown status %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
