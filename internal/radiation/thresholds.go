package radiation

import (
	"fmt"
	"math"
)

// Thresholds is a warning/danger pair in µSv/h.
type Thresholds struct {
	Warning float64 `json:"warning" yaml:"warning" mapstructure:"warning"`
	Danger  float64 `json:"danger" yaml:"danger" mapstructure:"danger"`
}

// Validate rejects pairs that Classify cannot order: non-finite or
// negative values and warning >= danger.
func (t Thresholds) Validate() error {
	if math.IsNaN(t.Warning) || math.IsInf(t.Warning, 0) {
		return fmt.Errorf("warning threshold must be a finite number, got %v", t.Warning)
	}
	if math.IsNaN(t.Danger) || math.IsInf(t.Danger, 0) {
		return fmt.Errorf("danger threshold must be a finite number, got %v", t.Danger)
	}
	if t.Warning < 0 {
		return fmt.Errorf("warning threshold must not be negative, got %v", t.Warning)
	}
	if t.Warning >= t.Danger {
		return fmt.Errorf("warning threshold (%v) must be less than danger threshold (%v)", t.Warning, t.Danger)
	}
	return nil
}

// Classify maps a reading to its tier. A value equal to a threshold
// belongs to the higher tier. The caller guarantees warning < danger.
func Classify(value, warning, danger float64) Status {
	switch {
	case value >= danger:
		return StatusDanger
	case value >= warning:
		return StatusWarning
	default:
		return StatusNormal
	}
}

// Classify maps value to its tier using this pair.
func (t Thresholds) Classify(value float64) Status {
	return Classify(value, t.Warning, t.Danger)
}

// Crossed returns the threshold that value's tier crossed, or 0 for NORMAL.
func (t Thresholds) Crossed(status Status) float64 {
	switch status {
	case StatusDanger:
		return t.Danger
	case StatusWarning:
		return t.Warning
	default:
		return 0
	}
}
