package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextAccessors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                    string
		ctx                     *Context
		version, date, systemID string
	}{
		{"nil context", nil, UnknownValue, UnknownValue, UnknownValue},
		{"empty values", NewContext("", "", ""), UnknownValue, UnknownValue, UnknownValue},
		{"release", NewContext("1.2.0", "2024-03-01", "plant-7"), "1.2.0", "2024-03-01", "plant-7"},
		{"pre-release tag", NewContext("1.3.0-rc.1", "2024-04-02", ""), "1.3.0-rc.1", "2024-04-02", UnknownValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.version, tt.ctx.Version())
			assert.Equal(t, tt.date, tt.ctx.BuildDate())
			assert.Equal(t, tt.systemID, tt.ctx.SystemID())
		})
	}
}

func TestContextString(t *testing.T) {
	t.Parallel()

	s := NewContext("1.2.0", "2024-03-01", "").String()
	assert.Contains(t, s, "radmon 1.2.0")
	assert.Contains(t, s, "built 2024-03-01")
}

func TestWithSystemID(t *testing.T) {
	t.Parallel()

	base := NewContext("1.2.0", "2024-03-01", "")
	tagged := base.WithSystemID("ABCD-1234")
	assert.Equal(t, "ABCD-1234", tagged.SystemID())
	assert.Equal(t, "1.2.0", tagged.Version())
	assert.Equal(t, UnknownValue, base.SystemID())

	var none *Context
	assert.Equal(t, "ABCD-1234", none.WithSystemID("ABCD-1234").SystemID())
}
