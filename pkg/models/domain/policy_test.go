package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPeakWindow_Contains(t *testing.T) {
	window := PeakWindow{
		Start: TimeOfDay{Hour: 8, Minute: 0},
		End:   TimeOfDay{Hour: 18, Minute: 0},
	}

	tests := []struct {
		name     string
		at       TimeOfDay
		expected bool
	}{
		{"before window", TimeOfDay{Hour: 7, Minute: 59}, false},
		{"start boundary is inside", TimeOfDay{Hour: 8, Minute: 0}, true},
		{"midday", TimeOfDay{Hour: 12, Minute: 30}, true},
		{"end boundary is inside", TimeOfDay{Hour: 18, Minute: 0}, true},
		{"after window", TimeOfDay{Hour: 18, Minute: 1}, false},
		{"midnight", TimeOfDay{Hour: 0, Minute: 0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, window.Contains(tt.at))
		})
	}
}

func TestTimeOfDay_String(t *testing.T) {
	assert.Equal(t, "08:05", TimeOfDay{Hour: 8, Minute: 5}.String())
	assert.Equal(t, "23:59", TimeOfDay{Hour: 23, Minute: 59}.String())
}

func TestResourceType_Valid(t *testing.T) {
	for _, rt := range AllResourceTypes() {
		assert.True(t, rt.Valid(), string(rt))
	}
	assert.False(t, ResourceType("projects").Valid())
	assert.False(t, ResourceType("").Valid())
}
