package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeSlotOverlaps(t *testing.T) {
	at := func(hour, min int) time.Time {
		return time.Date(2026, 3, 2, hour, min, 0, 0, time.UTC)
	}

	tests := []struct {
		name string
		a    TimeSlot
		b    TimeSlot
		want bool
	}{
		{
			name: "partial overlap",
			a:    TimeSlot{Start: at(10, 0), End: at(10, 30)},
			b:    TimeSlot{Start: at(10, 15), End: at(10, 45)},
			want: true,
		},
		{
			name: "identical slots",
			a:    TimeSlot{Start: at(10, 0), End: at(10, 30)},
			b:    TimeSlot{Start: at(10, 0), End: at(10, 30)},
			want: true,
		},
		{
			name: "contained slot",
			a:    TimeSlot{Start: at(9, 0), End: at(12, 0)},
			b:    TimeSlot{Start: at(10, 0), End: at(10, 30)},
			want: true,
		},
		{
			name: "adjacent slots share only a boundary",
			a:    TimeSlot{Start: at(10, 0), End: at(10, 30)},
			b:    TimeSlot{Start: at(10, 30), End: at(11, 0)},
			want: false,
		},
		{
			name: "disjoint slots",
			a:    TimeSlot{Start: at(10, 0), End: at(10, 30)},
			b:    TimeSlot{Start: at(11, 0), End: at(11, 30)},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Overlaps(tt.b))
			assert.Equal(t, tt.want, tt.b.Overlaps(tt.a))
		})
	}
}
