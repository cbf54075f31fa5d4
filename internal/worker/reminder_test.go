package worker

import (
	"testing"
	"time"
)

func TestNextRunAfter(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		hour int
		want time.Time
	}{
		{
			name: "before the hour runs today",
			now:  time.Date(2025, 2, 10, 7, 30, 0, 0, time.UTC),
			hour: 9,
			want: time.Date(2025, 2, 10, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "after the hour runs tomorrow",
			now:  time.Date(2025, 2, 10, 14, 0, 0, 0, time.UTC),
			hour: 9,
			want: time.Date(2025, 2, 11, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "exactly on the hour runs tomorrow",
			now:  time.Date(2025, 2, 10, 9, 0, 0, 0, time.UTC),
			hour: 9,
			want: time.Date(2025, 2, 11, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "midnight hour",
			now:  time.Date(2025, 2, 10, 23, 59, 0, 0, time.UTC),
			hour: 0,
			want: time.Date(2025, 2, 11, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "month rollover",
			now:  time.Date(2025, 1, 31, 10, 0, 0, 0, time.UTC),
			hour: 9,
			want: time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := nextRunAfter(tt.now, tt.hour)
			if !got.Equal(tt.want) {
				t.Errorf("nextRunAfter(%v, %d) = %v, want %v", tt.now, tt.hour, got, tt.want)
			}
		})
	}
}
