package planner

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wakeroute/internal/types"
)

func TestResolveDepartureTime(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	now := time.Date(2026, 8, 29, 2, 0, 0, 0, time.UTC) // 10:00 local

	tests := []struct {
		name string
		spec string
		want time.Time
	}{
		{
			name: "empty spec means now",
			spec: "",
			want: now.In(loc),
		},
		{
			name: "date and colon time",
			spec: "2026-09-01,08:30",
			want: time.Date(2026, 9, 1, 8, 30, 0, 0, loc),
		},
		{
			name: "date and time with seconds",
			spec: "2026-09-01,08:30:15",
			want: time.Date(2026, 9, 1, 8, 30, 15, 0, loc),
		},
		{
			name: "slash separated date",
			spec: "2026/09/01,08:30",
			want: time.Date(2026, 9, 1, 8, 30, 0, 0, loc),
		},
		{
			name: "bare HHMM means today",
			spec: "0815",
			want: time.Date(2026, 8, 29, 8, 15, 0, 0, loc),
		},
		{
			name: "bare HH:MM means today",
			spec: "23:45",
			want: time.Date(2026, 8, 29, 23, 45, 0, 0, loc),
		},
		{
			name: "surrounding whitespace is ignored",
			spec: "  0815  ",
			want: time.Date(2026, 8, 29, 8, 15, 0, 0, loc),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveDepartureTime(tt.spec, now, loc)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestResolveDepartureTime_Invalid(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, loc)

	specs := []string{
		"8am",
		"123",
		"12345",
		"25:00",
		"2026-13-01,08:00",
		"notadate,08:00",
		"2026-09-01,late",
	}

	for _, spec := range specs {
		t.Run(spec, func(t *testing.T) {
			_, err := ResolveDepartureTime(spec, now, loc)
			require.Error(t, err)

			var appErr *types.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, types.ErrCodeValidationInvalidTimeSpec, appErr.Code)
		})
	}
}
