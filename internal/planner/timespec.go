package planner

import (
	"fmt"
	"strings"
	"time"

	"wakeroute/internal/types"
)

// Accepted layouts for the combined "date,time" spec after joining the two
// halves with a space.
var combinedLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006/01/02 15:04",
}

// ResolveDepartureTime interprets a time spec in the planner timezone:
//
//   - ""                  -> now
//   - "YYYY-MM-DD,HH:MM"  -> that date and time
//   - "HHMM" or "HH:MM"   -> today at that time
//
// A malformed spec returns a validation AppError carrying the parser detail
// for user display.
func ResolveDepartureTime(spec string, now time.Time, loc *time.Location) (time.Time, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return now.In(loc), nil
	}

	if strings.Contains(spec, ",") {
		return parseCombined(spec, loc)
	}
	return parseBareTime(spec, now, loc)
}

func parseCombined(spec string, loc *time.Location) (time.Time, error) {
	datePart, timePart, _ := strings.Cut(spec, ",")
	joined := strings.TrimSpace(datePart) + " " + strings.TrimSpace(timePart)

	var lastErr error
	for _, layout := range combinedLayouts {
		t, err := time.ParseInLocation(layout, joined, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, types.NewAppError(types.ErrCodeValidationInvalidTimeSpec,
		fmt.Sprintf("invalid departure time %q: %v", spec, lastErr), lastErr)
}

func parseBareTime(spec string, now time.Time, loc *time.Location) (time.Time, error) {
	clock := spec
	// A 4-digit token like "0800" means "08:00".
	if !strings.Contains(clock, ":") {
		if len(clock) != 4 {
			return time.Time{}, types.NewAppError(types.ErrCodeValidationInvalidTimeSpec,
				fmt.Sprintf("invalid departure time %q: expected HHMM or HH:MM", spec), nil)
		}
		clock = clock[:2] + ":" + clock[2:]
	}

	t, err := time.ParseInLocation("15:04", clock, loc)
	if err != nil {
		return time.Time{}, types.NewAppError(types.ErrCodeValidationInvalidTimeSpec,
			fmt.Sprintf("invalid departure time %q: %v", spec, err), err)
	}

	today := now.In(loc)
	return time.Date(today.Year(), today.Month(), today.Day(),
		t.Hour(), t.Minute(), 0, 0, loc), nil
}
