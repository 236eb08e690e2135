package itinerary

import (
	"time"

	"wakeroute/internal/types"
)

// wakeBuffer is the preparation time reserved between waking and departing.
const wakeBuffer = time.Hour

// fallAsleepBuffer models the time needed to fall asleep once in bed.
const fallAsleepBuffer = 15 * time.Minute

// sleepDurations are the candidate sleep lengths in descending order,
// approximating 6 down to 3 full 90-minute sleep cycles.
var sleepDurations = []time.Duration{
	9 * time.Hour,
	7*time.Hour + 30*time.Minute,
	6 * time.Hour,
	4*time.Hour + 30*time.Minute,
}

// SleepOption is one candidate bedtime.
type SleepOption struct {
	SleepTime time.Time
	Duration  time.Duration
}

// Schedule is the recommended wake time plus bedtime options, ordered by
// descending sleep duration.
type Schedule struct {
	WakeTime time.Time
	Options  []SleepOption
}

// Recommend derives a sleep/wake schedule from the itinerary's first
// departure: wake one hour before departure, and for each candidate duration
// go to bed duration+15min before waking. Date rollover into the previous
// day is preserved, never clamped.
//
// A zero departure time cannot anchor a schedule and yields an AppError; the
// caller reports the error text but still emits the itinerary listing.
func Recommend(firstDeparture time.Time) (Schedule, error) {
	if firstDeparture.IsZero() {
		return Schedule{}, types.NewAppError(types.ErrCodeScheduleCompute,
			"first segment has no departure time to anchor the schedule", nil)
	}

	wake := firstDeparture.Add(-wakeBuffer)
	options := make([]SleepOption, 0, len(sleepDurations))
	for _, d := range sleepDurations {
		options = append(options, SleepOption{
			SleepTime: wake.Add(-(d + fallAsleepBuffer)),
			Duration:  d,
		})
	}
	return Schedule{WakeTime: wake, Options: options}, nil
}
