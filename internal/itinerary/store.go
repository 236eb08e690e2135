// Package itinerary implements the session-scoped itinerary store and the
// sleep/wake schedule recommender. A store holds the ordered trip segments of
// one conversation session; the session registry in the bot layer owns the
// session-to-store mapping.
package itinerary

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"wakeroute/internal/types"
)

// emptyMessage is returned when a summary is requested before any segment was
// planned. Draining an empty store performs no clear and is idempotent.
const emptyMessage = "No trip segments planned yet. Send a route first."

// Store is an append-only, ordered sequence of trip segments for one session.
// Append and DrainAndSummarize are serialized by a mutex so a summary can
// never observe a partially appended state and an append can never interleave
// with the clear.
type Store struct {
	mu       sync.Mutex
	segments []types.TripSegment
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Append adds one segment to the end of the itinerary. Segments are never
// reordered: summaries render in append order, chronological by creation.
func (s *Store) Append(segment types.TripSegment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.segments = append(s.segments, segment)
}

// Len reports the number of accumulated segments.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.segments)
}

// DrainAndSummarize renders every segment in append order, appends the
// sleep/wake recommendation computed from the first segment's departure, and
// clears the store atomically with respect to the render. A schedule
// computation failure is reported as a trailing warning after the complete
// listing. On an empty store it returns the fixed empty message and clears
// nothing.
func (s *Store) DrainAndSummarize() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.segments) == 0 {
		return emptyMessage
	}

	var b strings.Builder
	b.WriteString("Your trip plan:\n")
	for i, seg := range s.segments {
		fmt.Fprintf(&b, "\nLeg %d: %s -> %s\n", i+1, seg.Origin, seg.Destination)
		fmt.Fprintf(&b, "  Departure: %s\n", seg.DepartureTime.Format("2006-01-02 15:04"))
		if seg.ChosenMode != nil {
			fmt.Fprintf(&b, "  Mode: %s\n", seg.ChosenMode.Label())
			fmt.Fprintf(&b, "  Arrival: %s\n", seg.ArrivalTime.In(seg.DepartureTime.Location()).Format("15:04"))
		} else {
			b.WriteString("  Mode: none found\n")
		}
		fmt.Fprintf(&b, "  Weather: %s, rain probability %d%%\n", seg.WeatherDescription, seg.RainProbability)
	}

	schedule, err := Recommend(s.segments[0].DepartureTime)
	if err != nil {
		fmt.Fprintf(&b, "\nCould not compute a wake-up recommendation: %v", err)
	} else {
		fmt.Fprintf(&b, "\nBased on your first departure (%s), wake up by %s (1 hour to get ready).\n",
			s.segments[0].DepartureTime.Format("15:04"),
			schedule.WakeTime.Format("15:04"))
		b.WriteString("Suggested bedtimes (15 min to fall asleep):\n")
		for _, opt := range schedule.Options {
			fmt.Fprintf(&b, "  - %s (%s)\n", opt.SleepTime.Format("15:04"), formatDuration(opt.Duration))
		}
	}

	s.segments = nil
	return b.String()
}

// formatDuration renders a sleep duration as "9 hours" or "7.5 hours".
func formatDuration(d time.Duration) string {
	hours := d.Hours()
	if hours == float64(int(hours)) {
		return fmt.Sprintf("%d hours", int(hours))
	}
	return fmt.Sprintf("%.1f hours", hours)
}
