package types

import (
	"math"
	"time"
)

// Coordinate is a geocoded latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// ForecastSample is the single forecast entry whose timestamp is closest to a
// requested target time. It may be stale by up to the provider's sampling
// interval.
type ForecastSample struct {
	Description     string `json:"description"`
	RainProbability int    `json:"rain_probability"` // 0-100
}

// TravelMode identifies one travel method for a trip segment.
type TravelMode string

const (
	ModeDriving TravelMode = "driving"
	ModeWalking TravelMode = "walking"
	ModeCycling TravelMode = "cycling"
	ModeBus     TravelMode = "bus"
	// ModeTransit is the combined rail/metro/high-speed transit mode.
	ModeTransit TravelMode = "transit"
	// ModeTransitGeneric is the provider's unrestricted transit query. It is
	// recorded alongside the other results but never part of the default
	// allow-list, so it can never be chosen as the best mode.
	ModeTransitGeneric TravelMode = "transit_generic"
)

// RankedModes is the fixed iteration order used by the ranking engine.
// The order is load-bearing: ties resolve to the mode appearing first.
var RankedModes = []TravelMode{ModeDriving, ModeWalking, ModeCycling, ModeBus, ModeTransit}

// QueriedModes lists every mode the directions fan-out asks the provider
// about, including the generic transit query.
var QueriedModes = []TravelMode{ModeDriving, ModeWalking, ModeCycling, ModeTransitGeneric, ModeBus, ModeTransit}

// ParseTravelMode maps an exclusion name from the fixed user vocabulary to a
// TravelMode. Unrecognized names return ok=false and are treated by callers
// as a no-op filter.
func ParseTravelMode(name string) (TravelMode, bool) {
	switch name {
	case "driving":
		return ModeDriving, true
	case "walking":
		return ModeWalking, true
	case "cycling":
		return ModeCycling, true
	case "bus":
		return ModeBus, true
	case "transit":
		return ModeTransit, true
	}
	return "", false
}

// Label returns the user-facing name of the mode.
func (m TravelMode) Label() string {
	switch m {
	case ModeDriving:
		return "driving"
	case ModeWalking:
		return "walking"
	case ModeCycling:
		return "cycling"
	case ModeBus:
		return "bus"
	case ModeTransit:
		return "transit (rail/metro/high-speed)"
	case ModeTransitGeneric:
		return "transit (any)"
	}
	return string(m)
}

// DurationFailed is the sentinel duration recorded when a directions query
// fails or returns nothing. Ranking skips any result carrying it.
var DurationFailed = math.Inf(1)

// RouteLeg is the structured result of one directions query. Duration is
// carried as seconds end-to-end; the display text is kept verbatim for
// user-facing output but never parsed.
type RouteLeg struct {
	DurationText    string
	DurationSeconds int
}

// ModeResult is the outcome of one directions query for one mode. A failed
// provider call still yields a ModeResult with the failure sentinel rather
// than omitting the mode, so the ranking engine can skip it deterministically.
type ModeResult struct {
	Mode            TravelMode
	DurationText    string
	DurationMinutes float64   // DurationFailed when the query failed
	ArrivalTime     time.Time // zero when the query failed
}

// Failed reports whether the underlying directions query failed.
func (r ModeResult) Failed() bool {
	return math.IsInf(r.DurationMinutes, 1)
}

// TripSegment is one planned origin->destination leg. It is created exactly
// once per planning request that reaches the ranking stage and is immutable
// once appended to an itinerary. A nil ChosenMode is a valid terminal value
// meaning no mode survived filtering, not an error.
type TripSegment struct {
	Origin             string
	Destination        string
	DepartureTime      time.Time
	ChosenMode         *TravelMode
	ArrivalTime        time.Time // zero when no mode was chosen
	WeatherDescription string
	RainProbability    int
}

// CurrentConditions describes the present weather at a coordinate.
type CurrentConditions struct {
	Description  string
	TemperatureC float64
}

// BusArrival is one per-stop realtime arrival estimate for a bus route.
type BusArrival struct {
	StopName     string
	Outbound     bool
	EstimateMins int       // -1 when no realtime estimate is available
	NextBusTime  time.Time // zero unless the route has not departed yet
}
