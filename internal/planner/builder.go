package planner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"wakeroute/internal/types"
)

// Geocoder resolves a place name to coordinates.
type Geocoder interface {
	Resolve(ctx context.Context, place string) (types.Coordinate, error)
}

// WeatherSource returns the forecast entry nearest a target timestamp.
type WeatherSource interface {
	ForecastNear(ctx context.Context, coord types.Coordinate, target time.Time) (types.ForecastSample, error)
}

// DirectionsSource issues one directions query for one mode.
type DirectionsSource interface {
	Route(ctx context.Context, origin, destination string, mode types.TravelMode, departure time.Time) (types.RouteLeg, error)
}

// SegmentStore receives the one segment every planning request that reaches
// the ranking stage produces. Implemented by the itinerary store.
type SegmentStore interface {
	Append(segment types.TripSegment)
}

// SegmentRequest is one planning request from the conversational layer.
type SegmentRequest struct {
	Origin        string
	Destination   string
	TimeSpec      string
	ExcludedModes []string
}

// Planner orchestrates geocoding, the weather lookup, the per-mode directions
// fan-out, and mode ranking, and appends the outcome to the session itinerary.
type Planner struct {
	geocoder   Geocoder
	weather    WeatherSource
	directions DirectionsSource
	rules      []DemotionRule
	fallback   types.Coordinate
	location   *time.Location
	logger     *slog.Logger
	clock      types.Clock
}

// PlannerConfig carries the construction parameters for a Planner.
type PlannerConfig struct {
	Fallback      types.Coordinate
	Location      *time.Location
	DemotionRules []DemotionRule
	Logger        *slog.Logger
	Clock         types.Clock
}

// NewPlanner creates a Planner with the provided dependencies.
func NewPlanner(geocoder Geocoder, weather WeatherSource, directions DirectionsSource, cfg PlannerConfig) *Planner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.RealClock{}
	}
	location := cfg.Location
	if location == nil {
		location = time.UTC
	}
	return &Planner{
		geocoder:   geocoder,
		weather:    weather,
		directions: directions,
		rules:      cfg.DemotionRules,
		fallback:   cfg.Fallback,
		location:   location,
		logger:     logger,
		clock:      clock,
	}
}

// PlanSegment turns one planning request into a travel-mode recommendation
// and appends the resulting segment to store.
//
// Exactly one segment is appended on every call that reaches the ranking
// stage, whether or not a mode was found; a time-spec failure aborts before
// any side effect. Provider failures never abort the request: geocoding falls
// back to the configured default coordinate, a weather failure plans without
// demotion, and each directions failure degrades to a per-mode sentinel.
func (p *Planner) PlanSegment(ctx context.Context, store SegmentStore, req SegmentRequest) (string, error) {
	departure, err := ResolveDepartureTime(req.TimeSpec, p.clock.Now(), p.location)
	if err != nil {
		return "", err
	}

	forecast := p.lookupForecast(ctx, req.Destination, departure)
	results := p.fanOutDirections(ctx, req.Origin, req.Destination, departure)

	allowed := AllowedModes(req.ExcludedModes)
	demoted := Demoted(p.rules, forecast)
	best := Rank(results, allowed, demoted)

	segment := types.TripSegment{
		Origin:             req.Origin,
		Destination:        req.Destination,
		DepartureTime:      departure,
		ChosenMode:         best,
		WeatherDescription: forecast.Description,
		RainProbability:    forecast.RainProbability,
	}
	if best != nil {
		segment.ArrivalTime = results[*best].ArrivalTime
	}
	store.Append(segment)

	if best == nil {
		return fmt.Sprintf(
			"No suitable travel mode found from %s to %s. Try a different departure time or exclude fewer modes.",
			req.Origin, req.Destination), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Route added: %s -> %s\n", req.Origin, req.Destination)
	fmt.Fprintf(&b, "Departure: %s\n", departure.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Recommended mode: %s\n", best.Label())
	fmt.Fprintf(&b, "Estimated arrival: %s\n", segment.ArrivalTime.In(p.location).Format("15:04"))
	fmt.Fprintf(&b, "Forecast: %s, rain probability %d%%\n", forecast.Description, forecast.RainProbability)
	b.WriteString(`Send another route, or "done" for the full plan.`)
	return b.String(), nil
}

// lookupForecast geocodes the destination and fetches the forecast nearest
// the departure time. Both steps are best-effort: a geocoding failure falls
// back to the configured default coordinate, and a weather failure yields a
// zero sample (no description, 0% rain) so no mode gets demoted.
func (p *Planner) lookupForecast(ctx context.Context, destination string, departure time.Time) types.ForecastSample {
	coord, err := p.geocoder.Resolve(ctx, destination)
	if err != nil {
		p.logger.WarnContext(ctx, "geocoding failed, using fallback coordinate",
			"destination", destination, "error", err)
		coord = p.fallback
	}

	forecast, err := p.weather.ForecastNear(ctx, coord, departure)
	if err != nil {
		p.logger.WarnContext(ctx, "weather lookup failed, planning without forecast",
			"destination", destination, "error", err)
		return types.ForecastSample{}
	}
	return forecast
}

// fanOutDirections issues one directions query per queried mode concurrently.
// Every mode yields a ModeResult: a query failure is recorded as the failure
// sentinel so one mode's outage never affects another's result, and ranking
// stays deterministic regardless of completion order.
func (p *Planner) fanOutDirections(ctx context.Context, origin, destination string, departure time.Time) map[types.TravelMode]types.ModeResult {
	var mu sync.Mutex
	results := make(map[types.TravelMode]types.ModeResult, len(types.QueriedModes))

	g, gCtx := errgroup.WithContext(ctx)
	for _, mode := range types.QueriedModes {
		g.Go(func() error {
			result := types.ModeResult{
				Mode:            mode,
				DurationMinutes: types.DurationFailed,
			}

			leg, err := p.directions.Route(gCtx, origin, destination, mode, departure)
			if err != nil {
				p.logger.WarnContext(gCtx, "directions query failed",
					"mode", string(mode), "error", err)
			} else {
				result.DurationText = leg.DurationText
				result.DurationMinutes = float64(leg.DurationSeconds) / 60
				result.ArrivalTime = departure.Add(time.Duration(leg.DurationSeconds) * time.Second)
			}

			mu.Lock()
			results[mode] = result
			mu.Unlock()
			return nil
		})
	}
	// Tasks never return errors; failures are isolated per mode.
	_ = g.Wait()

	return results
}
