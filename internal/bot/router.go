// Package bot implements the conversational surface: the signature-verified
// webhook, the keyword router that maps inbound messages to planning
// operations, and the session registry that scopes itineraries to
// conversations.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"wakeroute/internal/itinerary"
	"wakeroute/internal/planner"
	"wakeroute/internal/types"
)

// SegmentPlanner plans one trip segment and appends it to the session store.
// Implemented by the planner.
type SegmentPlanner interface {
	PlanSegment(ctx context.Context, store planner.SegmentStore, req planner.SegmentRequest) (string, error)
}

// PlaceResolver resolves a place name to coordinates.
type PlaceResolver interface {
	Resolve(ctx context.Context, place string) (types.Coordinate, error)
}

// WeatherReporter answers the standalone weather query.
type WeatherReporter interface {
	Current(ctx context.Context, coord types.Coordinate) (types.CurrentConditions, error)
	ForecastNear(ctx context.Context, coord types.Coordinate, target time.Time) (types.ForecastSample, error)
}

// TransitSource answers the realtime bus-arrival query.
type TransitSource interface {
	BusArrivals(ctx context.Context, city, route string) ([]types.BusArrival, error)
}

// Router dispatches one inbound message to the matching operation and renders
// the reply text. Every path returns a reply; failures are rendered as
// user-facing text rather than propagated, since the conversation is the only
// channel back to the user.
type Router struct {
	planner  SegmentPlanner
	geocoder PlaceResolver
	weather  WeatherReporter
	transit  TransitSource
	registry *Registry
	clock    types.Clock
	logger   *slog.Logger
}

// RouterConfig carries the construction parameters for a Router.
type RouterConfig struct {
	Planner  SegmentPlanner
	Geocoder PlaceResolver
	Weather  WeatherReporter
	Transit  TransitSource
	Registry *Registry
	Clock    types.Clock
	Logger   *slog.Logger
}

// NewRouter creates a Router with the provided collaborators.
func NewRouter(cfg RouterConfig) *Router {
	clock := cfg.Clock
	if clock == nil {
		clock = types.RealClock{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		planner:  cfg.Planner,
		geocoder: cfg.Geocoder,
		weather:  cfg.Weather,
		transit:  cfg.Transit,
		registry: cfg.Registry,
		clock:    clock,
		logger:   logger,
	}
}

const helpText = `Here is what I can do:

weather <place>
  Current conditions and rain probability.

route <origin>,<destination>
route <origin>,<destination>,<date>,<time>
route <origin>,<destination>,<date>,<time>,<modes to exclude>
  Plan a trip segment. Date is YYYY-MM-DD, time is HH:MM or HHMM.
  Example: route Taipei Main Station,Daan Park,2026-09-01,08:00,cycling

bus <city> <route>
  Realtime bus arrivals. Example: bus Taipei 307

done
  Your full trip plan plus a wake-up and bedtime recommendation.`

const aboutText = "I plan trips around the weather: send me routes, I pick the " +
	"best travel mode for each, and when you are done I tell you when to " +
	"sleep and when to wake up."

const unknownText = `I did not understand that. Send "help" to see what I can do.`

// Handle routes one message for one session and returns the reply text.
func (r *Router) Handle(ctx context.Context, sessionID, text string) string {
	trimmed := strings.TrimSpace(text)
	keyword, rest := splitKeyword(trimmed)

	switch strings.ToLower(keyword) {
	case "weather":
		return r.handleWeather(ctx, rest)
	case "route":
		return r.handleRoute(ctx, sessionID, rest)
	case "bus":
		return r.handleBus(ctx, rest)
	case "done":
		return r.registry.Store(sessionID).DrainAndSummarize()
	case "help":
		return helpText
	case "about":
		return aboutText
	}
	return unknownText
}

// splitKeyword separates the leading command word from its argument tail.
func splitKeyword(text string) (string, string) {
	keyword, rest, found := strings.Cut(text, " ")
	if !found {
		return text, ""
	}
	return keyword, strings.TrimSpace(rest)
}

func (r *Router) handleWeather(ctx context.Context, place string) string {
	if place == "" {
		return `Tell me where: weather <place>`
	}

	coord, err := r.geocoder.Resolve(ctx, place)
	if err != nil {
		r.logger.WarnContext(ctx, "weather lookup geocoding failed", "place", place, "error", err)
		return fmt.Sprintf("I could not find a place called %q.", place)
	}

	current, err := r.weather.Current(ctx, coord)
	if err != nil {
		r.logger.WarnContext(ctx, "current conditions lookup failed", "place", place, "error", err)
		return replyForError(err, "The weather service is unavailable right now, try again later.")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Weather in %s: %s, %.1f°C", place, current.Description, current.TemperatureC)
	if forecast, err := r.weather.ForecastNear(ctx, coord, r.clock.Now()); err == nil {
		fmt.Fprintf(&b, "\nRain probability: %d%%", forecast.RainProbability)
	}
	return b.String()
}

// handleRoute validates the comma-separated argument shape and hands the
// request to the planner. Shape errors abort before the planner runs, so a
// malformed message never touches the itinerary.
func (r *Router) handleRoute(ctx context.Context, sessionID, args string) string {
	req, err := parseRouteArgs(args)
	if err != nil {
		return err.Error()
	}

	reply, err := r.planner.PlanSegment(ctx, r.registry.Store(sessionID), req)
	if err != nil {
		r.logger.WarnContext(ctx, "segment planning failed",
			"origin", req.Origin, "destination", req.Destination, "error", err)
		return replyForError(err, "Something went wrong planning that route, try again later.")
	}
	return reply
}

const routeUsage = `Send routes as:
  route <origin>,<destination>
  route <origin>,<destination>,<date>,<time>
  route <origin>,<destination>,<date>,<time>,<modes to exclude>`

// parseRouteArgs splits the route arguments on commas. Two fields plan for
// now, four add an explicit departure, and a fifth names modes to exclude,
// separated by spaces.
func parseRouteArgs(args string) (planner.SegmentRequest, error) {
	fields := strings.Split(args, ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	if len(fields) < 2 || fields[0] == "" || fields[1] == "" {
		return planner.SegmentRequest{}, errors.New(routeUsage)
	}

	req := planner.SegmentRequest{
		Origin:      fields[0],
		Destination: fields[1],
	}
	switch len(fields) {
	case 2:
	case 4, 5:
		req.TimeSpec = fields[2] + "," + fields[3]
		if len(fields) == 5 {
			req.ExcludedModes = strings.Fields(fields[4])
		}
	default:
		return planner.SegmentRequest{}, errors.New(routeUsage)
	}
	return req, nil
}

func (r *Router) handleBus(ctx context.Context, args string) string {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return `Send bus queries as: bus <city> <route>, for example "bus Taipei 307".`
	}
	city, route := fields[0], fields[1]

	arrivals, err := r.transit.BusArrivals(ctx, city, route)
	if err != nil {
		r.logger.WarnContext(ctx, "bus arrivals lookup failed", "city", city, "route", route, "error", err)
		return replyForError(err, "The bus arrival service is unavailable right now, try again later.")
	}
	if len(arrivals) == 0 {
		return fmt.Sprintf("No realtime data for route %s in %s.", route, city)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Route %s (%s):", route, city)
	for _, arrival := range arrivals {
		direction := "outbound"
		if !arrival.Outbound {
			direction = "inbound"
		}
		fmt.Fprintf(&b, "\n%s (%s): %s", arrival.StopName, direction, describeArrival(arrival))
	}
	return b.String()
}

func describeArrival(arrival types.BusArrival) string {
	switch {
	case arrival.EstimateMins == 0:
		return "arriving now"
	case arrival.EstimateMins > 0:
		return fmt.Sprintf("about %d min", arrival.EstimateMins)
	case !arrival.NextBusTime.IsZero():
		return fmt.Sprintf("not departed, next bus %s", arrival.NextBusTime.Format("15:04"))
	}
	return "no estimate"
}

// replyForError surfaces validation messages to the user verbatim and hides
// everything else behind a generic fallback.
func replyForError(err error, fallback string) string {
	var appErr *types.AppError
	if errors.As(err, &appErr) && strings.HasPrefix(string(appErr.Code), "validation") {
		return appErr.Message
	}
	return fallback
}

var _ planner.SegmentStore = (*itinerary.Store)(nil)
