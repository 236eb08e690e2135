// Package planner implements the trip-segment planning engine: departure time
// resolution, the per-mode directions fan-out, weather-aware mode ranking,
// and itinerary segment construction.
package planner

import "wakeroute/internal/types"

// DemotionRule decides whether a mode should be excluded from best-mode
// selection for a given forecast. Demotion removes a mode from being *chosen*
// only; its raw result stays in the result set.
type DemotionRule func(mode types.TravelMode, forecast types.ForecastSample) bool

// RainCyclingRule demotes cycling when the precipitation probability reaches
// threshold percent.
func RainCyclingRule(threshold int) DemotionRule {
	return func(mode types.TravelMode, forecast types.ForecastSample) bool {
		return mode == types.ModeCycling && forecast.RainProbability >= threshold
	}
}

// Demoted applies all rules to the forecast and returns the set of modes that
// must not be chosen for this request.
func Demoted(rules []DemotionRule, forecast types.ForecastSample) map[types.TravelMode]bool {
	demoted := make(map[types.TravelMode]bool)
	for _, rule := range rules {
		for _, mode := range types.RankedModes {
			if rule(mode, forecast) {
				demoted[mode] = true
			}
		}
	}
	return demoted
}

// Rank selects the best travel mode from the per-mode results. It iterates
// types.RankedModes in order, skipping modes that are not allowed, demoted by
// weather, or whose directions query failed, and tracks the strict minimum
// duration. Under the fixed iteration order the first mode reaching a given
// minimum wins, so ties resolve deterministically. Returns nil when no mode
// survives filtering. No side effects.
func Rank(results map[types.TravelMode]types.ModeResult, allowed, demoted map[types.TravelMode]bool) *types.TravelMode {
	var best *types.TravelMode
	bestMinutes := types.DurationFailed

	for _, mode := range types.RankedModes {
		if !allowed[mode] || demoted[mode] {
			continue
		}
		result, ok := results[mode]
		if !ok || result.Failed() {
			continue
		}
		if result.DurationMinutes < bestMinutes {
			bestMinutes = result.DurationMinutes
			m := mode
			best = &m
		}
	}
	return best
}

// AllowedModes builds the allow-list from the default ranked modes minus the
// named exclusions. Unrecognized names are a no-op filter: they parse to
// nothing and exclude nothing.
func AllowedModes(excludedNames []string) map[types.TravelMode]bool {
	allowed := make(map[types.TravelMode]bool, len(types.RankedModes))
	for _, mode := range types.RankedModes {
		allowed[mode] = true
	}
	for _, name := range excludedNames {
		if mode, ok := types.ParseTravelMode(name); ok {
			delete(allowed, mode)
		}
	}
	return allowed
}
