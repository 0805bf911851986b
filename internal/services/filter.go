package services

import (
	"strings"

	"roehampton-community-directory/internal/geo"
	"roehampton-community-directory/internal/models"
)

// RecomputeDistances refreshes the Distance field on every activity against
// the given user location. When the location is unknown every distance is
// cleared, so a distance is never stale relative to the last known position.
// Idempotent: recomputing with the same location yields the same values.
//
// This updates the shared Activity records in place. Distance is a cached
// derived value, not filter state, so the mutation is the one documented
// exception to the engine's no-mutation rule.
func RecomputeDistances(activities []models.Activity, userLocation *models.Coordinate) {
	for i := range activities {
		if userLocation == nil || !activities[i].HasCoordinate() {
			activities[i].Distance = nil
			continue
		}
		d := geo.DistanceMeters(
			userLocation.Lat, userLocation.Long,
			*activities[i].Lat, *activities[i].Long,
		)
		activities[i].Distance = &d
	}
}

// ApplyFilters returns the activities matching every active criteria
// dimension. Distances are recomputed eagerly against the criteria's user
// location before any predicate runs, so filtering and display stay
// consistent with the latest known position. The input slice is annotated in
// place but never reordered or shrunk; the result is a new slice preserving
// input order. The criteria value is never mutated.
func ApplyFilters(activities []models.Activity, criteria models.FilterCriteria) []models.Activity {
	RecomputeDistances(activities, criteria.UserLocation)

	tokens := searchTokens(criteria.SearchTerm)

	matched := make([]models.Activity, 0, len(activities))
	for _, activity := range activities {
		if !matchesSearch(activity, tokens) {
			continue
		}
		if !matchesLabel(criteria.Audience, activity.Audience) {
			continue
		}
		if !matchesLabel(criteria.Cost, models.CostBucket(activity.Cost)) {
			continue
		}
		if !matchesDays(criteria.Days, activity.DaysOfWeek) {
			continue
		}
		if criteria.IsOneOff && !activity.IsOneOffEvent() {
			continue
		}
		if !matchesDistance(activity, criteria) {
			continue
		}
		matched = append(matched, activity)
	}
	return matched
}

// searchTokens lowercases and tokenizes the search term on whitespace,
// discarding empty tokens
func searchTokens(term string) []string {
	return strings.Fields(strings.ToLower(term))
}

// matchesSearch applies the broad fuzzy match: with no tokens everything
// matches; otherwise any token appearing as a substring of any searchable
// field is a hit (OR of tokens, OR of fields).
func matchesSearch(activity models.Activity, tokens []string) bool {
	if len(tokens) == 0 {
		return true
	}
	fields := []string{
		strings.ToLower(activity.Name),
		strings.ToLower(activity.Description),
		strings.ToLower(activity.Venue),
		strings.ToLower(activity.Organiser),
	}
	for _, token := range tokens {
		for _, field := range fields {
			if strings.Contains(field, token) {
				return true
			}
		}
	}
	return false
}

// matchesLabel implements the empty-means-unrestricted membership check used
// by the audience and cost dimensions
func matchesLabel(selected []string, value string) bool {
	if len(selected) == 0 {
		return true
	}
	for _, s := range selected {
		if s == value {
			return true
		}
	}
	return false
}

// matchesDays passes when no days are selected or the day sets intersect. An
// activity with no day entries never matches a non-empty day filter.
func matchesDays(selected []string, days []string) bool {
	if len(selected) == 0 {
		return true
	}
	for _, s := range selected {
		for _, d := range days {
			if s == d {
				return true
			}
		}
	}
	return false
}

// matchesDistance passes unconditionally when distance filtering is disabled
// or the activity's distance is unknown; unknown distance never excludes a
// result
func matchesDistance(activity models.Activity, criteria models.FilterCriteria) bool {
	if !criteria.DistanceFilterEnabled() {
		return true
	}
	if activity.Distance == nil {
		return true
	}
	return *activity.Distance <= *criteria.MaxDistance
}
