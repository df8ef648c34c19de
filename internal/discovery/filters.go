package discovery

import (
	"github.com/emberdating/ember-backend/internal/profile"
)

// PassesFilters is the full candidate predicate: gender preference plus
// relationship-intent compatibility. Total and permissive on missing data;
// it never rejects for fields that were not declared.
func PassesFilters(viewer, candidate *profile.Profile) bool {
	if viewer == nil || candidate == nil {
		return true
	}
	return passesGender(viewer, candidate) && PassesIntent(viewer, candidate)
}

// PassesIntent checks only relationship-intent compatibility; used when the
// viewer declared preferences but no gender preference.
func PassesIntent(viewer, candidate *profile.Profile) bool {
	if viewer == nil || candidate == nil {
		return true
	}
	return intentsCompatible(viewer.RelationshipIntent, candidate.RelationshipIntent)
}

// passesGender: an empty preference set means "no preference", not
// "reject all".
func passesGender(viewer, candidate *profile.Profile) bool {
	if len(viewer.GenderPreference) == 0 {
		return true
	}
	for _, g := range viewer.GenderPreference {
		if g == candidate.Gender {
			return true
		}
	}
	return false
}

// intentsCompatible requires exact equality between declared intents.
// Absence passes, and "unsure" is grouped with absence the same way the
// scoring table groups them.
func intentsCompatible(a, b *string) bool {
	if a == nil || b == nil || *a == "" || *b == "" {
		return true
	}
	if *a == profile.IntentUnsure || *b == profile.IntentUnsure {
		return true
	}
	return *a == *b
}
