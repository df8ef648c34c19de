package discovery

import (
	"math"
	"time"

	"github.com/emberdating/ember-backend/internal/profile"
)

// DistanceUnknown is returned when either side has no coordinates. Callers
// must not treat it as zero proximity.
const DistanceUnknown = -1.0

const earthRadiusKM = 6371

// Score weights. The contract is monotonicity and determinism, not the
// exact constants.
const (
	weightInterests = 40.0
	weightIntent    = 20.0
	weightProximity = 25.0
	weightRecency   = 15.0

	verifiedBonus = 2.0

	// proximityFloor keeps distant but otherwise compatible candidates
	// from being fully suppressed.
	proximityFloor = 0.15
)

// ScoreFactors breaks a match score into its weighted components.
type ScoreFactors struct {
	Interests float64 `json:"interests"`
	Intent    float64 `json:"intent"`
	Proximity float64 `json:"proximity"`
	Recency   float64 `json:"recency"`
}

// DistanceKM computes the great-circle distance between two coordinates,
// or DistanceUnknown when either is absent.
func DistanceKM(a, b *profile.Coordinates) float64 {
	if a == nil || b == nil {
		return DistanceUnknown
	}

	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKM * c
}

// MatchScore computes the composite compatibility score of candidate for
// viewer, in [0,100]. Pure and deterministic: now is passed in so recency
// does not depend on the wall clock.
func MatchScore(viewer, candidate *profile.Profile, distanceKM float64, now time.Time) (float64, ScoreFactors) {
	factors := ScoreFactors{
		Interests: interestScore(viewer.Interests, candidate.Interests),
		Intent:    intentScore(viewer.RelationshipIntent, candidate.RelationshipIntent),
		Proximity: proximityScore(distanceKM, viewer.RadiusKM()),
		Recency:   recencyScore(candidate.LastActive, now),
	}

	total := factors.Interests*weightInterests +
		factors.Intent*weightIntent +
		factors.Proximity*weightProximity +
		factors.Recency*weightRecency

	if candidate.IsVerified {
		total += verifiedBonus
	}

	return math.Min(100, total), factors
}

// interestScore is the Jaccard similarity of the two interest sets, with a
// neutral score when either side declared nothing.
func interestScore(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.5
	}

	set := make(map[string]bool, len(a))
	for _, interest := range a {
		set[interest] = true
	}

	shared := 0
	for _, interest := range b {
		if set[interest] {
			shared++
		}
	}

	union := len(a) + len(b) - shared
	if union == 0 {
		return 0
	}

	return float64(shared) / float64(union)
}

// intentScore rewards exact agreement; "unsure" and unset both score the
// neutral midpoint, an outright mismatch scores zero.
func intentScore(a, b *string) float64 {
	if a == nil || b == nil || *a == "" || *b == "" {
		return 0.5
	}
	if *a == profile.IntentUnsure || *b == profile.IntentUnsure {
		return 0.5
	}
	if *a == *b {
		return 1.0
	}
	return 0
}

// proximityScore is full inside the viewer's radius and decays exponentially
// beyond it, never below the floor. Unknown distance scores the neutral
// midpoint rather than zero.
func proximityScore(distanceKM, radiusKM float64) float64 {
	if distanceKM == DistanceUnknown {
		return 0.5
	}
	if radiusKM <= 0 {
		radiusKM = profile.DefaultMatchRadiusKM
	}
	if distanceKM <= radiusKM {
		return 1.0
	}

	decayed := math.Exp(-(distanceKM - radiusKM) / radiusKM)
	return math.Max(proximityFloor, decayed)
}

func recencyScore(lastActive, now time.Time) float64 {
	since := now.Sub(lastActive)
	switch {
	case since <= 24*time.Hour:
		return 1.0
	case since <= 7*24*time.Hour:
		return 0.66
	case since <= 30*24*time.Hour:
		return 0.33
	default:
		return 0
	}
}
