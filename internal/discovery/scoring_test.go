package discovery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberdating/ember-backend/internal/profile"
)

func strPtr(s string) *string { return &s }

func testProfile(id int64, mutate func(*profile.Profile)) *profile.Profile {
	p := &profile.Profile{
		ID:         id,
		Username:   "user",
		LastActive: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	if mutate != nil {
		mutate(p)
	}
	return p
}

func TestDistanceKM(t *testing.T) {
	t.Run("unknown when either side has no location", func(t *testing.T) {
		here := &profile.Coordinates{Lat: 51.5, Lng: -0.12}
		assert.Equal(t, DistanceUnknown, DistanceKM(nil, here))
		assert.Equal(t, DistanceUnknown, DistanceKM(here, nil))
		assert.Equal(t, DistanceUnknown, DistanceKM(nil, nil))
	})

	t.Run("zero for identical points", func(t *testing.T) {
		p := &profile.Coordinates{Lat: 6.5244, Lng: 3.3792}
		assert.InDelta(t, 0, DistanceKM(p, p), 0.001)
	})

	t.Run("london to paris is roughly 344km", func(t *testing.T) {
		london := &profile.Coordinates{Lat: 51.5074, Lng: -0.1278}
		paris := &profile.Coordinates{Lat: 48.8566, Lng: 2.3522}
		d := DistanceKM(london, paris)
		assert.InDelta(t, 344, d, 5)
	})

	t.Run("symmetric", func(t *testing.T) {
		a := &profile.Coordinates{Lat: 40.7128, Lng: -74.0060}
		b := &profile.Coordinates{Lat: 34.0522, Lng: -118.2437}
		assert.InDelta(t, DistanceKM(a, b), DistanceKM(b, a), 1e-9)
	})
}

func TestMatchScore(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	t.Run("bounded between 0 and 100", func(t *testing.T) {
		viewer := testProfile(1, func(p *profile.Profile) {
			p.Interests = []string{"hiking", "jazz"}
			p.RelationshipIntent = strPtr(profile.IntentRelationship)
		})
		candidate := testProfile(2, func(p *profile.Profile) {
			p.Interests = []string{"hiking", "jazz"}
			p.RelationshipIntent = strPtr(profile.IntentRelationship)
			p.IsVerified = true
			p.LastActive = now
		})

		score, _ := MatchScore(viewer, candidate, 1.0, now)
		assert.LessOrEqual(t, score, 100.0)
		assert.GreaterOrEqual(t, score, 0.0)
	})

	t.Run("more shared interests score higher", func(t *testing.T) {
		viewer := testProfile(1, func(p *profile.Profile) {
			p.Interests = []string{"hiking", "jazz", "cooking"}
		})
		close := testProfile(2, func(p *profile.Profile) {
			p.Interests = []string{"hiking", "jazz", "cooking"}
			p.LastActive = now
		})
		far := testProfile(3, func(p *profile.Profile) {
			p.Interests = []string{"hiking", "motorsport", "crypto"}
			p.LastActive = now
		})

		closeScore, _ := MatchScore(viewer, close, 1.0, now)
		farScore, _ := MatchScore(viewer, far, 1.0, now)
		assert.Greater(t, closeScore, farScore)
	})

	t.Run("empty interest set is neutral not zero", func(t *testing.T) {
		viewer := testProfile(1, func(p *profile.Profile) {
			p.Interests = []string{"hiking"}
		})
		blank := testProfile(2, func(p *profile.Profile) { p.LastActive = now })

		_, factors := MatchScore(viewer, blank, 1.0, now)
		assert.Equal(t, 0.5, factors.Interests)
	})

	t.Run("matching intent beats mismatched intent", func(t *testing.T) {
		viewer := testProfile(1, func(p *profile.Profile) {
			p.RelationshipIntent = strPtr(profile.IntentMarriage)
		})
		same := testProfile(2, func(p *profile.Profile) {
			p.RelationshipIntent = strPtr(profile.IntentMarriage)
			p.LastActive = now
		})
		other := testProfile(3, func(p *profile.Profile) {
			p.RelationshipIntent = strPtr(profile.IntentCasual)
			p.LastActive = now
		})

		_, sameFactors := MatchScore(viewer, same, 1.0, now)
		_, otherFactors := MatchScore(viewer, other, 1.0, now)
		assert.Equal(t, 1.0, sameFactors.Intent)
		assert.Equal(t, 0.0, otherFactors.Intent)
	})

	t.Run("unsure intent scores neutral", func(t *testing.T) {
		viewer := testProfile(1, func(p *profile.Profile) {
			p.RelationshipIntent = strPtr(profile.IntentMarriage)
		})
		unsure := testProfile(2, func(p *profile.Profile) {
			p.RelationshipIntent = strPtr(profile.IntentUnsure)
			p.LastActive = now
		})

		_, factors := MatchScore(viewer, unsure, 1.0, now)
		assert.Equal(t, 0.5, factors.Intent)
	})

	t.Run("unknown distance is neutral not zero", func(t *testing.T) {
		viewer := testProfile(1, nil)
		candidate := testProfile(2, func(p *profile.Profile) { p.LastActive = now })

		_, factors := MatchScore(viewer, candidate, DistanceUnknown, now)
		assert.Equal(t, 0.5, factors.Proximity)
	})

	t.Run("proximity full inside radius then decays with a floor", func(t *testing.T) {
		viewer := testProfile(1, func(p *profile.Profile) { p.MatchRadiusKM = 25 })
		candidate := testProfile(2, func(p *profile.Profile) { p.LastActive = now })

		_, inside := MatchScore(viewer, candidate, 10, now)
		assert.Equal(t, 1.0, inside.Proximity)

		_, near := MatchScore(viewer, candidate, 40, now)
		_, far := MatchScore(viewer, candidate, 200, now)
		assert.Less(t, near.Proximity, 1.0)
		assert.Greater(t, near.Proximity, far.Proximity)
		assert.GreaterOrEqual(t, far.Proximity, 0.15)
	})

	t.Run("recently active beats stale", func(t *testing.T) {
		viewer := testProfile(1, nil)
		fresh := testProfile(2, func(p *profile.Profile) {
			p.LastActive = now.Add(-time.Hour)
		})
		stale := testProfile(3, func(p *profile.Profile) {
			p.LastActive = now.Add(-60 * 24 * time.Hour)
		})

		freshScore, _ := MatchScore(viewer, fresh, 1.0, now)
		staleScore, _ := MatchScore(viewer, stale, 1.0, now)
		assert.Greater(t, freshScore, staleScore)
	})

	t.Run("verified candidates get a bonus", func(t *testing.T) {
		viewer := testProfile(1, nil)
		plain := testProfile(2, func(p *profile.Profile) { p.LastActive = now })
		verified := testProfile(3, func(p *profile.Profile) {
			p.LastActive = now
			p.IsVerified = true
		})

		plainScore, _ := MatchScore(viewer, plain, 1.0, now)
		verifiedScore, _ := MatchScore(viewer, verified, 1.0, now)
		assert.Greater(t, verifiedScore, plainScore)
	})

	t.Run("deterministic for fixed inputs", func(t *testing.T) {
		viewer := testProfile(1, func(p *profile.Profile) {
			p.Interests = []string{"hiking", "jazz"}
			p.RelationshipIntent = strPtr(profile.IntentRelationship)
		})
		candidate := testProfile(2, func(p *profile.Profile) {
			p.Interests = []string{"jazz", "cooking"}
			p.RelationshipIntent = strPtr(profile.IntentRelationship)
			p.LastActive = now.Add(-3 * 24 * time.Hour)
		})

		first, firstFactors := MatchScore(viewer, candidate, 12.5, now)
		for i := 0; i < 10; i++ {
			score, factors := MatchScore(viewer, candidate, 12.5, now)
			require.Equal(t, first, score)
			require.Equal(t, firstFactors, factors)
		}
	})
}
