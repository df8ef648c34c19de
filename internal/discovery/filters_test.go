package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/emberdating/ember-backend/internal/profile"
)

func TestPassesFilters(t *testing.T) {
	t.Run("gender preference filters candidates", func(t *testing.T) {
		viewer := testProfile(1, func(p *profile.Profile) {
			p.GenderPreference = []string{"female"}
		})
		match := testProfile(2, func(p *profile.Profile) { p.Gender = "female" })
		noMatch := testProfile(3, func(p *profile.Profile) { p.Gender = "male" })

		assert.True(t, PassesFilters(viewer, match))
		assert.False(t, PassesFilters(viewer, noMatch))
	})

	t.Run("empty gender preference means no preference", func(t *testing.T) {
		viewer := testProfile(1, nil)
		candidate := testProfile(2, func(p *profile.Profile) { p.Gender = "nonbinary" })

		assert.True(t, PassesFilters(viewer, candidate))
	})

	t.Run("multiple gender preferences accept any listed", func(t *testing.T) {
		viewer := testProfile(1, func(p *profile.Profile) {
			p.GenderPreference = []string{"female", "nonbinary"}
		})
		assert.True(t, PassesFilters(viewer, testProfile(2, func(p *profile.Profile) { p.Gender = "nonbinary" })))
		assert.False(t, PassesFilters(viewer, testProfile(3, func(p *profile.Profile) { p.Gender = "male" })))
	})

	t.Run("mismatched intents reject", func(t *testing.T) {
		viewer := testProfile(1, func(p *profile.Profile) {
			p.RelationshipIntent = strPtr(profile.IntentMarriage)
		})
		candidate := testProfile(2, func(p *profile.Profile) {
			p.RelationshipIntent = strPtr(profile.IntentCasual)
		})

		assert.False(t, PassesFilters(viewer, candidate))
	})

	t.Run("absent and unsure intents always pass", func(t *testing.T) {
		viewer := testProfile(1, func(p *profile.Profile) {
			p.RelationshipIntent = strPtr(profile.IntentMarriage)
		})
		unset := testProfile(2, nil)
		unsure := testProfile(3, func(p *profile.Profile) {
			p.RelationshipIntent = strPtr(profile.IntentUnsure)
		})

		assert.True(t, PassesFilters(viewer, unset))
		assert.True(t, PassesFilters(viewer, unsure))
	})
}

func TestPassesIntent(t *testing.T) {
	viewer := testProfile(1, func(p *profile.Profile) {
		p.RelationshipIntent = strPtr(profile.IntentRelationship)
		p.GenderPreference = []string{"female"}
	})

	// Intent-only tier ignores gender entirely.
	candidate := testProfile(2, func(p *profile.Profile) {
		p.Gender = "male"
		p.RelationshipIntent = strPtr(profile.IntentRelationship)
	})

	assert.True(t, PassesIntent(viewer, candidate))
	assert.False(t, PassesFilters(viewer, candidate))
}

func TestLikerFiltersMatches(t *testing.T) {
	base := testProfile(2, func(p *profile.Profile) {
		p.Age = 28
		p.HeightCM = 175
		p.TrustScore = 0.6
	})

	assert.True(t, LikerFilters{}.Matches(base))
	assert.True(t, LikerFilters{AgeMin: 25, AgeMax: 30}.Matches(base))
	assert.False(t, LikerFilters{AgeMin: 30}.Matches(base))
	assert.False(t, LikerFilters{AgeMax: 25}.Matches(base))
	assert.True(t, LikerFilters{HeightMinCM: 170, HeightMaxCM: 180}.Matches(base))
	assert.False(t, LikerFilters{HeightMinCM: 180}.Matches(base))
	assert.False(t, LikerFilters{TrustScoreMin: 0.8}.Matches(base))
	assert.True(t, LikerFilters{TrustScoreMin: 0.5}.Matches(base))
}
