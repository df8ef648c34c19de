package profile

import (
	"time"

	"github.com/lib/pq"
)

// Relationship intent values form a closed enum; a nil intent means the
// user has not declared one and is treated permissively by filtering.
const (
	IntentCasual       = "casual"
	IntentRelationship = "relationship"
	IntentMarriage     = "marriage"
	IntentUnsure       = "unsure"
)

// DefaultMatchRadiusKM applies when a profile has no explicit radius.
const DefaultMatchRadiusKM = 25.0

// Coordinates is a geographic point. Profiles without location data carry nil.
type Coordinates struct {
	Lat float64 `json:"lat" db:"location_lat"`
	Lng float64 `json:"lng" db:"location_lng"`
}

// Profile is the read-only view of a user consumed by the discovery core.
type Profile struct {
	ID          int64   `json:"id" db:"id"`
	Username    string  `json:"username" db:"username"`
	DisplayName string  `json:"display_name" db:"display_name"`
	Bio         *string `json:"bio,omitempty" db:"bio"`
	Age         int     `json:"age" db:"age"`
	Gender      string  `json:"gender" db:"gender"`
	HeightCM    int     `json:"height_cm" db:"height_cm"`

	// Preferences
	Interests          pq.StringArray `json:"interests" db:"interests"`
	RelationshipIntent *string        `json:"relationship_intent,omitempty" db:"relationship_intent"`
	GenderPreference   pq.StringArray `json:"gender_preference" db:"gender_preference"`
	MatchRadiusKM      float64        `json:"match_radius_km" db:"match_radius_km"`

	// Location (optional)
	Location *Coordinates `json:"location,omitempty"`

	// Trust & activity
	IsVerified bool      `json:"is_verified" db:"is_verified"`
	TrustScore float64   `json:"trust_score" db:"trust_score"`
	LastActive time.Time `json:"last_active" db:"last_active"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// HasPreferences reports whether the user declared anything filtering can act
// on. New users with neither interests nor an intent get the cold-start feed.
func (p *Profile) HasPreferences() bool {
	return len(p.Interests) > 0 || p.RelationshipIntent != nil
}

// RadiusKM returns the configured match radius, falling back to the default.
func (p *Profile) RadiusKM() float64 {
	if p.MatchRadiusKM > 0 {
		return p.MatchRadiusKM
	}
	return DefaultMatchRadiusKM
}
