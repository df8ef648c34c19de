package discovery

import (
	"time"

	"github.com/emberdating/ember-backend/internal/profile"
)

// SwipeAction is the decision one user takes about another.
type SwipeAction string

const (
	ActionLike SwipeAction = "like"
	ActionPass SwipeAction = "pass"
)

// Valid reports whether the action is a member of the closed set.
func (a SwipeAction) Valid() bool {
	return a == ActionLike || a == ActionPass
}

// SwipeRecord is one entry in the append-only swipe ledger. Records are
// immutable except for ActedOnByTarget, which flips true exactly once when
// the match reconciler consumes a like.
type SwipeRecord struct {
	ID              int64       `json:"id" db:"id"`
	FromUserID      int64       `json:"from_user_id" db:"from_user_id"`
	ToUserID        int64       `json:"to_user_id" db:"to_user_id"`
	Action          SwipeAction `json:"action" db:"action"`
	ActedOnByTarget bool        `json:"acted_on_by_target" db:"acted_on_by_target"`
	CreatedAt       time.Time   `json:"created_at" db:"created_at"`
}

// MatchRecord is created exactly once per unordered pair that reaches a
// mutual like. Participants are stored canonically (User1ID < User2ID).
// This core never deletes matches; deactivation is an external concern.
type MatchRecord struct {
	ID            int64     `json:"id" db:"id"`
	User1ID       int64     `json:"user1_id" db:"user1_id"`
	User2ID       int64     `json:"user2_id" db:"user2_id"`
	ChatChannelID int64     `json:"chat_channel_id" db:"chat_channel_id"`
	IsActive      bool      `json:"is_active" db:"is_active"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// MatchResult is returned to the swiping caller when their like completed a
// mutual match, so the UI can celebrate and deep-link into the chat.
type MatchResult struct {
	MatchID        int64            `json:"match_id"`
	ChatID         int64            `json:"chat_id"`
	MatchedProfile *profile.Profile `json:"matched_profile,omitempty"`
}

// SwipeOutcome is the result of a recorded swipe. Match is nil unless the
// swipe resolved a mutual match.
type SwipeOutcome struct {
	Match *MatchResult `json:"match,omitempty"`
}

// ScoredCandidate is one feed entry: a candidate profile with its computed
// compatibility score for the viewer.
type ScoredCandidate struct {
	Profile    *profile.Profile `json:"profile"`
	Score      float64          `json:"score"`
	DistanceKM float64          `json:"distance_km"`
	Factors    ScoreFactors     `json:"factors"`
}

// Liker is one entry in the viewer's incoming-likes queue.
type Liker struct {
	Profile    *profile.Profile `json:"profile"`
	LikedAt    time.Time        `json:"liked_at"`
	MatchScore float64          `json:"match_score"`
}

// LikerPage is one page of the liker queue with a resumable cursor.
type LikerPage struct {
	Likers     []*Liker `json:"likers"`
	NextCursor string   `json:"next_cursor,omitempty"`
	HasMore    bool     `json:"has_more"`
}

// LikerFilters are the caller-supplied constraints for the liker queue.
// Zero values mean "no constraint".
type LikerFilters struct {
	AgeMin        int     `json:"age_min"`
	AgeMax        int     `json:"age_max"`
	HeightMinCM   int     `json:"height_min_cm"`
	HeightMaxCM   int     `json:"height_max_cm"`
	TrustScoreMin float64 `json:"trust_score_min"`
	MatchScoreMin float64 `json:"match_score_min"`
}

// Matches reports whether a profile satisfies the attribute filters.
// MatchScoreMin is applied separately once the score is computed.
func (f LikerFilters) Matches(p *profile.Profile) bool {
	if f.AgeMin > 0 && p.Age < f.AgeMin {
		return false
	}
	if f.AgeMax > 0 && p.Age > f.AgeMax {
		return false
	}
	if f.HeightMinCM > 0 && p.HeightCM < f.HeightMinCM {
		return false
	}
	if f.HeightMaxCM > 0 && p.HeightCM > f.HeightMaxCM {
		return false
	}
	if f.TrustScoreMin > 0 && p.TrustScore < f.TrustScoreMin {
		return false
	}
	return true
}

// canonicalPair orders two user IDs into stored (user1, user2) form.
func canonicalPair(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}
