package discovery

// SwipeRequest is the body accepted by POST /swipes.
type SwipeRequest struct {
	TargetUserID int64  `json:"target_user_id" validate:"required,gt=0"`
	Action       string `json:"action" validate:"required,oneof=like pass"`
}

// SwipeResponse reports the outcome of a swipe. Matched is true and Match is
// set only when the swipe completed a mutual match.
type SwipeResponse struct {
	Recorded bool         `json:"recorded"`
	Matched  bool         `json:"matched"`
	Match    *MatchResult `json:"match,omitempty"`
}

// FeedResponse is one page of the candidate feed.
type FeedResponse struct {
	Candidates []*ScoredCandidate `json:"candidates"`
	Version    int64              `json:"version"`
	HasMore    bool               `json:"has_more"`
}

// FeedVersionResponse carries the cache-invalidation marker for the feed.
type FeedVersionResponse struct {
	Version int64 `json:"version"`
}
