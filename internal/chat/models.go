package chat

import "time"

// Channel is the single conversation container for an unordered user pair.
// Participants are stored canonically (User1ID < User2ID). A channel may
// predate mutuality (direct messaging); the match reconciler upgrades it in
// place instead of creating a duplicate.
type Channel struct {
	ID             int64      `json:"id" db:"id"`
	User1ID        int64      `json:"user1_id" db:"user1_id"`
	User2ID        int64      `json:"user2_id" db:"user2_id"`
	IsMutual       bool       `json:"is_mutual" db:"is_mutual"`
	RelatedMatchID *int64     `json:"related_match_id,omitempty" db:"related_match_id"`
	LastMessage    *string    `json:"last_message,omitempty" db:"last_message"`
	LastMessageAt  *time.Time `json:"last_message_at,omitempty" db:"last_message_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`

	// Joined fields
	Counterpart *Participant `json:"counterpart,omitempty"`
}

// Participant is the minimal counterpart view attached to channel listings.
type Participant struct {
	ID          int64  `json:"id" db:"id"`
	Username    string `json:"username" db:"username"`
	DisplayName string `json:"display_name" db:"display_name"`
}

// CanonicalPair orders two user IDs into the stored (user1, user2) form.
func CanonicalPair(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}

// Other returns the counterpart of userID within the channel.
func (c *Channel) Other(userID int64) int64 {
	if c.User1ID == userID {
		return c.User2ID
	}
	return c.User1ID
}
