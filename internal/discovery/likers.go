package discovery

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/emberdating/ember-backend/internal/profile"
)

// ErrInvalidCursor rejects pagination cursors the server did not issue.
var ErrInvalidCursor = errors.New("invalid cursor")

// likerCursor is the opaque resume point for the liker queue: the ledger
// position of the last like on the previous page.
type likerCursor struct {
	CreatedAt time.Time `json:"created_at"`
	ID        int64     `json:"id"`
}

func encodeLikerCursor(c likerCursor) string {
	raw, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(raw)
}

func decodeLikerCursor(s string) (likerCursor, error) {
	var c likerCursor
	if s == "" {
		return c, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return c, ErrInvalidCursor
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return c, ErrInvalidCursor
	}
	return c, nil
}

// Likers pages through unconsumed likes aimed at the viewer, oldest first.
// Reading the queue never consumes a like; only a swipe does.
func (s *service) Likers(ctx context.Context, viewerID int64, cursor string, filters LikerFilters) (*LikerPage, error) {
	if viewerID <= 0 {
		return nil, fmt.Errorf("%w: viewer id must be positive", ErrInvalidViewer)
	}

	after, err := decodeLikerCursor(cursor)
	if err != nil {
		return nil, err
	}

	viewer, err := s.profiles.Get(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("%w: load viewer profile: %v", ErrDependencyUnavailable, err)
	}
	s.applyRadiusDefault(viewer)

	pageSize := s.opts.LikerPageSize
	now := s.now()

	page := &LikerPage{Likers: make([]*Liker, 0, pageSize)}

	// Filters drop entries after the fetch, so keep pulling batches until
	// the page fills or the queue runs dry.
	for len(page.Likers) < pageSize {
		records, err := s.ledger.IncomingLikes(ctx, viewerID, after, pageSize)
		if err != nil {
			return nil, fmt.Errorf("%w: load liker queue: %v", ErrDependencyUnavailable, err)
		}
		if len(records) == 0 {
			break
		}

		for _, rec := range records {
			if len(page.Likers) >= pageSize {
				break
			}
			after = likerCursor{CreatedAt: rec.CreatedAt, ID: rec.ID}

			liker, ok, err := s.buildLiker(ctx, viewer, rec, filters, now)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			page.Likers = append(page.Likers, liker)
		}

		if len(records) < pageSize {
			break
		}
	}

	if len(page.Likers) == pageSize {
		page.HasMore = true
		page.NextCursor = encodeLikerCursor(after)
	}

	likerPages.Inc()
	return page, nil
}

// buildLiker resolves one queue entry into a Liker, or reports it filtered
// out. Blocked pairs and missing profiles are dropped silently.
func (s *service) buildLiker(ctx context.Context, viewer *profile.Profile, rec *SwipeRecord, filters LikerFilters, now time.Time) (*Liker, bool, error) {
	blocked, err := s.blocks.IsBlocked(ctx, viewer.ID, rec.FromUserID)
	if err != nil {
		return nil, false, fmt.Errorf("%w: block check: %v", ErrDependencyUnavailable, err)
	}
	if blocked {
		return nil, false, nil
	}

	p, err := s.profiles.Get(ctx, rec.FromUserID)
	if err != nil {
		if errors.Is(err, profile.ErrProfileNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%w: load liker profile: %v", ErrDependencyUnavailable, err)
	}

	// The viewer's standing preferences apply here the same as in the feed,
	// on top of the caller-supplied range filters.
	if !PassesFilters(viewer, p) {
		return nil, false, nil
	}
	if !filters.Matches(p) {
		return nil, false, nil
	}

	score, _ := MatchScore(viewer, p, DistanceKM(viewer.Location, p.Location), now)
	if filters.MatchScoreMin > 0 && score < filters.MatchScoreMin {
		return nil, false, nil
	}

	return &Liker{Profile: p, LikedAt: rec.CreatedAt, MatchScore: score}, true, nil
}
