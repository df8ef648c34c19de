package discovery

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/emberdating/ember-backend/internal/profile"
)

// Feed is a one-shot iterator over scored candidates for a single viewer.
// The candidate pool is materialized on the first Next call; after that the
// feed serves from memory and never re-reads the ledger, so a feed stays
// internally consistent even while the viewer keeps swiping.
type Feed struct {
	svc      *service
	viewerID int64

	built      bool
	candidates []*ScoredCandidate
	pos        int
}

// Next returns the next page of candidates, at most pageSize entries.
// io.EOF signals exhaustion. pageSize <= 0 uses the configured default.
func (f *Feed) Next(ctx context.Context, pageSize int) ([]*ScoredCandidate, error) {
	if pageSize <= 0 {
		pageSize = f.svc.opts.FeedPageSize
	}

	if !f.built {
		if err := f.build(ctx); err != nil {
			return nil, err
		}
		f.built = true
	}

	if f.pos >= len(f.candidates) {
		return nil, io.EOF
	}

	end := f.pos + pageSize
	if end > len(f.candidates) {
		end = len(f.candidates)
	}
	page := f.candidates[f.pos:end]
	f.pos = end
	return page, nil
}

// HasMore reports whether unserved candidates remain. Always false before
// the first Next call.
func (f *Feed) HasMore() bool {
	return f.built && f.pos < len(f.candidates)
}

func (f *Feed) build(ctx context.Context) error {
	timer := feedBuildTimer()
	defer timer.ObserveDuration()

	viewer, err := f.svc.profiles.Get(ctx, f.viewerID)
	if err != nil {
		return fmt.Errorf("%w: load viewer profile: %v", ErrDependencyUnavailable, err)
	}
	f.svc.applyRadiusDefault(viewer)

	swiped, err := f.svc.ledger.SwipedUserIDs(ctx, f.viewerID)
	if err != nil {
		return fmt.Errorf("%w: load swipe history: %v", ErrDependencyUnavailable, err)
	}
	consumed, err := f.svc.ledger.ConsumedLikerIDs(ctx, f.viewerID)
	if err != nil {
		return fmt.Errorf("%w: load consumed likes: %v", ErrDependencyUnavailable, err)
	}

	pool, err := f.collect(ctx, viewer, swiped, consumed)
	if err != nil {
		return err
	}

	if !viewer.HasPreferences() {
		// Cold start: no ranking signal yet, serve the pool in uniform
		// random order.
		f.svc.shuffle(len(pool), func(i, j int) {
			pool[i], pool[j] = pool[j], pool[i]
		})
		f.candidates = pool
		return nil
	}

	now := f.svc.now()
	for _, c := range pool {
		c.Score, c.Factors = MatchScore(viewer, c.Profile, c.DistanceKM, now)
	}

	sort.SliceStable(pool, func(i, j int) bool {
		if pool[i].Score != pool[j].Score {
			return pool[i].Score > pool[j].Score
		}
		if !pool[i].Profile.LastActive.Equal(pool[j].Profile.LastActive) {
			return pool[i].Profile.LastActive.After(pool[j].Profile.LastActive)
		}
		return pool[i].Profile.ID < pool[j].Profile.ID
	})

	f.candidates = pool
	return nil
}

// collect pages through the candidate source applying the exclusion rules
// and per-tier filters, stopping at the configured pool size.
func (f *Feed) collect(ctx context.Context, viewer *profile.Profile, swiped, consumed map[int64]struct{}) ([]*ScoredCandidate, error) {
	fullFiltering := viewer.HasPreferences() && len(viewer.GenderPreference) > 0
	intentOnly := viewer.HasPreferences() && !fullFiltering

	pool := make([]*ScoredCandidate, 0, f.svc.opts.CandidatePoolSize)
	pageToken := ""

	for len(pool) < f.svc.opts.CandidatePoolSize {
		batch, next, err := f.svc.profiles.Candidates(ctx, pageToken, f.svc.opts.CandidatePoolSize)
		if err != nil {
			return nil, fmt.Errorf("%w: load candidates: %v", ErrDependencyUnavailable, err)
		}

		for _, cand := range batch {
			if len(pool) >= f.svc.opts.CandidatePoolSize {
				break
			}
			if cand.ID == viewer.ID {
				continue
			}
			if _, ok := swiped[cand.ID]; ok {
				continue
			}
			if _, ok := consumed[cand.ID]; ok {
				continue
			}

			blocked, err := f.svc.blocks.IsBlocked(ctx, viewer.ID, cand.ID)
			if err != nil {
				return nil, fmt.Errorf("%w: block check: %v", ErrDependencyUnavailable, err)
			}
			if blocked {
				continue
			}

			switch {
			case fullFiltering:
				if !PassesFilters(viewer, cand) {
					continue
				}
			case intentOnly:
				if !PassesIntent(viewer, cand) {
					continue
				}
			}

			pool = append(pool, &ScoredCandidate{
				Profile:    cand,
				DistanceKM: DistanceKM(viewer.Location, cand.Location),
			})
		}

		if next == "" {
			break
		}
		pageToken = next
	}

	return pool, nil
}

func (s *service) BuildFeed(ctx context.Context, viewerID int64) (*Feed, error) {
	if viewerID <= 0 {
		return nil, fmt.Errorf("%w: viewer id must be positive", ErrInvalidViewer)
	}
	return &Feed{svc: s, viewerID: viewerID}, nil
}
