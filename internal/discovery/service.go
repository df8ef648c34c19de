package discovery

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/emberdating/ember-backend/internal/block"
	"github.com/emberdating/ember-backend/internal/profile"
)

var (
	// ErrInvalidSwipe rejects swipes that are malformed before they touch
	// the ledger: unknown action, self-swipe, or a target that does not exist.
	ErrInvalidSwipe = errors.New("invalid swipe")

	// ErrAlreadySwiped is the benign duplicate outcome. The original
	// decision stands and nothing changes.
	ErrAlreadySwiped = errors.New("already swiped")

	// ErrMatchCreationFailed means a mutual like was detected but the match
	// and channel could not be created after retries. The triggering swipe
	// is not persisted so the client can retry cleanly.
	ErrMatchCreationFailed = errors.New("match creation failed")

	// ErrDependencyUnavailable means a backing dependency is down and the
	// operation failed closed rather than serving partial results.
	ErrDependencyUnavailable = errors.New("dependency unavailable")

	// ErrInvalidViewer rejects feed and liker reads for a non-positive
	// viewer id.
	ErrInvalidViewer = errors.New("invalid viewer")
)

// MatchNotifier pushes match events to connected clients. Delivery is best
// effort; a failed push never fails the swipe.
type MatchNotifier interface {
	NotifyMatch(userA, userB int64, match *MatchRecord)
}

// Options tunes the discovery service. Zero values fall back to defaults.
type Options struct {
	FeedPageSize      int
	CandidatePoolSize int
	LikerPageSize     int
	MaxRetries        int
	RetryBackoff      time.Duration
	// DefaultRadiusKM applies to viewers who never set a match radius.
	DefaultRadiusKM float64
}

func (o Options) withDefaults() Options {
	if o.FeedPageSize <= 0 {
		o.FeedPageSize = 20
	}
	if o.CandidatePoolSize <= 0 {
		o.CandidatePoolSize = 200
	}
	if o.LikerPageSize <= 0 {
		o.LikerPageSize = 20
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 50 * time.Millisecond
	}
	if o.DefaultRadiusKM <= 0 {
		o.DefaultRadiusKM = profile.DefaultMatchRadiusKM
	}
	return o
}

// Service is the discovery engine: the swipe ledger, mutual-match
// reconciliation, the candidate feed, and the liker queue.
type Service interface {
	// RecordSwipe appends a swipe and, when it completes a mutual like,
	// atomically creates the match and its chat channel.
	RecordSwipe(ctx context.Context, fromID, toID int64, action SwipeAction) (*SwipeOutcome, error)
	// BuildFeed returns a lazy candidate feed for the viewer.
	BuildFeed(ctx context.Context, viewerID int64) (*Feed, error)
	// Likers returns one page of users who liked the viewer and are still
	// awaiting a response.
	Likers(ctx context.Context, viewerID int64, cursor string, filters LikerFilters) (*LikerPage, error)
	// FeedVersion reports the viewer's current feed version for cache
	// invalidation.
	FeedVersion(ctx context.Context, viewerID int64) (int64, error)
}

type service struct {
	ledger   Ledger
	profiles profile.Store
	blocks   block.Store
	notifier MatchNotifier
	opts     Options

	now     func() time.Time
	shuffle func(n int, swap func(i, j int))
}

// NewService creates the discovery service. notifier may be nil.
func NewService(ledger Ledger, profiles profile.Store, blocks block.Store, notifier MatchNotifier, opts Options) Service {
	return &service{
		ledger:   ledger,
		profiles: profiles,
		blocks:   blocks,
		notifier: notifier,
		opts:     opts.withDefaults(),
		now:      time.Now,
		shuffle:  rand.Shuffle,
	}
}

func (s *service) RecordSwipe(ctx context.Context, fromID, toID int64, action SwipeAction) (*SwipeOutcome, error) {
	if !action.Valid() {
		return nil, fmt.Errorf("%w: unknown action %q", ErrInvalidSwipe, action)
	}
	if fromID <= 0 || toID <= 0 {
		return nil, fmt.Errorf("%w: user ids must be positive", ErrInvalidSwipe)
	}
	if fromID == toID {
		return nil, fmt.Errorf("%w: cannot swipe on yourself", ErrInvalidSwipe)
	}

	if _, err := s.profiles.Get(ctx, toID); err != nil {
		if errors.Is(err, profile.ErrProfileNotFound) {
			return nil, fmt.Errorf("%w: target user %d not found", ErrInvalidSwipe, toID)
		}
		return nil, fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}

	var match *MatchRecord
	err := s.withRetry(ctx, func() error {
		match = nil
		return s.ledger.InTx(ctx, func(ctx context.Context, tx LedgerTx) error {
			var err error
			match, err = s.reconcile(ctx, tx, fromID, toID, action)
			return err
		})
	})
	if err != nil {
		if errors.Is(err, ErrAlreadySwiped) {
			swipesDuplicate.Inc()
			return nil, ErrAlreadySwiped
		}
		if errors.Is(err, ErrTxConflict) {
			matchFailures.Inc()
			return nil, fmt.Errorf("%w: %v", ErrMatchCreationFailed, err)
		}
		return nil, err
	}

	swipesTotal.WithLabelValues(string(action)).Inc()

	outcome := &SwipeOutcome{}
	if match != nil {
		matchesTotal.Inc()
		result := &MatchResult{MatchID: match.ID, ChatID: match.ChatChannelID}
		// The counterpart profile is decoration on the outcome; a failed
		// load must not undo a committed match.
		if p, err := s.profiles.Get(ctx, toID); err == nil {
			result.MatchedProfile = p
		} else {
			log.Printf("discovery: loading matched profile %d: %v", toID, err)
		}
		outcome.Match = result

		if s.notifier != nil {
			s.notifier.NotifyMatch(fromID, toID, match)
		}
	}

	return outcome, nil
}

// reconcile runs inside a single serializable transaction. Either the full
// outcome commits (swipe, and on mutual like the match plus channel) or
// nothing does.
func (s *service) reconcile(ctx context.Context, tx LedgerTx, fromID, toID int64, action SwipeAction) (*MatchRecord, error) {
	existing, err := tx.GetSwipe(ctx, fromID, toID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadySwiped
	}

	if action == ActionPass {
		return nil, tx.InsertSwipe(ctx, &SwipeRecord{
			FromUserID: fromID,
			ToUserID:   toID,
			Action:     ActionPass,
		})
	}

	reciprocal, err := tx.ReciprocalLike(ctx, toID, fromID)
	if err != nil {
		return nil, err
	}

	if reciprocal == nil {
		return nil, tx.InsertSwipe(ctx, &SwipeRecord{
			FromUserID: fromID,
			ToUserID:   toID,
			Action:     ActionLike,
		})
	}

	// Mutual like. The triggering swipe is born consumed; both sides of the
	// interaction are settled by this transaction.
	swipe := &SwipeRecord{
		FromUserID:      fromID,
		ToUserID:        toID,
		Action:          ActionLike,
		ActedOnByTarget: true,
	}
	if err := tx.InsertSwipe(ctx, swipe); err != nil {
		return nil, err
	}

	channel, err := tx.EnsureChannel(ctx, fromID, toID)
	if err != nil {
		return nil, err
	}

	match, err := tx.InsertMatch(ctx, fromID, toID, channel.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.UpgradeChannel(ctx, channel.ID, match.ID); err != nil {
		return nil, err
	}

	if err := tx.ConsumeSwipe(ctx, reciprocal.ID); err != nil {
		return nil, err
	}

	return match, nil
}

// withRetry reruns fn on transaction conflicts with a linear backoff,
// respecting context cancellation between attempts.
func (s *service) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < s.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			reconcileConflicts.Inc()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.opts.RetryBackoff * time.Duration(attempt)):
			}
		}
		err = fn()
		if err == nil || !errors.Is(err, ErrTxConflict) {
			return err
		}
	}
	return err
}

// applyRadiusDefault fills in the configured radius for viewers who never
// set one, so proximity scoring has a radius to decay against.
func (s *service) applyRadiusDefault(p *profile.Profile) {
	if p.MatchRadiusKM <= 0 {
		p.MatchRadiusKM = s.opts.DefaultRadiusKM
	}
}

func (s *service) FeedVersion(ctx context.Context, viewerID int64) (int64, error) {
	version, err := s.ledger.FeedVersion(ctx, viewerID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}
	return version, nil
}
