package discovery

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/emberdating/ember-backend/internal/chat"
)

// ErrTxConflict marks a serialization or deadlock failure inside the
// reconcile transaction. The reconciler retries the whole operation on it.
var ErrTxConflict = errors.New("transaction conflict")

// Ledger is the swipe ledger plus the match/channel writes that must share
// its transaction. All match resolution goes through InTx; nothing else may
// write a like, a match, or a mutual channel.
type Ledger interface {
	// InTx runs fn inside a SERIALIZABLE transaction. Conflicts surface
	// as ErrTxConflict and the transaction is rolled back; nothing
	// partial persists.
	InTx(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error

	// SwipedUserIDs returns every identity the viewer has already swiped.
	SwipedUserIDs(ctx context.Context, viewerID int64) (map[int64]struct{}, error)
	// ConsumedLikerIDs returns identities whose like toward the viewer was
	// already consumed; the viewer resolved that interaction elsewhere.
	ConsumedLikerIDs(ctx context.Context, viewerID int64) (map[int64]struct{}, error)
	// IncomingLikes pages unconsumed likes directed at the viewer in
	// insertion order, strictly after the cursor position.
	IncomingLikes(ctx context.Context, viewerID int64, after likerCursor, limit int) ([]*SwipeRecord, error)
	// FeedVersion is a per-viewer monotonic value that changes whenever the
	// viewer's swipe state changes; callers re-fetch the feed when it moves.
	FeedVersion(ctx context.Context, viewerID int64) (int64, error)
}

// LedgerTx is the write surface available inside a reconcile transaction.
type LedgerTx interface {
	// GetSwipe returns the swipe for the ordered pair, or nil when absent.
	GetSwipe(ctx context.Context, fromID, toID int64) (*SwipeRecord, error)
	// InsertSwipe appends a record, filling ID and CreatedAt. A concurrent
	// duplicate for the same ordered pair surfaces as ErrAlreadySwiped.
	InsertSwipe(ctx context.Context, rec *SwipeRecord) error
	// ReciprocalLike returns the unconsumed like from fromID to toID,
	// locked for update, or nil when absent.
	ReciprocalLike(ctx context.Context, fromID, toID int64) (*SwipeRecord, error)
	// ConsumeSwipe flips acted_on_by_target on an existing record.
	ConsumeSwipe(ctx context.Context, swipeID int64) error
	// EnsureChannel returns the chat channel for the pair, creating it
	// when absent.
	EnsureChannel(ctx context.Context, userA, userB int64) (*chat.Channel, error)
	// UpgradeChannel marks the channel mutual and attaches the match.
	UpgradeChannel(ctx context.Context, channelID, matchID int64) error
	// InsertMatch creates (or reactivates) the match for the pair.
	InsertMatch(ctx context.Context, userA, userB, chatChannelID int64) (*MatchRecord, error)
}

type postgresLedger struct {
	db       *sqlx.DB
	channels chat.Repository
}

// NewPostgresLedger creates the swipe ledger backed by PostgreSQL
func NewPostgresLedger(db *sqlx.DB, channels chat.Repository) Ledger {
	return &postgresLedger{db: db, channels: channels}
}

func (l *postgresLedger) InTx(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error {
	tx, err := l.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(ctx, &ledgerTx{tx: tx, channels: l.channels}); err != nil {
		return mapTxError(err)
	}

	if err := tx.Commit(); err != nil {
		return mapTxError(fmt.Errorf("commit tx: %w", err))
	}

	return nil
}

func (l *postgresLedger) SwipedUserIDs(ctx context.Context, viewerID int64) (map[int64]struct{}, error) {
	var ids []int64
	err := l.db.SelectContext(ctx, &ids, `
		SELECT to_user_id FROM swipes WHERE from_user_id = $1
	`, viewerID)
	if err != nil {
		return nil, fmt.Errorf("load swiped ids: %w", err)
	}
	return toSet(ids), nil
}

func (l *postgresLedger) ConsumedLikerIDs(ctx context.Context, viewerID int64) (map[int64]struct{}, error) {
	var ids []int64
	err := l.db.SelectContext(ctx, &ids, `
		SELECT from_user_id FROM swipes
		WHERE to_user_id = $1 AND action = 'like' AND acted_on_by_target = TRUE
	`, viewerID)
	if err != nil {
		return nil, fmt.Errorf("load consumed liker ids: %w", err)
	}
	return toSet(ids), nil
}

func (l *postgresLedger) IncomingLikes(ctx context.Context, viewerID int64, after likerCursor, limit int) ([]*SwipeRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, from_user_id, to_user_id, action, acted_on_by_target, created_at
		FROM swipes
		WHERE to_user_id = $1 AND action = 'like' AND acted_on_by_target = FALSE
		  AND (created_at, id) > ($2, $3)
		ORDER BY created_at, id
		LIMIT $4
	`

	afterAt := after.CreatedAt
	if afterAt.IsZero() {
		afterAt = time.Unix(0, 0).UTC()
	}

	var records []*SwipeRecord
	err := l.db.SelectContext(ctx, &records, query, viewerID, afterAt, after.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("load incoming likes: %w", err)
	}
	return records, nil
}

func (l *postgresLedger) FeedVersion(ctx context.Context, viewerID int64) (int64, error) {
	// Any swipe by the viewer, and any consumption of a like aimed at the
	// viewer, advances the version.
	var version int64
	err := l.db.GetContext(ctx, &version, `
		SELECT COALESCE(MAX(id), 0) FROM swipes
		WHERE from_user_id = $1
		   OR (to_user_id = $1 AND acted_on_by_target = TRUE)
	`, viewerID)
	if err != nil {
		return 0, fmt.Errorf("load feed version: %w", err)
	}
	return version, nil
}

type ledgerTx struct {
	tx       *sqlx.Tx
	channels chat.Repository
}

func (t *ledgerTx) GetSwipe(ctx context.Context, fromID, toID int64) (*SwipeRecord, error) {
	var rec SwipeRecord
	err := t.tx.GetContext(ctx, &rec, `
		SELECT id, from_user_id, to_user_id, action, acted_on_by_target, created_at
		FROM swipes
		WHERE from_user_id = $1 AND to_user_id = $2
	`, fromID, toID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get swipe: %w", err)
	}
	return &rec, nil
}

func (t *ledgerTx) InsertSwipe(ctx context.Context, rec *SwipeRecord) error {
	err := t.tx.QueryRowxContext(ctx, `
		INSERT INTO swipes (from_user_id, to_user_id, action, acted_on_by_target)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, rec.FromUserID, rec.ToUserID, rec.Action, rec.ActedOnByTarget).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadySwiped
		}
		return fmt.Errorf("insert swipe: %w", err)
	}
	return nil
}

func (t *ledgerTx) ReciprocalLike(ctx context.Context, fromID, toID int64) (*SwipeRecord, error) {
	var rec SwipeRecord
	err := t.tx.GetContext(ctx, &rec, `
		SELECT id, from_user_id, to_user_id, action, acted_on_by_target, created_at
		FROM swipes
		WHERE from_user_id = $1 AND to_user_id = $2
		  AND action = 'like' AND acted_on_by_target = FALSE
		FOR UPDATE
	`, fromID, toID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup reciprocal like: %w", err)
	}
	return &rec, nil
}

func (t *ledgerTx) ConsumeSwipe(ctx context.Context, swipeID int64) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE swipes SET acted_on_by_target = TRUE WHERE id = $1
	`, swipeID)
	if err != nil {
		return fmt.Errorf("consume swipe: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("consume swipe: record %d not found", swipeID)
	}
	return nil
}

func (t *ledgerTx) EnsureChannel(ctx context.Context, userA, userB int64) (*chat.Channel, error) {
	return t.channels.EnsureTx(ctx, t.tx, userA, userB)
}

func (t *ledgerTx) UpgradeChannel(ctx context.Context, channelID, matchID int64) error {
	return t.channels.UpgradeTx(ctx, t.tx, channelID, matchID)
}

func (t *ledgerTx) InsertMatch(ctx context.Context, userA, userB, chatChannelID int64) (*MatchRecord, error) {
	user1, user2 := canonicalPair(userA, userB)

	match := &MatchRecord{
		User1ID:       user1,
		User2ID:       user2,
		ChatChannelID: chatChannelID,
		IsActive:      true,
	}

	err := t.tx.QueryRowxContext(ctx, `
		INSERT INTO matches (user1_id, user2_id, chat_channel_id, is_active)
		VALUES ($1, $2, $3, TRUE)
		ON CONFLICT (user1_id, user2_id)
		DO UPDATE SET is_active = TRUE
		RETURNING id, created_at
	`, user1, user2, chatChannelID).Scan(&match.ID, &match.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert match: %w", err)
	}

	return match, nil
}

// mapTxError folds Postgres serialization failures and deadlocks into
// ErrTxConflict so the reconciler can retry. Sentinels pass through intact.
func mapTxError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return fmt.Errorf("%w: %v", ErrTxConflict, err)
		}
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func toSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
