package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var ErrChannelNotFound = errors.New("chat channel not found")

// Repository owns chat channel persistence. The transactional Ensure/Upgrade
// pair runs inside the match reconciler's transaction; no other code path
// creates mutual channels.
type Repository interface {
	GetByPair(ctx context.Context, userA, userB int64) (*Channel, error)
	ListForUser(ctx context.Context, userID int64) ([]*Channel, error)

	// EnsureTx returns the channel for the pair, creating it when absent.
	// Runs on the caller's transaction so reconciliation stays atomic.
	EnsureTx(ctx context.Context, tx *sqlx.Tx, userA, userB int64) (*Channel, error)
	// UpgradeTx flips is_mutual and attaches the match.
	UpgradeTx(ctx context.Context, tx *sqlx.Tx, channelID, matchID int64) error
}

type postgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a chat repository backed by PostgreSQL
func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) GetByPair(ctx context.Context, userA, userB int64) (*Channel, error) {
	user1, user2 := CanonicalPair(userA, userB)

	var ch Channel
	query := `
		SELECT id, user1_id, user2_id, is_mutual, related_match_id,
		       last_message, last_message_at, created_at
		FROM chat_channels
		WHERE user1_id = $1 AND user2_id = $2
	`
	err := r.db.GetContext(ctx, &ch, query, user1, user2)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrChannelNotFound
		}
		return nil, fmt.Errorf("get channel by pair: %w", err)
	}

	return &ch, nil
}

func (r *postgresRepository) ListForUser(ctx context.Context, userID int64) ([]*Channel, error) {
	query := `
		SELECT c.id, c.user1_id, c.user2_id, c.is_mutual, c.related_match_id,
		       c.last_message, c.last_message_at, c.created_at,
		       p.id AS "counterpart.id",
		       p.username AS "counterpart.username",
		       p.display_name AS "counterpart.display_name"
		FROM chat_channels c
		JOIN profiles p ON p.id = CASE WHEN c.user1_id = $1 THEN c.user2_id ELSE c.user1_id END
		WHERE c.user1_id = $1 OR c.user2_id = $1
		ORDER BY COALESCE(c.last_message_at, c.created_at) DESC
	`

	rows, err := r.db.QueryxContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	var channels []*Channel
	for rows.Next() {
		var ch Channel
		var counterpart Participant

		err := rows.Scan(
			&ch.ID, &ch.User1ID, &ch.User2ID, &ch.IsMutual, &ch.RelatedMatchID,
			&ch.LastMessage, &ch.LastMessageAt, &ch.CreatedAt,
			&counterpart.ID, &counterpart.Username, &counterpart.DisplayName,
		)
		if err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}

		ch.Counterpart = &counterpart
		channels = append(channels, &ch)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate channels: %w", rows.Err())
	}

	return channels, nil
}

func (r *postgresRepository) EnsureTx(ctx context.Context, tx *sqlx.Tx, userA, userB int64) (*Channel, error) {
	user1, user2 := CanonicalPair(userA, userB)

	// The insert is a no-op when the pair already has a channel; the
	// follow-up select returns whichever row won.
	_, err := tx.ExecContext(ctx, `
		INSERT INTO chat_channels (user1_id, user2_id, is_mutual)
		VALUES ($1, $2, FALSE)
		ON CONFLICT (user1_id, user2_id) DO NOTHING
	`, user1, user2)
	if err != nil {
		return nil, fmt.Errorf("ensure channel: %w", err)
	}

	var ch Channel
	err = tx.GetContext(ctx, &ch, `
		SELECT id, user1_id, user2_id, is_mutual, related_match_id,
		       last_message, last_message_at, created_at
		FROM chat_channels
		WHERE user1_id = $1 AND user2_id = $2
	`, user1, user2)
	if err != nil {
		return nil, fmt.Errorf("read ensured channel: %w", err)
	}

	return &ch, nil
}

func (r *postgresRepository) UpgradeTx(ctx context.Context, tx *sqlx.Tx, channelID, matchID int64) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE chat_channels
		SET is_mutual = TRUE, related_match_id = $2
		WHERE id = $1
	`, channelID, matchID)
	if err != nil {
		return fmt.Errorf("upgrade channel: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrChannelNotFound
	}
	return nil
}
