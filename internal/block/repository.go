package block

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Store answers block-list membership queries. The discovery core consults
// it but never mutates it; block management belongs to the safety surface.
type Store interface {
	// IsBlocked is bidirectional: true when either user blocked the other.
	IsBlocked(ctx context.Context, userA, userB int64) (bool, error)
}

type postgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore creates a block store backed by PostgreSQL
func NewPostgresStore(db *sqlx.DB) Store {
	return &postgresStore{db: db}
}

func (s *postgresStore) IsBlocked(ctx context.Context, userA, userB int64) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS(
			SELECT 1 FROM blocks
			WHERE (blocker_id = $1 AND blocked_id = $2)
			   OR (blocker_id = $2 AND blocked_id = $1)
		)
	`

	if err := s.db.GetContext(ctx, &exists, query, userA, userB); err != nil {
		return false, fmt.Errorf("check block: %w", err)
	}
	return exists, nil
}
