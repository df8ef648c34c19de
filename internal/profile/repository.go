package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"
)

var ErrProfileNotFound = errors.New("profile not found")

// Store is the read-mostly profile collaborator consumed by discovery.
// The discovery core never mutates profiles; only the verification service
// writes back trust state.
type Store interface {
	Get(ctx context.Context, userID int64) (*Profile, error)
	// Candidates returns a bounded page of the candidate pool ordered by id.
	// pageToken is the token returned by the previous call, "" for the first page.
	Candidates(ctx context.Context, pageToken string, limit int) ([]*Profile, string, error)

	// Verification write-back
	SetVerification(ctx context.Context, userID int64, trustScore float64, verified bool) error
	SetFaceTemplate(ctx context.Context, userID int64, template string) error
	GetFaceTemplate(ctx context.Context, userID int64) (string, error)
}

type postgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore creates a profile store backed by PostgreSQL
func NewPostgresStore(db *sqlx.DB) Store {
	return &postgresStore{db: db}
}

const profileColumns = `
	id, username, COALESCE(display_name, '') AS display_name, bio,
	COALESCE(EXTRACT(YEAR FROM AGE(birth_date))::int, 0) AS age,
	COALESCE(gender, '') AS gender, COALESCE(height_cm, 0) AS height_cm,
	COALESCE(interests, '{}') AS interests,
	relationship_intent,
	COALESCE(gender_preference, '{}') AS gender_preference,
	COALESCE(match_radius_km, 0) AS match_radius_km,
	location_lat, location_lng,
	is_verified, COALESCE(trust_score, 0) AS trust_score,
	last_active, created_at
`

func (s *postgresStore) Get(ctx context.Context, userID int64) (*Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`

	row := s.db.QueryRowxContext(ctx, query, userID)
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}

	return p, nil
}

func (s *postgresStore) Candidates(ctx context.Context, pageToken string, limit int) ([]*Profile, string, error) {
	afterID := int64(0)
	if pageToken != "" {
		id, err := strconv.ParseInt(pageToken, 10, 64)
		if err != nil {
			return nil, "", fmt.Errorf("invalid page token %q", pageToken)
		}
		afterID = id
	}
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT ` + profileColumns + `
		FROM profiles
		WHERE id > $1
		ORDER BY id
		LIMIT $2`

	rows, err := s.db.QueryxContext(ctx, query, afterID, limit)
	if err != nil {
		return nil, "", fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	var profiles []*Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, "", fmt.Errorf("scan candidate: %w", err)
		}
		profiles = append(profiles, p)
	}
	if rows.Err() != nil {
		return nil, "", fmt.Errorf("iterate candidates: %w", rows.Err())
	}

	nextToken := ""
	if len(profiles) == limit {
		nextToken = strconv.FormatInt(profiles[len(profiles)-1].ID, 10)
	}

	return profiles, nextToken, nil
}

func (s *postgresStore) SetVerification(ctx context.Context, userID int64, trustScore float64, verified bool) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE profiles
		SET trust_score = $2, is_verified = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`, userID, trustScore, verified)
	if err != nil {
		return fmt.Errorf("set verification: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrProfileNotFound
	}
	return nil
}

func (s *postgresStore) SetFaceTemplate(ctx context.Context, userID int64, template string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE profiles
		SET face_template = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`, userID, template)
	if err != nil {
		return fmt.Errorf("set face template: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrProfileNotFound
	}
	return nil
}

func (s *postgresStore) GetFaceTemplate(ctx context.Context, userID int64) (string, error) {
	var template sql.NullString
	err := s.db.GetContext(ctx, &template, `SELECT face_template FROM profiles WHERE id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrProfileNotFound
		}
		return "", fmt.Errorf("get face template: %w", err)
	}
	return template.String, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProfile(row rowScanner) (*Profile, error) {
	var p Profile
	var lat, lng sql.NullFloat64

	err := row.Scan(
		&p.ID, &p.Username, &p.DisplayName, &p.Bio,
		&p.Age, &p.Gender, &p.HeightCM,
		&p.Interests, &p.RelationshipIntent, &p.GenderPreference,
		&p.MatchRadiusKM, &lat, &lng,
		&p.IsVerified, &p.TrustScore,
		&p.LastActive, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lat.Valid && lng.Valid {
		p.Location = &Coordinates{Lat: lat.Float64, Lng: lng.Float64}
	}

	return &p, nil
}
