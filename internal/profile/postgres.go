package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresStore keeps each profile as a JSONB document and merges patches
// into it server-side.
type PostgresStore struct {
	pool     *pgxpool.Pool
	defaults Profile
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, defaults: Default()}
}

// WithDefaults sets the profile new students start from.
func (s *PostgresStore) WithDefaults(p Profile) *PostgresStore {
	s.defaults = p
	return s
}

func (s *PostgresStore) Defaults() Profile {
	return s.defaults
}

func (s *PostgresStore) Read(ctx context.Context, studentID string) (Profile, bool, error) {
	if s == nil || s.pool == nil {
		return Profile{}, false, fmt.Errorf("profile store pool is nil")
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM profiles WHERE student_id = $1`,
		studentID,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, false, nil
		}
		return Profile{}, false, fmt.Errorf("read profile: %w", err)
	}

	p := s.defaults
	if err := json.Unmarshal(data, &p); err != nil {
		return Profile{}, false, fmt.Errorf("decode profile: %w", err)
	}
	return p, true, nil
}

func (s *PostgresStore) Write(ctx context.Context, studentID string, patch Patch) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("profile store pool is nil")
	}
	if studentID == "" {
		return fmt.Errorf("student_id is required")
	}
	if err := patch.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("marshal profile patch: %w", err)
	}
	defaults, err := json.Marshal(s.defaults)
	if err != nil {
		return fmt.Errorf("marshal profile defaults: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if _, err := s.pool.Exec(ctx,
		`INSERT INTO profiles (student_id, data, updated_at)
		 VALUES ($1, $3::jsonb || $2::jsonb, NOW())
		 ON CONFLICT (student_id) DO UPDATE
		 SET data = profiles.data || $2::jsonb,
		     updated_at = NOW()`,
		studentID,
		string(data),
		string(defaults),
	); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}
	return nil
}
