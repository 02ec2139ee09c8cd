package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresLog stores events in the activity_events table.
type PostgresLog struct {
	pool *pgxpool.Pool
}

func NewPostgresLog(pool *pgxpool.Pool) *PostgresLog {
	return &PostgresLog{pool: pool}
}

func (l *PostgresLog) Append(ctx context.Context, e Event) error {
	if l == nil || l.pool == nil {
		return fmt.Errorf("activity log pool is nil")
	}
	e, err := prepare(e)
	if err != nil {
		return err
	}

	data, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if _, err := l.pool.Exec(ctx,
		`INSERT INTO activity_events (student_id, kind, payload, created_at)
		 VALUES ($1, $2, $3::jsonb, $4)`,
		e.StudentID,
		string(e.Kind),
		string(data),
		e.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert activity event: %w", err)
	}

	slog.Debug("activity logged", "kind", e.Kind, "student_id", e.StudentID)
	return nil
}

func (l *PostgresLog) Recent(ctx context.Context, studentID string, limit int) ([]Event, error) {
	if l == nil || l.pool == nil {
		return nil, fmt.Errorf("activity log pool is nil")
	}
	if limit <= 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := l.pool.Query(ctx,
		`SELECT kind, payload, created_at
		 FROM activity_events
		 WHERE student_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`,
		studentID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query activity events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			kind    string
			payload []byte
			e       = Event{StudentID: studentID}
		)
		if err := rows.Scan(&kind, &payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity event: %w", err)
		}
		e.Kind = Kind(kind)
		if err := json.Unmarshal(payload, &e.Payload); err != nil {
			return nil, fmt.Errorf("decode activity payload: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity events: %w", err)
	}
	return events, nil
}

func (l *PostgresLog) Counts(ctx context.Context, studentID string) (Counts, error) {
	if l == nil || l.pool == nil {
		return Counts{}, fmt.Errorf("activity log pool is nil")
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var c Counts
	err := l.pool.QueryRow(ctx,
		`SELECT
		   COUNT(*) FILTER (WHERE kind = $2),
		   COUNT(*) FILTER (WHERE kind = $3),
		   COUNT(*) FILTER (WHERE kind = $4)
		 FROM activity_events
		 WHERE student_id = $1`,
		studentID,
		string(LessonStart),
		string(DoubtAsked),
		string(AssessmentDone),
	).Scan(&c.LessonsMastered, &c.DoubtsAsked, &c.QuizzesCompleted)
	if err != nil {
		return Counts{}, fmt.Errorf("count activity events: %w", err)
	}
	return c, nil
}
