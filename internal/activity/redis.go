package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/p-n-ai/pai-study/internal/platform/cache"
)

// RedisLog keeps each student's events in a list (newest at the head) and
// per-kind totals in a hash.
type RedisLog struct {
	cache *cache.Cache
}

func NewRedisLog(c *cache.Cache) *RedisLog {
	return &RedisLog{cache: c}
}

func (l *RedisLog) eventsKey(studentID string) string {
	return l.cache.Key("activity", studentID, "events")
}

func (l *RedisLog) countsKey(studentID string) string {
	return l.cache.Key("activity", studentID, "counts")
}

func (l *RedisLog) Append(ctx context.Context, e Event) error {
	if l == nil || l.cache == nil || l.cache.Client == nil {
		return fmt.Errorf("activity log cache is nil")
	}
	e, err := prepare(e)
	if err != nil {
		return err
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	_, err = l.cache.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, l.eventsKey(e.StudentID), data)
		pipe.HIncrBy(ctx, l.countsKey(e.StudentID), string(e.Kind), 1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("append activity event: %w", err)
	}

	slog.Debug("activity logged", "kind", e.Kind, "student_id", e.StudentID)
	return nil
}

func (l *RedisLog) Recent(ctx context.Context, studentID string, limit int) ([]Event, error) {
	if l == nil || l.cache == nil || l.cache.Client == nil {
		return nil, fmt.Errorf("activity log cache is nil")
	}
	if limit <= 0 {
		return nil, nil
	}

	raw, err := l.cache.Client.LRange(ctx, l.eventsKey(studentID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read activity events: %w", err)
	}

	events := make([]Event, 0, len(raw))
	for _, item := range raw {
		var e Event
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			slog.Warn("skipping undecodable activity event", "student_id", studentID, "error", err)
			continue
		}
		events = append(events, e)
	}
	return events, nil
}

func (l *RedisLog) Counts(ctx context.Context, studentID string) (Counts, error) {
	if l == nil || l.cache == nil || l.cache.Client == nil {
		return Counts{}, fmt.Errorf("activity log cache is nil")
	}

	totals, err := l.cache.Client.HGetAll(ctx, l.countsKey(studentID)).Result()
	if err != nil {
		return Counts{}, fmt.Errorf("read activity counts: %w", err)
	}

	return Counts{
		LessonsMastered:  atoi(totals[string(LessonStart)]),
		DoubtsAsked:      atoi(totals[string(DoubtAsked)]),
		QuizzesCompleted: atoi(totals[string(AssessmentDone)]),
	}, nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
