package activity

import (
	"context"
	"sort"
	"sync"
)

// NopLog ignores all events.
type NopLog struct{}

func (NopLog) Append(context.Context, Event) error { return nil }

func (NopLog) Recent(context.Context, string, int) ([]Event, error) { return nil, nil }

func (NopLog) Counts(context.Context, string) (Counts, error) { return Counts{}, nil }

// MemoryLog keeps events in memory. Used for tests and single-process runs.
type MemoryLog struct {
	mu     sync.Mutex
	events map[string][]Event
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{events: make(map[string][]Event)}
}

func (l *MemoryLog) Append(_ context.Context, e Event) error {
	e, err := prepare(e)
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.events[e.StudentID] = append(l.events[e.StudentID], e)
	l.mu.Unlock()
	return nil
}

func (l *MemoryLog) Recent(_ context.Context, studentID string, limit int) ([]Event, error) {
	if limit <= 0 {
		return nil, nil
	}

	l.mu.Lock()
	events := append([]Event{}, l.events[studentID]...)
	l.mu.Unlock()

	// Newest first; ties keep reverse insertion order.
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].CreatedAt.After(events[j].CreatedAt)
	})

	if len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

func (l *MemoryLog) Counts(_ context.Context, studentID string) (Counts, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var c Counts
	for _, e := range l.events[studentID] {
		c.add(e.Kind)
	}
	return c, nil
}

// Events returns every event for a student in insertion order.
func (l *MemoryLog) Events(studentID string) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event{}, l.events[studentID]...)
}
