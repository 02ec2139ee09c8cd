package scope

import (
	"context"
	"log/slog"
	"sync"

	"github.com/p-n-ai/pai-study/internal/activity"
	"github.com/p-n-ai/pai-study/internal/identity"
	"github.com/p-n-ai/pai-study/internal/library"
)

// Change is delivered to subscribers after every transition.
type Change struct {
	Scope      Scope
	Generation uint64
}

// Resolver owns the active scope. Every transition bumps the generation and
// notifies subscribers synchronously, in transition order. Subscribers must
// not call back into SetScope.
type Resolver struct {
	ident identity.Provider
	log   activity.Log

	transition sync.Mutex // serializes SetScope including notification

	mu         sync.RWMutex
	current    Scope
	generation uint64
	subs       []func(Change)
}

// NewResolver returns an unscoped resolver. A nil log discards events.
func NewResolver(ident identity.Provider, log activity.Log) *Resolver {
	if log == nil {
		log = activity.NopLog{}
	}
	return &Resolver{ident: ident, log: log}
}

// Subscribe registers fn for future changes.
func (r *Resolver) Subscribe(fn func(Change)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = append(r.subs, fn)
}

// Current returns the active scope and its generation.
func (r *Resolver) Current() (Scope, uint64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current, r.generation
}

// SetScope replaces the active scope unconditionally.
func (r *Resolver) SetScope(s Scope) Change {
	r.transition.Lock()
	defer r.transition.Unlock()

	r.mu.Lock()
	r.current = s
	r.generation++
	change := Change{Scope: s, Generation: r.generation}
	subs := append([]func(Change){}, r.subs...)
	r.mu.Unlock()

	slog.Debug("scope changed", "kind", s.kind, "subject", s.subject, "chapter_id", s.chapterID, "generation", change.Generation)
	for _, fn := range subs {
		fn(change)
	}
	return change
}

// Clear returns to the unscoped state.
func (r *Resolver) Clear() Change {
	return r.SetScope(None)
}

// SelectSubject focuses on a whole subject.
func (r *Resolver) SelectSubject(subject string) Change {
	return r.SetScope(Subject(subject))
}

// SelectChapter focuses on a chapter. It requires a signed-in student and
// records lesson_start before the scope changes; it returns false without
// side effects otherwise.
func (r *Resolver) SelectChapter(ctx context.Context, ch library.Chapter) bool {
	if r.ident == nil {
		return false
	}
	id, ok := r.ident.Current()
	if !ok {
		return false
	}

	event := activity.NewLessonStart(id.StudentID, ch.Title, ch.Filename, ch.Subject)
	if err := r.log.Append(ctx, event); err != nil {
		slog.Warn("failed to log lesson start", "student_id", id.StudentID, "chapter_id", ch.ID, "error", err)
	}

	r.SetScope(Chapter(ch))
	return true
}
