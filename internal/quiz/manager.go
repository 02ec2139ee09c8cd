package quiz

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/p-n-ai/pai-study/internal/activity"
	"github.com/p-n-ai/pai-study/internal/identity"
	"github.com/p-n-ai/pai-study/internal/inference"
	"github.com/p-n-ai/pai-study/internal/scope"
)

// Config holds the manager's collaborators.
type Config struct {
	Resolver  *scope.Resolver
	Inference inference.Service
	Log       activity.Log
	Identity  identity.Provider
	Grade     scope.GradeFunc
}

// Manager owns at most one quiz per student. Any scope change discards it.
type Manager struct {
	svc   inference.Service
	log   activity.Log
	ident identity.Provider
	grade scope.GradeFunc

	mu         sync.Mutex
	scope      scope.Scope
	generation uint64
	current    *Quiz
	busy       bool
}

func NewManager(cfg Config) *Manager {
	m := &Manager{
		svc:   cfg.Inference,
		log:   cfg.Log,
		ident: cfg.Identity,
		grade: cfg.Grade,
	}
	if m.log == nil {
		m.log = activity.NopLog{}
	}
	if m.grade == nil {
		m.grade = scope.FixedGrade(0)
	}

	current, gen := cfg.Resolver.Current()
	m.reset(scope.Change{Scope: current, Generation: gen})
	cfg.Resolver.Subscribe(m.reset)
	return m
}

func (m *Manager) reset(c scope.Change) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scope = c.Scope
	m.generation = c.Generation
	m.current = nil
	m.busy = false
}

// Generate requests a new quiz. The query is topic, else the chapter title,
// else the subject. On success any previous quiz is replaced; on failure it
// is kept.
func (m *Manager) Generate(ctx context.Context, topic string) (Quiz, error) {
	topic = strings.TrimSpace(topic)

	m.mu.Lock()
	if m.busy {
		m.mu.Unlock()
		return Quiz{}, ErrBusy
	}
	sc, gen := m.scope, m.generation
	query := firstNonEmpty(topic, sc.Title(), sc.Subject())
	if query == "" {
		m.mu.Unlock()
		return Quiz{}, ErrNoTopic
	}
	m.busy = true
	m.mu.Unlock()

	req := inference.AssessmentRequest{Query: query, ScopeParams: sc.Params(m.grade(ctx))}
	resp, err := m.svc.Assessment(ctx, req)

	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		slog.Debug("discarding stale assessment", "generation", gen, "query", query)
		return Quiz{}, ErrStale
	}
	m.busy = false
	if err != nil {
		m.mu.Unlock()
		slog.Warn("assessment generation failed", "query", query, "error", err)
		return Quiz{}, fmt.Errorf("generating quiz: %w", err)
	}
	q, err := fromAssessment(firstNonEmpty(resp.Topic, query), resp)
	if err != nil {
		m.mu.Unlock()
		slog.Warn("rejected generated quiz", "query", query, "error", err)
		return Quiz{}, err
	}
	m.current = q
	snapshot := q.clone()
	m.mu.Unlock()

	m.logAssessment(ctx, firstNonEmpty(topic, sc.Subject()), sc)
	return snapshot, nil
}

func (m *Manager) logAssessment(ctx context.Context, topic string, sc scope.Scope) {
	if m.ident == nil {
		return
	}
	id, ok := m.ident.Current()
	if !ok {
		return
	}
	event := activity.NewAssessmentDone(id.StudentID, topic, sc.Subject(), sc.Title())
	if err := m.log.Append(ctx, event); err != nil {
		slog.Warn("failed to log assessment", "student_id", id.StudentID, "error", err)
	}
}

// SelectAnswer records option for question index; the last write wins.
func (m *Manager) SelectAnswer(index int, option string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return ErrNoQuiz
	}
	return m.current.selectAnswer(index, option)
}

// Finalize scores the quiz once. Later calls return the same score.
func (m *Manager) Finalize() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return 0, ErrNoQuiz
	}
	return m.current.finalize()
}

// Score returns the cached score once finalized.
func (m *Manager) Score() (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil || !m.current.Finalized {
		return 0, false
	}
	return m.current.Score, true
}

// Discard drops the current quiz.
func (m *Manager) Discard() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = nil
}

// Current returns a copy of the quiz in progress.
func (m *Manager) Current() (Quiz, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return Quiz{}, false
	}
	return m.current.clone(), true
}

// Busy reports whether generation is in flight.
func (m *Manager) Busy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.busy
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
