// Package conversation holds the scoped tutor chat: a transcript that resets
// to a greeting whenever the focus changes.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/p-n-ai/pai-study/internal/activity"
	"github.com/p-n-ai/pai-study/internal/identity"
	"github.com/p-n-ai/pai-study/internal/inference"
	"github.com/p-n-ai/pai-study/internal/scope"
)

// FallbackMessage replaces the answer when the inference call fails.
const FallbackMessage = "Connection interrupted. Please verify that the local intelligence engine is active."

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrBusy         = errors.New("a message is already in flight")
	// ErrStale means the scope changed while the answer was pending; the
	// answer was discarded.
	ErrStale = errors.New("scope changed before the answer arrived")
)

// Role is the author of an exchange.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Exchange is one transcript entry. User exchanges never carry citations.
type Exchange struct {
	Role             Role                 `json:"role"`
	Text             string               `json:"text"`
	Citations        []inference.Citation `json:"citations,omitempty"`
	DetectedLanguage string               `json:"detected_language,omitempty"`
}

// Greeting returns the assistant's opening line for a scope.
func Greeting(s scope.Scope) string {
	switch s.Kind() {
	case scope.ChapterFocused:
		return fmt.Sprintf("Focus Mode: %s. How can I assist you with this specific chapter?", s.Title())
	case scope.SubjectWide:
		return fmt.Sprintf("Subject Mode: %s. I'm searching across all chapters in this subject. Ask me anything!", s.Subject())
	default:
		return "Hello! I'm your NCERT assistant. Please select a subject to start a focused study session."
	}
}

// Config holds the session's collaborators.
type Config struct {
	Resolver  *scope.Resolver
	Inference inference.Service
	Log       activity.Log      // nil discards doubt_asked events
	Identity  identity.Provider // nil means events are never attributed
	Grade     scope.GradeFunc   // nil omits grade from requests
}

// Session is a single student's chat transcript.
type Session struct {
	svc   inference.Service
	log   activity.Log
	ident identity.Provider
	grade scope.GradeFunc

	mu         sync.Mutex
	scope      scope.Scope
	generation uint64
	transcript []Exchange
	busy       bool
}

// NewSession creates a session greeting the resolver's current scope and
// resetting on every later change.
func NewSession(cfg Config) *Session {
	s := &Session{
		svc:   cfg.Inference,
		log:   cfg.Log,
		ident: cfg.Identity,
		grade: cfg.Grade,
	}
	if s.log == nil {
		s.log = activity.NopLog{}
	}
	if s.grade == nil {
		s.grade = scope.FixedGrade(0)
	}

	current, gen := cfg.Resolver.Current()
	s.reset(scope.Change{Scope: current, Generation: gen})
	cfg.Resolver.Subscribe(s.reset)
	return s
}

func (s *Session) reset(c scope.Change) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scope = c.Scope
	s.generation = c.Generation
	s.busy = false
	s.transcript = []Exchange{{Role: RoleAssistant, Text: Greeting(c.Scope)}}
}

// Pending is an in-flight message returned by Begin.
type Pending struct {
	Query      string
	Scope      scope.Scope
	generation uint64
}

// Begin validates text, appends the user exchange and marks the session busy.
func (s *Session) Begin(text string) (Pending, error) {
	query := strings.TrimSpace(text)
	if query == "" {
		return Pending{}, ErrEmptyMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return Pending{}, ErrBusy
	}
	s.busy = true
	s.transcript = append(s.transcript, Exchange{Role: RoleUser, Text: query})
	return Pending{Query: query, Scope: s.scope, generation: s.generation}, nil
}

// Complete appends the answer for p, or the fallback when callErr is set.
// It returns false and changes nothing if the scope moved on since Begin.
func (s *Session) Complete(p Pending, resp inference.ChatResponse, callErr error) (Exchange, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.generation != s.generation {
		slog.Debug("discarding stale chat answer", "generation", p.generation, "current", s.generation)
		return Exchange{}, false
	}

	ex := Exchange{Role: RoleAssistant, Text: FallbackMessage}
	if callErr == nil {
		ex = Exchange{
			Role:             RoleAssistant,
			Text:             resp.Answer,
			Citations:        resp.Citations,
			DetectedLanguage: resp.DetectedLanguage,
		}
	}
	s.busy = false
	s.transcript = append(s.transcript, ex)
	return ex, true
}

// Send asks the tutor a question within the current scope.
func (s *Session) Send(ctx context.Context, text string) (Exchange, error) {
	p, err := s.Begin(text)
	if err != nil {
		return Exchange{}, err
	}

	req := inference.ChatRequest{Query: p.Query, ScopeParams: p.Scope.Params(s.grade(ctx))}
	resp, callErr := s.svc.Chat(ctx, req)
	if callErr != nil {
		slog.Warn("chat request failed", "scope", p.Scope.Kind(), "error", callErr)
	}

	ex, ok := s.Complete(p, resp, callErr)
	if !ok {
		return Exchange{}, ErrStale
	}
	if callErr == nil {
		s.logDoubt(ctx, p)
	}
	return ex, nil
}

func (s *Session) logDoubt(ctx context.Context, p Pending) {
	if s.ident == nil {
		return
	}
	id, ok := s.ident.Current()
	if !ok {
		return
	}
	event := activity.NewDoubtAsked(id.StudentID, p.Query, p.Scope.Title(), p.Scope.Subject())
	if err := s.log.Append(ctx, event); err != nil {
		slog.Warn("failed to log doubt", "student_id", id.StudentID, "error", err)
	}
}

// Busy reports whether a message is in flight.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Transcript returns a copy of the exchanges so far.
func (s *Session) Transcript() []Exchange {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Exchange(nil), s.transcript...)
}

// State returns the focus level the transcript belongs to.
func (s *Session) State() scope.Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scope.Kind()
}

// Scope returns the scope the transcript belongs to.
func (s *Session) Scope() scope.Scope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scope
}
