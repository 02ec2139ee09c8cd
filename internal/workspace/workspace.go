// Package workspace wires one student's scope, chat and quiz together and
// keeps one workspace per signed-in student.
package workspace

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/p-n-ai/pai-study/internal/activity"
	"github.com/p-n-ai/pai-study/internal/conversation"
	"github.com/p-n-ai/pai-study/internal/dashboard"
	"github.com/p-n-ai/pai-study/internal/identity"
	"github.com/p-n-ai/pai-study/internal/inference"
	"github.com/p-n-ai/pai-study/internal/library"
	"github.com/p-n-ai/pai-study/internal/mission"
	"github.com/p-n-ai/pai-study/internal/profile"
	"github.com/p-n-ai/pai-study/internal/progress"
	"github.com/p-n-ai/pai-study/internal/quiz"
	"github.com/p-n-ai/pai-study/internal/scope"
)

var (
	ErrUnknownChapter = errors.New("unknown chapter")
	ErrUnknownSubject = errors.New("unknown subject")
	ErrSignedOut      = errors.New("no student is signed in")
)

// Deps are shared by every workspace. Baseline is used as given.
type Deps struct {
	Inference   inference.Service
	Log         activity.Log
	Profiles    profile.Store
	Library     *library.Catalog
	Baseline    int
	RecentLimit int
}

// Workspace is a single student's study state.
type Workspace struct {
	Session      *identity.Session
	Resolver     *scope.Resolver
	Conversation *conversation.Session
	Quiz         *quiz.Manager

	studentID string
	deps      *Deps
	lastUsed  time.Time // guarded by Registry.mu
}

func newWorkspace(id identity.Identity, deps *Deps) *Workspace {
	w := &Workspace{studentID: id.StudentID, deps: deps}
	w.Session = identity.NewSession()
	w.Session.Login(id)
	w.Resolver = scope.NewResolver(w.Session, deps.Log)

	grade := w.Grade
	w.Conversation = conversation.NewSession(conversation.Config{
		Resolver:  w.Resolver,
		Inference: deps.Inference,
		Log:       deps.Log,
		Identity:  w.Session,
		Grade:     grade,
	})
	w.Quiz = quiz.NewManager(quiz.Config{
		Resolver:  w.Resolver,
		Inference: deps.Inference,
		Log:       deps.Log,
		Identity:  w.Session,
		Grade:     grade,
	})
	return w
}

// StudentID returns the owner of the workspace.
func (w *Workspace) StudentID() string {
	return w.studentID
}

// Grade reads the student's grade from the profile, falling back to the
// store's default grade when the store is unavailable.
func (w *Workspace) Grade(ctx context.Context) int {
	p, err := profile.Load(ctx, w.deps.Profiles, w.studentID)
	if err != nil {
		slog.Warn("profile unavailable, using default grade", "student_id", w.studentID, "error", err)
		return w.deps.Profiles.Defaults().Grade
	}
	return p.Grade
}

// SelectSubject focuses on a subject from the library, or one of the
// default subjects while the library is empty.
func (w *Workspace) SelectSubject(subject string) (scope.Change, error) {
	if !w.deps.Library.HasSubject(subject) {
		return scope.Change{}, ErrUnknownSubject
	}
	return w.Resolver.SelectSubject(subject), nil
}

// SelectChapter focuses on a chapter by ID.
func (w *Workspace) SelectChapter(ctx context.Context, chapterID string) error {
	ch, ok := w.deps.Library.Chapter(chapterID)
	if !ok {
		return ErrUnknownChapter
	}
	if !w.Resolver.SelectChapter(ctx, ch) {
		return ErrSignedOut
	}
	return nil
}

// Registry holds one workspace per student.
type Registry struct {
	deps      Deps
	dashboard *dashboard.Service

	mu         sync.Mutex
	workspaces map[string]*Workspace
}

func NewRegistry(deps Deps) *Registry {
	if deps.Log == nil {
		deps.Log = activity.NopLog{}
	}
	if deps.Profiles == nil {
		deps.Profiles = profile.NewMemoryStore()
	}
	if deps.Library == nil {
		deps.Library = library.NewCatalog(nil)
	}

	r := &Registry{deps: deps, workspaces: make(map[string]*Workspace)}
	r.dashboard = dashboard.NewService(dashboard.Config{
		Aggregator: &progress.Aggregator{
			Log:      deps.Log,
			Profiles: deps.Profiles,
			Baseline: deps.Baseline,
		},
		Log:         deps.Log,
		Planner:     mission.NewPlanner(deps.Inference),
		Subjects:    deps.Library.SubjectNames,
		RecentLimit: deps.RecentLimit,
	})
	return r
}

// Get returns the student's workspace, creating it on first use. A changed
// display name is applied to the existing session.
func (r *Registry) Get(id identity.Identity) (*Workspace, error) {
	if id.StudentID == "" {
		return nil, ErrSignedOut
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workspaces[id.StudentID]
	if !ok {
		w = newWorkspace(id, &r.deps)
		r.workspaces[id.StudentID] = w
		slog.Info("workspace created", "student_id", id.StudentID)
	} else if cur, _ := w.Session.Current(); cur != id {
		w.Session.Login(id)
	}
	w.lastUsed = time.Now()
	return w, nil
}

// EvictIdle signs out and drops every workspace last fetched before cutoff.
// It returns the number evicted.
func (r *Registry) EvictIdle(cutoff time.Time) int {
	r.mu.Lock()
	var idle []*Workspace
	for id, w := range r.workspaces {
		if w.lastUsed.Before(cutoff) {
			idle = append(idle, w)
			delete(r.workspaces, id)
		}
	}
	r.mu.Unlock()

	for _, w := range idle {
		w.Session.Logout()
		slog.Info("workspace evicted", "student_id", w.studentID)
	}
	return len(idle)
}

// Remove signs the student out and drops their workspace.
func (r *Registry) Remove(studentID string) {
	r.mu.Lock()
	w, ok := r.workspaces[studentID]
	delete(r.workspaces, studentID)
	r.mu.Unlock()

	if ok {
		w.Session.Logout()
	}
}

// Len returns the number of live workspaces.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workspaces)
}

// Library returns the shared catalog.
func (r *Registry) Library() *library.Catalog {
	return r.deps.Library
}

// Profiles returns the shared profile store.
func (r *Registry) Profiles() profile.Store {
	return r.deps.Profiles
}

// Dashboard loads the student's home view.
func (r *Registry) Dashboard(ctx context.Context, id identity.Identity) (dashboard.Dashboard, error) {
	if id.StudentID == "" {
		return dashboard.Dashboard{}, ErrSignedOut
	}
	return r.dashboard.Load(ctx, id)
}
