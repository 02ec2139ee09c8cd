// Package dashboard assembles the student home view: progress, recent
// activity and a freshly generated mission.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/p-n-ai/pai-study/internal/activity"
	"github.com/p-n-ai/pai-study/internal/identity"
	"github.com/p-n-ai/pai-study/internal/mission"
	"github.com/p-n-ai/pai-study/internal/profile"
	"github.com/p-n-ai/pai-study/internal/progress"
)

const defaultRecentLimit = 5

// Dashboard is one load of the home view.
type Dashboard struct {
	StudentID   string            `json:"student_id"`
	DisplayName string            `json:"display_name"`
	Progress    progress.Snapshot `json:"progress"`
	Recent      []activity.Event  `json:"recent_activity"`
	LastLesson  *activity.Event   `json:"last_lesson,omitempty"`
	Mission     *mission.Mission  `json:"mission,omitempty"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// Config holds the dashboard's collaborators.
type Config struct {
	Aggregator  *progress.Aggregator
	Log         activity.Log
	Planner     *mission.Planner
	Subjects    func() []string
	RecentLimit int
}

// Service loads dashboards.
type Service struct {
	agg      *progress.Aggregator
	log      activity.Log
	planner  *mission.Planner
	subjects func() []string
	limit    int
}

func NewService(cfg Config) *Service {
	limit := cfg.RecentLimit
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	subjects := cfg.Subjects
	if subjects == nil {
		subjects = func() []string { return nil }
	}
	return &Service{
		agg:      cfg.Aggregator,
		log:      cfg.Log,
		planner:  cfg.Planner,
		subjects: subjects,
		limit:    limit,
	}
}

// Load computes a snapshot and reads recent activity concurrently, then
// requests exactly one mission. A mission failure leaves Mission nil.
func (s *Service) Load(ctx context.Context, id identity.Identity) (Dashboard, error) {
	var (
		snap   progress.Snapshot
		p      profile.Profile
		recent []activity.Event
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap, p, err = s.agg.Snapshot(gctx, id.StudentID, s.subjects())
		if err != nil {
			return fmt.Errorf("computing progress: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		recent, err = s.log.Recent(gctx, id.StudentID, s.limit)
		if err != nil {
			return fmt.Errorf("reading recent activity: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	if recent == nil {
		recent = []activity.Event{}
	}

	name := p.DisplayName
	if name == "" {
		name = id.DisplayName
	}

	d := Dashboard{
		StudentID:   id.StudentID,
		DisplayName: name,
		Progress:    snap,
		Recent:      recent,
		LastLesson:  lastLesson(recent),
		GeneratedAt: time.Now(),
	}

	m, err := s.planner.Plan(ctx, mission.Request{
		DisplayName: name,
		Persona:     p.StudyPersona,
		Snapshot:    snap,
		Recent:      recent,
	})
	if err != nil {
		slog.Warn("mission unavailable", "student_id", id.StudentID, "error", err)
	} else {
		d.Mission = &m
	}

	return d, nil
}

func lastLesson(recent []activity.Event) *activity.Event {
	for i := range recent {
		if recent[i].Kind == activity.LessonStart {
			e := recent[i]
			return &e
		}
	}
	return nil
}
