// Package progress folds activity counts into readiness, daily dedication and
// subject mastery. Everything here is derived on demand; nothing is stored.
package progress

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/p-n-ai/pai-study/internal/activity"
	"github.com/p-n-ai/pai-study/internal/profile"
)

const (
	DefaultBaseline = 60

	maxLessonPoints = 20
	maxDoubtPoints  = 10
	maxQuizPoints   = 10

	minutesPerDoubt = 5
	minutesPerQuiz  = 10

	masteryFloor = 40
	masterySpan  = 40
)

// ErrNonPositiveGoal is returned by DailyProgress for a goal of zero or less.
var ErrNonPositiveGoal = errors.New("daily goal must be positive")

// Snapshot is a student's derived standing at one point in time.
type Snapshot struct {
	Readiness        int             `json:"readiness"`
	DailyProgressPct int             `json:"daily_progress_pct"`
	DailyMinutes     int             `json:"daily_minutes"`
	DailyGoalMinutes int             `json:"daily_goal_minutes"`
	SubjectMastery   map[string]int  `json:"subject_mastery"`
	Label            string          `json:"label"`
	Rank             string          `json:"rank"`
	Counts           activity.Counts `json:"-"`
}

// ComputeReadiness scores counts on top of baseline, capped at 100.
// Negative counts are treated as zero and baseline is held to [0,100].
func ComputeReadiness(c activity.Counts, baseline int) int {
	lessons := capped(c.LessonsMastered, 5, maxLessonPoints)
	doubts := capped(c.DoubtsAsked, 1, maxDoubtPoints)
	quizzes := capped(c.QuizzesCompleted, 2, maxQuizPoints)
	return min(100, min(max(baseline, 0), 100)+lessons+doubts+quizzes)
}

// DailyProgress estimates minutes studied and the percentage of goal reached.
func DailyProgress(c activity.Counts, goal int) (minutes, pct int, err error) {
	if goal <= 0 {
		return 0, 0, fmt.Errorf("%w: %d", ErrNonPositiveGoal, goal)
	}
	minutes = capped(c.DoubtsAsked, minutesPerDoubt, goal)
	minutes += capped(c.QuizzesCompleted, minutesPerQuiz, goal-minutes)
	pct = int(math.Round(100 * float64(minutes) / float64(goal)))
	return minutes, pct, nil
}

// capped returns min(limit, count*weight) for a non-negative limit without
// overflowing on large counts.
func capped(count, weight, limit int) int {
	if count <= 0 || limit <= 0 {
		return 0
	}
	if count > limit/weight {
		return limit
	}
	return min(limit, count*weight)
}

// SubjectMastery is a stable pseudo-score in [40,79] for a student and subject.
func SubjectMastery(studentID, subject string) int {
	h := xxhash.Sum64String(studentID + "\x00" + subject)
	return masteryFloor + int(h%masterySpan)
}

// Label describes readiness in words.
func Label(readiness int) string {
	switch {
	case readiness > 80:
		return "Excellent"
	case readiness > 70:
		return "On Track"
	default:
		return "Needs Review"
	}
}

// Rank is the badge shown next to the student's name.
func Rank(readiness int) string {
	switch {
	case readiness > 85:
		return "Scholar"
	case readiness > 70:
		return "Explorer"
	default:
		return "Novice"
	}
}

// Compute builds a snapshot from already-loaded inputs.
func Compute(studentID string, c activity.Counts, p profile.Profile, subjects []string, baseline int) (Snapshot, error) {
	minutes, pct, err := DailyProgress(c, p.DailyGoalMinutes)
	if err != nil {
		return Snapshot{}, err
	}

	readiness := ComputeReadiness(c, baseline)
	mastery := make(map[string]int, len(subjects))
	for _, s := range subjects {
		mastery[s] = SubjectMastery(studentID, s)
	}

	return Snapshot{
		Readiness:        readiness,
		DailyProgressPct: pct,
		DailyMinutes:     minutes,
		DailyGoalMinutes: p.DailyGoalMinutes,
		SubjectMastery:   mastery,
		Label:            Label(readiness),
		Rank:             Rank(readiness),
		Counts:           c,
	}, nil
}

// Aggregator reads the activity log and profile store at call time.
type Aggregator struct {
	Log      activity.Log
	Profiles profile.Store
	Baseline int
}

// Snapshot computes the student's current standing.
func (a *Aggregator) Snapshot(ctx context.Context, studentID string, subjects []string) (Snapshot, profile.Profile, error) {
	counts, err := a.Log.Counts(ctx, studentID)
	if err != nil {
		return Snapshot{}, profile.Profile{}, fmt.Errorf("reading activity counts: %w", err)
	}
	p, err := profile.Load(ctx, a.Profiles, studentID)
	if err != nil {
		return Snapshot{}, profile.Profile{}, fmt.Errorf("reading profile: %w", err)
	}

	snap, err := Compute(studentID, counts, p, subjects, a.Baseline)
	if err != nil {
		return Snapshot{}, profile.Profile{}, err
	}
	return snap, p, nil
}
