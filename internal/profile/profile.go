// Package profile stores per-student onboarding and study preferences.
package profile

import (
	"context"
	"errors"
	"fmt"
)

// Personas a student can pick during onboarding.
const (
	PersonaSprinter  = "sprinter"
	PersonaArchitect = "architect"
	PersonaAnalyst   = "analyst"
)

const (
	MinGrade = 5
	MaxGrade = 10
)

// ErrInvalidProfile wraps every validation failure.
var ErrInvalidProfile = errors.New("invalid profile")

// Profile is a student's stored preferences.
type Profile struct {
	DisplayName      string `json:"display_name"`
	AcademicBoard    string `json:"academic_board"`
	PrimaryGoal      string `json:"primary_goal"`
	StudyPersona     string `json:"study_persona"`
	Grade            int    `json:"grade"`
	DailyGoalMinutes int    `json:"daily_goal_minutes"`
	ProfileCompleted bool   `json:"profile_completed"`
}

// Default returns the onboarding defaults.
func Default() Profile {
	return Profile{
		AcademicBoard:    "CBSE",
		PrimaryGoal:      "Board Exams",
		StudyPersona:     PersonaArchitect,
		Grade:            10,
		DailyGoalMinutes: 30,
	}
}

// Patch is a partial update; nil fields are left unchanged.
type Patch struct {
	DisplayName      *string `json:"display_name,omitempty"`
	AcademicBoard    *string `json:"academic_board,omitempty"`
	PrimaryGoal      *string `json:"primary_goal,omitempty"`
	StudyPersona     *string `json:"study_persona,omitempty"`
	Grade            *int    `json:"grade,omitempty"`
	DailyGoalMinutes *int    `json:"daily_goal_minutes,omitempty"`
	ProfileCompleted *bool   `json:"profile_completed,omitempty"`
}

// Validate checks the fields the patch sets.
func (p Patch) Validate() error {
	if p.Grade != nil && (*p.Grade < MinGrade || *p.Grade > MaxGrade) {
		return fmt.Errorf("%w: grade must be between %d and %d, got %d", ErrInvalidProfile, MinGrade, MaxGrade, *p.Grade)
	}
	if p.StudyPersona != nil {
		switch *p.StudyPersona {
		case PersonaSprinter, PersonaArchitect, PersonaAnalyst:
		default:
			return fmt.Errorf("%w: unknown study persona %q", ErrInvalidProfile, *p.StudyPersona)
		}
	}
	if p.DailyGoalMinutes != nil && *p.DailyGoalMinutes <= 0 {
		return fmt.Errorf("%w: daily goal must be positive, got %d", ErrInvalidProfile, *p.DailyGoalMinutes)
	}
	return nil
}

// Apply returns p merged over base.
func (p Patch) Apply(base Profile) Profile {
	if p.DisplayName != nil {
		base.DisplayName = *p.DisplayName
	}
	if p.AcademicBoard != nil {
		base.AcademicBoard = *p.AcademicBoard
	}
	if p.PrimaryGoal != nil {
		base.PrimaryGoal = *p.PrimaryGoal
	}
	if p.StudyPersona != nil {
		base.StudyPersona = *p.StudyPersona
	}
	if p.Grade != nil {
		base.Grade = *p.Grade
	}
	if p.DailyGoalMinutes != nil {
		base.DailyGoalMinutes = *p.DailyGoalMinutes
	}
	if p.ProfileCompleted != nil {
		base.ProfileCompleted = *p.ProfileCompleted
	}
	return base
}

// Store reads and merge-writes profiles.
type Store interface {
	// Read returns the stored profile and whether one exists. Fields never
	// written carry the store's defaults.
	Read(ctx context.Context, studentID string) (Profile, bool, error)
	Write(ctx context.Context, studentID string, patch Patch) error
	// Defaults is the profile a student starts from.
	Defaults() Profile
}

// Load reads a profile, falling back to the store's defaults when none is
// stored.
func Load(ctx context.Context, s Store, studentID string) (Profile, error) {
	p, ok, err := s.Read(ctx, studentID)
	if err != nil {
		return Profile{}, err
	}
	if !ok {
		return s.Defaults(), nil
	}
	return p, nil
}

// Configured returns Default with the deployment's grade and daily goal.
// Out-of-range values are rejected.
func Configured(grade, dailyGoalMinutes int) (Profile, error) {
	p := Default()
	patch := Patch{Grade: &grade, DailyGoalMinutes: &dailyGoalMinutes}
	if err := patch.Validate(); err != nil {
		return Profile{}, err
	}
	return patch.Apply(p), nil
}
