package profile_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/p-n-ai/pai-study/internal/platform/database/dbtest"
	"github.com/p-n-ai/pai-study/internal/profile"
)

func ptr[T any](v T) *T { return &v }

func TestDefault(t *testing.T) {
	p := profile.Default()
	if p.AcademicBoard != "CBSE" {
		t.Errorf("AcademicBoard = %q, want CBSE", p.AcademicBoard)
	}
	if p.PrimaryGoal != "Board Exams" {
		t.Errorf("PrimaryGoal = %q, want Board Exams", p.PrimaryGoal)
	}
	if p.StudyPersona != profile.PersonaArchitect {
		t.Errorf("StudyPersona = %q, want architect", p.StudyPersona)
	}
	if p.Grade != 10 || p.DailyGoalMinutes != 30 {
		t.Errorf("Grade/DailyGoalMinutes = %d/%d, want 10/30", p.Grade, p.DailyGoalMinutes)
	}
	if p.ProfileCompleted {
		t.Error("ProfileCompleted should default to false")
	}
}

func TestPatch_Validate(t *testing.T) {
	tests := []struct {
		name    string
		patch   profile.Patch
		wantErr bool
	}{
		{"empty", profile.Patch{}, false},
		{"grade 5", profile.Patch{Grade: ptr(5)}, false},
		{"grade 10", profile.Patch{Grade: ptr(10)}, false},
		{"grade 4", profile.Patch{Grade: ptr(4)}, true},
		{"grade 11", profile.Patch{Grade: ptr(11)}, true},
		{"sprinter", profile.Patch{StudyPersona: ptr("sprinter")}, false},
		{"analyst", profile.Patch{StudyPersona: ptr("analyst")}, false},
		{"unknown persona", profile.Patch{StudyPersona: ptr("explorer")}, true},
		{"zero goal", profile.Patch{DailyGoalMinutes: ptr(0)}, true},
		{"positive goal", profile.Patch{DailyGoalMinutes: ptr(45)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.patch.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, profile.ErrInvalidProfile) {
				t.Errorf("Validate() error = %v, want ErrInvalidProfile", err)
			}
		})
	}
}

// exerciseStore runs the behavior every Store adapter must share.
func exerciseStore(t *testing.T, s profile.Store) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := s.Read(ctx, "s1"); err != nil || ok {
		t.Fatalf("Read(unknown) = ok %v, err %v; want not found", ok, err)
	}

	p, err := profile.Load(ctx, s, "s1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if p != s.Defaults() {
		t.Errorf("Load(unknown) = %+v, want defaults", p)
	}

	if err := s.Write(ctx, "s1", profile.Patch{DisplayName: ptr("Asha"), Grade: ptr(8)}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := s.Write(ctx, "s1", profile.Patch{StudyPersona: ptr("sprinter"), ProfileCompleted: ptr(true)}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, ok, err := s.Read(ctx, "s1")
	if err != nil || !ok {
		t.Fatalf("Read() = ok %v, err %v", ok, err)
	}
	want := profile.Profile{
		DisplayName:      "Asha",
		AcademicBoard:    "CBSE",
		PrimaryGoal:      "Board Exams",
		StudyPersona:     "sprinter",
		Grade:            8,
		DailyGoalMinutes: 30,
		ProfileCompleted: true,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Read() mismatch (-want +got):\n%s", diff)
	}

	err = s.Write(ctx, "s1", profile.Patch{Grade: ptr(12)})
	if !errors.Is(err, profile.ErrInvalidProfile) {
		t.Fatalf("Write(grade 12) error = %v, want ErrInvalidProfile", err)
	}
	got, _, _ = s.Read(ctx, "s1")
	if got.Grade != 8 {
		t.Errorf("Grade after rejected write = %d, want 8", got.Grade)
	}
}

// exerciseConfiguredDefaults checks a store built with non-standard defaults.
func exerciseConfiguredDefaults(t *testing.T, s profile.Store) {
	t.Helper()
	ctx := context.Background()

	p, err := profile.Load(ctx, s, "c1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if p.Grade != 7 || p.DailyGoalMinutes != 45 {
		t.Errorf("Load(unknown) grade/goal = %d/%d, want 7/45", p.Grade, p.DailyGoalMinutes)
	}

	if err := s.Write(ctx, "c1", profile.Patch{DisplayName: ptr("Ravi")}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	got, ok, err := s.Read(ctx, "c1")
	if err != nil || !ok {
		t.Fatalf("Read() = ok %v, err %v", ok, err)
	}
	want := profile.Default()
	want.DisplayName = "Ravi"
	want.Grade = 7
	want.DailyGoalMinutes = 45
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Read() mismatch (-want +got):\n%s", diff)
	}
}

func TestConfigured(t *testing.T) {
	tests := []struct {
		name    string
		grade   int
		goal    int
		wantErr bool
	}{
		{"defaults", 10, 30, false},
		{"lowest grade", 5, 15, false},
		{"grade too low", 4, 30, true},
		{"grade too high", 11, 30, true},
		{"zero goal", 8, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := profile.Configured(tt.grade, tt.goal)
			if tt.wantErr {
				if !errors.Is(err, profile.ErrInvalidProfile) {
					t.Fatalf("Configured() error = %v, want ErrInvalidProfile", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Configured() error = %v", err)
			}
			if p.Grade != tt.grade || p.DailyGoalMinutes != tt.goal || p.AcademicBoard != "CBSE" {
				t.Errorf("Configured() = %+v", p)
			}
		})
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, profile.NewMemoryStore())
}

func TestMemoryStore_ConfiguredDefaults(t *testing.T) {
	defaults, err := profile.Configured(7, 45)
	if err != nil {
		t.Fatalf("Configured() error = %v", err)
	}
	exerciseConfiguredDefaults(t, profile.NewMemoryStore().WithDefaults(defaults))
}

func TestMemoryStore_EmptyStudentID(t *testing.T) {
	if err := profile.NewMemoryStore().Write(context.Background(), "", profile.Patch{}); err == nil {
		t.Fatal("expected error for empty student id")
	}
}

func TestPostgresStore(t *testing.T) {
	pool := dbtest.NewPool(t)
	exerciseStore(t, profile.NewPostgresStore(pool))

	defaults, err := profile.Configured(7, 45)
	if err != nil {
		t.Fatalf("Configured() error = %v", err)
	}
	exerciseConfiguredDefaults(t, profile.NewPostgresStore(pool).WithDefaults(defaults))
}

func TestPostgresStore_NilPool(t *testing.T) {
	s := profile.NewPostgresStore(nil)
	if _, _, err := s.Read(context.Background(), "s1"); err == nil {
		t.Fatal("expected error for nil pool")
	}
	if err := s.Write(context.Background(), "s1", profile.Patch{}); err == nil {
		t.Fatal("expected error for nil pool")
	}
}
