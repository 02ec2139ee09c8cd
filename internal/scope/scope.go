// Package scope tracks what a student is focused on: nothing, a whole
// subject, or a single chapter.
package scope

import (
	"context"
	"strconv"

	"github.com/p-n-ai/pai-study/internal/inference"
	"github.com/p-n-ai/pai-study/internal/library"
)

// Kind is the focus level of a Scope.
type Kind int

const (
	Unscoped Kind = iota
	SubjectWide
	ChapterFocused
)

func (k Kind) String() string {
	switch k {
	case SubjectWide:
		return "subject"
	case ChapterFocused:
		return "chapter"
	default:
		return "unscoped"
	}
}

// Scope is an immutable focus value. The zero value is unscoped.
type Scope struct {
	kind      Kind
	subject   string
	chapterID string
	title     string
	filename  string
	grade     int
}

// None is the unscoped scope.
var None = Scope{}

// Subject scopes to every chapter of a subject.
func Subject(name string) Scope {
	if name == "" {
		return None
	}
	return Scope{kind: SubjectWide, subject: name}
}

// Chapter scopes to a single chapter under its declared subject.
func Chapter(ch library.Chapter) Scope {
	return Scope{
		kind:      ChapterFocused,
		subject:   ch.Subject,
		chapterID: ch.ID,
		title:     ch.Title,
		filename:  ch.Filename,
		grade:     ch.Grade,
	}
}

func (s Scope) Kind() Kind { return s.kind }
func (s Scope) Subject() string { return s.subject }
func (s Scope) ChapterID() string { return s.chapterID }
func (s Scope) Title() string { return s.title }
func (s Scope) Filename() string { return s.filename }
func (s Scope) ChapterGrade() int { return s.grade }
func (s Scope) IsChapter() bool { return s.kind == ChapterFocused }
func (s Scope) IsUnscoped() bool { return s.kind == Unscoped }

// Params returns the inference parameters for this scope at the student's
// grade. Non-positive grades are omitted.
func (s Scope) Params(grade int) inference.ScopeParams {
	var p inference.ScopeParams
	if grade > 0 {
		p.Grade = strconv.Itoa(grade)
	}
	switch s.kind {
	case ChapterFocused:
		p.Filename = s.filename
		p.Subject = s.subject
	case SubjectWide:
		p.Subject = s.subject
	}
	return p
}

// GradeFunc reports the student's current grade for request parameters.
type GradeFunc func(ctx context.Context) int

// FixedGrade always reports n.
func FixedGrade(n int) GradeFunc {
	return func(context.Context) int { return n }
}
