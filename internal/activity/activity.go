// Package activity records what a student does: lessons opened, doubts asked
// and assessments taken. Logs are append-only.
package activity

import (
	"context"
	"errors"
	"time"
)

// Kind is the type of an activity event.
type Kind string

const (
	LessonStart    Kind = "lesson_start"
	DoubtAsked     Kind = "doubt_asked"
	AssessmentDone Kind = "assessment_done"
)

// General is used in payloads when no chapter or subject is in focus.
const General = "General"

// ErrInvalidEvent is returned when an event lacks a student or kind.
var ErrInvalidEvent = errors.New("activity: student_id and kind are required")

// Event is one entry of the activity log.
type Event struct {
	StudentID string            `json:"student_id"`
	Kind      Kind              `json:"type"`
	Payload   map[string]string `json:"data"`
	CreatedAt time.Time         `json:"timestamp"`
}

// Counts summarizes a student's activity for scoring.
type Counts struct {
	LessonsMastered  int
	DoubtsAsked      int
	QuizzesCompleted int
}

// Log is the activity sink. Implementations must be safe for concurrent use.
type Log interface {
	Append(ctx context.Context, e Event) error
	// Recent returns at most limit events, newest first.
	Recent(ctx context.Context, studentID string, limit int) ([]Event, error)
	Counts(ctx context.Context, studentID string) (Counts, error)
}

// NewLessonStart builds a lesson_start event for a chapter.
func NewLessonStart(studentID, title, filename, subject string) Event {
	return Event{
		StudentID: studentID,
		Kind:      LessonStart,
		Payload: map[string]string{
			"title":    title,
			"filename": filename,
			"subject":  subject,
		},
	}
}

// NewDoubtAsked builds a doubt_asked event. Empty chapter or subject fall
// back to General.
func NewDoubtAsked(studentID, query, chapter, subject string) Event {
	return Event{
		StudentID: studentID,
		Kind:      DoubtAsked,
		Payload: map[string]string{
			"query":   query,
			"chapter": orGeneral(chapter),
			"subject": orGeneral(subject),
		},
	}
}

// NewAssessmentDone builds an assessment_done event.
func NewAssessmentDone(studentID, topic, subject, chapter string) Event {
	return Event{
		StudentID: studentID,
		Kind:      AssessmentDone,
		Payload: map[string]string{
			"topic":   topic,
			"subject": subject,
			"chapter": chapter,
		},
	}
}

func orGeneral(s string) string {
	if s == "" {
		return General
	}
	return s
}

func (c *Counts) add(k Kind) {
	switch k {
	case LessonStart:
		c.LessonsMastered++
	case DoubtAsked:
		c.DoubtsAsked++
	case AssessmentDone:
		c.QuizzesCompleted++
	}
}

// prepare validates an event and stamps CreatedAt when unset.
func prepare(e Event) (Event, error) {
	if e.StudentID == "" || e.Kind == "" {
		return Event{}, ErrInvalidEvent
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	if e.Payload == nil {
		e.Payload = map[string]string{}
	}
	return e, nil
}
