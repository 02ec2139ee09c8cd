// Package inference is the client side of the local inference endpoint that
// answers scoped questions, generates assessments and daily missions, and
// lists the textbook library.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Service is the contract the study core consumes.
type Service interface {
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
	Assessment(ctx context.Context, req AssessmentRequest) (AssessmentResponse, error)
	Mission(ctx context.Context, req MissionRequest) (MissionResponse, error)
	Library(ctx context.Context) (LibraryResponse, error)
}

// ScopeParams narrows a request to a subject or a single chapter file.
// Empty fields are omitted from the payload.
type ScopeParams struct {
	Filename string `json:"filename,omitempty"`
	Subject  string `json:"subject,omitempty"`
	Grade    string `json:"grade,omitempty"`
}

// ChatRequest asks a question within an optional scope.
type ChatRequest struct {
	Query string `json:"query"`
	ScopeParams
}

// Citation points at the textbook page an answer was drawn from.
type Citation struct {
	Source string      `json:"source"`
	Page   LooseString `json:"page"`
}

// ChatResponse is the tutor's answer.
type ChatResponse struct {
	Answer           string     `json:"answer"`
	Citations        []Citation `json:"citations"`
	DetectedLanguage string     `json:"detected_language,omitempty"`
}

// AssessmentRequest asks for flashcards and a quiz on a topic.
type AssessmentRequest struct {
	Query string `json:"query"`
	ScopeParams
}

// Flashcard is a question/answer revision card.
type Flashcard struct {
	Q string `json:"q"`
	A string `json:"a"`
}

// QuizQuestion is one multiple-choice question as sent on the wire.
type QuizQuestion struct {
	Q       string   `json:"q"`
	Options []string `json:"options"`
	Correct string   `json:"correct"`
}

// AssessmentResponse holds a generated revision set.
type AssessmentResponse struct {
	Topic      string         `json:"topic,omitempty"`
	Flashcards []Flashcard    `json:"flashcards"`
	Quiz       []QuizQuestion `json:"quiz"`
}

// UnmarshalJSON accepts "quiz" as either a list or a single question object.
func (r *AssessmentResponse) UnmarshalJSON(data []byte) error {
	var raw struct {
		Topic      string          `json:"topic"`
		Flashcards []Flashcard     `json:"flashcards"`
		Quiz       json.RawMessage `json:"quiz"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.Topic = raw.Topic
	r.Flashcards = raw.Flashcards
	r.Quiz = nil

	quiz := bytes.TrimSpace(raw.Quiz)
	switch {
	case len(quiz) == 0 || bytes.Equal(quiz, []byte("null")):
	case quiz[0] == '{':
		var single QuizQuestion
		if err := json.Unmarshal(quiz, &single); err != nil {
			return fmt.Errorf("decode quiz object: %w", err)
		}
		r.Quiz = []QuizQuestion{single}
	default:
		if err := json.Unmarshal(quiz, &r.Quiz); err != nil {
			return fmt.Errorf("decode quiz list: %w", err)
		}
	}
	return nil
}

// ActivityItem is a recent-activity entry forwarded to mission generation.
type ActivityItem struct {
	Type      string            `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Data      map[string]string `json:"data,omitempty"`
}

// MissionRequest summarises a student's standing for mission generation.
type MissionRequest struct {
	DisplayName     string         `json:"displayName"`
	Readiness       int            `json:"readiness"`
	SubjectsMastery map[string]int `json:"subjects_mastery"`
	RecentActivity  []ActivityItem `json:"recent_activity"`
	Persona         string         `json:"persona"`
}

// MissionResponse is the generated daily mission.
type MissionResponse struct {
	MissionTitle string `json:"mission_title"`
	Description  string `json:"description"`
	RewardPoints int    `json:"reward_points"`
}

// LibraryChapter is one indexed textbook chapter.
type LibraryChapter struct {
	ID       string      `json:"id"`
	Title    string      `json:"title"`
	Grade    LooseString `json:"grade"`
	Filename string      `json:"filename"`
}

// LibrarySubject groups chapters by subject.
type LibrarySubject struct {
	Subject  string           `json:"subject"`
	Chapters []LibraryChapter `json:"chapters"`
}

// LibraryResponse lists every indexed chapter.
type LibraryResponse struct {
	Subjects []LibrarySubject `json:"subjects"`
}

// LooseString decodes from a JSON string, number or null. The backend sends
// page numbers and grades either way.
type LooseString string

func (s *LooseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*s = ""
		return nil
	case data[0] == '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = LooseString(v)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("expected string or number, got %s", data)
		}
		*s = LooseString(n.String())
		return nil
	}
}

// Int parses the value as an integer; ok is false when it is not numeric.
func (s LooseString) Int() (int, bool) {
	n, err := strconv.Atoi(string(s))
	if err != nil {
		return 0, false
	}
	return n, true
}
