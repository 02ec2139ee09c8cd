// Package quiz runs generated multiple-choice quizzes. A quiz is scored once
// on finalize and frozen afterwards.
package quiz

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/p-n-ai/pai-study/internal/inference"
)

var (
	ErrNoTopic       = errors.New("no topic, chapter or subject to quiz on")
	ErrBusy          = errors.New("a quiz is already being generated")
	ErrStale         = errors.New("scope changed before the quiz arrived")
	ErrNoQuiz        = errors.New("no quiz in progress")
	ErrFinalized     = errors.New("quiz is already finalized")
	ErrUnknownItem   = errors.New("question index out of range")
	ErrUnknownOption = errors.New("option is not one of the question's choices")
	ErrIncomplete    = errors.New("every question must be answered before finalizing")
	ErrMalformedQuiz = errors.New("malformed quiz")
)

// Item is one multiple-choice question.
type Item struct {
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
	Correct string   `json:"correct"`
}

// Flashcard is a revision card delivered with the quiz.
type Flashcard struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Quiz is a snapshot of the session. Score is meaningful only when Finalized.
type Quiz struct {
	ID         string         `json:"id"`
	Topic      string         `json:"topic"`
	Items      []Item         `json:"items"`
	Flashcards []Flashcard    `json:"flashcards"`
	Answers    map[int]string `json:"answers"`
	Finalized  bool           `json:"finalized"`
	Score      int            `json:"score"`
}

func (q *Quiz) clone() Quiz {
	out := *q
	out.Items = make([]Item, len(q.Items))
	for i, it := range q.Items {
		out.Items[i] = Item{Prompt: it.Prompt, Options: append([]string(nil), it.Options...), Correct: it.Correct}
	}
	out.Flashcards = append([]Flashcard(nil), q.Flashcards...)
	out.Answers = make(map[int]string, len(q.Answers))
	for k, v := range q.Answers {
		out.Answers[k] = v
	}
	return out
}

func (q *Quiz) selectAnswer(index int, option string) error {
	if q.Finalized {
		return ErrFinalized
	}
	if index < 0 || index >= len(q.Items) {
		return fmt.Errorf("%w: %d", ErrUnknownItem, index)
	}
	for _, o := range q.Items[index].Options {
		if o == option {
			q.Answers[index] = option
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownOption, option)
}

func (q *Quiz) finalize() (int, error) {
	if q.Finalized {
		return q.Score, nil
	}
	correct := 0
	for i, it := range q.Items {
		answer, ok := q.Answers[i]
		if !ok {
			return 0, fmt.Errorf("%w: question %d unanswered", ErrIncomplete, i)
		}
		if answer == it.Correct {
			correct++
		}
	}
	q.Score = int(math.Round(100 * float64(correct) / float64(len(q.Items))))
	q.Finalized = true
	return q.Score, nil
}

// fromAssessment validates a generated assessment and builds a fresh quiz.
func fromAssessment(topic string, resp inference.AssessmentResponse) (*Quiz, error) {
	if len(resp.Quiz) == 0 {
		return nil, fmt.Errorf("%w: no questions", ErrMalformedQuiz)
	}

	q := &Quiz{ID: uuid.NewString(), Topic: topic, Answers: make(map[int]string)}
	for i, wire := range resp.Quiz {
		if len(wire.Options) == 0 {
			return nil, fmt.Errorf("%w: question %d has no options", ErrMalformedQuiz, i)
		}
		seen := make(map[string]bool, len(wire.Options))
		for _, o := range wire.Options {
			if seen[o] {
				return nil, fmt.Errorf("%w: question %d repeats option %q", ErrMalformedQuiz, i, o)
			}
			seen[o] = true
		}
		if !seen[wire.Correct] {
			return nil, fmt.Errorf("%w: question %d answer %q is not an option", ErrMalformedQuiz, i, wire.Correct)
		}
		q.Items = append(q.Items, Item{
			Prompt:  wire.Q,
			Options: append([]string(nil), wire.Options...),
			Correct: wire.Correct,
		})
	}
	for _, fc := range resp.Flashcards {
		q.Flashcards = append(q.Flashcards, Flashcard{Question: fc.Q, Answer: fc.A})
	}
	return q, nil
}
