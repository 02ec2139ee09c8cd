package inference

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const chatSchemaJSON = `{
  "type": "object",
  "required": ["answer"],
  "properties": {
    "answer": {"type": "string"},
    "citations": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["source"],
        "properties": {
          "source": {"type": "string"},
          "page": {"type": ["string", "number", "null"]}
        }
      }
    },
    "detected_language": {"type": ["string", "null"]}
  }
}`

const quizQuestionSchemaJSON = `{
  "type": "object",
  "required": ["q", "options", "correct"],
  "properties": {
    "q": {"type": "string", "minLength": 1},
    "options": {
      "type": "array",
      "minItems": 1,
      "uniqueItems": true,
      "items": {"type": "string"}
    },
    "correct": {"type": "string"}
  }
}`

const assessmentSchemaJSON = `{
  "type": "object",
  "required": ["quiz"],
  "properties": {
    "topic": {"type": ["string", "null"]},
    "flashcards": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["q", "a"],
        "properties": {
          "q": {"type": "string"},
          "a": {"type": "string"}
        }
      }
    },
    "quiz": {
      "oneOf": [
        {"type": "array", "minItems": 1, "items": ` + quizQuestionSchemaJSON + `},
        ` + quizQuestionSchemaJSON + `
      ]
    }
  }
}`

const missionSchemaJSON = `{
  "type": "object",
  "required": ["mission_title", "description", "reward_points"],
  "properties": {
    "mission_title": {"type": "string", "minLength": 1},
    "description": {"type": "string"},
    "reward_points": {"type": "integer", "minimum": 0}
  }
}`

const librarySchemaJSON = `{
  "type": "object",
  "required": ["subjects"],
  "properties": {
    "subjects": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["subject", "chapters"],
        "properties": {
          "subject": {"type": "string", "minLength": 1},
          "chapters": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["id", "title"],
              "properties": {
                "id": {"type": "string", "minLength": 1},
                "title": {"type": "string"},
                "grade": {"type": ["string", "number", "null"]},
                "filename": {"type": ["string", "null"]}
              }
            }
          }
        }
      }
    }
  }
}`

var (
	chatSchema       = mustCompile("chat", chatSchemaJSON)
	assessmentSchema = mustCompile("assessment", assessmentSchemaJSON)
	missionSchema    = mustCompile("mission", missionSchemaJSON)
	librarySchema    = mustCompile("library", librarySchemaJSON)
)

// responseSchema pairs a compiled schema with the endpoint it guards.
type responseSchema struct {
	name   string
	schema *gojsonschema.Schema
}

func mustCompile(name, def string) responseSchema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(def))
	if err != nil {
		panic(fmt.Sprintf("compile %s schema: %v", name, err))
	}
	return responseSchema{name: name, schema: s}
}

// validate checks a raw response body against the schema.
func (rs responseSchema) validate(body []byte) error {
	result, err := rs.schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return &InvalidResponseError{Endpoint: rs.name, Body: body, Err: err}
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return &InvalidResponseError{
		Endpoint: rs.name,
		Body:     body,
		Err:      fmt.Errorf("schema validation failed: %s", strings.Join(msgs, "; ")),
	}
}
