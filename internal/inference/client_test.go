package inference

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClient_Chat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chat" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "" {
			t.Error("client should not attach an Authorization header")
		}

		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		if req["query"] != "What is photosynthesis?" {
			t.Errorf("query = %v, want What is photosynthesis?", req["query"])
		}
		if req["subject"] != "Science" || req["grade"] != "10" {
			t.Errorf("scope params = %v, want subject Science grade 10", req)
		}
		if _, ok := req["filename"]; ok {
			t.Error("empty filename should be omitted")
		}

		w.Write([]byte(`{
			"answer": "Plants make food using light.",
			"citations": [{"source": "sci10_ch6.pdf", "page": 97}, {"source": "sci10_ch6.pdf", "page": "?"}],
			"detected_language": "EN"
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	resp, err := client.Chat(context.Background(), ChatRequest{
		Query:       "What is photosynthesis?",
		ScopeParams: ScopeParams{Subject: "Science", Grade: "10"},
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if resp.Answer != "Plants make food using light." {
		t.Errorf("Answer = %q", resp.Answer)
	}
	if len(resp.Citations) != 2 {
		t.Fatalf("len(Citations) = %d, want 2", len(resp.Citations))
	}
	if resp.Citations[0].Page != "97" || resp.Citations[1].Page != "?" {
		t.Errorf("pages = %q, %q; want 97, ?", resp.Citations[0].Page, resp.Citations[1].Page)
	}
	if resp.DetectedLanguage != "en" {
		t.Errorf("DetectedLanguage = %q, want en", resp.DetectedLanguage)
	}
}

func TestClient_Chat_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"detail": "index offline"}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL).Chat(context.Background(), ChatRequest{Query: "hi"})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("Chat() error = %v, want *StatusError", err)
	}
	if statusErr.Code != http.StatusInternalServerError {
		t.Errorf("Code = %d, want 500", statusErr.Code)
	}
}

func TestClient_Chat_MalformedPayload(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing answer", `{"citations": []}`},
		{"answer not string", `{"answer": 42}`},
		{"citation without source", `{"answer": "x", "citations": [{"page": 1}]}`},
		{"not json", `<html>oops</html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewClient(server.URL).Chat(context.Background(), ChatRequest{Query: "hi"})
			var invalid *InvalidResponseError
			if !errors.As(err, &invalid) {
				t.Fatalf("Chat() error = %v, want *InvalidResponseError", err)
			}
		})
	}
}

func TestClient_Assessment(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantItems int
	}{
		{
			name: "quiz list",
			body: `{"flashcards": [{"q": "Q1", "a": "A1"}],
				"quiz": [
					{"q": "Which?", "options": ["A", "B"], "correct": "A"},
					{"q": "Other?", "options": ["C", "D"], "correct": "D"}
				]}`,
			wantItems: 2,
		},
		{
			name: "single quiz object",
			body: `{"topic": "Light", "flashcards": [],
				"quiz": {"q": "True about light?", "options": ["Option A", "Option B", "Option C", "Option D"], "correct": "Option A"}}`,
			wantItems: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/assessment" {
					t.Errorf("unexpected path: %s", r.URL.Path)
				}
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			resp, err := NewClient(server.URL).Assessment(context.Background(), AssessmentRequest{Query: "Light"})
			if err != nil {
				t.Fatalf("Assessment() error = %v", err)
			}
			if len(resp.Quiz) != tt.wantItems {
				t.Errorf("len(Quiz) = %d, want %d", len(resp.Quiz), tt.wantItems)
			}
		})
	}
}

func TestClient_Assessment_RejectsDuplicateOptions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"quiz": [{"q": "Dup?", "options": ["A", "A"], "correct": "A"}]}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL).Assessment(context.Background(), AssessmentRequest{Query: "x"})
	if err == nil {
		t.Fatal("Assessment() should reject duplicate options")
	}
}

func TestClient_Mission(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req MissionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		if req.Persona != "sprinter" || req.Readiness != 75 {
			t.Errorf("request = %+v", req)
		}
		w.Write([]byte(`{"mission_title": "Light Sprint", "description": "Clear 3 doubts", "reward_points": 50}`))
	}))
	defer server.Close()

	resp, err := NewClient(server.URL).Mission(context.Background(), MissionRequest{
		DisplayName: "Asha",
		Readiness:   75,
		Persona:     "sprinter",
	})
	if err != nil {
		t.Fatalf("Mission() error = %v", err)
	}
	if resp.MissionTitle != "Light Sprint" || resp.RewardPoints != 50 {
		t.Errorf("Mission() = %+v", resp)
	}
}

func TestClient_Library(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/library" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"subjects": [{"subject": "Science", "chapters": [
			{"id": "sci10_ch6.json", "title": "Life Processes", "grade": "10", "filename": "sci10_ch6.pdf"},
			{"id": "sci9_ch1.json", "title": "Matter", "grade": 9, "filename": null}
		]}]}`))
	}))
	defer server.Close()

	resp, err := NewClient(server.URL + "/").Library(context.Background())
	if err != nil {
		t.Fatalf("Library() error = %v", err)
	}
	if len(resp.Subjects) != 1 || len(resp.Subjects[0].Chapters) != 2 {
		t.Fatalf("Library() = %+v", resp)
	}
	if g, ok := resp.Subjects[0].Chapters[1].Grade.Int(); !ok || g != 9 {
		t.Errorf("Grade = %v, %v; want 9", g, ok)
	}
}

func TestClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"answer": "late"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, WithTimeout(20*time.Millisecond))
	if _, err := client.Chat(context.Background(), ChatRequest{Query: "hi"}); err == nil {
		t.Fatal("Chat() should fail when the timeout elapses")
	}
}

func TestClient_HealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantErr    bool
	}{
		{"healthy", http.StatusOK, false},
		{"unhealthy", http.StatusServiceUnavailable, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			}))
			defer server.Close()

			err := NewClient(server.URL).HealthCheck(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("HealthCheck() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNormalizeLanguage(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"en", "en"},
		{" HI ", "hi"},
		{"zh-cn", "zh-CN"},
		{"not a tag!", "not a tag!"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := normalizeLanguage(tt.in); got != tt.want {
				t.Errorf("normalizeLanguage(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
