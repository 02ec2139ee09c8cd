package inference

import (
	"context"
	"sync"
)

// MockService is a test double for Service. The *Func hooks, when set, take
// precedence over the canned responses.
type MockService struct {
	ChatResponse       ChatResponse
	ChatErr            error
	ChatFunc           func(ctx context.Context, req ChatRequest) (ChatResponse, error)
	AssessmentResponse AssessmentResponse
	AssessmentErr      error
	AssessmentFunc     func(ctx context.Context, req AssessmentRequest) (AssessmentResponse, error)
	MissionResponse    MissionResponse
	MissionErr         error
	LibraryResponse    LibraryResponse
	LibraryErr         error

	mu                    sync.Mutex
	chatCalls             int
	assessmentCalls       int
	missionCalls          int
	LastChatRequest       *ChatRequest
	LastAssessmentRequest *AssessmentRequest
	LastMissionRequest    *MissionRequest
}

// NewMockService creates a MockService that answers chat with the given text.
func NewMockService(answer string) *MockService {
	return &MockService{ChatResponse: ChatResponse{Answer: answer}}
}

func (m *MockService) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	m.mu.Lock()
	m.chatCalls++
	m.LastChatRequest = &req
	fn := m.ChatFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if m.ChatErr != nil {
		return ChatResponse{}, m.ChatErr
	}
	return m.ChatResponse, nil
}

func (m *MockService) Assessment(ctx context.Context, req AssessmentRequest) (AssessmentResponse, error) {
	m.mu.Lock()
	m.assessmentCalls++
	m.LastAssessmentRequest = &req
	fn := m.AssessmentFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if m.AssessmentErr != nil {
		return AssessmentResponse{}, m.AssessmentErr
	}
	return m.AssessmentResponse, nil
}

func (m *MockService) Mission(_ context.Context, req MissionRequest) (MissionResponse, error) {
	m.mu.Lock()
	m.missionCalls++
	m.LastMissionRequest = &req
	m.mu.Unlock()

	if m.MissionErr != nil {
		return MissionResponse{}, m.MissionErr
	}
	return m.MissionResponse, nil
}

func (m *MockService) Library(_ context.Context) (LibraryResponse, error) {
	if m.LibraryErr != nil {
		return LibraryResponse{}, m.LibraryErr
	}
	return m.LibraryResponse, nil
}

// ChatCalls returns how many times Chat was called.
func (m *MockService) ChatCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.chatCalls
}

// AssessmentCalls returns how many times Assessment was called.
func (m *MockService) AssessmentCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.assessmentCalls
}

// MissionCalls returns how many times Mission was called.
func (m *MockService) MissionCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.missionCalls
}
