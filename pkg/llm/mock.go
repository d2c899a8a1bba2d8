package llm

import (
	"context"
	"fmt"
	"sync"
)

// MockClient provides a controllable Client implementation for testing.
// Errors are consumed before responses, so a script of two errors followed
// by one response models "fail twice, then succeed".
type MockClient struct {
	mu            sync.Mutex
	responses     []CompletionResponse
	responseIndex int
	errors        []error
	errorIndex    int
	calls         int
}

// NewMockClient creates a mock client with predefined responses and errors.
func NewMockClient(responses []CompletionResponse, errors []error) *MockClient {
	return &MockClient{responses: responses, errors: errors}
}

// NewMockClientText creates a mock client that returns the given texts in order.
func NewMockClientText(texts ...string) *MockClient {
	responses := make([]CompletionResponse, len(texts))
	for i, text := range texts {
		responses[i] = CompletionResponse{Content: text}
	}
	return &MockClient{responses: responses}
}

// Complete returns the next scripted error or response.
func (m *MockClient) Complete(_ context.Context, _ CompletionRequest) (CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if m.errorIndex < len(m.errors) && m.errors[m.errorIndex] != nil {
		err := m.errors[m.errorIndex]
		m.errorIndex++
		return CompletionResponse{}, err
	}

	if m.responseIndex >= len(m.responses) {
		return CompletionResponse{}, fmt.Errorf("mock client: no more responses")
	}

	resp := m.responses[m.responseIndex]
	m.responseIndex++
	return resp, nil
}

// ModelName returns a fixed name for the mock.
func (m *MockClient) ModelName() string {
	return "mock"
}

// Calls returns how many times Complete was invoked.
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
