package llm

import (
	"context"
	"sync"
)

// MockLLMClient replays Responses in order, then keeps returning Response.
type MockLLMClient struct {
	mu        sync.Mutex
	Response  string
	Responses []string
	Err       error
	Prompts   []string
}

func (m *MockLLMClient) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Prompts = append(m.Prompts, prompt)
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Responses) > 0 {
		resp := m.Responses[0]
		m.Responses = m.Responses[1:]
		return resp, nil
	}
	return m.Response, nil
}

// Calls returns how many prompts the mock has received.
func (m *MockLLMClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}
