package llm

import (
	"context"
	"sync"
)

// MockClient is a configurable Client for tests.
type MockClient struct {
	GenerateFunc func(ctx context.Context, prompt string) (string, error)
	ModelsFunc   func(ctx context.Context) ([]string, error)

	mu            sync.Mutex
	generateCalls int
	prompts       []string
}

// Generate records the call and delegates to GenerateFunc.
func (m *MockClient) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.generateCalls++
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt)
	}
	return "", nil
}

// Models delegates to ModelsFunc, defaulting to an empty listing.
func (m *MockClient) Models(ctx context.Context) ([]string, error) {
	if m.ModelsFunc != nil {
		return m.ModelsFunc(ctx)
	}
	return nil, nil
}

// GenerateCalls returns how many times Generate was invoked.
func (m *MockClient) GenerateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generateCalls
}

// Prompts returns a copy of every prompt Generate received.
func (m *MockClient) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}
