package core

import (
	"context"
	"strings"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

type executedQuery struct {
	Query  string
	Params map[string]interface{}
}

type MockDriver struct {
	mu         sync.Mutex
	Executed   []executedQuery
	MockResult neo4j.EagerResult
	Err        error
	Indexed    bool
}

func (m *MockDriver) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Executed = append(m.Executed, executedQuery{Query: query, Params: params})
	if m.Err != nil {
		return neo4j.EagerResult{}, m.Err
	}
	return m.MockResult, nil
}

func (m *MockDriver) BuildIndices(ctx context.Context) error {
	m.Indexed = true
	return nil
}

func (m *MockDriver) Close(ctx context.Context) error {
	return nil
}

// queries returns the params of every executed query equal to q.
func (m *MockDriver) queries(q string) []map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []map[string]interface{}
	for _, e := range m.Executed {
		if e.Query == q {
			out = append(out, e.Params)
		}
	}
	return out
}

// MockLLM answers with the response whose key occurs in the prompt, so
// results do not depend on call order.
type MockLLM struct {
	mu       sync.Mutex
	ByChunk  map[string]string
	Response string
	Errs     map[string]error
	calls    int
}

func (m *MockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	for key, err := range m.Errs {
		if strings.Contains(prompt, key) {
			return "", err
		}
	}
	for key, resp := range m.ByChunk {
		if strings.Contains(prompt, key) {
			return resp, nil
		}
	}
	return m.Response, nil
}
