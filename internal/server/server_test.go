package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/archgraph/internal/config"
	"github.com/agenthands/archgraph/internal/core"
	"github.com/agenthands/archgraph/internal/driver"
	"github.com/agenthands/archgraph/internal/llm"
)

type stubDriver struct {
	queries []string
	result  neo4j.EagerResult
}

func (d *stubDriver) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	d.queries = append(d.queries, query)
	return d.result, nil
}

func (d *stubDriver) BuildIndices(ctx context.Context) error { return nil }
func (d *stubDriver) Close(ctx context.Context) error        { return nil }

func newTestRouter(d driver.GraphDriver, client llm.LLMClient) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := config.Default()
	ing := core.NewIngestor(d, client, cfg, nil)
	return NewServer(ing, cfg, nil).SetupRouter()
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r := newTestRouter(nil, &llm.MockLLMClient{})

	w := do(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "ok"}`, w.Body.String())
}

func TestRepairHandler(t *testing.T) {
	r := newTestRouter(nil, &llm.MockLLMClient{})

	t.Run("repairs a defective response", func(t *testing.T) {
		body, _ := json.Marshal(RepairRequest{Raw: `noise {'name': 'Orders', "exposes": ["REST",],`})
		w := do(r, http.MethodPost, "/repair", string(body))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"value": {"name": "Orders", "exposes": ["REST"]}}`, w.Body.String())
	})

	t.Run("reports unrepairable input", func(t *testing.T) {
		body, _ := json.Marshal(RepairRequest{Raw: "no structure here"})
		w := do(r, http.MethodPost, "/repair", string(body))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		var resp map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "NoStructuredBlock", resp["reason"])
	})

	t.Run("rejects malformed request", func(t *testing.T) {
		w := do(r, http.MethodPost, "/repair", "{")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestIngestHandler(t *testing.T) {
	response := `{"actors": ["Customer"], "microservices": [{"name": "Orders", "db": "OrdersDB"}], "events": [{"from": "Customer", "to": "Orders", "type": "REST"}]}`

	t.Run("returns graph and report", func(t *testing.T) {
		client := &llm.MockLLMClient{Response: response}
		r := newTestRouter(nil, client)

		w := do(r, http.MethodPost, "/ingest", `{"text": "one two three", "chunk_words": 2}`)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			RunID string `json:"run_id"`
			Graph struct {
				Actors []struct {
					Name string `json:"name"`
					Type string `json:"type"`
				} `json:"actors"`
				Databases []struct {
					Name   string   `json:"name"`
					UsedBy []string `json:"used_by"`
				} `json:"databases"`
			} `json:"graph"`
			Report    core.Report `json:"report"`
			Persisted bool        `json:"persisted"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

		assert.NotEmpty(t, resp.RunID)
		assert.Equal(t, resp.RunID, resp.Report.RunID)
		assert.Equal(t, 2, resp.Report.Merged)
		assert.Len(t, resp.Graph.Actors, 1)
		assert.Equal(t, "External", resp.Graph.Actors[0].Type)
		require.Len(t, resp.Graph.Databases, 1)
		assert.Equal(t, []string{"Orders"}, resp.Graph.Databases[0].UsedBy)
		assert.False(t, resp.Persisted)
		assert.Equal(t, 2, client.Calls())
	})

	t.Run("empty text", func(t *testing.T) {
		r := newTestRouter(nil, &llm.MockLLMClient{Response: response})
		w := do(r, http.MethodPost, "/ingest", `{"text": "  "}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("generator failure", func(t *testing.T) {
		r := newTestRouter(nil, &llm.MockLLMClient{Err: errors.New("quota exceeded")})
		w := do(r, http.MethodPost, "/ingest", `{"text": "orders service"}`)
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Contains(t, w.Body.String(), "quota exceeded")
	})

	t.Run("persist without a store", func(t *testing.T) {
		r := newTestRouter(nil, &llm.MockLLMClient{Response: response})
		w := do(r, http.MethodPost, "/ingest", `{"text": "orders service", "persist": true}`)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("persist with a store", func(t *testing.T) {
		d := &stubDriver{}
		r := newTestRouter(d, &llm.MockLLMClient{Response: response})
		w := do(r, http.MethodPost, "/ingest", `{"text": "orders service", "persist": true}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, d.queries, driver.SaveServiceQuery)
		assert.Contains(t, d.queries, driver.SaveUsesEdgeQuery)
		assert.Contains(t, d.queries, driver.SaveInteractionQuery)
	})
}

func TestRunHandlers(t *testing.T) {
	d := &stubDriver{
		result: neo4j.EagerResult{
			Records: []*neo4j.Record{
				{Keys: []string{"name"}, Values: []any{"Orders"}},
			},
		},
	}
	r := newTestRouter(d, &llm.MockLLMClient{})

	w := do(r, http.MethodGet, "/runs/run-1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"run_id": "run-1", "components": ["Orders"]}`, w.Body.String())

	w = do(r, http.MethodDelete, "/runs/run-1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, d.queries, driver.DeleteRunQuery)

	r = newTestRouter(nil, &llm.MockLLMClient{})
	w = do(r, http.MethodGet, "/runs/run-1", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
