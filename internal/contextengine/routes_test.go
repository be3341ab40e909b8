package contextengine

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/context-store/internal/storage"
)

func setupRouter(t *testing.T) (http.Handler, *Service) {
	t.Helper()
	log, _ := test.NewNullLogger()
	svc := NewService(storage.NewMemoryBackend(storage.MemoryConfig{}), Config{}, log)
	r := chi.NewRouter()
	RegisterRoutes(r, svc)
	return r, svc
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func ingestVia(t *testing.T, h http.Handler, body string) string {
	t.Helper()
	w := do(t, h, http.MethodPost, "/api/contexts", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.NotEmpty(t, resp["id"])
	return resp["id"]
}

func TestIngestAndRetrieveRoute(t *testing.T) {
	h, _ := setupRouter(t)
	id := ingestVia(t, h, `{"type":"code_example","content":"fn f() {}","metadata":{"title":"F","tags":["token"],"relevanceScore":0.9,"contractType":"token"}}`)

	w := do(t, h, http.MethodGet, "/api/contexts/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var got storage.ContextPayload
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "token", got.Metadata.ContractType)
	assert.Equal(t, 0.9, got.Metadata.RelevanceScore)
}

func TestErrorStatusMapping(t *testing.T) {
	h, _ := setupRouter(t)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   int
	}{
		{"malformed json", http.MethodPost, "/api/contexts", `{`, http.StatusBadRequest},
		{"validation", http.MethodPost, "/api/contexts", `{"type":"poem","metadata":{"title":"x"}}`, http.StatusBadRequest},
		{"missing get", http.MethodGet, "/api/contexts/nope", "", http.StatusNotFound},
		{"missing patch", http.MethodPatch, "/api/contexts/nope", `{"content":"x"}`, http.StatusNotFound},
		{"missing delete", http.MethodDelete, "/api/contexts/nope", "", http.StatusNotFound},
		{"missing similar", http.MethodGet, "/api/contexts/nope/similar", "", http.StatusNotFound},
		{"bad limit", http.MethodGet, "/api/contexts?limit=abc", "", http.StatusBadRequest},
		{"unknown type filter", http.MethodGet, "/api/contexts?types=poem", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())

			var resp map[string]string
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.NotEmpty(t, resp["error"])
		})
	}
}

func TestStorageErrorIs503(t *testing.T) {
	log, _ := test.NewNullLogger()
	svc := NewService(storage.NewMemoryBackend(storage.MemoryConfig{MaxRecords: 1}), Config{}, log)
	r := chi.NewRouter()
	RegisterRoutes(r, svc)

	ingestVia(t, r, `{"type":"documentation","metadata":{"title":"one"}}`)
	w := do(t, r, http.MethodPost, "/api/contexts", `{"type":"documentation","metadata":{"title":"two"}}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestQueryRoute(t *testing.T) {
	h, _ := setupRouter(t)
	first := ingestVia(t, h, `{"type":"code_example","content":"a","metadata":{"title":"A","tags":["token","transfer"],"relevanceScore":0.9}}`)
	second := ingestVia(t, h, `{"type":"code_example","content":"b","metadata":{"title":"B","tags":["token"],"relevanceScore":0.5}}`)
	ingestVia(t, h, `{"type":"documentation","content":"c","metadata":{"title":"C","tags":["nft"],"relevanceScore":1}}`)

	w := do(t, h, http.MethodGet, "/api/contexts?tags=token", "")
	require.Equal(t, http.StatusOK, w.Code)
	var res storage.QueryResult
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.Equal(t, 2, res.Total)
	require.Len(t, res.Results, 2)
	assert.Equal(t, first, res.Results[0].ID)
	assert.Equal(t, second, res.Results[1].ID)

	w = do(t, h, http.MethodGet, "/api/contexts?types=code_example,documentation&limit=1&offset=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.Equal(t, 3, res.Total)
	require.Len(t, res.Results, 1)
	assert.Equal(t, first, res.Results[0].ID)

	w = do(t, h, http.MethodGet, "/api/contexts?q=transfer", "")
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.Equal(t, 1, res.Total)

	w = do(t, h, http.MethodGet, "/api/contexts/count?types=code_example", "")
	require.Equal(t, http.StatusOK, w.Code)
	var count map[string]int
	require.NoError(t, json.NewDecoder(w.Body).Decode(&count))
	assert.Equal(t, 2, count["count"])

	w = do(t, h, http.MethodGet, "/api/contexts/count", "")
	require.NoError(t, json.NewDecoder(w.Body).Decode(&count))
	assert.Equal(t, 3, count["count"])
}

func TestBatchRoute(t *testing.T) {
	h, _ := setupRouter(t)

	w := do(t, h, http.MethodPost, "/api/contexts/batch", `{"contexts":[
		{"type":"documentation","metadata":{"title":"a"}},
		{"type":"documentation","metadata":{"title":"b"}},
		{"type":"bogus","metadata":{"title":"c"}}
	]}`)
	require.Equal(t, http.StatusMultiStatus, w.Code, w.Body.String())
	var res BatchResult
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.True(t, res.Partial)
	assert.Len(t, res.IDs, 2)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 2, res.Errors[0].Index)

	w = do(t, h, http.MethodPost, "/api/contexts/batch", `[{"type":"documentation","metadata":{"title":"d"}}]`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodPost, "/api/contexts/batch", `[{"type":"bogus","metadata":{"title":"e"}}]`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodPost, "/api/contexts/batch", `{"contexts":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPatchAndDeleteRoute(t *testing.T) {
	h, _ := setupRouter(t)
	id := ingestVia(t, h, `{"type":"documentation","content":"body","metadata":{"title":"old","tags":["a","b"]}}`)

	w := do(t, h, http.MethodPatch, "/api/contexts/"+id, `{"metadata":{"title":"new"}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var got storage.ContextPayload
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, "new", got.Metadata.Title)
	assert.Equal(t, []string{"a", "b"}, got.Metadata.Tags)
	assert.Equal(t, "body", got.Content)

	w = do(t, h, http.MethodPatch, "/api/contexts/"+id, `{"metadata":{"relevanceScore":-2}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodDelete, "/api/contexts/"+id, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, h, http.MethodGet, "/api/contexts/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSimilarAndStatsRoute(t *testing.T) {
	h, _ := setupRouter(t)
	ref := ingestVia(t, h, `{"type":"code_example","metadata":{"title":"ref","tags":["token"]}}`)
	peer := ingestVia(t, h, `{"type":"code_example","metadata":{"title":"peer","tags":["token"]}}`)
	ingestVia(t, h, `{"type":"security_tip","metadata":{"title":"tip","tags":["token"]}}`)

	w := do(t, h, http.MethodGet, "/api/contexts/"+ref+"/similar?limit=3", "")
	require.Equal(t, http.StatusOK, w.Code)
	var sim struct {
		Results []storage.ContextPayload `json:"results"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&sim))
	require.Len(t, sim.Results, 1)
	assert.Equal(t, peer, sim.Results[0].ID)

	w = do(t, h, http.MethodGet, "/api/contexts/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	var stats Stats
	require.NoError(t, json.NewDecoder(w.Body).Decode(&stats))
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.ByType[storage.TypeCodeExample])
}

func TestRenderRoute(t *testing.T) {
	h, _ := setupRouter(t)
	id := ingestVia(t, h, `{"type":"best_practice","content":"Use **checks**","metadata":{"title":"Checks"}}`)

	w := do(t, h, http.MethodGet, "/api/contexts/"+id+"/render", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "<strong>checks</strong>")
}
