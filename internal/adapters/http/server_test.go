package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/aretw0/tripgate/internal/adapters/memory"
	"github.com/aretw0/tripgate/internal/metrics"
	"github.com/aretw0/tripgate/pkg/clarify"
	"github.com/aretw0/tripgate/pkg/draft"
	"github.com/aretw0/tripgate/pkg/router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter() *router.Router {
	return router.New(clarify.New(memory.NewEpisodeStore()), memory.NewStateStore(), draft.New())
}

// eventNames returns the "event:" lines of an SSE body in order.
func eventNames(body string) []string {
	var names []string
	for _, line := range strings.Split(body, "\n") {
		if name, ok := strings.CutPrefix(line, "event: "); ok {
			names = append(names, name)
		}
	}
	return names
}

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestGetHealth(t *testing.T) {
	handler := NewHandler(newTestRouter())

	req, _ := http.NewRequest("GET", "/health", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]string
	err := json.Unmarshal(rr.Body.Bytes(), &resp)
	assert.NoError(t, err)
	assert.Equal(t, "ok", resp["status"])
}

func TestGetInfo(t *testing.T) {
	handler := NewHandler(newTestRouter())

	req, _ := http.NewRequest("GET", "/info", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]string
	err := json.Unmarshal(rr.Body.Bytes(), &resp)
	assert.NoError(t, err)
	assert.Equal(t, "tripgate-http", resp["app"])
	assert.NotEmpty(t, resp["version"])
	assert.Equal(t, APIVersion, resp["api_version"])
}

func TestQuery_StreamsItinerary(t *testing.T) {
	handler := NewHandler(newTestRouter())

	rr := postJSON(t, handler, "/travel/query", `{"query":"上海 4 天，预算 6000","user_id":1}`)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/event-stream", rr.Header().Get("Content-Type"))
	assert.NotEmpty(t, rr.Header().Get(HeaderConversationID))
	assert.Equal(t, []string{"intent_routed", "final_itinerary"}, eventNames(rr.Body.String()))
	assert.Contains(t, rr.Body.String(), `data: "已基于你提供的约束生成 4 天的最小行程草案。 未提供出行人群，默认按通用休闲偏好生成草案。"`)

	rr = postJSON(t, handler, "/travel/query", `{"query":"上海 4 天，预算 6000，情侣","user_id":1}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `data: "已基于你提供的约束生成 4 天的最小行程草案。"`)
}

func TestQuery_RejectsOversizedBody(t *testing.T) {
	handler := NewHandler(newTestRouter())

	body := `{"query":"` + strings.Repeat("好", MaxRequestBodyBytes) + `","user_id":1}`
	rr := postJSON(t, handler, "/travel/query", body)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.Empty(t, rr.Header().Get(HeaderConversationID))
}

func TestQueryThenResume_ClarifiesAndCompletes(t *testing.T) {
	handler := NewHandler(newTestRouter())

	rr := postJSON(t, handler, "/travel/query", `{"query":"去北京","user_id":1}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"intent_routed", "stage_start", "stage_progress"}, eventNames(rr.Body.String()))
	id := rr.Header().Get(HeaderConversationID)
	require.NotEmpty(t, id)

	form := url.Values{"query": {"5天，预算3000"}, "user_id": {"1"}, "conversation_id": {id}}
	req := httptest.NewRequest(http.MethodPost, "/langgraph/resume", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, id, rr.Header().Get(HeaderConversationID))
	assert.Equal(t, []string{"intent_routed", "final_itinerary"}, eventNames(rr.Body.String()))

	req = httptest.NewRequest(http.MethodGet, "/travel/state/"+id, nil)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		ConversationID string `json:"conversation_id"`
		State          *struct {
			CurrentRevisionID *string         `json:"current_revision_id"`
			CurrentItinerary  json.RawMessage `json:"current_itinerary"`
		} `json:"state"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, id, resp.ConversationID)
	require.NotNil(t, resp.State)
	assert.NotNil(t, resp.State.CurrentRevisionID)
	assert.Contains(t, string(resp.State.CurrentItinerary), "北京")
}

func TestTurn_ValidationErrors(t *testing.T) {
	handler := NewHandler(newTestRouter())

	tests := []struct {
		name string
		path string
		body string
	}{
		{"missing query", "/travel/query", `{"user_id":1}`},
		{"missing user", "/travel/query", `{"query":"去北京"}`},
		{"malformed json", "/travel/query", `{"query":`},
		{"blank query", "/travel/query", `{"query":"   ","user_id":1}`},
		{"resume without conversation", "/travel/resume", `{"query":"5天","user_id":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := postJSON(t, handler, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			assert.Empty(t, rr.Header().Get(HeaderConversationID))
		})
	}
}

func TestGetState_Unknown(t *testing.T) {
	handler := NewHandler(newTestRouter())

	req := httptest.NewRequest(http.MethodGet, "/travel/state/nope", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"conversation_id":"nope","state":null}`, rr.Body.String())
}

func TestMetrics_Exposed(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)
	r := router.New(clarify.New(memory.NewEpisodeStore()), memory.NewStateStore(), draft.New(),
		router.WithLifecycleHooks(m.Hooks(nil)))
	handler := NewHandler(r, WithGatherer(reg))

	postJSON(t, handler, "/travel/query", `{"query":"重置","user_id":1}`)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `tripgate_turns_total{intent="reset",outcome="reset"} 1`)
}

func TestMetrics_DisabledWithoutGatherer(t *testing.T) {
	handler := NewHandler(newTestRouter())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCORS_Preflight(t *testing.T) {
	handler := NewHandler(newTestRouter())

	req := httptest.NewRequest(http.MethodOptions, "/travel/query", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}
