package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/verity/internal/model"
	"github.com/ppiankov/verity/internal/telemetry"
	"github.com/ppiankov/verity/internal/verify"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupTestServer(t *testing.T) (*Server, *verify.MemoryGraph) {
	t.Helper()
	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics("verity", reg)
	graph := verify.NewMemoryGraph()
	pipeline := verify.New(verify.Options{Graph: graph, Metrics: metrics})
	return New(Options{Pipeline: pipeline, Graph: graph, Gatherer: reg, Version: "test"}), graph
}

func do(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s, _ := setupTestServer(t)

	w := do(t, s, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"version":"test"`)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestRequestIDIsEchoed(t *testing.T) {
	s, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))
}

func TestPreliminary(t *testing.T) {
	s, _ := setupTestServer(t)

	w := do(t, s, http.MethodPost, "/v1/preliminary", PreliminaryRequest{Text: "2 + 2 = 4"})
	require.Equal(t, http.StatusOK, w.Code)

	var result model.PreliminaryResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, model.StatusVerified, result.Status)
	require.Len(t, result.Calculations, 1)
	assert.True(t, strings.HasSuffix(result.AnnotatedText, "[✓ Vérifié]"))
}

func TestPreliminary_BadRequest(t *testing.T) {
	s, _ := setupTestServer(t)

	w := do(t, s, http.MethodPost, "/v1/preliminary", `{"explicitly_requested": true}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "INVALID_REQUEST", resp.Code)

	w = do(t, s, http.MethodPost, "/v1/preliminary", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeepThenPrevious(t *testing.T) {
	s, graph := setupTestServer(t)

	w := do(t, s, http.MethodPost, "/v1/deep", DeepRequest{
		Thought:              model.Thought{ID: "t1", Content: "We get 2 + 2 = 4", SessionID: "s1"},
		ContainsCalculations: true,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var deep DeepResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &deep))
	require.NotNil(t, deep.Result)
	assert.Equal(t, model.StatusUnverified, deep.Result.Status, "no tools are configured")
	assert.Equal(t, "We get 2 + 2 = 4 [✓ Vérifié]", deep.Thought.AnnotatedContent)
	assert.Equal(t, 1, graph.Len())

	w = do(t, s, http.MethodPost, "/v1/previous", PreviousRequest{Text: "We get 2 + 2 = 4", SessionID: "s1"})
	require.Equal(t, http.StatusOK, w.Code)

	var prev model.PreviousVerification
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &prev))
	assert.True(t, prev.FromCache)
	assert.Equal(t, 1.0, prev.Similarity)
}

func TestPrevious_InheritsThroughGraph(t *testing.T) {
	s, graph := setupTestServer(t)
	graph.Put(model.Thought{ID: "base", Verification: &model.VerificationResult{Status: model.StatusVerified}})

	w := do(t, s, http.MethodPost, "/v1/previous", PreviousRequest{
		Text:         "Therefore the result stands",
		ThoughtType:  model.ThoughtConclusion,
		ConnectedIDs: []string{"base"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var prev model.PreviousVerification
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &prev))
	assert.Equal(t, model.StatusPartiallyVerified, prev.Status)
	assert.Equal(t, 0.7, prev.Confidence)
}

func TestDeep_RequiresContent(t *testing.T) {
	s, _ := setupTestServer(t)

	w := do(t, s, http.MethodPost, "/v1/deep", DeepRequest{Thought: model.Thought{ID: "empty"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVerify(t *testing.T) {
	s, _ := setupTestServer(t)

	w := do(t, s, http.MethodPost, "/v1/verify", VerifyRequest{Thought: model.Thought{ID: "t1", Content: "3 * 4 = 12"}})
	require.Equal(t, http.StatusOK, w.Code)

	var resp VerifyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Report)
	assert.Equal(t, verify.StagePreliminary, resp.Report.Stage)
	assert.True(t, resp.Report.IsVerified)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := setupTestServer(t)
	do(t, s, http.MethodPost, "/v1/preliminary", PreliminaryRequest{Text: "2 + 2 = 4"})

	w := do(t, s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "verity_")
}

func TestFailMapsContextErrors(t *testing.T) {
	s := New(Options{Pipeline: cancelledVerifier{}})

	w := do(t, s, http.MethodPost, "/v1/preliminary", PreliminaryRequest{Text: "x"})
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Contains(t, w.Body.String(), "TIMEOUT")
}

type cancelledVerifier struct{}

func (cancelledVerifier) PreliminaryVerify(context.Context, string, bool) (*model.PreliminaryResult, error) {
	return nil, context.DeadlineExceeded
}

func (cancelledVerifier) CheckPreviousVerification(context.Context, string, string, model.ThoughtType, []string) (*model.PreviousVerification, error) {
	return nil, context.Canceled
}

func (cancelledVerifier) DeepVerify(context.Context, *model.Thought, bool, bool, string) (*model.VerificationResult, error) {
	return nil, context.Canceled
}

func (cancelledVerifier) Verify(context.Context, *model.Thought, bool) (*verify.Report, error) {
	return nil, context.Canceled
}
