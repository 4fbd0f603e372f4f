package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dgallion1/checkgest/internal/config"
	"github.com/dgallion1/checkgest/internal/parser"
	"github.com/dgallion1/checkgest/internal/pipeline"
	"github.com/dgallion1/checkgest/internal/store"
	"github.com/dgallion1/checkgest/internal/structurer"
)

const testKey = "test-key"

const planText = `Plan
====

1. Setup servers
- Rack hardware
2. Setup network
- Pull cables
- Label ports
`

type upload struct {
	field, name, content string
}

func testConfig() config.Config {
	return config.Config{
		Server:     config.ServerConfig{APIKey: testKey, MaxUploadBytes: 1 << 20},
		Structurer: config.StructurerConfig{Model: "test-model"},
	}
}

// newTestServer wires a started orchestrator and, when withStore is set,
// a SQLite store in a temp dir.
func newTestServer(t *testing.T, withStore bool, stats *structurer.Stats) *Server {
	t.Helper()
	log := zap.NewNop()
	conv := pipeline.NewConverter(parser.Settings{}, nil, log)

	var results pipeline.ResultStore
	var reader ConversionReader
	if withStore {
		st, err := store.Open(filepath.Join(t.TempDir(), "api.db"))
		require.NoError(t, err)
		t.Cleanup(func() { st.Close() }) //nolint:errcheck
		require.NoError(t, st.Migrate(context.Background()))
		results, reader = st, st
	}

	orch := pipeline.NewOrchestrator(pipeline.OrchestratorConfig{Workers: 2, MaxQueue: 10}, conv, results, log)
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)

	return NewServer(orch, conv, reader, stats, log, testConfig())
}

func multipartRequest(t *testing.T, path string, files []upload, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(f.content))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+testKey)
	return req
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+testKey)
	return req
}

func do(t *testing.T, s *Server, req *http.Request) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

func TestHealthIsPublic(t *testing.T) {
	s := newTestServer(t, false, nil)
	code, body := do(t, s, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 2, body["workers"])
}

func TestAuth(t *testing.T) {
	s := newTestServer(t, false, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/stats/llm", nil)
	code, body := do(t, s, req)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "missing authorization", body["error"])

	req = httptest.NewRequest(http.MethodGet, "/api/stats/llm", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	code, _ = do(t, s, req)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestConvert(t *testing.T) {
	s := newTestServer(t, false, nil)

	code, body := do(t, s, multipartRequest(t, "/api/convert",
		[]upload{{"file", "plan.txt", planText}}, map[string]string{"evaluate": "true"}))
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "rules", body["strategy"])
	tree := body["tree"].(map[string]any)
	assert.Equal(t, "Plan", tree["title"])
	summary := body["summary"].(map[string]any)
	assert.EqualValues(t, 3, summary["items"])
	assert.EqualValues(t, 3, summary["evaluated"])
}

func TestConvertAmbiguousKeyword(t *testing.T) {
	s := newTestServer(t, false, nil)

	code, body := do(t, s, multipartRequest(t, "/api/convert",
		[]upload{{"file", "plan.txt", planText}}, map[string]string{"keyword": "setup"}))
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "cancelled", body["status"])
	assert.Len(t, body["candidates"], 2)
	assert.Nil(t, body["tree"])

	code, body = do(t, s, multipartRequest(t, "/api/convert",
		[]upload{{"file", "plan.txt", planText}}, map[string]string{"keyword": "setup", "select": "2"}))
	require.Equal(t, http.StatusOK, code)
	tree := body["tree"].(map[string]any)
	assert.Equal(t, "Plan - setup", tree["title"])
	assert.Len(t, tree["checklist"], 2)
}

func TestConvertRejectsBadInput(t *testing.T) {
	s := newTestServer(t, false, nil)

	tests := []struct {
		name   string
		files  []upload
		fields map[string]string
		code   int
	}{
		{"no file", nil, map[string]string{"keyword": "x"}, http.StatusBadRequest},
		{"unsupported", []upload{{"file", "tool.exe", "MZ"}}, nil, http.StatusBadRequest},
		{"bad pages", []upload{{"file", "plan.txt", planText}}, map[string]string{"pages": "x-2"}, http.StatusBadRequest},
		{"bad select", []upload{{"file", "plan.txt", planText}}, map[string]string{"select": "0"}, http.StatusBadRequest},
		{"bad evaluate", []upload{{"file", "plan.txt", planText}}, map[string]string{"evaluate": "maybe"}, http.StatusBadRequest},
		{"unreadable", []upload{{"file", "broken.xlsx", "not a zip"}}, nil, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := do(t, s, multipartRequest(t, "/api/convert", tt.files, tt.fields))
			assert.Equal(t, tt.code, code)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func waitForResult(t *testing.T, s *Server, jobID string) map[string]any {
	t.Helper()
	var body map[string]any
	require.Eventually(t, func() bool {
		var code int
		code, body = do(t, s, jsonRequest(http.MethodGet, "/api/jobs/"+jobID+"/result", ""))
		return code == http.StatusOK
	}, 5*time.Second, 10*time.Millisecond)
	return body
}

func TestJobsAndConversions(t *testing.T) {
	s := newTestServer(t, true, nil)

	code, body := do(t, s, multipartRequest(t, "/api/jobs",
		[]upload{{"file", "plan.txt", planText}}, nil))
	require.Equal(t, http.StatusAccepted, code, body)
	jobID := body["job_id"].(string)
	assert.Equal(t, "/api/jobs/"+jobID, body["poll_url"])

	result := waitForResult(t, s, jobID)
	assert.Equal(t, "ok", result["status"])

	code, snap := do(t, s, jsonRequest(http.MethodGet, "/api/jobs/"+jobID, ""))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "completed", snap["status"])
	convID := snap["conversion_id"].(string)
	require.NotEmpty(t, convID)

	code, list := do(t, s, jsonRequest(http.MethodGet, "/api/conversions?source=plan.txt", ""))
	require.Equal(t, http.StatusOK, code)
	convs := list["conversions"].([]any)
	require.Len(t, convs, 1)
	assert.Nil(t, convs[0].(map[string]any)["tree"], "list omits trees")

	code, conv := do(t, s, jsonRequest(http.MethodGet, "/api/conversions/"+convID, ""))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "plan.txt", conv["source"])
	assert.Equal(t, "Plan", conv["tree"].(map[string]any)["title"])

	code, _ = do(t, s, jsonRequest(http.MethodGet, "/api/conversions/nope", ""))
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = do(t, s, jsonRequest(http.MethodGet, "/api/conversions?limit=-1", ""))
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, s, jsonRequest(http.MethodGet, "/api/jobs/nope", ""))
	assert.Equal(t, http.StatusNotFound, code)
}

func TestFailedJobResult(t *testing.T) {
	s := newTestServer(t, false, nil)

	code, body := do(t, s, multipartRequest(t, "/api/jobs",
		[]upload{{"file", "broken.xlsx", "not a zip"}}, nil))
	require.Equal(t, http.StatusAccepted, code)
	jobID := body["job_id"].(string)

	require.Eventually(t, func() bool {
		code, body = do(t, s, jsonRequest(http.MethodGet, "/api/jobs/"+jobID+"/result", ""))
		return code == http.StatusUnprocessableEntity
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, "failed", body["status"])
	assert.NotEmpty(t, body["errors"])
}

func TestBatchJobs(t *testing.T) {
	s := newTestServer(t, false, nil)

	code, body := do(t, s, multipartRequest(t, "/api/jobs/batch", []upload{
		{"files", "a.txt", planText},
		{"files", "b.md", "# Notes\n\n- Call vendor\n"},
		{"files", "c.exe", "MZ"},
	}, nil))
	require.Equal(t, http.StatusAccepted, code)
	batchID := body["batch_id"].(string)
	require.NotEmpty(t, batchID)

	jobs := body["jobs"].([]any)
	require.Len(t, jobs, 3)
	assert.NotEmpty(t, jobs[2].(map[string]any)["error"])

	for _, j := range jobs[:2] {
		id := j.(map[string]any)["job_id"].(string)
		waitForResult(t, s, id)
		_, snap := do(t, s, jsonRequest(http.MethodGet, "/api/jobs/"+id, ""))
		assert.Equal(t, batchID, snap["batch_id"])
	}

	code, _ = do(t, s, multipartRequest(t, "/api/jobs/batch", nil, map[string]string{"x": "y"}))
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestEvaluate(t *testing.T) {
	s := newTestServer(t, false, nil)

	code, body := do(t, s, jsonRequest(http.MethodPost, "/api/evaluate", `{
		"C1_approval": {"score": 5}, "C2_cost_schedule": {"score": 4},
		"C3_environment_safety": {"score": 5}, "C4_operation": {"score": 2},
		"C5_reversibility": {"score": 5},
		"dependency_factor": 1.2, "regulatory_gate_flag": 0.5}`))
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "Critical", body["priority"])
	ev := body["evaluation"].(map[string]any)
	assert.InDelta(t, 4.3, ev["base_score"], 1e-9)
	assert.EqualValues(t, 5, ev["final_score"])

	tests := map[string]struct {
		body string
		code int
	}{
		"malformed":       {`{"C1_approval":`, http.StatusBadRequest},
		"unknown field":   {`{"C6_luck": {"score": 1}}`, http.StatusBadRequest},
		"fractional":      {`{"C1_approval": {"score": 4.5}}`, http.StatusBadRequest},
		"missing":         {`{"C1_approval": {"score": 3}}`, http.StatusUnprocessableEntity},
		"bad factor":      {`{"C1_approval": {"score": 3}, "C2_cost_schedule": {"score": 3}, "C3_environment_safety": {"score": 3}, "C4_operation": {"score": 3}, "C5_reversibility": {"score": 3}, "uncertainty_factor": 2}`, http.StatusUnprocessableEntity},
		"score in range":  {`{"C1_approval": {"score": 0}, "C2_cost_schedule": {"score": 3}, "C3_environment_safety": {"score": 3}, "C4_operation": {"score": 3}, "C5_reversibility": {"score": 3}}`, http.StatusUnprocessableEntity},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			code, _ := do(t, s, jsonRequest(http.MethodPost, "/api/evaluate", tt.body))
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestScore(t *testing.T) {
	s := newTestServer(t, false, nil)

	code, body := do(t, s, jsonRequest(http.MethodPost, "/api/score", `{"text":"Obtain building permit approval"}`))
	require.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, body["priority"])
	assert.NotNil(t, body["evaluation"])

	code, _ = do(t, s, jsonRequest(http.MethodPost, "/api/score", `{"text":"  "}`))
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestStoreAndStatsDisabled(t *testing.T) {
	s := newTestServer(t, false, nil)

	code, _ := do(t, s, jsonRequest(http.MethodGet, "/api/conversions", ""))
	assert.Equal(t, http.StatusServiceUnavailable, code)
	code, _ = do(t, s, jsonRequest(http.MethodGet, "/api/conversions/x", ""))
	assert.Equal(t, http.StatusServiceUnavailable, code)
	code, _ = do(t, s, jsonRequest(http.MethodGet, "/api/stats/llm", ""))
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestLLMStats(t *testing.T) {
	stats := structurer.NewStats(time.Hour)
	stats.Record(120, 1000, 200)
	s := newTestServer(t, false, stats)

	code, body := do(t, s, jsonRequest(http.MethodGet, "/api/stats/llm", ""))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "test-model", body["model"])
	snap := body["stats"].(map[string]any)
	assert.EqualValues(t, 1, snap["calls"])
	assert.EqualValues(t, 1000, snap["input_tokens"])
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"report.pdf":          "report.pdf",
		"../../etc/passwd":    "passwd",
		`C:\docs\plan.docx`:   "C:_docs_plan.docx",
		"":                    "unnamed",
		"notes..final.md":     "notes_final.md",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeFilename(in), in)
	}
}
