package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dunamismax/autoflow/internal/graph"
	"github.com/dunamismax/autoflow/internal/nodes"
	"github.com/dunamismax/autoflow/internal/queue"
	"github.com/dunamismax/autoflow/internal/ratelimit"
	"github.com/dunamismax/autoflow/internal/store"
	"github.com/hibiken/asynq"
)

type captureEnqueuer struct {
	payload queue.EvaluationRunPayload
	err     error
}

func (c *captureEnqueuer) EnqueueEvaluationRun(_ context.Context, payload queue.EvaluationRunPayload) (*asynq.TaskInfo, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.payload = payload
	return &asynq.TaskInfo{ID: "task-123", Queue: "evaluations", State: asynq.TaskStatePending}, nil
}

type fakePresigner struct {
	url string
	err error
}

func (f fakePresigner) PresignedGetURL(_ context.Context, _ string, _ time.Duration) (string, error) {
	return f.url, f.err
}

type fakeLimiter struct {
	decision ratelimit.Decision
	err      error
}

func (f fakeLimiter) Allow(_ context.Context, _ string) (ratelimit.Decision, error) {
	return f.decision, f.err
}

func newTestServer(t *testing.T, enqueuer queueEnqueuer) (*Server, *store.MemoryEvaluationStore) {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	evaluations := store.NewMemoryEvaluationStore()
	s := &Server{
		logger:       logger,
		queueClient:  enqueuer,
		evaluations:  evaluations,
		registry:     nodes.Builtin(logger),
		presignTTL:   15 * time.Minute,
		userIDHeader: "X-User-ID",
		metrics:      newMetrics(),
		mux:          http.NewServeMux(),
	}
	s.routes()
	return s, evaluations
}

func TestExtractEvaluationIDFromStartPath(t *testing.T) {
	evaluationID, err := extractEvaluationIDFromStartPath("/v1/evaluations/abc123/start")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if evaluationID != "abc123" {
		t.Fatalf("expected abc123, got %s", evaluationID)
	}

	if _, err := extractEvaluationIDFromStartPath("/v1/evaluations/abc123"); err == nil {
		t.Fatal("expected error for invalid path")
	}
	if _, err := extractEvaluationIDFromStartPath("/v1/evaluations//start"); err == nil {
		t.Fatal("expected error for empty evaluation id")
	}
}

func TestExtractEvaluationIDFromPath(t *testing.T) {
	evaluationID, err := extractEvaluationIDFromPath("/v1/evaluations/abc123")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if evaluationID != "abc123" {
		t.Fatalf("expected abc123, got %s", evaluationID)
	}

	if _, err := extractEvaluationIDFromPath("/v1/evaluations/"); err == nil {
		t.Fatal("expected error for missing evaluation id")
	}
	if _, err := extractEvaluationIDFromPath("/v1/evaluations/abc123/extra"); err == nil {
		t.Fatal("expected error for trailing path segments")
	}
}

func TestRouteLabel(t *testing.T) {
	cases := map[string]string{
		"/v1/evaluations/abc123/start": "/v1/evaluations/{id}/start",
		"/v1/evaluations/abc123":       "/v1/evaluations/{id}",
		"/v1/evaluations":              "/v1/evaluations",
		"/v1/nodes":                    "/v1/nodes",
		"/healthz":                     "/healthz",
		"/metrics":                     "/metrics",
		"/unknown":                     "/unknown",
	}
	for path, want := range cases {
		if got := routeLabel(path); got != want {
			t.Fatalf("routeLabel(%s): expected %s, got %s", path, want, got)
		}
	}
}

func TestHandleListNodes(t *testing.T) {
	s, _ := newTestServer(t, &captureEnqueuer{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/nodes", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Count int `json:"count"`
		Nodes []struct {
			Type     string `json:"type"`
			Category string `json:"category"`
		} `json:"nodes"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count == 0 || resp.Count != len(resp.Nodes) {
		t.Fatalf("expected count to match nodes, got count=%d nodes=%d", resp.Count, len(resp.Nodes))
	}
	found := false
	for _, n := range resp.Nodes {
		if n.Type == "image.size_calculator" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected image.size_calculator in node list")
	}
}

func TestHandleCreateEvaluation(t *testing.T) {
	s, evaluations := newTestServer(t, &captureEnqueuer{})

	body := `{"graph":{"nodes":[
		{"id":"calc","type":"image.size_calculator","inputs":{"width":1920,"height":1080,"num_pixels":1048576}},
		{"id":"label","type":"text.format","inputs":{"template":"{number1}x{number2}","number_1":{"$from":{"node":"calc","output":"width_max"}},"number_2":{"$from":{"node":"calc","output":"height_max"}}}}
	]}}`
	req := httptest.NewRequest(http.MethodPost, "/v1/evaluations", strings.NewReader(body))
	req.Header.Set("X-User-ID", "user-42")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d body=%s", rec.Code, rec.Body.String())
	}

	var resp struct {
		EvaluationID string `json:"evaluation_id"`
		Status       string `json:"status"`
		NodeCount    int    `json:"node_count"`
		StartURL     string `json:"start_url"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.EvaluationID == "" {
		t.Fatal("expected evaluation_id in response")
	}
	if resp.Status != graph.EvaluationStatusCreated {
		t.Fatalf("expected status created, got %s", resp.Status)
	}
	if resp.NodeCount != 2 {
		t.Fatalf("expected node_count 2, got %d", resp.NodeCount)
	}
	if resp.StartURL != "/v1/evaluations/"+resp.EvaluationID+"/start" {
		t.Fatalf("unexpected start_url %s", resp.StartURL)
	}

	stored, ok, err := evaluations.Get(context.Background(), resp.EvaluationID)
	if err != nil || !ok {
		t.Fatalf("expected stored evaluation, ok=%v err=%v", ok, err)
	}
	if stored.UserID != "user-42" {
		t.Fatalf("expected user-42, got %s", stored.UserID)
	}
	if len(stored.Graph.Nodes) != 2 {
		t.Fatalf("expected 2 stored nodes, got %d", len(stored.Graph.Nodes))
	}
}

func TestHandleCreateEvaluationRejectsInvalidGraph(t *testing.T) {
	s, _ := newTestServer(t, &captureEnqueuer{})

	cases := []string{
		`{"graph":{"nodes":[]}}`,
		`{"graph":{"nodes":[{"id":"x","type":"no.such_type"}]}}`,
		`{"graph":{"nodes":[{"id":"x","type":"image.size_calculator","inputs":{"bogus":1}}]}}`,
		`not json`,
	}
	for _, body := range cases {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/evaluations", strings.NewReader(body)))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %q: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestHandleStartEvaluation(t *testing.T) {
	enqueuer := &captureEnqueuer{}
	s, evaluations := newTestServer(t, enqueuer)

	evaluation := graph.Evaluation{
		ID:     "eval-1",
		Status: graph.EvaluationStatusCreated,
		Graph: graph.Graph{Nodes: []graph.NodeCall{
			{ID: "calc", Type: "image.size_calculator"},
		}},
		WebhookURL: "https://example.com/hook",
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	if err := evaluations.Create(context.Background(), evaluation); err != nil {
		t.Fatalf("seed evaluation: %v", err)
	}

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/evaluations/eval-1/start", nil))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d body=%s", rec.Code, rec.Body.String())
	}

	var resp struct {
		EvaluationID string `json:"evaluation_id"`
		Status       string `json:"status"`
		Queue        string `json:"queue"`
		TaskID       string `json:"task_id"`
		State        string `json:"state"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != graph.EvaluationStatusQueued {
		t.Fatalf("expected status queued, got %s", resp.Status)
	}
	if resp.Queue != "evaluations" || resp.TaskID != "task-123" || resp.State != "pending" {
		t.Fatalf("unexpected task info %+v", resp)
	}

	if enqueuer.payload.EvaluationID != "eval-1" {
		t.Fatalf("expected enqueued payload for eval-1, got %s", enqueuer.payload.EvaluationID)
	}
	if enqueuer.payload.WebhookURL != "https://example.com/hook" {
		t.Fatalf("expected webhook url in payload, got %s", enqueuer.payload.WebhookURL)
	}

	stored, _, err := evaluations.Get(context.Background(), "eval-1")
	if err != nil {
		t.Fatalf("get evaluation: %v", err)
	}
	if stored.Status != graph.EvaluationStatusQueued {
		t.Fatalf("expected stored status queued, got %s", stored.Status)
	}
}

func TestHandleStartEvaluationNotFound(t *testing.T) {
	s, _ := newTestServer(t, &captureEnqueuer{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/evaluations/missing/start", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandleStartEvaluationEnqueueFailure(t *testing.T) {
	enqueuer := &captureEnqueuer{err: errors.New("redis down")}
	s, evaluations := newTestServer(t, enqueuer)

	evaluation := graph.Evaluation{ID: "eval-1", Status: graph.EvaluationStatusCreated}
	if err := evaluations.Create(context.Background(), evaluation); err != nil {
		t.Fatalf("seed evaluation: %v", err)
	}

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/evaluations/eval-1/start", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}

	stored, _, err := evaluations.Get(context.Background(), "eval-1")
	if err != nil {
		t.Fatalf("get evaluation: %v", err)
	}
	if stored.Status != graph.EvaluationStatusCreated {
		t.Fatalf("expected status to stay created, got %s", stored.Status)
	}
}

func TestHandleGetEvaluation(t *testing.T) {
	s, evaluations := newTestServer(t, &captureEnqueuer{})
	s.storage = fakePresigner{url: "https://minio.example/results/eval-1.json?signed"}

	result := graph.Result{
		Nodes:          []graph.NodeResult{{NodeID: "calc", Type: "image.size_calculator", Outputs: json.RawMessage(`{"width_max":1365,"height_max":768}`)}},
		NodesEvaluated: 1,
		DurationMS:     4,
	}
	evaluation := graph.Evaluation{
		ID:        "eval-1",
		Status:    graph.EvaluationStatusSucceeded,
		Result:    &result,
		ObjectKey: "results/eval-1.json",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := evaluations.Create(context.Background(), evaluation); err != nil {
		t.Fatalf("seed evaluation: %v", err)
	}

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/evaluations/eval-1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	var resp struct {
		EvaluationID string        `json:"evaluation_id"`
		Status       string        `json:"status"`
		Result       *graph.Result `json:"result"`
		ResultURL    string        `json:"result_url"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.EvaluationID != "eval-1" || resp.Status != graph.EvaluationStatusSucceeded {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Result == nil || resp.Result.NodesEvaluated != 1 {
		t.Fatalf("expected embedded result, got %+v", resp.Result)
	}
	if resp.ResultURL != "https://minio.example/results/eval-1.json?signed" {
		t.Fatalf("unexpected result_url %s", resp.ResultURL)
	}
}

func TestHandleGetEvaluationOmitsResultURLWithoutStorage(t *testing.T) {
	s, evaluations := newTestServer(t, &captureEnqueuer{})

	evaluation := graph.Evaluation{
		ID:        "eval-1",
		Status:    graph.EvaluationStatusFailed,
		Error:     "evaluate node id=calc type=image.size_calculator: num_pixels must be positive",
		ObjectKey: "results/eval-1.json",
	}
	if err := evaluations.Create(context.Background(), evaluation); err != nil {
		t.Fatalf("seed evaluation: %v", err)
	}

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/evaluations/eval-1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if _, ok := resp["result_url"]; ok {
		t.Fatal("expected result_url to be omitted without storage")
	}
	if msg, ok := resp["error"].(string); !ok || msg == "" {
		t.Fatal("expected error message in response")
	}
}

func TestHandleGetEvaluationNotFound(t *testing.T) {
	s, _ := newTestServer(t, &captureEnqueuer{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/evaluations/missing", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestWithRateLimitRejects(t *testing.T) {
	s, _ := newTestServer(t, &captureEnqueuer{})
	s.rateLimiter = fakeLimiter{decision: ratelimit.Decision{Allowed: false, Remaining: 0, RetryAfter: 3 * time.Second}}

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/evaluations", strings.NewReader(`{}`)))

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "3" {
		t.Fatalf("expected Retry-After 3, got %s", rec.Header().Get("Retry-After"))
	}

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected GET to bypass rate limit, got %d", rec.Code)
	}
}

func TestWithRateLimitDegradesOpenOnError(t *testing.T) {
	s, _ := newTestServer(t, &captureEnqueuer{})
	s.rateLimiter = fakeLimiter{err: errors.New("redis down")}

	body := `{"graph":{"nodes":[{"id":"calc","type":"image.size_calculator","inputs":{"width":100,"height":100,"num_pixels":100}}]}}`
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/evaluations", strings.NewReader(body)))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected limiter failure to degrade open, got %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t, &captureEnqueuer{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "autoflow_api_requests_total") {
		t.Fatal("expected request counter in metrics output")
	}
}
