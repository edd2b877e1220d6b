package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/dunamismax/autoflow/internal/config"
	"github.com/dunamismax/autoflow/internal/graph"
	"github.com/dunamismax/autoflow/internal/id"
	"github.com/dunamismax/autoflow/internal/node"
	"github.com/dunamismax/autoflow/internal/queue"
	"github.com/dunamismax/autoflow/internal/storage"
	"github.com/dunamismax/autoflow/internal/store"
	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

type Server struct {
	logger       *log.Logger
	queueClient  queueEnqueuer
	evaluations  store.EvaluationStore
	registry     *node.Registry
	storage      objectStorage
	presignTTL   time.Duration
	userIDHeader string
	rateLimiter  RateLimiter
	metrics      *metrics
	tracer       trace.Tracer
	mux          *http.ServeMux
}

type queueEnqueuer interface {
	EnqueueEvaluationRun(ctx context.Context, payload queue.EvaluationRunPayload) (*asynq.TaskInfo, error)
}

type objectStorage interface {
	PresignedGetURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error)
}

func NewServer(logger *log.Logger, cfg config.APIConfig, queueClient queueEnqueuer, evaluations store.EvaluationStore, registry *node.Registry, storageClient *storage.Client, rateLimiter RateLimiter) *Server {
	presignTTL := cfg.PresignTTL
	if presignTTL <= 0 {
		presignTTL = 15 * time.Minute
	}
	userIDHeader := cfg.UserIDHeader
	if userIDHeader == "" {
		userIDHeader = "X-User-ID"
	}

	s := &Server{
		logger:       logger,
		queueClient:  queueClient,
		evaluations:  evaluations,
		registry:     registry,
		presignTTL:   presignTTL,
		userIDHeader: userIDHeader,
		rateLimiter:  rateLimiter,
		metrics:      newMetrics(),
		tracer:       otel.Tracer("autoflow/api"),
		mux:          http.NewServeMux(),
	}
	if storageClient != nil {
		s.storage = storageClient
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.withTracing(s.metrics.withHTTPMetrics(s.withRateLimit(s.mux)))
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.HandleFunc("GET /v1/nodes", s.handleListNodes)
	s.mux.HandleFunc("POST /v1/evaluations", s.handleCreateEvaluation)
	s.mux.HandleFunc("POST /v1/evaluations/", s.handleStartEvaluation)
	s.mux.HandleFunc("GET /v1/evaluations/", s.handleGetEvaluation)
	s.mux.Handle("GET /metrics", s.metrics.metricsHandler())
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListNodes(w http.ResponseWriter, _ *http.Request) {
	descriptors := s.registry.Descriptors()
	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(descriptors),
		"nodes": descriptors,
	})
}

func (s *Server) handleCreateEvaluation(w http.ResponseWriter, r *http.Request) {
	var req graph.CreateEvaluationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := req.Graph.Validate(s.registry); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	now := time.Now().UTC()
	evaluation := graph.Evaluation{
		ID:         id.New(),
		UserID:     strings.TrimSpace(r.Header.Get(s.userIDHeader)),
		Status:     graph.EvaluationStatusCreated,
		WebhookURL: req.WebhookURL,
		Graph:      req.Graph,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.evaluations.Create(r.Context(), evaluation); err != nil {
		s.logger.Printf("create evaluation failed for evaluation %s: %v", evaluation.ID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create evaluation"})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"evaluation_id": evaluation.ID,
		"status":        evaluation.Status,
		"node_count":    len(evaluation.Graph.Nodes),
		"start_url":     fmt.Sprintf("/v1/evaluations/%s/start", evaluation.ID),
	})
}

func (s *Server) handleStartEvaluation(w http.ResponseWriter, r *http.Request) {
	evaluationID, err := extractEvaluationIDFromStartPath(r.URL.Path)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	evaluation, ok, err := s.evaluations.Get(r.Context(), evaluationID)
	if err != nil {
		s.logger.Printf("fetch evaluation failed for evaluation %s: %v", evaluationID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load evaluation"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "evaluation not found"})
		return
	}

	payload := queue.EvaluationRunPayload{
		EvaluationID: evaluation.ID,
		WebhookURL:   evaluation.WebhookURL,
		Graph:        evaluation.Graph,
		RequestedAt:  time.Now().UTC(),
	}

	taskInfo, err := s.queueClient.EnqueueEvaluationRun(r.Context(), payload)
	if err != nil {
		s.logger.Printf("enqueue failed for evaluation %s: %v", evaluation.ID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to enqueue evaluation"})
		return
	}

	if _, err := s.evaluations.UpdateStatus(r.Context(), evaluation.ID, graph.EvaluationStatusQueued); err != nil {
		s.logger.Printf("update status failed for evaluation %s: %v", evaluation.ID, err)
	}
	s.metrics.queueEnqueued.WithLabelValues(taskInfo.Queue).Inc()

	writeJSON(w, http.StatusAccepted, map[string]any{
		"evaluation_id": evaluation.ID,
		"status":        graph.EvaluationStatusQueued,
		"queue":         taskInfo.Queue,
		"task_id":       taskInfo.ID,
		"state":         taskInfo.State.String(),
		"enqueued_at":   taskInfo.NextProcessAt,
	})
}

func (s *Server) handleGetEvaluation(w http.ResponseWriter, r *http.Request) {
	evaluationID, err := extractEvaluationIDFromPath(r.URL.Path)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	evaluation, ok, err := s.evaluations.Get(r.Context(), evaluationID)
	if err != nil {
		s.logger.Printf("fetch evaluation failed for evaluation %s: %v", evaluationID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load evaluation"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "evaluation not found"})
		return
	}

	resp := map[string]any{
		"evaluation_id": evaluation.ID,
		"status":        evaluation.Status,
		"graph":         evaluation.Graph,
		"created_at":    evaluation.CreatedAt,
		"updated_at":    evaluation.UpdatedAt,
	}
	if evaluation.Result != nil {
		resp["result"] = evaluation.Result
	}
	if evaluation.Error != "" {
		resp["error"] = evaluation.Error
	}
	if s.storage != nil && evaluation.ObjectKey != "" {
		url, err := s.storage.PresignedGetURL(r.Context(), evaluation.ObjectKey, s.presignTTL)
		if err != nil {
			s.logger.Printf("generate presigned url failed for evaluation %s: %v", evaluation.ID, err)
		} else {
			resp["result_url"] = url
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func extractEvaluationIDFromStartPath(path string) (string, error) {
	trimmed := strings.TrimPrefix(path, "/v1/evaluations/")
	parts := strings.Split(strings.Trim(trimmed, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "start" {
		return "", errors.New("expected path format /v1/evaluations/{id}/start")
	}
	return parts[0], nil
}

func extractEvaluationIDFromPath(path string) (string, error) {
	trimmed := strings.Trim(strings.TrimPrefix(path, "/v1/evaluations/"), "/")
	if trimmed == "" || strings.Contains(trimmed, "/") {
		return "", errors.New("expected path format /v1/evaluations/{id}")
	}
	return trimmed, nil
}

func decodeJSON(r *http.Request, into any) error {
	const maxBodyBytes = 1 << 20
	limited := io.LimitReader(r.Body, maxBodyBytes)
	decoder := json.NewDecoder(limited)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(into); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return errors.New("invalid JSON body: multiple JSON values are not allowed")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
