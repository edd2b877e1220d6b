package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/dunamismax/autoflow/internal/config"
	"github.com/dunamismax/autoflow/internal/engine"
	"github.com/dunamismax/autoflow/internal/graph"
	"github.com/dunamismax/autoflow/internal/queue"
	"github.com/dunamismax/autoflow/internal/storage"
	"github.com/dunamismax/autoflow/internal/store"
	"github.com/dunamismax/autoflow/internal/webhook"
	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Server struct {
	logger        *log.Logger
	server        *asynq.Server
	sem           chan struct{}
	engine        *engine.Engine
	webhookClient webhookSender
	evaluations   store.EvaluationStore
	usageStore    store.UsageStore
	archive       resultArchiver
	metrics       *metrics
	tracer        trace.Tracer
}

type webhookSender interface {
	Send(ctx context.Context, endpoint, event string, payload any) error
}

type resultArchiver interface {
	WriteJSON(ctx context.Context, objectKey string, value any) error
}

func NewServer(
	logger *log.Logger,
	queueCfg config.QueueConfig,
	workerCfg config.WorkerConfig,
	eng *engine.Engine,
	webhookClient *webhook.Client,
	evaluations store.EvaluationStore,
	usageStore store.UsageStore,
	storageClient *storage.Client,
) (*Server, error) {
	if eng == nil {
		return nil, fmt.Errorf("evaluation engine is required")
	}
	if evaluations == nil {
		return nil, fmt.Errorf("evaluation store is required")
	}

	if usageStore == nil {
		if evaluationAndUsageStore, ok := evaluations.(store.UsageStore); ok {
			usageStore = evaluationAndUsageStore
		}
	}

	s := &Server{
		logger: logger,
		server: asynq.NewServer(
			queueCfg.RedisClientOpt(),
			asynq.Config{
				Concurrency: workerCfg.Concurrency,
				Queues: map[string]int{
					queueCfg.Name: 1,
				},
				LogLevel: asynq.InfoLevel,
				ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
					retried, _ := asynq.GetRetryCount(ctx)
					maxRetry, _ := asynq.GetMaxRetry(ctx)
					logger.Printf("task failed type=%s retry=%d/%d err=%v", task.Type(), retried, maxRetry, err)
				}),
			},
		),
		sem:         make(chan struct{}, max(1, workerCfg.MaxActiveEvaluations)),
		engine:      eng,
		evaluations: evaluations,
		usageStore:  usageStore,
		metrics:     newMetrics(),
		tracer:      otel.Tracer("autoflow/worker"),
	}
	if webhookClient != nil {
		s.webhookClient = webhookClient
	}
	if storageClient != nil {
		s.archive = storageClient
	}
	return s, nil
}

func (s *Server) Run() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TypeEvaluationRun, s.handleEvaluationRun)
	return s.server.Run(mux)
}

func (s *Server) MetricsHandler() http.Handler {
	return s.metrics.Handler()
}

func (s *Server) handleEvaluationRun(ctx context.Context, task *asynq.Task) error {
	startedAt := time.Now()
	outcome := graph.EvaluationStatusFailed

	payload, err := queue.ParseEvaluationRunPayload(task)
	if err != nil {
		return fmt.Errorf("parse payload: %v: %w", err, asynq.SkipRetry)
	}

	ctx, span := s.tracer.Start(ctx, "worker.evaluate_graph", trace.WithSpanKind(trace.SpanKindConsumer))
	span.SetAttributes(
		attribute.String("evaluation.id", payload.EvaluationID),
		attribute.Int("evaluation.nodes", len(payload.Graph.Nodes)),
	)
	defer span.End()
	defer func() {
		s.metrics.evaluationDuration.WithLabelValues(outcome).Observe(time.Since(startedAt).Seconds())
		s.metrics.evaluationsTotal.WithLabelValues(outcome).Inc()
	}()

	s.sem <- struct{}{}
	s.metrics.activeEvaluations.Inc()
	defer func() {
		<-s.sem
		s.metrics.activeEvaluations.Dec()
	}()

	s.logger.Printf("Working... evaluation_id=%s nodes=%d", payload.EvaluationID, len(payload.Graph.Nodes))

	s.updateStatus(ctx, payload.EvaluationID, graph.EvaluationStatusProcessing)

	result, err := s.engine.Run(ctx, payload.Graph)
	if err != nil {
		if _, storeErr := s.evaluations.SetError(ctx, payload.EvaluationID, err.Error()); storeErr != nil {
			s.logger.Printf("evaluation error update failed evaluation_id=%s err=%v", payload.EvaluationID, storeErr)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "evaluation failed")
		s.dispatchWebhook(ctx, payload, "evaluation.failed", map[string]any{
			"evaluation_id": payload.EvaluationID,
			"status":        graph.EvaluationStatusFailed,
			"requested_at":  payload.RequestedAt,
			"failed_at":     time.Now().UTC(),
			"error":         err.Error(),
		})
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("run graph: %w", err)
		}
		// a graph that failed once fails the same way on every retry
		return fmt.Errorf("run graph: %v: %w", err, asynq.SkipRetry)
	}

	objectKey := ""
	if s.archive != nil {
		key := fmt.Sprintf("results/%s.json", payload.EvaluationID)
		if err := s.archive.WriteJSON(ctx, key, result); err != nil {
			s.logger.Printf("result archive failed evaluation_id=%s err=%v", payload.EvaluationID, err)
		} else {
			objectKey = key
		}
	}

	if _, err := s.evaluations.SetResult(ctx, payload.EvaluationID, result, objectKey); err != nil {
		s.logger.Printf("result update failed evaluation_id=%s err=%v", payload.EvaluationID, err)
	}

	s.logger.Printf(
		"Evaluated evaluation_id=%s nodes=%d cache_hits=%d duration_ms=%d",
		payload.EvaluationID,
		result.NodesEvaluated,
		result.CacheHits,
		result.DurationMS,
	)
	s.metrics.nodeResultsTotal.Add(float64(len(result.Nodes)))
	s.recordUsage(ctx, payload.EvaluationID, result, time.Since(startedAt))

	if err := s.dispatchWebhook(ctx, payload, "evaluation.completed", map[string]any{
		"evaluation_id":   payload.EvaluationID,
		"status":          graph.EvaluationStatusSucceeded,
		"requested_at":    payload.RequestedAt,
		"completed_at":    time.Now().UTC(),
		"nodes_evaluated": result.NodesEvaluated,
		"cache_hits":      result.CacheHits,
		"duration_ms":     result.DurationMS,
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "webhook dispatch failed")
		return err
	}

	outcome = graph.EvaluationStatusSucceeded
	span.SetStatus(codes.Ok, "evaluated")
	return nil
}

func (s *Server) updateStatus(ctx context.Context, evaluationID, status string) {
	if s.evaluations == nil {
		return
	}
	if _, err := s.evaluations.UpdateStatus(ctx, evaluationID, status); err != nil {
		s.logger.Printf("evaluation status update failed evaluation_id=%s status=%s err=%v", evaluationID, status, err)
	}
}

func (s *Server) dispatchWebhook(ctx context.Context, payload queue.EvaluationRunPayload, event string, body map[string]any) error {
	if payload.WebhookURL == "" || s.webhookClient == nil {
		return nil
	}

	if err := s.webhookClient.Send(ctx, payload.WebhookURL, event, body); err != nil {
		s.logger.Printf("webhook delivery failed evaluation_id=%s event=%s err=%v", payload.EvaluationID, event, err)
		return fmt.Errorf("dispatch webhook: %w", err)
	}

	return nil
}

func (s *Server) recordUsage(ctx context.Context, evaluationID string, result graph.Result, computeDuration time.Duration) {
	if s.usageStore == nil {
		return
	}

	userID := "anonymous"
	if s.evaluations != nil {
		evaluation, ok, err := s.evaluations.Get(ctx, evaluationID)
		if err != nil {
			s.logger.Printf("usage lookup failed evaluation_id=%s err=%v", evaluationID, err)
		} else if ok && strings.TrimSpace(evaluation.UserID) != "" {
			userID = evaluation.UserID
		}
	}

	computeTimeMS := computeDuration.Milliseconds()
	if computeTimeMS < 1 {
		computeTimeMS = 1
	}

	usage := graph.UsageLog{
		UserID:         userID,
		EvaluationID:   evaluationID,
		NodesEvaluated: int64(result.NodesEvaluated),
		CacheHits:      int64(result.CacheHits),
		ComputeTimeMS:  computeTimeMS,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.usageStore.CreateUsageLog(ctx, usage); err != nil {
		s.logger.Printf("usage log write failed evaluation_id=%s err=%v", evaluationID, err)
		return
	}

	s.metrics.nodesEvaluatedTotal.Add(float64(result.NodesEvaluated))
	s.metrics.cacheHitsTotal.Add(float64(result.CacheHits))
	s.metrics.computeTimeMSTotal.Add(float64(computeTimeMS))
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
