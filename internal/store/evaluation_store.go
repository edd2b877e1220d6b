package store

import (
	"context"

	"github.com/dunamismax/autoflow/internal/graph"
)

type EvaluationStore interface {
	Create(ctx context.Context, ev graph.Evaluation) error
	Get(ctx context.Context, id string) (graph.Evaluation, bool, error)
	UpdateStatus(ctx context.Context, id, status string) (graph.Evaluation, error)
	SetResult(ctx context.Context, id string, result graph.Result, objectKey string) (graph.Evaluation, error)
	SetError(ctx context.Context, id, message string) (graph.Evaluation, error)
}

type UsageStore interface {
	CreateUsageLog(ctx context.Context, usage graph.UsageLog) error
}
