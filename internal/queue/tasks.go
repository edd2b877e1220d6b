package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dunamismax/autoflow/internal/graph"
	"github.com/hibiken/asynq"
)

const TypeEvaluationRun = "evaluation:run"

type EvaluationRunPayload struct {
	EvaluationID string      `json:"evaluation_id"`
	WebhookURL   string      `json:"webhook_url,omitempty"`
	Graph        graph.Graph `json:"graph"`
	RequestedAt  time.Time   `json:"requested_at"`
}

func NewEvaluationRunTask(payload EvaluationRunPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal evaluation payload: %w", err)
	}
	return asynq.NewTask(TypeEvaluationRun, body), nil
}

func ParseEvaluationRunPayload(task *asynq.Task) (EvaluationRunPayload, error) {
	var payload EvaluationRunPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return EvaluationRunPayload{}, fmt.Errorf("unmarshal evaluation payload: %w", err)
	}
	return payload, nil
}
