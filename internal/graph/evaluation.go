package graph

import (
	"encoding/json"
	"time"
)

const (
	EvaluationStatusCreated    = "created"
	EvaluationStatusQueued     = "queued"
	EvaluationStatusProcessing = "processing"
	EvaluationStatusSucceeded  = "succeeded"
	EvaluationStatusFailed     = "failed"
)

type CreateEvaluationRequest struct {
	WebhookURL string `json:"webhook_url,omitempty"`
	Graph      Graph  `json:"graph"`
}

type Evaluation struct {
	ID         string
	UserID     string
	Status     string
	WebhookURL string
	Graph      Graph
	Result     *Result
	ObjectKey  string
	Error      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Result struct {
	Nodes          []NodeResult `json:"nodes"`
	NodesEvaluated int          `json:"nodes_evaluated"`
	CacheHits      int          `json:"cache_hits"`
	DurationMS     int64        `json:"duration_ms"`
}

type NodeResult struct {
	NodeID     string          `json:"node_id"`
	Type       string          `json:"type"`
	Outputs    json.RawMessage `json:"outputs"`
	Cached     bool            `json:"cached,omitempty"`
	DurationMS int64           `json:"duration_ms"`
}

type UsageLog struct {
	UserID         string
	EvaluationID   string
	NodesEvaluated int64
	CacheHits      int64
	ComputeTimeMS  int64
	CreatedAt      time.Time
}
