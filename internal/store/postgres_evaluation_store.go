package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dunamismax/autoflow/internal/graph"
	_ "github.com/lib/pq"
)

const evaluationSchemaSQL = `
CREATE TABLE IF NOT EXISTS evaluations (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	webhook_url TEXT NOT NULL DEFAULT '',
	graph JSONB NOT NULL,
	result JSONB,
	object_key TEXT NOT NULL DEFAULT '',
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS usage_logs (
	id BIGSERIAL PRIMARY KEY,
	user_id TEXT NOT NULL,
	evaluation_id TEXT NOT NULL,
	nodes_evaluated BIGINT NOT NULL,
	cache_hits BIGINT NOT NULL,
	compute_time_ms BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
`

type PostgresEvaluationStore struct {
	db *sql.DB
}

func NewPostgresEvaluationStore(ctx context.Context, dsn string) (*PostgresEvaluationStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := &PostgresEvaluationStore{db: db}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *PostgresEvaluationStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, evaluationSchemaSQL); err != nil {
		return fmt.Errorf("ensure evaluations schema: %w", err)
	}
	return nil
}

func (s *PostgresEvaluationStore) Close() error {
	return s.db.Close()
}

func (s *PostgresEvaluationStore) Create(ctx context.Context, ev graph.Evaluation) error {
	graphJSON, err := json.Marshal(ev.Graph)
	if err != nil {
		return fmt.Errorf("marshal evaluation graph: %w", err)
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO evaluations (id, user_id, status, webhook_url, graph, object_key, error_message, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		ev.ID,
		ev.UserID,
		ev.Status,
		ev.WebhookURL,
		graphJSON,
		ev.ObjectKey,
		ev.Error,
		ev.CreatedAt,
		ev.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert evaluation: %w", err)
	}

	return nil
}

func (s *PostgresEvaluationStore) Get(ctx context.Context, id string) (graph.Evaluation, bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, user_id, status, webhook_url, graph, result, object_key, error_message, created_at, updated_at
		 FROM evaluations
		 WHERE id = $1`,
		id,
	)

	var (
		ev         graph.Evaluation
		graphJSON  []byte
		resultJSON []byte
	)
	if err := row.Scan(
		&ev.ID,
		&ev.UserID,
		&ev.Status,
		&ev.WebhookURL,
		&graphJSON,
		&resultJSON,
		&ev.ObjectKey,
		&ev.Error,
		&ev.CreatedAt,
		&ev.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return graph.Evaluation{}, false, nil
		}
		return graph.Evaluation{}, false, fmt.Errorf("query evaluation: %w", err)
	}

	if err := json.Unmarshal(graphJSON, &ev.Graph); err != nil {
		return graph.Evaluation{}, false, fmt.Errorf("unmarshal evaluation graph: %w", err)
	}
	if len(resultJSON) > 0 {
		var result graph.Result
		if err := json.Unmarshal(resultJSON, &result); err != nil {
			return graph.Evaluation{}, false, fmt.Errorf("unmarshal evaluation result: %w", err)
		}
		ev.Result = &result
	}

	return ev, true, nil
}

func (s *PostgresEvaluationStore) UpdateStatus(ctx context.Context, id, status string) (graph.Evaluation, error) {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE evaluations
		 SET status = $1, updated_at = $2
		 WHERE id = $3`,
		status,
		now,
		id,
	)
	if err != nil {
		return graph.Evaluation{}, fmt.Errorf("update evaluation status: %w", err)
	}

	return s.mustGet(ctx, id)
}

func (s *PostgresEvaluationStore) SetResult(ctx context.Context, id string, result graph.Result, objectKey string) (graph.Evaluation, error) {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return graph.Evaluation{}, fmt.Errorf("marshal evaluation result: %w", err)
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(
		ctx,
		`UPDATE evaluations
		 SET status = $1, result = $2, object_key = $3, error_message = '', updated_at = $4
		 WHERE id = $5`,
		graph.EvaluationStatusSucceeded,
		resultJSON,
		objectKey,
		now,
		id,
	)
	if err != nil {
		return graph.Evaluation{}, fmt.Errorf("store evaluation result: %w", err)
	}

	return s.mustGet(ctx, id)
}

func (s *PostgresEvaluationStore) SetError(ctx context.Context, id, message string) (graph.Evaluation, error) {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE evaluations
		 SET status = $1, error_message = $2, updated_at = $3
		 WHERE id = $4`,
		graph.EvaluationStatusFailed,
		message,
		now,
		id,
	)
	if err != nil {
		return graph.Evaluation{}, fmt.Errorf("store evaluation error: %w", err)
	}

	return s.mustGet(ctx, id)
}

func (s *PostgresEvaluationStore) CreateUsageLog(ctx context.Context, usage graph.UsageLog) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO usage_logs (user_id, evaluation_id, nodes_evaluated, cache_hits, compute_time_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		usage.UserID,
		usage.EvaluationID,
		usage.NodesEvaluated,
		usage.CacheHits,
		usage.ComputeTimeMS,
		usage.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert usage log: %w", err)
	}
	return nil
}

func (s *PostgresEvaluationStore) mustGet(ctx context.Context, id string) (graph.Evaluation, error) {
	ev, ok, err := s.Get(ctx, id)
	if err != nil {
		return graph.Evaluation{}, err
	}
	if !ok {
		return graph.Evaluation{}, ErrEvaluationNotFound
	}
	return ev, nil
}
