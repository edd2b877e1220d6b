package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dunamismax/autoflow/internal/graph"
)

var ErrEvaluationNotFound = errors.New("evaluation not found")

type MemoryEvaluationStore struct {
	mu          sync.RWMutex
	evaluations map[string]graph.Evaluation
	usage       []graph.UsageLog
}

func NewMemoryEvaluationStore() *MemoryEvaluationStore {
	return &MemoryEvaluationStore{
		evaluations: make(map[string]graph.Evaluation),
	}
}

func (s *MemoryEvaluationStore) Create(_ context.Context, ev graph.Evaluation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evaluations[ev.ID] = ev
	return nil
}

func (s *MemoryEvaluationStore) Get(_ context.Context, id string) (graph.Evaluation, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.evaluations[id]
	return ev, ok, nil
}

func (s *MemoryEvaluationStore) UpdateStatus(_ context.Context, id, status string) (graph.Evaluation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, ok := s.evaluations[id]
	if !ok {
		return graph.Evaluation{}, ErrEvaluationNotFound
	}

	ev.Status = status
	ev.UpdatedAt = time.Now().UTC()
	s.evaluations[id] = ev
	return ev, nil
}

func (s *MemoryEvaluationStore) SetResult(_ context.Context, id string, result graph.Result, objectKey string) (graph.Evaluation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, ok := s.evaluations[id]
	if !ok {
		return graph.Evaluation{}, ErrEvaluationNotFound
	}

	ev.Status = graph.EvaluationStatusSucceeded
	ev.Result = &result
	ev.ObjectKey = objectKey
	ev.Error = ""
	ev.UpdatedAt = time.Now().UTC()
	s.evaluations[id] = ev
	return ev, nil
}

func (s *MemoryEvaluationStore) SetError(_ context.Context, id, message string) (graph.Evaluation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, ok := s.evaluations[id]
	if !ok {
		return graph.Evaluation{}, ErrEvaluationNotFound
	}

	ev.Status = graph.EvaluationStatusFailed
	ev.Error = message
	ev.UpdatedAt = time.Now().UTC()
	s.evaluations[id] = ev
	return ev, nil
}

func (s *MemoryEvaluationStore) CreateUsageLog(_ context.Context, usage graph.UsageLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage = append(s.usage, usage)
	return nil
}

func (s *MemoryEvaluationStore) UsageLogs() []graph.UsageLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	logs := make([]graph.UsageLog, len(s.usage))
	copy(logs, s.usage)
	return logs
}
