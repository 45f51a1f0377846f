package testutil

import (
	"context"
	"sync"

	"NewsShell/internal/domain"
	"NewsShell/internal/ports"
)

// Journal keeps records in memory.
type Journal struct {
	mu          sync.Mutex
	Decisions   []domain.DecisionRecord
	Transitions []domain.TransitionRecord
	Err         error
}

var _ ports.Journal = (*Journal)(nil)

func (j *Journal) RecordDecision(_ context.Context, rec domain.DecisionRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Err != nil {
		return j.Err
	}
	j.Decisions = append(j.Decisions, rec)
	return nil
}

func (j *Journal) RecordTransition(_ context.Context, rec domain.TransitionRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Err != nil {
		return j.Err
	}
	j.Transitions = append(j.Transitions, rec)
	return nil
}

func (j *Journal) RecentDecisions(_ context.Context, limit int) ([]domain.DecisionRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]domain.DecisionRecord, 0, limit)
	for i := len(j.Decisions) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, j.Decisions[i])
	}
	return out, nil
}

// DecisionCount returns the number of stored decisions.
func (j *Journal) DecisionCount() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.Decisions)
}

// TransitionCount returns the number of stored transitions.
func (j *Journal) TransitionCount() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.Transitions)
}

// Publisher records published events.
type Publisher struct {
	mu     sync.Mutex
	Topics []string
	Values []any
}

func (p *Publisher) Publish(topic string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Topics = append(p.Topics, topic)
	p.Values = append(p.Values, payload)
}
