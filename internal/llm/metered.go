// ABOUTME: Usage accounting and call budgets for any Completer
// ABOUTME: Counts calls, failures, and tokens; refuses calls once the budget is spent
package llm

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
)

// ErrBudgetExhausted is returned when a Metered completer has no calls left.
var ErrBudgetExhausted = errors.New("llm call budget exhausted")

// Usage is a snapshot of LLM traffic.
type Usage struct {
	Calls        int64 `json:"calls"`
	Failures     int64 `json:"failures"`
	Denied       int64 `json:"denied"`
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// Add returns the sum of two snapshots.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		Calls:        u.Calls + other.Calls,
		Failures:     u.Failures + other.Failures,
		Denied:       u.Denied + other.Denied,
		InputTokens:  u.InputTokens + other.InputTokens,
		OutputTokens: u.OutputTokens + other.OutputTokens,
	}
}

// TotalTokens returns input plus output tokens.
func (u Usage) TotalTokens() int64 {
	return u.InputTokens + u.OutputTokens
}

// Metered decorates a Completer with counters and an optional call budget.
// It is safe for concurrent use.
type Metered struct {
	next     Completer
	budget   int64
	reserved atomic.Int64

	calls        atomic.Int64
	failures     atomic.Int64
	denied       atomic.Int64
	inputTokens  atomic.Int64
	outputTokens atomic.Int64
}

// NewMetered wraps next. maxCalls <= 0 means no budget.
func NewMetered(next Completer, maxCalls int) *Metered {
	return &Metered{next: next, budget: int64(maxCalls)}
}

// Complete forwards to the wrapped Completer unless the budget is spent.
func (m *Metered) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	if m.next == nil {
		return nil, ErrNoLLM
	}
	if m.budget > 0 && m.reserved.Add(1) > m.budget {
		m.denied.Add(1)
		return nil, fmt.Errorf("%w (limit %d)", ErrBudgetExhausted, m.budget)
	}

	m.calls.Add(1)
	resp, err := m.next.Complete(ctx, req)
	if err != nil {
		m.failures.Add(1)
		return nil, err
	}
	m.inputTokens.Add(int64(resp.InputTokens))
	m.outputTokens.Add(int64(resp.OutputTokens))
	return resp, nil
}

// Usage returns the current counters.
func (m *Metered) Usage() Usage {
	return Usage{
		Calls:        m.calls.Load(),
		Failures:     m.failures.Load(),
		Denied:       m.denied.Load(),
		InputTokens:  m.inputTokens.Load(),
		OutputTokens: m.outputTokens.Load(),
	}
}
