// ABOUTME: In-memory Completer and Embedder fakes for tests
// ABOUTME: Scripted responses keyed by call order or by a prompt substring
package llmtest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/harper/feedback-radar/internal/llm"
)

// ErrScripted is the default failure returned by FailingCompleter.
var ErrScripted = errors.New("scripted llm failure")

// Completer returns canned text. Rules are checked in order against the
// user prompt; the first rule whose substring matches wins. With no match
// the Default text is returned, or Err if set.
type Completer struct {
	mu       sync.Mutex
	Rules    []Rule
	Default  string
	Err      error
	requests []llm.CompletionRequest
}

// Rule maps a prompt substring to a reply or an error.
type Rule struct {
	Contains string
	Reply    string
	Err      error
}

// Complete implements llm.Completer.
func (c *Completer) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.Completion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.mu.Unlock()

	for _, r := range c.Rules {
		if strings.Contains(req.User, r.Contains) {
			if r.Err != nil {
				return nil, r.Err
			}
			return &llm.Completion{Text: r.Reply, InputTokens: len(req.User), OutputTokens: len(r.Reply)}, nil
		}
	}
	if c.Err != nil {
		return nil, c.Err
	}
	return &llm.Completion{Text: c.Default, InputTokens: len(req.User), OutputTokens: len(c.Default)}, nil
}

// Requests returns a copy of every request seen so far.
func (c *Completer) Requests() []llm.CompletionRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]llm.CompletionRequest, len(c.requests))
	copy(out, c.requests)
	return out
}

// Calls returns the number of requests seen so far.
func (c *Completer) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

// FailingCompleter always fails.
func FailingCompleter() *Completer {
	return &Completer{Err: ErrScripted}
}

// Embedder returns fixed vectors per text and falls back to a zero vector.
type Embedder struct {
	Vectors map[string][]float64
	Dim     int
	Name    string
	Err     error

	mu    sync.Mutex
	calls int
}

// Embed implements llm.Embedder.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	if e.Err != nil {
		return nil, e.Err
	}
	out := make([][]float64, len(texts))
	for i, t := range texts {
		if v, ok := e.Vectors[t]; ok {
			out[i] = append([]float64(nil), v...)
			continue
		}
		out[i] = make([]float64, e.Dim)
	}
	return out, nil
}

// Model implements llm.Embedder.
func (e *Embedder) Model() string {
	if e.Name == "" {
		return "fake-embedder"
	}
	return e.Name
}

// Calls returns how many Embed calls were made.
func (e *Embedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}
