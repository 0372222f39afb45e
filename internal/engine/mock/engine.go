package mock

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/civitas-io/mediawatch/internal/engine"
)

// Engine satisfies engine.Client for testing. CompleteFunc, when set,
// overrides the canned per-kind responses.
type Engine struct {
	mu           sync.Mutex
	CompleteFunc func(ctx context.Context, req engine.CompletionRequest) (engine.CompletionResponse, error)
	Calls        []engine.CompletionRequest
}

func (e *Engine) Model() string { return "mock-v1" }

func (e *Engine) Complete(ctx context.Context, req engine.CompletionRequest) (engine.CompletionResponse, error) {
	e.mu.Lock()
	e.Calls = append(e.Calls, req)
	fn := e.CompleteFunc
	e.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return cannedResponse(req), nil
}

// CallCount returns how many completions have been requested so far.
func (e *Engine) CallCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Calls)
}

// cannedResponse keys off the prompt text to return a plausible JSON body
// for whichever analysis kind is being requested.
func cannedResponse(req engine.CompletionRequest) engine.CompletionResponse {
	var body any
	switch {
	case strings.Contains(req.Prompt, "risk"):
		body = map[string]any{
			"overall_risk_score":   12.0,
			"categories":           map[string]float64{"misinformation": 10, "incitement": 5},
			"governance_impact":    map[string]float64{"public_trust": 8},
			"intervention_urgency": "low",
		}
	case strings.Contains(req.Prompt, "sentiment"):
		body = map[string]any{
			"overall":         "neutral",
			"score":           0.1,
			"intensity":       0.2,
			"emotions":        map[string]float64{"joy": 0.1},
			"urgency_level":   "low",
			"subjectivity":    0.3,
			"bias_indicators": []string{},
		}
	case strings.Contains(req.Prompt, "entit"):
		body = map[string]any{
			"persons":             []map[string]any{{"name": "Jane Doe", "relevance": 0.9}},
			"organizations":       []map[string]any{},
			"locations":           []map[string]any{},
			"government_entities": []map[string]any{},
		}
	default:
		body = map[string]any{
			"summary":    "Mock summary for testing",
			"key_points": []string{"point one"},
			"keywords":   []string{"mock"},
			"category":   "general",
			"complexity": "low",
			"word_count": 42,
		}
	}
	raw, _ := json.Marshal(body)
	return engine.CompletionResponse{
		Content: string(raw),
		Usage:   engine.Usage{InputTokens: 100, OutputTokens: 50},
	}
}

// NewFailing returns an Engine that always returns the given error.
func NewFailing(err error) *Engine {
	return &Engine{
		CompleteFunc: func(_ context.Context, _ engine.CompletionRequest) (engine.CompletionResponse, error) {
			return engine.CompletionResponse{}, err
		},
	}
}

var _ engine.Client = (*Engine)(nil)
