// Package analysis orchestrates the four engine sub-calls for one content
// item and persists the composite result.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/civitas-io/mediawatch/internal/alerts"
	"github.com/civitas-io/mediawatch/internal/config"
	"github.com/civitas-io/mediawatch/internal/engine"
	"github.com/civitas-io/mediawatch/internal/prompt"
	"github.com/civitas-io/mediawatch/internal/store"
	"github.com/civitas-io/mediawatch/pkg/models"
	"github.com/google/uuid"
)

// Request identifies one content item to analyze.
type Request struct {
	TenantID    uuid.UUID
	ContentID   uuid.UUID
	ContentType string
	Title       string
	Body        string
}

// Orchestrator runs the analysis pipeline: text, sentiment, and entity
// sub-calls run concurrently, risk assessment starts as soon as the
// sentiment and entity results are in, then one atomic persist and
// post-commit alert evaluation.
type Orchestrator struct {
	engine engine.Client
	store  store.Store
	cfg    config.EngineConfig
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(eng engine.Client, st store.Store, cfg config.EngineConfig) *Orchestrator {
	return &Orchestrator{engine: eng, store: st, cfg: cfg}
}

// Analyze runs the full pipeline for one content item. Any sub-call or
// persistence failure aborts the whole orchestration; no partial result is
// ever persisted. Alert-generation failures after the persist are logged and
// swallowed.
func (o *Orchestrator) Analyze(ctx context.Context, req Request) (*models.AnalysisResult, error) {
	started := time.Now()

	in := prompt.Input{
		ContentType: req.ContentType,
		Title:       req.Title,
		Body:        req.Body,
	}

	// Stage one: three independent sub-calls, concurrently. Only sentiment
	// and entity gate the risk call; text-analysis joins at aggregation.
	var (
		text      models.TextAnalysis
		sentiment models.SentimentAnalysis
		entities  models.EntityRecognition
		textUse   engine.Usage
		sentUse   engine.Usage
		entUse    engine.Usage
		textErr   error
		sentErr   error
		entErr    error
	)

	stageCtx, cancelStage := context.WithCancel(ctx)
	defer cancelStage()

	var textWG, gateWG sync.WaitGroup
	textWG.Add(1)
	go func() {
		defer textWG.Done()
		textUse, textErr = o.subCall(stageCtx, "text", prompt.TextAnalysis(in), &text)
	}()
	gateWG.Add(2)
	go func() {
		defer gateWG.Done()
		sentUse, sentErr = o.subCall(stageCtx, "sentiment", prompt.SentimentAnalysis(in), &sentiment)
	}()
	go func() {
		defer gateWG.Done()
		entUse, entErr = o.subCall(stageCtx, "entity", prompt.EntityRecognition(in), &entities)
	}()
	gateWG.Wait()

	for _, err := range []error{sentErr, entErr} {
		if err != nil {
			cancelStage()
			textWG.Wait()
			return nil, err
		}
	}

	// Stage two: risk assessment consumes the sentiment and entity output.
	// It may overlap a still-running text-analysis call.
	var risk models.RiskAssessment
	riskUse, riskErr := o.subCall(ctx, "risk", prompt.RiskAssessment(in, sentiment, entities), &risk)

	textWG.Wait()
	for _, err := range []error{riskErr, textErr} {
		if err != nil {
			return nil, err
		}
	}

	clampResult(&sentiment, &risk)

	inputTokens := textUse.InputTokens + sentUse.InputTokens + entUse.InputTokens + riskUse.InputTokens
	outputTokens := textUse.OutputTokens + sentUse.OutputTokens + entUse.OutputTokens + riskUse.OutputTokens
	cost := o.callCost(textUse) + o.callCost(sentUse) + o.callCost(entUse) + o.callCost(riskUse)

	result := &models.AnalysisResult{
		ID:               uuid.New(),
		TenantID:         req.TenantID,
		ContentID:        req.ContentID,
		ContentType:      req.ContentType,
		Text:             text,
		Sentiment:        sentiment,
		Entities:         entities,
		Risk:             risk,
		ProcessingTimeMs: time.Since(started).Milliseconds(),
		InputTokens:      inputTokens,
		OutputTokens:     outputTokens,
		TotalCost:        cost,
		CreatedAt:        time.Now().UTC(),
	}

	if err := o.store.CreateAnalysisResult(ctx, result); err != nil {
		return nil, fmt.Errorf("storing analysis result: %w", err)
	}

	o.raiseAlerts(ctx, result)

	return result, nil
}

// subCall renders nothing itself; it sends the prepared prompt, bounds the
// wait, and decodes the JSON body into out. A missing body surfaces as
// engine.ErrNoContent (retryable); a malformed body is a fatal parse error.
// A panicking engine client is converted to a fatal error so that a sub-call
// running on its own goroutine cannot take the process down.
func (o *Orchestrator) subCall(ctx context.Context, kind string, p prompt.Request, out any) (usage engine.Usage, err error) {
	defer func() {
		if r := recover(); r != nil {
			usage = engine.Usage{}
			err = fmt.Errorf("%s analysis: engine panic: %v", kind, r)
		}
	}()

	callCtx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	resp, err := o.engine.Complete(callCtx, engine.CompletionRequest{
		System:      p.System,
		Prompt:      p.User,
		Temperature: float32(o.cfg.Temperature),
		MaxTokens:   o.cfg.MaxOutputTokens,
	})
	if err != nil {
		return engine.Usage{}, fmt.Errorf("%s analysis: %w", kind, err)
	}
	if resp.Content == "" {
		return engine.Usage{}, fmt.Errorf("%s analysis: %w", kind, engine.ErrNoContent)
	}
	if err := json.Unmarshal([]byte(resp.Content), out); err != nil {
		return engine.Usage{}, fmt.Errorf("%s analysis: malformed engine response: %v", kind, err)
	}
	return resp.Usage, nil
}

func (o *Orchestrator) callCost(u engine.Usage) float64 {
	return float64(u.InputTokens)/1000*o.cfg.InputRatePer1K +
		float64(u.OutputTokens)/1000*o.cfg.OutputRatePer1K
}

// clampResult bounds engine-reported scores to their documented ranges.
func clampResult(sentiment *models.SentimentAnalysis, risk *models.RiskAssessment) {
	sentiment.Score = clamp(sentiment.Score, -1, 1)
	sentiment.Intensity = clamp(sentiment.Intensity, 0, 1)
	sentiment.Subjectivity = clamp(sentiment.Subjectivity, 0, 1)
	risk.OverallRiskScore = clamp(risk.OverallRiskScore, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// raiseAlerts evaluates and stores threshold alerts for a persisted result.
// Failures here never affect the job's terminal status.
func (o *Orchestrator) raiseAlerts(ctx context.Context, result *models.AnalysisResult) {
	for _, alert := range alerts.Evaluate(result) {
		if err := o.store.CreateAlert(ctx, alert); err != nil {
			slog.Error("failed to store alert",
				"error", err,
				"alert_type", alert.Type,
				"analysis_result_id", result.ID,
			)
		}
	}
}
