// Package prompt renders the instruction text for each analysis kind. Pure
// functions only: content in, prompt out.
package prompt

import (
	"encoding/json"
	"fmt"

	"github.com/civitas-io/mediawatch/pkg/models"
)

// Input is the content fed into a prompt. Title is empty for social posts.
type Input struct {
	ContentType string
	Title       string
	Body        string
}

// Request is a rendered system preamble plus user prompt.
type Request struct {
	System string
	User   string
}

const systemPreamble = `You are the analysis engine of a civic media-monitoring platform. ` +
	`You receive one content item per request and respond with a single well-formed JSON object ` +
	`matching the requested schema exactly. No prose, no markdown fences.`

func contentBlock(in Input) string {
	if in.Title != "" {
		return fmt.Sprintf("Content type: %s\nTitle: %s\n\n%s", in.ContentType, in.Title, in.Body)
	}
	return fmt.Sprintf("Content type: %s\n\n%s", in.ContentType, in.Body)
}

// TextAnalysis renders the summarization/categorization prompt.
func TextAnalysis(in Input) Request {
	return Request{
		System: systemPreamble,
		User: fmt.Sprintf(`Summarize and categorize the following content. Respond with JSON:
{"summary": string, "key_points": [string], "keywords": [string], "category": string, "complexity": "low"|"medium"|"high", "word_count": number}

%s`, contentBlock(in)),
	}
}

// SentimentAnalysis renders the sentiment scoring prompt.
func SentimentAnalysis(in Input) Request {
	return Request{
		System: systemPreamble,
		User: fmt.Sprintf(`Score the sentiment of the following content. Respond with JSON:
{"overall": "positive"|"neutral"|"negative", "score": number in [-1,1], "intensity": number in [0,1], "emotions": {emotion: number in [0,1]}, "urgency_level": "low"|"medium"|"high"|"critical", "subjectivity": number in [0,1], "bias_indicators": [string]}

%s`, contentBlock(in)),
	}
}

// EntityRecognition renders the named-entity extraction prompt.
func EntityRecognition(in Input) Request {
	return Request{
		System: systemPreamble,
		User: fmt.Sprintf(`Extract named entities from the following content. Respond with JSON:
{"persons": [{"name": string, "relevance": number in [0,1]}], "organizations": [...], "locations": [...], "government_entities": [...]}

%s`, contentBlock(in)),
	}
}

// RiskAssessment renders the risk scoring prompt. It embeds the sentiment
// score and recognized entities from the earlier sub-calls as context, which
// is why this prompt can only be built after those two have completed.
func RiskAssessment(in Input, sentiment models.SentimentAnalysis, entities models.EntityRecognition) Request {
	entityCtx, _ := json.Marshal(entities)
	return Request{
		System: systemPreamble,
		User: fmt.Sprintf(`Assess the governance risk of the following content. Respond with JSON:
{"overall_risk_score": number in [0,100], "categories": {category: number in [0,100]}, "governance_impact": {dimension: number in [0,100]}, "intervention_urgency": "low"|"medium"|"high"|"critical"}

Prior sentiment score: %.2f (overall %q, intensity %.2f, urgency %q)
Recognized entities: %s

%s`, sentiment.Score, sentiment.Overall, sentiment.Intensity, sentiment.UrgencyLevel,
			string(entityCtx), contentBlock(in)),
	}
}
