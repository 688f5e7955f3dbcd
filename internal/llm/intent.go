package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"bskb/internal/logging"
	"bskb/internal/model"
)

// The closed intent set.
const (
	IntentFindFunction   = "find_function"
	IntentFindModule     = "find_module"
	IntentUnderstandCode = "understand_code"
	IntentFindExamples   = "find_examples"
	IntentDebugIssue     = "debug_issue"
	IntentGeneralSearch  = "general_search"
)

var knownIntents = map[string]bool{
	IntentFindFunction:   true,
	IntentFindModule:     true,
	IntentUnderstandCode: true,
	IntentFindExamples:   true,
	IntentDebugIssue:     true,
	IntentGeneralSearch:  true,
}

// FallbackIntent is returned whenever classification cannot produce a
// usable answer. Callers can always rely on getting a classification.
func FallbackIntent() model.IntentClassification {
	return model.IntentClassification{
		Intent:           IntentGeneralSearch,
		Confidence:       0.5,
		Reasoning:        "fallback",
		SuggestedFilters: map[string]string{},
	}
}

// Ranker wraps intent classification and result reranking. Every
// collaborator failure is absorbed here and converted to the documented
// fallback; nothing propagates past this boundary.
type Ranker struct {
	generator Generator
	logger    *logging.Logger
}

// NewRanker creates a ranker over an inference collaborator.
func NewRanker(generator Generator, logger *logging.Logger) *Ranker {
	return &Ranker{generator: generator, logger: logger}
}

const intentPromptTemplate = `You are classifying a code search query against a BSL codebase.

Query: %q

Pick exactly one intent from this list:
- find_function: looking for a specific function or procedure
- find_module: looking for a specific module
- understand_code: wants to understand how some code works
- find_examples: wants usage examples
- debug_issue: investigating a bug or failure
- general_search: anything else

Respond with JSON only, no commentary:
{"intent": "...", "confidence": 0.0, "reasoning": "...", "suggested_filters": {}}`

type intentPayload struct {
	Intent           string            `json:"intent"`
	Confidence       float64           `json:"confidence"`
	Reasoning        string            `json:"reasoning"`
	SuggestedFilters map[string]string `json:"suggested_filters"`
}

// ClassifyIntent asks the model to classify the query. On any failure
// (collaborator error, malformed output, unknown intent) it returns the
// documented fallback.
func (r *Ranker) ClassifyIntent(ctx context.Context, query string) model.IntentClassification {
	if r.generator == nil {
		return FallbackIntent()
	}

	response, err := r.generator.Generate(ctx, fmt.Sprintf(intentPromptTemplate, query))
	if err != nil {
		r.logger.Warn("Intent classification failed, using fallback", map[string]interface{}{
			"error": err.Error(),
		})
		return FallbackIntent()
	}

	raw, err := ExtractJSON(response)
	if err != nil {
		r.logger.Warn("Intent response not parseable, using fallback", map[string]interface{}{
			"error": err.Error(),
		})
		return FallbackIntent()
	}

	var payload intentPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return FallbackIntent()
	}

	intent := strings.TrimSpace(strings.ToLower(payload.Intent))
	if !knownIntents[intent] {
		r.logger.Debug("Model returned unknown intent", map[string]interface{}{
			"intent": payload.Intent,
		})
		return FallbackIntent()
	}

	filters := payload.SuggestedFilters
	if filters == nil {
		filters = map[string]string{}
	}
	return model.IntentClassification{
		Intent:           intent,
		Confidence:       model.Clamp01(payload.Confidence),
		Reasoning:        payload.Reasoning,
		SuggestedFilters: filters,
	}
}
