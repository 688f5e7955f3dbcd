package assemble

import "bskb/internal/model"

// Retrieval strategies. The strategy decides which retrieval dimensions
// stage two fans out to.
const (
	// StrategySemanticFocused biases toward embedding similarity
	StrategySemanticFocused = "semantic_focused"
	// StrategyGraphFocused biases toward structural relationships
	StrategyGraphFocused = "graph_focused"
	// StrategyComprehensive fans out to every available dimension
	StrategyComprehensive = "comprehensive"
	// StrategyAdaptive is comprehensive retrieval chosen by a confident
	// but non-specific intent
	StrategyAdaptive = "adaptive"
)

// adaptiveConfidence is the intent confidence above which a
// non-specific intent switches to the adaptive strategy.
const adaptiveConfidence = 0.7

// chooseStrategy maps a classified intent to a retrieval strategy.
func chooseStrategy(intent model.IntentClassification) string {
	switch intent.Intent {
	case "find_function", "find_module", "find_examples":
		return StrategySemanticFocused
	case "understand_code":
		return StrategyGraphFocused
	case "debug_issue":
		return StrategyComprehensive
	}
	if intent.Confidence > adaptiveConfidence {
		return StrategyAdaptive
	}
	return StrategyComprehensive
}

// contextTypeFor maps an intent to the context type reported to the
// caller when the request left it unset.
func contextTypeFor(intent string) model.ContextType {
	switch intent {
	case "understand_code":
		return model.ContextCodeUnderstanding
	case "debug_issue":
		return model.ContextDebugging
	case "find_examples":
		return model.ContextExamples
	}
	return model.ContextCodeSearch
}

// suggestedActions returns follow-up suggestions keyed by intent.
func suggestedActions(intent string, hasResults bool) []string {
	if !hasResults {
		return []string{
			"Broaden the query or lower the relevance threshold",
			"Verify the index has been loaded",
		}
	}
	switch intent {
	case "find_function":
		return []string{
			"Review the signature and parameters of the top match",
			"Run dependency analysis to see its callers",
		}
	case "find_module":
		return []string{
			"Inspect the module's exported units",
			"Check module coupling in the complexity report",
		}
	case "understand_code":
		return []string{
			"Follow the dependency records to neighboring modules",
			"Look at the call-graph hotspots around these units",
		}
	case "debug_issue":
		return []string{
			"Check circular dependencies involving these modules",
			"Inspect conditional call edges into the top match",
		}
	case "find_examples":
		return []string{
			"Compare call sites of the returned units",
			"Filter by module type to narrow the examples",
		}
	}
	return []string{
		"Refine the query with a module or function name",
		"Enable reranking for higher precision",
	}
}
