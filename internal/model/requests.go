package model

import "time"

// SearchMode selects the retrieval strategy for one request.
type SearchMode string

const (
	// ModeSemanticOnly queries only the vector collaborator
	ModeSemanticOnly SearchMode = "semantic_only"
	// ModeGraphOnly queries only the graph collaborator
	ModeGraphOnly SearchMode = "graph_only"
	// ModeHybrid fans out to both and fuses scores
	ModeHybrid SearchMode = "hybrid"
	// ModeIntelligent adds intent classification and optional reranking
	ModeIntelligent SearchMode = "intelligent"
	// ModeMultiStage runs wide recall, graph enrichment, refusion, rerank
	ModeMultiStage SearchMode = "multi_stage"
)

// ParseSearchMode validates a mode string.
func ParseSearchMode(s string) (SearchMode, bool) {
	switch SearchMode(s) {
	case ModeSemanticOnly, ModeGraphOnly, ModeHybrid, ModeIntelligent, ModeMultiStage:
		return SearchMode(s), true
	}
	return "", false
}

// Request limits enforced at the orchestrator boundary.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// SearchRequest is the fully enumerated search configuration. Zero values
// mean "unset"; Max* fields of 0 mean "no upper bound".
type SearchRequest struct {
	Query string     `json:"query"`
	Mode  SearchMode `json:"mode"`
	Limit int        `json:"limit"`

	ModuleTypes     []string `json:"moduleTypes,omitempty"`
	FilePathPattern string   `json:"filePathPattern,omitempty"`

	MinScore float64 `json:"minScore"`

	MinFunctions int `json:"minFunctions,omitempty"`
	MaxFunctions int `json:"maxFunctions,omitempty"`
	MinVariables int `json:"minVariables,omitempty"`
	MaxVariables int `json:"maxVariables,omitempty"`

	UseLLMReranking bool `json:"useLlmReranking"`
}

// Normalize fills defaults for unset fields.
func (r *SearchRequest) Normalize() {
	if r.Mode == "" {
		r.Mode = ModeHybrid
	}
	if r.Limit == 0 {
		r.Limit = DefaultLimit
	}
}

// Invalid describes a rejected request. This is the only error class a
// valid caller sees as a hard failure; every backend-level failure
// degrades instead.
type Invalid struct {
	Field   string
	Message string
}

func (e *Invalid) Error() string {
	return "invalid request: " + e.Field + ": " + e.Message
}

// Validate rejects malformed requests before any backend call.
func (r *SearchRequest) Validate() error {
	if r.Query == "" {
		return &Invalid{Field: "query", Message: "must not be empty"}
	}
	if _, ok := ParseSearchMode(string(r.Mode)); !ok {
		return &Invalid{Field: "mode", Message: "unknown search mode " + string(r.Mode)}
	}
	if r.Limit < 1 || r.Limit > MaxLimit {
		return &Invalid{Field: "limit", Message: "must be between 1 and 100"}
	}
	if r.MinScore < 0 || r.MinScore > 1 {
		return &Invalid{Field: "minScore", Message: "must be within [0,1]"}
	}
	if r.MaxFunctions > 0 && r.MinFunctions > r.MaxFunctions {
		return &Invalid{Field: "minFunctions", Message: "exceeds maxFunctions"}
	}
	if r.MaxVariables > 0 && r.MinVariables > r.MaxVariables {
		return &Invalid{Field: "minVariables", Message: "exceeds maxVariables"}
	}
	return nil
}

// SearchResult is one entry of the public ordered response.
type SearchResult struct {
	UnitID   string   `json:"unitId"`
	Name     string   `json:"name"`
	Kind     UnitKind `json:"kind"`
	Module   string   `json:"module"`
	FilePath string   `json:"filePath"`

	Score   float64 `json:"score"`
	Summary string  `json:"summary"`

	FunctionsCount int `json:"functionsCount"`
	VariablesCount int `json:"variablesCount"`

	Sources   []RetrievalSource `json:"sources"`
	Reranked  bool              `json:"reranked"`
	Reasoning string            `json:"reasoning,omitempty"`
}

// SearchResponse is the public search envelope.
type SearchResponse struct {
	Query      string         `json:"query"`
	Mode       SearchMode     `json:"mode"`
	Results    []SearchResult `json:"results"`
	TotalFound int            `json:"totalFound"`

	// Degraded lists branches that failed and were absorbed
	Degraded []string `json:"degraded,omitempty"`

	DurationMs int64 `json:"durationMs"`
}

// ContextType classifies what kind of context bundle to assemble.
type ContextType string

const (
	ContextCodeSearch        ContextType = "code_search"
	ContextCodeUnderstanding ContextType = "code_understanding"
	ContextDebugging         ContextType = "debugging"
	ContextExamples          ContextType = "examples"
	ContextDocumentation     ContextType = "documentation"
)

// ContextRequest configures one context-assembly invocation. ContextType
// empty means "detect from intent".
type ContextRequest struct {
	Query       string      `json:"query"`
	ContextType ContextType `json:"contextType,omitempty"`
	MaxResults  int         `json:"maxResults"`

	IncludeDependencies bool `json:"includeDependencies"`
	IncludeHistory      bool `json:"includeHistory"`
	TemporalWindowDays  int  `json:"temporalWindowDays,omitempty"`

	PreferredModuleTypes []string `json:"preferredModuleTypes,omitempty"`
	ExcludePatterns      []string `json:"excludePatterns,omitempty"`

	MinRelevance float64 `json:"minRelevance"`
}

// Normalize fills defaults for unset fields.
func (r *ContextRequest) Normalize() {
	if r.MaxResults == 0 {
		r.MaxResults = DefaultLimit
	}
	if r.TemporalWindowDays == 0 {
		r.TemporalWindowDays = 30
	}
}

// Validate rejects malformed context requests.
func (r *ContextRequest) Validate() error {
	if r.Query == "" {
		return &Invalid{Field: "query", Message: "must not be empty"}
	}
	if r.MaxResults < 1 || r.MaxResults > MaxLimit {
		return &Invalid{Field: "maxResults", Message: "must be between 1 and 100"}
	}
	if r.MinRelevance < 0 || r.MinRelevance > 1 {
		return &Invalid{Field: "minRelevance", Message: "must be within [0,1]"}
	}
	if r.ContextType != "" {
		switch r.ContextType {
		case ContextCodeSearch, ContextCodeUnderstanding, ContextDebugging, ContextExamples, ContextDocumentation:
		default:
			return &Invalid{Field: "contextType", Message: "unknown context type " + string(r.ContextType)}
		}
	}
	return nil
}

// AssembledContext is the context bundle returned by the four-stage
// assembly pipeline. Returned to the caller; never persisted here.
type AssembledContext struct {
	Query       string      `json:"query"`
	ContextType ContextType `json:"contextType"`
	Strategy    string      `json:"strategy"`

	Primary    []SearchResult `json:"primary"`
	Supporting []SearchResult `json:"supporting"`

	Dependencies []DependencyRecord `json:"dependencies,omitempty"`

	AvgRelevance float64 `json:"avgRelevance"`

	Intent IntentClassification `json:"intent"`

	SuggestedActions []string `json:"suggestedActions"`

	ProcessingTime time.Duration `json:"-"`
	DurationMs     int64         `json:"durationMs"`
}
