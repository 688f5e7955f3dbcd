package model

// UnitKind classifies an indexed code unit.
type UnitKind string

const (
	// KindModule is a BSL common module or object module
	KindModule UnitKind = "module"
	// KindFunction is a function (returns a value)
	KindFunction UnitKind = "function"
	// KindProcedure is a procedure (no return value)
	KindProcedure UnitKind = "procedure"
)

// CodeUnit is one indexed unit of source code. Produced by the upstream
// indexer; read-only in this system.
type CodeUnit struct {
	// ID is the stable identifier, unique across a request
	ID string `json:"id"`

	// Name is the human-readable unit name
	Name string `json:"name"`

	// Kind is the unit kind (module, function, procedure)
	Kind UnitKind `json:"kind"`

	// Module is the name of the containing module (the unit's own name
	// for module units)
	Module string `json:"module"`

	// FilePath is the source file containing the unit
	FilePath string `json:"filePath"`

	// Parameters lists declared parameter names
	Parameters []string `json:"parameters,omitempty"`

	// IsExport indicates the unit is exported from its module
	IsExport bool `json:"isExport"`

	// StartLine and EndLine bound the unit in its file
	StartLine int `json:"startLine"`
	EndLine   int `json:"endLine"`

	// VariablesCount is an auxiliary payload count supplied by the
	// indexer (module-level variable declarations)
	VariablesCount int `json:"variablesCount,omitempty"`
}

// SearchFilter narrows retrieval candidates. Zero values mean "no
// constraint"; Max* fields of 0 mean "no upper bound".
type SearchFilter struct {
	ModuleTypes     []string
	FilePathPattern string
	MinFunctions    int
	MaxFunctions    int
	MinVariables    int
	MaxVariables    int
}

// CallEdge is one directed call relationship between two units.
type CallEdge struct {
	// SourceID is the calling unit
	SourceID string `json:"sourceId"`

	// TargetID is the called unit
	TargetID string `json:"targetId"`

	// CallCount is how many call sites exist
	CallCount int `json:"callCount"`

	// Lines lists the call-site line numbers
	Lines []int `json:"lines,omitempty"`

	// Conditional indicates the call sits inside a conditional branch
	Conditional bool `json:"conditional"`
}

// RetrievalSource tags which retrieval signal produced a result.
type RetrievalSource string

const (
	// SourceSemantic is embedding-similarity search
	SourceSemantic RetrievalSource = "semantic"
	// SourceGraph is call-graph / name-match search
	SourceGraph RetrievalSource = "graph"
	// SourceHybrid is an internally pre-combined source
	SourceHybrid RetrievalSource = "hybrid"
	// SourceTemporal is recent-activity search
	SourceTemporal RetrievalSource = "temporal"
)

// RetrievalResult is one candidate returned by a retrieval collaborator.
// Ephemeral; created per request.
type RetrievalResult struct {
	UnitID   string   `json:"unitId"`
	Name     string   `json:"name"`
	Kind     UnitKind `json:"kind"`
	Module   string   `json:"module"`
	FilePath string   `json:"filePath"`

	// Score is the raw per-source score in [0,1]
	Score float64 `json:"score"`

	// Source identifies the producing retrieval signal
	Source RetrievalSource `json:"source"`

	// Summary is a short human-readable description
	Summary string `json:"summary"`

	// FunctionsCount and VariablesCount are auxiliary payload counts
	FunctionsCount int `json:"functionsCount"`
	VariablesCount int `json:"variablesCount"`
}

// FusedResult is a deduplicated candidate with per-source score
// contributions combined into one weighted score.
type FusedResult struct {
	RetrievalResult

	// CombinedScore is the weighted sum over contributing sources
	CombinedScore float64 `json:"combinedScore"`

	// ScoreBreakdown maps each contributing source to its weighted share
	ScoreBreakdown map[RetrievalSource]float64 `json:"scoreBreakdown,omitempty"`

	// Sources is the provenance set (union of contributing source tags)
	Sources []RetrievalSource `json:"sources"`
}

// RankedResult is a FusedResult after LLM precision ranking.
type RankedResult struct {
	FusedResult

	// LLMScore is the model-assigned score in [0,1]
	LLMScore float64 `json:"llmScore"`

	// Reasoning is the model's free-text justification
	Reasoning string `json:"reasoning"`

	// Reranked is false when ranking fell back to the fused order
	Reranked bool `json:"reranked"`
}

// IntentClassification is the parsed output of LLM intent analysis.
type IntentClassification struct {
	Intent           string            `json:"intent"`
	Confidence       float64           `json:"confidence"`
	Reasoning        string            `json:"reasoning"`
	SuggestedFilters map[string]string `json:"suggestedFilters,omitempty"`
}

// CycleSeverity classifies a dependency cycle by length.
type CycleSeverity string

const (
	CycleInfo     CycleSeverity = "info"
	CycleWarning  CycleSeverity = "warning"
	CycleCritical CycleSeverity = "critical"
)

// Cycle is one directed cycle in the call graph. Nodes starts and ends
// with the same unit id and contains no internal duplicates.
type Cycle struct {
	Nodes    []string      `json:"nodes"`
	Length   int           `json:"length"`
	Severity CycleSeverity `json:"severity"`
}

// HotspotSeverity classifies a hotspot by total call volume.
type HotspotSeverity string

const (
	HotspotLow    HotspotSeverity = "low"
	HotspotMedium HotspotSeverity = "medium"
	HotspotHigh   HotspotSeverity = "high"
)

// Hotspot is a unit with disproportionately high call traffic.
type Hotspot struct {
	UnitID   string `json:"unitId"`
	Name     string `json:"name"`
	Module   string `json:"module"`
	FilePath string `json:"filePath"`

	IncomingCalls int `json:"incomingCalls"`
	OutgoingCalls int `json:"outgoingCalls"`

	// FanIn / FanOut count distinct other modules calling in / called out
	FanIn  int `json:"fanIn"`
	FanOut int `json:"fanOut"`

	Severity HotspotSeverity `json:"severity"`
}

// Dead code reason codes.
const (
	ReasonNotExported = "no_incoming_calls_not_exported"
	ReasonButExported = "no_incoming_calls_but_exported"
)

// DeadCodeEntry is a unit with zero incoming call edges.
type DeadCodeEntry struct {
	UnitID   string `json:"unitId"`
	Name     string `json:"name"`
	Module   string `json:"module"`
	IsExport bool   `json:"isExport"`
	Reason   string `json:"reason"`
}

// ComplexityMetrics aggregates per-module complexity signals. The
// cyclomatic and cohesion formulas are calibrated approximations; the
// downstream thresholds were tuned against them, so they are reproduced
// exactly rather than replaced with textbook definitions.
type ComplexityMetrics struct {
	Module          string `json:"module"`
	FunctionsCount  int    `json:"functionsCount"`
	ProceduresCount int    `json:"proceduresCount"`

	TotalIncomingCalls int `json:"totalIncomingCalls"`
	TotalOutgoingCalls int `json:"totalOutgoingCalls"`

	// CyclomaticComplexity = (functions + procedures) + total outgoing calls
	CyclomaticComplexity int `json:"cyclomaticComplexity"`

	// Coupling counts distinct other modules one call hop away
	Coupling int `json:"coupling"`

	// Cohesion = totalOutgoing / (n*(n-1)) clamped to [0,1]; 1.0 when n <= 1
	Cohesion float64 `json:"cohesion"`
}

// DependencyRecord describes one unit's module-level dependencies.
type DependencyRecord struct {
	UnitID     string   `json:"unitId"`
	Module     string   `json:"module"`
	Imports    []string `json:"imports,omitempty"`
	ImportedBy []string `json:"importedBy,omitempty"`
}

// Clamp01 clamps a score to [0.0, 1.0].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
