package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"bskb/internal/model"
	"bskb/internal/version"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowed(w)
		return
	}
	WriteJSON(w, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   version.Version,
	}, http.StatusOK)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowed(w)
		return
	}

	var req model.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "malformed request body: "+err.Error())
		return
	}

	resp, err := s.searcher.Search(r.Context(), req)
	if err != nil {
		WriteCodedError(w, err)
		return
	}
	WriteJSON(w, resp, http.StatusOK)
}

func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowed(w)
		return
	}

	var req model.ContextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "malformed request body: "+err.Error())
		return
	}

	bundle, err := s.assembler.Assemble(r.Context(), req)
	if err != nil {
		WriteCodedError(w, err)
		return
	}
	WriteJSON(w, bundle, http.StatusOK)
}

func (s *Server) handleAnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowed(w)
		return
	}

	summary, err := s.analyzer.AnalyticsSummary(r.Context())
	if err != nil {
		WriteCodedError(w, err)
		return
	}
	WriteJSON(w, summary, http.StatusOK)
}

func (s *Server) handleCycles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowed(w)
		return
	}

	maxDepth := intParam(r, "maxDepth", 0)
	minLength := intParam(r, "minLength", 0)

	cycles, err := s.analyzer.FindCircularDependencies(r.Context(), maxDepth, minLength)
	if err != nil {
		WriteCodedError(w, err)
		return
	}
	WriteJSON(w, map[string]interface{}{
		"cycles": cycles,
		"total":  len(cycles),
	}, http.StatusOK)
}

func (s *Server) handleHotspots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowed(w)
		return
	}

	topN := intParam(r, "top", 0)
	minCalls := intParam(r, "minCalls", 0)

	hotspots, err := s.analyzer.FindHotspots(r.Context(), topN, minCalls)
	if err != nil {
		WriteCodedError(w, err)
		return
	}
	WriteJSON(w, map[string]interface{}{
		"hotspots": hotspots,
		"total":    len(hotspots),
	}, http.StatusOK)
}

func (s *Server) handleDeadCode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowed(w)
		return
	}

	includeExports := r.URL.Query().Get("includeExports") == "true"

	entries, err := s.analyzer.FindDeadCode(r.Context(), includeExports)
	if err != nil {
		WriteCodedError(w, err)
		return
	}
	WriteJSON(w, map[string]interface{}{
		"deadCode": entries,
		"total":    len(entries),
	}, http.StatusOK)
}

func (s *Server) handleComplexity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowed(w)
		return
	}

	module := r.URL.Query().Get("module")

	metrics, err := s.analyzer.CalculateModuleComplexity(r.Context(), module)
	if err != nil {
		WriteCodedError(w, err)
		return
	}
	WriteJSON(w, map[string]interface{}{
		"modules": metrics,
		"total":   len(metrics),
	}, http.StatusOK)
}

// intParam parses an integer query parameter, returning def when the
// parameter is absent or malformed.
func intParam(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
