// Package server exposes the analysis pipeline over HTTP. Handlers stay
// thin: decode, delegate, encode the uniform envelope. All semantics live
// in the core packages.
package server

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/querywarden/querywarden/internal/analysis"
	"github.com/querywarden/querywarden/internal/knowledge"
	"github.com/querywarden/querywarden/internal/orchestrator"
)

const maxBatchSize = 100

// Server routes analysis, ingestion, search and health endpoints.
type Server struct {
	mux       *http.ServeMux
	orch      *orchestrator.Orchestrator
	retriever *knowledge.Retriever
}

func New(orch *orchestrator.Orchestrator, retriever *knowledge.Retriever) *Server {
	s := &Server{
		mux:       http.NewServeMux(),
		orch:      orch,
		retriever: retriever,
	}
	s.mux.HandleFunc("/v1/analyze", s.handleAnalyze)
	s.mux.HandleFunc("/v1/analyze/batch", s.handleBatch)
	s.mux.HandleFunc("/v1/ingest", s.handleIngest)
	s.mux.HandleFunc("/v1/search", s.handleSearch)
	s.mux.HandleFunc("/v1/health", s.handleHealth)
	return s
}

func (s *Server) Handler() http.Handler { return s.mux }

// envelope mirrors the service-client response shape on the wire.
type envelope struct {
	Status    string             `json:"status"`
	Data      any                `json:"data,omitempty"`
	Error     string             `json:"error,omitempty"`
	Code      analysis.ErrorCode `json:"code,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

func writeSuccess(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(envelope{
		Status:    "success",
		Data:      data,
		Timestamp: time.Now().UTC(),
	}); err != nil {
		log.Printf("failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, httpStatus int, code analysis.ErrorCode, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	if err := json.NewEncoder(w).Encode(envelope{
		Status:    "error",
		Error:     msg,
		Code:      code,
		Timestamp: time.Now().UTC(),
	}); err != nil {
		log.Printf("failed to write error response: %v", err)
	}
}

// writeFailure maps an internal error onto an HTTP status.
func writeFailure(w http.ResponseWriter, err error) {
	code := analysis.CodeOf(err)
	switch code {
	case analysis.CodeInput:
		writeError(w, http.StatusBadRequest, code, err.Error())
	case analysis.CodeProviderUnavailable, analysis.CodeTimeout:
		writeError(w, http.StatusServiceUnavailable, code, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, code, err.Error())
	}
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req analysis.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, analysis.CodeInput, "invalid JSON body")
		return
	}

	result, err := s.orch.Analyze(r.Context(), req)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeSuccess(w, result)
}

type batchRequest struct {
	Queries []analysis.Request `json:"queries"`
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, analysis.CodeInput, "invalid JSON body")
		return
	}
	if len(req.Queries) == 0 {
		writeError(w, http.StatusBadRequest, analysis.CodeInput, "queries must not be empty")
		return
	}
	if len(req.Queries) > maxBatchSize {
		writeError(w, http.StatusBadRequest, analysis.CodeInput, "batch exceeds maximum size")
		return
	}

	writeSuccess(w, s.orch.BatchAnalyze(r.Context(), req.Queries))
}

type ingestRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
	Type    string `json:"type"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.retriever == nil {
		writeError(w, http.StatusServiceUnavailable, analysis.CodeProviderUnavailable, "retrieval is not configured")
		return
	}
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, analysis.CodeInput, "invalid JSON body")
		return
	}

	receipt, err := s.retriever.Ingest(r.Context(), req.Name, req.Content, req.Type)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeSuccess(w, receipt)
}

type searchRequest struct {
	Query          string  `json:"query"`
	K              int     `json:"k"`
	ScoreThreshold float64 `json:"score_threshold"`
	Source         string  `json:"source"`
	Mode           string  `json:"mode"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.retriever == nil {
		writeError(w, http.StatusServiceUnavailable, analysis.CodeProviderUnavailable, "retrieval is not configured")
		return
	}
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, analysis.CodeInput, "invalid JSON body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, analysis.CodeInput, "query must not be empty")
		return
	}

	hits := s.retriever.Search(r.Context(), req.Query, knowledge.Options{
		K:              req.K,
		ScoreThreshold: req.ScoreThreshold,
		SourceFilter:   req.Source,
		Mode:           knowledge.Mode(req.Mode),
	})
	results := make([]analysis.SearchResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, analysis.SearchResult{
			DocumentID: h.Document.ID,
			Name:       h.Document.Name,
			Content:    h.Document.Content,
			Score:      h.Score,
			Source:     h.Source,
		})
	}
	writeSuccess(w, results)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeSuccess(w, s.orch.HealthCheck())
}
