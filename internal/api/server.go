package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"spacebio/internal/config"
	"spacebio/internal/models"
	"spacebio/internal/search"
	"spacebio/internal/store"
	"spacebio/internal/summary"
	"spacebio/internal/util"

	"github.com/google/uuid"
)

type Server struct {
	cfg      config.Config
	store    *store.Store
	engine   *search.Engine
	pipeline *summary.Pipeline
}

func NewServer(cfg config.Config, st *store.Store, engine *search.Engine, pipeline *summary.Pipeline) *Server {
	return &Server{cfg: cfg, store: st, engine: engine, pipeline: pipeline}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/search", s.handleSearch)
	mux.HandleFunc("/search_metadata", s.handleSearchMetadata)
	mux.HandleFunc("/qa", s.handleQA)
	mux.HandleFunc("/paper/", s.handlePaper)
	mux.HandleFunc("/paper_summarized/", s.handlePaperSummarized)
	return withCORS(withRequestLog(mux))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "num_passages": s.store.NumPassages()})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	q := r.URL.Query().Get("q")
	k := queryInt(r, "k", s.cfg.DefaultK)
	perPaper := queryBool(r, "per_paper")

	results, err := s.engine.Search(r.Context(), q, k, perPaper)
	if err != nil {
		writeErr(w, err)
		return
	}
	if results == nil {
		results = []models.SearchResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"query": strings.TrimSpace(q), "k": k, "results": results})
}

func (s *Server) handleSearchMetadata(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"num_passages": s.store.NumPassages(),
		"by_section":   s.store.SectionCounts(),
	})
}

func (s *Server) handleQA(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	q := r.URL.Query().Get("q")
	k := queryInt(r, "k", 10)

	res, err := s.engine.Answer(r.Context(), q, k, s.store)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handlePaper(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	paperID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/paper/"), "/")
	if paperID == "" {
		writeErr(w, util.ErrNotFound)
		return
	}
	doc, err := s.store.LoadDocument(r.Context(), paperID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handlePaperSummarized(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	paperID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/paper_summarized/"), "/")
	if paperID == "" {
		writeErr(w, util.ErrNotFound)
		return
	}
	sum, err := s.pipeline.GetSummary(r.Context(), paperID)
	if err != nil {
		writeErr(w, err)
		return
	}
	// The document is already memoized by the summary path.
	doc, err := s.store.LoadDocument(r.Context(), paperID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"paper_id":      sum.PaperID,
		"title":         doc.Title,
		"link":          doc.Link,
		"summary":       sum,
		"illustrations": store.CollectIllustrations(doc, 6),
	})
}

func queryInt(r *http.Request, name string, fallback int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func queryBool(r *http.Request, name string) bool {
	v := strings.ToLower(r.URL.Query().Get(name))
	return v == "1" || v == "true" || v == "yes"
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type apiError struct {
	Status  int
	Code    string
	Message string
}

// mapError translates engine error kinds into user-safe coded
// responses. Missing papers and missing source text are normal
// outcomes, upstream faults are gateway errors, and storage faults are
// internal.
func mapError(err error) apiError {
	switch {
	case errors.Is(err, util.ErrInvalidQuery):
		return apiError{http.StatusBadRequest, "SB-API-4001", "A non-empty query and a positive k are required."}
	case errors.Is(err, util.ErrSourceUnavailable):
		return apiError{http.StatusNotFound, "SB-API-4041", "No source text is available for this paper yet."}
	case errors.Is(err, util.ErrNotFound):
		return apiError{http.StatusNotFound, "SB-API-4004", "Requested paper was not found."}
	case errors.Is(err, util.ErrEmbedding), errors.Is(err, util.ErrIndexUnavailable):
		return apiError{http.StatusBadGateway, "SB-API-5020", "Search backend unavailable. Retry shortly."}
	case errors.Is(err, util.ErrSummarizationFailed):
		return apiError{http.StatusBadGateway, "SB-API-5021", "A summary is unavailable for this paper right now."}
	case errors.Is(err, util.ErrStorage):
		return apiError{http.StatusInternalServerError, "SB-DB-5001", "Document storage failed. Please retry."}
	default:
		return apiError{http.StatusInternalServerError, "SB-API-5000", "Internal server error. Please retry or check service logs."}
	}
}

func writeErr(w http.ResponseWriter, err error) {
	e := mapError(err)
	writeJSON(w, e.Status, map[string]any{
		"error": map[string]any{"code": e.Code, "message": e.Message},
	})
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]any{
		"error": map[string]any{"code": "SB-API-4005", "message": "This endpoint does not support the requested method."},
	})
}

func withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("req=%s method=%s path=%s dur=%dms", id, r.Method, r.URL.Path, time.Since(start).Milliseconds())
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
