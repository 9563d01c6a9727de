package http

import (
	"net/http"
	"strconv"

	"github.com/connecthq/connect-core/internal/port/querylog"
	"github.com/connecthq/connect-core/internal/service"
)

const askBodyLimit = 64 << 10

// Handlers bundles the HTTP handlers over the query service.
type Handlers struct {
	queries *service.QueryService
	cache   *service.ToolCache
	exec    *service.PlanExecutor
}

// NewHandlers creates the handler set.
func NewHandlers(queries *service.QueryService, cache *service.ToolCache, exec *service.PlanExecutor) *Handlers {
	return &Handlers{queries: queries, cache: cache, exec: exec}
}

type askRequest struct {
	Question string `json:"question"`
	Limit    int    `json:"limit,omitempty"`
}

// Ask answers one free-text question about the people graph.
func (h *Handlers) Ask(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[askRequest](w, r, askBodyLimit)
	if !ok {
		return
	}
	if !requireField(w, req.Question, "question") {
		return
	}

	answer, err := h.queries.Ask(r.Context(), req.Question, req.Limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

type statsResponse struct {
	Cache    service.CacheStats    `json:"cache"`
	Executor service.ExecutorStats `json:"executor"`
}

// Stats reports cache and plan execution counters.
func (h *Handlers) Stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statsResponse{
		Cache:    h.cache.Stats(),
		Executor: h.exec.Stats(),
	})
}

// RecentQueries returns the query log, newest first.
func (h *Handlers) RecentQueries(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 200 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 200")
			return
		}
		limit = n
	}

	recs, err := h.queries.RecentQueries(r.Context(), limit)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if recs == nil {
		recs = []querylog.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

// Health reports liveness.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
