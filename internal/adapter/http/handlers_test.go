package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/connecthq/connect-core/internal/adapter/ws"
	"github.com/connecthq/connect-core/internal/domain/profile"
	"github.com/connecthq/connect-core/internal/domain/query"
	"github.com/connecthq/connect-core/internal/port/graphsearch"
	"github.com/connecthq/connect-core/internal/service"
)

// stubCache is a minimal in-memory cache backend.
type stubCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (s *stubCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *stubCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *stubCache) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// stubSearcher serves canned graph responses.
type stubSearcher struct{}

func (stubSearcher) Invoke(_ context.Context, tool string, _ map[string]any) (*graphsearch.SearchResult, error) {
	if tool != "find_people_by_skill" {
		return nil, fmt.Errorf("unknown tool %s", tool)
	}
	return &graphsearch.SearchResult{EntityIDs: []query.EntityID{1, 2}}, nil
}

func (stubSearcher) Fetch(_ context.Context, id query.EntityID) (*graphsearch.FetchResult, error) {
	return &graphsearch.FetchResult{
		EntityID: id,
		RawText:  fmt.Sprintf(`{"name": "Person %d"}`, id),
	}, nil
}

// stubPlanner emits a fixed single-tool plan, or a broken one.
type stubPlanner struct {
	empty bool
}

func (p stubPlanner) Decompose(_ context.Context, _ string) (map[string]any, error) {
	return map[string]any{"skill_filters": []any{"go"}}, nil
}

func (p stubPlanner) GeneratePlan(_ context.Context, question string, _ map[string]any) (*query.ExecutionPlan, error) {
	if p.empty {
		return &query.ExecutionPlan{ID: "p", Strategy: query.StrategyUnion}, nil
	}
	return query.NewPlan(question, query.StrategyUnion, []query.SubQuery{
		{ID: "a", Tool: "find_people_by_skill", Priority: 1},
	}), nil
}

type stubSynthesizer struct{}

func (stubSynthesizer) Synthesize(_ context.Context, profiles []*profile.Profile, _ string, totalMatches int) (string, error) {
	return fmt.Sprintf("found %d people, showing %d", totalMatches, len(profiles)), nil
}

func newTestRouter(planner stubPlanner) *chi.Mux {
	tc := service.NewToolCache(
		&stubCache{data: make(map[string][]byte)},
		service.TTLs{Dynamic: time.Minute, Standard: 5 * time.Minute, Stable: 30 * time.Minute},
	)
	exec := service.NewPlanExecutor(stubSearcher{}, tc, nil, nil, time.Second)
	svc := service.NewQueryService(planner, stubSynthesizer{}, exec, nil, nil, 5*time.Second, 10)

	r := chi.NewRouter()
	MountRoutes(r, NewHandlers(svc, tc, exec), ws.NewHub())
	return r
}

func doRequest(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAskEndpoint(t *testing.T) {
	r := newTestRouter(stubPlanner{})

	rec := doRequest(t, r, http.MethodPost, "/api/v1/ask", `{"question": "go engineers"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var answer struct {
		Question     string `json:"question"`
		Answer       string `json:"answer"`
		TotalMatches int    `json:"total_matches"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &answer); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if answer.TotalMatches != 2 {
		t.Errorf("total matches = %d, want 2", answer.TotalMatches)
	}
	if answer.Answer != "found 2 people, showing 2" {
		t.Errorf("answer = %q", answer.Answer)
	}
}

func TestAskEndpointValidation(t *testing.T) {
	r := newTestRouter(stubPlanner{})

	cases := []struct {
		name string
		body string
		want int
	}{
		{"missing question", `{}`, http.StatusBadRequest},
		{"malformed body", `{question}`, http.StatusBadRequest},
		{"empty question", `{"question": ""}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, r, http.MethodPost, "/api/v1/ask", tc.body)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestAskEndpointEmptyPlan(t *testing.T) {
	r := newTestRouter(stubPlanner{empty: true})

	rec := doRequest(t, r, http.MethodPost, "/api/v1/ask", `{"question": "anything"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestStatsEndpoint(t *testing.T) {
	r := newTestRouter(stubPlanner{})

	if rec := doRequest(t, r, http.MethodPost, "/api/v1/ask", `{"question": "q"}`); rec.Code != http.StatusOK {
		t.Fatalf("ask failed: %d", rec.Code)
	}

	rec := doRequest(t, r, http.MethodGet, "/api/v1/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var stats struct {
		Cache struct {
			Misses int64 `json:"misses"`
		} `json:"cache"`
		Executor struct {
			PlansExecuted int64 `json:"plans_executed"`
		} `json:"executor"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.Executor.PlansExecuted != 1 {
		t.Errorf("plans executed = %d, want 1", stats.Executor.PlansExecuted)
	}
	if stats.Cache.Misses == 0 {
		t.Error("expected at least one cache miss")
	}
}

func TestRecentQueriesEndpoint(t *testing.T) {
	r := newTestRouter(stubPlanner{})

	rec := doRequest(t, r, http.MethodGet, "/api/v1/queries/recent", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("body = %s, want empty array", body)
	}

	rec = doRequest(t, r, http.MethodGet, "/api/v1/queries/recent?limit=0", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for bad limit", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestRouter(stubPlanner{})

	rec := doRequest(t, r, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
