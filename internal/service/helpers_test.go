package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/connecthq/connect-core/internal/domain/query"
	"github.com/connecthq/connect-core/internal/port/graphsearch"
)

// memBackend is a thread-safe in-memory cache backend for tests.
// TTLs are recorded, not enforced.
type memBackend struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration

	failGets bool
	failSets bool
}

func newMemBackend() *memBackend {
	return &memBackend{
		data: make(map[string][]byte),
		ttls: make(map[string]time.Duration),
	}
}

func (m *memBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGets {
		return nil, false, errors.New("backend down")
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSets {
		return errors.New("backend down")
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *memBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memBackend) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// fakeSearcher implements graphsearch.Searcher from canned responses.
// Every invocation is recorded with a timestamp so tests can assert
// call counts and ordering.
type fakeSearcher struct {
	mu      sync.Mutex
	results map[string][]query.EntityID // keyed by tool
	errs    map[string]error            // tools that fail
	records map[query.EntityID]string   // fetch responses
	delay   time.Duration

	calls []searchCall
}

type searchCall struct {
	tool string
	at   time.Time
}

func newFakeSearcher() *fakeSearcher {
	return &fakeSearcher{
		results: make(map[string][]query.EntityID),
		errs:    make(map[string]error),
		records: make(map[query.EntityID]string),
	}
}

func (f *fakeSearcher) Invoke(ctx context.Context, tool string, _ map[string]any) (*graphsearch.SearchResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, searchCall{tool: tool, at: time.Now()})
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err, ok := f.errs[tool]; ok {
		return nil, err
	}
	ids, ok := f.results[tool]
	if !ok {
		return nil, fmt.Errorf("unknown tool %s", tool)
	}
	return &graphsearch.SearchResult{EntityIDs: ids}, nil
}

func (f *fakeSearcher) Fetch(_ context.Context, id query.EntityID) (*graphsearch.FetchResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, searchCall{tool: "fetch", at: time.Now()})
	f.mu.Unlock()

	raw, ok := f.records[id]
	if !ok {
		return nil, fmt.Errorf("no record %d", id)
	}
	return &graphsearch.FetchResult{EntityID: id, RawText: raw}, nil
}

func (f *fakeSearcher) callCount(tool string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.tool == tool {
			n++
		}
	}
	return n
}

func (f *fakeSearcher) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// testTTLs returns tier lifetimes for tests.
func testTTLs() TTLs {
	return TTLs{Dynamic: time.Minute, Standard: 5 * time.Minute, Stable: 30 * time.Minute}
}
