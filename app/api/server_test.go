package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lysyi3m/race-comb/app/dedup"
	"github.com/lysyi3m/race-comb/app/event"
	"github.com/lysyi3m/race-comb/app/ingest"
	"github.com/lysyi3m/race-comb/app/normalize"
	"github.com/lysyi3m/race-comb/app/providers"
	"github.com/lysyi3m/race-comb/app/source"
)

const testKey = "s3cret"

type testConfigs map[string]*providers.Config

func (t testConfigs) GetConfigs() map[string]*providers.Config { return t }
func (t testConfigs) GetConfigCount() int                      { return len(t) }

type gatedAdapter struct {
	name string
	gate chan struct{}
}

func (a *gatedAdapter) Provider() string  { return a.name }
func (a *gatedAdapter) UsesBrowser() bool { return false }

func (a *gatedAdapter) Extract(ctx context.Context, _ source.Loader, emit source.Emit) (source.Stats, error) {
	if a.gate != nil {
		select {
		case <-a.gate:
		case <-ctx.Done():
			return source.Stats{}, ctx.Err()
		}
	}
	emit(event.RawCandidate{
		SourcePlatform:  a.name,
		SourceEventID:   "991",
		RawTitle:        "Corrida X",
		RawDateText:     "14/12/2025",
		RawLocationText: "Campinas - SP",
	})
	return source.Stats{Emitted: 1}, nil
}

type memoryEvents struct {
	*dedup.MemoryStore
}

func (m memoryEvents) CountEvents(context.Context) (int, error) {
	return m.Count(), nil
}

func (m memoryEvents) CountEventsByPlatform(context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	for id := int64(1); id <= int64(m.Count()); id++ {
		if e, ok := m.Get(id); ok {
			counts[e.SourcePlatform]++
		}
	}
	return counts, nil
}

func (m memoryEvents) GetEvent(_ context.Context, id int64) (*event.CanonicalEvent, error) {
	e, ok := m.Get(id)
	if !ok {
		return nil, nil
	}
	return &e, nil
}

type testServer struct {
	handler http.Handler
	adapter *gatedAdapter
	events  memoryEvents
}

func newTestServer(t *testing.T, apiKey string) *testServer {
	t.Helper()

	adapter := &gatedAdapter{name: "corridasbr"}
	configs := testConfigs{
		"corridasbr": {Name: "corridasbr", Enabled: true, Kind: "gated", BaseURL: "https://corridas.example.com"},
	}
	registry := source.NewRegistry()
	registry.Register("gated", func(*providers.Config) (source.Adapter, error) { return adapter, nil })

	events := memoryEvents{dedup.NewMemoryStore()}
	orchestrator := ingest.New(configs, registry, normalize.NewNormalizer(), dedup.NewEngine(events), ingest.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	handler := NewHandler(ctx, orchestrator, configs, events)
	return &testServer{handler: NewServer(handler, apiKey), adapter: adapter, events: events}
}

func (s *testServer) do(method, path, body string, authorized bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authorized {
		req.Header.Set("X-API-Key", testKey)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("Invalid JSON %q: %v", w.Body.String(), err)
	}
	return out
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, "")

	w := s.do("GET", "/health", "", false)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	body := decode(t, w)
	if body["events"] != float64(0) || body["loaded_configurations"] != float64(1) {
		t.Errorf("Unexpected health body %v", body)
	}

	w = s.do("GET", "/metrics", "", false)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Errorf("Expected Prometheus exposition, got %d", w.Code)
	}
}

func TestAPIDisabledWithoutKey(t *testing.T) {
	s := newTestServer(t, "")
	if w := s.do("POST", "/api/runs", "", true); w.Code != http.StatusNotFound {
		t.Errorf("Expected API routes to be absent, got %d", w.Code)
	}
}

func TestAPIRequiresKey(t *testing.T) {
	s := newTestServer(t, testKey)

	if w := s.do("GET", "/api/providers", "", false); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without key, got %d", w.Code)
	}

	req := httptest.NewRequest("GET", "/api/providers", nil)
	req.Header.Set("Authorization", "Bearer "+testKey)
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected bearer token to be accepted, got %d", w.Code)
	}

	req = httptest.NewRequest("GET", "/api/providers", nil)
	req.Header.Set("X-API-Key", "wrong")
	w = httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for wrong key, got %d", w.Code)
	}
}

func TestStartRunAndWait(t *testing.T) {
	s := newTestServer(t, testKey)

	w := s.do("POST", "/api/runs?wait=true", `{"providers": ["corridasbr"]}`, true)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var report ingest.RunReport
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatal(err)
	}
	if report.Providers["corridasbr"] == nil || report.Providers["corridasbr"].Created != 1 {
		t.Errorf("Unexpected report %s", w.Body.String())
	}

	w = s.do("GET", "/api/runs/"+report.RunID, "", true)
	if w.Code != http.StatusOK || decode(t, w)["status"] != string(ingest.StateCompleted) {
		t.Errorf("Expected completed run status, got %d %s", w.Code, w.Body.String())
	}

	w = s.do("GET", "/api/events/1", "", true)
	if w.Code != http.StatusOK || decode(t, w)["title"] != "Corrida X" {
		t.Errorf("Expected stored event, got %d %s", w.Code, w.Body.String())
	}
	if w := s.do("GET", "/api/events/99", "", true); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for missing event, got %d", w.Code)
	}
	if w := s.do("GET", "/api/events/abc", "", true); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad id, got %d", w.Code)
	}
}

func TestStartRunConflict(t *testing.T) {
	s := newTestServer(t, testKey)
	s.adapter.gate = make(chan struct{})

	w := s.do("POST", "/api/runs", "", true)
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", w.Code)
	}
	runID, _ := decode(t, w)["run_id"].(string)
	if runID == "" {
		t.Fatal("Expected run_id")
	}

	w = s.do("POST", "/api/runs", "", true)
	if w.Code != http.StatusConflict || decode(t, w)["active_run_id"] != runID {
		t.Errorf("Expected 409 with active run, got %d %s", w.Code, w.Body.String())
	}

	w = s.do("GET", "/api/runs/current", "", true)
	if w.Code != http.StatusOK || decode(t, w)["status"] != string(ingest.StateRunning) {
		t.Errorf("Expected running current run, got %d %s", w.Code, w.Body.String())
	}

	close(s.adapter.gate)

	deadline := time.Now().Add(2 * time.Second)
	for {
		w = s.do("GET", "/api/runs/"+runID, "", true)
		if decode(t, w)["status"] == string(ingest.StateCompleted) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Run did not complete")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if w := s.do("GET", "/api/runs/current", "", true); w.Code != http.StatusNotFound {
		t.Errorf("Expected no current run, got %d", w.Code)
	}
	if body := decode(t, s.do("GET", "/api/runs", "", true)); body["total"] != float64(1) {
		t.Errorf("Expected one remembered run, got %v", body)
	}
}

func TestGetUnknownRun(t *testing.T) {
	s := newTestServer(t, testKey)
	if w := s.do("GET", "/api/runs/nope", "", true); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
	if w := s.do("POST", "/api/runs", `{"providers": "corridasbr"}`, true); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed body, got %d", w.Code)
	}
}

func TestListProviders(t *testing.T) {
	s := newTestServer(t, testKey)

	body := decode(t, s.do("GET", "/api/providers", "", true))
	list, _ := body["providers"].([]any)
	if len(list) != 1 {
		t.Fatalf("Expected one provider, got %v", body)
	}
	p := list[0].(map[string]any)
	if p["name"] != "corridasbr" || p["kind"] != "gated" || p["enabled"] != true {
		t.Errorf("Unexpected provider %v", p)
	}
}
