package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/chillisubs/chilli-subs/app/database"
	"github.com/chillisubs/chilli-subs/app/ingest"
	"github.com/chillisubs/chilli-subs/app/query"
	"github.com/chillisubs/chilli-subs/app/scrape"
	"github.com/chillisubs/chilli-subs/app/tasks"
)

type fakeQueryService struct {
	lastPage   int
	lastFilter query.Filter
	result     query.Result
}

func (f *fakeQueryService) ListPublications(ctx context.Context, page int, filter query.Filter) query.Result {
	f.lastPage = page
	f.lastFilter = filter
	return f.result
}

type fakeEngine struct {
	lastCandidate *ingest.Candidate
	lastSource    *ingest.Source
	err           error
}

func (f *fakeEngine) Upsert(ctx context.Context, candidate ingest.Candidate, source ingest.Source) (*database.Publication, error) {
	f.lastCandidate = &candidate
	f.lastSource = &source
	if f.err != nil {
		return nil, f.err
	}
	return &database.Publication{ID: 1, Name: "tin house", SourceURL: source.URL}, nil
}

type fakeScheduler struct {
	enqueued []tasks.TaskInterface
	err      error
}

func (f *fakeScheduler) Start() {}
func (f *fakeScheduler) Stop()  {}
func (f *fakeScheduler) EnqueueTask(task tasks.TaskInterface) error {
	if f.err != nil {
		return f.err
	}
	f.enqueued = append(f.enqueued, task)
	return nil
}

type fakeRepo struct {
	count int
}

func (f *fakeRepo) Upsert(ctx context.Context, up database.PublicationUpsert) (*database.Publication, error) {
	return nil, nil
}
func (f *fakeRepo) GetByIdentity(ctx context.Context, name, sourceURL string) (*database.Publication, error) {
	return nil, nil
}
func (f *fakeRepo) ListPublications(ctx context.Context, filter database.ListFilter, limit, offset int) ([]database.Publication, error) {
	return nil, nil
}
func (f *fakeRepo) CountPublications(ctx context.Context, filter database.ListFilter) (int, error) {
	return f.count, nil
}
func (f *fakeRepo) GetPublicationCount(ctx context.Context) (int, error) {
	return f.count, nil
}
func (f *fakeRepo) GetPublicationsMissingDescription(ctx context.Context, limit int) ([]database.Publication, error) {
	return nil, nil
}
func (f *fakeRepo) UpdateDescription(ctx context.Context, id int64, description string) error {
	return nil
}

type testEnv struct {
	queryService *fakeQueryService
	engine       *fakeEngine
	scheduler    *fakeScheduler
	configCache  *scrape.ConfigCache
	server       http.Handler
}

func newTestEnv(t *testing.T, apiAccessKey string) *testEnv {
	t.Helper()

	sourcesDir := t.TempDir()
	content := `
url: "https://chillsubs.com"
name: "Chill Subs"
settings:
  enabled: true
  feed_url: "https://chillsubs.com/calls.xml"
`
	if err := os.WriteFile(filepath.Join(sourcesDir, "chillsubs.yml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	configCache := scrape.NewConfigCache(sourcesDir)
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	env := &testEnv{
		queryService: &fakeQueryService{result: query.Result{
			Publications: []database.Publication{},
			Total:        0,
			CurrentPage:  1,
			TotalPages:   1,
		}},
		engine:      &fakeEngine{},
		scheduler:   &fakeScheduler{},
		configCache: configCache,
	}

	handler := NewHandler(configCache, &fakeRepo{count: 7}, env.queryService, env.engine, env.scheduler, &http.Client{}, "test-agent")
	env.server = NewServer(handler, apiAccessKey)

	return env
}

func TestGetPublicationsDefaults(t *testing.T) {
	env := newTestEnv(t, "")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/publications", nil)
	env.server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	if env.queryService.lastPage != 1 {
		t.Errorf("Expected default page 1, got %d", env.queryService.lastPage)
	}
	if env.queryService.lastFilter.Status != database.StatusAll {
		t.Errorf("Expected default status 'all', got %q", env.queryService.lastFilter.Status)
	}
	if env.queryService.lastFilter.Genre != query.GenreAll {
		t.Errorf("Expected default genre 'All', got %q", env.queryService.lastFilter.Genre)
	}

	var result query.Result
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("Expected valid JSON body, got: %v", err)
	}
	if result.TotalPages != 1 {
		t.Errorf("Expected total pages 1, got %d", result.TotalPages)
	}
}

func TestGetPublicationsParams(t *testing.T) {
	env := newTestEnv(t, "")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/publications?page=3&status=open&genre=fiction", nil)
	env.server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if env.queryService.lastPage != 3 {
		t.Errorf("Expected page 3, got %d", env.queryService.lastPage)
	}
	if env.queryService.lastFilter.Status != "open" {
		t.Errorf("Expected status 'open', got %q", env.queryService.lastFilter.Status)
	}
	if env.queryService.lastFilter.Genre != "fiction" {
		t.Errorf("Expected genre 'fiction', got %q", env.queryService.lastFilter.Genre)
	}
}

func TestGetPublicationsNonNumericPage(t *testing.T) {
	env := newTestEnv(t, "")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/publications?page=banana", nil)
	env.server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if env.queryService.lastPage != 1 {
		t.Errorf("Expected non-numeric page to fall back to 1, got %d", env.queryService.lastPage)
	}
}

func TestIngestPublication(t *testing.T) {
	env := newTestEnv(t, "secret")

	body := map[string]any{
		"source": map[string]any{
			"url":  "https://source.example.com",
			"name": "External Adapter",
		},
		"publication": map[string]any{
			"title":  "Tin House",
			"genres": []string{"fiction"},
		},
	}
	payload, _ := json.Marshal(body)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/publications", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", "secret")
	env.server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	if env.engine.lastSource == nil || env.engine.lastSource.URL != "https://source.example.com" {
		t.Error("Expected source forwarded to the engine")
	}
	if env.engine.lastCandidate == nil || env.engine.lastCandidate.Title == nil || *env.engine.lastCandidate.Title != "Tin House" {
		t.Error("Expected candidate forwarded to the engine")
	}
}

func TestIngestPublicationRequiresSourceURL(t *testing.T) {
	env := newTestEnv(t, "secret")

	payload := []byte(`{"source": {"name": "no url"}, "publication": {"title": "Tin House"}}`)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/publications", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", "secret")
	env.server.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
	if env.engine.lastCandidate != nil {
		t.Error("Expected no engine call for invalid payload")
	}
}

func TestIngestPublicationAuth(t *testing.T) {
	env := newTestEnv(t, "secret")

	payload := []byte(`{"source": {"url": "https://source.example.com"}, "publication": {}}`)

	// No key
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/publications", bytes.NewReader(payload))
	env.server.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 without key, got %d", w.Code)
	}

	// Wrong key
	w = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/api/publications", bytes.NewReader(payload))
	req.Header.Set("X-API-Key", "wrong")
	env.server.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 with wrong key, got %d", w.Code)
	}

	// Bearer token works too
	w = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/api/publications", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer secret")
	env.server.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 with bearer token, got %d", w.Code)
	}
}

func TestAPIDisabledWithoutKey(t *testing.T) {
	env := newTestEnv(t, "")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/publications", bytes.NewReader([]byte(`{}`)))
	env.server.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 when API is disabled, got %d", w.Code)
	}
}

func TestScrapeSource(t *testing.T) {
	env := newTestEnv(t, "secret")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/sources/chillsubs/scrape", nil)
	req.Header.Set("X-API-Key", "secret")
	env.server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(env.scheduler.enqueued) != 1 {
		t.Fatalf("Expected 1 enqueued task, got %d", len(env.scheduler.enqueued))
	}
	if env.scheduler.enqueued[0].GetType() != tasks.TaskTypeScrapeSource {
		t.Errorf("Expected a scrape task, got %s", env.scheduler.enqueued[0].GetType())
	}
	if env.scheduler.enqueued[0].GetSourceName() != "chillsubs" {
		t.Errorf("Expected task for source 'chillsubs', got %q", env.scheduler.enqueued[0].GetSourceName())
	}
}

func TestScrapeSourceUnknown(t *testing.T) {
	env := newTestEnv(t, "secret")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/sources/missing/scrape", nil)
	req.Header.Set("X-API-Key", "secret")
	env.server.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown source, got %d", w.Code)
	}
	if len(env.scheduler.enqueued) != 0 {
		t.Errorf("Expected no enqueued tasks, got %d", len(env.scheduler.enqueued))
	}
}

func TestScrapeSourceEnqueueFailure(t *testing.T) {
	env := newTestEnv(t, "secret")
	env.scheduler.err = fmt.Errorf("task queue is full")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/sources/chillsubs/scrape", nil)
	req.Header.Set("X-API-Key", "secret")
	env.server.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500 on enqueue failure, got %d", w.Code)
	}
}

func TestGetHealth(t *testing.T) {
	env := newTestEnv(t, "")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	env.server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var health map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &health); err != nil {
		t.Fatalf("Expected valid JSON body, got: %v", err)
	}
	if health["publications"] != float64(7) {
		t.Errorf("Expected publication count 7, got %v", health["publications"])
	}
	if health["loaded_configurations"] != float64(1) {
		t.Errorf("Expected 1 loaded configuration, got %v", health["loaded_configurations"])
	}
}

func TestGetStats(t *testing.T) {
	env := newTestEnv(t, "")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/stats", nil)
	env.server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var stats map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("Expected valid JSON body, got: %v", err)
	}
	sources, ok := stats["sources"].([]any)
	if !ok || len(sources) != 1 {
		t.Errorf("Expected 1 source in stats, got %v", stats["sources"])
	}
}
