package tasks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/chillisubs/chilli-subs/app/scrape"
)

type ScrapeSourceTask struct {
	Task
	SourceConfig *scrape.Config
	httpClient   *http.Client
	feedAdapter  *scrape.FeedAdapter
	engine       IngestEngineInterface
	userAgent    string
}

func NewScrapeSourceTask(sourceName string, sourceConfig *scrape.Config, httpClient *http.Client, feedAdapter *scrape.FeedAdapter, engine IngestEngineInterface, userAgent string) *ScrapeSourceTask {
	return &ScrapeSourceTask{
		Task:         NewTask(TaskTypeScrapeSource, sourceName),
		SourceConfig: sourceConfig,
		httpClient:   httpClient,
		feedAdapter:  feedAdapter,
		engine:       engine,
		userAgent:    userAgent,
	}
}

func (t *ScrapeSourceTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !t.SourceConfig.Settings.Enabled {
		slog.Debug("Source disabled, skipping", "source", t.SourceName)
		return nil
	}

	data, err := t.fetchListing(ctx, t.SourceConfig.Settings.FeedURL)
	if err != nil {
		return fmt.Errorf("failed to fetch listing: %w", err)
	}

	candidates, err := t.feedAdapter.Run(data)
	if err != nil {
		return fmt.Errorf("failed to parse listing: %w", err)
	}

	if maxItems := t.SourceConfig.Settings.MaxItems; maxItems > 0 && len(candidates) > maxItems {
		candidates = candidates[:maxItems]
	}

	source := t.SourceConfig.Source()
	upsertedCount := 0
	errorCount := 0

	for _, candidate := range candidates {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		publication, err := t.engine.Upsert(ctx, candidate, source)
		if err != nil {
			slog.Error("Failed to upsert candidate", "source", t.SourceName, "error", err)
			errorCount++
			continue
		}

		upsertedCount++
		slog.Debug("Candidate upserted", "source", t.SourceName, "name", publication.Name, "id", publication.ID)
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"source", t.SourceName,
		"duration", t.GetDuration(),
		"total", len(candidates),
		"upserted", upsertedCount,
		"errors", errorCount)

	return nil
}

func (t *ScrapeSourceTask) fetchListing(ctx context.Context, url string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, time.Duration(t.SourceConfig.Settings.Timeout)*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", t.userAgent)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch listing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
