package tasks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/chillisubs/chilli-subs/app/database"
	"github.com/chillisubs/chilli-subs/app/scrape"
)

type ExtractDetailsTask struct {
	Task
	SourceConfig     *scrape.Config
	httpClient       *http.Client
	detailsExtractor *scrape.DetailsExtractor
	publicationRepo  database.PublicationRepository
	userAgent        string
}

func NewExtractDetailsTask(sourceName string, sourceConfig *scrape.Config, httpClient *http.Client, detailsExtractor *scrape.DetailsExtractor, publicationRepo database.PublicationRepository, userAgent string) *ExtractDetailsTask {
	return &ExtractDetailsTask{
		Task:             NewTask(TaskTypeExtractDetails, sourceName),
		SourceConfig:     sourceConfig,
		httpClient:       httpClient,
		detailsExtractor: detailsExtractor,
		publicationRepo:  publicationRepo,
		userAgent:        userAgent,
	}
}

func (t *ExtractDetailsTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !t.SourceConfig.Settings.ExtractDetails {
		slog.Debug("Details extraction disabled for source", "source", t.SourceName)
		return nil
	}

	publications, err := t.publicationRepo.GetPublicationsMissingDescription(ctx, t.SourceConfig.Settings.MaxItems)
	if err != nil {
		return fmt.Errorf("failed to get publications for details extraction: %w", err)
	}

	if len(publications) == 0 {
		slog.Debug("No publications need details extraction", "source", t.SourceName)
		return nil
	}

	successCount := 0
	errorCount := 0

	for _, publication := range publications {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		extractCtx, cancel := context.WithTimeout(ctx, time.Duration(t.SourceConfig.Settings.Timeout)*time.Second)

		err := t.extractDetailsForPublication(extractCtx, publication)
		cancel()

		if err != nil {
			slog.Error("Failed to extract details for publication", "publication_id", publication.ID, "name", publication.Name, "error", err)
			errorCount++
		} else {
			successCount++
		}
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"source", t.SourceName,
		"duration", t.GetDuration(),
		"success", successCount,
		"errors", errorCount)

	return nil
}

func (t *ExtractDetailsTask) extractDetailsForPublication(ctx context.Context, publication database.Publication) error {
	url := detailsURL(publication)
	if url == "" {
		return fmt.Errorf("publication has no guideline or publication URL")
	}

	data, err := t.fetchPage(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to fetch page: %w", err)
	}

	description, err := t.detailsExtractor.Run(data)
	if err != nil {
		return fmt.Errorf("failed to extract details: %w", err)
	}

	err = t.publicationRepo.UpdateDescription(ctx, publication.ID, description)
	if err != nil {
		return fmt.Errorf("failed to update description: %w", err)
	}

	slog.Debug("Details extracted successfully", "publication_id", publication.ID, "url", url, "description_length", len(description))
	return nil
}

// detailsURL prefers the guidelines page, which usually carries the fullest
// prose about a publication, over its general page.
func detailsURL(publication database.Publication) string {
	if publication.GuidelineURL != "" {
		return publication.GuidelineURL
	}
	return publication.PubURL
}

func (t *ExtractDetailsTask) fetchPage(ctx context.Context, url string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, time.Duration(t.SourceConfig.Settings.Timeout)*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", t.userAgent)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "text/html") {
		return nil, fmt.Errorf("content type is not HTML: %s", contentType)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
