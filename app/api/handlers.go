package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chillisubs/chilli-subs/app/database"
	"github.com/chillisubs/chilli-subs/app/ingest"
	"github.com/chillisubs/chilli-subs/app/query"
	"github.com/chillisubs/chilli-subs/app/scrape"
	"github.com/chillisubs/chilli-subs/app/tasks"
)

func NewHandler(configCache *scrape.ConfigCache, publicationRepo database.PublicationRepository,
	queryService QueryServiceInterface, engine IngestEngineInterface,
	scheduler tasks.TaskSchedulerInterface, httpClient *http.Client, userAgent string) *Handler {
	return &Handler{
		publicationRepo: publicationRepo,
		queryService:    queryService,
		engine:          engine,
		configCache:     configCache,
		scheduler:       scheduler,
		httpClient:      httpClient,
		feedAdapter:     scrape.NewFeedAdapter(),
		userAgent:       userAgent,
	}
}

// GetPublications serves the public listing. Malformed or missing parameters
// fall back to defaults instead of erroring: page 1, status "all", every
// genre.
func (h *Handler) GetPublications(c *gin.Context) {
	page := 1
	if raw := c.Query("page"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			page = parsed
		}
	}

	filter := query.Filter{
		Status: c.DefaultQuery("status", database.StatusAll),
		Genre:  c.DefaultQuery("genre", query.GenreAll),
	}

	result := h.queryService.ListPublications(c.Request.Context(), page, filter)

	c.JSON(http.StatusOK, result)
}

// IngestPublicationRequest is the external-adapter ingestion payload: one
// candidate record plus the source that observed it.
type IngestPublicationRequest struct {
	Source      ingest.Source    `json:"source"`
	Publication ingest.Candidate `json:"publication"`
}

func (h *Handler) APIIngestPublication(c *gin.Context) {
	var req IngestPublicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if req.Source.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Source URL is required"})
		return
	}

	publication, err := h.engine.Upsert(c.Request.Context(), req.Publication, req.Source)
	if err != nil {
		slog.Error("Database error", "operation", "upsert_publication", "source", req.Source.URL, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upsert publication"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"publication": publication,
	})
}

func (h *Handler) APIScrapeSource(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing source name parameter"})
		return
	}

	sourceConfig, err := h.configCache.LoadConfig(name)
	if err != nil {
		slog.Error("Source configuration not found", "source", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Source configuration not found"})
		return
	}

	scrapeTask := tasks.NewScrapeSourceTask(name, sourceConfig, h.httpClient, h.feedAdapter, h.engine, h.userAgent)
	if err := h.scheduler.EnqueueTask(scrapeTask); err != nil {
		slog.Error("Error enqueueing scrape task", "source", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue scrape task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Scrape task enqueued successfully",
		"source": gin.H{
			"name": name,
			"url":  sourceConfig.URL,
		},
		"task": gin.H{
			"id":   scrapeTask.ID,
			"type": scrapeTask.Type,
		},
	})
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if publicationCount, err := h.publicationRepo.GetPublicationCount(c.Request.Context()); err == nil {
		health["publications"] = publicationCount
	}

	health["loaded_configurations"] = h.configCache.GetConfigCount()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := map[string]interface{}{
		"loaded_configurations": h.configCache.GetConfigCount(),
	}

	if publicationCount, err := h.publicationRepo.GetPublicationCount(c.Request.Context()); err == nil {
		stats["publications"] = publicationCount
	}

	sources := make([]map[string]interface{}, 0)
	for _, sourceConfig := range h.configCache.GetConfigs() {
		sources = append(sources, map[string]interface{}{
			"name":             sourceConfig.Name,
			"url":              sourceConfig.URL,
			"enabled":          sourceConfig.Settings.Enabled,
			"refresh_interval": (time.Duration(sourceConfig.Settings.RefreshInterval) * time.Second).String(),
		})
	}
	stats["sources"] = sources

	c.JSON(http.StatusOK, stats)
}
