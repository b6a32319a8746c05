package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/chillisubs/chilli-subs/app/cfg"
	"github.com/chillisubs/chilli-subs/app/database"
	"github.com/chillisubs/chilli-subs/app/ingest"
	"github.com/chillisubs/chilli-subs/app/scrape"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type Scheduler struct {
	publicationRepo  database.PublicationRepository
	configCache      *scrape.ConfigCache
	httpClient       *http.Client
	feedAdapter      *scrape.FeedAdapter
	detailsExtractor *scrape.DetailsExtractor
	engine           *ingest.Engine
	userAgent        string
	interval         time.Duration
	workerCount      int
	ctx              context.Context
	cancel           context.CancelFunc
	wg               sync.WaitGroup
	taskQueue        chan TaskInterface

	// Sources live in YAML files only, so refresh due times are tracked
	// in memory and reset on restart.
	nextRunMu sync.Mutex
	nextRun   map[string]time.Time
}

func NewScheduler(configCache *scrape.ConfigCache, publicationRepo database.PublicationRepository,
	httpClient *http.Client, feedAdapter *scrape.FeedAdapter, detailsExtractor *scrape.DetailsExtractor,
	engine *ingest.Engine) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Scheduler{
		publicationRepo:  publicationRepo,
		configCache:      configCache,
		httpClient:       httpClient,
		feedAdapter:      feedAdapter,
		detailsExtractor: detailsExtractor,
		engine:           engine,
		userAgent:        cfg.UserAgent,
		interval:         time.Duration(cfg.SchedulerInterval) * time.Second,
		workerCount:      cfg.WorkerCount,
		ctx:              ctx,
		cancel:           cancel,
		taskQueue:        make(chan TaskInterface, 300),
		nextRun:          make(map[string]time.Time),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTasks()
			}
		}
	}()

}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueTasks() {
	sourceConfigs := s.configCache.GetEnabledConfigs()
	if len(sourceConfigs) == 0 {
		slog.Debug("No enabled source configurations found")
		return
	}

	slog.Debug("Processing enabled source configurations for task scheduling", "count", len(sourceConfigs))

	for _, sourceConfig := range sourceConfigs {
		if s.isDue(sourceConfig.Name) {
			scrapeTask := NewScrapeSourceTask(sourceConfig.Name, sourceConfig, s.httpClient, s.feedAdapter, s.engine, s.userAgent)
			if err := s.EnqueueTask(scrapeTask); err != nil {
				slog.Warn("Failed to enqueue ScrapeSourceTask", "source", sourceConfig.Name, "error", err)
				continue
			}
			s.markScheduled(sourceConfig.Name, sourceConfig.Settings.RefreshInterval)
		} else {
			slog.Debug("Source not due for refresh yet", "source", sourceConfig.Name)
		}

		if sourceConfig.Settings.ExtractDetails {
			extractTask := NewExtractDetailsTask(sourceConfig.Name, sourceConfig, s.httpClient, s.detailsExtractor, s.publicationRepo, s.userAgent)
			if err := s.EnqueueTask(extractTask); err != nil {
				slog.Warn("Failed to enqueue ExtractDetailsTask", "source", sourceConfig.Name, "error", err)
			}
		}
	}
}

func (s *Scheduler) isDue(sourceName string) bool {
	s.nextRunMu.Lock()
	defer s.nextRunMu.Unlock()

	due, ok := s.nextRun[sourceName]
	return !ok || !due.After(time.Now().UTC())
}

func (s *Scheduler) markScheduled(sourceName string, refreshInterval int) {
	s.nextRunMu.Lock()
	defer s.nextRunMu.Unlock()

	s.nextRun[sourceName] = time.Now().UTC().Add(time.Duration(refreshInterval) * time.Second)
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "source", task.GetSourceName(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			go func() {
				time.Sleep(retryDelay)
				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				default:
					if retryErr := s.EnqueueTask(task); retryErr != nil {
						slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
					}
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
