package tasks

import (
	"context"

	"github.com/chillisubs/chilli-subs/app/database"
	"github.com/chillisubs/chilli-subs/app/ingest"
)

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application and the API layer to manage background
// scraping.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

// IngestEngineInterface is the upsert surface tasks need from the ingestion
// engine.
type IngestEngineInterface interface {
	Upsert(ctx context.Context, candidate ingest.Candidate, source ingest.Source) (*database.Publication, error)
}

var _ IngestEngineInterface = (*ingest.Engine)(nil)
