package api

import (
	"context"
	"net/http"

	"github.com/chillisubs/chilli-subs/app/database"
	"github.com/chillisubs/chilli-subs/app/ingest"
	"github.com/chillisubs/chilli-subs/app/query"
	"github.com/chillisubs/chilli-subs/app/scrape"
	"github.com/chillisubs/chilli-subs/app/tasks"
)

type QueryServiceInterface interface {
	ListPublications(ctx context.Context, page int, filter query.Filter) query.Result
}

var _ QueryServiceInterface = (*query.Service)(nil)

type IngestEngineInterface interface {
	Upsert(ctx context.Context, candidate ingest.Candidate, source ingest.Source) (*database.Publication, error)
}

var _ IngestEngineInterface = (*ingest.Engine)(nil)

type Handler struct {
	publicationRepo database.PublicationRepository
	queryService    QueryServiceInterface
	engine          IngestEngineInterface
	configCache     *scrape.ConfigCache
	scheduler       tasks.TaskSchedulerInterface
	httpClient      *http.Client
	feedAdapter     *scrape.FeedAdapter
	userAgent       string
}
