package database

import (
	"context"
)

// PublicationUpsert carries the fields a scrape observed for one candidate.
// Nil pointers and empty collections mean "not observed this scrape", never
// "clear this field".
type PublicationUpsert struct {
	Name      string
	SourceURL string

	Title        *string
	Description  *string
	BaseURL      *string
	PubURL       *string
	GuidelineURL *string
	Genres       []string
	Submissions  []Submission
	IsOpen       *bool
}

// Status filter values for publication listings
const (
	StatusAll    = "all"
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// ListFilter narrows a publication scan. An empty Genre applies no genre
// filter; Status defaults to StatusAll when empty.
type ListFilter struct {
	Status string
	Genre  string
}

type PublicationRepository interface {
	Upsert(ctx context.Context, up PublicationUpsert) (*Publication, error)
	GetByIdentity(ctx context.Context, name, sourceURL string) (*Publication, error)

	ListPublications(ctx context.Context, filter ListFilter, limit, offset int) ([]Publication, error)
	CountPublications(ctx context.Context, filter ListFilter) (int, error)
	GetPublicationCount(ctx context.Context) (int, error)

	GetPublicationsMissingDescription(ctx context.Context, limit int) ([]Publication, error)
	UpdateDescription(ctx context.Context, id int64, description string) error
}
