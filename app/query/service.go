package query

import (
	"context"
	"log/slog"
	"strings"

	"github.com/chillisubs/chilli-subs/app/database"
)

// PageSize is the fixed number of publications per page
const PageSize = 10

// GenreAll is the sentinel genre value that applies no genre filter
const GenreAll = "All"

// Filter narrows a publication listing. Status accepts "all", "open" or
// "closed"; Genre accepts an exact genre string or the GenreAll sentinel.
type Filter struct {
	Status string
	Genre  string
}

// Result is one page of publications plus pagination metadata. TotalPages is
// always at least 1, even for an empty result.
type Result struct {
	Publications []database.Publication `json:"publications"`
	Total        int                    `json:"total"`
	CurrentPage  int                    `json:"currentPage"`
	TotalPages   int                    `json:"totalPages"`
}

// Service translates page numbers and filters into store scans. Reads are
// best-effort: a failing store yields an empty well-formed page rather than
// an error, with the failure reported on the log side channel only.
type Service struct {
	publicationRepo database.PublicationRepository
}

func NewService(publicationRepo database.PublicationRepository) *Service {
	return &Service{
		publicationRepo: publicationRepo,
	}
}

// ListPublications returns the requested page of matching publications.
// Pages below 1 are coerced to 1; pages beyond the last report the correct
// totals with an empty item list.
func (s *Service) ListPublications(ctx context.Context, page int, filter Filter) Result {
	if page < 1 {
		page = 1
	}

	dbFilter := database.ListFilter{
		Status: normalizeStatus(filter.Status),
		Genre:  normalizeGenre(filter.Genre),
	}

	total, err := s.publicationRepo.CountPublications(ctx, dbFilter)
	if err != nil {
		slog.Error("Database error", "operation", "count_publications", "error", err)
		return emptyResult(page)
	}

	totalPages := (total + PageSize - 1) / PageSize
	if totalPages < 1 {
		totalPages = 1
	}

	publications := []database.Publication{}
	offset := (page - 1) * PageSize
	if offset < total {
		rows, err := s.publicationRepo.ListPublications(ctx, dbFilter, PageSize, offset)
		if err != nil {
			slog.Error("Database error", "operation", "list_publications", "error", err)
			return emptyResult(page)
		}
		publications = append(publications, rows...)
	}

	return Result{
		Publications: publications,
		Total:        total,
		CurrentPage:  page,
		TotalPages:   totalPages,
	}
}

func emptyResult(page int) Result {
	return Result{
		Publications: []database.Publication{},
		Total:        0,
		CurrentPage:  page,
		TotalPages:   1,
	}
}

func normalizeStatus(status string) string {
	switch strings.ToLower(status) {
	case database.StatusOpen:
		return database.StatusOpen
	case database.StatusClosed:
		return database.StatusClosed
	default:
		return database.StatusAll
	}
}

func normalizeGenre(genre string) string {
	if genre == "" || strings.EqualFold(genre, GenreAll) {
		return ""
	}
	return genre
}
