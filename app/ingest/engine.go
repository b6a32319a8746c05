package ingest

import (
	"context"
	"fmt"

	"github.com/chillisubs/chilli-subs/app/database"
)

// Engine turns candidate records into idempotent publication upserts. It
// holds no state between calls; atomicity of the create-or-update is
// delegated to the store's uniqueness constraint on (name, source_url).
type Engine struct {
	publicationRepo database.PublicationRepository
}

func NewEngine(publicationRepo database.PublicationRepository) *Engine {
	return &Engine{
		publicationRepo: publicationRepo,
	}
}

// Upsert resolves the candidate's identity and atomically creates or merges
// the publication row. Store failures surface to the caller; no retry, no
// partial state.
func (e *Engine) Upsert(ctx context.Context, candidate Candidate, source Source) (*database.Publication, error) {
	name, sourceURL := ResolveIdentity(candidate, source)

	publication, err := e.publicationRepo.Upsert(ctx, database.PublicationUpsert{
		Name:         name,
		SourceURL:    sourceURL,
		Title:        candidate.Title,
		Description:  candidate.Description,
		BaseURL:      candidate.BaseURL,
		PubURL:       candidate.PubURL,
		GuidelineURL: candidate.GuidelineURL,
		Genres:       candidate.Genres,
		Submissions:  candidate.Submissions,
		IsOpen:       effectiveIsOpen(candidate),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert publication '%s': %w", name, err)
	}

	return publication, nil
}

// effectiveIsOpen prefers an explicitly scraped flag; when the flag is absent
// but submission windows were observed, their presence implies the open
// state. With neither observed the stored value is left untouched.
func effectiveIsOpen(candidate Candidate) *bool {
	if candidate.IsOpen != nil {
		return candidate.IsOpen
	}
	if len(candidate.Submissions) > 0 {
		open := true
		return &open
	}
	return nil
}
