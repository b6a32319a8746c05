package ingest

import (
	"context"
	"fmt"
	"testing"

	"github.com/chillisubs/chilli-subs/app/database"
)

type fakePublicationRepo struct {
	lastUpsert *database.PublicationUpsert
	upsertErr  error
}

func (f *fakePublicationRepo) Upsert(ctx context.Context, up database.PublicationUpsert) (*database.Publication, error) {
	f.lastUpsert = &up
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	return &database.Publication{ID: 1, Name: up.Name, SourceURL: up.SourceURL}, nil
}

func (f *fakePublicationRepo) GetByIdentity(ctx context.Context, name, sourceURL string) (*database.Publication, error) {
	return nil, nil
}

func (f *fakePublicationRepo) ListPublications(ctx context.Context, filter database.ListFilter, limit, offset int) ([]database.Publication, error) {
	return nil, nil
}

func (f *fakePublicationRepo) CountPublications(ctx context.Context, filter database.ListFilter) (int, error) {
	return 0, nil
}

func (f *fakePublicationRepo) GetPublicationCount(ctx context.Context) (int, error) {
	return 0, nil
}

func (f *fakePublicationRepo) GetPublicationsMissingDescription(ctx context.Context, limit int) ([]database.Publication, error) {
	return nil, nil
}

func (f *fakePublicationRepo) UpdateDescription(ctx context.Context, id int64, description string) error {
	return nil
}

func TestEngineUpsertResolvesIdentity(t *testing.T) {
	repo := &fakePublicationRepo{}
	engine := NewEngine(repo)

	candidate := Candidate{
		Title:       strPtr("Tin House!"),
		Description: strPtr("A literary magazine"),
	}
	source := Source{URL: "https://source.example.com", Name: "Source"}

	publication, err := engine.Upsert(context.Background(), candidate, source)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if publication == nil {
		t.Fatal("Expected a publication, got nil")
	}

	if repo.lastUpsert.Name != "tin house" {
		t.Errorf("Expected normalized name 'tin house', got %q", repo.lastUpsert.Name)
	}
	if repo.lastUpsert.SourceURL != "https://source.example.com" {
		t.Errorf("Expected source URL to be part of identity, got %q", repo.lastUpsert.SourceURL)
	}
	if repo.lastUpsert.Description == nil || *repo.lastUpsert.Description != "A literary magazine" {
		t.Error("Expected description to be forwarded")
	}
}

func TestEngineUpsertDerivesOpenFromSubmissions(t *testing.T) {
	repo := &fakePublicationRepo{}
	engine := NewEngine(repo)

	candidate := Candidate{
		Title: strPtr("Tin House"),
		Submissions: []database.Submission{
			{Genre: "fiction", SubURL: "https://example.com/submit"},
		},
	}

	_, err := engine.Upsert(context.Background(), candidate, Source{URL: "https://source.example.com"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if repo.lastUpsert.IsOpen == nil || !*repo.lastUpsert.IsOpen {
		t.Error("Expected open state derived from observed submissions")
	}
}

func TestEngineUpsertExplicitFlagWins(t *testing.T) {
	repo := &fakePublicationRepo{}
	engine := NewEngine(repo)

	closed := false
	candidate := Candidate{
		Title:  strPtr("Tin House"),
		IsOpen: &closed,
		Submissions: []database.Submission{
			{Genre: "fiction"},
		},
	}

	_, err := engine.Upsert(context.Background(), candidate, Source{URL: "https://source.example.com"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if repo.lastUpsert.IsOpen == nil || *repo.lastUpsert.IsOpen {
		t.Error("Expected explicit closed flag to win over derived state")
	}
}

func TestEngineUpsertNoOpenObservation(t *testing.T) {
	repo := &fakePublicationRepo{}
	engine := NewEngine(repo)

	candidate := Candidate{Title: strPtr("Tin House")}

	_, err := engine.Upsert(context.Background(), candidate, Source{URL: "https://source.example.com"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if repo.lastUpsert.IsOpen != nil {
		t.Error("Expected nil open state when nothing was observed")
	}
}

func TestEngineUpsertPropagatesStoreFailure(t *testing.T) {
	repo := &fakePublicationRepo{upsertErr: fmt.Errorf("disk full")}
	engine := NewEngine(repo)

	_, err := engine.Upsert(context.Background(), Candidate{Title: strPtr("Tin House")}, Source{URL: "https://source.example.com"})
	if err == nil {
		t.Fatal("Expected an error, got nil")
	}
}
