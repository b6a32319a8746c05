package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

var _ PublicationRepository = (*PublicationRepositoryImpl)(nil)

// PublicationRepositoryImpl handles database operations for publications
type PublicationRepositoryImpl struct {
	db *DB
}

// NewPublicationRepository creates a new publication repository
func NewPublicationRepository(db *DB) *PublicationRepositoryImpl {
	return &PublicationRepositoryImpl{db: db}
}

const publicationColumns = `id, name, source_url, COALESCE(title, ''), COALESCE(description, ''),
	       COALESCE(base_url, ''), COALESCE(pub_url, ''), COALESCE(guideline_url, ''),
	       COALESCE(genres, '[]'), COALESCE(submissions, '[]'), COALESCE(is_open, 0),
	       created_at, updated_at`

// Upsert atomically creates or merges a publication keyed by (name, source_url).
// Unobserved fields are passed as NULL so the conflict clause keeps the stored
// value; collections replace wholesale only when the scrape observed them.
// At-most-one-row per identity is delegated to the UNIQUE constraint.
func (r *PublicationRepositoryImpl) Upsert(ctx context.Context, up PublicationUpsert) (*Publication, error) {
	genres, err := nullableJSON(up.Genres, len(up.Genres) == 0)
	if err != nil {
		return nil, fmt.Errorf("failed to encode genres: %w", err)
	}
	submissions, err := nullableJSON(up.Submissions, len(up.Submissions) == 0)
	if err != nil {
		return nil, fmt.Errorf("failed to encode submissions: %w", err)
	}

	now := formatTime(time.Now())

	row := r.db.QueryRowContext(ctx, `
		INSERT INTO publications (
			name, source_url, title, description, base_url, pub_url, guideline_url,
			genres, submissions, is_open, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (name, source_url) DO UPDATE SET
			title = COALESCE(excluded.title, publications.title),
			description = COALESCE(excluded.description, publications.description),
			base_url = COALESCE(excluded.base_url, publications.base_url),
			pub_url = COALESCE(excluded.pub_url, publications.pub_url),
			guideline_url = COALESCE(excluded.guideline_url, publications.guideline_url),
			genres = COALESCE(excluded.genres, publications.genres),
			submissions = COALESCE(excluded.submissions, publications.submissions),
			is_open = COALESCE(excluded.is_open, publications.is_open),
			updated_at = excluded.updated_at
		RETURNING `+publicationColumns,
		up.Name, up.SourceURL, nullableStringPtr(up.Title), nullableStringPtr(up.Description),
		nullableStringPtr(up.BaseURL), nullableStringPtr(up.PubURL), nullableStringPtr(up.GuidelineURL),
		genres, submissions, nullableBoolPtr(up.IsOpen), now, now)

	publication, err := scanPublication(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert publication: %w", err)
	}

	return publication, nil
}

// GetByIdentity retrieves a publication by its composite identity
func (r *PublicationRepositoryImpl) GetByIdentity(ctx context.Context, name, sourceURL string) (*Publication, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+publicationColumns+`
		FROM publications
		WHERE name = ? AND source_url = ?
	`, name, sourceURL)

	publication, err := scanPublication(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get publication by identity: %w", err)
	}

	return publication, nil
}

// ListPublications returns a stable page of publications matching the filter,
// ordered by updated_at descending with id as tiebreaker
func (r *PublicationRepositoryImpl) ListPublications(ctx context.Context, filter ListFilter, limit, offset int) ([]Publication, error) {
	where, args := buildFilter(filter)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+publicationColumns+`
		FROM publications
		`+where+`
		ORDER BY updated_at DESC, id ASC
		LIMIT ? OFFSET ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list publications: %w", err)
	}
	defer rows.Close()

	var publications []Publication
	for rows.Next() {
		publication, err := scanPublication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan publication row: %w", err)
		}
		publications = append(publications, *publication)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating publication rows: %w", err)
	}

	return publications, nil
}

// CountPublications returns the number of publications matching the filter
func (r *PublicationRepositoryImpl) CountPublications(ctx context.Context, filter ListFilter) (int, error) {
	where, args := buildFilter(filter)

	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM publications "+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count publications: %w", err)
	}
	return count, nil
}

// GetPublicationCount returns the total number of publications
func (r *PublicationRepositoryImpl) GetPublicationCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM publications").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get publication count: %w", err)
	}
	return count, nil
}

// GetPublicationsMissingDescription returns publications that have a page to
// extract from but no stored description yet
func (r *PublicationRepositoryImpl) GetPublicationsMissingDescription(ctx context.Context, limit int) ([]Publication, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+publicationColumns+`
		FROM publications
		WHERE (description IS NULL OR description = '')
		  AND (guideline_url IS NOT NULL OR pub_url IS NOT NULL)
		ORDER BY updated_at DESC, id ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get publications missing description: %w", err)
	}
	defer rows.Close()

	var publications []Publication
	for rows.Next() {
		publication, err := scanPublication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan publication row: %w", err)
		}
		publications = append(publications, *publication)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating publication rows: %w", err)
	}

	return publications, nil
}

// UpdateDescription sets the description of a publication
func (r *PublicationRepositoryImpl) UpdateDescription(ctx context.Context, id int64, description string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE publications
		SET description = ?, updated_at = ?
		WHERE id = ?
	`, description, formatTime(time.Now()), id)

	if err != nil {
		return fmt.Errorf("failed to update description: %w", err)
	}

	return nil
}

// buildFilter translates a ListFilter into a WHERE clause and its arguments
func buildFilter(filter ListFilter) (string, []any) {
	var conditions []string
	var args []any

	switch filter.Status {
	case StatusOpen:
		conditions = append(conditions, "is_open = 1")
	case StatusClosed:
		conditions = append(conditions, "COALESCE(is_open, 0) = 0")
	}

	if filter.Genre != "" {
		conditions = append(conditions,
			"EXISTS (SELECT 1 FROM json_each(COALESCE(publications.genres, '[]')) WHERE json_each.value = ?)")
		args = append(args, filter.Genre)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

func scanPublication(scanner interface{ Scan(dest ...any) error }) (*Publication, error) {
	var (
		publication Publication
		genresRaw   string
		subsRaw     string
		isOpen      int64
		createdRaw  string
		updatedRaw  string
	)

	err := scanner.Scan(
		&publication.ID, &publication.Name, &publication.SourceURL,
		&publication.Title, &publication.Description,
		&publication.BaseURL, &publication.PubURL, &publication.GuidelineURL,
		&genresRaw, &subsRaw, &isOpen,
		&createdRaw, &updatedRaw,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(genresRaw), &publication.Genres); err != nil {
		return nil, fmt.Errorf("failed to decode genres: %w", err)
	}
	if err := json.Unmarshal([]byte(subsRaw), &publication.Submissions); err != nil {
		return nil, fmt.Errorf("failed to decode submissions: %w", err)
	}

	publication.IsOpen = isOpen != 0

	if publication.CreatedAt, err = parseTime(createdRaw); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if publication.UpdatedAt, err = parseTime(updatedRaw); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return &publication, nil
}

func nullableJSON(value any, empty bool) (any, error) {
	if empty {
		return nil, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func nullableStringPtr(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullableBoolPtr(value *bool) any {
	if value == nil {
		return nil
	}
	if *value {
		return 1
	}
	return 0
}

// Timestamps are stored as fixed-width RFC3339 UTC text so that lexical
// ordering matches chronological ordering.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(value string) (time.Time, error) {
	return time.Parse(time.RFC3339, value)
}
