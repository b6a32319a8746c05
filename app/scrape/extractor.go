package scrape

import (
	"fmt"
	"log/slog"
	"strings"

	"codeberg.org/readeck/go-readability"
)

// Cap extracted descriptions so a whole guidelines page never ends up in one
// display field.
const maxDescriptionLength = 2000

// DetailsExtractor derives a plain-text publication description from a
// guidelines or homepage HTML document.
type DetailsExtractor struct{}

func NewDetailsExtractor() *DetailsExtractor {
	return &DetailsExtractor{}
}

func (e *DetailsExtractor) Run(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("HTML data is empty")
	}

	article, err := readability.FromReader(strings.NewReader(string(data)), nil)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	description := strings.TrimSpace(article.TextContent)
	if description == "" {
		return "", fmt.Errorf("no content extracted from HTML data")
	}

	if len(description) > maxDescriptionLength {
		description = description[:maxDescriptionLength]
		if idx := strings.LastIndexByte(description, ' '); idx > 0 {
			description = description[:idx]
		}
	}

	slog.Debug("Description extracted successfully",
		"title", article.Title,
		"description_length", len(description))

	return description, nil
}
