package scrape

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/chillisubs/chilli-subs/app/database"
	"github.com/chillisubs/chilli-subs/app/ingest"
)

// FeedAdapter turns an RSS/Atom listing of submission calls into candidate
// records. Each feed item maps to one candidate; item categories become both
// the genre list and one submission window per genre.
type FeedAdapter struct {
	gofeedParser *gofeed.Parser
}

func NewFeedAdapter() *FeedAdapter {
	return &FeedAdapter{
		gofeedParser: gofeed.NewParser(),
	}
}

func (a *FeedAdapter) Run(data []byte) ([]ingest.Candidate, error) {
	feed, err := a.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	candidates := make([]ingest.Candidate, 0, len(feed.Items))
	for _, item := range feed.Items {
		candidates = append(candidates, a.normalizeItem(item, feed.Link))
	}

	return candidates, nil
}

func (a *FeedAdapter) normalizeItem(item *gofeed.Item, feedLink string) ingest.Candidate {
	candidate := ingest.Candidate{
		Title:       optional(item.Title),
		Description: optional(strings.TrimSpace(item.Description)),
		PubURL:      optional(item.Link),
		BaseURL:     optional(feedLink),
	}

	if len(item.Categories) > 0 {
		candidate.Genres = item.Categories

		subDate := ""
		if item.PublishedParsed != nil {
			subDate = item.PublishedParsed.Format("2006-01-02")
		}

		submissions := make([]database.Submission, 0, len(item.Categories))
		for _, category := range item.Categories {
			submissions = append(submissions, database.Submission{
				Genre:   category,
				SubURL:  item.Link,
				SubDate: subDate,
			})
		}
		candidate.Submissions = submissions
	}

	return candidate
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
