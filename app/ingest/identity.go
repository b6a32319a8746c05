package ingest

// ResolveIdentity derives the composite dedup key for a candidate: the
// canonical name paired with the scrape origin URL. The raw name is the first
// present value of candidate title, candidate name, candidate base URL, then
// the source's own name; without any of those the fallback identity applies.
// The result is stable across re-scrapes regardless of incidental field
// changes.
func ResolveIdentity(candidate Candidate, source Source) (string, string) {
	raw := firstNonEmpty(
		stringValue(candidate.Title),
		stringValue(candidate.Name),
		stringValue(candidate.BaseURL),
		source.Name,
	)

	return Normalize(raw), source.URL
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func stringValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
