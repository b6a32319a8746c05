package ingest

import (
	"github.com/chillisubs/chilli-subs/app/database"
)

// Candidate is the intermediate record a scrape adapter produces for one
// publication, before normalization. Nil pointers and empty collections mean
// the scrape did not observe the field.
type Candidate struct {
	Title        *string               `json:"title,omitempty"`
	Name         *string               `json:"name,omitempty"`
	BaseURL      *string               `json:"baseURL,omitempty"`
	PubURL       *string               `json:"pubURL,omitempty"`
	GuidelineURL *string               `json:"guidelineURL,omitempty"`
	Description  *string               `json:"description,omitempty"`
	Genres       []string              `json:"genres,omitempty"`
	Submissions  []database.Submission `json:"submissions,omitempty"`
	IsOpen       *bool                 `json:"isOpen,omitempty"`
}

// Source describes the scrape origin that produced a candidate. URL is part
// of the composite dedup identity.
type Source struct {
	URL  string `json:"url"`
	Name string `json:"name,omitempty"`
	Key  string `json:"key,omitempty"`
}
