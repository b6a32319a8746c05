package database

import (
	"time"
)

// Publication represents a publication record in the database.
// One row exists per (name, source_url) identity; the id is assigned
// by the store on first creation and never reassigned.
type Publication struct {
	ID           int64        `json:"id"`
	Name         string       `json:"name"`
	Title        string       `json:"title,omitempty"`
	Description  string       `json:"description,omitempty"`
	BaseURL      string       `json:"baseURL,omitempty"`
	PubURL       string       `json:"pubURL,omitempty"`
	GuidelineURL string       `json:"guidelineURL,omitempty"`
	Genres       []string     `json:"genres"`
	Submissions  []Submission `json:"submissions"`
	SourceURL    string       `json:"sourceUrl"`
	IsOpen       bool         `json:"isOpen"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// Submission is a genre-scoped submission window embedded in a publication.
// Windows are persisted as an ordered JSON collection, not a separate relation.
type Submission struct {
	Genre       string `json:"genre"`
	Description string `json:"description,omitempty"`
	SubURL      string `json:"subURL,omitempty"`
	SubDate     string `json:"subDate,omitempty"`
	SubTime     string `json:"subTime,omitempty"`
	SubTimezone string `json:"subTimezone,omitempty"`
}
