package scrape

import (
	"github.com/chillisubs/chilli-subs/app/ingest"
)

// Adapter types

const (
	AdapterFeed = "feed"
)

// Config describes one scrape source: the origin it represents plus how and
// how often to scrape it.
type Config struct {
	Name       string         `yaml:"-"` // Derived from filename (without .yml extension)
	URL        string         `yaml:"url"`
	SourceName string         `yaml:"name"`
	Key        string         `yaml:"key"`
	Settings   ConfigSettings `yaml:"settings"`
}

type ConfigSettings struct {
	Enabled         bool   `yaml:"enabled"`
	Adapter         string `yaml:"adapter"`          // currently only "feed"
	FeedURL         string `yaml:"feed_url"`         // listing feed for the feed adapter
	RefreshInterval int    `yaml:"refresh_interval"` // seconds
	Timeout         int    `yaml:"timeout"`          // seconds
	MaxItems        int    `yaml:"max_items"`
	ExtractDetails  bool   `yaml:"extract_details"` // enable description extraction
}

// Source returns the ingestion source descriptor for this config
func (c *Config) Source() ingest.Source {
	return ingest.Source{
		URL:  c.URL,
		Name: c.SourceName,
		Key:  c.Key,
	}
}
