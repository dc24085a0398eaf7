package models

import "time"

// Analysis is the outcome of one fetch → compute → narrate request.
type Analysis struct {
	Ticker         string        `json:"ticker"`
	Ratios         RatioSet      `json:"ratios"`
	Recommendation string        `json:"recommendation"`
	Model          string        `json:"model,omitempty"`
	Headlines      []NewsArticle `json:"headlines,omitempty"`
	GeneratedAt    time.Time     `json:"generated_at"`
}

// NewsArticle represents a single news headline.
type NewsArticle struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	Summary     string    `json:"summary,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}
