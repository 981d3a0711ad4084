// Package model defines the core data types shared across the discovery engine.
package model

import "time"

// Mode selects which question a discovery request answers.
type Mode string

const (
	// ModeCompetitors finds products competing with the subject.
	ModeCompetitors Mode = "competitors"
	// ModeProducts finds prior products the subject's brand has shipped.
	ModeProducts Mode = "products"
)

// DiscoveryRequest drives term generation for every connector query.
type DiscoveryRequest struct {
	Subject        string  `json:"subject"`
	Brand          string  `json:"brand,omitempty"`
	Category       string  `json:"category"`
	ReferencePrice float64 `json:"reference_price,omitempty"`
	TargetCount    int     `json:"target_count,omitempty"`
	Mode           Mode    `json:"mode"`
}

// RawSnippet is one unit of text returned by a source connector.
// Engagement metrics are service-specific; zero values mean "not reported".
type RawSnippet struct {
	Service     string    `json:"service"`
	Text        string    `json:"text"`
	Likes       int       `json:"likes,omitempty"`
	Shares      int       `json:"shares,omitempty"`
	Replies     int       `json:"replies,omitempty"`
	Votes       int       `json:"votes,omitempty"`
	Views       int       `json:"views,omitempty"`
	HasMetrics  bool      `json:"has_metrics"`
	PublishedAt time.Time `json:"published_at"`
	URL         string    `json:"url,omitempty"`
}

// EntityObservation is one candidate entity mention extracted from a snippet.
type EntityObservation struct {
	Name           string    `json:"name"`
	NormalizedName string    `json:"normalized_name"`
	Price          float64   `json:"price,omitempty"`
	Year           int       `json:"year,omitempty"`
	Service        string    `json:"service"`
	Engagement     float64   `json:"engagement"`
	SnippetURL     string    `json:"snippet_url,omitempty"`
	ObservedAt     time.Time `json:"observed_at"`
}

// Tier classifies a canonical entity by aggregate confidence.
type Tier string

const (
	TierDirect   Tier = "direct"
	TierIndirect Tier = "indirect"
	TierEmerging Tier = "emerging"
)

// CanonicalEntity is the merged representation of one real-world entity.
// Immutable once the merge pass completes.
type CanonicalEntity struct {
	Name           string              `json:"name"`
	NormalizedName string              `json:"normalized_name"`
	Sources        []string            `json:"sources"`
	Price          float64             `json:"price,omitempty"`
	Year           int                 `json:"year,omitempty"`
	Score          float64             `json:"score"`
	Tier           Tier                `json:"tier"`
	FirstObserved  time.Time           `json:"first_observed"`
	Observations   []EntityObservation `json:"observations,omitempty"`
}

// ResultSource distinguishes live discovery from the curated fallback.
type ResultSource string

const (
	SourceLive     ResultSource = "live"
	SourceFallback ResultSource = "fallback"
)

// ConnectorState is the terminal state of one connector within a request.
type ConnectorState string

const (
	StateCollected ConnectorState = "collected"
	StateSkipped   ConnectorState = "skipped"
	StateFailed    ConnectorState = "failed"
)

// ConnectorStatus records how a single connector fared during the waterfall.
type ConnectorStatus struct {
	Service  string         `json:"service"`
	State    ConnectorState `json:"state"`
	Snippets int            `json:"snippets"`
	Reason   string         `json:"reason,omitempty"`
}

// DiscoveryResult is the caller-visible outcome of one request. It is never
// empty: when every live source fails the entities come from the fallback
// dataset, tagged accordingly.
type DiscoveryResult struct {
	Request    DiscoveryRequest  `json:"request"`
	Entities   []CanonicalEntity `json:"entities"`
	Source     ResultSource      `json:"source"`
	Provenance string            `json:"provenance"`
	Connectors []ConnectorStatus `json:"connectors,omitempty"`
	StartedAt  time.Time         `json:"started_at"`
	Duration   time.Duration     `json:"duration"`
}

// TierCounts summarizes a result for the audit record.
func (r *DiscoveryResult) TierCounts() (direct, indirect, emerging int) {
	for _, e := range r.Entities {
		switch e.Tier {
		case TierDirect:
			direct++
		case TierIndirect:
			indirect++
		default:
			emerging++
		}
	}
	return direct, indirect, emerging
}
