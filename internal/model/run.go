package model

import "time"

// RunRecord is the structured audit record written once per completed
// discovery request. The engine itself never persists anything; the command
// layer hands these to the store.
type RunRecord struct {
	ID           string           `json:"id"`
	Request      DiscoveryRequest `json:"request"`
	Source       ResultSource     `json:"source"`
	Direct       int              `json:"direct"`
	Indirect     int              `json:"indirect"`
	Emerging     int              `json:"emerging"`
	UsedFallback bool             `json:"used_fallback"`
	Duration     time.Duration    `json:"duration"`
	CreatedAt    time.Time        `json:"created_at"`
}

// NewRunRecord builds the audit record for a finished result.
func NewRunRecord(id string, res *DiscoveryResult) RunRecord {
	direct, indirect, emerging := res.TierCounts()
	return RunRecord{
		ID:           id,
		Request:      res.Request,
		Source:       res.Source,
		Direct:       direct,
		Indirect:     indirect,
		Emerging:     emerging,
		UsedFallback: res.Source == SourceFallback,
		Duration:     res.Duration,
		CreatedAt:    res.StartedAt.Add(res.Duration),
	}
}
