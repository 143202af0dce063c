package models

import "time"

// SyncResult summarizes one provider's part of a sync cycle.
type SyncResult struct {
	Provider              string        `json:"provider"`
	SportKey              string        `json:"sport_key,omitempty"`
	Success               bool          `json:"success"`
	EventsProcessed       int           `json:"events_processed"`
	OddsProcessed         int           `json:"odds_processed"`
	OpportunitiesDetected int           `json:"opportunities_detected"`
	Errors                []string      `json:"errors,omitempty"`
	Duration              time.Duration `json:"duration"`
	Timestamp             time.Time     `json:"timestamp"`
}

// SyncReport is the outcome of a whole sync cycle.
type SyncReport struct {
	Results               []SyncResult  `json:"results"`
	OpportunitiesDetected int           `json:"opportunities_detected"`
	Duration              time.Duration `json:"duration"`
}

// SyncState is the persisted health of a provider.
type SyncState struct {
	Provider          string     `json:"provider" db:"provider"`
	SportKey          string     `json:"sport_key" db:"sport_key"`
	LastSyncAt        *time.Time `json:"last_sync_at,omitempty" db:"last_sync_at"`
	LastSuccessAt     *time.Time `json:"last_success_at,omitempty" db:"last_success_at"`
	LastErrorAt       *time.Time `json:"last_error_at,omitempty" db:"last_error_at"`
	LastError         string     `json:"last_error,omitempty" db:"last_error"`
	ConsecutiveErrors int        `json:"consecutive_errors" db:"consecutive_errors"`
	TotalSyncs        int        `json:"total_syncs" db:"total_syncs"`
}

// SyncRequest is the body of POST /sync.
type SyncRequest struct {
	Source string `json:"source"`
}

// Sync sources accepted by SyncRequest.
const (
	SyncSourceAll        = "all"
	SyncSourceOddsAPI    = "odds_api"
	SyncSourcePolymarket = "polymarket"
)
