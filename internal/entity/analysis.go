package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// BlockMode is the decided enforcement duration token.
type BlockMode string

const (
	BlockNone      BlockMode = "none"
	Block30m       BlockMode = "30m"
	Block1h        BlockMode = "1h"
	Block2h        BlockMode = "2h"
	Block4h        BlockMode = "4h"
	Block8h        BlockMode = "8h"
	Block1d        BlockMode = "1d"
	Block3d        BlockMode = "3d"
	Block7d        BlockMode = "7d"
	BlockPermanent BlockMode = "permanent"
)

// blockDurations maps each non-terminal mode to its wall-clock duration.
// BlockNone expires immediately; BlockPermanent never expires.
var blockDurations = map[BlockMode]time.Duration{
	BlockNone: 0,
	Block30m:  30 * time.Minute,
	Block1h:   time.Hour,
	Block2h:   2 * time.Hour,
	Block4h:   4 * time.Hour,
	Block8h:   8 * time.Hour,
	Block1d:   24 * time.Hour,
	Block3d:   3 * 24 * time.Hour,
	Block7d:   7 * 24 * time.Hour,
}

// blockRanks orders modes by severity for escalation comparisons.
var blockRanks = map[BlockMode]int{
	BlockNone:      0,
	Block30m:       1,
	Block1h:        2,
	Block2h:        3,
	Block4h:        4,
	Block8h:        5,
	Block1d:        6,
	Block3d:        7,
	Block7d:        8,
	BlockPermanent: 9,
}

// Duration returns the block duration and whether the mode expires at all.
// (BlockPermanent, false) is the terminal state.
func (m BlockMode) Duration() (time.Duration, bool) {
	if m == BlockPermanent {
		return 0, false
	}
	d, ok := blockDurations[m]
	if !ok {
		return 0, true
	}
	return d, true
}

// Rank returns the severity rank of the mode. Higher means harsher.
func (m BlockMode) Rank() int {
	return blockRanks[m]
}

// Valid reports whether m is a known block mode token.
func (m BlockMode) Valid() bool {
	_, ok := blockRanks[m]
	return ok
}

// Decision is the enforcement verdict handed off to the firewall collaborator.
type Decision struct {
	BlockMode    BlockMode `json:"blockmode"`
	AbuseReport  bool      `json:"abuse_report"`
	Notification bool      `json:"notification"`
}

// NewDecision returns the default decision envelope with the given mode.
func NewDecision(mode BlockMode) Decision {
	return Decision{
		BlockMode:    mode,
		AbuseReport:  true,
		Notification: true,
	}
}

// SubScore is one provider's normalized [0,100] risk contribution.
// Contributed=false means the provider had no usable signal: its score is
// excluded from the weighted sum and its nominal weight is redistributed.
type SubScore struct {
	Provider       string          `json:"provider"`
	Score          float64         `json:"score"`
	Classification json.RawMessage `json:"classification,omitempty"`
	Contributed    bool            `json:"contributed"`
}

// ProviderResult is one provider's raw outcome for one aggregation run.
// Only derived sub-scores are persisted long term; the raw payload set is
// kept as the collector's freshness cache.
type ProviderResult struct {
	Provider  string          `json:"provider"`
	Success   bool            `json:"success"`
	Raw       json.RawMessage `json:"results,omitempty"`
	Error     string          `json:"error,omitempty"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// AnalysisRecord is one persisted analysis of an observable.
// Exactly one "most recent" record exists per observable at any query time,
// ordered by CreatedAt; the decision engine always reads that one first.
type AnalysisRecord struct {
	ID           uuid.UUID          `json:"id" ch:"history_id"`
	ObservableID uuid.UUID          `json:"observable_id" ch:"observable_id"`
	Observable   string             `json:"observable" ch:"observable"`
	Type         ObservableType     `json:"type" ch:"observable_type"`
	SubScores    map[string]float64 `json:"sub_scores" ch:"-"`
	TIPScore     float64            `json:"tip_score" ch:"tip_score"`
	WazuhScore   float64            `json:"wazuh_score" ch:"wazuh_score"`
	OverallScore float64            `json:"overall_score" ch:"overall_score"`
	Decision     Decision           `json:"decision" ch:"-"`
	CreatedAt    time.Time          `json:"created_at" ch:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at" ch:"updated_at"`
}

// Expired reports whether the record's decision window has lapsed at now.
// Permanent decisions never expire; a "none" decision expires immediately,
// so the next analysis always recomputes it.
func (r *AnalysisRecord) Expired(now time.Time) bool {
	d, expires := r.Decision.BlockMode.Duration()
	if !expires {
		return false
	}
	return now.After(r.CreatedAt.Add(d))
}

// ObservableInfo is the persisted identity row for an observable, created
// on first analysis and enriched on later runs.
type ObservableInfo struct {
	ID             uuid.UUID      `json:"id" ch:"observable_id"`
	Observable     string         `json:"observable" ch:"observable"`
	Type           ObservableType `json:"type" ch:"observable_type"`
	ISP            string         `json:"isp,omitempty" ch:"isp"`
	Location       string         `json:"location,omitempty" ch:"location"`
	Classification string         `json:"classification,omitempty" ch:"classification"`
	CreatedAt      time.Time      `json:"created_at" ch:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" ch:"updated_at"`
}

// BlockedFilter narrows the decided-blocks listing. Zero From/To mean
// unbounded.
type BlockedFilter struct {
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

// BlockedEntry is a row of the decided-blocks listing (reporting surface).
type BlockedEntry struct {
	Observable   string    `json:"observable"`
	Type         string    `json:"type"`
	ISP          string    `json:"isp"`
	Location     string    `json:"location"`
	BlockMode    BlockMode `json:"blockmode"`
	TIPScore     float64   `json:"tip_score"`
	WazuhScore   float64   `json:"wazuh_score"`
	OverallScore float64   `json:"overall_score"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
