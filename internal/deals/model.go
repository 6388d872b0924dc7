package deals

import (
	"time"

	"dealbrief-backend/internal/briefs"
)

// Status is the lifecycle state of a deal record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusProcessed Status = "processed"
	StatusFailed    Status = "failed"
)

// MaxRawTextLength bounds raw_text in characters.
const MaxRawTextLength = 10000

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessed, StatusFailed:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transitions are allowed. Stores only
// accept updates into a terminal status, and only from pending.
func (s Status) Terminal() bool {
	return s == StatusProcessed || s == StatusFailed
}

// Deal is a submitted deal description and its generated brief.
type Deal struct {
	ID          string        `json:"id"`
	Fingerprint string        `json:"fingerprint"`
	RawText     string        `json:"raw_text"`
	Extracted   *briefs.Brief `json:"extracted"`
	Status      Status        `json:"status"`
	LastError   *string       `json:"last_error"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// ListFilter narrows and pages a deal listing.
type ListFilter struct {
	Status   Status
	Company  string
	Sector   string
	Stage    string
	Category string
	Limit    int
	Offset   int
}

// Page is one page of a deal listing.
type Page struct {
	Count   int    `json:"count"`
	Results []Deal `json:"results"`
}
