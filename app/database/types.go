package database

import (
	"time"
)

type Complaint struct {
	ID         int64
	RefURL     string
	Title      string
	FullText   string
	OccurredAt time.Time
	StoredAt   time.Time
}

// NewComplaint carries the fields known before the row has an id.
type NewComplaint struct {
	RefURL     string
	Title      string
	FullText   string
	OccurredAt time.Time
}

type Assignment struct {
	ComplaintID int64
	Category    string
	Reason      string
	AssignedAt  time.Time
}

// Stats counts categories and reasons over a set of complaints. Complaints
// without an assignment are not counted.
type Stats struct {
	Categories map[string]int
	Reasons    map[string]int
	Total      int
}
