package tasks

import (
	"time"

	"github.com/lysyi3m/complaint-comb/app/analysis"
)

const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// LatestKey holds the most recent successful analysis.
const LatestKey = "latest-analysis"

// Result is what the result store keeps for one analyze task.
type Result struct {
	ID        string            `json:"id"`
	Status    string            `json:"status"`
	Prompt    string            `json:"prompt"`
	Outcome   *analysis.Outcome `json:"outcome,omitempty"`
	Error     string            `json:"error,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func ResultKey(id string) string {
	return "task:" + id
}
