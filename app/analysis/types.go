package analysis

import (
	"context"
	"time"

	"github.com/lysyi3m/complaint-comb/app/classify"
	"github.com/lysyi3m/complaint-comb/app/command"
	"github.com/lysyi3m/complaint-comb/app/refresh"
)

const (
	TypeChat     = "chat"
	TypeAnalysis = "analysis"
	TypeInvalid  = "invalid"
)

// User-facing failure prefixes.
const (
	ErrRefreshFailed  = "Veritabanı güncellenemedi"
	ErrSelectFailed   = "Veri hazırlanamadı"
	ErrAnalysisFailed = "Analiz hatası"
	ErrSaveFailed     = "Analiz kaydetme hatası"
)

type Interpreter interface {
	Resolve(ctx context.Context, text string, window command.Window) command.Resolution
}

type Refresher interface {
	Refresh(ctx context.Context) (refresh.Progress, error)
}

type Classifier interface {
	Classify(ctx context.Context, batch string) classify.Result
}

type ChartRenderer interface {
	Render(title string, counts map[string]int) (string, error)
}

// Outcome is the result of one user request.
type Outcome struct {
	Type        string `json:"type"`
	Success     bool   `json:"success"`
	Message     string `json:"message,omitempty"`
	Error       string `json:"error,omitempty"`
	Description string `json:"description,omitempty"`
	Source      string `json:"source,omitempty"`

	TotalFound         int  `json:"total_found"`
	UncategorizedCount int  `json:"uncategorized_count"`
	NewRecords         int  `json:"new_records"`
	NewAssignments     int  `json:"new_assignments"`
	StatsOnly          bool `json:"stats_only"`

	CategoryStats     map[string]int `json:"category_stats,omitempty"`
	ReasonStats       map[string]int `json:"reason_stats,omitempty"`
	CategoryChartPath string         `json:"category_chart_path,omitempty"`
	ReasonChartPath   string         `json:"reason_chart_path,omitempty"`

	Duration time.Duration `json:"duration"`
}
