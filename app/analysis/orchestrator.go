package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/complaint-comb/app/chart"
	"github.com/lysyi3m/complaint-comb/app/classify"
	"github.com/lysyi3m/complaint-comb/app/command"
	"github.com/lysyi3m/complaint-comb/app/database"
)

// Orchestrator turns a free-text request into a chat reply or an analysis of
// stored complaints.
type Orchestrator struct {
	interpreter Interpreter
	refresher   Refresher
	classifier  Classifier
	charts      ChartRenderer
	complaints  database.ComplaintStore
	assignments database.AssignmentStore
}

func NewOrchestrator(interpreter Interpreter, refresher Refresher, classifier Classifier, charts ChartRenderer,
	complaints database.ComplaintStore, assignments database.AssignmentStore) *Orchestrator {
	return &Orchestrator{
		interpreter: interpreter,
		refresher:   refresher,
		classifier:  classifier,
		charts:      charts,
		complaints:  complaints,
		assignments: assignments,
	}
}

// Process handles one request end to end. Failures are reported in the
// outcome, never as a Go error.
func (o *Orchestrator) Process(ctx context.Context, prompt string) Outcome {
	start := time.Now()
	outcome := o.process(ctx, prompt)
	outcome.Duration = time.Since(start)

	slog.Info("Request processed",
		"type", outcome.Type,
		"success", outcome.Success,
		"total_found", outcome.TotalFound,
		"new_assignments", outcome.NewAssignments,
		"duration", outcome.Duration)

	return outcome
}

func (o *Orchestrator) process(ctx context.Context, prompt string) Outcome {
	res := o.interpreter.Resolve(ctx, prompt, o.window(ctx))

	switch {
	case res.Kind == command.KindChat:
		return Outcome{Type: TypeChat, Success: true, Message: res.ChatMessage, Source: res.Source}
	case !res.IsAnalysis():
		return Outcome{Type: TypeInvalid, Success: false, Error: res.Message, Source: res.Source}
	}

	outcome := Outcome{Type: TypeAnalysis, Description: res.Description, Source: res.Source}

	progress, err := o.refresher.Refresh(ctx)
	if err != nil {
		return failed(outcome, ErrRefreshFailed, err)
	}
	outcome.NewRecords = progress.ItemsScraped

	selected, err := o.selectComplaints(ctx, res)
	if err != nil {
		return failed(outcome, ErrSelectFailed, err)
	}
	outcome.TotalFound = len(selected)

	ids := make([]int64, len(selected))
	for i, c := range selected {
		ids[i] = c.ID
	}

	uncategorized, err := o.complaints.ListUncategorized(ctx, ids)
	if err != nil {
		return failed(outcome, ErrSelectFailed, err)
	}
	outcome.UncategorizedCount = len(uncategorized)

	if len(uncategorized) == 0 {
		outcome.StatsOnly = true
	} else {
		written, step, err := o.classifyAndSave(ctx, uncategorized)
		if err != nil {
			return failed(outcome, step, err)
		}
		outcome.NewAssignments = written
	}

	return o.withStats(ctx, outcome, ids)
}

func (o *Orchestrator) window(ctx context.Context) command.Window {
	earliest, latest, err := o.complaints.DateRange(ctx)
	if err != nil {
		slog.Warn("Failed to read stored date range", "error", err)
		return command.Window{}
	}
	return command.Window{Earliest: earliest, Latest: latest}
}

func (o *Orchestrator) selectComplaints(ctx context.Context, res command.Resolution) ([]database.Complaint, error) {
	switch res.Kind {
	case command.KindLastCount:
		return o.complaints.ListByCount(ctx, res.Count)
	case command.KindDateRange, command.KindMonth:
		return o.complaints.ListByDateRange(ctx, res.Start, res.End)
	case command.KindDatetimeRange:
		return o.complaints.ListByDatetimeRange(ctx, res.Start, res.End)
	}
	return nil, fmt.Errorf("unsupported command kind %q", res.Kind)
}

// classifyAndSave runs one classification batch and stores the assignments
// that belong to the submitted complaints. On failure it also names the
// failed step.
func (o *Orchestrator) classifyAndSave(ctx context.Context, complaints []database.Complaint) (int, string, error) {
	records := make([]classify.Record, len(complaints))
	submitted := make(map[int64]bool, len(complaints))
	for i, c := range complaints {
		records[i] = classify.Record{
			ComplaintID: c.ID,
			Title:       c.Title,
			FullComment: c.FullText,
			RefURL:      c.RefURL,
			Date:        c.OccurredAt.Format(command.DatetimeLayout),
		}
		submitted[c.ID] = true
	}

	result := o.classifier.Classify(ctx, classify.EncodeBatch(records))
	if !result.Success {
		return 0, ErrAnalysisFailed, errors.New(result.Error)
	}

	var assignments []database.Assignment
	for _, a := range result.Assignments {
		if !submitted[a.ComplaintID] {
			slog.Warn("Dropping assignment for a complaint that was not submitted", "complaint_id", a.ComplaintID)
			continue
		}
		assignments = append(assignments, database.Assignment{
			ComplaintID: a.ComplaintID,
			Category:    a.Category,
			Reason:      a.Reason,
		})
	}

	written, err := o.assignments.UpsertAssignments(ctx, assignments)
	if err != nil {
		return 0, ErrSaveFailed, err
	}

	slog.Debug("Assignments saved", "submitted", len(complaints), "written", written)

	return written, "", nil
}

func (o *Orchestrator) withStats(ctx context.Context, outcome Outcome, ids []int64) Outcome {
	stats, err := o.assignments.StatsForComplaints(ctx, ids)
	if err != nil {
		return failed(outcome, ErrSelectFailed, err)
	}

	outcome.Success = true
	outcome.CategoryStats = stats.Categories
	outcome.ReasonStats = stats.Reasons

	if path, err := o.charts.Render(chart.CategoryTitle, stats.Categories); err != nil {
		slog.Warn("Failed to render category chart", "error", err)
	} else {
		outcome.CategoryChartPath = path
	}

	if path, err := o.charts.Render(chart.ReasonTitle, stats.Reasons); err != nil {
		slog.Warn("Failed to render reason chart", "error", err)
	} else {
		outcome.ReasonChartPath = path
	}

	return outcome
}

func failed(outcome Outcome, prefix string, err error) Outcome {
	outcome.Success = false
	outcome.Error = fmt.Sprintf("%s: %v", prefix, err)
	slog.Error("Analysis failed", "step", prefix, "error", err)
	return outcome
}
