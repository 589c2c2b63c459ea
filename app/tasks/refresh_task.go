package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

// RefreshTask runs one background incremental crawl.
type RefreshTask struct {
	Task
	refresher Refresher
}

func NewRefreshTask(refresher Refresher) *RefreshTask {
	return &RefreshTask{
		Task:      NewTask(TaskTypeRefresh),
		refresher: refresher,
	}
}

func (t *RefreshTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	progress, err := t.refresher.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh complaints: %w", err)
	}

	slog.Info("Task completed", "type", string(t.Type), "id", t.ID, "new_records", progress.ItemsScraped, "stop_reason", progress.StopReason, "duration", t.GetDuration())

	return nil
}
