package tasks

import (
	"context"

	"github.com/lysyi3m/complaint-comb/app/analysis"
	"github.com/lysyi3m/complaint-comb/app/refresh"
)

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the API to run analysis requests and by main to manage the worker pool.
// Example usage:
//
//	scheduler := NewScheduler(refresher, workerCount, refreshInterval, DefaultTaskTimeout)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewAnalyzeTask(prompt, orchestrator, store, ttl))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

type Processor interface {
	Process(ctx context.Context, prompt string) analysis.Outcome
}

type Refresher interface {
	Refresh(ctx context.Context) (refresh.Progress, error)
}
