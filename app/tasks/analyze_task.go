package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/complaint-comb/app/analysis"
	"github.com/lysyi3m/complaint-comb/app/cache"
)

// AnalyzeTask runs one user request and publishes its result. It is never
// retried: a second run would crawl and classify again.
type AnalyzeTask struct {
	Task
	prompt    string
	processor Processor
	store     cache.Store
	ttl       time.Duration
}

func NewAnalyzeTask(prompt string, processor Processor, store cache.Store, ttl time.Duration) *AnalyzeTask {
	task := NewTask(TaskTypeAnalyze)
	task.MaxRetries = 0

	return &AnalyzeTask{
		Task:      task,
		prompt:    prompt,
		processor: processor,
		store:     store,
		ttl:       ttl,
	}
}

// MarkProcessing publishes the pending state. Call it before enqueueing so a
// poll never misses the task.
func (t *AnalyzeTask) MarkProcessing(ctx context.Context) error {
	return t.publish(ctx, Result{Status: StatusProcessing})
}

// MarkFailed publishes a terminal error, used when the task cannot be run.
func (t *AnalyzeTask) MarkFailed(ctx context.Context, reason string) error {
	return t.publish(ctx, Result{Status: StatusError, Error: reason})
}

func (t *AnalyzeTask) Execute(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Analyze task panicked", "id", t.ID, "panic", r)
			err = t.MarkFailed(context.WithoutCancel(ctx), fmt.Sprintf("%v", r))
		}
	}()

	outcome := t.processor.Process(ctx, t.prompt)

	// Publishing must survive the task deadline, the work is already done.
	publishCtx := context.WithoutCancel(ctx)

	if err := t.publish(publishCtx, Result{Status: StatusCompleted, Outcome: &outcome}); err != nil {
		return err
	}

	if outcome.Type == analysis.TypeAnalysis && outcome.Success {
		if err := t.store.Set(publishCtx, LatestKey, outcome, 0); err != nil {
			slog.Warn("Failed to store latest analysis", "id", t.ID, "error", err)
		}
	}

	slog.Info("Task completed", "type", string(t.Type), "id", t.ID, "success", outcome.Success, "duration", t.GetDuration())

	return nil
}

func (t *AnalyzeTask) publish(ctx context.Context, result Result) error {
	result.ID = t.ID
	result.Prompt = t.prompt
	result.UpdatedAt = time.Now()

	if err := t.store.Set(ctx, ResultKey(t.ID), result, t.ttl); err != nil {
		return fmt.Errorf("failed to publish task result: %w", err)
	}
	return nil
}
