package tasks

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/lysyi3m/race-comb/app/ingest"
)

type IngestTask struct {
	Task
	Providers []string
	runner    Runner
}

func NewIngestTask(runner Runner, providers []string) *IngestTask {
	scope := "all"
	if len(providers) > 0 {
		scope = strings.Join(providers, ",")
	}
	task := &IngestTask{
		Task:      NewTask(TaskTypeIngestRun, scope),
		Providers: providers,
		runner:    runner,
	}
	// provider failures are retried by the next scheduled run, not here
	task.MaxRetries = 0
	return task
}

// Execute runs one ingestion. A run already in progress, e.g. one started
// through the API, absorbs this tick.
func (t *IngestTask) Execute(ctx context.Context) error {
	report, err := t.runner.Run(ctx, t.Providers)
	if errors.Is(err, ingest.ErrRunInProgress) {
		slog.Info("Scheduled run coalesced with active run", "type", string(t.Type), "scope", t.Scope)
		return nil
	}
	if err != nil {
		return err
	}

	slog.Info("Task completed",
		"type", string(t.Type),
		"run_id", report.RunID,
		"created", report.Totals.Created,
		"updated", report.Totals.Updated,
		"failed", report.Totals.Failed,
		"duration", t.GetDuration())

	return nil
}
