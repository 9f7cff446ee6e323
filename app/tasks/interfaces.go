package tasks

import (
	"context"

	"github.com/lysyi3m/race-comb/app/ingest"
)

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application to trigger ingestion runs on a fixed interval.
//
//	scheduler := NewScheduler(orchestrator, configCache, interval)
//	scheduler.Start()
//	defer scheduler.Stop()
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

// Runner starts one ingestion run and waits for its report.
type Runner interface {
	Run(ctx context.Context, filter []string) (*ingest.RunReport, error)
}

// ConfigReloader re-reads provider configuration from disk.
type ConfigReloader interface {
	Run() error
}
