package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

type ReloadProvidersTask struct {
	Task
	reloader ConfigReloader
}

func NewReloadProvidersTask(reloader ConfigReloader) *ReloadProvidersTask {
	return &ReloadProvidersTask{
		Task:     NewTask(TaskTypeReloadProviders, "providers"),
		reloader: reloader,
	}
}

func (t *ReloadProvidersTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := t.reloader.Run(); err != nil {
		return fmt.Errorf("failed to reload provider configs: %w", err)
	}

	slog.Debug("Task completed", "type", string(t.Type), "duration", t.GetDuration())
	return nil
}
