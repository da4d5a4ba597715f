package tasks

import "context"

// ScheduledTaskFunc is the signature of every scheduled task. The context is
// cancelled when the scheduler shuts down.
type ScheduledTaskFunc func(ctx context.Context) error

// Task names as used in the scheduler.tasks configuration section.
const (
	TaskSQLMaintenance = "sql_maintenance"
	TaskCaptureExpiry  = "capture_expiry"
)

// RegisterAllTasks returns every task keyed by its configuration name.
func RegisterAllTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	tasks := map[string]ScheduledTaskFunc{
		TaskSQLMaintenance: newSQLMaintenanceTask(deps),
		TaskCaptureExpiry:  newCaptureExpiryTask(deps),
	}
	deps.Logger.Info("Initialized scheduled tasks", "count", len(tasks))
	return tasks
}
