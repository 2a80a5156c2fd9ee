package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReportsWarmup rebuilds cached reports for the current month.
	TaskReportsWarmup = "reports:warmup"
	// TaskSnapshotsPrune removes unrecognized payload snapshots past retention.
	TaskSnapshotsPrune = "reports:snapshots_prune"
)

// ReportsWarmupPayload selects the report types to rebuild. Empty means the
// configured defaults.
type ReportsWarmupPayload struct {
	Types []string `json:"types,omitempty"`
}

// SnapshotsPrunePayload overrides the configured retention when set.
type SnapshotsPrunePayload struct {
	RetentionHours int `json:"retention_hours,omitempty"`
}

// NewReportsWarmupTask builds a warmup task.
func NewReportsWarmupTask(types ...string) (*asynq.Task, error) {
	body, err := json.Marshal(ReportsWarmupPayload{Types: types})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportsWarmup, body, asynq.Queue(QueueDefault)), nil
}

// NewSnapshotsPruneTask builds a prune task.
func NewSnapshotsPruneTask(retentionHours int) (*asynq.Task, error) {
	body, err := json.Marshal(SnapshotsPrunePayload{RetentionHours: retentionHours})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSnapshotsPrune, body, asynq.Queue(QueueDefault)), nil
}
