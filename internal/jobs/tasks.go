// Package jobs defines the scheduled background work: the daily
// engagement sweep and chat history cleanup, run through asynq.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	TaskTypeEngagementSweep = "engagement:sweep"
	TaskTypeMessageCleanup  = "messages:cleanup"
)

const (
	QueueDefault = "default"
	QueueLow     = "low"
)

// SweepPayload carries nothing today; the sweep derives its date from
// the clock. The struct stays so the payload can grow without a task
// version bump.
type SweepPayload struct{}

// MessageCleanupPayload names the retention horizon in days.
type MessageCleanupPayload struct {
	RetentionDays int `json:"retention_days"`
}

// NewEngagementSweepTask builds the periodic sweep task.
func NewEngagementSweepTask() (*asynq.Task, error) {
	payload, err := json.Marshal(SweepPayload{})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TaskTypeEngagementSweep, payload, asynq.Queue(QueueDefault)), nil
}

// NewMessageCleanupTask builds the chat retention task.
func NewMessageCleanupTask(retentionDays int) (*asynq.Task, error) {
	payload, err := json.Marshal(MessageCleanupPayload{RetentionDays: retentionDays})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TaskTypeMessageCleanup, payload, asynq.Queue(QueueLow)), nil
}
