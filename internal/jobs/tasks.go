// Package jobs runs the background queue: the periodic rate-refresh sweep
// that feeds threshold alerts.
package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TaskTypeRateRefresh = "rate:refresh"
)

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// RateRefreshPayload carries sweep metadata for audit logging.
type RateRefreshPayload struct {
	RequestedAt time.Time `json:"requested_at"`
}

// NewRateRefreshTask builds the periodic sweep task.
func NewRateRefreshTask() (*asynq.Task, error) {
	payload, err := json.Marshal(RateRefreshPayload{RequestedAt: time.Now().UTC()})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TaskTypeRateRefresh, payload, asynq.Queue(QueueDefault)), nil
}
