// Package tasks schedules and runs the delayed conversation processing
// behind the webhook: each inbound message re-arms a short grace window
// so rapid-fire messages get answered as one batch.
package tasks

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

// TypeProcessMessages batches and answers a user's queued messages.
const TypeProcessMessages = "conversation:process"

// ProcessPayload identifies whose queue to process.
type ProcessPayload struct {
	UserID string `json:"userId"`
}

// NewProcessTask builds a delayed processing task for one user.
func NewProcessTask(userID string, delay time.Duration) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(ProcessPayload{UserID: userID})
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeProcessMessages, b)
	opts := []asynq.Option{
		asynq.ProcessIn(delay),
		asynq.MaxRetry(2),
	}
	return task, opts, nil
}
