package tasks

import (
	"context"
	"math/rand"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// ScheduleFlag deduplicates processing tasks per user.
type ScheduleFlag interface {
	MarkScheduled(ctx context.Context, userID string, graceWindow time.Duration) (bool, error)
}

// Enqueuer is the asynq client surface the scheduler needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Scheduler arms the grace window after each inbound message. The
// window is the configured base plus a small random spread so replies
// do not look machine-timed.
type Scheduler struct {
	Client Enqueuer
	Flags  ScheduleFlag
	Logger *zap.Logger
	Grace  time.Duration

	// jitter returns the random extra delay; overridable in tests.
	jitter func() time.Duration
}

func NewScheduler(client Enqueuer, flags ScheduleFlag, logger *zap.Logger, grace time.Duration) *Scheduler {
	return &Scheduler{
		Client: client,
		Flags:  flags,
		Logger: logger,
		Grace:  grace,
		jitter: func() time.Duration {
			return time.Duration(1+rand.Intn(10)) * time.Second
		},
	}
}

// Schedule queues processing for the user after the grace window. A
// user with a task already pending is left alone; their messages join
// the existing batch.
func (s *Scheduler) Schedule(ctx context.Context, userID string) error {
	delay := s.Grace + s.jitter()

	ok, err := s.Flags.MarkScheduled(ctx, userID, delay)
	if err != nil {
		return err
	}
	if !ok {
		s.Logger.Debug("processing already scheduled", zap.String("user", userID))
		return nil
	}

	task, opts, err := NewProcessTask(userID, delay)
	if err != nil {
		return err
	}
	if _, err := s.Client.EnqueueContext(ctx, task, opts...); err != nil {
		return err
	}
	s.Logger.Debug("processing scheduled",
		zap.String("user", userID), zap.Duration("delay", delay))
	return nil
}

// Retry re-queues processing shortly, bypassing the dedupe flag. Used
// while image analyses are still running.
func (s *Scheduler) Retry(ctx context.Context, userID string, delay time.Duration) error {
	task, opts, err := NewProcessTask(userID, delay)
	if err != nil {
		return err
	}
	_, err = s.Client.EnqueueContext(ctx, task, opts...)
	return err
}
