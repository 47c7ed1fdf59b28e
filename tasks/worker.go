package tasks

import (
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"inkflow/config"
)

func redisOpts(cfg config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisQueueDB,
	}
}

// NewQueueClient builds the asynq client used to enqueue processing tasks.
func NewQueueClient(cfg config.Config) *asynq.Client {
	return asynq.NewClient(redisOpts(cfg))
}

// StartWorker runs the async worker in the background and returns the
// server so the caller can shut it down.
func StartWorker(cfg config.Config, processor *Processor, logger *zap.Logger) *asynq.Server {
	srv := asynq.NewServer(
		redisOpts(cfg),
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeProcessMessages, processor.HandleProcessMessages)

	go func() {
		logger.Info("starting message worker")
		const maxAttempts = 5

		for attempt := 1; attempt <= maxAttempts; attempt++ {
			err := srv.Run(mux)
			if err == nil {
				return
			}
			logger.Error("worker failed to start",
				zap.Int("attempt", attempt), zap.Int("maxAttempts", maxAttempts), zap.Error(err))
			if attempt == maxAttempts {
				logger.Fatal("worker could not start, giving up")
			}
			time.Sleep(time.Duration(attempt*2) * time.Second)
		}
	}()

	return srv
}
