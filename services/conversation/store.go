// Package conversation keeps all per-customer transient state in Redis:
// chat history, the incoming message queue, processing locks, the human
// override mute, and pending image analyses. Everything here expires on
// its own; nothing is a system of record.
package conversation

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"inkflow/models"
	"inkflow/utils"
)

const (
	historyKeyPrefix   = "chat:"
	queueKeyPrefix     = "message_queue:"
	lockKeyPrefix      = "processing_lock:"
	muteKeyPrefix      = "mute:"
	pendingKeyPrefix   = "images_pending:"
	analysisKeyPrefix  = "image_analysis:"
	scheduledKeyPrefix = "scheduled:"
)

// Store wraps the Redis cache client with conversation operations.
type Store struct {
	rdb        *redis.Client
	logger     *zap.Logger
	maxHistory int
}

func NewStore(rdb *redis.Client, logger *zap.Logger, maxHistory int) *Store {
	if maxHistory <= 0 {
		maxHistory = 20
	}
	return &Store{rdb: rdb, logger: logger, maxHistory: maxHistory}
}

// History returns the stored conversation turns, oldest first. A
// missing key is an empty conversation, not an error.
func (s *Store) History(ctx context.Context, userID string) ([]models.ChatMessage, error) {
	raw, err := s.rdb.Get(ctx, historyKeyPrefix+userID).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, utils.NewServiceError("redis", err)
	}
	var history []models.ChatMessage
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		s.logger.Warn("discarding corrupt conversation history",
			zap.String("user", userID), zap.Error(err))
		return nil, nil
	}
	return history, nil
}

// AppendTurn adds one turn to the conversation, trimming to the
// configured window and refreshing the retention TTL.
func (s *Store) AppendTurn(ctx context.Context, userID string, msg models.ChatMessage) error {
	history, err := s.History(ctx, userID)
	if err != nil {
		return err
	}
	history = TrimHistory(append(history, msg), s.maxHistory)

	raw, err := json.Marshal(history)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, historyKeyPrefix+userID, raw, utils.ConversationTTL).Err(); err != nil {
		return utils.NewServiceError("redis", err)
	}
	return nil
}

// TrimHistory keeps the most recent max turns.
func TrimHistory(history []models.ChatMessage, max int) []models.ChatMessage {
	if len(history) <= max {
		return history
	}
	return history[len(history)-max:]
}

// Enqueue appends an incoming event to the user's pending batch.
func (s *Store) Enqueue(ctx context.Context, userID string, msg models.QueuedMessage) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	key := queueKeyPrefix + userID
	pipe := s.rdb.TxPipeline()
	pipe.RPush(ctx, key, raw)
	pipe.Expire(ctx, key, utils.QueueTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return utils.NewServiceError("redis", err)
	}
	return nil
}

// Drain removes and returns the user's queued messages sorted by
// arrival time.
func (s *Store) Drain(ctx context.Context, userID string) ([]models.QueuedMessage, error) {
	key := queueKeyPrefix + userID
	raws, err := s.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, utils.NewServiceError("redis", err)
	}
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		s.logger.Warn("failed to clear message queue", zap.String("user", userID), zap.Error(err))
	}

	messages := make([]models.QueuedMessage, 0, len(raws))
	for _, raw := range raws {
		var msg models.QueuedMessage
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			s.logger.Warn("dropping corrupt queued message", zap.String("user", userID), zap.Error(err))
			continue
		}
		messages = append(messages, msg)
	}
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp < messages[j].Timestamp
	})
	return messages, nil
}

// ClearQueue drops any queued messages without processing them.
func (s *Store) ClearQueue(ctx context.Context, userID string) {
	if err := s.rdb.Del(ctx, queueKeyPrefix+userID).Err(); err != nil {
		s.logger.Warn("failed to clear message queue", zap.String("user", userID), zap.Error(err))
	}
}

// AcquireLock takes the per-user processing lock. It self-expires so a
// crashed worker cannot wedge the conversation.
func (s *Store) AcquireLock(ctx context.Context, userID string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, lockKeyPrefix+userID, "1", utils.ProcessingLock).Result()
	if err != nil {
		return false, utils.NewServiceError("redis", err)
	}
	return ok, nil
}

// ReleaseLock frees the processing lock.
func (s *Store) ReleaseLock(ctx context.Context, userID string) {
	if err := s.rdb.Del(ctx, lockKeyPrefix+userID).Err(); err != nil {
		s.logger.Warn("failed to release processing lock", zap.String("user", userID), zap.Error(err))
	}
}

// Mute suspends automatic replies for the user while a human handles
// the thread.
func (s *Store) Mute(ctx context.Context, userID string) error {
	if err := s.rdb.Set(ctx, muteKeyPrefix+userID, "1", utils.MuteDuration).Err(); err != nil {
		return utils.NewServiceError("redis", err)
	}
	s.logger.Info("user muted for human takeover", zap.String("user", userID))
	return nil
}

// IsMuted reports whether the human override is active.
func (s *Store) IsMuted(ctx context.Context, userID string) bool {
	n, err := s.rdb.Exists(ctx, muteKeyPrefix+userID).Result()
	if err != nil {
		s.logger.Warn("mute lookup failed", zap.String("user", userID), zap.Error(err))
		return false
	}
	return n > 0
}

// AddPendingImage bumps the count of images still being analyzed.
func (s *Store) AddPendingImage(ctx context.Context, userID string) error {
	key := pendingKeyPrefix + userID
	pipe := s.rdb.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, utils.PendingImageTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return utils.NewServiceError("redis", err)
	}
	return nil
}

// ImageDone marks one pending image analysis as finished.
func (s *Store) ImageDone(ctx context.Context, userID string) {
	if err := s.rdb.Decr(ctx, pendingKeyPrefix+userID).Err(); err != nil {
		s.logger.Warn("failed to decrement pending images", zap.String("user", userID), zap.Error(err))
	}
}

// PendingImages returns how many image analyses are still running.
func (s *Store) PendingImages(ctx context.Context, userID string) int {
	raw, err := s.rdb.Get(ctx, pendingKeyPrefix+userID).Int()
	if err != nil {
		return 0
	}
	return raw
}

// PushAnalysis stores one finished image analysis for the next reply.
func (s *Store) PushAnalysis(ctx context.Context, userID, analysis string) error {
	key := analysisKeyPrefix + userID
	pipe := s.rdb.TxPipeline()
	pipe.RPush(ctx, key, analysis)
	pipe.Expire(ctx, key, utils.AnalysisTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return utils.NewServiceError("redis", err)
	}
	return nil
}

// Analyses returns the stored image analyses in arrival order.
func (s *Store) Analyses(ctx context.Context, userID string) []string {
	out, err := s.rdb.LRange(ctx, analysisKeyPrefix+userID, 0, -1).Result()
	if err != nil {
		s.logger.Warn("analysis lookup failed", zap.String("user", userID), zap.Error(err))
		return nil
	}
	return out
}

// ClearAnalyses drops consumed image analyses.
func (s *Store) ClearAnalyses(ctx context.Context, userID string) {
	if err := s.rdb.Del(ctx, analysisKeyPrefix+userID).Err(); err != nil {
		s.logger.Warn("failed to clear analyses", zap.String("user", userID), zap.Error(err))
	}
}

// MarkScheduled flags that a processing task is queued for this user.
// Returns false when one is already pending. The flag outlives the
// grace window slightly so a crashed worker frees it on its own.
func (s *Store) MarkScheduled(ctx context.Context, userID string, graceWindow time.Duration) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, scheduledKeyPrefix+userID, "1", graceWindow+5*time.Second).Result()
	if err != nil {
		return false, utils.NewServiceError("redis", err)
	}
	return ok, nil
}

// ClearScheduled removes the scheduled flag once processing starts.
func (s *Store) ClearScheduled(ctx context.Context, userID string) {
	if err := s.rdb.Del(ctx, scheduledKeyPrefix+userID).Err(); err != nil {
		s.logger.Warn("failed to clear scheduled flag", zap.String("user", userID), zap.Error(err))
	}
}
