package tasks

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"inkflow/models"
)

// imageRetryDelay is how long the processor waits before re-checking a
// batch whose image analyses have not finished.
const imageRetryDelay = 3 * time.Second

// ConversationState is the slice of the conversation store the
// processor drives.
type ConversationState interface {
	AcquireLock(ctx context.Context, userID string) (bool, error)
	ReleaseLock(ctx context.Context, userID string)
	IsMuted(ctx context.Context, userID string) bool
	ClearScheduled(ctx context.Context, userID string)
	PendingImages(ctx context.Context, userID string) int
	Drain(ctx context.Context, userID string) ([]models.QueuedMessage, error)
	Enqueue(ctx context.Context, userID string, msg models.QueuedMessage) error
	Analyses(ctx context.Context, userID string) []string
	ClearAnalyses(ctx context.Context, userID string)
	History(ctx context.Context, userID string) ([]models.ChatMessage, error)
	AppendTurn(ctx context.Context, userID string, msg models.ChatMessage) error
}

// Replier produces the assistant's answer for a message batch.
type Replier interface {
	Reply(ctx context.Context, userID, combinedMessage, textOnly string, history []models.ChatMessage, imageAnalyses []string) string
}

// Sender delivers the reply to the customer.
type Sender interface {
	SendLong(ctx context.Context, recipientID, text string) error
}

// Processor answers one user's queued messages as a single batch.
type Processor struct {
	State     ConversationState
	Assistant Replier
	Messenger Sender
	Scheduler *Scheduler
	Logger    *zap.Logger
}

func NewProcessor(state ConversationState, assistant Replier, messenger Sender, scheduler *Scheduler, logger *zap.Logger) *Processor {
	return &Processor{
		State:     state,
		Assistant: assistant,
		Messenger: messenger,
		Scheduler: scheduler,
		Logger:    logger,
	}
}

// HandleProcessMessages is the asynq handler for TypeProcessMessages.
func (p *Processor) HandleProcessMessages(ctx context.Context, task *asynq.Task) error {
	var payload ProcessPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		p.Logger.Error("invalid task payload", zap.Error(err))
		return err
	}
	return p.Process(ctx, payload.UserID)
}

// Process runs the batch pipeline for one user: lock, check the human
// override, wait out image analyses, drain, answer, deliver, persist.
func (p *Processor) Process(ctx context.Context, userID string) error {
	locked, err := p.State.AcquireLock(ctx, userID)
	if err != nil {
		return err
	}
	if !locked {
		// Another worker is already on this user.
		return nil
	}
	defer p.State.ReleaseLock(ctx, userID)

	if p.State.IsMuted(ctx, userID) {
		p.Logger.Debug("human override active, skipping batch", zap.String("user", userID))
		return nil
	}

	p.State.ClearScheduled(ctx, userID)

	if pending := p.State.PendingImages(ctx, userID); pending > 0 {
		p.Logger.Debug("image analyses still running, retrying shortly",
			zap.String("user", userID), zap.Int("pending", pending))
		return p.Scheduler.Retry(ctx, userID, imageRetryDelay)
	}

	messages, err := p.State.Drain(ctx, userID)
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		return nil
	}

	analyses := p.State.Analyses(ctx, userID)
	combined, textOnly := CombineBatch(messages, analyses)
	if combined == "" {
		p.State.ClearAnalyses(ctx, userID)
		return nil
	}

	history, err := p.State.History(ctx, userID)
	if err != nil {
		p.Logger.Warn("failed to load history", zap.String("user", userID), zap.Error(err))
	}
	userTurn := models.ChatMessage{Role: "user", Content: combined}

	reply := p.Assistant.Reply(ctx, userID, combined, textOnly, append(history, userTurn), analyses)

	if err := p.Messenger.SendLong(ctx, userID, reply); err != nil {
		p.Logger.Error("failed to deliver reply", zap.String("user", userID), zap.Error(err))
		// Put the batch back so the asynq retry finds a non-empty queue;
		// nothing has been persisted to history yet.
		for _, qm := range messages {
			if qerr := p.State.Enqueue(ctx, userID, qm); qerr != nil {
				p.Logger.Error("failed to restore queued message",
					zap.String("user", userID), zap.Error(qerr))
			}
		}
		return err
	}

	if err := p.State.AppendTurn(ctx, userID, userTurn); err != nil {
		p.Logger.Warn("failed to persist user turn", zap.String("user", userID), zap.Error(err))
	}
	if err := p.State.AppendTurn(ctx, userID, models.ChatMessage{Role: "assistant", Content: reply}); err != nil {
		p.Logger.Warn("failed to persist assistant turn", zap.String("user", userID), zap.Error(err))
	}

	p.State.ClearAnalyses(ctx, userID)
	p.Logger.Info("batch answered",
		zap.String("user", userID),
		zap.Int("messages", len(messages)),
		zap.Int("images", len(analyses)))
	return nil
}

// CombineBatch merges queued texts and image analyses into the message
// the model answers, plus a text-only view used for retrieval queries.
func CombineBatch(messages []models.QueuedMessage, analyses []string) (combined, textOnly string) {
	var full, text strings.Builder
	imageIdx := 0

	for _, qm := range messages {
		if qm.Event.Message == nil {
			continue
		}
		if t := qm.Event.Message.Text; t != "" {
			full.WriteString(t + "\n")
			text.WriteString(t + "\n")
		}
		for _, att := range qm.Event.Message.Attachments {
			if att.Type != "image" {
				continue
			}
			if imageIdx < len(analyses) {
				full.WriteString(analyses[imageIdx] + "\n")
				imageIdx++
			}
			text.WriteString("Ο χρήστης έστειλε μια φωτογραφία\n")
		}
	}
	return strings.TrimSpace(full.String()), strings.TrimSpace(text.String())
}
