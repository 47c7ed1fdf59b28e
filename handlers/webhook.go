// Package handlers exposes the HTTP surface: the Instagram webhook, the
// health probe, and the static legal pages.
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"inkflow/models"
)

// muteEmoji is the reaction an operator leaves on a thread to take it
// over from the bot.
const muteEmoji = "❤"

// ConversationGateway is the slice of the conversation store the
// webhook drives.
type ConversationGateway interface {
	Enqueue(ctx context.Context, userID string, msg models.QueuedMessage) error
	Mute(ctx context.Context, userID string) error
	ClearQueue(ctx context.Context, userID string)
	ClearScheduled(ctx context.Context, userID string)
	AddPendingImage(ctx context.Context, userID string) error
	ImageDone(ctx context.Context, userID string)
	PushAnalysis(ctx context.Context, userID, analysis string) error
}

// BatchScheduler arms the delayed processing task for a user.
type BatchScheduler interface {
	Schedule(ctx context.Context, userID string) error
}

// ImageFetcher downloads an attachment to a local temp file.
type ImageFetcher interface {
	DownloadImage(ctx context.Context, url string) (string, error)
}

// VisionAnalyzer describes a tattoo image for pricing.
type VisionAnalyzer interface {
	AnalyzeImage(ctx context.Context, imagePath string) (string, error)
}

// WebhookHandler receives Instagram webhook deliveries.
type WebhookHandler struct {
	Store     ConversationGateway
	Scheduler BatchScheduler
	Fetcher   ImageFetcher
	Vision    VisionAnalyzer
	Logger    *zap.Logger

	VerifyToken    string
	AdminSenders   map[string]bool
	ReactionSender string

	// analysisTimeout bounds one background image analysis.
	analysisTimeout time.Duration
}

func NewWebhookHandler(store ConversationGateway, scheduler BatchScheduler, fetcher ImageFetcher, vision VisionAnalyzer, logger *zap.Logger, verifyToken string, adminSenders map[string]bool, reactionSender string) *WebhookHandler {
	return &WebhookHandler{
		Store:           store,
		Scheduler:       scheduler,
		Fetcher:         fetcher,
		Vision:          vision,
		Logger:          logger,
		VerifyToken:     verifyToken,
		AdminSenders:    adminSenders,
		ReactionSender:  reactionSender,
		analysisTimeout: 2 * time.Minute,
	}
}

// Verify answers Meta's GET verification handshake.
func (h *WebhookHandler) Verify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token == h.VerifyToken && challenge != "" {
		c.String(http.StatusOK, challenge)
		return
	}
	h.Logger.Warn("webhook verification rejected", zap.String("mode", mode))
	c.String(http.StatusForbidden, "verification failed")
}

// Receive handles a webhook delivery. Meta expects a fast 200; all real
// work is queued and the reply happens after the grace window.
func (h *WebhookHandler) Receive(c *gin.Context) {
	var payload models.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.Logger.Warn("invalid webhook payload", zap.Error(err))
		c.String(http.StatusBadRequest, "INVALID_PAYLOAD")
		return
	}

	ctx := c.Request.Context()
	for _, entry := range payload.Entry {
		for _, event := range entry.Messaging {
			h.handleEvent(ctx, event)
		}
	}
	c.String(http.StatusOK, "EVENT_RECEIVED")
}

func (h *WebhookHandler) handleEvent(ctx context.Context, event models.MessagingEvent) {
	senderID := event.Sender.ID
	if senderID == "" {
		return
	}

	// Heart reaction from the studio account hands the thread to a human.
	if event.Reaction != nil {
		if senderID == h.ReactionSender && event.Reaction.Emoji == muteEmoji {
			target := event.Recipient.ID
			if err := h.Store.Mute(ctx, target); err != nil {
				h.Logger.Error("failed to mute user", zap.String("user", target), zap.Error(err))
				return
			}
			h.Store.ClearQueue(ctx, target)
			h.Store.ClearScheduled(ctx, target)
		}
		return
	}

	// Outbound messages from the studio's own accounts are not customer
	// traffic.
	if h.AdminSenders[senderID] || senderID == h.ReactionSender {
		return
	}
	if event.Message == nil {
		return
	}

	hasImage := false
	imageIdx := 0
	for _, att := range event.Message.Attachments {
		if att.Type != "image" {
			continue
		}
		hasImage = true
		imageIdx++
		if err := h.Store.AddPendingImage(ctx, senderID); err != nil {
			h.Logger.Error("failed to track pending image", zap.String("user", senderID), zap.Error(err))
			continue
		}
		go h.analyzeImage(senderID, att.Payload.URL, imageIdx)
	}

	queued := models.QueuedMessage{
		Timestamp: models.NowUnix(),
		Event:     event,
		HasImage:  hasImage,
	}
	if err := h.Store.Enqueue(ctx, senderID, queued); err != nil {
		h.Logger.Error("failed to queue message", zap.String("user", senderID), zap.Error(err))
		return
	}
	if err := h.Scheduler.Schedule(ctx, senderID); err != nil {
		h.Logger.Error("failed to schedule processing", zap.String("user", senderID), zap.Error(err))
	}
}

// analyzeImage downloads and describes one attachment in the
// background. The pending counter keeps the batch processor waiting
// until every analysis lands or fails.
func (h *WebhookHandler) analyzeImage(userID, url string, idx int) {
	ctx, cancel := context.WithTimeout(context.Background(), h.analysisTimeout)
	defer cancel()
	defer h.Store.ImageDone(ctx, userID)

	path, err := h.Fetcher.DownloadImage(ctx, url)
	if err != nil {
		h.Logger.Error("image download failed", zap.String("user", userID), zap.Error(err))
		return
	}
	defer os.Remove(path)

	analysis, err := h.Vision.AnalyzeImage(ctx, path)
	if err != nil {
		h.Logger.Error("image analysis failed", zap.String("user", userID), zap.Error(err))
		return
	}
	if err := h.Store.PushAnalysis(ctx, userID, fmt.Sprintf("Εικόνα %d: %s", idx, analysis)); err != nil {
		h.Logger.Error("failed to store image analysis", zap.String("user", userID), zap.Error(err))
	}
}
