package utils

import "time"

// Conversation state retention.
const (
	ConversationTTL = 7 * 24 * time.Hour
	QueueTTL        = 10 * time.Minute
	AnalysisTTL     = 10 * time.Minute
	PendingImageTTL = time.Hour
	MuteDuration    = 2 * time.Hour
	ProcessingLock  = 30 * time.Second
)

// Studio working hours, 24h clock, studio-local time. Sundays are closed.
const (
	BusinessHoursStart = 11
	BusinessHoursEnd   = 20
)

// MessageMaxLength is the Instagram message length limit before splitting.
const MessageMaxLength = 800

// MaxSuggestedSlots caps how many openings an availability scan offers
// (and holds) per request.
const MaxSuggestedSlots = 3

// Pricing and duration formulas.
const (
	PriceToHoursDivisor = 100  // price / 100 = appointment hours
	MaxTattooPrice      = 5000 // euros
	MaxDurationHours    = 10
)

// Retrieval tuning.
const (
	SimilarityThreshold = 0.75
	TopKSimilar         = 3
)
