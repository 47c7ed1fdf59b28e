package models

import "time"

// ChatMessage is one turn of a stored conversation, in OpenAI wire shape so
// history can be replayed into completion calls directly.
type ChatMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	Name       string         `json:"name,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	ToolCalls  []ChatToolCall `json:"tool_calls,omitempty"`
}

// ChatToolCall records a function invocation requested by the assistant.
type ChatToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// QueuedMessage is an inbound webhook event waiting for the grace window.
type QueuedMessage struct {
	Timestamp float64        `json:"timestamp"`
	Event     MessagingEvent `json:"data"`
	HasImage  bool           `json:"has_image"`
}

// Intent is one classified intent of an inbound message.
type Intent struct {
	Primary     string  `json:"primary"`
	Subcategory string  `json:"subcategory,omitempty"`
	Confidence  float64 `json:"confidence"`
	StartDate   string  `json:"start_date,omitempty"`
	EndDate     string  `json:"end_date,omitempty"`
}

// IntentResult is the full classification payload for one message.
type IntentResult struct {
	Intents []Intent `json:"intents"`
}

// RetrievedExample is a semantically similar past exchange from the vector index.
type RetrievedExample struct {
	Query      string  `json:"query"`
	Response   string  `json:"response"`
	Similarity float64 `json:"similarity"`
	Intent     string  `json:"intent"`
}

// Timestamp helper for queue ordering.
func NowUnix() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
