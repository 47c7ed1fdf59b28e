package models

// WebhookPayload is the Instagram webhook envelope.
type WebhookPayload struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

// WebhookEntry is one page-level entry in a webhook delivery.
type WebhookEntry struct {
	ID        string           `json:"id"`
	Time      int64            `json:"time"`
	Messaging []MessagingEvent `json:"messaging"`
}

// MessagingEvent is a single message or reaction event.
type MessagingEvent struct {
	Sender    Participant `json:"sender"`
	Recipient Participant `json:"recipient"`
	Timestamp int64       `json:"timestamp"`
	Message   *Message    `json:"message,omitempty"`
	Reaction  *Reaction   `json:"reaction,omitempty"`
}

// Participant identifies a messaging party by PSID.
type Participant struct {
	ID string `json:"id"`
}

// Message is the message body of a messaging event.
type Message struct {
	MID         string       `json:"mid,omitempty"`
	Text        string       `json:"text,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment is a media attachment on an inbound message.
type Attachment struct {
	Type    string            `json:"type"`
	Payload AttachmentPayload `json:"payload"`
}

// AttachmentPayload carries the media URL.
type AttachmentPayload struct {
	URL string `json:"url"`
}

// Reaction is an emoji reaction event (used for the human override).
type Reaction struct {
	MID    string `json:"mid,omitempty"`
	Action string `json:"action,omitempty"`
	Emoji  string `json:"emoji,omitempty"`
}
