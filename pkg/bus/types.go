package bus

import "github.com/tinyland-inc/fbrelay/pkg/messenger"

// InboundMessage is one user message lifted out of a webhook batch.
type InboundMessage struct {
	SenderID  string `json:"sender_id"`
	PageID    string `json:"page_id"`
	MessageID string `json:"message_id,omitempty"`
	Text      string `json:"text"`
	// RequestID correlates log lines across the async pipeline.
	RequestID string `json:"request_id"`
}

// OutboundMessage is one Send API payload queued for delivery.
type OutboundMessage struct {
	RecipientID string
	RequestID   string
	Payload     messenger.Payload
}
