package messenger

import "encoding/json"

// Webhook payload types for the Messenger Platform.
// https://developers.facebook.com/docs/messenger-platform/webhooks

// Event is the top-level webhook payload. Object is "page" for Messenger.
type Event struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry holds one page's batch of messaging events.
type Entry struct {
	ID        string      `json:"id"`
	Time      int64       `json:"time"`
	Messaging []Messaging `json:"messaging"`
}

// Messaging is a single messaging event: a user message, an echo of a page
// message, a delivery receipt, or a read receipt.
type Messaging struct {
	Sender    User             `json:"sender"`
	Recipient User             `json:"recipient"`
	Timestamp int64            `json:"timestamp"`
	Message   *ReceivedMessage `json:"message,omitempty"`
	Delivery  *Delivery        `json:"delivery,omitempty"`
	Read      *Read            `json:"read,omitempty"`
}

// User carries a page-scoped ID (PSID).
type User struct {
	ID string `json:"id"`
}

type ReceivedMessage struct {
	MID         string               `json:"mid"`
	Text        string               `json:"text"`
	IsEcho      bool                 `json:"is_echo,omitempty"`
	Attachments []ReceivedAttachment `json:"attachments,omitempty"`
}

// ReceivedAttachment is an inbound media attachment. The relay only forwards
// text to the Engine; attachments are kept for logging.
type ReceivedAttachment struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type Delivery struct {
	MIDs      []string `json:"mids"`
	Watermark int64    `json:"watermark"`
}

type Read struct {
	Watermark int64 `json:"watermark"`
}

// IsUserMessage reports whether this event is a genuine user message, as
// opposed to an echo of the page's own output or a delivery/read receipt.
func (m *Messaging) IsUserMessage() bool {
	if m.Message == nil {
		return false
	}
	if m.Message.IsEcho {
		return false
	}
	if m.Delivery != nil || m.Read != nil {
		return false
	}
	return true
}
