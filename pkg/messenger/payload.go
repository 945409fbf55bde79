package messenger

import "encoding/json"

// Sender actions accepted by the Send API.
const (
	ActionMarkSeen = "mark_seen"
	ActionTypingOn = "typing_on"
)

// Payload is one Send API call body: either a message or a sender action,
// always addressed to exactly one recipient.
type Payload struct {
	Recipient     Recipient `json:"recipient"`
	MessagingType string    `json:"messaging_type,omitempty"`
	Message       *Message  `json:"message,omitempty"`
	SenderAction  string    `json:"sender_action,omitempty"`
}

type Recipient struct {
	ID string `json:"id"`
}

type Message struct {
	Text         string          `json:"text,omitempty"`
	Attachment   json.RawMessage `json:"attachment,omitempty"`
	QuickReplies []QuickReply    `json:"quick_replies,omitempty"`
}

type QuickReply struct {
	ContentType string `json:"content_type"`
	Title       string `json:"title"`
	Payload     string `json:"payload"`
}

type Button struct {
	Type  string `json:"type"`
	URL   string `json:"url"`
	Title string `json:"title"`
}

type templateAttachment struct {
	Type    string          `json:"type"`
	Payload templatePayload `json:"payload"`
}

type templatePayload struct {
	TemplateType string   `json:"template_type"`
	Text         string   `json:"text"`
	Buttons      []Button `json:"buttons"`
}

// Text builds a plain text message.
func Text(recipientID, text string) Payload {
	return Payload{
		Recipient: Recipient{ID: recipientID},
		Message:   &Message{Text: text},
	}
}

// URLButton builds a button-template message with a single "Article" link
// button pointing at url.
func URLButton(recipientID, text, url string) Payload {
	attachment, _ := json.Marshal(templateAttachment{
		Type: "template",
		Payload: templatePayload{
			TemplateType: "button",
			Text:         text,
			Buttons: []Button{
				{Type: "web_url", URL: url, Title: "Article"},
			},
		},
	})
	return Payload{
		Recipient: Recipient{ID: recipientID},
		Message:   &Message{Attachment: attachment},
	}
}

// QuickReplies builds an options message: title text plus one text quick
// reply per option, with the option name doubling as the reply payload.
func QuickReplies(recipientID, title string, options []string) Payload {
	replies := make([]QuickReply, 0, len(options))
	for _, name := range options {
		replies = append(replies, QuickReply{
			ContentType: "text",
			Title:       name,
			Payload:     name,
		})
	}
	return Payload{
		Recipient:     Recipient{ID: recipientID},
		MessagingType: "RESPONSE",
		Message:       &Message{Text: title, QuickReplies: replies},
	}
}

// Attachment wraps a raw attachment object verbatim, as produced by the
// Engine's structured parameters.
func Attachment(recipientID string, attachment json.RawMessage) Payload {
	return Payload{
		Recipient: Recipient{ID: recipientID},
		Message:   &Message{Attachment: attachment},
	}
}

// SenderAction builds a mark_seen / typing_on indicator payload.
func SenderAction(recipientID, action string) Payload {
	return Payload{
		Recipient:    Recipient{ID: recipientID},
		SenderAction: action,
	}
}
