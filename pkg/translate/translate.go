// Package translate maps Teneo Engine output onto Messenger payloads.
package translate

import (
	"encoding/json"
	"fmt"

	"github.com/tinyland-inc/fbrelay/pkg/logger"
	"github.com/tinyland-inc/fbrelay/pkg/messenger"
	"github.com/tinyland-inc/fbrelay/pkg/teneo"
)

// extensionKind discriminates the structured-parameter shapes the Engine can
// attach to a reply. The historical shapes (flat attachment, legacy
// fbmessenger) decode into the same union so old Engine solutions keep
// working; precedence is fixed here, not by key-probing order.
type extensionKind int

const (
	extensionNone extensionKind = iota
	// extensionAttachment carries a Messenger attachment object verbatim,
	// from extensions.attachment, parameters.attachment or the legacy
	// parameters.fbmessenger key.
	extensionAttachment
	// extensionOptions carries a quick-reply prompt: a title and a list of
	// named items.
	extensionOptions
)

type extension struct {
	kind       extensionKind
	attachment json.RawMessage
	title      string
	options    []string
}

// extensionsEnvelope is the JSON shape of parameters.extensions.
type extensionsEnvelope struct {
	Attachment json.RawMessage `json:"attachment"`
	Parameters struct {
		Content struct {
			Title string `json:"title"`
			Items []struct {
				Name string `json:"name"`
			} `json:"items"`
		} `json:"content"`
	} `json:"parameters"`
}

// Convert turns one Engine reply into the ordered list of payloads to send.
// The primary message always comes first: a URL-button template when the
// reply carries a link, a plain text message otherwise. A structured
// parameter, when present and well-formed, adds one more payload.
//
// Malformed parameter JSON never fails the turn; it is logged and the
// primary message stands alone.
func Convert(recipientID string, out teneo.Output) []messenger.Payload {
	payloads := []messenger.Payload{primary(recipientID, out)}

	ext, err := decodeExtension(out.Parameters)
	if err != nil {
		logger.WarnCF("translate", "Dropping malformed structured parameters", map[string]any{
			"recipient": recipientID,
			"error":     err.Error(),
		})
		return payloads
	}

	switch ext.kind {
	case extensionAttachment:
		payloads = append(payloads, messenger.Attachment(recipientID, ext.attachment))
	case extensionOptions:
		payloads = append(payloads, messenger.QuickReplies(recipientID, ext.title, ext.options))
	case extensionNone:
	}

	return payloads
}

func primary(recipientID string, out teneo.Output) messenger.Payload {
	if out.Link != "" {
		return messenger.URLButton(recipientID, out.Text, out.Link)
	}
	return messenger.Text(recipientID, out.Text)
}

// decodeExtension resolves the structured parameters into a single variant.
// Precedence: extensions (attachment member first, options otherwise), then
// flat attachment, then legacy fbmessenger.
func decodeExtension(params map[string]string) (extension, error) {
	if raw, ok := params["extensions"]; ok && raw != "" {
		var env extensionsEnvelope
		if err := json.Unmarshal([]byte(raw), &env); err != nil {
			return extension{}, fmt.Errorf("parameters.extensions: %w", err)
		}
		if len(env.Attachment) > 0 && string(env.Attachment) != "null" {
			return extension{kind: extensionAttachment, attachment: env.Attachment}, nil
		}
		if env.Parameters.Content.Title != "" || len(env.Parameters.Content.Items) > 0 {
			options := make([]string, 0, len(env.Parameters.Content.Items))
			for _, item := range env.Parameters.Content.Items {
				options = append(options, item.Name)
			}
			return extension{
				kind:    extensionOptions,
				title:   env.Parameters.Content.Title,
				options: options,
			}, nil
		}
		return extension{}, nil
	}

	if raw, ok := params["attachment"]; ok && raw != "" {
		return rawAttachment("parameters.attachment", raw)
	}

	if raw, ok := params["fbmessenger"]; ok && raw != "" {
		return rawAttachment("parameters.fbmessenger", raw)
	}

	return extension{}, nil
}

func rawAttachment(key, raw string) (extension, error) {
	if !json.Valid([]byte(raw)) {
		return extension{}, fmt.Errorf("%s: invalid JSON", key)
	}
	return extension{kind: extensionAttachment, attachment: json.RawMessage(raw)}, nil
}
