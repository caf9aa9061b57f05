package app

import (
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/webmumble/internal/domain"
)

// videoSentinel is the discriminator field marking chat text as a
// piggybacked structured payload rather than something a human typed.
// Explicit on purpose: ordinary chat that merely looks like JSON must
// never be swallowed.
const videoSentinel = "_wm_video"

// classifyText decides whether inbound chat text is a piggybacked video
// message or ordinary chat, and returns the envelope to forward. A text
// is video only if it is a JSON object carrying a truthy sentinel field;
// every parse failure falls back to plain chat.
func classifyText(sender, senderID, body string) domain.Envelope {
	if strings.HasPrefix(body, "{") && strings.Contains(body, videoSentinel) {
		var parsed map[string]json.RawMessage
		if err := json.Unmarshal([]byte(body), &parsed); err == nil {
			if truthy(parsed[videoSentinel]) {
				logVideoMessage(sender, parsed)
				return domain.Envelope{
					Type: "video",
					Payload: domain.VideoPayload{
						Sender:   sender,
						SenderID: senderID,
						Data:     json.RawMessage(body),
					},
				}
			}
		}
	}

	return domain.Envelope{
		Type: "chat",
		Payload: domain.ChatPayload{
			Sender:  sender,
			Message: body,
		},
	}
}

func truthy(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	case nil:
		return false
	default:
		return true
	}
}

func logVideoMessage(sender string, parsed map[string]json.RawMessage) {
	msgType := "unknown"
	if raw, ok := parsed["type"]; ok {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			msgType = s
		}
	}
	ev := log.Debug().Str("module", "app.bridge").Str("sender", sender).Str("video_type", msgType)
	if msgType == "video_frame" {
		ev = ev.
			RawJSON("frame_id", rawOr(parsed["frameId"], "null")).
			RawJSON("fragment", rawOr(parsed["fragmentIndex"], "null")).
			RawJSON("fragments", rawOr(parsed["fragmentCount"], "null"))
	}
	ev.Msg("video message received")
}

func rawOr(raw json.RawMessage, def string) []byte {
	if len(raw) == 0 {
		return []byte(def)
	}
	return raw
}
