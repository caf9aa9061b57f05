package domain

import "encoding/json"

// Envelope is the message frame in both directions: {"type": ..., "payload": ...}.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type ConnectedPayload struct {
	Status string `json:"status"`
}

type LogPayload struct {
	Text  string `json:"text"`
	Level string `json:"level"`
}

type ChatPayload struct {
	Sender  string `json:"sender"`
	Message string `json:"message"`
}

// VideoPayload carries a piggybacked structured message that arrived
// disguised as chat text.
type VideoPayload struct {
	Sender   string          `json:"sender"`
	SenderID string          `json:"senderId"`
	Data     json.RawMessage `json:"data"`
}

type AudioPayload struct {
	UserID     string `json:"userId"`
	UserName   string `json:"userName"`
	Data       string `json:"data"` // base64 16-bit LE PCM
	SampleRate int    `json:"sampleRate"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type SubscriberGonePayload struct {
	UserID string `json:"userId"`
}
