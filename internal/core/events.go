package core

// VoiceEventKind enumerates upstream notifications the bridge reacts to.
type VoiceEventKind int

const (
	VoiceConnected VoiceEventKind = iota
	VoiceDisconnected
	VoiceAudio
	VoiceText
	VoiceUserChange
	VoiceChannelChange
)

// VoiceEvent is one upstream notification, already detached from
// collaborator internals. Only the fields for the given Kind are set.
type VoiceEvent struct {
	Kind VoiceEventKind

	// VoiceAudio
	Speaker VoiceUser
	PCM     []byte

	// VoiceText
	Text TextMessage
}

// TextMessage is an inbound upstream text message with its sender
// resolved as far as the collaborator could.
type TextMessage struct {
	SenderSession uint32
	SenderName    string
	HasSender     bool
	Body          string
}
