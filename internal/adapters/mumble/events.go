package mumble

import (
	"encoding/binary"

	"layeh.com/gumble/gumble"

	"github.com/dkeye/webmumble/internal/core"
)

func (c *Client) onConnect(e *gumble.ConnectEvent) {
	c.emit(core.VoiceEvent{Kind: core.VoiceConnected})
}

func (c *Client) onDisconnect(e *gumble.DisconnectEvent) {
	c.emit(core.VoiceEvent{Kind: core.VoiceDisconnected})
	c.once.Do(func() { close(c.done) })
}

func (c *Client) onTextMessage(e *gumble.TextMessageEvent) {
	msg := core.TextMessage{Body: e.Message}
	if e.Sender != nil {
		msg.HasSender = true
		msg.SenderSession = e.Sender.Session
		msg.SenderName = e.Sender.Name
	}
	c.emit(core.VoiceEvent{Kind: core.VoiceText, Text: msg})
}

func (c *Client) onUserChange(e *gumble.UserChangeEvent) {
	c.emit(core.VoiceEvent{Kind: core.VoiceUserChange})
}

func (c *Client) onChannelChange(e *gumble.ChannelChangeEvent) {
	c.emit(core.VoiceEvent{Kind: core.VoiceChannelChange})
}

type audioListener struct {
	c *Client
}

// OnAudioStream drains one speaker's decoded PCM stream. gumble closes
// the packet channel when the stream ends; until then each packet is
// forwarded as an audio event for the aggregator.
func (l audioListener) OnAudioStream(e *gumble.AudioStreamEvent) {
	speaker := core.VoiceUser{}
	if e.User != nil {
		speaker = userSnapshot(e.User)
	}
	go func() {
		for packet := range e.C {
			if packet == nil || len(packet.AudioBuffer) == 0 {
				continue
			}
			l.c.emit(core.VoiceEvent{
				Kind:    core.VoiceAudio,
				Speaker: speaker,
				PCM:     samplesToPCM(packet.AudioBuffer),
			})
		}
	}()
}

// samplesToPCM converts decoded samples to 16-bit LE bytes, the PCM
// form carried across the browser leg.
func samplesToPCM(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// pcmToSamples converts 16-bit LE bytes to samples. A trailing odd byte
// is dropped.
func pcmToSamples(pcm []byte) []int16 {
	n := len(pcm) / 2
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		out[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return out
}
