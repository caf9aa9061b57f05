// Package app holds the per-session bridge core: lifecycle, tree
// synchronization, audio aggregation and message translation between
// the browser envelope protocol and the upstream voice client.
package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/webmumble/internal/core"
	"github.com/dkeye/webmumble/internal/domain"
)

// BridgeOptions tune one bridge. Zero values fall back to the defaults
// the original deployment ran with.
type BridgeOptions struct {
	AudioWindow     time.Duration // buffered audio per flush
	AudioGuard      time.Duration // max time audio may sit unflushed
	MaxMessageBytes int           // soft chat/video size limit
	EventQueue      int           // upstream event channel capacity
}

func (o BridgeOptions) withDefaults() BridgeOptions {
	if o.AudioWindow <= 0 {
		o.AudioWindow = 60 * time.Millisecond
	}
	if o.AudioGuard <= 0 {
		o.AudioGuard = 40 * time.Millisecond
	}
	if o.MaxMessageBytes <= 0 {
		o.MaxMessageBytes = 5000
	}
	if o.EventQueue <= 0 {
		o.EventQueue = 256
	}
	return o
}

// Bridge owns one browser connection paired with at most one upstream
// voice connection. Inbound commands arrive on the connection's read
// loop; upstream events arrive on a bounded channel drained by a single
// goroutine per connection attempt. Both paths emit through the same
// serialized SignalConnection queue.
type Bridge struct {
	conn core.SignalConnection
	dial core.VoiceDialer
	opts BridgeOptions
	agg  *AudioAggregator

	mu        sync.Mutex
	voice     core.VoiceClient
	connected bool
}

// NewBridge wires a bridge to its browser transport and voice dialer.
func NewBridge(conn core.SignalConnection, dial core.VoiceDialer, opts BridgeOptions) *Bridge {
	b := &Bridge{
		conn: conn,
		dial: dial,
		opts: opts.withDefaults(),
	}
	b.agg = NewAudioAggregator(b.opts.AudioWindow, b.opts.AudioGuard, func(p domain.AudioPayload) {
		b.Emit("audio", p)
	})
	return b
}

// Connect establishes the upstream connection, replacing any prior one.
// It blocks until the connection is ready or failed; the caller surfaces
// a failure to the browser as an `error` event and may retry.
func (b *Bridge) Connect(address string, port int, username string) error {
	b.dropVoice()

	log.Info().Str("module", "app.bridge").
		Str("address", address).Int("port", port).Str("username", username).
		Msg("connecting to voice server")

	events := make(chan core.VoiceEvent, b.opts.EventQueue)
	voice := b.dial(events)
	if err := voice.Connect(core.ConnectParams{Address: address, Port: port, Username: username}); err != nil {
		return fmt.Errorf("connect %s:%d: %w", address, port, err)
	}

	b.mu.Lock()
	b.voice = voice
	b.mu.Unlock()

	go b.runEvents(voice, events)
	return nil
}

// Disconnect tears down the upstream connection if present. Idempotent
// and safe from any state.
func (b *Bridge) Disconnect() {
	b.dropVoice()
}

func (b *Bridge) dropVoice() {
	b.mu.Lock()
	voice := b.voice
	b.voice = nil
	b.connected = false
	b.mu.Unlock()

	if voice != nil {
		voice.Disconnect()
	}
	b.agg.Reset()
}

// Connected reports whether an upstream session is established.
func (b *Bridge) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

// currentVoice returns the active upstream handle, if any. Commands are
// silent no-ops without one.
func (b *Bridge) currentVoice() (core.VoiceClient, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.voice == nil || !b.connected {
		return nil, false
	}
	return b.voice, true
}

func (b *Bridge) isCurrent(voice core.VoiceClient) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.voice == voice
}

func (b *Bridge) setConnected(v bool) {
	b.mu.Lock()
	b.connected = v
	b.mu.Unlock()
}

// runEvents drains one connection attempt's event stream until the
// final Disconnected event. Stale streams left over from a replaced
// connection drain without effect on current state.
func (b *Bridge) runEvents(voice core.VoiceClient, events <-chan core.VoiceEvent) {
	for ev := range events {
		b.handleEvent(voice, ev)
		if ev.Kind == core.VoiceDisconnected {
			return
		}
	}
}

func (b *Bridge) handleEvent(voice core.VoiceClient, ev core.VoiceEvent) {
	// One bad event must not take down the whole stream.
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("module", "app.bridge").
				Int("kind", int(ev.Kind)).Interface("panic", r).
				Msg("voice event handler panicked")
		}
	}()

	if !b.isCurrent(voice) {
		return
	}

	switch ev.Kind {
	case core.VoiceConnected:
		b.setConnected(true)
		b.Emit("connected", domain.ConnectedPayload{Status: "ok"})
		b.Emit("log", domain.LogPayload{Text: "Connected to Mumble server", Level: "server"})
		b.syncTree(voice)
	case core.VoiceDisconnected:
		b.setConnected(false)
		b.Emit("log", domain.LogPayload{Text: "Disconnected from server", Level: "server"})
	case core.VoiceAudio:
		b.agg.OnChunk(ev.Speaker.Session, ev.Speaker.Name, ev.PCM)
	case core.VoiceText:
		b.handleText(ev.Text)
	case core.VoiceUserChange, core.VoiceChannelChange:
		b.syncTree(voice)
	}
}

func (b *Bridge) handleText(msg core.TextMessage) {
	sender, senderID := "Server", "0"
	if msg.HasSender {
		sender = msg.SenderName
		senderID = domain.FormatID(msg.SenderSession)
	}
	b.send(classifyText(sender, senderID, msg.Body))
}

func (b *Bridge) syncTree(voice core.VoiceClient) {
	if !b.Connected() {
		return
	}
	b.Emit("sync_tree", SnapshotTree(voice))
}

// SendChat relays text to the given channel, or to the sender's current
// channel when channelID is empty.
func (b *Bridge) SendChat(text string, channelID domain.FlexID) {
	voice, ok := b.currentVoice()
	if !ok {
		log.Warn().Str("module", "app.bridge").Msg("cannot send chat: not connected")
		return
	}
	b.guardLength(text)

	target, ok := b.resolveChannel(voice, channelID)
	if !ok {
		return
	}
	if err := voice.SendChannelText(target, text); err != nil {
		log.Error().Err(err).Str("module", "app.bridge").Uint32("channel", target).Msg("chat send failed")
		b.Emit("log", domain.LogPayload{Text: "Failed to send message: " + err.Error(), Level: "error"})
	}
}

func (b *Bridge) resolveChannel(voice core.VoiceClient, channelID domain.FlexID) (uint32, bool) {
	if channelID == "" {
		self, ok := voice.Self()
		if !ok {
			log.Warn().Str("module", "app.bridge").Msg("no self user yet, dropping send")
			return 0, false
		}
		return self.ChannelID, true
	}
	id, ok := channelID.Uint32()
	if !ok {
		log.Warn().Str("module", "app.bridge").Str("channel", string(channelID)).Msg("bad channel id")
		return 0, false
	}
	return id, true
}

// JoinChannel moves self to the channel; unknown channels are a no-op.
func (b *Bridge) JoinChannel(channelID domain.FlexID) {
	voice, ok := b.currentVoice()
	if !ok {
		return
	}
	id, ok := channelID.Uint32()
	if !ok {
		log.Warn().Str("module", "app.bridge").Str("channel", string(channelID)).Msg("bad channel id")
		return
	}
	if !voice.MoveTo(id) {
		log.Warn().Str("module", "app.bridge").Uint32("channel", id).Msg("channel not found")
		return
	}
	log.Info().Str("module", "app.bridge").Uint32("channel", id).Msg("moved to channel")
}

// SendAudio forwards browser PCM to the upstream audio path.
func (b *Bridge) SendAudio(pcm []byte) {
	voice, ok := b.currentVoice()
	if !ok {
		return
	}
	if err := voice.SendAudio(pcm); err != nil {
		log.Error().Err(err).Str("module", "app.bridge").Msg("audio send failed")
	}
}

// SendVideoChannel serializes a structured payload and sends it as chat
// text, piggybacking the sub-protocol on the text message path.
func (b *Bridge) SendVideoChannel(data json.RawMessage, channelID domain.FlexID) {
	b.SendChat(string(data), channelID)
}

// SendVideoDirect sends a structured payload to each target's private
// message address. Targets the upstream no longer knows yield one
// `subscriber_gone` event each so the browser can prune its lists.
func (b *Bridge) SendVideoDirect(data json.RawMessage, targets []domain.FlexID) {
	voice, ok := b.currentVoice()
	if !ok {
		log.Warn().Str("module", "app.bridge").Msg("cannot send direct message: not connected")
		return
	}
	text := string(data)
	b.guardLength(text)

	for _, t := range targets {
		session, ok := t.Uint32()
		if !ok {
			log.Error().Str("module", "app.bridge").Str("target", string(t)).Msg("bad direct target id")
			continue
		}
		err := voice.SendUserText(session, text)
		switch {
		case err == nil:
		case errors.Is(err, core.ErrUserGone):
			log.Warn().Str("module", "app.bridge").Uint32("target", session).Msg("direct target gone")
			b.Emit("subscriber_gone", domain.SubscriberGonePayload{UserID: domain.FormatID(session)})
		default:
			log.Error().Err(err).Str("module", "app.bridge").Uint32("target", session).Msg("direct send failed")
		}
	}
}

// guardLength warns on oversized chat/video text. The send is still
// attempted; the upstream server enforces the hard limit.
func (b *Bridge) guardLength(text string) {
	if n := len(text); n > b.opts.MaxMessageBytes {
		log.Warn().Str("module", "app.bridge").Int("bytes", n).Msg("message too long, may fail")
		b.Emit("log", domain.LogPayload{
			Text:  fmt.Sprintf("Warning: Message too long (%d bytes), may fail", n),
			Level: "error",
		})
	}
}

// Emit marshals one envelope onto the browser's serialized send queue.
func (b *Bridge) Emit(event string, payload any) {
	b.send(domain.Envelope{Type: event, Payload: payload})
}

func (b *Bridge) send(env domain.Envelope) {
	raw, err := json.Marshal(env)
	if err != nil {
		log.Error().Err(err).Str("module", "app.bridge").Str("event", env.Type).Msg("envelope marshal failed")
		return
	}
	if err := b.conn.TrySend(core.Frame(raw)); err != nil {
		log.Warn().Err(err).Str("module", "app.bridge").Str("event", env.Type).Msg("dropping outbound frame")
	}
}
