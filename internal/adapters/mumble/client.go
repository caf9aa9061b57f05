// Package mumble implements core.VoiceClient on top of gumble, the Go
// client for the Mumble protocol. gumble owns the wire handshake, TLS,
// authentication and opus decode; this adapter reduces its live state
// to value snapshots and its callbacks to a core.VoiceEvent stream.
package mumble

import (
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"layeh.com/gumble/gumble"
	"layeh.com/gumble/gumbleutil"
	_ "layeh.com/gumble/opus" // registers the opus codec with gumble

	"github.com/dkeye/webmumble/internal/core"
)

// Options carry the transport trust policy and dial bounds. The trust
// policy is explicit and injected here, never patched into the library:
// self-hosted Mumble servers almost always run self-signed certificates.
type Options struct {
	InsecureTLS bool
	DialTimeout time.Duration
}

// Client is one upstream connection attempt. A reconnect builds a new
// Client; the old one only drains.
type Client struct {
	opts   Options
	events chan<- core.VoiceEvent
	done   chan struct{}
	once   sync.Once

	mu       sync.Mutex
	client   *gumble.Client
	outgoing chan<- gumble.AudioBuffer
}

// NewClient builds an unconnected client feeding the given event channel.
func NewClient(opts Options, events chan<- core.VoiceEvent) *Client {
	return &Client{
		opts:   opts,
		events: events,
		done:   make(chan struct{}),
	}
}

// Dialer returns a core.VoiceDialer producing clients with these options.
func Dialer(opts Options) core.VoiceDialer {
	return func(events chan<- core.VoiceEvent) core.VoiceClient {
		return NewClient(opts, events)
	}
}

// Connect dials and authenticates, blocking until ready or failed.
func (c *Client) Connect(p core.ConnectParams) error {
	cfg := gumble.NewConfig()
	cfg.Username = p.Username
	cfg.Attach(gumbleutil.Listener{
		Connect:       c.onConnect,
		Disconnect:    c.onDisconnect,
		TextMessage:   c.onTextMessage,
		UserChange:    c.onUserChange,
		ChannelChange: c.onChannelChange,
	})
	cfg.AttachAudio(audioListener{c})

	tlsCfg := &tls.Config{}
	if c.opts.InsecureTLS {
		tlsCfg.InsecureSkipVerify = true
	}

	addr := net.JoinHostPort(p.Address, strconv.Itoa(p.Port))
	dialer := &net.Dialer{Timeout: c.opts.DialTimeout}
	client, err := gumble.DialWithDialer(dialer, addr, cfg, tlsCfg)
	if err != nil {
		return fmt.Errorf("mumble dial %s: %w", addr, err)
	}

	c.mu.Lock()
	c.client = client
	c.outgoing = client.AudioOutgoing()
	c.mu.Unlock()

	log.Info().Str("module", "adapters.mumble").Str("addr", addr).Str("username", p.Username).Msg("dialed voice server")
	return nil
}

// Disconnect is idempotent; the final Disconnected event still flows
// through the listener, which also releases any pending emitters, so
// the bridge sees a uniform teardown.
func (c *Client) Disconnect() {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()
	if client != nil {
		_ = client.Disconnect()
	}
}

func (c *Client) get() *gumble.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client
}

// emit delivers one event unless the client is already torn down. The
// channel is bounded; blocking here backpressures gumble's own loop
// instead of reordering or dropping events.
func (c *Client) emit(ev core.VoiceEvent) {
	select {
	case <-c.done:
	case c.events <- ev:
	}
}

func (c *Client) ChannelByID(id uint32) (core.VoiceChannel, bool) {
	client := c.get()
	if client == nil {
		return core.VoiceChannel{}, false
	}
	var out core.VoiceChannel
	found := false
	client.Do(func() {
		if ch := client.Channels[id]; ch != nil {
			out = channelSnapshot(ch)
			found = true
		}
	})
	return out, found
}

func (c *Client) Channels() []core.VoiceChannel {
	client := c.get()
	if client == nil {
		return nil
	}
	var out []core.VoiceChannel
	client.Do(func() {
		out = make([]core.VoiceChannel, 0, len(client.Channels))
		for _, ch := range client.Channels {
			out = append(out, channelSnapshot(ch))
		}
	})
	return out
}

func (c *Client) Users() []core.VoiceUser {
	client := c.get()
	if client == nil {
		return nil
	}
	var out []core.VoiceUser
	client.Do(func() {
		out = make([]core.VoiceUser, 0, len(client.Users))
		for _, u := range client.Users {
			out = append(out, userSnapshot(u))
		}
	})
	return out
}

func (c *Client) Self() (core.VoiceUser, bool) {
	client := c.get()
	if client == nil {
		return core.VoiceUser{}, false
	}
	var out core.VoiceUser
	found := false
	client.Do(func() {
		if client.Self != nil {
			out = userSnapshot(client.Self)
			found = true
		}
	})
	return out, found
}

func (c *Client) MoveTo(channelID uint32) bool {
	client := c.get()
	if client == nil {
		return false
	}
	moved := false
	client.Do(func() {
		if ch := client.Channels[channelID]; ch != nil && client.Self != nil {
			client.Self.Move(ch)
			moved = true
		}
	})
	return moved
}

func (c *Client) SendChannelText(channelID uint32, text string) error {
	client := c.get()
	if client == nil {
		return core.ErrNotConnected
	}
	var err error
	client.Do(func() {
		ch := client.Channels[channelID]
		if ch == nil {
			err = fmt.Errorf("channel %d: %w", channelID, core.ErrChannelGone)
			return
		}
		ch.Send(text, false)
	})
	return err
}

func (c *Client) SendUserText(session uint32, text string) error {
	client := c.get()
	if client == nil {
		return core.ErrNotConnected
	}
	var err error
	client.Do(func() {
		u := client.Users[session]
		if u == nil {
			err = core.ErrUserGone
			return
		}
		u.Send(text)
	})
	return err
}

// SendAudio splits raw 16-bit LE PCM into gumble-sized frames and feeds
// the outgoing audio stream.
func (c *Client) SendAudio(pcm []byte) error {
	c.mu.Lock()
	out := c.outgoing
	c.mu.Unlock()
	if out == nil {
		return core.ErrNotConnected
	}

	samples := pcmToSamples(pcm)
	for off := 0; off < len(samples); off += gumble.AudioDefaultFrameSize {
		end := off + gumble.AudioDefaultFrameSize
		if end > len(samples) {
			end = len(samples)
		}
		frame := make(gumble.AudioBuffer, end-off)
		copy(frame, samples[off:end])
		select {
		case out <- frame:
		case <-c.done:
			return core.ErrNotConnected
		}
	}
	return nil
}

func channelSnapshot(ch *gumble.Channel) core.VoiceChannel {
	out := core.VoiceChannel{
		ID:          ch.ID,
		Name:        ch.Name,
		Description: ch.Description,
	}
	if ch.Parent != nil {
		out.Parent = ch.Parent.ID
		out.HasParent = true
	}
	return out
}

func userSnapshot(u *gumble.User) core.VoiceUser {
	out := core.VoiceUser{
		Session:      u.Session,
		Name:         u.Name,
		Muted:        u.Muted,
		Deafened:     u.Deafened,
		SelfMuted:    u.SelfMuted,
		SelfDeafened: u.SelfDeafened,
	}
	if u.Channel != nil {
		out.ChannelID = u.Channel.ID
	}
	return out
}
