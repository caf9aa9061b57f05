package core

import "errors"

var (
	// ErrUserGone is the negative send result for a direct message whose
	// target the upstream server no longer knows.
	ErrUserGone = errors.New("user gone")
	// ErrChannelGone is the analogous result for a channel send whose
	// target channel no longer exists.
	ErrChannelGone = errors.New("channel gone")
	// ErrNotConnected is returned by sends attempted without an
	// established upstream connection.
	ErrNotConnected = errors.New("not connected to voice server")
)

// ConnectParams are the per-attempt upstream connection settings.
type ConnectParams struct {
	Address  string
	Port     int
	Username string
}

// VoiceUser is a value snapshot of one upstream user. The bridge never
// holds live collaborator objects; ground truth stays on the server.
type VoiceUser struct {
	Session      uint32
	Name         string
	ChannelID    uint32
	Muted        bool
	Deafened     bool
	SelfMuted    bool
	SelfDeafened bool
}

// VoiceChannel is a value snapshot of one upstream channel.
type VoiceChannel struct {
	ID          uint32
	Name        string
	Description string
	Parent      uint32
	HasParent   bool
}

// VoiceClient is the capability surface the bridge needs from the
// upstream voice protocol. Connect blocks until the connection is ready
// or failed; all other calls are safe at any time. Events are delivered
// on the channel supplied to the dialer, in upstream order, and the
// channel is closed after the final Disconnected event.
type VoiceClient interface {
	Connect(p ConnectParams) error
	Disconnect()

	ChannelByID(id uint32) (VoiceChannel, bool)
	Channels() []VoiceChannel
	Users() []VoiceUser
	Self() (VoiceUser, bool)

	MoveTo(channelID uint32) bool
	SendChannelText(channelID uint32, text string) error
	SendUserText(session uint32, text string) error
	SendAudio(pcm []byte) error
}

// VoiceDialer builds a fresh client whose events feed the given channel.
// One client per upstream connection attempt; a reconnect gets a new one.
type VoiceDialer func(events chan<- VoiceEvent) VoiceClient
