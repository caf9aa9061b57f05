package app

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/webmumble/internal/core"
)

// fakeVoice is an in-memory core.VoiceClient for bridge tests. State is
// set up directly by tests; events are pushed through the same channel
// a real adapter would use.
type fakeVoice struct {
	mu           sync.Mutex
	events       chan<- core.VoiceEvent
	connectErr   error
	connectCalls int
	disconnects  int
	stopped      bool

	channels map[uint32]core.VoiceChannel
	users    map[uint32]core.VoiceUser
	self     uint32
	hasSelf  bool

	channelTexts []sentText
	userTexts    []sentText
	audioSent    [][]byte
	movedTo      []uint32
}

type sentText struct {
	target uint32
	text   string
}

func newFakeVoice() *fakeVoice {
	return &fakeVoice{
		channels: map[uint32]core.VoiceChannel{
			0: {ID: 0, Name: "Root"},
		},
		users: map[uint32]core.VoiceUser{},
	}
}

func (f *fakeVoice) setSelf(session uint32, channel uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.self = session
	f.hasSelf = true
	u := f.users[session]
	u.Session = session
	u.ChannelID = channel
	if u.Name == "" {
		u.Name = "self"
	}
	f.users[session] = u
}

func (f *fakeVoice) push(ev core.VoiceEvent) {
	f.mu.Lock()
	ch := f.events
	f.mu.Unlock()
	ch <- ev
}

func (f *fakeVoice) Connect(p core.ConnectParams) error {
	f.mu.Lock()
	f.connectCalls++
	err := f.connectErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	f.push(core.VoiceEvent{Kind: core.VoiceConnected})
	return nil
}

func (f *fakeVoice) Disconnect() {
	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		return
	}
	f.stopped = true
	f.disconnects++
	f.mu.Unlock()
	f.push(core.VoiceEvent{Kind: core.VoiceDisconnected})
}

func (f *fakeVoice) ChannelByID(id uint32) (core.VoiceChannel, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[id]
	return ch, ok
}

func (f *fakeVoice) Channels() []core.VoiceChannel {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]core.VoiceChannel, 0, len(f.channels))
	for _, ch := range f.channels {
		out = append(out, ch)
	}
	return out
}

func (f *fakeVoice) Users() []core.VoiceUser {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]core.VoiceUser, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	return out
}

func (f *fakeVoice) Self() (core.VoiceUser, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.hasSelf {
		return core.VoiceUser{}, false
	}
	return f.users[f.self], true
}

func (f *fakeVoice) MoveTo(channelID uint32) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.channels[channelID]; !ok {
		return false
	}
	f.movedTo = append(f.movedTo, channelID)
	if f.hasSelf {
		u := f.users[f.self]
		u.ChannelID = channelID
		f.users[f.self] = u
	}
	return true
}

func (f *fakeVoice) SendChannelText(channelID uint32, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.channels[channelID]; !ok {
		return core.ErrChannelGone
	}
	f.channelTexts = append(f.channelTexts, sentText{target: channelID, text: text})
	return nil
}

func (f *fakeVoice) SendUserText(session uint32, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[session]; !ok {
		return core.ErrUserGone
	}
	f.userTexts = append(f.userTexts, sentText{target: session, text: text})
	return nil
}

func (f *fakeVoice) SendAudio(pcm []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]byte, len(pcm))
	copy(cp, pcm)
	f.audioSent = append(f.audioSent, cp)
	return nil
}

func (f *fakeVoice) stats() (connects, disconnects int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connectCalls, f.disconnects
}

func (f *fakeVoice) sentToChannels() []sentText {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentText(nil), f.channelTexts...)
}

func (f *fakeVoice) sentToUsers() []sentText {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentText(nil), f.userTexts...)
}

// fakeConn captures outbound frames instead of writing a socket.
type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	closed bool

	err error // forced TrySend error, if any
}

type capturedEnv struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("connection closed")
	}
	if c.err != nil {
		return c.err
	}
	cp := make(core.Frame, len(f))
	copy(cp, f)
	c.frames = append(c.frames, cp)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *fakeConn) clear() {
	c.mu.Lock()
	c.frames = nil
	c.mu.Unlock()
}

func (c *fakeConn) envelopes(t *testing.T) []capturedEnv {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]capturedEnv, 0, len(c.frames))
	for _, f := range c.frames {
		var env capturedEnv
		if err := json.Unmarshal(f, &env); err != nil {
			t.Fatalf("bad envelope %q: %v", f, err)
		}
		out = append(out, env)
	}
	return out
}

func (c *fakeConn) byType(t *testing.T, typ string) []capturedEnv {
	t.Helper()
	var out []capturedEnv
	for _, env := range c.envelopes(t) {
		if env.Type == typ {
			out = append(out, env)
		}
	}
	return out
}

// waitFor polls until cond holds; bridge event handling is asynchronous.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

// newTestBridge wires a bridge whose dialer hands out the given fakes
// in order, reusing the last one for later attempts.
func newTestBridge(fakes ...*fakeVoice) (*Bridge, *fakeConn) {
	conn := &fakeConn{}
	i := 0
	dial := func(events chan<- core.VoiceEvent) core.VoiceClient {
		fv := fakes[i]
		if i < len(fakes)-1 {
			i++
		}
		fv.mu.Lock()
		fv.events = events
		fv.mu.Unlock()
		return fv
	}
	return NewBridge(conn, dial, BridgeOptions{}), conn
}
