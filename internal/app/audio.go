package app

import (
	"encoding/base64"
	"sync"
	"time"

	"github.com/dkeye/webmumble/internal/domain"
)

// SampleRate is the PCM rate on both legs of the bridge.
const SampleRate = 48000

// bytesPerMillisecond of 16-bit mono PCM at SampleRate.
const bytesPerMillisecond = SampleRate * 2 / 1000

// AudioAggregator batches inbound per-speaker PCM so the browser gets
// fewer, larger audio frames. A buffer flushes once it holds a full
// aggregation window, or after the guard interval so quiet speakers are
// not delayed indefinitely. Speakers flush independently of each other.
type AudioAggregator struct {
	mu      sync.Mutex
	targetB int
	guard   time.Duration
	emit    func(domain.AudioPayload)
	buffers map[uint32]*speakerBuffer
}

type speakerBuffer struct {
	data      []byte
	name      string
	lastFlush time.Time
}

// NewAudioAggregator builds an aggregator flushing on the given window
// (buffered audio duration) or guard interval, whichever hits first.
func NewAudioAggregator(window, guard time.Duration, emit func(domain.AudioPayload)) *AudioAggregator {
	target := int(window/time.Millisecond) * bytesPerMillisecond
	return &AudioAggregator{
		targetB: target,
		guard:   guard,
		emit:    emit,
		buffers: make(map[uint32]*speakerBuffer),
	}
}

// OnChunk appends one inbound PCM chunk for a speaker and flushes the
// buffer when the policy says so. Empty chunks are ignored entirely.
func (a *AudioAggregator) OnChunk(session uint32, name string, pcm []byte) {
	a.onChunkAt(session, name, pcm, time.Now())
}

func (a *AudioAggregator) onChunkAt(session uint32, name string, pcm []byte, now time.Time) {
	if len(pcm) == 0 {
		return
	}

	a.mu.Lock()
	buf, ok := a.buffers[session]
	if !ok {
		buf = &speakerBuffer{name: name, lastFlush: now}
		a.buffers[session] = buf
	}
	buf.name = name
	buf.data = append(buf.data, pcm...)

	var out *domain.AudioPayload
	if len(buf.data) >= a.targetB || now.Sub(buf.lastFlush) > a.guard {
		out = &domain.AudioPayload{
			UserID:     domain.FormatID(session),
			UserName:   buf.name,
			Data:       base64.StdEncoding.EncodeToString(buf.data),
			SampleRate: SampleRate,
		}
		buf.data = nil
		buf.lastFlush = now
	}
	a.mu.Unlock()

	// Emit outside the lock; the sink serializes its own writes.
	if out != nil {
		a.emit(*out)
	}
}

// Reset drops all buffered audio, e.g. on upstream disconnect.
func (a *AudioAggregator) Reset() {
	a.mu.Lock()
	a.buffers = make(map[uint32]*speakerBuffer)
	a.mu.Unlock()
}
