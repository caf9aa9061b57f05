package app

import (
	"encoding/base64"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/webmumble/internal/domain"
)

type flushRecorder struct {
	mu      sync.Mutex
	flushes []domain.AudioPayload
}

func (r *flushRecorder) emit(p domain.AudioPayload) {
	r.mu.Lock()
	r.flushes = append(r.flushes, p)
	r.mu.Unlock()
}

func (r *flushRecorder) all() []domain.AudioPayload {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.AudioPayload(nil), r.flushes...)
}

func decodeFlush(t *testing.T, p domain.AudioPayload) []byte {
	t.Helper()
	b, err := base64.StdEncoding.DecodeString(p.Data)
	if err != nil {
		t.Fatalf("flush base64: %v", err)
	}
	return b
}

func TestAggregatorFlushesAtTargetSize(t *testing.T) {
	t.Parallel()
	rec := &flushRecorder{}
	agg := NewAudioAggregator(60*time.Millisecond, 40*time.Millisecond, rec.emit)

	now := time.Now()
	chunk := make([]byte, 1920) // 20 ms
	for i := range chunk {
		chunk[i] = byte(i)
	}

	// Two chunks stay under the 5760-byte target.
	agg.onChunkAt(9, "bob", chunk, now)
	agg.onChunkAt(9, "bob", chunk, now.Add(time.Millisecond))
	if got := len(rec.all()); got != 0 {
		t.Fatalf("premature flush after %d bytes", 2*len(chunk))
	}

	// Third chunk reaches it exactly.
	agg.onChunkAt(9, "bob", chunk, now.Add(2*time.Millisecond))
	flushes := rec.all()
	if len(flushes) != 1 {
		t.Fatalf("flushes = %d, want 1", len(flushes))
	}
	if flushes[0].UserID != "9" || flushes[0].UserName != "bob" || flushes[0].SampleRate != 48000 {
		t.Errorf("flush meta = %+v", flushes[0])
	}
	if got := decodeFlush(t, flushes[0]); len(got) != 5760 {
		t.Errorf("flush size = %d, want 5760", len(got))
	}
}

func TestAggregatorGuardIntervalBoundsLatency(t *testing.T) {
	t.Parallel()
	rec := &flushRecorder{}
	agg := NewAudioAggregator(60*time.Millisecond, 40*time.Millisecond, rec.emit)

	now := time.Now()
	small := make([]byte, 480) // 5 ms, far under target

	agg.onChunkAt(3, "carol", small, now)
	agg.onChunkAt(3, "carol", small, now.Add(30*time.Millisecond))
	if got := len(rec.all()); got != 0 {
		t.Fatalf("flushed before guard interval: %d", got)
	}

	// Past the guard interval the buffer flushes regardless of size.
	agg.onChunkAt(3, "carol", small, now.Add(45*time.Millisecond))
	flushes := rec.all()
	if len(flushes) != 1 {
		t.Fatalf("flushes = %d, want 1", len(flushes))
	}
	if got := decodeFlush(t, flushes[0]); len(got) != 3*len(small) {
		t.Errorf("flush size = %d, want %d", len(got), 3*len(small))
	}
}

func TestAggregatorConservesBytes(t *testing.T) {
	t.Parallel()
	rec := &flushRecorder{}
	agg := NewAudioAggregator(60*time.Millisecond, 40*time.Millisecond, rec.emit)

	sizes := []int{100, 5000, 2000, 7, 5760, 3000, 1, 900, 6000}
	now := time.Now()
	total := 0
	maxChunk := 0
	for i, n := range sizes {
		chunk := make([]byte, n)
		for j := range chunk {
			chunk[j] = byte(i)
		}
		agg.onChunkAt(1, "bob", chunk, now.Add(time.Duration(i)*time.Millisecond))
		total += n
		if n > maxChunk {
			maxChunk = n
		}
	}
	// Drain whatever is left via the guard interval.
	agg.onChunkAt(1, "bob", []byte{0xFF}, now.Add(time.Hour))
	total++

	flushed := 0
	for _, f := range rec.all() {
		n := len(decodeFlush(t, f))
		flushed += n
		if n > 5760+maxChunk {
			t.Errorf("flush of %d bytes exceeds target plus one chunk", n)
		}
	}
	if flushed != total {
		t.Errorf("flushed %d bytes, received %d", flushed, total)
	}
}

func TestAggregatorIgnoresEmptyChunks(t *testing.T) {
	t.Parallel()
	rec := &flushRecorder{}
	agg := NewAudioAggregator(60*time.Millisecond, 40*time.Millisecond, rec.emit)

	agg.OnChunk(5, "bob", nil)
	agg.OnChunk(5, "bob", []byte{})

	agg.mu.Lock()
	buffers := len(agg.buffers)
	agg.mu.Unlock()
	if buffers != 0 {
		t.Errorf("empty chunks created %d buffers", buffers)
	}
	if got := len(rec.all()); got != 0 {
		t.Errorf("empty chunks flushed %d payloads", got)
	}
}

func TestAggregatorSpeakersFlushIndependently(t *testing.T) {
	t.Parallel()
	rec := &flushRecorder{}
	agg := NewAudioAggregator(60*time.Millisecond, 40*time.Millisecond, rec.emit)

	now := time.Now()
	agg.onChunkAt(1, "bob", make([]byte, 5760), now)
	agg.onChunkAt(2, "carol", make([]byte, 100), now)

	flushes := rec.all()
	if len(flushes) != 1 || flushes[0].UserID != "1" {
		t.Fatalf("flushes = %+v, want one for speaker 1", flushes)
	}
}

func TestAggregatorResetDropsBuffers(t *testing.T) {
	t.Parallel()
	rec := &flushRecorder{}
	agg := NewAudioAggregator(60*time.Millisecond, 40*time.Millisecond, rec.emit)

	agg.onChunkAt(1, "bob", make([]byte, 100), time.Now())
	agg.Reset()
	// Post-reset audio starts a fresh buffer; the dropped bytes are gone.
	agg.onChunkAt(1, "bob", make([]byte, 5760), time.Now())

	flushes := rec.all()
	if len(flushes) != 1 {
		t.Fatalf("flushes = %d, want 1", len(flushes))
	}
	if got := decodeFlush(t, flushes[0]); len(got) != 5760 {
		t.Errorf("flush size = %d, want 5760", len(got))
	}
}
