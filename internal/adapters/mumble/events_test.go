package mumble

import (
	"bytes"
	"testing"
)

func TestPCMSampleRoundTrip(t *testing.T) {
	t.Parallel()
	samples := []int16{0, 1, -1, 32767, -32768, 12345, -12345}

	pcm := samplesToPCM(samples)
	if len(pcm) != len(samples)*2 {
		t.Fatalf("pcm length = %d, want %d", len(pcm), len(samples)*2)
	}

	back := pcmToSamples(pcm)
	if len(back) != len(samples) {
		t.Fatalf("sample length = %d, want %d", len(back), len(samples))
	}
	for i := range samples {
		if back[i] != samples[i] {
			t.Errorf("sample %d = %d, want %d", i, back[i], samples[i])
		}
	}
}

func TestSamplesToPCMIsLittleEndian(t *testing.T) {
	t.Parallel()
	got := samplesToPCM([]int16{0x0102})
	if !bytes.Equal(got, []byte{0x02, 0x01}) {
		t.Errorf("pcm = % x, want 02 01", got)
	}
}

func TestPCMToSamplesDropsTrailingOddByte(t *testing.T) {
	t.Parallel()
	got := pcmToSamples([]byte{0x02, 0x01, 0xff})
	if len(got) != 1 || got[0] != 0x0102 {
		t.Errorf("samples = %v, want [258]", got)
	}
}

func TestPCMToSamplesEmpty(t *testing.T) {
	t.Parallel()
	if got := pcmToSamples(nil); len(got) != 0 {
		t.Errorf("samples = %v, want empty", got)
	}
}
