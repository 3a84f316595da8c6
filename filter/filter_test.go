package filter

import (
	"bytes"
	"testing"

	"github.com/RealBurst/unrar5j/bitio"
)

func TestApplyE8Unbiasing(t *testing.T) {
	data := []byte{0xE8, 0x05, 0x00, 0x00, 0x00, 0x90, 0x90, 0x90, 0x90, 0x90, 0x90, 0x90, 0x90, 0x90, 0x90, 0x90}
	want := []byte{0xE8, 0x04, 0x00, 0x00, 0x00, 0x90, 0x90, 0x90, 0x90, 0x90, 0x90, 0x90, 0x90, 0x90, 0x90, 0x90}

	Apply(Pending{Type: E8, Size: len(data)}, data, 0)
	if !bytes.Equal(data, want) {
		t.Fatalf("got % x want % x", data, want)
	}
}

func TestApplyDeltaRoundTrips(t *testing.T) {
	// Two interleaved channels, each a simple ramp: encoder emits
	// per-channel deltas (negated, per spec's reconstruction rule), all of
	// channel 0 first and then all of channel 1; decode should recover the
	// interleaved ramp.
	channels := 2
	original := []byte{10, 20, 11, 22, 12, 24, 13, 26}

	encoded := make([]byte, len(original))
	srcIdx := 0
	for c := 0; c < channels; c++ {
		var prev byte
		for i := c; i < len(original); i += channels {
			encoded[srcIdx] = prev - original[i]
			prev = original[i]
			srcIdx++
		}
	}

	got := make([]byte, len(encoded))
	copy(got, encoded)
	applyDelta(got, channels)

	if !bytes.Equal(got, original) {
		t.Fatalf("delta round trip: got % x want % x", got, original)
	}
}

func TestApplyARMRewritesBL(t *testing.T) {
	// A BL instruction: top byte 0xEB, 24-bit signed offset in the low bytes.
	data := []byte{0x10, 0x00, 0x00, 0xEB}
	orig := make([]byte, len(data))
	copy(orig, data)

	applyARM(data, 0x1000)

	if bytes.Equal(data, orig) {
		t.Fatal("expected ARM filter to modify the instruction")
	}
	if data[3] != 0xEB {
		t.Fatal("condition/opcode byte must be preserved")
	}
}

func TestPipelineRejectsOverlap(t *testing.T) {
	var p Pipeline
	p.queue = append(p.queue, Pending{StartPos: 0, Size: 16})
	p.filterEnd = 16

	// A new E8 filter descriptor at startPosDelta 10, size 4 starts before
	// the previous one ends and must be dropped as unsupported.
	if 10 >= p.filterEnd {
		t.Fatal("test setup invalid")
	}

	// bits: 00 00001010 (delta=10) 00 00000100 (size=4) 001 (E8), zero pad
	br := bitio.NewReader(bytes.NewReader([]byte{0x02, 0x80, 0x42}))
	if err := br.Prepare(); err != nil {
		t.Fatal(err)
	}
	dropped, unsupported := p.ReadDescriptor(br, 0)
	if !dropped || !unsupported {
		t.Fatalf("overlapping descriptor: dropped=%v unsupported=%v, want both true", dropped, unsupported)
	}
	if p.Len() != 1 {
		t.Fatalf("queue length = %d, want 1", p.Len())
	}
}

func TestPipelineFullQueue(t *testing.T) {
	var p Pipeline
	for i := 0; i < MaxQueue; i++ {
		p.queue = append(p.queue, Pending{StartPos: int64(i)})
	}
	if !p.Full() {
		t.Fatal("expected queue to report full at MaxQueue")
	}
}
