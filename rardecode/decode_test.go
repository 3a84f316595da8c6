package rardecode

import (
	"bytes"
	"hash/crc32"
	"testing"
)

func TestDecodeStoreOnlySingleFile(t *testing.T) {
	// spec scenario 1: method 0, content "hello".
	content := []byte("hello")
	size := uint64(len(content))

	var out bytes.Buffer
	o := NewOrchestrator(nil)
	if derr := o.Decode(bytes.NewReader(content), &out, 0, [2]byte{}, &size); derr != nil {
		t.Fatalf("unexpected error: %v", derr)
	}

	want := []byte{0x68, 0x65, 0x6C, 0x6C, 0x6F}
	if !bytes.Equal(out.Bytes(), want) {
		t.Fatalf("got % x want % x", out.Bytes(), want)
	}
	if got := crc32.ChecksumIEEE(out.Bytes()); got != 0x3610A686 {
		t.Fatalf("crc32 = %#x, want 0x3610A686", got)
	}
}

func TestDecodeStoreRejectsSizeMismatch(t *testing.T) {
	content := []byte("hello")
	size := uint64(10) // declared larger than the actual (short) input

	var out bytes.Buffer
	o := NewOrchestrator(nil)
	derr := o.Decode(bytes.NewReader(content), &out, 0, [2]byte{}, &size)
	if derr == nil {
		t.Fatal("expected an error on size mismatch")
	}
	if derr.Kind != CorruptedData {
		t.Fatalf("kind = %v, want CorruptedData", derr.Kind)
	}
}

func TestDecodePropertiesWindowSizeFormula(t *testing.T) {
	// pow=6, frac=0 -> (0+32) << (6+12) = 32 << 18 = 2^23.
	props, err := DecodeProperties([2]byte{6, 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if props.WindowSize != 1<<23 {
		t.Fatalf("window size = %d, want %d", props.WindowSize, 1<<23)
	}
	if props.Solid || props.V7 {
		t.Fatalf("expected solid=false v7=false, got solid=%v v7=%v", props.Solid, props.V7)
	}
}

func TestDecodePropertiesSolidAndV7Bits(t *testing.T) {
	props, err := DecodeProperties([2]byte{0, 0x03})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !props.Solid || !props.V7 {
		t.Fatalf("expected solid=true v7=true, got solid=%v v7=%v", props.Solid, props.V7)
	}
}

func TestDecodePropertiesRejectsOversizedWindow(t *testing.T) {
	// pow + ((frac+31)>>5) > 14 must be rejected.
	_, err := DecodeProperties([2]byte{31, 31 << 3})
	if err == nil {
		t.Fatal("expected oversized window to be rejected")
	}
}
