package lz

import "testing"

func TestCopyMatchSelfReferentialRLE(t *testing.T) {
	// 1024 copies of 0x41 built from two literals plus a length-1022
	// match at distance 1, mirroring an RLE-style encoding of a run.
	w := NewWindow(MinWindowSize)
	w.PutLiteral(0x41)
	w.PutLiteral(0x41)
	w.CopyMatch(1, 1022)

	if w.Pos() != 1024 {
		t.Fatalf("pos = %d, want 1024", w.Pos())
	}
	for i, b := range w.Bytes(0, 1024) {
		if b != 0x41 {
			t.Fatalf("byte %d = %#x, want 0x41", i, b)
		}
	}
}

func TestCopyMatchWrapAroundBoundary(t *testing.T) {
	w := NewWindow(MinWindowSize)
	for i := 0; i < w.Size()-4; i++ {
		w.PutLiteral(byte(i))
	}
	w.PutLiteral(0xAA)
	w.PutLiteral(0xBB)
	w.PutLiteral(0xCC)
	w.PutLiteral(0xDD)
	// pos is now exactly at w.Size(); Wrap folds the tail back to front.
	w.Wrap()
	if w.LZSize() != int64(w.Size()) {
		t.Fatalf("lzSize = %d, want %d", w.LZSize(), w.Size())
	}
	if w.Pos() != 0 {
		t.Fatalf("pos after exact wrap = %d, want 0", w.Pos())
	}

	// A match at distance 4 from the new position must see the folded
	// tail bytes (0xAA 0xBB 0xCC 0xDD), not garbage past the logical end.
	w.CopyMatch(4, 4)
	got := w.Bytes(0, 4)
	want := []byte{0xAA, 0xBB, 0xCC, 0xDD}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d = %#x, want %#x", i, got[i], want[i])
		}
	}
}

func TestUseRepRotatesToFront(t *testing.T) {
	w := NewWindow(MinWindowSize)
	w.rep = [4]uint32{10, 20, 30, 40}

	got := w.UseRep(2)
	if got != 30 {
		t.Fatalf("UseRep(2) = %d, want 30", got)
	}
	want := [4]uint32{30, 10, 20, 40}
	if w.rep != want {
		t.Fatalf("rep = %v, want %v", w.rep, want)
	}
}

func TestPushNewDistanceShiftsAll(t *testing.T) {
	w := NewWindow(MinWindowSize)
	w.rep = [4]uint32{10, 20, 30, 40}
	w.PushNewDistance(99)

	want := [4]uint32{99, 10, 20, 30}
	if w.rep != want {
		t.Fatalf("rep = %v, want %v", w.rep, want)
	}
}

func TestUseRepSymbolToIndexMapping(t *testing.T) {
	// Main-alphabet symbols 258..261 map to idx 0..3 (sym-SymRep1); every
	// index must be valid against the 4-element register array, including
	// idx 3 (symbol 261), which previously panicked on an off-by-one.
	w := NewWindow(MinWindowSize)
	w.rep = [4]uint32{100, 200, 300, 400}

	for sym := SymRep1; sym <= SymRep4; sym++ {
		w.rep = [4]uint32{100, 200, 300, 400}
		idx := sym - SymRep1
		want := [4]uint32{100, 200, 300, 400}[idx]
		got := w.UseRep(idx)
		if got != want {
			t.Fatalf("symbol %d: UseRep(%d) = %d, want %d", sym, idx, got, want)
		}
	}
}

func TestCopyMatchLargeDistance(t *testing.T) {
	// A match whose distance exceeds 0x100 must still copy correctly; this
	// is the range LEN_PLUS's threshold cascade watches, though the length
	// addend itself is applied by the caller (decodeDistSlot), not here.
	w := NewWindow(MinWindowSize)
	for i := 0; i < 300; i++ {
		w.PutLiteral(byte(i))
	}
	w.CopyMatch(300, 50)

	if w.Pos() != 350 {
		t.Fatalf("pos = %d, want 350", w.Pos())
	}
	got := w.Bytes(300, 350)
	for i, b := range got {
		if b != byte(i) {
			t.Fatalf("byte %d = %#x, want %#x", i, b, byte(i))
		}
	}
}

func TestSolidContinuityOK(t *testing.T) {
	w := NewWindow(MinWindowSize)
	w.lzEnd = 1000
	w.pos = 1000
	if !w.SolidContinuityOK() {
		t.Fatal("expected exact match to satisfy continuity")
	}

	w.lzEnd = 0
	w.pos = SolidRecoverLimit + 1
	if w.SolidContinuityOK() {
		t.Fatal("expected drift beyond SolidRecoverLimit to fail continuity")
	}
}
