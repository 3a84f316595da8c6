package windowcache

import "testing"

func TestPutThenGet(t *testing.T) {
	c := New(1<<20, 1<<10)
	chain := c.NewChain()

	cp := Checkpoint{LZPos: 4096, Rep: [4]uint32{1, 2, 3, 4}, Dict: []byte("hello")}
	c.Put(chain, cp)

	got, ok := c.Get(chain, 4096)
	if !ok {
		t.Fatal("expected checkpoint to be admitted and retrievable")
	}
	if got.LZPos != cp.LZPos || string(got.Dict) != string(cp.Dict) {
		t.Fatalf("got %+v, want %+v", got, cp)
	}
}

func TestDistinctChainsDoNotCollide(t *testing.T) {
	c := New(1<<20, 1<<10)
	a := c.NewChain()
	b := c.NewChain()

	c.Put(a, Checkpoint{LZPos: 100, Dict: []byte("A")})
	c.Put(b, Checkpoint{LZPos: 100, Dict: []byte("B")})

	gotA, ok := c.Get(a, 100)
	if !ok || string(gotA.Dict) != "A" {
		t.Fatalf("chain a: got %+v ok=%v", gotA, ok)
	}
	gotB, ok := c.Get(b, 100)
	if !ok || string(gotB.Dict) != "B" {
		t.Fatalf("chain b: got %+v ok=%v", gotB, ok)
	}
}

func TestGetMissReportsFalse(t *testing.T) {
	c := New(1<<20, 1<<10)
	chain := c.NewChain()
	if _, ok := c.Get(chain, 12345); ok {
		t.Fatal("expected a miss on an empty cache")
	}
}
