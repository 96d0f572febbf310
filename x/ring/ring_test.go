package ring

import "testing"

// fakeIO models partial producer/consumer progress (accept up to k units).
type fakeIO struct{ k int }

func (f fakeIO) limit(n int) int {
	if n > f.k {
		return f.k
	}
	return n
}

func TestOrderAcrossWrapWithPartialProgress(t *testing.T) {
	for _, size := range []int{4, 8, 12, 24, 64} {
		r := New[byte](size)
		prod := fakeIO{k: 7}
		cons := fakeIO{k: 5}

		const N = 2000
		src := make([]byte, N)
		for i := range src {
			src[i] = byte(i)
		}
		p := src
		dst := make([]byte, 0, N)
		for len(dst) < N {
			if len(p) > 0 {
				n := r.Write(p[:prod.limit(len(p))])
				p = p[n:]
			}
			var tmp [17]byte
			n := r.Read(tmp[:cons.limit(len(tmp))])
			dst = append(dst, tmp[:n]...)
		}
		for i := 0; i < N; i++ {
			if dst[i] != src[i] {
				t.Fatalf("size %d: mismatch at %d: got=%d want=%d", size, i, dst[i], src[i])
			}
		}
	}
}

func TestAcceptedPlusFreeIsConserved(t *testing.T) {
	r := New[uint16](12)
	in := make([]uint16, 20)
	for i := range in {
		in[i] = uint16(0x100 | i)
	}
	before := r.Free()
	n := r.Write(in)
	if n+r.Free() != before {
		t.Fatalf("accepted %d + free %d != %d", n, r.Free(), before)
	}
	if n != 12 || !r.Full() {
		t.Fatalf("got %d full=%v", n, r.Full())
	}
	if r.Put(1) {
		t.Fatal("Put on a full ring should fail")
	}
	v, ok := r.Get()
	if !ok || v != 0x100 {
		t.Fatalf("got %#x %v", v, ok)
	}
	if !r.Put(0x1ff) {
		t.Fatal("Put after Get should succeed")
	}
	out := make([]uint16, 32)
	if got := r.Read(out); got != 12 {
		t.Fatalf("read %d want 12", got)
	}
	if out[10] != 0x10b || out[11] != 0x1ff {
		t.Fatalf("tail order: %#x %#x", out[10], out[11])
	}
	if !r.Empty() || r.Len() != 0 {
		t.Fatal("ring should be empty")
	}
}

func TestIndicesNeverCross(t *testing.T) {
	r := New[byte](8)
	for i := 0; i < 100; i++ {
		r.Write([]byte{1, 2, 3})
		if l := r.Len(); l < 0 || l > r.Cap() {
			t.Fatalf("len out of range: %d", l)
		}
		r.Read(make([]byte, 2))
		rd, wr := r.Indices()
		if rd >= 16 || wr >= 16 {
			t.Fatalf("indices out of range rd=%d wr=%d", rd, wr)
		}
	}
}

func TestPeekAndReset(t *testing.T) {
	r := Wrap(make([]byte, 4))
	if _, ok := r.Peek(); ok {
		t.Fatal("peek on empty")
	}
	r.Put(9)
	if v, ok := r.Peek(); !ok || v != 9 || r.Len() != 1 {
		t.Fatalf("peek got %d %v len %d", v, ok, r.Len())
	}
	r.Reset()
	if !r.Empty() {
		t.Fatal("reset should empty the ring")
	}
}
