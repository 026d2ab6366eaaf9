package huffman

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	h := NewDefault()
	cases := [][]byte{
		nil,
		[]byte("Teeworlds"),
		[]byte{0, 0, 0, 0, 1, 2, 3},
		bytes.Repeat([]byte{0xff}, 300),
	}
	for _, c := range cases {
		compressed := h.Compress(c)
		decompressed, err := h.Decompress(compressed, 100000)
		if err != nil {
			t.Fatalf("Decompress(%v): %v", c, err)
		}
		if !bytes.Equal(decompressed, c) && !(len(decompressed) == 0 && len(c) == 0) {
			t.Errorf("round trip mismatch: in=%v out=%v", c, decompressed)
		}
	}
}

func TestRoundTripRandom(t *testing.T) {
	h := NewDefault()
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		n := rng.Intn(2000)
		buf := make([]byte, n)
		rng.Read(buf)
		compressed := h.Compress(buf)
		decompressed, err := h.Decompress(compressed, 100000)
		if err != nil {
			t.Fatalf("Decompress: %v", err)
		}
		if !bytes.Equal(decompressed, buf) {
			t.Fatalf("mismatch at iteration %d", i)
		}
	}
}

func TestDecompressOutputTooLarge(t *testing.T) {
	h := NewDefault()
	compressed := h.Compress(bytes.Repeat([]byte{0x41}, 1000))
	if _, err := h.Decompress(compressed, 10); err != ErrOutputTooLarge {
		t.Fatalf("got %v, want ErrOutputTooLarge", err)
	}
}

func BenchmarkCompress(b *testing.B) {
	h := NewDefault()
	data := bytes.Repeat([]byte("PING"), 100)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h.Compress(data)
	}
}
