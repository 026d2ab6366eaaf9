package chunk

import "testing"

func TestRoundTripNonVital(t *testing.T) {
	c := Chunk{Data: []byte("hello")}
	buf, err := Append(nil, c)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if len(buf) != HeaderSize(false)+len(c.Data) {
		t.Fatalf("len(buf) = %d", len(buf))
	}
	got, n, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if n != len(buf) {
		t.Errorf("consumed %d, want %d", n, len(buf))
	}
	if got.Vital || got.Resend || string(got.Data) != "hello" {
		t.Errorf("got %+v", got)
	}
}

func TestRoundTripVital(t *testing.T) {
	c := Chunk{Vital: true, Sequence: 1023, Data: []byte{1, 2, 3}}
	buf, err := Append(nil, c)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if len(buf) != HeaderSize(true)+len(c.Data) {
		t.Fatalf("len(buf) = %d", len(buf))
	}
	got, n, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if n != len(buf) {
		t.Errorf("consumed %d, want %d", n, len(buf))
	}
	if !got.Vital || got.Sequence != 1023 {
		t.Errorf("got %+v", got)
	}
}

func TestAppendTooLarge(t *testing.T) {
	if _, err := Append(nil, Chunk{Data: make([]byte, MaxSize+1)}); err != ErrTooLarge {
		t.Fatalf("got %v, want ErrTooLarge", err)
	}
}

func TestDecodeTruncated(t *testing.T) {
	if _, _, err := Decode(nil); err != ErrTruncated {
		t.Fatalf("got %v, want ErrTruncated", err)
	}
	if _, _, err := Decode([]byte{0x80, 0x05, 0x01}); err != ErrTruncated {
		t.Fatalf("got %v, want ErrTruncated", err)
	}
	if _, _, err := Decode([]byte{0x00, 0x05, 1, 2}); err != ErrTruncated {
		t.Fatalf("got %v, want ErrTruncated", err)
	}
}

func TestDecodeNAuthoritativeCount(t *testing.T) {
	var buf []byte
	buf, _ = Append(buf, Chunk{Data: []byte("a")})
	buf, _ = Append(buf, Chunk{Data: []byte("bb")})
	buf = append(buf, 0xff) // trailing garbage byte, should be ignored

	chunks, err := DecodeN(buf, 2)
	if err != nil {
		t.Fatalf("DecodeN: %v", err)
	}
	if len(chunks) != 2 || string(chunks[0].Data) != "a" || string(chunks[1].Data) != "bb" {
		t.Errorf("got %+v", chunks)
	}
}

func TestDecodeNTooFew(t *testing.T) {
	buf, _ := Append(nil, Chunk{Data: []byte("a")})
	if _, err := DecodeN(buf, 2); err != ErrTruncated {
		t.Fatalf("got %v, want ErrTruncated", err)
	}
}
