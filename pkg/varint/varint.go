// Package varint implements the variable-length signed-integer codec and the
// two string encodings ("C-style" NUL-terminated, and length-prefixed data)
// used throughout the wire protocol.
//
// Integer layout (byte 0 first, little-endian across groups):
//
//	byte 0: E S D D D D D D   (E=extend, S=sign, D=payload bit, 6 payload bits)
//	byte N: E D D D D D D D   (7 payload bits), N in 1..=4
//
// The decoded magnitude is assembled across groups and then XORed with
// -sign: for a negative input, -sign is all-ones (-1 as int32), so the XOR
// performs the bitwise complement that recovers the original negative
// value; for a non-negative input -sign is zero and the XOR is a no-op.
// This is the same transform as the reference packer's read_int/write_int.
package varint

import "errors"

// ErrUnexpectedEnd is returned when the input is exhausted before a complete
// integer, C-string, or length-prefixed blob could be read.
var ErrUnexpectedEnd = errors.New("varint: unexpected end of input")

// ErrCapacity reports a destination buffer too small for the encoded output.
// The writers in this package append to and grow their buffer, so none of
// them returns it.
var ErrCapacity = errors.New("varint: destination buffer too small")

// MaxIntLen is the longest an encoded int can be.
const MaxIntLen = 5

// AppendInt appends the shortest encoding of v to buf and returns the
// extended slice.
func AppendInt(buf []byte, v int32) []byte {
	sign := int32(0)
	if v < 0 {
		sign = 1
	}
	// v ^ (v>>31): for negative v this is the bitwise complement (~v),
	// which is >= 0 since v < 0; for non-negative v it's a no-op. Either
	// way u holds the magnitude to be packed, always representable as a
	// non-negative 32-bit value.
	u := uint32(v ^ (v >> 31))

	b0 := byte(sign<<6) | byte(u&0x3f)
	u >>= 6
	if u != 0 {
		b0 |= 0x80
	}
	buf = append(buf, b0)
	for u != 0 {
		b := byte(u & 0x7f)
		u >>= 7
		if u != 0 {
			b |= 0x80
		}
		buf = append(buf, b)
	}
	return buf
}

// ReadInt decodes one integer from the front of data, returning the value
// and the number of bytes consumed. Over-long encodings (redundant trailing
// groups that don't change the value) decode successfully to the same value
// a canonical encoding would; callers that want to flag them can compare
// consumed against the length AppendInt would have produced.
func ReadInt(data []byte) (value int32, consumed int, err error) {
	if len(data) == 0 {
		return 0, 0, ErrUnexpectedEnd
	}
	b := data[0]
	sign := int32((b >> 6) & 1)
	u := uint32(b & 0x3f)
	shift := uint(6)
	extend := b&0x80 != 0
	idx := 1
	for extend && idx < MaxIntLen {
		if idx >= len(data) {
			return 0, 0, ErrUnexpectedEnd
		}
		b = data[idx]
		u |= uint32(b&0x7f) << shift
		shift += 7
		extend = b&0x80 != 0
		idx++
	}
	result := int32(u) ^ (-sign)
	return result, idx, nil
}

// WriteStringC appends s followed by a terminating NUL. s must not itself
// contain a NUL byte.
func WriteStringC(buf []byte, s []byte) []byte {
	buf = append(buf, s...)
	return append(buf, 0)
}

// ReadStringC reads bytes up to and including the first NUL, returning the
// bytes before it (not including the NUL) and the number of bytes consumed
// (including the NUL).
func ReadStringC(data []byte) (s []byte, consumed int, err error) {
	for i, b := range data {
		if b == 0 {
			return data[:i], i + 1, nil
		}
	}
	return nil, 0, ErrUnexpectedEnd
}

// WriteData appends a length-prefixed blob: an int giving len(data),
// followed by the raw bytes.
func WriteData(buf []byte, data []byte) []byte {
	buf = AppendInt(buf, int32(len(data)))
	return append(buf, data...)
}

// ReadData reads a length-prefixed blob, returning the data slice (aliasing
// the input) and the number of bytes consumed.
func ReadData(data []byte) (out []byte, consumed int, err error) {
	n, used, err := ReadInt(data)
	if err != nil {
		return nil, 0, err
	}
	if n < 0 {
		return nil, 0, ErrUnexpectedEnd
	}
	rest := data[used:]
	if int(n) > len(rest) {
		return nil, 0, ErrUnexpectedEnd
	}
	return rest[:n], used + int(n), nil
}
