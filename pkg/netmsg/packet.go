// Package netmsg implements the outer packet framer: the layer that tells
// connectionless datagrams apart from connection-oriented ones, carries the
// per-packet ACK/resend-request/chunk-count header, and applies (or
// reverses) whole-payload Huffman compression.
package netmsg

import (
	"errors"

	"github.com/teeworlds-go/netstack/pkg/huffman"
)

// MTU bounds every datagram this package ever emits or accepts.
const MTU = 1400

// MaxConnlessData is the largest payload a connectionless packet may carry.
const MaxConnlessData = MTU - len(connlessPrefix)

// MaxPayload bounds a connection packet's (post-decompression) payload.
const MaxPayload = 1394

var connlessPrefix = [4]byte{0xff, 0xff, 0xff, 0xff}

// headerSize is the fixed three-byte header shared by every connection
// packet, before the optional token.
const headerSize = 3

// Flags occupy the top nibble of a connection packet's first header byte.
// Bit positions match the wire layout exactly (MSB of the nibble is
// Connless, LSB is Control).
type Flags uint8

const (
	FlagControl Flags = 1 << iota
	FlagResend
	FlagCompression
	FlagConnless
)

var (
	// ErrTooLong is returned when an encoded packet would exceed MTU.
	ErrTooLong = errors.New("netmsg: packet exceeds MTU")
	// ErrTruncated is returned when a datagram ends before a mandatory
	// header field.
	ErrTruncated = errors.New("netmsg: truncated packet header")
)

// Packet is the tagged union of everything Decode can produce:
// ConnlessPacket or ConnPacket.
type Packet interface {
	isPacket()
}

// ConnlessPacket is a connectionless datagram: four 0xff bytes followed by
// an opaque payload, used for server browsing and the pre-connection
// handshake.
type ConnlessPacket struct {
	Data []byte
}

func (ConnlessPacket) isPacket() {}

// ConnPacket is a connection-oriented datagram addressed to an established
// (or connecting) peer.
type ConnPacket struct {
	Ack   uint16 // 10-bit
	Token []byte // nil unless the negotiated protocol variant carries one
	Body  Body
}

func (ConnPacket) isPacket() {}

// Body is the tagged union of a connection packet's payload:
// ControlBody or ChunksBody.
type Body interface {
	isBody()
}

// ControlBody carries a single control message (handshake/keepalive/close).
// Control bodies are never Huffman-compressed.
type ControlBody struct {
	Kind Control
}

func (ControlBody) isBody() {}

// ChunksBody carries the serialised chunk records making up the payload;
// decoding the records themselves is pkg/chunk's job.
type ChunksBody struct {
	RequestResend bool
	NumChunks     uint8
	Payload       []byte
}

func (ChunksBody) isBody() {}

// Decode classifies a raw datagram and parses its header. hasToken must
// match the protocol variant negotiated for the peer the datagram is
// addressed to (the token's presence isn't self-describing on the wire).
func Decode(raw []byte, hasToken bool, huff *huffman.Huffman) (Packet, error) {
	if len(raw) >= 4 && raw[0] == 0xff && raw[1] == 0xff && raw[2] == 0xff && raw[3] == 0xff {
		return ConnlessPacket{Data: raw[4:]}, nil
	}
	if len(raw) < headerSize {
		return nil, ErrTruncated
	}
	flags := Flags(raw[0] >> 4)
	ack := uint16(raw[0]&0x0f)<<8 | uint16(raw[1])
	numChunks := raw[2]
	off := headerSize
	var token []byte
	if hasToken {
		if off+4 > len(raw) {
			return nil, ErrTruncated
		}
		token = raw[off : off+4]
		off += 4
	}
	payload := raw[off:]

	if flags&FlagCompression != 0 && flags&FlagControl == 0 {
		decompressed, err := huff.Decompress(payload, MaxPayload)
		if err != nil {
			return nil, err
		}
		payload = decompressed
	}

	if flags&FlagConnless != 0 {
		return ConnlessPacket{Data: payload}, nil
	}

	if flags&FlagControl != 0 {
		ctrl, err := decodeControl(payload)
		if err != nil {
			return nil, err
		}
		return ConnPacket{Ack: ack, Token: token, Body: ControlBody{Kind: ctrl}}, nil
	}

	return ConnPacket{
		Ack:   ack,
		Token: token,
		Body: ChunksBody{
			RequestResend: flags&FlagResend != 0,
			NumChunks:     numChunks,
			Payload:       payload,
		},
	}, nil
}

func writeHeader(buf []byte, flags Flags, ack uint16, numChunks uint8, token []byte) []byte {
	buf = append(buf, byte(flags)<<4|byte(ack>>8&0x0f), byte(ack&0xff), numChunks)
	buf = append(buf, token...)
	return buf
}

// EncodeControl serialises a control packet. Control bodies are never
// compressed.
func EncodeControl(ack uint16, token []byte, ctrl Control) ([]byte, error) {
	buf := writeHeader(make([]byte, 0, headerSize+len(token)+2), FlagControl, ack, 0, token)
	buf = append(buf, ctrl.encode()...)
	if len(buf) > MTU {
		return nil, ErrTooLong
	}
	return buf, nil
}

// EncodeChunks serialises a chunks packet, Huffman-compressing payload and
// setting the Compression flag iff doing so makes the packet shorter.
func EncodeChunks(ack uint16, requestResend bool, numChunks uint8, token []byte, payload []byte, huff *huffman.Huffman) ([]byte, error) {
	flags := Flags(0)
	if requestResend {
		flags |= FlagResend
	}
	body := payload
	if huff != nil {
		compressed := huff.Compress(payload)
		if len(compressed) < len(payload) {
			body = compressed
			flags |= FlagCompression
		}
	}
	buf := writeHeader(make([]byte, 0, headerSize+len(token)+len(body)), flags, ack, numChunks, token)
	buf = append(buf, body...)
	if len(buf) > MTU {
		return nil, ErrTooLong
	}
	return buf, nil
}

// EncodeConnless serialises a connectionless packet.
func EncodeConnless(data []byte) ([]byte, error) {
	if len(data) > MaxConnlessData {
		return nil, ErrTooLong
	}
	buf := make([]byte, 0, 4+len(data))
	buf = append(buf, connlessPrefix[:]...)
	buf = append(buf, data...)
	return buf, nil
}
