// Package demowire is the tiny wire format source/server and
// source/client share for carrying a snapshot delta inside one vital
// chunk. It is demo glue, not a protocol spec.md defines.
package demowire

import "github.com/teeworlds-go/netstack/pkg/varint"

// encodeSnapSingle packs one reconstructed-snap delta into the single
// vital chunk the demo applications use to carry snapshot updates:
// tick, delta_tick in wire form (tick - baseline tick, per §4.7; a
// baseline of -1 yields tick+1), the target snap's crc, and the raw
// delta payload bytes. This is demo wiring for exercising pkg/snapshot
// end to end, not a wire format spec.md defines — real game protocols
// split this across dedicated message kinds (SnapEmpty/SnapSingle/
// SnapPart), which pkg/snapshot models directly.
func EncodeSnapSingle(tick, deltaTick, crc int32, delta []byte) []byte {
	out := varint.AppendInt(nil, tick)
	out = varint.AppendInt(out, deltaTick)
	out = varint.AppendInt(out, crc)
	return append(out, delta...)
}

// DecodeSnapSingle is the inverse of encodeSnapSingle.
func DecodeSnapSingle(data []byte) (tick, deltaTick, crc int32, delta []byte, err error) {
	tick, n, err := varint.ReadInt(data)
	if err != nil {
		return 0, 0, 0, nil, err
	}
	data = data[n:]
	deltaTick, n, err = varint.ReadInt(data)
	if err != nil {
		return 0, 0, 0, nil, err
	}
	data = data[n:]
	crc, n, err = varint.ReadInt(data)
	if err != nil {
		return 0, 0, 0, nil, err
	}
	return tick, deltaTick, crc, data[n:], nil
}
