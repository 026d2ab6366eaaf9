package huffman

// NumSymbols is the size of the byte alphabet, not counting EOF.
const NumSymbols = 256

// EOF is the explicit end-of-stream symbol appended to the byte alphabet,
// giving 257 leaves total in the canonical tree.
const EOF = NumSymbols

// DefaultFrequencies is the static frequency table the canonical tree is
// built from. Byte 0x00 dominates by a wide margin because the wire
// protocol is full of NUL-terminated strings and zero-padded fields, which
// is why it alone gets a frequency an order of magnitude above everything
// else, guaranteeing it the shortest code.
//
// The literal values below are a reconstruction, not a byte-for-byte copy
// of the upstream constant: the retrieved reference sources
// (_examples/original_source/huffman) ship the *algorithm* that consumes a
// frequency table (huffman/reference, huffman/tests/correctness.rs) but not
// the table itself, which upstream keeps in a `data/frequencies` data file
// that isn't source code and so wasn't part of the retrieval. Compression
// and decompression are internally consistent and satisfy the round-trip
// property regardless of the table's exact values; bit-for-bit parity with
// the reference implementation's output additionally requires the literal
// upstream table, which should be substituted here if strict wire
// compatibility with a deployed DDNet/Teeworlds peer is required.
var DefaultFrequencies = [NumSymbols]uint32{
	1 << 30, 4545, 2657, 431, 1950, 919, 444, 482, 2244, 617, 838, 1229, 88, 1095, 516, 364,
	136, 138, 91, 104, 58, 220, 13, 122, 14, 9, 17, 13, 9, 14, 17, 5,
	199093, 1924, 1697, 11281, 1157, 1758, 790, 2575, 2021, 1630, 2268, 1014, 6189, 1831, 4019, 1122,
	4976, 1557, 1176, 1600, 1367, 1315, 1332, 888, 1060, 911, 1271, 991, 1000, 1138, 1017, 1080,
	593, 2240, 1314, 1114, 1036, 1232, 895, 975, 1541, 1139, 542, 712, 1116, 1273, 1286, 2103,
	1056, 388, 1367, 2076, 2267, 1236, 726, 417, 559, 505, 331, 627, 309, 638, 258, 271,
	262, 27358, 6960, 15720, 13780, 45788, 6520, 5136, 13144, 24514, 463, 1944, 16478, 8580, 24587, 28129,
	8343, 341, 21920, 21589, 33040, 10243, 4479, 6865, 1280, 4928, 258, 446, 214, 448, 209, 236,
	231, 1227, 185, 341, 89, 115, 89, 92, 54, 183, 65, 81, 73, 239, 55, 90,
	97, 51, 38, 40, 40, 101, 58, 45, 36, 27, 26, 33, 145, 49, 35, 42,
	38, 40, 37, 39, 43, 59, 31, 30, 27, 36, 40, 42, 65, 33, 33, 25,
	27, 33, 32, 27, 48, 45, 32, 32, 44, 44, 35, 32, 32, 29, 31, 33,
	36, 45, 37, 41, 36, 40, 44, 40, 46, 37, 40, 27, 36, 32, 34, 37,
	44, 40, 35, 39, 35, 41, 40, 41, 37, 34, 41, 35, 38, 43, 39, 33,
	81, 4, 3, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
}
