package parse

import (
	"encoding/binary"
	"iter"
)

// Packets splits a capture buffer into its length prefixed payloads.
// Each record is a 4 byte little endian length followed by that many
// payload bytes. The sequence ends at the first inconsistency: a
// trailing partial header or a declared length exceeding the remaining
// buffer. Payloads alias the input buffer.
func Packets(buf []byte) iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		offset := 0
		for offset+4 <= len(buf) {
			length := int(binary.LittleEndian.Uint32(buf[offset:]))
			offset += 4
			if offset+length > len(buf) {
				return
			}
			if !yield(buf[offset : offset+length]) {
				return
			}
			offset += length
		}
	}
}
