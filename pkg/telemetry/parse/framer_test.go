package parse

import (
	"encoding/binary"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func frameUp(payloads ...[]byte) []byte {
	buf := make([]byte, 0)
	for _, p := range payloads {
		var hdr [4]byte
		binary.LittleEndian.PutUint32(hdr[:], uint32(len(p)))
		buf = append(buf, hdr[:]...)
		buf = append(buf, p...)
	}
	return buf
}

func collect(buf []byte) [][]byte {
	got := make([][]byte, 0)
	for p := range Packets(buf) {
		got = append(got, p)
	}
	return got
}

func TestPackets(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		want [][]byte
	}{
		{
			name: "empty",
			buf:  nil,
			want: [][]byte{},
		},
		{
			name: "single",
			buf:  frameUp([]byte{0xAA, 0xBB}),
			want: [][]byte{{0xAA, 0xBB}},
		},
		{
			name: "zero length payload",
			buf:  frameUp([]byte{}, []byte{0x01}),
			want: [][]byte{{}, {0x01}},
		},
		{
			name: "trailing partial header",
			buf:  append(frameUp([]byte{0x01, 0x02}), 0x03, 0x00),
			want: [][]byte{{0x01, 0x02}},
		},
		{
			name: "declared length exceeds buffer",
			buf:  append(frameUp([]byte{0x01}), 0xFF, 0x00, 0x00, 0x00, 0xAA),
			want: [][]byte{{0x01}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := collect(tt.buf)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Packets() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// concatenating [len][payload] records and re-framing must reproduce
// the original payload sequence exactly.
func TestPacketsRoundTrip(t *testing.T) {
	payloads := [][]byte{
		{},
		{0x00},
		{0x01, 0x02, 0x03},
		make([]byte, 600),
		{0xFF},
	}
	got := collect(frameUp(payloads...))
	if diff := cmp.Diff(payloads, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
