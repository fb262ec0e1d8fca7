package framing

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPush(t *testing.T) {
	tests := []struct {
		name    string
		chunks  []string
		want    []string
		pending string
	}{
		{
			name:   "single complete line",
			chunks: []string{"LPN-00123\n"},
			want:   []string{"LPN-00123"},
		},
		{
			name:   "crlf terminator",
			chunks: []string{"LPN-00123\r\n"},
			want:   []string{"LPN-00123"},
		},
		{
			name:   "bare cr terminator",
			chunks: []string{"LPN-00123\r"},
			want:   []string{"LPN-00123"},
		},
		{
			name:   "multiple lines in one chunk",
			chunks: []string{"AAA\nBBB\nCCC\n"},
			want:   []string{"AAA", "BBB", "CCC"},
		},
		{
			name:    "split mid barcode",
			chunks:  []string{"LPN-00", "123\n"},
			want:    []string{"LPN-00123"},
			pending: "",
		},
		{
			name:    "terminator arrives alone",
			chunks:  []string{"LPN-00123", "\n"},
			want:    []string{"LPN-00123"},
			pending: "",
		},
		{
			name:    "no terminator keeps accumulating",
			chunks:  []string{"LPN-", "00123"},
			want:    nil,
			pending: "LPN-00123",
		},
		{
			name:   "surrounding whitespace trimmed",
			chunks: []string{"  LPN-00123  \n"},
			want:   []string{"LPN-00123"},
		},
		{
			name:   "blank lines dropped",
			chunks: []string{"\n\n  \nAAA\n\n"},
			want:   []string{"AAA"},
		},
		{
			name:   "crlf does not produce empty line",
			chunks: []string{"AAA\r\nBBB\r\n"},
			want:   []string{"AAA", "BBB"},
		},
		{
			name:   "empty chunk is a no-op",
			chunks: []string{"", "AAA\n", ""},
			want:   []string{"AAA"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New()
			var got []string
			for _, chunk := range tt.chunks {
				got = append(got, f.Push(chunk)...)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.pending, f.Pending())
		})
	}
}

// The framed output must not depend on where the stream was split into
// chunks.
func TestPushChunkingInvariance(t *testing.T) {
	stream := "LPN-001\r\nTAG-77\nBIN-A4\r  X9\n\nLPN-002\r\n"
	want := []string{"LPN-001", "TAG-77", "BIN-A4", "X9", "LPN-002"}

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 100; i++ {
		f := New()
		var got []string

		rest := stream
		for len(rest) > 0 {
			n := 1 + rng.Intn(len(rest))
			got = append(got, f.Push(rest[:n])...)
			rest = rest[n:]
		}

		require.Equal(t, want, got, "rechunking changed the framed output")
		require.Empty(t, f.Pending())
	}
}

func TestReset(t *testing.T) {
	f := New()
	f.Push("LPN-00")
	require.Equal(t, "LPN-00", f.Pending())

	f.Reset()
	assert.Empty(t, f.Pending())

	// The half-read prefix must not leak into the next line
	got := f.Push("123\n")
	assert.Equal(t, []string{"123"}, got)
}

func TestPushLongAccumulation(t *testing.T) {
	f := New()
	piece := strings.Repeat("A", 64)
	for i := 0; i < 10; i++ {
		require.Empty(t, f.Push(piece))
	}
	got := f.Push("\n")
	require.Len(t, got, 1)
	assert.Equal(t, strings.Repeat("A", 640), got[0])
}
