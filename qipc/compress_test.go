package qipc

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressRoundTrip(t *testing.T) {
	ones := make([]int64, 10000)
	for i := range ones {
		ones[i] = 1
	}
	msg, err := Marshal(&Vector{Kind: KLong, Data: ones}, MsgResponse)
	require.NoError(t, err)

	body, ok := Compress(msg)
	require.True(t, ok, "10k ones must compress")
	require.Less(t, len(body), len(msg))

	out := Decompress(body, msg[:headerSize])
	assert.Equal(t, msg, out)
}

func TestCompressedFrameDecodes(t *testing.T) {
	ones := make([]int64, 10000)
	for i := range ones {
		ones[i] = 1
	}
	msg, err := Marshal(&Vector{Kind: KLong, Data: ones}, MsgResponse)
	require.NoError(t, err)

	framed := CompressMessage(msg)
	require.NotEqual(t, msg, framed)
	require.Equal(t, byte(1), framed[2], "compression flag set")

	msgType, v, err := Unmarshal(framed)
	require.NoError(t, err)
	assert.Equal(t, MsgResponse, msgType)

	vec := v.(*Vector)
	require.Equal(t, 10000, vec.Len())
	for i := range 10000 {
		require.Equal(t, int64(1), vec.At(i))
	}
}

// TestDecompressLiteralFixture feeds a hand-assembled compressed body with
// no back-references: every control byte is zero, so each token is a
// literal. The decoder must reproduce the original message exactly.
func TestDecompressLiteralFixture(t *testing.T) {
	original, err := Marshal(Symbol("fixture"), MsgResponse)
	require.NoError(t, err)

	payload := original[headerSize:]
	body := make([]byte, 0, 4+len(payload)+len(payload)/8+1)
	body = binary.LittleEndian.AppendUint32(body, uint32(len(original)))
	for i := 0; i < len(payload); i += 8 {
		body = append(body, 0x00) // control byte: 8 literals
		end := min(i+8, len(payload))
		body = append(body, payload[i:end]...)
	}

	out := Decompress(body, original[:headerSize])
	assert.Equal(t, original, out)
}

func TestCompressSmallMessagePasses(t *testing.T) {
	msg, err := Marshal(int64(5), MsgSync)
	require.NoError(t, err)
	_, ok := Compress(msg)
	assert.False(t, ok)
	assert.Equal(t, msg, CompressMessage(msg))
}

func TestCompressIncompressiblePasses(t *testing.T) {
	// A pseudo-random byte vector should not shrink below half size.
	data := make([]byte, 256)
	x := uint32(2463534242)
	for i := range data {
		x ^= x << 13
		x ^= x >> 17
		x ^= x << 5
		data[i] = byte(x)
	}
	msg, err := Marshal(data, MsgSync)
	require.NoError(t, err)
	_, ok := Compress(msg)
	assert.False(t, ok)
}

func TestCompressorRoundTripMixedContent(t *testing.T) {
	table := &Table{
		Cols: []string{"sym", "size"},
		Data: []any{
			&Vector{Kind: KSymbol, Data: repeatSyms("AAPL", 200)},
			&Vector{Kind: KLong, Data: make([]int64, 200)},
		},
	}
	msg, err := Marshal(table, MsgResponse)
	require.NoError(t, err)

	body, ok := Compress(msg)
	require.True(t, ok)
	assert.Equal(t, msg, Decompress(body, msg[:headerSize]))
}

func repeatSyms(s string, n int) []Symbol {
	out := make([]Symbol, n)
	for i := range out {
		out[i] = Symbol(s)
	}
	return out
}
