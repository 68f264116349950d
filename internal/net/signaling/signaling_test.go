package signaling

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := Payload{
		Type:   TypeOffer,
		SDP:    "ws://127.0.0.1:8080/ws",
		RoomID: "123456",
		Seed:   "987654",
		Token:  "tok",
	}
	blob, err := Encode(in)
	assert.NoError(t, err)

	out, err := Decode(blob)
	assert.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestEncodeShortPayloadStaysPlain(t *testing.T) {
	blob, err := Encode(Payload{Type: TypeAnswer, SDP: "x"})
	assert.NoError(t, err)
	// gzip overhead exceeds any gain on a payload this small
	assert.Equal(t, byte('p'), blob[0])

	out, err := Decode(blob)
	assert.NoError(t, err)
	assert.Equal(t, TypeAnswer, out.Type)
	assert.Equal(t, "x", out.SDP)
}

func TestEncodeLargePayloadCompresses(t *testing.T) {
	in := Payload{Type: TypeOffer, SDP: strings.Repeat("candidate line\n", 200)}
	blob, err := Encode(in)
	assert.NoError(t, err)
	assert.Equal(t, byte('g'), blob[0])

	out, err := Decode(blob)
	assert.NoError(t, err)
	assert.Equal(t, in.SDP, out.SDP)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	cases := []string{
		"",
		"g",
		"zAAAA",                   // unknown prefix
		"p%%%not-base64%%%",       // bad encoding
		"g" + "AAAA",              // not a gzip stream
		"p" + "e30",               // "{}": no type, no sdp
	}
	for _, blob := range cases {
		_, err := Decode(blob)
		assert.ErrorIs(t, err, ErrFormat, "blob %q", blob)
	}
}

func TestDecodeRejectsWrongType(t *testing.T) {
	blob, err := Encode(Payload{Type: "renegotiate", SDP: "x"})
	assert.NoError(t, err)
	_, err = Decode(blob)
	assert.ErrorIs(t, err, ErrFormat)
}

func TestDecodeToleratesPadding(t *testing.T) {
	blob, err := Encode(Payload{Type: TypeOffer, SDP: "ws://h/ws"})
	assert.NoError(t, err)
	out, err := Decode(blob + "==")
	assert.NoError(t, err)
	assert.Equal(t, "ws://h/ws", out.SDP)
}
