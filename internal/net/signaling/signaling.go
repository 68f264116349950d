// Package signaling turns connection offers and answers into compact
// printable blobs that people can paste between peers. Wire format: a one
// byte prefix ('g' gzip, 'p' plain) followed by base64url JSON.
package signaling

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

var ErrFormat = errors.New("signaling: malformed payload")

type PayloadType string

const (
	TypeOffer  PayloadType = "offer"
	TypeAnswer PayloadType = "answer"
)

// Payload is the negotiation message. SDP is the session description; for
// the websocket transport it is the host's dial URL.
type Payload struct {
	Type   PayloadType `json:"type"`
	SDP    string      `json:"sdp"`
	RoomID string      `json:"roomId,omitempty"`
	Seed   string      `json:"seed,omitempty"`
	Token  string      `json:"token,omitempty"`
}

const (
	prefixGzip  = 'g'
	prefixPlain = 'p'
)

// body is the result of the explicit compress-or-not decision, so both
// wire formats stay separately testable.
type body struct {
	prefix byte
	data   []byte
}

func compressBody(raw []byte) body {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err == nil && zw.Close() == nil && buf.Len() < len(raw) {
		return body{prefix: prefixGzip, data: buf.Bytes()}
	}
	return body{prefix: prefixPlain, data: raw}
}

// Encode serialises a payload to its blob form. Compression is applied
// only when it actually shrinks the JSON.
func Encode(p Payload) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	b := compressBody(raw)
	return string(b.prefix) + base64.RawURLEncoding.EncodeToString(b.data), nil
}

// Decode reverses Encode. Unknown prefixes and bodies that do not parse as
// an offer or answer fail with ErrFormat.
func Decode(blob string) (Payload, error) {
	var p Payload
	if len(blob) < 2 {
		return p, ErrFormat
	}
	data, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(blob[1:], "="))
	if err != nil {
		return p, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	switch blob[0] {
	case prefixGzip:
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return p, fmt.Errorf("%w: %v", ErrFormat, err)
		}
		data, err = io.ReadAll(zr)
		if err != nil {
			return p, fmt.Errorf("%w: %v", ErrFormat, err)
		}
	case prefixPlain:
		// data already usable
	default:
		return p, fmt.Errorf("%w: unknown prefix %q", ErrFormat, blob[0])
	}

	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if (p.Type != TypeOffer && p.Type != TypeAnswer) || p.SDP == "" {
		return p, fmt.Errorf("%w: not an offer or answer", ErrFormat)
	}
	return p, nil
}
