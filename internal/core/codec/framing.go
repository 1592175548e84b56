package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"firestige.xyz/osisim/internal/core"
)

// lengthPrefixLen is the width of the big-endian length field.
const lengthPrefixLen = 4

// LengthPrefix frames a payload as a 4-byte big-endian length followed by
// the payload. It is binary safe; bytes after the declared length are
// ignored on decode.
type LengthPrefix struct {
	layer core.Layer
}

// Marker frames a payload between fixed start and end tokens. Decode cuts
// at the first end token, so a payload that itself contains the end token
// comes back truncated.
type Marker struct {
	layer core.Layer
	start []byte
	end   []byte
}

func init() {
	MustRegister(core.Network, "length", func() Codec { return NewLengthPrefix(core.Network) })
	MustRegister(core.Transport, "length", func() Codec { return NewLengthPrefix(core.Transport) })

	MustRegister(core.Network, "marker", func() Codec {
		return NewMarker(core.Network, "[NETWORK_START]", "[NETWORK_END]")
	})
	MustRegister(core.Transport, "marker", func() Codec {
		return NewMarker(core.Transport, "[TRANSPORT_START]", "[TRANSPORT_END]")
	})
	MustRegister(core.Session, "marker", func() Codec {
		return NewMarker(core.Session, "[SESSION_START]", "[SESSION_END]")
	})
	MustRegister(core.DataLink, "marker", func() Codec {
		return NewMarker(core.DataLink, macHeader, macFooter)
	})
}

// NewLengthPrefix creates a length-prefix codec for layer.
func NewLengthPrefix(layer core.Layer) LengthPrefix {
	return LengthPrefix{layer: layer}
}

func (c LengthPrefix) Layer() core.Layer { return c.layer }
func (LengthPrefix) Name() string        { return "length" }

func (c LengthPrefix) Encode(p core.Payload) (core.Payload, error) {
	data, err := p.Bytes()
	if err != nil {
		return core.Payload{}, err
	}
	if uint64(len(data)) > math.MaxUint32 {
		return core.Payload{}, fmt.Errorf("%w: payload of %d bytes exceeds length prefix", core.ErrUnsupportedInput, len(data))
	}

	out := make([]byte, lengthPrefixLen+len(data))
	binary.BigEndian.PutUint32(out[:lengthPrefixLen], uint32(len(data)))
	copy(out[lengthPrefixLen:], data)
	return core.BytesPayload(out), nil
}

func (c LengthPrefix) Decode(p core.Payload) (core.Payload, error) {
	data, err := p.Bytes()
	if err != nil {
		return core.Payload{}, err
	}
	if len(data) < lengthPrefixLen {
		return core.Payload{}, fmt.Errorf("%w: truncated length prefix (%d bytes)", core.ErrMalformedFrame, len(data))
	}

	declared := uint64(binary.BigEndian.Uint32(data[:lengthPrefixLen]))
	available := uint64(len(data) - lengthPrefixLen)
	if declared > available {
		return core.Payload{}, fmt.Errorf("%w: declared length %d exceeds %d available bytes", core.ErrMalformedFrame, declared, available)
	}

	out := make([]byte, declared)
	copy(out, data[lengthPrefixLen:])
	return core.BytesPayload(out), nil
}

// NewMarker creates a marker codec framing payloads between start and end.
func NewMarker(layer core.Layer, start, end string) Marker {
	return Marker{layer: layer, start: []byte(start), end: []byte(end)}
}

func (c Marker) Layer() core.Layer { return c.layer }
func (Marker) Name() string        { return "marker" }

func (c Marker) Encode(p core.Payload) (core.Payload, error) {
	data, err := p.Bytes()
	if err != nil {
		return core.Payload{}, err
	}
	return core.BytesPayload(wrap(c.start, data, c.end)), nil
}

func (c Marker) Decode(p core.Payload) (core.Payload, error) {
	data, err := p.Bytes()
	if err != nil {
		return core.Payload{}, err
	}
	inner, err := unwrap(c.start, data, c.end)
	if err != nil {
		return core.Payload{}, err
	}
	return core.BytesPayload(inner), nil
}

func wrap(start, data, end []byte) []byte {
	out := make([]byte, 0, len(start)+len(data)+len(end))
	out = append(out, start...)
	out = append(out, data...)
	return append(out, end...)
}

// unwrap returns a copy of the bytes between start and the first end token.
func unwrap(start, data, end []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, start) {
		return nil, fmt.Errorf("%w: missing %q", core.ErrMalformedFrame, start)
	}
	rest := data[len(start):]
	idx := bytes.Index(rest, end)
	if idx < 0 {
		return nil, fmt.Errorf("%w: missing %q", core.ErrMalformedFrame, end)
	}
	return bytes.Clone(rest[:idx]), nil
}
