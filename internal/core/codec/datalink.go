package codec

import (
	"bytes"
	"fmt"

	"firestige.xyz/osisim/internal/core"
)

const (
	macHeader = "[MAC_HEADER]"
	macFooter = "[MAC_FOOTER]"

	// SenderSeparator ends the sender identifier inside a MAC frame.
	SenderSeparator = "|"
)

// MACFrame is the data link variant that records who sent the frame:
//
//	[MAC_HEADER]<sender>|<payload>[MAC_FOOTER]
//
// The sender identifier is not validated. Decode splits on the first
// separator, so an identifier containing "|" shifts the split point.
type MACFrame struct{}

func init() {
	MustRegister(core.DataLink, "mac", func() Codec { return MACFrame{} })
}

func (MACFrame) Layer() core.Layer { return core.DataLink }
func (MACFrame) Name() string      { return "mac" }

// Encode frames the payload with the default sender identifier.
func (c MACFrame) Encode(p core.Payload) (core.Payload, error) {
	return c.EncodeWithMetadata(p, core.Metadata{})
}

func (MACFrame) EncodeWithMetadata(p core.Payload, md core.Metadata) (core.Payload, error) {
	data, err := p.Bytes()
	if err != nil {
		return core.Payload{}, err
	}

	sender := md.SenderID
	if sender == "" {
		sender = core.DefaultSenderID
	}

	body := make([]byte, 0, len(sender)+len(SenderSeparator)+len(data))
	body = append(body, sender...)
	body = append(body, SenderSeparator...)
	body = append(body, data...)
	return core.BytesPayload(wrap([]byte(macHeader), body, []byte(macFooter))), nil
}

func (c MACFrame) Decode(p core.Payload) (core.Payload, error) {
	_, data, err := c.DecodeFrame(p)
	if err != nil {
		return core.Payload{}, err
	}
	return core.BytesPayload(data), nil
}

// DecodeFrame strips the markers and returns the sender and the payload.
func (MACFrame) DecodeFrame(p core.Payload) (string, []byte, error) {
	data, err := p.Bytes()
	if err != nil {
		return "", nil, err
	}
	body, err := unwrap([]byte(macHeader), data, []byte(macFooter))
	if err != nil {
		return "", nil, err
	}

	sender, payload, found := bytes.Cut(body, []byte(SenderSeparator))
	if !found {
		return "", nil, fmt.Errorf("%w: missing sender separator", core.ErrMalformedFrame)
	}
	return string(sender), payload, nil
}
