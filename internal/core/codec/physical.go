package codec

import (
	"fmt"

	"firestige.xyz/osisim/internal/core"
)

// Bits is the physical layer: every byte becomes eight ASCII '0'/'1'
// characters, most significant bit first.
type Bits struct{}

func init() {
	MustRegister(core.Physical, "bits", func() Codec { return Bits{} })
}

func (Bits) Layer() core.Layer { return core.Physical }
func (Bits) Name() string      { return "bits" }

func (Bits) Encode(p core.Payload) (core.Payload, error) {
	data, err := p.Bytes()
	if err != nil {
		return core.Payload{}, err
	}

	out := make([]byte, 0, len(data)*8)
	for _, b := range data {
		for shift := 7; shift >= 0; shift-- {
			out = append(out, '0'+(b>>shift)&1)
		}
	}
	return core.BytesPayload(out), nil
}

func (Bits) Decode(p core.Payload) (core.Payload, error) {
	bits, err := p.Bytes()
	if err != nil {
		return core.Payload{}, err
	}
	if len(bits)%8 != 0 {
		return core.Payload{}, fmt.Errorf("%w: bit string length %d is not a multiple of 8", core.ErrMalformedFrame, len(bits))
	}

	out := make([]byte, len(bits)/8)
	for i := range out {
		var b byte
		for _, c := range bits[i*8 : i*8+8] {
			switch c {
			case '0':
				b <<= 1
			case '1':
				b = b<<1 | 1
			default:
				return core.Payload{}, fmt.Errorf("%w: invalid bit %q at byte %d", core.ErrMalformedFrame, c, i)
			}
		}
		out[i] = b
	}
	return core.BytesPayload(out), nil
}
