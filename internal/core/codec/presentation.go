package codec

import (
	"encoding/base64"
	"fmt"
	"math"
	"unicode/utf8"

	"firestige.xyz/osisim/internal/core"
)

// Envelope keys. Every presentation format writes the same two-key
// document so Decode knows which payload kind to rebuild.
const (
	envelopeKind    = "kind"
	envelopeMessage = "message"
)

// Format serializes a presentation envelope into a self-describing
// byte sequence and back.
type Format interface {
	Name() string
	Marshal(env map[string]any) ([]byte, error)
	Unmarshal(data []byte) (map[string]any, error)
}

// Presentation serializes any payload kind into bytes using a Format.
type Presentation struct {
	format Format
}

func init() {
	for _, f := range []Format{JSONFormat{}, YAMLFormat{}, TOMLFormat{}, ProtobufFormat{}} {
		MustRegister(core.Presentation, f.Name(), func() Codec { return NewPresentation(f) })
	}
}

// NewPresentation creates a presentation codec serializing through f.
func NewPresentation(f Format) Presentation {
	return Presentation{format: f}
}

func (Presentation) Layer() core.Layer { return core.Presentation }
func (c Presentation) Name() string    { return c.format.Name() }

func (c Presentation) Encode(p core.Payload) (core.Payload, error) {
	var message any
	switch p.Kind() {
	case core.KindText:
		message, _ = p.Text()
	case core.KindBytes:
		b, _ := p.Bytes()
		message = base64.StdEncoding.EncodeToString(b)
	case core.KindStructured:
		message, _ = p.Value()
	default:
		return core.Payload{}, fmt.Errorf("%w: payload kind %s", core.ErrUnsupportedInput, p.Kind())
	}
	if err := checkSerializable(message); err != nil {
		return core.Payload{}, err
	}

	env := map[string]any{
		envelopeKind:    p.Kind().String(),
		envelopeMessage: message,
	}
	data, err := c.format.Marshal(env)
	if err != nil {
		return core.Payload{}, fmt.Errorf("%w: %s: %v", core.ErrUnsupportedInput, c.format.Name(), err)
	}
	return core.BytesPayload(data), nil
}

func (c Presentation) Decode(p core.Payload) (core.Payload, error) {
	data, err := p.Bytes()
	if err != nil {
		return core.Payload{}, err
	}

	env, err := c.format.Unmarshal(data)
	if err != nil {
		return core.Payload{}, fmt.Errorf("%w: %s: %v", core.ErrDecode, c.format.Name(), err)
	}
	if len(env) != 2 {
		return core.Payload{}, fmt.Errorf("%w: %s: envelope has %d keys, want 2", core.ErrDecode, c.format.Name(), len(env))
	}
	kind, _ := env[envelopeKind].(string)
	message, ok := env[envelopeMessage]
	if !ok {
		return core.Payload{}, fmt.Errorf("%w: %s: envelope has no %q", core.ErrDecode, c.format.Name(), envelopeMessage)
	}

	switch kind {
	case core.KindText.String():
		s, ok := message.(string)
		if !ok {
			return core.Payload{}, fmt.Errorf("%w: text message is %T", core.ErrDecode, message)
		}
		return core.TextPayload(s), nil
	case core.KindBytes.String():
		s, ok := message.(string)
		if !ok {
			return core.Payload{}, fmt.Errorf("%w: bytes message is %T", core.ErrDecode, message)
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return core.Payload{}, fmt.Errorf("%w: bytes message: %v", core.ErrDecode, err)
		}
		return core.BytesPayload(b), nil
	case core.KindStructured.String():
		out, err := core.StructuredPayload(message)
		if err != nil {
			return core.Payload{}, fmt.Errorf("%w: %v", core.ErrDecode, err)
		}
		return out, nil
	default:
		return core.Payload{}, fmt.Errorf("%w: %s: unknown kind %q", core.ErrDecode, c.format.Name(), kind)
	}
}

// checkSerializable rejects values no format can carry losslessly:
// strings that are not valid UTF-8 and non-finite floats.
func checkSerializable(v any) error {
	switch t := v.(type) {
	case string:
		if !utf8.ValidString(t) {
			return fmt.Errorf("%w: string is not valid UTF-8", core.ErrUnsupportedInput)
		}
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return fmt.Errorf("%w: non-finite number %v", core.ErrUnsupportedInput, t)
		}
	case []any:
		for _, e := range t {
			if err := checkSerializable(e); err != nil {
				return err
			}
		}
	case map[string]any:
		for k, e := range t {
			if err := checkSerializable(k); err != nil {
				return err
			}
			if err := checkSerializable(e); err != nil {
				return err
			}
		}
	}
	return nil
}
