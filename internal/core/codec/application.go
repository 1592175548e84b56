package codec

import "firestige.xyz/osisim/internal/core"

// Identity is the application layer: caller data enters and leaves the
// stack here untouched.
type Identity struct{}

func init() {
	MustRegister(core.Application, "identity", func() Codec { return Identity{} })
}

func (Identity) Layer() core.Layer                           { return core.Application }
func (Identity) Name() string                                { return "identity" }
func (Identity) Encode(p core.Payload) (core.Payload, error) { return p, nil }
func (Identity) Decode(p core.Payload) (core.Payload, error) { return p, nil }
