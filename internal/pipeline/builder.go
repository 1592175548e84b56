// Package pipeline implements pipeline construction.
package pipeline

import (
	"fmt"

	"firestige.xyz/osisim/internal/config"
	"firestige.xyz/osisim/internal/core"
	"firestige.xyz/osisim/internal/core/codec"
)

// Builder provides a fluent interface for building the full seven-layer
// pipeline from a profile plus per-layer overrides.
type Builder struct {
	profile   string
	overrides map[core.Layer]string
	observers []Observer
}

// NewBuilder creates a builder for the binary profile.
func NewBuilder() *Builder {
	return &Builder{
		profile:   codec.ProfileBinary,
		overrides: make(map[core.Layer]string),
	}
}

// FromConfig creates a builder from the stack section of the config.
// Layer keys are expected to be validated already.
func FromConfig(cfg config.StackConfig) *Builder {
	b := NewBuilder().WithProfile(cfg.Profile)
	for key, variant := range cfg.Layers {
		if layer, ok := core.ParseLayer(key); ok {
			b.WithLayer(layer, variant)
		}
	}
	return b
}

// WithProfile selects the base profile.
func (b *Builder) WithProfile(name string) *Builder {
	b.profile = name
	return b
}

// WithLayer installs a specific variant on one layer.
func (b *Builder) WithLayer(layer core.Layer, variant string) *Builder {
	b.overrides[layer] = variant
	return b
}

// WithObservers adds observers to the built pipeline.
func (b *Builder) WithObservers(obs ...Observer) *Builder {
	b.observers = append(b.observers, obs...)
	return b
}

// Build resolves every layer through the codec registry.
func (b *Builder) Build() (*Pipeline, error) {
	variants, err := codec.Profile(b.profile)
	if err != nil {
		return nil, err
	}
	for layer, variant := range b.overrides {
		variants[layer] = variant
	}

	codecs := make([]codec.Codec, 0, len(variants))
	for _, layer := range core.Layers() {
		c, err := codec.Lookup(layer, variants[layer])
		if err != nil {
			return nil, fmt.Errorf("build pipeline: %w", err)
		}
		codecs = append(codecs, c)
	}
	return New(codecs, WithObserver(b.observers...))
}
