// Package codec implements the per-layer encode/decode transforms.
//
// Every codec is a stateless value: Decode(Encode(p)) returns p for every
// payload the codec accepts. Codecs are looked up by layer and variant name
// through the registry so a pipeline can be assembled from configuration.
package codec

import (
	"fmt"
	"sort"
	"sync"

	"firestige.xyz/osisim/internal/core"
)

// Codec transforms a payload for one layer.
type Codec interface {
	// Layer is the layer this codec sits on.
	Layer() core.Layer

	// Name is the variant name, unique within the layer.
	Name() string

	// Encode wraps a payload on its way down the stack.
	Encode(p core.Payload) (core.Payload, error)

	// Decode unwraps a payload on its way up the stack. It must only be
	// fed output produced by the matching Encode.
	Decode(p core.Payload) (core.Payload, error)
}

// MetadataEncoder is implemented by codecs that embed encode-time context
// such as the sender identifier into their frame.
type MetadataEncoder interface {
	EncodeWithMetadata(p core.Payload, md core.Metadata) (core.Payload, error)
}

// Factory builds a codec instance.
type Factory func() Codec

type registry struct {
	mu        sync.RWMutex
	factories map[core.Layer]map[string]Factory
}

var reg = &registry{factories: make(map[core.Layer]map[string]Factory)}

// Register adds a variant for a layer. Registering a name twice fails.
func Register(layer core.Layer, name string, f Factory) error {
	if !layer.Valid() {
		return fmt.Errorf("codec %q: invalid layer %d", name, layer)
	}
	if name == "" || f == nil {
		return fmt.Errorf("codec for %s: name and factory are required", layer)
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	byName, ok := reg.factories[layer]
	if !ok {
		byName = make(map[string]Factory)
		reg.factories[layer] = byName
	}
	if _, exists := byName[name]; exists {
		return fmt.Errorf("codec '%s' already registered for %s", name, layer)
	}
	byName[name] = f
	return nil
}

// MustRegister is Register for init functions.
func MustRegister(layer core.Layer, name string, f Factory) {
	if err := Register(layer, name, f); err != nil {
		panic(err)
	}
}

// Lookup returns a new instance of the named variant.
func Lookup(layer core.Layer, name string) (Codec, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	f, ok := reg.factories[layer][name]
	if !ok {
		return nil, fmt.Errorf("codec '%s' not found for %s", name, layer)
	}
	return f(), nil
}

// Variants lists the registered variant names of a layer, sorted.
func Variants(layer core.Layer) []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	names := make([]string, 0, len(reg.factories[layer]))
	for name := range reg.factories[layer] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Profile names.
const (
	ProfileBinary = "binary"
	ProfileMarker = "marker"
	ProfileMAC    = "mac"
)

var profiles = map[string]map[core.Layer]string{
	ProfileBinary: {
		core.Application:  "identity",
		core.Presentation: "json",
		core.Session:      "marker",
		core.Transport:    "length",
		core.Network:      "length",
		core.DataLink:     "marker",
		core.Physical:     "bits",
	},
	ProfileMarker: {
		core.Application:  "identity",
		core.Presentation: "json",
		core.Session:      "marker",
		core.Transport:    "marker",
		core.Network:      "marker",
		core.DataLink:     "marker",
		core.Physical:     "bits",
	},
	ProfileMAC: {
		core.Application:  "identity",
		core.Presentation: "json",
		core.Session:      "marker",
		core.Transport:    "length",
		core.Network:      "length",
		core.DataLink:     "mac",
		core.Physical:     "bits",
	},
}

// Profile returns a copy of the per-layer variant selection of a profile.
func Profile(name string) (map[core.Layer]string, error) {
	p, ok := profiles[name]
	if !ok {
		return nil, fmt.Errorf("unknown profile '%s' (must be one of %v)", name, Profiles())
	}
	out := make(map[core.Layer]string, len(p))
	for l, v := range p {
		out[l] = v
	}
	return out, nil
}

// Profiles lists the profile names, sorted.
func Profiles() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
