// Package pipeline runs a payload through an ordered stack of codecs.
package pipeline

import (
	"errors"
	"fmt"

	"firestige.xyz/osisim/internal/core"
	"firestige.xyz/osisim/internal/core/codec"
)

// ErrInvalidStack is returned by New when the codec list is not a
// strictly top-down sequence of layers.
var ErrInvalidStack = errors.New("pipeline: invalid codec stack")

// Pipeline holds an immutable, top-down list of codecs. Send walks it
// from Application to Physical, Receive walks it back. A Pipeline is safe
// for concurrent use: codecs are stateless and every call allocates its
// own intermediate frames.
type Pipeline struct {
	codecs    []codec.Codec
	observers []Observer
	metrics   *Metrics
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithObserver adds observers notified after every codec step.
func WithObserver(obs ...Observer) Option {
	return func(p *Pipeline) {
		for _, o := range obs {
			if o != nil {
				p.observers = append(p.observers, o)
			}
		}
	}
}

// New creates a pipeline. codecs must be ordered top-down with strictly
// descending layers.
func New(codecs []codec.Codec, opts ...Option) (*Pipeline, error) {
	if len(codecs) == 0 {
		return nil, fmt.Errorf("%w: no codecs", ErrInvalidStack)
	}
	for i, c := range codecs {
		if c == nil || !c.Layer().Valid() {
			return nil, fmt.Errorf("%w: codec %d has no valid layer", ErrInvalidStack, i)
		}
		if i > 0 && c.Layer() >= codecs[i-1].Layer() {
			return nil, fmt.Errorf("%w: %s placed below %s", ErrInvalidStack, codecs[i-1].Layer(), c.Layer())
		}
	}

	p := &Pipeline{
		codecs:  append([]codec.Codec(nil), codecs...),
		metrics: &Metrics{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Send encodes payload top-down and returns the wire-level bytes. md is
// handed only to codecs implementing codec.MetadataEncoder.
func (p *Pipeline) Send(payload core.Payload, md core.Metadata) ([]byte, error) {
	cur := payload
	for _, c := range p.codecs {
		var (
			next core.Payload
			err  error
		)
		if me, ok := c.(codec.MetadataEncoder); ok {
			next, err = me.EncodeWithMetadata(cur, md)
		} else {
			next, err = c.Encode(cur)
		}
		if err != nil {
			p.metrics.EncodeErrors.Add(1)
			return nil, p.fail(c, core.Sending, err)
		}
		p.emit(Event{Layer: c.Layer(), Direction: core.Sending, Codec: c.Name(), Value: next})
		cur = next
	}

	wire, err := cur.Bytes()
	if err != nil {
		p.metrics.EncodeErrors.Add(1)
		return nil, p.fail(p.codecs[len(p.codecs)-1], core.Sending, err)
	}
	p.metrics.Sent.Add(1)
	return wire, nil
}

// Receive decodes wire bytes bottom-up and returns the value rebuilt by
// the topmost codec.
func (p *Pipeline) Receive(wire []byte) (core.Payload, error) {
	cur := core.BytesPayload(wire)
	for i := len(p.codecs) - 1; i >= 0; i-- {
		c := p.codecs[i]
		next, err := c.Decode(cur)
		if err != nil {
			p.metrics.DecodeErrors.Add(1)
			return core.Payload{}, p.fail(c, core.Receiving, err)
		}
		p.emit(Event{Layer: c.Layer(), Direction: core.Receiving, Codec: c.Name(), Value: next})
		cur = next
	}
	p.metrics.Received.Add(1)
	return cur, nil
}

// Layers describes the installed stack top-down as "layer/variant".
func (p *Pipeline) Layers() []string {
	out := make([]string, len(p.codecs))
	for i, c := range p.codecs {
		out[i] = c.Layer().Key() + "/" + c.Name()
	}
	return out
}

// Metrics returns the pipeline counters.
func (p *Pipeline) Metrics() *Metrics {
	return p.metrics
}

func (p *Pipeline) fail(c codec.Codec, dir core.Direction, err error) error {
	le := &core.LayerError{Layer: c.Layer(), Direction: dir, Codec: c.Name(), Err: err}
	p.emit(Event{Layer: c.Layer(), Direction: dir, Codec: c.Name(), Err: le})
	return le
}

func (p *Pipeline) emit(e Event) {
	for _, o := range p.observers {
		o.Observe(e)
	}
}
