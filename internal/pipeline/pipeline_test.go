package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"firestige.xyz/osisim/internal/config"
	"firestige.xyz/osisim/internal/core"
	"firestige.xyz/osisim/internal/core/codec"
)

// recorder collects events for inspection.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Observe(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) byDirection(dir core.Direction) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Direction == dir {
			out = append(out, e)
		}
	}
	return out
}

type mockObserver struct {
	mock.Mock
}

func (m *mockObserver) Observe(e Event) {
	m.Called(e)
}

func mustBuild(t *testing.T, b *Builder) *Pipeline {
	t.Helper()
	p, err := b.Build()
	require.NoError(t, err)
	return p
}

func TestRoundTripAllProfiles(t *testing.T) {
	for _, profile := range codec.Profiles() {
		for _, format := range codec.Variants(core.Presentation) {
			t.Run(profile+"/"+format, func(t *testing.T) {
				p := mustBuild(t, NewBuilder().WithProfile(profile).WithLayer(core.Presentation, format))

				wire, err := p.Send(core.TextPayload("Hello, World!"), core.Metadata{})
				require.NoError(t, err)
				assert.NotEmpty(t, wire)
				assert.Equal(t, 0, len(wire)%8)

				got, err := p.Receive(wire)
				require.NoError(t, err)
				assert.Equal(t, core.KindText, got.Kind())
				text, err := got.Text()
				require.NoError(t, err)
				assert.Equal(t, "Hello, World!", text)
			})
		}
	}
}

func TestRoundTripPayloadKinds(t *testing.T) {
	structured, err := core.StructuredPayload(map[string]any{
		"id":   7,
		"tags": []string{"a", "b"},
		"meta": map[string]any{"ok": true, "none": nil},
	})
	require.NoError(t, err)

	payloads := map[string]core.Payload{
		"empty text": core.TextPayload(""),
		"unicode":    core.TextPayload("héllo\n世界 [SESSION_START]"),
		"binary":     core.BytesPayload([]byte{0x00, 0xff, 0x10, 0x80}),
		"structured": structured,
	}

	p := mustBuild(t, NewBuilder())
	for name, payload := range payloads {
		t.Run(name, func(t *testing.T) {
			wire, err := p.Send(payload, core.Metadata{})
			require.NoError(t, err)
			got, err := p.Receive(wire)
			require.NoError(t, err)
			assert.True(t, payload.Equal(got), "got %v want %v", got, payload)
		})
	}
}

func TestWireIsBitString(t *testing.T) {
	p := mustBuild(t, NewBuilder())
	wire, err := p.Send(core.TextPayload("Hello, World!"), core.Metadata{})
	require.NoError(t, err)
	assert.Empty(t, strings.Trim(string(wire), "01"))
}

func TestEventsPerDirection(t *testing.T) {
	rec := &recorder{}
	p := mustBuild(t, NewBuilder().WithObservers(rec))

	wire, err := p.Send(core.TextPayload("Hello, World!"), core.Metadata{})
	require.NoError(t, err)
	_, err = p.Receive(wire)
	require.NoError(t, err)

	sending := rec.byDirection(core.Sending)
	receiving := rec.byDirection(core.Receiving)
	require.Len(t, sending, 7)
	require.Len(t, receiving, 7)

	for i, layer := range core.Layers() {
		assert.Equal(t, layer, sending[i].Layer)
		assert.Equal(t, layer, receiving[len(receiving)-1-i].Layer)
		assert.NoError(t, sending[i].Err)
	}

	// The last Sending event carries the wire bytes.
	last, err := sending[6].Value.Bytes()
	require.NoError(t, err)
	assert.Equal(t, wire, last)
}

func TestObserverCalledOncePerLayer(t *testing.T) {
	obs := new(mockObserver)
	for _, layer := range core.Layers() {
		obs.On("Observe", mock.MatchedBy(func(e Event) bool {
			return e.Layer == layer && e.Direction == core.Sending && e.Err == nil
		})).Return().Once()
	}
	p := mustBuild(t, NewBuilder().WithObservers(obs))

	_, err := p.Send(core.TextPayload("Hello, World!"), core.Metadata{})
	require.NoError(t, err)
	obs.AssertExpectations(t)
}

func TestDataLinkFrameCarriesMACMarkers(t *testing.T) {
	for _, profile := range codec.Profiles() {
		t.Run(profile, func(t *testing.T) {
			rec := &recorder{}
			p := mustBuild(t, NewBuilder().WithProfile(profile).WithObservers(rec))

			_, err := p.Send(core.TextPayload("Hello, World!"), core.Metadata{})
			require.NoError(t, err)

			var frame []byte
			for _, e := range rec.byDirection(core.Sending) {
				if e.Layer == core.DataLink {
					frame, err = e.Value.Bytes()
					require.NoError(t, err)
				}
			}
			assert.True(t, bytes.HasPrefix(frame, []byte("[MAC_HEADER]")))
			assert.True(t, bytes.HasSuffix(frame, []byte("[MAC_FOOTER]")))
		})
	}
}

func TestSenderMetadataReachesDataLink(t *testing.T) {
	rec := &recorder{}
	p := mustBuild(t, NewBuilder().WithProfile(codec.ProfileMAC).WithObservers(rec))

	wire, err := p.Send(core.TextPayload("hi"), core.Metadata{SenderID: "aa:bb:cc:dd:ee:ff"})
	require.NoError(t, err)

	for _, e := range rec.byDirection(core.Sending) {
		if e.Layer == core.DataLink {
			frame, err := e.Value.Bytes()
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(frame, []byte("[MAC_HEADER]aa:bb:cc:dd:ee:ff|")))
		}
	}

	got, err := p.Receive(wire)
	require.NoError(t, err)
	assert.Equal(t, "hi", got.String())
}

func TestMetadataIgnoredByPlainCodecs(t *testing.T) {
	p := mustBuild(t, NewBuilder())

	a, err := p.Send(core.TextPayload("same"), core.Metadata{})
	require.NoError(t, err)
	b, err := p.Send(core.TextPayload("same"), core.Metadata{SenderID: "11:22:33:44:55:66"})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestNewInvalidStack(t *testing.T) {
	bits := codec.Bits{}
	length := codec.NewLengthPrefix(core.Transport)

	tests := []struct {
		name   string
		codecs []codec.Codec
	}{
		{"empty", nil},
		{"nil codec", []codec.Codec{nil}},
		{"ascending", []codec.Codec{bits, length}},
		{"duplicate layer", []codec.Codec{length, codec.NewMarker(core.Transport, "<", ">")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.codecs)
			assert.ErrorIs(t, err, ErrInvalidStack)
		})
	}
}

func TestPartialStack(t *testing.T) {
	p, err := New([]codec.Codec{codec.NewLengthPrefix(core.Transport), codec.Bits{}})
	require.NoError(t, err)
	assert.Equal(t, []string{"transport/length", "physical/bits"}, p.Layers())

	wire, err := p.Send(core.BytesPayload([]byte("raw")), core.Metadata{})
	require.NoError(t, err)
	got, err := p.Receive(wire)
	require.NoError(t, err)
	assert.Equal(t, "raw", string(mustBytes(t, got)))
}

func TestSendRequiresBytesAtBottom(t *testing.T) {
	p, err := New([]codec.Codec{codec.Identity{}})
	require.NoError(t, err)

	_, err = p.Send(core.TextPayload("text"), core.Metadata{})
	var le *core.LayerError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, core.Application, le.Layer)
	assert.ErrorIs(t, err, core.ErrUnsupportedInput)
}

func TestSendErrorWrapped(t *testing.T) {
	rec := &recorder{}
	p := mustBuild(t, NewBuilder().WithObservers(rec))

	payload, err := core.StructuredPayload(map[string]any{"x": math.NaN()})
	require.NoError(t, err)

	_, err = p.Send(payload, core.Metadata{})
	var le *core.LayerError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, core.Presentation, le.Layer)
	assert.Equal(t, core.Sending, le.Direction)
	assert.ErrorIs(t, err, core.ErrUnsupportedInput)
	assert.Equal(t, uint64(1), p.Metrics().Snapshot().EncodeErrors)

	sending := rec.byDirection(core.Sending)
	require.Len(t, sending, 2)
	assert.Error(t, sending[1].Err)
}

func TestReceiveMalformed(t *testing.T) {
	p := mustBuild(t, NewBuilder())

	tests := []struct {
		name  string
		wire  []byte
		layer core.Layer
		want  error
	}{
		{"odd bit count", []byte("0101"), core.Physical, core.ErrMalformedFrame},
		{"not bits", []byte("0101010x"), core.Physical, core.ErrMalformedFrame},
		{"missing mac header", bitsOf("hello"), core.DataLink, core.ErrMalformedFrame},
		{"short length prefix", bitsOf("[MAC_HEADER]ab[MAC_FOOTER]"), core.Network, core.ErrMalformedFrame},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Receive(tt.wire)
			var le *core.LayerError
			require.ErrorAs(t, err, &le)
			assert.Equal(t, tt.layer, le.Layer)
			assert.Equal(t, core.Receiving, le.Direction)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, uint64(len(tests)), p.Metrics().Snapshot().DecodeErrors)
}

func TestReceiveCorruptedPresentation(t *testing.T) {
	lower, err := New([]codec.Codec{
		codec.NewLengthPrefix(core.Network),
		codec.NewMarker(core.DataLink, "[MAC_HEADER]", "[MAC_FOOTER]"),
		codec.Bits{},
	})
	require.NoError(t, err)
	// Session and transport framing around a body that is not JSON.
	inner := codec.NewMarker(core.Session, "[SESSION_START]", "[SESSION_END]")
	framed, err := inner.Encode(core.BytesPayload([]byte("{not json")))
	require.NoError(t, err)
	transported, err := codec.NewLengthPrefix(core.Transport).Encode(framed)
	require.NoError(t, err)
	wire, err := lower.Send(transported, core.Metadata{})
	require.NoError(t, err)

	p := mustBuild(t, NewBuilder())
	_, err = p.Receive(wire)
	var le *core.LayerError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, core.Presentation, le.Layer)
	assert.ErrorIs(t, err, core.ErrDecode)
}

func TestConcurrentUse(t *testing.T) {
	p := mustBuild(t, NewBuilder().WithProfile(codec.ProfileMAC))

	const workers, rounds = 8, 50
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				msg := fmt.Sprintf("worker-%d-msg-%d", w, i)
				wire, err := p.Send(core.TextPayload(msg), core.Metadata{SenderID: fmt.Sprintf("w%d", w)})
				if err != nil {
					errs <- err
					return
				}
				got, err := p.Receive(wire)
				if err != nil {
					errs <- err
					return
				}
				if got.String() != msg {
					errs <- errors.New("mismatch: " + got.String())
					return
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	snap := p.Metrics().Snapshot()
	assert.Equal(t, uint64(workers*rounds), snap.Sent)
	assert.Equal(t, uint64(workers*rounds), snap.Received)

	p.Metrics().Reset()
	assert.Equal(t, Snapshot{}, p.Metrics().Snapshot())
}

func TestBuilder(t *testing.T) {
	p := mustBuild(t, NewBuilder().WithProfile(codec.ProfileMarker).WithLayer(core.Presentation, "yaml"))
	assert.Equal(t, []string{
		"application/identity",
		"presentation/yaml",
		"session/marker",
		"transport/marker",
		"network/marker",
		"datalink/marker",
		"physical/bits",
	}, p.Layers())

	_, err := NewBuilder().WithProfile("fiber").Build()
	assert.ErrorContains(t, err, "unknown profile")

	_, err = NewBuilder().WithLayer(core.Session, "length").Build()
	assert.ErrorContains(t, err, "not found")
}

func TestFromConfig(t *testing.T) {
	p, err := FromConfig(config.StackConfig{
		Profile: codec.ProfileBinary,
		Layers:  map[string]string{"datalink": "mac", "presentation": "toml"},
	}).Build()
	require.NoError(t, err)
	assert.Contains(t, p.Layers(), "datalink/mac")
	assert.Contains(t, p.Layers(), "presentation/toml")
}

func mustBytes(t *testing.T, p core.Payload) []byte {
	t.Helper()
	b, err := p.Bytes()
	require.NoError(t, err)
	return b
}

func bitsOf(s string) []byte {
	out, err := codec.Bits{}.Encode(core.BytesPayload([]byte(s)))
	if err != nil {
		panic(err)
	}
	b, _ := out.Bytes()
	return b
}
