package codec

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/osisim/internal/core"
)

func presentations(t *testing.T) []Codec {
	t.Helper()
	var out []Codec
	for _, name := range Variants(core.Presentation) {
		c, err := Lookup(core.Presentation, name)
		require.NoError(t, err)
		out = append(out, c)
	}
	return out
}

func TestPresentationRoundTrip(t *testing.T) {
	nested, err := core.StructuredPayload(map[string]any{
		"message": "Hello, World!",
		"count":   3,
		"ratio":   0.25,
		"ok":      true,
		"tags":    []string{"a", "b"},
		"inner": map[string]any{
			"depth": 2,
			"list":  []any{1, "two", false},
		},
	})
	require.NoError(t, err)

	scalar, err := core.StructuredPayload("just a string")
	require.NoError(t, err)

	for _, c := range presentations(t) {
		t.Run(c.Name(), func(t *testing.T) {
			roundTrip(t, c, core.TextPayload("Hello, World!"))
			roundTrip(t, c, core.TextPayload(""))
			roundTrip(t, c, core.TextPayload("line one\nline \"two\" <&>"))
			roundTrip(t, c, core.BytesPayload([]byte{0, 1, 2, 0xff}))
			roundTrip(t, c, nested)
			roundTrip(t, c, scalar)
		})
	}
}

func TestPresentationNull(t *testing.T) {
	withNull, err := core.StructuredPayload(map[string]any{"gone": nil})
	require.NoError(t, err)

	for _, c := range presentations(t) {
		t.Run(c.Name(), func(t *testing.T) {
			if c.Name() == "toml" {
				_, err := c.Encode(withNull)
				assert.ErrorIs(t, err, core.ErrUnsupportedInput)
				return
			}
			roundTrip(t, c, withNull)
		})
	}
}

func TestPresentationJSONCarriesMessageKey(t *testing.T) {
	c, err := Lookup(core.Presentation, "json")
	require.NoError(t, err)

	out, err := c.Encode(core.TextPayload("Hello, World!"))
	require.NoError(t, err)
	b, _ := out.Bytes()
	assert.JSONEq(t, `{"kind":"text","message":"Hello, World!"}`, string(b))
}

func TestPresentationRejectsUnserializable(t *testing.T) {
	nan, err := core.StructuredPayload(map[string]any{"x": math.NaN()})
	require.NoError(t, err)

	for _, c := range presentations(t) {
		t.Run(c.Name(), func(t *testing.T) {
			_, err := c.Encode(core.TextPayload(string([]byte{0xff, 0xfe})))
			assert.ErrorIs(t, err, core.ErrUnsupportedInput)

			_, err = c.Encode(nan)
			assert.ErrorIs(t, err, core.ErrUnsupportedInput)
		})
	}
}

func TestPresentationDecodeErrors(t *testing.T) {
	inputs := map[string][]string{
		"json": {
			"",
			"{not json",
			`{"kind":"text"}`,
			`{"kind":"text","message":5}`,
			`{"kind":"bytes","message":"!!!"}`,
			`{"kind":"video","message":"x"}`,
			`{"kind":"text","message":"x","extra":1}`,
			`null`,
		},
		"yaml": {
			"",
			"- just\n- a list\n",
			"kind: text\nmessage: [1, 2]\n",
			"kind: [unterminated\n",
		},
		"toml": {
			"",
			"kind = ",
			"kind = \"structured\"\n",
		},
		"protobuf": {
			"",
			"\xff\xff\xff",
		},
	}

	for name, cases := range inputs {
		c, err := Lookup(core.Presentation, name)
		require.NoError(t, err)
		for _, in := range cases {
			t.Run(name+"/"+strings.ReplaceAll(in, "\n", `\n`), func(t *testing.T) {
				_, err := c.Decode(core.BytesPayload([]byte(in)))
				assert.ErrorIs(t, err, core.ErrDecode)
			})
		}
	}
}

func TestPresentationDecodeRejectsTextKind(t *testing.T) {
	c, _ := Lookup(core.Presentation, "json")
	_, err := c.Decode(core.TextPayload(`{"kind":"text","message":"x"}`))
	assert.ErrorIs(t, err, core.ErrUnsupportedInput)
}
