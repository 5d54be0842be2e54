package prototxt

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lenetFragment = `
name: "LeNet"  # trailing comment
input: "data"
input_shape { dim: 1 dim: 1 dim: 28 dim: 28 }
layer {
  name: "conv1"
  type: "Convolution"
  bottom: "data"
  top: "conv1"
  convolution_param {
    num_output: 20
    kernel_size: 5
    stride: 1
    weight_filler { type: "xavier" }
  }
}
layer {
  name: "pool1"
  type: "Pooling"
  bottom: "conv1"
  top: "pool1"
  pooling_param { pool: MAX kernel_size: 2 stride: 2 }
}
`

func TestParse_Network(t *testing.T) {
	msg, err := Parse(lenetFragment)
	require.NoError(t, err)

	name, err := msg.String("name", "")
	require.NoError(t, err)
	assert.Equal(t, "LeNet", name)

	dims, err := msg.Message("input_shape").Ints("dim")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 28, 28}, dims)

	layers := msg.Messages("layer")
	require.Len(t, layers, 2)

	conv := layers[0].Message("convolution_param")
	require.NotNil(t, conv)
	numOutput, err := conv.Int("num_output", 0)
	require.NoError(t, err)
	assert.Equal(t, 20, numOutput)
	assert.True(t, conv.Has("weight_filler"))

	pool, err := layers[1].Message("pooling_param").String("pool", "")
	require.NoError(t, err)
	assert.Equal(t, "MAX", pool)
}

func TestParse_FieldOrderPreserved(t *testing.T) {
	msg, err := Parse(`top: "a" bottom: "x" top: "b"; top: 'c'`)
	require.NoError(t, err)

	tops, err := msg.Strings("top")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, tops)

	names := make([]string, len(msg.Fields))
	for i, f := range msg.Fields {
		names[i] = f.Name
	}
	assert.Equal(t, []string{"top", "bottom", "top", "top"}, names)
}

func TestParse_Syntax(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, m *Message)
	}{
		{
			name:  "colon before block",
			input: `param: { lr_mult: 1 }`,
			check: func(t *testing.T, m *Message) {
				v, err := m.Message("param").Float("lr_mult", 0)
				require.NoError(t, err)
				assert.Equal(t, 1.0, v)
			},
		},
		{
			name:  "angle brackets",
			input: `param < lr_mult: 2 >`,
			check: func(t *testing.T, m *Message) {
				assert.NotNil(t, m.Message("param"))
			},
		},
		{
			name:  "list syntax",
			input: `variance: [0.1, 0.1, 0.2, 0.2]`,
			check: func(t *testing.T, m *Message) {
				v, err := m.Floats("variance")
				require.NoError(t, err)
				assert.Equal(t, []float64{0.1, 0.1, 0.2, 0.2}, v)
			},
		},
		{
			name:  "float suffix and exponent",
			input: `eps: 1e-5 alpha: 0.0001f beta: -.75`,
			check: func(t *testing.T, m *Message) {
				eps, err := m.Float("eps", 0)
				require.NoError(t, err)
				assert.InDelta(t, 1e-5, eps, 1e-12)
				alpha, err := m.Float("alpha", 0)
				require.NoError(t, err)
				assert.InDelta(t, 1e-4, alpha, 1e-12)
				beta, err := m.Float("beta", 0)
				require.NoError(t, err)
				assert.Equal(t, -0.75, beta)
			},
		},
		{
			name:  "escapes and concatenation",
			input: `name: "a\"b" "c"`,
			check: func(t *testing.T, m *Message) {
				s, err := m.String("name", "")
				require.NoError(t, err)
				assert.Equal(t, `a"bc`, s)
			},
		},
		{
			name:  "booleans",
			input: `clip: true flip: False use_global_stats: 1`,
			check: func(t *testing.T, m *Message) {
				for _, name := range []string{"clip", "use_global_stats"} {
					b, err := m.Bool(name, false)
					require.NoError(t, err)
					assert.True(t, b, name)
				}
				b, err := m.Bool("flip", true)
				require.NoError(t, err)
				assert.False(t, b)
			},
		},
		{
			name:  "empty document",
			input: "  # nothing here\n",
			check: func(t *testing.T, m *Message) {
				assert.Empty(t, m.Fields)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Parse(tt.input)
			require.NoError(t, err)
			tt.check(t, msg)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  int
	}{
		{"unclosed block", "layer {\n  name: \"x\"\n", 3},
		{"missing colon", "name \"x\"", 1},
		{"stray brace", "}", 1},
		{"unterminated string", "name: \"abc\n", 1},
		{"bad character", "name: \"x\"\n@", 2},
		{"missing value", "name:", 1},
		{"mismatched brackets", "param < lr_mult: 1 }", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			require.Error(t, err)
			var pe *ParseError
			require.True(t, errors.As(err, &pe), "want *ParseError, got %T", err)
			assert.Equal(t, tt.line, pe.Line)
		})
	}
}

func TestAccessors_Defaults(t *testing.T) {
	msg, err := Parse(`kernel_size: 3 sub { }`)
	require.NoError(t, err)

	n, err := msg.Int("stride", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	f, err := msg.Float("eps", 1e-5)
	require.NoError(t, err)
	assert.Equal(t, 1e-5, f)

	assert.Nil(t, msg.Message("missing"))
	assert.Nil(t, msg.Message("kernel_size"))

	// A nil message behaves as empty.
	var none *Message
	assert.False(t, none.Has("x"))
	n, err = none.Int("x", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	_, err = msg.Int("sub", 0)
	assert.Error(t, err)
}

func TestAccessors_InvalidNumbers(t *testing.T) {
	msg, err := Parse(`pool: MAX stride: 1.5`)
	require.NoError(t, err)

	_, err = msg.Int("pool", 0)
	assert.Error(t, err)
	_, err = msg.Int("stride", 0)
	assert.Error(t, err)
	_, err = msg.Floats("pool")
	assert.Error(t, err)
	_, err = msg.Bool("pool", false)
	assert.Error(t, err)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "net.prototxt")
	require.NoError(t, os.WriteFile(path, []byte(lenetFragment), 0o600))

	msg, err := ParseFile(path)
	require.NoError(t, err)
	assert.Len(t, msg.Messages("layer"), 2)

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.prototxt"))
	assert.Error(t, err)
}
