package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RawTensor Tests

func TestNewRawZeroFilled(t *testing.T) {
	raw, err := NewRaw(Shape{2, 3})
	require.NoError(t, err)

	assert.Equal(t, 6, raw.NumElements())
	assert.Equal(t, []int{3, 1}, raw.Strides())
	for _, v := range raw.Data() {
		assert.Zero(t, v)
	}
}

func TestNewRawRejectsBadShape(t *testing.T) {
	_, err := NewRaw(Shape{2, 0})
	assert.Error(t, err)
}

func TestFromFloat32SharesData(t *testing.T) {
	data := []float32{1, 2, 3, 4}
	raw, err := FromFloat32(data, Shape{2, 2})
	require.NoError(t, err)

	data[0] = 42
	assert.Equal(t, float32(42), raw.Data()[0], "FromFloat32 should not copy")

	_, err = FromFloat32(data, Shape{3})
	assert.Error(t, err)
}

func TestCloneIsDeep(t *testing.T) {
	raw, err := Full(Shape{3}, 1.5)
	require.NoError(t, err)

	clone := raw.Clone()
	clone.Data()[0] = 9
	assert.Equal(t, float32(1.5), raw.Data()[0])
	assert.True(t, clone.Shape().Equal(raw.Shape()))
}

func TestViewSharesBuffer(t *testing.T) {
	raw, err := FromFloat32([]float32{1, 2, 3, 4, 5, 6}, Shape{1, 6})
	require.NoError(t, err)

	view, err := raw.View(Shape{1, 2, 3})
	require.NoError(t, err)
	view.Data()[5] = -1
	assert.Equal(t, float32(-1), raw.Data()[5])

	_, err = raw.View(Shape{4})
	assert.Error(t, err)
}

func TestCopyFromChecksCount(t *testing.T) {
	raw, err := NewRaw(Shape{2, 2})
	require.NoError(t, err)

	require.NoError(t, raw.CopyFrom([]float32{1, 2, 3, 4}))
	assert.Equal(t, []float32{1, 2, 3, 4}, raw.Data())

	assert.Error(t, raw.CopyFrom([]float32{1, 2, 3}))
	assert.Equal(t, []float32{1, 2, 3, 4}, raw.Data(), "failed copy must not touch the buffer")
}

func TestDimPadsMissingAxes(t *testing.T) {
	raw, err := NewRaw(Shape{2, 5})
	require.NoError(t, err)

	assert.Equal(t, 5, raw.Dim(1))
	assert.Equal(t, 1, raw.Dim(3))
}
