package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShapeNumElements(t *testing.T) {
	assert.Equal(t, 1, Shape{}.NumElements())
	assert.Equal(t, 24, Shape{2, 3, 4}.NumElements())
}

func TestShapeSplit(t *testing.T) {
	outer, size, inner := Shape{2, 3, 4, 5}.Split(1)
	assert.Equal(t, 2, outer)
	assert.Equal(t, 3, size)
	assert.Equal(t, 20, inner)
}

func TestShapeString(t *testing.T) {
	assert.Equal(t, "[1 3 224 224]", Shape{1, 3, 224, 224}.String())
}

func TestNormalizeAxis(t *testing.T) {
	axis, err := NormalizeAxis(-1, 4)
	require.NoError(t, err)
	assert.Equal(t, 3, axis)

	_, err = NormalizeAxis(4, 4)
	assert.Error(t, err)
}
