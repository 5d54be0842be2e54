package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abrosua/pytorch-caffe/internal/tensor"
)

func TestPool2D(t *testing.T) {
	backend := New()

	// 1  2  3  4
	// 5  6  7  8
	// 9  10 11 12
	// 13 14 15 16
	input := mustTensor(t, iota32(16), 1, 1, 4, 4)

	tests := []struct {
		name   string
		params tensor.PoolParams
		shape  tensor.Shape
		want   []float32
	}{
		{
			name:   "max 2x2 stride 2",
			params: tensor.PoolParams{Method: tensor.PoolMax, Kernel: 2, Stride: 2},
			shape:  tensor.Shape{1, 1, 2, 2},
			want:   []float32{6, 8, 14, 16},
		},
		{
			name:   "average 2x2 stride 2",
			params: tensor.PoolParams{Method: tensor.PoolAverage, Kernel: 2, Stride: 2},
			shape:  tensor.Shape{1, 1, 2, 2},
			want:   []float32{3.5, 5.5, 11.5, 13.5},
		},
		{
			name:   "explicit output extent",
			params: tensor.PoolParams{Method: tensor.PoolMax, Kernel: 2, Stride: 2, OutH: 1, OutW: 1},
			shape:  tensor.Shape{1, 1, 1, 1},
			want:   []float32{6},
		},
		{
			name:   "ceil mode keeps the partial window",
			params: tensor.PoolParams{Method: tensor.PoolMax, Kernel: 3, Stride: 2},
			shape:  tensor.Shape{1, 1, 2, 2},
			want:   []float32{11, 12, 15, 16},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := backend.Pool2D(input, tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.shape, out.Shape())
			assert.InDeltaSlice(t, tt.want, out.Data(), 1e-6)
		})
	}
}

func TestPool2D_AveragePaddingCountsZeros(t *testing.T) {
	backend := New()
	input := mustTensor(t, []float32{1, 2, 3, 4}, 1, 1, 2, 2)

	out, err := backend.Pool2D(input, tensor.PoolParams{Method: tensor.PoolAverage, Kernel: 2, Stride: 2, Pad: 1})
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 1, 2, 2}, out.Shape())
	assert.InDeltaSlice(t, []float32{0.25, 0.5, 0.75, 1}, out.Data(), 1e-6)

	out, err = backend.Pool2D(input, tensor.PoolParams{Method: tensor.PoolMax, Kernel: 2, Stride: 2, Pad: 1})
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3, 4}, out.Data())
}

func TestPool2D_MultiChannelBatch(t *testing.T) {
	backend := New()
	input := mustTensor(t, iota32(32), 2, 1, 4, 4)

	out, err := backend.Pool2D(input, tensor.PoolParams{Method: tensor.PoolMax, Kernel: 2, Stride: 2})
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 1, 2, 2}, out.Shape())
	assert.Equal(t, []float32{6, 8, 14, 16, 22, 24, 30, 32}, out.Data())
}

func TestCeilPoolExtent(t *testing.T) {
	assert.Equal(t, 57, ceilPoolExtent(112, 3, 2, 1))
	assert.Equal(t, 56, ceilPoolExtent(112, 3, 2, 0))
	assert.Equal(t, 2, ceilPoolExtent(4, 2, 2, 0))
}

func TestPool2D_InvalidParams(t *testing.T) {
	backend := New()
	input := mustTensor(t, iota32(16), 1, 1, 4, 4)

	for _, p := range []tensor.PoolParams{
		{Kernel: 0, Stride: 1},
		{Kernel: 2, Stride: 0},
		{Kernel: 2, Stride: 1, Pad: 2},
		{Method: tensor.PoolMethod(7), Kernel: 2, Stride: 1},
	} {
		_, err := backend.Pool2D(input, p)
		assert.Error(t, err, "params %+v", p)
	}

	_, err := backend.Pool2D(mustTensor(t, iota32(4), 2, 2), tensor.PoolParams{Kernel: 1, Stride: 1})
	assert.Error(t, err)
}
