package caffe

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abrosua/pytorch-caffe/internal/caffe/layers"
	"github.com/abrosua/pytorch-caffe/internal/tensor"
)

// detectionNet is a cut-down single shot detector head over a 3x8x6 input.
const detectionNet = `
name: "ssd-mini"
input: "data"
input_shape { dim: 1 dim: 3 dim: 8 dim: 6 }
layer { name: "source" type: "Data" top: "data" top: "label" }
layer {
  name: "conv1" type: "Convolution" bottom: "data" top: "conv1"
  convolution_param { num_output: 4 kernel_size: 3 stride: 2 pad: 1 }
}
layer { name: "conv1_norm" type: "Normalize" bottom: "conv1" top: "conv1_norm" norm_param { scale_filler { value: 20 } } }
layer {
  name: "loc" type: "Convolution" bottom: "conv1_norm" top: "loc"
  convolution_param { num_output: 8 kernel_size: 1 }
}
layer { name: "loc_perm" type: "Permute" bottom: "loc" top: "loc_perm" permute_param { order: 0 order: 2 order: 3 order: 1 } }
layer { name: "loc_flat" type: "Flatten" bottom: "loc_perm" top: "loc_flat" }
layer {
  name: "prior1" type: "PriorBox" bottom: "conv1" bottom: "data" top: "prior1"
  prior_box_param { min_size: 4 variance: 0.1 variance: 0.1 variance: 0.2 variance: 0.2 }
}
layer { name: "pool2" type: "Pooling" bottom: "conv1" top: "pool2" pooling_param { pool: MAX kernel_size: 2 stride: 2 } }
layer { name: "prior2" type: "PriorBox" bottom: "pool2" bottom: "data" top: "prior2" prior_box_param { min_size: 8 clip: true } }
layer { name: "priors" type: "Concat" bottom: "prior1" bottom: "prior2" top: "priors" concat_param { axis: 2 } }
layer { name: "acc" type: "Accuracy" bottom: "loc_flat" bottom: "label" top: "accuracy" }
layer { name: "crop" type: "Crop" bottom: "conv1" bottom: "data" top: "cropped" }
`

func TestBuildGraph_ShapePropagation(t *testing.T) {
	net := mustNet(t, detectionNet)

	tests := []struct {
		blob string
		want layers.BlobShape
	}{
		{"data", layers.BlobShape{Channels: 3, Width: 6, Height: 8}},
		{"conv1", layers.BlobShape{Channels: 4, Width: 3, Height: 4}},
		{"conv1_norm", layers.BlobShape{Channels: 4, Width: 3, Height: 4}},
		{"loc", layers.BlobShape{Channels: 8, Width: 3, Height: 4}},
		{"loc_perm", layers.BlobShape{Channels: 4, Width: 8, Height: 3}},
		{"loc_flat", layers.BlobShape{Channels: 96, Width: 1, Height: 1}},
		{"prior1", layers.BlobShape{Channels: 2, Width: layers.Unknown, Height: 48}},
		{"pool2", layers.BlobShape{Channels: 4, Width: 2, Height: 2}},
		{"prior2", layers.BlobShape{Channels: 2, Width: layers.Unknown, Height: 16}},
		{"priors", layers.BlobShape{Channels: 2, Width: 1, Height: 64}},
	}
	for _, tt := range tests {
		t.Run(tt.blob, func(t *testing.T) {
			got, err := net.BlobShape(tt.blob)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildGraph_SkipsUnsupportedLayers(t *testing.T) {
	var logs bytes.Buffer
	net := mustNet(t, detectionNet, recordingOptions(&logs))

	names := make([]string, len(net.Graph()))
	for i, e := range net.Graph() {
		names[i] = e.Name
	}
	assert.Equal(t, []string{"conv1", "conv1_norm", "loc", "loc_perm", "loc_flat", "prior1", "pool2", "prior2", "priors"}, names)
	assert.Equal(t, []string{"acc", "crop"}, net.Skipped())

	_, err := net.BlobShape("accuracy")
	assert.ErrorIs(t, err, layers.ErrUndefinedBlob)
	_, err = net.BlobShape("cropped")
	assert.ErrorIs(t, err, layers.ErrUndefinedBlob)

	out := logs.String()
	assert.Contains(t, out, `level=WARN msg="unsupported layer skipped" layer=acc type=Accuracy`)
	assert.Contains(t, out, `level=WARN msg="unsupported layer skipped" layer=crop type=Crop`)
	assert.Contains(t, out, `level=DEBUG msg="layer built" layer=conv1 kind=Convolution`)
	assert.NotContains(t, out, "layer=source type=Data")
}

func TestBuildGraph_ConsumerOfSkippedLayerFails(t *testing.T) {
	_, err := LoadFromBytes([]byte(`
		input_dim: 1 input_dim: 1 input_dim: 4 input_dim: 4
		layer { name: "crop" type: "Crop" bottom: "data" top: "cropped" }
		layer { name: "relu" type: "ReLU" bottom: "cropped" top: "out" }
	`), quietOptions())
	require.Error(t, err)
	assert.ErrorIs(t, err, layers.ErrUndefinedBlob)

	var se *layers.StructuralError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "relu", se.Layer)
}

func TestBuildGraph_ReshapedBlobCannotFeedParameters(t *testing.T) {
	src := `
		input_dim: 1 input_dim: 3 input_dim: 4 input_dim: 4
		layer { name: "flat" type: "Reshape" bottom: "data" top: "flat" reshape_param { shape { dim: 0 dim: -1 } } }
		layer { name: "swap" type: "Permute" bottom: "flat" top: "swap" permute_param { order: 0 order: 2 order: 1 order: 3 } }
		layer { name: "scale" type: "Scale" bottom: "swap" top: "scale" }
	`
	var err error
	require.NotPanics(t, func() {
		_, err = LoadFromBytes([]byte(src), quietOptions())
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, layers.ErrInvalidParam)

	var se *layers.StructuralError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "swap", se.Layer)
}

func TestBuildGraph_InputOverride(t *testing.T) {
	opt := quietOptions()
	opt.InputWidth, opt.InputHeight = 12, 16
	net := mustNet(t, detectionNet, opt)

	assert.Equal(t, tensor.Shape{1, 3, 16, 12}, net.InputShape())
	got, err := net.BlobShape("conv1")
	require.NoError(t, err)
	assert.Equal(t, layers.BlobShape{Channels: 4, Width: 6, Height: 8}, got)
}

func TestExecute_MatchesInferredShapes(t *testing.T) {
	net := mustNet(t, detectionNet)

	x, err := tensor.Full(net.InputShape(), 1)
	require.NoError(t, err)
	blobs, err := net.Execute(x)
	require.NoError(t, err)

	for _, name := range []string{"conv1", "conv1_norm", "loc", "pool2"} {
		s, err := net.BlobShape(name)
		require.NoError(t, err)
		assert.Equal(t, tensor.Shape{1, s.Channels, s.Height, s.Width}, blobs[name].Shape(), name)
	}
	assert.Equal(t, tensor.Shape{1, 4, 3, 8}, blobs["loc_perm"].Shape())
	assert.Equal(t, tensor.Shape{1, 96}, blobs["loc_flat"].Shape())
	assert.Equal(t, tensor.Shape{1, 2, 48}, blobs["prior1"].Shape())
	assert.Equal(t, tensor.Shape{1, 2, 16}, blobs["prior2"].Shape())
	assert.Equal(t, tensor.Shape{1, 2, 64}, blobs["priors"].Shape())
	assert.NotContains(t, blobs, "accuracy")

	// Clipped boxes stay inside the image.
	for _, v := range blobs["prior2"].Data()[:16] {
		assert.GreaterOrEqual(t, v, float32(0))
		assert.LessOrEqual(t, v, float32(1))
	}
}
