package caffe

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abrosua/pytorch-caffe/internal/caffe/layers"
	"github.com/abrosua/pytorch-caffe/internal/caffemodel"
)

const bnNet = `
input_dim: 1 input_dim: 2 input_dim: 1 input_dim: 1
layer { name: "bn" type: "BatchNorm" bottom: "data" top: "bn" }
`

func batchNorm(t *testing.T, net *Net) *layers.BatchNorm {
	t.Helper()
	require.NotEmpty(t, net.Graph())
	bn, ok := net.Graph()[0].Op.(*layers.BatchNorm)
	require.True(t, ok)
	return bn
}

func TestLoadWeights_BatchNormScaleFactor(t *testing.T) {
	net := mustNet(t, bnNet)
	err := net.LoadWeights(&caffemodel.NetParameter{Layers: []caffemodel.LayerParameter{
		{Name: "bn", Type: "BatchNorm", Blobs: []caffemodel.BlobProto{blob(10, 20), blob(4, 8), blob(2)}},
	}})
	require.NoError(t, err)

	bn := batchNorm(t, net)
	assert.Equal(t, []float32{5, 10}, bn.Mean.Data())
	assert.Equal(t, []float32{2, 4}, bn.Variance.Data())
}

func TestLoadWeights_BatchNormDividesByFactor(t *testing.T) {
	net := mustNet(t, bnNet)
	err := net.LoadWeights(&caffemodel.NetParameter{Layers: []caffemodel.LayerParameter{
		{Name: "bn", Type: "BatchNorm", Blobs: []caffemodel.BlobProto{blob(10, 20), blob(1, 7), blob(3)}},
	}})
	require.NoError(t, err)

	three := float32(3)
	bn := batchNorm(t, net)
	assert.Equal(t, []float32{10 / three, 20 / three}, bn.Mean.Data())
	assert.Equal(t, []float32{1 / three, 7 / three}, bn.Variance.Data())
}

func TestLoadWeights_BatchNormZeroFactor(t *testing.T) {
	net := mustNet(t, bnNet)
	err := net.LoadWeights(&caffemodel.NetParameter{Layers: []caffemodel.LayerParameter{
		{Name: "bn", Type: "BatchNorm", Blobs: []caffemodel.BlobProto{blob(10, 20), blob(4, 8), blob(0)}},
	}})
	require.NoError(t, err)

	bn := batchNorm(t, net)
	assert.Equal(t, []float32{0, 0}, bn.Mean.Data())
	assert.Equal(t, []float32{0, 0}, bn.Variance.Data())
}

func TestLoadWeights_MismatchIsNeverApplied(t *testing.T) {
	net := mustNet(t, tinyNet)
	ckpt := tinyCheckpoint()
	// conv is valid and comes first; fc has one value too few.
	ckpt.Layers[4].Blobs[0] = blob(0, 1, 1)

	err := net.LoadWeights(ckpt)
	require.Error(t, err)
	assert.ErrorIs(t, err, layers.ErrWeightMismatch)

	var wm *layers.WeightMismatchError
	require.ErrorAs(t, err, &wm)
	assert.Equal(t, "fc", wm.Layer)
	assert.Equal(t, 0, wm.Block)
	assert.Equal(t, 4, wm.Want)
	assert.Equal(t, 3, wm.Got)

	conv := net.Graph()[0].Op.(*layers.Convolution)
	assert.Equal(t, []float32{0, 0}, conv.Weight.Data())
	bn := net.Graph()[1].Op.(*layers.BatchNorm)
	assert.Equal(t, []float32{1, 1}, bn.Variance.Data())
}

func TestLoadWeights_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*caffemodel.NetParameter)
		want   error
	}{
		{
			name:   "conv weight size",
			mutate: func(c *caffemodel.NetParameter) { c.Layers[1].Blobs[0] = blob(1, 2, 3) },
			want:   layers.ErrWeightMismatch,
		},
		{
			name:   "conv bias size",
			mutate: func(c *caffemodel.NetParameter) { c.Layers[1].Blobs[1] = blob(1) },
			want:   layers.ErrWeightMismatch,
		},
		{
			name:   "conv without blocks",
			mutate: func(c *caffemodel.NetParameter) { c.Layers[1].Blobs = nil },
			want:   layers.ErrMissingWeights,
		},
		{
			name:   "parametric layer absent",
			mutate: func(c *caffemodel.NetParameter) { c.Layers = append(c.Layers[:2], c.Layers[3:]...) },
			want:   layers.ErrMissingWeights,
		},
		{
			name:   "scale bias absent",
			mutate: func(c *caffemodel.NetParameter) { c.Layers[3].Blobs = c.Layers[3].Blobs[:1] },
			want:   layers.ErrMissingWeights,
		},
		{
			name:   "batchnorm factor absent",
			mutate: func(c *caffemodel.NetParameter) { c.Layers[2].Blobs = c.Layers[2].Blobs[:2] },
			want:   layers.ErrMissingWeights,
		},
		{
			name:   "batchnorm factor size",
			mutate: func(c *caffemodel.NetParameter) { c.Layers[2].Blobs[2] = blob(1, 1) },
			want:   layers.ErrWeightMismatch,
		},
		{
			name:   "empty checkpoint",
			mutate: func(c *caffemodel.NetParameter) { c.Layers = nil },
			want:   layers.ErrEmptyCheckpoint,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			net := mustNet(t, tinyNet)
			ckpt := tinyCheckpoint()
			tt.mutate(ckpt)
			err := net.LoadWeights(ckpt)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoadWeights_OptionalBias(t *testing.T) {
	net := mustNet(t, tinyNet)
	ckpt := tinyCheckpoint()
	ckpt.Layers[1].Blobs = ckpt.Layers[1].Blobs[:1]
	ckpt.Layers[4].Blobs = ckpt.Layers[4].Blobs[:1]
	require.NoError(t, net.LoadWeights(ckpt))

	conv := net.Graph()[0].Op.(*layers.Convolution)
	assert.Equal(t, []float32{2, -1}, conv.Weight.Data())
	assert.Equal(t, []float32{0, 0}, conv.Bias.Data())
}

func TestLoadWeights_IgnoresUnknownRecords(t *testing.T) {
	net := mustNet(t, tinyNet)
	ckpt := tinyCheckpoint()
	ckpt.Layers = append(ckpt.Layers,
		caffemodel.LayerParameter{Name: "loss", Type: "SoftmaxWithLoss"},
		caffemodel.LayerParameter{Name: "old_fc", Type: "InnerProduct", Blobs: []caffemodel.BlobProto{blob(1, 2, 3)}},
	)
	assert.NoError(t, net.LoadWeights(ckpt))
}

func TestLoadWeights_KindMismatchWarns(t *testing.T) {
	var logs bytes.Buffer
	net := mustNet(t, tinyNet, recordingOptions(&logs))
	ckpt := tinyCheckpoint()
	ckpt.Layers[3].Type = "Bias"

	require.NoError(t, net.LoadWeights(ckpt))
	assert.Contains(t, logs.String(), `level=WARN msg="checkpoint layer kind differs from topology" layer=scale topology=Scale checkpoint=Bias`)
	assert.NotContains(t, logs.String(), "legacy container")
}

func TestLoadWeights_LegacyContainer(t *testing.T) {
	var logs bytes.Buffer
	net := mustNet(t, `
		input_dim: 1 input_dim: 4 input_dim: 1 input_dim: 1
		layers { name: "ip" type: INNER_PRODUCT bottom: "data" top: "ip" inner_product_param { num_output: 2 } }
		layers { name: "relu" type: RELU bottom: "ip" top: "ip" }
	`, recordingOptions(&logs))

	legacy := &caffemodel.NetParameter{LegacyLayers: []caffemodel.LayerParameter{
		{Name: "ip", Type: "INNER_PRODUCT", Legacy: true, Blobs: []caffemodel.BlobProto{
			blob(1, 0, 0, 0, 0, 0, 0, 1), blob(0.5, -0.5),
		}},
		{Name: "relu", Type: "RELU", Legacy: true},
	}}
	data, err := caffemodel.Marshal(legacy)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "legacy.caffemodel")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	require.NoError(t, net.LoadWeightsFile(path))
	assert.Contains(t, logs.String(), "reading the legacy container")

	out, err := net.Forward(newInput(t, []float32{1, 2, 3, 4}, 1, 4, 1, 1))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, []float32{1.5, 3.5}, out[0].Data())
}

func TestLoadWeights_RoundTripBytes(t *testing.T) {
	net := mustNet(t, tinyNet)
	data, err := caffemodel.Marshal(tinyCheckpoint())
	require.NoError(t, err)
	require.NoError(t, net.LoadWeightsFromBytes(data))

	fc := net.Graph()[5].Op.(*layers.InnerProduct)
	assert.Equal(t, []float32{0, 1, 1, 0}, fc.Linear.Weight.Data())

	assert.Error(t, net.LoadWeightsFromBytes([]byte{0xff}))
	assert.Error(t, net.LoadWeightsFile(filepath.Join(t.TempDir(), "missing.caffemodel")))
}
