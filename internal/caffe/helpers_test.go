package caffe

import (
	"bytes"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/abrosua/pytorch-caffe/internal/backend/cpu"
	"github.com/abrosua/pytorch-caffe/internal/caffemodel"
	"github.com/abrosua/pytorch-caffe/internal/tensor"
)

func quietOptions() Options {
	return Options{Backend: cpu.New(), Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// recordingOptions logs every level into buf.
func recordingOptions(buf *bytes.Buffer) Options {
	return Options{
		Backend: cpu.New(),
		Logger:  slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})),
	}
}

func mustNet(t *testing.T, src string, opts ...Options) *Net {
	t.Helper()
	opt := quietOptions()
	if len(opts) > 0 {
		opt = opts[0]
	}
	net, err := LoadFromBytes([]byte(src), opt)
	require.NoError(t, err)
	return net
}

func blob(data ...float32) caffemodel.BlobProto {
	return caffemodel.BlobProto{Shape: []int64{int64(len(data))}, Data: data}
}

func filledBlob(n int, v float32) caffemodel.BlobProto {
	data := make([]float32, n)
	for i := range data {
		data[i] = v
	}
	return blob(data...)
}

func newInput(t *testing.T, data []float32, shape ...int) *tensor.RawTensor {
	t.Helper()
	x, err := tensor.FromFloat32(data, tensor.Shape(shape))
	require.NoError(t, err)
	return x
}

// tinyNet is conv -> batchnorm -> scale -> relu -> pool -> fc -> softmax
// over a 1x2x2 input.
const tinyNet = `
name: "tiny"
input: "data"
input_shape { dim: 1 dim: 1 dim: 2 dim: 2 }
layer {
  name: "conv" type: "Convolution" bottom: "data" top: "conv"
  convolution_param { num_output: 2 kernel_size: 1 }
}
layer { name: "bn" type: "BatchNorm" bottom: "conv" top: "conv" }
layer { name: "scale" type: "Scale" bottom: "conv" top: "conv" scale_param { bias_term: true } }
layer { name: "relu" type: "ReLU" bottom: "conv" top: "conv" }
layer {
  name: "pool" type: "Pooling" bottom: "conv" top: "pool"
  pooling_param { pool: AVE global_pooling: true }
}
layer { name: "fc" type: "InnerProduct" bottom: "pool" top: "fc" inner_product_param { num_output: 2 } }
layer { name: "prob" type: "Softmax" bottom: "fc" top: "prob" }
`

// tinyCheckpoint gives every parametric layer of tinyNet identity-like
// parameters: conv doubles channel 0 and negates channel 1, bn and scale
// are neutral, fc swaps its two features.
func tinyCheckpoint() *caffemodel.NetParameter {
	return &caffemodel.NetParameter{
		Name: "tiny",
		Layers: []caffemodel.LayerParameter{
			{Name: "data", Type: "Input"},
			{Name: "conv", Type: "Convolution", Blobs: []caffemodel.BlobProto{blob(2, -1), blob(0, 0)}},
			{Name: "bn", Type: "BatchNorm", Blobs: []caffemodel.BlobProto{blob(0, 0), blob(1, 1), blob(1)}},
			{Name: "scale", Type: "Scale", Blobs: []caffemodel.BlobProto{blob(1, 1), blob(0, 0)}},
			{Name: "fc", Type: "InnerProduct", Blobs: []caffemodel.BlobProto{blob(0, 1, 1, 0), blob(0, 0)}},
		},
	}
}
