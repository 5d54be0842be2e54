package main

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abrosua/pytorch-caffe/internal/caffemodel"
	"github.com/abrosua/pytorch-caffe/tensor"
)

const scaleNet = `
name: "halve"
input: "data"
input_shape { dim: 1 dim: 2 dim: 1 dim: 1 }
layer { name: "fc" type: "InnerProduct" bottom: "data" top: "fc" inner_product_param { num_output: 2 } }
layer { name: "acc" type: "Accuracy" bottom: "fc" top: "acc" }
`

func writeModel(t *testing.T) (model, weights string) {
	t.Helper()
	dir := t.TempDir()
	model = filepath.Join(dir, "deploy.prototxt")
	require.NoError(t, os.WriteFile(model, []byte(scaleNet), 0o600))

	data, err := caffemodel.Marshal(&caffemodel.NetParameter{
		Layers: []caffemodel.LayerParameter{{
			Name: "fc",
			Type: "InnerProduct",
			Blobs: []caffemodel.BlobProto{
				{Shape: []int64{2, 2}, Data: []float32{0.5, 0, 0, 0.5}},
				{Shape: []int64{2}, Data: []float32{1, 1}},
			},
		}},
	})
	require.NoError(t, err)
	weights = filepath.Join(dir, "model.caffemodel")
	require.NoError(t, os.WriteFile(weights, data, 0o600))
	return model, weights
}

func writeFloats(t *testing.T, values ...float32) string {
	t.Helper()
	raw := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(raw[4*i:], math.Float32bits(v))
	}
	path := filepath.Join(t.TempDir(), "input.f32")
	require.NoError(t, os.WriteFile(path, raw, 0o600))
	return path
}

func TestVersionAndUsage(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"version"}, &out, &out))
	assert.Equal(t, "caffenet "+version+"\n", out.String())

	out.Reset()
	require.NoError(t, run(nil, &out, &out))
	assert.Contains(t, out.String(), "Commands:")

	assert.Error(t, run([]string{"train"}, &out, &out))
}

func TestKinds(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"kinds"}, &out, &out))
	assert.Contains(t, strings.Split(out.String(), "\n"), "Convolution")
}

func TestInfo(t *testing.T) {
	model, _ := writeModel(t)
	var out, log bytes.Buffer
	require.NoError(t, run([]string{"info", "-model", model}, &out, &log))

	assert.Contains(t, out.String(), "CaffeNet(halve)")
	assert.Contains(t, out.String(), "skipped: acc")
	assert.Contains(t, log.String(), "unsupported layer skipped")

	assert.Error(t, run([]string{"info"}, &out, &log))
}

func TestRun(t *testing.T) {
	model, weights := writeModel(t)
	input := writeFloats(t, 4, 8)

	var out, log bytes.Buffer
	err := run([]string{"run", "-model", model, "-weights", weights, "-input", input}, &out, &log)
	require.NoError(t, err)
	assert.Equal(t, "fc [1 2]: 3 5\n", out.String())

	out.Reset()
	err = run([]string{"run", "-model", model, "-weights", weights, "-n", "1"}, &out, &log)
	require.NoError(t, err)
	assert.Equal(t, "fc [1 2]: 1 ...\n", out.String())

	err = run([]string{"run", "-model", model}, &out, &log)
	assert.Error(t, err)
}

func TestReadInput(t *testing.T) {
	shape := tensor.Shape{1, 2, 1, 1}

	x, err := readInput("", shape)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0}, x.Data())

	x, err = readInput(writeFloats(t, 1, 2, 3, 4), shape)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 2, 1, 1}, x.Shape())
	assert.Equal(t, []float32{1, 2, 3, 4}, x.Data())

	_, err = readInput(writeFloats(t, 1, 2, 3), shape)
	assert.Error(t, err)
}
