package layers

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/abrosua/pytorch-caffe/internal/backend/cpu"
	"github.com/abrosua/pytorch-caffe/internal/prototxt"
	"github.com/abrosua/pytorch-caffe/internal/tensor"
)

// parseRecord builds a LayerRecord from the body of a layer { } block.
func parseRecord(t *testing.T, src string) *LayerRecord {
	t.Helper()
	msg, err := prototxt.Parse(src)
	require.NoError(t, err)

	name, err := msg.String("name", "")
	require.NoError(t, err)
	typ, err := msg.String("type", "")
	require.NoError(t, err)
	bottoms, err := msg.Strings("bottom")
	require.NoError(t, err)
	tops, err := msg.Strings("top")
	require.NoError(t, err)

	return &LayerRecord{Name: name, Type: typ, Kind: ParseKind(typ), Bottoms: bottoms, Tops: tops, Params: msg}
}

func shapesWith(blobs map[string]BlobShape) *ShapeTable {
	st := NewShapeTable()
	for name, s := range blobs {
		st.Record(name, s)
	}
	return st
}

func cpuContext() *Context {
	return &Context{Backend: cpu.New()}
}

func seq(shape ...int) *tensor.RawTensor {
	s := tensor.Shape(shape)
	data := make([]float32, s.NumElements())
	for i := range data {
		data[i] = float32(i + 1)
	}
	t, err := tensor.FromFloat32(data, s)
	if err != nil {
		panic(err)
	}
	return t
}
