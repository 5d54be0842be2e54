package caffemodel

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Marshal encodes a NetParameter in the wire format Parse reads.
// Floats and dims are written packed.
func Marshal(net *NetParameter) ([]byte, error) {
	var b []byte
	if net.Name != "" {
		b = appendString(b, netName, net.Name)
	}
	for _, in := range net.Inputs {
		b = appendString(b, netInput, in)
	}
	if len(net.InputDims) > 0 {
		b = appendPackedInt64s(b, netInputDim, net.InputDims)
	}
	for _, dims := range net.InputShapes {
		b = protowire.AppendTag(b, netInputShape, protowire.BytesType)
		b = protowire.AppendBytes(b, appendPackedInt64s(nil, shapeDim, dims))
	}
	for i := range net.LegacyLayers {
		layer, err := marshalV1Layer(&net.LegacyLayers[i])
		if err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, netLayers, protowire.BytesType)
		b = protowire.AppendBytes(b, layer)
	}
	for i := range net.Layers {
		b = protowire.AppendTag(b, netLayer, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalLayer(&net.Layers[i]))
	}
	return b, nil
}

// MarshalBlob encodes a standalone BlobProto.
func MarshalBlob(blob *BlobProto) []byte {
	var b []byte
	if blob.Num != 0 {
		b = appendVarint(b, blobNum, uint64(blob.Num))
	}
	if blob.Channels != 0 {
		b = appendVarint(b, blobChannels, uint64(blob.Channels))
	}
	if blob.Height != 0 {
		b = appendVarint(b, blobHeight, uint64(blob.Height))
	}
	if blob.Width != 0 {
		b = appendVarint(b, blobWidth, uint64(blob.Width))
	}
	if len(blob.Data) > 0 {
		packed := make([]byte, 0, 4*len(blob.Data))
		for _, v := range blob.Data {
			packed = protowire.AppendFixed32(packed, math.Float32bits(v))
		}
		b = protowire.AppendTag(b, blobData, protowire.BytesType)
		b = protowire.AppendBytes(b, packed)
	}
	if len(blob.Shape) > 0 {
		b = protowire.AppendTag(b, blobShape, protowire.BytesType)
		b = protowire.AppendBytes(b, appendPackedInt64s(nil, shapeDim, blob.Shape))
	}
	return b
}

func marshalLayer(layer *LayerParameter) []byte {
	var b []byte
	b = appendString(b, layerName, layer.Name)
	b = appendString(b, layerType, layer.Type)
	for _, s := range layer.Bottoms {
		b = appendString(b, layerBottom, s)
	}
	for _, s := range layer.Tops {
		b = appendString(b, layerTop, s)
	}
	for i := range layer.Blobs {
		b = protowire.AppendTag(b, layerBlobs, protowire.BytesType)
		b = protowire.AppendBytes(b, MarshalBlob(&layer.Blobs[i]))
	}
	return b
}

func marshalV1Layer(layer *LayerParameter) ([]byte, error) {
	typ, ok := V1TypeValue(layer.Type)
	if !ok {
		return nil, fmt.Errorf("layer %q: %q is not a V1 layer type", layer.Name, layer.Type)
	}
	var b []byte
	for _, s := range layer.Bottoms {
		b = appendString(b, v1Bottom, s)
	}
	for _, s := range layer.Tops {
		b = appendString(b, v1Top, s)
	}
	b = appendString(b, v1Name, layer.Name)
	b = appendVarint(b, v1Type, typ)
	for i := range layer.Blobs {
		b = protowire.AppendTag(b, v1Blobs, protowire.BytesType)
		b = protowire.AppendBytes(b, MarshalBlob(&layer.Blobs[i]))
	}
	return b, nil
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendPackedInt64s(b []byte, num protowire.Number, vs []int64) []byte {
	var packed []byte
	for _, v := range vs {
		packed = protowire.AppendVarint(packed, uint64(v))
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, packed)
}
