package caffemodel

import (
	"fmt"
	"math"
	"os"

	"google.golang.org/protobuf/encoding/protowire"
)

// ParseFile parses a serialized NetParameter from file.
//
//nolint:gosec // G304: Path is provided by user, reading the weights file is intentional
func ParseFile(path string) (*NetParameter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a serialized NetParameter. Unknown fields are skipped.
func Parse(data []byte) (*NetParameter, error) {
	net := &NetParameter{}
	if err := readNet(data, net); err != nil {
		return nil, fmt.Errorf("failed to parse net: %w", err)
	}
	return net, nil
}

// ParseBlobFile parses a standalone serialized BlobProto (.binaryproto),
// the format Caffe uses for mean images.
//
//nolint:gosec // G304: Path is provided by user
func ParseBlobFile(path string) (*BlobProto, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return ParseBlob(data)
}

// ParseBlob decodes a serialized BlobProto.
func ParseBlob(data []byte) (*BlobProto, error) {
	blob := &BlobProto{}
	if err := readBlob(data, blob); err != nil {
		return nil, fmt.Errorf("failed to parse blob: %w", err)
	}
	return blob, nil
}

// fieldFunc handles one field whose tag has been consumed. It returns the
// number of bytes of b it consumed, or a negative protowire code.
type fieldFunc func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

// walk iterates over the fields of one message.
func walk(b []byte, fn fieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: tag: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]

		m, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		if m < 0 {
			return fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(m))
		}
		b = b[m:]
	}
	return nil
}

func skip(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	return protowire.ConsumeFieldValue(num, typ, b), nil
}

func wantType(num protowire.Number, got, want protowire.Type) error {
	if got != want {
		return fmt.Errorf("%w: field %d has wire type %d, want %d", ErrWireType, num, got, want)
	}
	return nil
}

func consumeBytes(num protowire.Number, typ protowire.Type, b []byte) ([]byte, int, error) {
	if err := wantType(num, typ, protowire.BytesType); err != nil {
		return nil, 0, err
	}
	v, n := protowire.ConsumeBytes(b)
	return v, n, nil
}

func consumeVarint(num protowire.Number, typ protowire.Type, b []byte) (uint64, int, error) {
	if err := wantType(num, typ, protowire.VarintType); err != nil {
		return 0, 0, err
	}
	v, n := protowire.ConsumeVarint(b)
	return v, n, nil
}

func readNet(data []byte, net *NetParameter) error {
	return walk(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case netName:
			v, n, err := consumeBytes(num, typ, b)
			net.Name = string(v)
			return n, err
		case netInput:
			v, n, err := consumeBytes(num, typ, b)
			if n >= 0 && err == nil {
				net.Inputs = append(net.Inputs, string(v))
			}
			return n, err
		case netInputDim:
			return appendInt64s(num, typ, b, &net.InputDims)
		case netInputShape:
			v, n, err := consumeBytes(num, typ, b)
			if n < 0 || err != nil {
				return n, err
			}
			var dims []int64
			if err := readShape(v, &dims); err != nil {
				return 0, err
			}
			net.InputShapes = append(net.InputShapes, dims)
			return n, nil
		case netLayer, netLayers:
			v, n, err := consumeBytes(num, typ, b)
			if n < 0 || err != nil {
				return n, err
			}
			var layer LayerParameter
			if num == netLayer {
				err = readLayer(v, &layer)
				net.Layers = append(net.Layers, layer)
			} else {
				err = readV1Layer(v, &layer)
				net.LegacyLayers = append(net.LegacyLayers, layer)
			}
			if err != nil {
				return 0, fmt.Errorf("layer %d: %w", len(net.Layers)+len(net.LegacyLayers)-1, err)
			}
			return n, nil
		default:
			return skip(num, typ, b)
		}
	})
}

func readLayer(data []byte, layer *LayerParameter) error {
	return walk(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case layerName, layerType, layerBottom, layerTop:
			v, n, err := consumeBytes(num, typ, b)
			if n < 0 || err != nil {
				return n, err
			}
			switch num {
			case layerName:
				layer.Name = string(v)
			case layerType:
				layer.Type = string(v)
			case layerBottom:
				layer.Bottoms = append(layer.Bottoms, string(v))
			case layerTop:
				layer.Tops = append(layer.Tops, string(v))
			}
			return n, nil
		case layerBlobs:
			return appendBlob(num, typ, b, &layer.Blobs)
		default:
			return skip(num, typ, b)
		}
	})
}

func readV1Layer(data []byte, layer *LayerParameter) error {
	layer.Legacy = true
	return walk(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case v1Name, v1Bottom, v1Top:
			v, n, err := consumeBytes(num, typ, b)
			if n < 0 || err != nil {
				return n, err
			}
			switch num {
			case v1Name:
				layer.Name = string(v)
			case v1Bottom:
				layer.Bottoms = append(layer.Bottoms, string(v))
			case v1Top:
				layer.Tops = append(layer.Tops, string(v))
			}
			return n, nil
		case v1Type:
			v, n, err := consumeVarint(num, typ, b)
			layer.Type = V1TypeName(v)
			return n, err
		case v1Blobs:
			return appendBlob(num, typ, b, &layer.Blobs)
		default:
			return skip(num, typ, b)
		}
	})
}

func appendBlob(num protowire.Number, typ protowire.Type, b []byte, dst *[]BlobProto) (int, error) {
	v, n, err := consumeBytes(num, typ, b)
	if n < 0 || err != nil {
		return n, err
	}
	var blob BlobProto
	if err := readBlob(v, &blob); err != nil {
		return 0, fmt.Errorf("blob %d: %w", len(*dst), err)
	}
	*dst = append(*dst, blob)
	return n, nil
}

func readBlob(data []byte, blob *BlobProto) error {
	var doubles []float64
	err := walk(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case blobNum, blobChannels, blobHeight, blobWidth:
			v, n, err := consumeVarint(num, typ, b)
			switch num {
			case blobNum:
				blob.Num = int32(v)
			case blobChannels:
				blob.Channels = int32(v)
			case blobHeight:
				blob.Height = int32(v)
			case blobWidth:
				blob.Width = int32(v)
			}
			return n, err
		case blobData:
			return appendFloats(num, typ, b, &blob.Data)
		case blobDoubleData:
			return appendDoubles(num, typ, b, &doubles)
		case blobShape:
			v, n, err := consumeBytes(num, typ, b)
			if n < 0 || err != nil {
				return n, err
			}
			return n, readShape(v, &blob.Shape)
		default:
			// diff and double_diff are gradients; inference never reads them.
			return skip(num, typ, b)
		}
	})
	if err != nil {
		return err
	}
	if len(blob.Data) == 0 && len(doubles) > 0 {
		blob.Data = make([]float32, len(doubles))
		for i, d := range doubles {
			blob.Data[i] = float32(d)
		}
	}
	return nil
}

func readShape(data []byte, dims *[]int64) error {
	return walk(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == shapeDim {
			return appendInt64s(num, typ, b, dims)
		}
		return skip(num, typ, b)
	})
}

// appendFloats reads a repeated float field in packed or unpacked form.
func appendFloats(num protowire.Number, typ protowire.Type, b []byte, dst *[]float32) (int, error) {
	switch typ {
	case protowire.Fixed32Type:
		v, n := protowire.ConsumeFixed32(b)
		if n >= 0 {
			*dst = append(*dst, math.Float32frombits(v))
		}
		return n, nil
	case protowire.BytesType:
		packed, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return n, nil
		}
		if len(packed)%4 != 0 {
			return 0, fmt.Errorf("%w: field %d: packed floats length %d not a multiple of 4", ErrMalformed, num, len(packed))
		}
		out := *dst
		if cap(out)-len(out) < len(packed)/4 {
			grown := make([]float32, len(out), len(out)+len(packed)/4)
			copy(grown, out)
			out = grown
		}
		for len(packed) > 0 {
			v, m := protowire.ConsumeFixed32(packed)
			out = append(out, math.Float32frombits(v))
			packed = packed[m:]
		}
		*dst = out
		return n, nil
	default:
		return 0, wantType(num, typ, protowire.Fixed32Type)
	}
}

// appendDoubles reads a repeated double field in packed or unpacked form.
func appendDoubles(num protowire.Number, typ protowire.Type, b []byte, dst *[]float64) (int, error) {
	switch typ {
	case protowire.Fixed64Type:
		v, n := protowire.ConsumeFixed64(b)
		if n >= 0 {
			*dst = append(*dst, math.Float64frombits(v))
		}
		return n, nil
	case protowire.BytesType:
		packed, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return n, nil
		}
		if len(packed)%8 != 0 {
			return 0, fmt.Errorf("%w: field %d: packed doubles length %d not a multiple of 8", ErrMalformed, num, len(packed))
		}
		for len(packed) > 0 {
			v, m := protowire.ConsumeFixed64(packed)
			*dst = append(*dst, math.Float64frombits(v))
			packed = packed[m:]
		}
		return n, nil
	default:
		return 0, wantType(num, typ, protowire.Fixed64Type)
	}
}

// appendInt64s reads a repeated int64 field in packed or unpacked form.
func appendInt64s(num protowire.Number, typ protowire.Type, b []byte, dst *[]int64) (int, error) {
	switch typ {
	case protowire.VarintType:
		v, n := protowire.ConsumeVarint(b)
		if n >= 0 {
			*dst = append(*dst, int64(v))
		}
		return n, nil
	case protowire.BytesType:
		packed, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return n, nil
		}
		for len(packed) > 0 {
			v, m := protowire.ConsumeVarint(packed)
			if m < 0 {
				return m, nil
			}
			*dst = append(*dst, int64(v))
			packed = packed[m:]
		}
		return n, nil
	default:
		return 0, wantType(num, typ, protowire.VarintType)
	}
}
