package caffemodel

// Caffe protobuf data structures (the subset inference needs).

// NetParameter is a serialized network: a trained .caffemodel or a
// binary net definition.
type NetParameter struct {
	Name         string           // Network name
	Inputs       []string         // Declared input blob names
	InputDims    []int64          // Legacy flat input_dim list
	InputShapes  [][]int64        // input_shape entries
	Layers       []LayerParameter // Current-format layers (field "layer")
	LegacyLayers []LayerParameter // V1 layers (field "layers"), Legacy set
}

// LayerParameter is one layer record. V1 records carry their enum type
// name (e.g. "CONVOLUTION") in Type.
type LayerParameter struct {
	Name    string      // Layer name
	Type    string      // Layer type string
	Bottoms []string    // Input blob names
	Tops    []string    // Output blob names
	Blobs   []BlobProto // Learned parameters in declaration order
	Legacy  bool        // Decoded from a V1LayerParameter
}

// BlobProto is a dense float array with its shape.
type BlobProto struct {
	Shape    []int64   // BlobShape dims (current format)
	Num      int32     // Legacy 4D shape
	Channels int32
	Height   int32
	Width    int32
	Data     []float32 // Values; double_data is narrowed to float32
}

// Dims returns the blob's shape: the explicit shape when present,
// otherwise the legacy (num, channels, height, width) quadruple. A blob
// with neither returns nil.
func (b *BlobProto) Dims() []int {
	if len(b.Shape) > 0 {
		dims := make([]int, len(b.Shape))
		for i, d := range b.Shape {
			dims[i] = int(d)
		}
		return dims
	}
	if b.Num == 0 && b.Channels == 0 && b.Height == 0 && b.Width == 0 {
		return nil
	}
	return []int{int(b.Num), int(b.Channels), int(b.Height), int(b.Width)}
}

// Count returns the number of values.
func (b *BlobProto) Count() int {
	return len(b.Data)
}

// LayerRecords returns the records weights should be read from: the
// current-format list, or the V1 list when the former is empty.
func (n *NetParameter) LayerRecords() []LayerParameter {
	if len(n.Layers) > 0 {
		return n.Layers
	}
	return n.LegacyLayers
}

// Field numbers from caffe.proto.
const (
	netName       = 1
	netLayers     = 2 // V1
	netInput      = 3
	netInputDim   = 4
	netInputShape = 8
	netLayer      = 100

	layerName   = 1
	layerType   = 2
	layerBottom = 3
	layerTop    = 4
	layerBlobs  = 7

	v1Bottom = 2
	v1Top    = 3
	v1Name   = 4
	v1Type   = 5
	v1Blobs  = 6

	blobNum        = 1
	blobChannels   = 2
	blobHeight     = 3
	blobWidth      = 4
	blobData       = 5
	blobDiff       = 6
	blobShape      = 7
	blobDoubleData = 8

	shapeDim = 1
)
