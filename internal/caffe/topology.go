package caffe

import (
	"fmt"

	"github.com/abrosua/pytorch-caffe/internal/caffe/layers"
	"github.com/abrosua/pytorch-caffe/internal/prototxt"
)

// DataBlob is the blob every network reads its input from.
const DataBlob = "data"

// InputSpec describes the network input.
type InputSpec struct {
	Name string // Declared input blob name, DataBlob when undeclared
	Dims []int  // [batch, channels, height, width]
}

// Channels returns the channel extent of the input.
func (s InputSpec) Channels() int { return s.Dims[1] }

// Height returns the input height.
func (s InputSpec) Height() int { return s.Dims[2] }

// Width returns the input width.
func (s InputSpec) Width() int { return s.Dims[3] }

// Topology is a parsed network description. Layers keep file order, which
// is also execution order.
type Topology struct {
	Name     string
	Input    InputSpec
	MeanFile string
	Layers   []*layers.LayerRecord
}

// ParseTopologyFile reads and parses a .prototxt network description.
func ParseTopologyFile(path string) (*Topology, error) {
	msg, err := prototxt.ParseFile(path)
	if err != nil {
		return nil, err
	}
	return NewTopology(msg)
}

// ParseTopology parses network description text.
func ParseTopology(src string) (*Topology, error) {
	msg, err := prototxt.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse topology: %w", err)
	}
	return NewTopology(msg)
}

// NewTopology builds a Topology from a parsed NetParameter message. Both
// the current "layer" and the V1 "layers" containers are read, in the
// order they appear. Layers restricted to the TRAIN phase are dropped.
func NewTopology(msg *prototxt.Message) (*Topology, error) {
	topo := &Topology{}
	var err error
	if topo.Name, err = msg.String("name", ""); err != nil {
		return nil, topologyError("name: %v", err)
	}
	if topo.MeanFile, err = msg.String("mean_file", ""); err != nil {
		return nil, topologyError("mean_file: %v", err)
	}

	seen := make(map[string]bool)
	for _, f := range msg.Fields {
		if f.Name != "layer" && f.Name != "layers" {
			continue
		}
		if !f.Value.IsMessage() {
			return nil, topologyError("line %d: %s must be a message", f.Line, f.Name)
		}
		rec, keep, err := newLayerRecord(f.Value.Message)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", f.Line, err)
		}
		if !keep {
			continue
		}
		if rec.Name != "" {
			if seen[rec.Name] {
				return nil, &layers.StructuralError{
					Layer: rec.Name, Kind: rec.Kind, Err: layers.ErrInvalidParam,
					Details: fmt.Sprintf("line %d: duplicate layer name", f.Line),
				}
			}
			seen[rec.Name] = true
		}
		topo.Layers = append(topo.Layers, rec)
	}

	input, err := inputSpec(msg, topo.Layers)
	if err != nil {
		return nil, err
	}
	topo.Input = input
	return topo, nil
}

func newLayerRecord(msg *prototxt.Message) (*layers.LayerRecord, bool, error) {
	name, err := msg.String("name", "")
	if err != nil {
		return nil, false, topologyError("layer name: %v", err)
	}
	typ, err := msg.String("type", "")
	if err != nil {
		return nil, false, topologyError("layer %q type: %v", name, err)
	}
	if typ == "" {
		return nil, false, topologyError("layer %q has no type", name)
	}
	bottoms, err := msg.Strings("bottom")
	if err != nil {
		return nil, false, topologyError("layer %q bottom: %v", name, err)
	}
	tops, err := msg.Strings("top")
	if err != nil {
		return nil, false, topologyError("layer %q top: %v", name, err)
	}
	keep, err := inferencePhase(msg)
	if err != nil {
		return nil, false, topologyError("layer %q: %v", name, err)
	}
	return &layers.LayerRecord{
		Name:    name,
		Type:    typ,
		Kind:    layers.ParseKind(typ),
		Bottoms: bottoms,
		Tops:    tops,
		Params:  msg,
	}, keep, nil
}

// inferencePhase reports whether a layer takes part in the TEST phase.
func inferencePhase(msg *prototxt.Message) (bool, error) {
	for _, rule := range msg.Messages("include") {
		phase, err := rule.String("phase", "")
		if err != nil {
			return false, err
		}
		if phase == "TRAIN" || phase == "0" {
			return false, nil
		}
	}
	for _, rule := range msg.Messages("exclude") {
		phase, err := rule.String("phase", "")
		if err != nil {
			return false, err
		}
		if phase == "TEST" || phase == "1" {
			return false, nil
		}
	}
	return true, nil
}

// inputSpec reads the input dims from input_shape, the flat input_dim
// list or an Input layer, in that order.
func inputSpec(msg *prototxt.Message, recs []*layers.LayerRecord) (InputSpec, error) {
	spec := InputSpec{Name: DataBlob}
	name, err := msg.String("input", DataBlob)
	if err != nil {
		return spec, topologyError("input: %v", err)
	}
	spec.Name = name

	var dims []int
	switch {
	case msg.Has("input_shape"):
		dims, err = msg.Message("input_shape").Ints("dim")
	case msg.Has("input_dim"):
		dims, err = msg.Ints("input_dim")
	default:
		for _, rec := range recs {
			if rec.Kind != layers.KindInput {
				continue
			}
			if len(rec.Tops) > 0 {
				spec.Name = rec.Tops[0]
			}
			dims, err = rec.Params.Message("input_param").Message("shape").Ints("dim")
			break
		}
	}
	if err != nil {
		return spec, topologyError("input dims: %v", err)
	}
	if len(dims) != 4 {
		return spec, topologyError("input dims %v: want [batch, channels, height, width]", dims)
	}
	for _, d := range dims {
		if d <= 0 {
			return spec, topologyError("input dims %v must be positive", dims)
		}
	}
	spec.Dims = dims
	return spec, nil
}

func topologyError(format string, args ...any) error {
	return &layers.StructuralError{Err: layers.ErrInvalidParam, Details: fmt.Sprintf(format, args...)}
}
