package caffe

import (
	"fmt"
	"sort"

	"github.com/abrosua/pytorch-caffe/internal/caffe/layers"
	"github.com/abrosua/pytorch-caffe/internal/tensor"
)

// Blobs maps blob names to the tensors one execution produced.
type Blobs map[string]*tensor.RawTensor

// Names returns the blob names in sorted order.
func (b Blobs) Names() []string {
	names := make([]string, 0, len(b))
	for name := range b {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute runs every entry in order over a fresh blob store seeded with
// the input (minus the mean image, when one is set) and returns the whole
// store. Blobs reused in place hold their last value.
func (n *Net) Execute(input *tensor.RawTensor) (Blobs, error) {
	if input == nil {
		return nil, fmt.Errorf("execute: nil input")
	}
	shape := input.Shape()
	if len(shape) != 4 || shape[1] != n.input.Channels {
		return nil, fmt.Errorf("execute: input %v does not match [N, %d, H, W]", shape, n.input.Channels)
	}

	data := input
	if n.mean != nil {
		var err error
		if data, err = n.mean.subtract(n.backend, input); err != nil {
			return nil, fmt.Errorf("execute: mean subtraction: %w", err)
		}
	}

	blobs := Blobs{DataBlob: data}
	if name := n.topo.Input.Name; name != DataBlob {
		blobs[name] = data
	}

	ctx := &layers.Context{Backend: n.backend}
	for i := range n.graph.Entries {
		e := &n.graph.Entries[i]
		if e.Kind.IsMetadata() {
			continue
		}

		inputs := make([]*tensor.RawTensor, len(e.Bottoms))
		for j, name := range e.Bottoms {
			t, ok := blobs[name]
			if !ok {
				return nil, &layers.StructuralError{
					Layer: e.Name, Kind: e.Kind, Err: layers.ErrUndefinedBlob,
					Details: fmt.Sprintf("bottom %q", name),
				}
			}
			inputs[j] = t
		}

		outputs, err := e.Op.Forward(ctx, inputs)
		if err != nil {
			return nil, fmt.Errorf("layer %q (%v): %w", e.Name, e.Kind, err)
		}
		if len(outputs) != len(e.Tops) {
			return nil, &layers.StructuralError{
				Layer: e.Name, Kind: e.Kind, Err: layers.ErrOutputCount,
				Details: fmt.Sprintf("produced %d outputs for %d tops", len(outputs), len(e.Tops)),
			}
		}
		for j, name := range e.Tops {
			blobs[name] = outputs[j]
		}
	}
	return blobs, nil
}
