package layers

import (
	"fmt"

	"github.com/abrosua/pytorch-caffe/internal/tensor"
)

// Permute reorders the four axes of an NCHW blob.
type Permute struct {
	op
	Params PermuteParams
}

// Kind implements Operation.
func (p *Permute) Kind() Kind { return KindPermute }

// Forward implements Operation.
func (p *Permute) Forward(ctx *Context, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := wantInputs(p.Kind(), inputs, 1); err != nil {
		return nil, err
	}
	return one(ctx.Backend.Permute(inputs[0], p.Params.Order))
}

func (p *Permute) String() string {
	o := p.Params.Order
	return fmt.Sprintf("Permute(%d, %d, %d, %d)", o[0], o[1], o[2], o[3])
}

// Flatten collapses every axis from Axis on into one.
type Flatten struct {
	op
	Params FlattenParams
}

// Kind implements Operation.
func (f *Flatten) Kind() Kind { return KindFlatten }

// Forward implements Operation.
func (f *Flatten) Forward(ctx *Context, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := wantInputs(f.Kind(), inputs, 1); err != nil {
		return nil, err
	}
	x := inputs[0]
	left := 1
	for i := 0; i < f.Params.Axis && i < len(x.Shape()); i++ {
		left *= x.Dim(i)
	}
	return one(ctx.Backend.Reshape(x, tensor.Shape{left, -1}))
}

func (f *Flatten) String() string {
	return fmt.Sprintf("Flatten(axis=%d)", f.Params.Axis)
}

// Reshape reinterprets a blob with new dimensions.
type Reshape struct {
	op
	Params ReshapeParams
}

// Kind implements Operation.
func (r *Reshape) Kind() Kind { return KindReshape }

// Forward implements Operation.
func (r *Reshape) Forward(ctx *Context, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := wantInputs(r.Kind(), inputs, 1); err != nil {
		return nil, err
	}
	x := inputs[0]
	shape := make(tensor.Shape, len(r.Params.Dims))
	for i, d := range r.Params.Dims {
		if d == 0 {
			if i >= len(x.Shape()) {
				return nil, fmt.Errorf("reshape: dim %d copies axis %d of %v", i, i, x.Shape())
			}
			d = x.Dim(i)
		}
		shape[i] = d
	}
	return one(ctx.Backend.Reshape(x, shape))
}

func (r *Reshape) String() string {
	return fmt.Sprintf("Reshape(dims=%v)", r.Params.Dims)
}
