package layers

import (
	"fmt"

	"github.com/abrosua/pytorch-caffe/internal/tensor"
)

// Convolution is a grouped 2D convolution.
type Convolution struct {
	op
	Params     ConvolutionParams
	InChannels int

	Weight *tensor.RawTensor // [out, in/group, k, k]
	Bias   *tensor.RawTensor // [out], nil without bias_term
}

func newConvolution(p ConvolutionParams, inChannels int) *Convolution {
	c := &Convolution{
		Params:     p,
		InChannels: inChannels,
		Weight:     filled(tensor.Shape{p.NumOutput, inChannels / p.Group, p.KernelSize, p.KernelSize}, 0),
	}
	if p.BiasTerm {
		c.Bias = filled(tensor.Shape{p.NumOutput}, 0)
	}
	return c
}

// Kind implements Operation.
func (c *Convolution) Kind() Kind { return KindConvolution }

// Forward implements Operation.
func (c *Convolution) Forward(ctx *Context, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := wantInputs(c.Kind(), inputs, 1); err != nil {
		return nil, err
	}
	return one(ctx.Backend.Conv2D(inputs[0], c.Weight, c.Bias, tensor.ConvParams{
		Stride: c.Params.Stride,
		Pad:    c.Params.Pad,
		Groups: c.Params.Group,
	}))
}

func (c *Convolution) String() string {
	return fmt.Sprintf("Convolution(%d, %d, kernel_size=%d, stride=%d, padding=%d, groups=%d, bias=%t)",
		c.InChannels, c.Params.NumOutput, c.Params.KernelSize, c.Params.Stride, c.Params.Pad, c.Params.Group, c.Params.BiasTerm)
}

// Linear is a dense map y = x W^T + b.
type Linear struct {
	In, Out int
	Weight  *tensor.RawTensor // [out, in]
	Bias    *tensor.RawTensor // [out], nil without bias_term
}

func newLinear(in, out int, bias bool) *Linear {
	l := &Linear{In: in, Out: out, Weight: filled(tensor.Shape{out, in}, 0)}
	if bias {
		l.Bias = filled(tensor.Shape{out}, 0)
	}
	return l
}

// InnerProduct is a fully connected layer. When its input still has
// spatial extent it first flattens every sample into one feature axis;
// the parameters then live on the Linear sub-unit either way.
type InnerProduct struct {
	op
	Flatten bool
	Linear  *Linear
}

// Kind implements Operation.
func (ip *InnerProduct) Kind() Kind { return KindInnerProduct }

// Forward implements Operation.
func (ip *InnerProduct) Forward(ctx *Context, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := wantInputs(ip.Kind(), inputs, 1); err != nil {
		return nil, err
	}
	x := inputs[0]
	if ip.Flatten && len(x.Shape()) != 2 {
		var err error
		if x, err = ctx.Backend.Reshape(x, tensor.Shape{x.Dim(0), -1}); err != nil {
			return nil, fmt.Errorf("inner product flatten: %w", err)
		}
	}
	return one(ctx.Backend.Linear(x, ip.Linear.Weight, ip.Linear.Bias))
}

func (ip *InnerProduct) String() string {
	linear := fmt.Sprintf("Linear(in_features=%d, out_features=%d, bias=%t)", ip.Linear.In, ip.Linear.Out, ip.Linear.Bias != nil)
	if ip.Flatten {
		return "Sequential(view(nB, -1), " + linear + ")"
	}
	return linear
}
