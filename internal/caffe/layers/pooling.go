package layers

import (
	"fmt"

	"github.com/abrosua/pytorch-caffe/internal/tensor"
)

// Pooling is max or average pooling over square windows.
type Pooling struct {
	op
	Params PoolingParams
}

// poolingExtent is the pooled size of one spatial axis. Strided pooling
// adds one before dividing, which reproduces Caffe's ceil-mode extents for
// the stride-2 windows common in image networks. Unit stride is exact.
func poolingExtent(in, kernel, stride, pad int) int {
	const ceilCorrection = 1
	if stride > 1 {
		return (in+2*pad-kernel+ceilCorrection)/stride + 1
	}
	return in + 2*pad - kernel + 1
}

// Kind implements Operation.
func (p *Pooling) Kind() Kind { return KindPooling }

// window returns the backend parameters for an input of size h x w. The
// output extent always comes from poolingExtent so run time agrees with
// the shapes recorded while building.
func (p *Pooling) window(h, w int) tensor.PoolParams {
	if p.Params.Global {
		return tensor.PoolParams{Method: p.Params.Method, Kernel: max(h, w), Stride: 1, OutH: 1, OutW: 1}
	}
	k, s, pad := p.Params.KernelSize, p.Params.Stride, p.Params.Pad
	return tensor.PoolParams{
		Method: p.Params.Method,
		Kernel: k,
		Stride: s,
		Pad:    pad,
		OutH:   poolingExtent(h, k, s, pad),
		OutW:   poolingExtent(w, k, s, pad),
	}
}

// Forward implements Operation.
func (p *Pooling) Forward(ctx *Context, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := wantInputs(p.Kind(), inputs, 1); err != nil {
		return nil, err
	}
	x := inputs[0]
	if len(x.Shape()) != 4 {
		return nil, fmt.Errorf("pooling: input must be 4D [N,C,H,W], got %v", x.Shape())
	}
	return one(ctx.Backend.Pool2D(x, p.window(x.Dim(2), x.Dim(3))))
}

func (p *Pooling) String() string {
	name := "MaxPool2d"
	if p.Params.Method == tensor.PoolAverage {
		name = "AvgPool2d"
	}
	if p.Params.Global {
		return name + "(global)"
	}
	return fmt.Sprintf("%s(kernel_size=%d, stride=%d, padding=%d, ceil_mode=True)",
		name, p.Params.KernelSize, p.Params.Stride, p.Params.Pad)
}
