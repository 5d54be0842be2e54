package layers

import (
	"fmt"

	"github.com/abrosua/pytorch-caffe/internal/tensor"
)

// Axes of an NCHW blob that Concat supports.
const (
	channelAxis = 1
	heightAxis  = 2
)

// Eltwise folds its inputs with one element-wise operator.
type Eltwise struct {
	op
	Params EltwiseParams
}

// Kind implements Operation.
func (e *Eltwise) Kind() Kind { return KindEltwise }

// Forward implements Operation.
func (e *Eltwise) Forward(ctx *Context, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) < 2 {
		return nil, fmt.Errorf("%v: %w: got %d inputs, want at least 2", e.Kind(), ErrInputCount, len(inputs))
	}
	return one(ctx.Backend.Eltwise(e.Params.Op, e.Params.Coeffs, inputs))
}

func (e *Eltwise) String() string {
	return fmt.Sprintf("Eltwise %v", e.Params.Op)
}

// Concat joins its inputs along one axis.
type Concat struct {
	op
	Params ConcatParams
}

// Kind implements Operation.
func (c *Concat) Kind() Kind { return KindConcat }

// Forward implements Operation.
func (c *Concat) Forward(ctx *Context, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%v: %w: no inputs", c.Kind(), ErrInputCount)
	}
	return one(ctx.Backend.Concat(inputs, c.Params.Axis))
}

func (c *Concat) String() string {
	return fmt.Sprintf("Concat(axis=%d)", c.Params.Axis)
}

// Slice cuts its input into contiguous channel ranges, one per output.
type Slice struct {
	op
	Params  SliceParams
	Outputs int
}

// Kind implements Operation.
func (s *Slice) Kind() Kind { return KindSlice }

// sizes returns the extent of every piece for an axis of length n.
func (s *Slice) sizes(n int) ([]int, error) {
	if len(s.Params.Points) == 0 {
		if n%s.Outputs != 0 {
			return nil, fmt.Errorf("%w: %d channels do not split evenly into %d outputs", ErrInvalidParam, n, s.Outputs)
		}
		sizes := make([]int, s.Outputs)
		for i := range sizes {
			sizes[i] = n / s.Outputs
		}
		return sizes, nil
	}

	sizes := make([]int, 0, len(s.Params.Points)+1)
	prev := 0
	for _, p := range append(append([]int(nil), s.Params.Points...), n) {
		if p <= prev {
			return nil, fmt.Errorf("%w: slice points %v do not partition %d channels", ErrInvalidParam, s.Params.Points, n)
		}
		sizes = append(sizes, p-prev)
		prev = p
	}
	return sizes, nil
}

// Forward implements Operation.
func (s *Slice) Forward(ctx *Context, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := wantInputs(s.Kind(), inputs, 1); err != nil {
		return nil, err
	}
	sizes, err := s.sizes(inputs[0].Dim(s.Params.Axis))
	if err != nil {
		return nil, fmt.Errorf("slice: %w", err)
	}
	return ctx.Backend.Split(inputs[0], s.Params.Axis, sizes)
}

func (s *Slice) String() string {
	return fmt.Sprintf("Slice(axis=%d, slice_points=%v)", s.Params.Axis, s.Params.Points)
}
