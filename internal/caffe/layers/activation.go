package layers

import (
	"fmt"

	"github.com/abrosua/pytorch-caffe/internal/tensor"
)

// ReLU is the rectifier, leaky when NegativeSlope is non-zero.
type ReLU struct {
	op
	Params ReLUParams
}

// Kind implements Operation.
func (r *ReLU) Kind() Kind { return KindReLU }

// Forward implements Operation.
func (r *ReLU) Forward(ctx *Context, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := wantInputs(r.Kind(), inputs, 1); err != nil {
		return nil, err
	}
	return one(ctx.Backend.ReLU(inputs[0], r.Params.NegativeSlope))
}

func (r *ReLU) String() string {
	if r.Params.NegativeSlope != 0 {
		return fmt.Sprintf("LeakyReLU(negative_slope=%g)", r.Params.NegativeSlope)
	}
	return "ReLU()"
}

// Softmax normalizes along one axis.
type Softmax struct {
	op
	Params SoftmaxParams
}

// Kind implements Operation.
func (s *Softmax) Kind() Kind { return KindSoftmax }

// Forward implements Operation.
func (s *Softmax) Forward(ctx *Context, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := wantInputs(s.Kind(), inputs, 1); err != nil {
		return nil, err
	}
	return one(ctx.Backend.Softmax(inputs[0], s.Params.Axis))
}

func (s *Softmax) String() string {
	return fmt.Sprintf("Softmax(axis=%d)", s.Params.Axis)
}

// Dropout is the identity at inference time.
type Dropout struct {
	op
	Params DropoutParams
}

// Kind implements Operation.
func (d *Dropout) Kind() Kind { return KindDropout }

// Forward implements Operation.
func (d *Dropout) Forward(_ *Context, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := wantInputs(d.Kind(), inputs, 1); err != nil {
		return nil, err
	}
	return []*tensor.RawTensor{inputs[0]}, nil
}

func (d *Dropout) String() string {
	return fmt.Sprintf("Dropout(p=%g)", d.Params.Ratio)
}

// SoftmaxWithLoss records a training loss in the graph. It is a metadata
// kind and is never executed.
type SoftmaxWithLoss struct {
	op
}

// Kind implements Operation.
func (l *SoftmaxWithLoss) Kind() Kind { return KindSoftmaxWithLoss }

// Forward always fails; losses need labels and only exist for training.
func (l *SoftmaxWithLoss) Forward(_ *Context, _ []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	return nil, fmt.Errorf("%v: %w: loss layers are not executable", l.Kind(), ErrUnsupportedKind)
}

func (l *SoftmaxWithLoss) String() string {
	return "CrossEntropyLoss()"
}
