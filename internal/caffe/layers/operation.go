package layers

import (
	"fmt"

	"github.com/abrosua/pytorch-caffe/internal/tensor"
)

// Context provides the backend operations run against.
type Context struct {
	Backend tensor.Backend
}

// Operation is the executable form of one layer. The set of
// implementations is closed: one type per supported kind.
type Operation interface {
	// Kind returns the layer kind the operation implements.
	Kind() Kind

	// Forward computes the operation's outputs, one per top blob.
	Forward(ctx *Context, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error)

	// String describes the operation and its hyperparameters.
	String() string

	operation()
}

// op is embedded by every Operation to seal the interface.
type op struct{}

func (op) operation() {}

func one(t *tensor.RawTensor, err error) ([]*tensor.RawTensor, error) {
	if err != nil {
		return nil, err
	}
	return []*tensor.RawTensor{t}, nil
}

func wantInputs(k Kind, inputs []*tensor.RawTensor, n int) error {
	if len(inputs) != n {
		return fmt.Errorf("%v: %w: got %d inputs, want %d", k, ErrInputCount, len(inputs), n)
	}
	return nil
}

func filled(shape tensor.Shape, v float32) *tensor.RawTensor {
	t, err := tensor.Full(shape, v)
	if err != nil {
		// buildUnary rejects inputs without channels before allocating.
		panic(err)
	}
	return t
}
