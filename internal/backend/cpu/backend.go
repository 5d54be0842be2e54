package cpu

import (
	"fmt"

	"github.com/abrosua/pytorch-caffe/internal/parallel"
	"github.com/abrosua/pytorch-caffe/internal/tensor"
)

// CPUBackend implements tensor.Backend in pure Go, with dense products
// delegated to gonum's float32 BLAS.
// Convolution and pooling spread images and channel planes over
// goroutines; every other kernel runs on the caller's goroutine.
type CPUBackend struct {
	par parallel.Config
}

// New creates a new CPU backend using every available CPU.
func New() *CPUBackend {
	return &CPUBackend{par: parallel.DefaultConfig()}
}

// NewWithConfig creates a CPU backend with explicit parallelism.
// parallel.Sequential() keeps every kernel on the calling goroutine.
func NewWithConfig(cfg parallel.Config) *CPUBackend {
	return &CPUBackend{par: cfg}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// require4D checks that x is an NCHW tensor and returns its dimensions.
func require4D(op string, x *tensor.RawTensor) (n, c, h, w int, err error) {
	shape := x.Shape()
	if len(shape) != 4 {
		return 0, 0, 0, 0, fmt.Errorf("%s: input must be 4D [N,C,H,W], got %v", op, shape)
	}
	return shape[0], shape[1], shape[2], shape[3], nil
}

// channelLayout views x as [N, C, spatial] where spatial collapses every
// axis after the channel axis. 2D inputs [N, C] have spatial extent 1.
func channelLayout(op string, x *tensor.RawTensor) (n, c, spatial int, err error) {
	shape := x.Shape()
	if len(shape) < 2 {
		return 0, 0, 0, fmt.Errorf("%s: input must have a channel axis, got %v", op, shape)
	}
	spatial = 1
	for _, d := range shape[2:] {
		spatial *= d
	}
	return shape[0], shape[1], spatial, nil
}

// requireChannels checks that a per-channel parameter has c elements.
func requireChannels(op, what string, p *tensor.RawTensor, c int) error {
	if p == nil {
		return fmt.Errorf("%s: %s is nil", op, what)
	}
	if p.NumElements() != c {
		return fmt.Errorf("%s: %s has %d elements, input has %d channels", op, what, p.NumElements(), c)
	}
	return nil
}
