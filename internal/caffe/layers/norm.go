package layers

import (
	"fmt"

	"github.com/abrosua/pytorch-caffe/internal/tensor"
)

// BatchNorm normalizes with frozen running statistics and has no affine
// part; Caffe follows it with a Scale layer.
type BatchNorm struct {
	op
	Params   BatchNormParams
	Channels int

	Mean     *tensor.RawTensor // [channels]
	Variance *tensor.RawTensor // [channels]
}

func newBatchNorm(p BatchNormParams, channels int) *BatchNorm {
	return &BatchNorm{
		Params:   p,
		Channels: channels,
		Mean:     filled(tensor.Shape{channels}, 0),
		Variance: filled(tensor.Shape{channels}, 1),
	}
}

// Kind implements Operation.
func (bn *BatchNorm) Kind() Kind { return KindBatchNorm }

// Forward implements Operation.
func (bn *BatchNorm) Forward(ctx *Context, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := wantInputs(bn.Kind(), inputs, 1); err != nil {
		return nil, err
	}
	return one(ctx.Backend.BatchNorm(inputs[0], bn.Mean, bn.Variance, bn.Params.Eps))
}

func (bn *BatchNorm) String() string {
	return fmt.Sprintf("BatchNorm(%d, eps=%g, momentum=%g, affine=false)", bn.Channels, bn.Params.Eps, bn.Params.MovingAverageFraction)
}

// Scale is a learnable per-channel multiply and add.
type Scale struct {
	op
	Channels int

	Weight *tensor.RawTensor // [channels]
	Bias   *tensor.RawTensor // [channels], nil when bias_term is false
}

func newScale(p ScaleParams, channels int) *Scale {
	s := &Scale{Channels: channels, Weight: filled(tensor.Shape{channels}, 1)}
	if p.BiasTerm {
		s.Bias = filled(tensor.Shape{channels}, 0)
	}
	return s
}

// Kind implements Operation.
func (s *Scale) Kind() Kind { return KindScale }

// Forward implements Operation.
func (s *Scale) Forward(ctx *Context, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := wantInputs(s.Kind(), inputs, 1); err != nil {
		return nil, err
	}
	return one(ctx.Backend.ScaleShift(inputs[0], s.Weight, s.Bias))
}

func (s *Scale) String() string {
	return fmt.Sprintf("Scale(channels = %d)", s.Channels)
}

// Normalize is an L2 normalization across channels with a learnable
// per-channel rescale.
type Normalize struct {
	op
	Params   NormalizeParams
	Channels int

	Weight *tensor.RawTensor // [channels], or [1] when channel_shared
}

func newNormalize(p NormalizeParams, channels int) *Normalize {
	n := channels
	if p.ChannelShared {
		n = 1
	}
	return &Normalize{Params: p, Channels: channels, Weight: filled(tensor.Shape{n}, p.Scale)}
}

// Kind implements Operation.
func (n *Normalize) Kind() Kind { return KindNormalize }

// Forward implements Operation.
func (n *Normalize) Forward(ctx *Context, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := wantInputs(n.Kind(), inputs, 1); err != nil {
		return nil, err
	}
	scale := n.Weight
	if n.Params.ChannelShared {
		var err error
		if scale, err = tensor.Full(tensor.Shape{inputs[0].Dim(1)}, n.Weight.Data()[0]); err != nil {
			return nil, fmt.Errorf("normalize: %w", err)
		}
	}
	return one(ctx.Backend.Normalize(inputs[0], scale, n.Params.Eps))
}

func (n *Normalize) String() string {
	return fmt.Sprintf("Normalize(channels=%d, scale=%f)", n.Channels, n.Params.Scale)
}

// LRN is cross-channel local response normalization.
type LRN struct {
	op
	Params LRNParams
}

// Kind implements Operation.
func (l *LRN) Kind() Kind { return KindLRN }

// Forward implements Operation.
func (l *LRN) Forward(ctx *Context, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := wantInputs(l.Kind(), inputs, 1); err != nil {
		return nil, err
	}
	return one(ctx.Backend.LRN(inputs[0], tensor.LRNParams{
		Size:  l.Params.LocalSize,
		Alpha: l.Params.Alpha,
		Beta:  l.Params.Beta,
		K:     l.Params.K,
	}))
}

func (l *LRN) String() string {
	return fmt.Sprintf("LRN(size=%d, alpha=%f, beta=%f, k=%g)", l.Params.LocalSize, l.Params.Alpha, l.Params.Beta, l.Params.K)
}
