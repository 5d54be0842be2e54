package cpu

import (
	"fmt"
	"math"

	"github.com/abrosua/pytorch-caffe/internal/tensor"
)

// BatchNorm normalizes every channel with frozen running statistics:
//
//	y = (x - mean[c]) / sqrt(variance[c] + eps)
//
// There is no affine part; Caffe pairs BatchNorm with a following Scale.
func (cpu *CPUBackend) BatchNorm(input, mean, variance *tensor.RawTensor, eps float32) (*tensor.RawTensor, error) {
	N, C, spatial, err := channelLayout("batchnorm", input)
	if err != nil {
		return nil, err
	}
	if err := requireChannels("batchnorm", "mean", mean, C); err != nil {
		return nil, err
	}
	if err := requireChannels("batchnorm", "variance", variance, C); err != nil {
		return nil, err
	}

	result, err := tensor.NewRaw(input.Shape())
	if err != nil {
		return nil, fmt.Errorf("batchnorm: %w", err)
	}

	src, dst := input.Data(), result.Data()
	mu, v := mean.Data(), variance.Data()
	for n := 0; n < N; n++ {
		for c := 0; c < C; c++ {
			inv := float32(1 / math.Sqrt(float64(v[c]+eps)))
			off := (n*C + c) * spatial
			for i := off; i < off+spatial; i++ {
				dst[i] = (src[i] - mu[c]) * inv
			}
		}
	}
	return result, nil
}

// ScaleShift applies a per-channel affine transform broadcast over the
// spatial extent: y = x * scale[c] + shift[c]. shift may be nil.
func (cpu *CPUBackend) ScaleShift(input, scale, shift *tensor.RawTensor) (*tensor.RawTensor, error) {
	N, C, spatial, err := channelLayout("scale", input)
	if err != nil {
		return nil, err
	}
	if err := requireChannels("scale", "scale", scale, C); err != nil {
		return nil, err
	}
	if shift != nil {
		if err := requireChannels("scale", "shift", shift, C); err != nil {
			return nil, err
		}
	}

	result, err := tensor.NewRaw(input.Shape())
	if err != nil {
		return nil, fmt.Errorf("scale: %w", err)
	}

	src, dst := input.Data(), result.Data()
	s := scale.Data()
	for n := 0; n < N; n++ {
		for c := 0; c < C; c++ {
			b := float32(0)
			if shift != nil {
				b = shift.Data()[c]
			}
			off := (n*C + c) * spatial
			for i := off; i < off+spatial; i++ {
				dst[i] = src[i]*s[c] + b
			}
		}
	}
	return result, nil
}

// Normalize performs L2 normalization across channels at every spatial
// position, then rescales each channel:
//
//	y[c] = x[c] / (sqrt(sum_c' x[c']^2) + eps) * scale[c]
func (cpu *CPUBackend) Normalize(input, scale *tensor.RawTensor, eps float32) (*tensor.RawTensor, error) {
	N, C, spatial, err := channelLayout("normalize", input)
	if err != nil {
		return nil, err
	}
	if err := requireChannels("normalize", "scale", scale, C); err != nil {
		return nil, err
	}

	result, err := tensor.NewRaw(input.Shape())
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}

	src, dst := input.Data(), result.Data()
	s := scale.Data()
	for n := 0; n < N; n++ {
		base := n * C * spatial
		for i := 0; i < spatial; i++ {
			sumSq := float64(0)
			for c := 0; c < C; c++ {
				v := float64(src[base+c*spatial+i])
				sumSq += v * v
			}
			norm := float32(math.Sqrt(sumSq)) + eps
			for c := 0; c < C; c++ {
				idx := base + c*spatial + i
				dst[idx] = src[idx] / norm * s[c]
			}
		}
	}
	return result, nil
}

// LRN performs local response normalization across neighbouring channels:
//
//	y[c] = x[c] * (k + alpha/size * sum_{c' in window(c)} x[c']^2)^(-beta)
//
// The window spans size channels starting (size-1)/2 below c, clipped to
// the channel range.
func (cpu *CPUBackend) LRN(input *tensor.RawTensor, p tensor.LRNParams) (*tensor.RawTensor, error) {
	N, C, spatial, err := channelLayout("lrn", input)
	if err != nil {
		return nil, err
	}
	if p.Size <= 0 {
		return nil, fmt.Errorf("lrn: invalid local size %d", p.Size)
	}

	result, err := tensor.NewRaw(input.Shape())
	if err != nil {
		return nil, fmt.Errorf("lrn: %w", err)
	}

	src, dst := input.Data(), result.Data()
	prePad := (p.Size - 1) / 2
	alphaOverSize := float64(p.Alpha) / float64(p.Size)
	for n := 0; n < N; n++ {
		base := n * C * spatial
		for c := 0; c < C; c++ {
			lo := max(c-prePad, 0)
			hi := min(c-prePad+p.Size, C)
			for i := 0; i < spatial; i++ {
				sumSq := float64(0)
				for cc := lo; cc < hi; cc++ {
					v := float64(src[base+cc*spatial+i])
					sumSq += v * v
				}
				scale := float64(p.K) + alphaOverSize*sumSq
				idx := base + c*spatial + i
				dst[idx] = src[idx] * float32(math.Pow(scale, -float64(p.Beta)))
			}
		}
	}
	return result, nil
}
