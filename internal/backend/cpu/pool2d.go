package cpu

import (
	"fmt"
	"math"

	"github.com/abrosua/pytorch-caffe/internal/parallel"
	"github.com/abrosua/pytorch-caffe/internal/tensor"
)

// Pool2D performs 2D max or average pooling with Caffe window semantics.
//
// Input shape:  [batch, channels, height, width]
// Output shape: [batch, channels, p.OutH, p.OutW]
//
// The output extent is taken from p (the graph decides it once at build
// time). When OutH/OutW are zero, the Caffe ceil-mode extent is used:
//
//	out = ceil((in + 2*pad - kernel) / stride) + 1
//
// minus one if the last window would start inside the padding.
//
// Windows are clipped to the input. For average pooling the divisor counts
// the window clipped to the padded input, so padding contributes zeros.
//
// Example (2x2 max pool, stride=2):
//
//	Input: [[1,2,3,4],    Output: [[6,8],
//	        [5,6,7,8],             [14,16]]
//	        [9,10,11,12],
//	        [13,14,15,16]]
func (cpu *CPUBackend) Pool2D(input *tensor.RawTensor, p tensor.PoolParams) (*tensor.RawTensor, error) {
	N, C, H, W, err := require4D("pool2d", input)
	if err != nil {
		return nil, err
	}
	if p.Kernel <= 0 {
		return nil, fmt.Errorf("pool2d: invalid kernel size %d", p.Kernel)
	}
	if p.Stride <= 0 {
		return nil, fmt.Errorf("pool2d: invalid stride %d", p.Stride)
	}
	if p.Pad < 0 || p.Pad >= p.Kernel {
		return nil, fmt.Errorf("pool2d: pad %d must be in [0, kernel %d)", p.Pad, p.Kernel)
	}

	HOut, WOut := p.OutH, p.OutW
	if HOut <= 0 || WOut <= 0 {
		HOut = ceilPoolExtent(H, p.Kernel, p.Stride, p.Pad)
		WOut = ceilPoolExtent(W, p.Kernel, p.Stride, p.Pad)
	}
	if HOut <= 0 || WOut <= 0 {
		return nil, fmt.Errorf("pool2d: invalid output dimensions %dx%d (kernel=%d, stride=%d, input=%dx%d)",
			HOut, WOut, p.Kernel, p.Stride, H, W)
	}

	output, err := tensor.NewRaw(tensor.Shape{N, C, HOut, WOut})
	if err != nil {
		return nil, fmt.Errorf("pool2d: failed to create output: %w", err)
	}

	var kernel func(out, in []float32, lo, hi, H, W, HOut, WOut int, p tensor.PoolParams)
	switch p.Method {
	case tensor.PoolMax:
		kernel = maxpool2d
	case tensor.PoolAverage:
		kernel = avgpool2d
	default:
		return nil, fmt.Errorf("pool2d: unsupported method %v", p.Method)
	}

	out, in := output.Data(), input.Data()
	parallel.For(cpu.par.WithMinChunk(poolChunk), N*C, func(lo, hi int) {
		kernel(out, in, lo, hi, H, W, HOut, WOut, p)
	})
	return output, nil
}

// poolChunk is the fewest channel planes worth a goroutine.
const poolChunk = 16

// ceilPoolExtent is Caffe's default pooled extent.
func ceilPoolExtent(in, kernel, stride, pad int) int {
	out := int(math.Ceil(float64(in+2*pad-kernel)/float64(stride))) + 1
	if pad > 0 && (out-1)*stride >= in+pad {
		out--
	}
	return out
}

// maxpool2d takes the maximum of every clipped window. A window lying
// entirely in the padding yields zero.
func maxpool2d(out, in []float32, lo, hi, H, W, HOut, WOut int, p tensor.PoolParams) {
	for pl := lo; pl < hi; pl++ {
		// Pre-slice channel plane: eliminates pl*H*W bounds check
		channelData := in[pl*H*W : (pl+1)*H*W]
		dst := out[pl*HOut*WOut : (pl+1)*HOut*WOut]

		for outH := 0; outH < HOut; outH++ {
			hStart := outH*p.Stride - p.Pad
			hEnd := min(hStart+p.Kernel, H)
			hStart = max(hStart, 0)

			for outW := 0; outW < WOut; outW++ {
				wStart := outW*p.Stride - p.Pad
				wEnd := min(wStart+p.Kernel, W)
				wStart = max(wStart, 0)

				if hStart >= hEnd || wStart >= wEnd {
					dst[outH*WOut+outW] = 0
					continue
				}

				maxVal := float32(-math.MaxFloat32)
				for h := hStart; h < hEnd; h++ {
					rowData := channelData[h*W : h*W+W]
					for w := wStart; w < wEnd; w++ {
						if rowData[w] > maxVal {
							maxVal = rowData[w]
						}
					}
				}
				dst[outH*WOut+outW] = maxVal
			}
		}
	}
}

// avgpool2d averages every window; the divisor is the window size clipped
// to the padded input.
func avgpool2d(out, in []float32, lo, hi, H, W, HOut, WOut int, p tensor.PoolParams) {
	for pl := lo; pl < hi; pl++ {
		channelData := in[pl*H*W : (pl+1)*H*W]
		dst := out[pl*HOut*WOut : (pl+1)*HOut*WOut]

		for outH := 0; outH < HOut; outH++ {
			hStart := outH*p.Stride - p.Pad
			hEnd := min(hStart+p.Kernel, H+p.Pad)
			poolH := hEnd - hStart
			hStart = max(hStart, 0)
			hEnd = min(hEnd, H)

			for outW := 0; outW < WOut; outW++ {
				wStart := outW*p.Stride - p.Pad
				wEnd := min(wStart+p.Kernel, W+p.Pad)
				poolSize := poolH * (wEnd - wStart)
				wStart = max(wStart, 0)
				wEnd = min(wEnd, W)

				sum := float32(0)
				for h := hStart; h < hEnd; h++ {
					rowData := channelData[h*W : h*W+W]
					for w := wStart; w < wEnd; w++ {
						sum += rowData[w]
					}
				}
				if poolSize > 0 {
					dst[outH*WOut+outW] = sum / float32(poolSize)
				}
			}
		}
	}
}
