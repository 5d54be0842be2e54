package cpu

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/abrosua/pytorch-caffe/internal/parallel"
	"github.com/abrosua/pytorch-caffe/internal/tensor"
)

// Conv2D performs grouped 2D convolution using the im2col algorithm.
//
// Input shape:  [batch, in_channels, height, width]
// Weight shape: [out_channels, in_channels/groups, kernel_h, kernel_w]
// Bias shape:   [out_channels] (optional, may be nil)
// Output shape: [batch, out_channels, out_h, out_w]
//
// Where:
//
//	out_h = (height + 2*pad - kernel_h) / stride + 1
//	out_w = (width + 2*pad - kernel_w) / stride + 1
//
// Algorithm, for every image and group:
//  1. Im2col: unfold the group's input into [C_g*K_h*K_w, H_out*W_out]
//  2. GEMM: weight_g [C_out/g, C_g*K_h*K_w] @ col -> output_g [C_out/g, H_out*W_out]
//  3. Add bias per output channel
//
// The column buffer is laid out so that the GEMM result is already in NCHW
// order, which avoids the rearrangement pass.
func (cpu *CPUBackend) Conv2D(input, weight, bias *tensor.RawTensor, p tensor.ConvParams) (*tensor.RawTensor, error) {
	N, CIn, H, W, err := require4D("conv2d", input)
	if err != nil {
		return nil, err
	}
	wShape := weight.Shape()
	if len(wShape) != 4 {
		return nil, fmt.Errorf("conv2d: weight must be 4D [C_out,C_in/g,K_h,K_w], got %v", wShape)
	}

	groups := p.Groups
	if groups <= 0 {
		groups = 1
	}
	stride := p.Stride
	if stride <= 0 {
		stride = 1
	}
	pad := p.Pad

	COut, CInG, KH, KW := wShape[0], wShape[1], wShape[2], wShape[3]
	if CIn%groups != 0 || COut%groups != 0 {
		return nil, fmt.Errorf("conv2d: channels in=%d out=%d not divisible by groups=%d", CIn, COut, groups)
	}
	if CIn/groups != CInG {
		return nil, fmt.Errorf("conv2d: input channels %d / groups %d != weight channels %d", CIn, groups, CInG)
	}
	if bias != nil && bias.NumElements() != COut {
		return nil, fmt.Errorf("conv2d: bias has %d elements, want %d", bias.NumElements(), COut)
	}

	HOut := (H+2*pad-KH)/stride + 1
	WOut := (W+2*pad-KW)/stride + 1
	if HOut <= 0 || WOut <= 0 {
		return nil, fmt.Errorf("conv2d: invalid output dimensions: out_h=%d, out_w=%d (check stride/padding)", HOut, WOut)
	}

	output, err := tensor.NewRaw(tensor.Shape{N, COut, HOut, WOut})
	if err != nil {
		return nil, fmt.Errorf("conv2d: failed to create output tensor: %w", err)
	}

	inputData := input.Data()
	weightData := weight.Data()
	outputData := output.Data()

	COutG := COut / groups
	kdim := CInG * KH * KW
	spatial := HOut * WOut

	// One task per (image, group); each chunk owns its column buffer.
	parallel.For(cpu.par, N*groups, func(lo, hi int) {
		colBuf := make([]float32, kdim*spatial)
		for k := lo; k < hi; k++ {
			n, g := k/groups, k%groups
			inOffset := (n*CIn + g*CInG) * H * W
			im2col(colBuf, inputData[inOffset:inOffset+CInG*H*W], CInG, H, W, KH, KW, HOut, WOut, stride, pad)

			wOffset := g * COutG * kdim
			outOffset := (n*COut + g*COutG) * spatial
			blas32.Gemm(blas.NoTrans, blas.NoTrans, 1,
				blas32.General{Rows: COutG, Cols: kdim, Stride: kdim, Data: weightData[wOffset : wOffset+COutG*kdim]},
				blas32.General{Rows: kdim, Cols: spatial, Stride: spatial, Data: colBuf},
				0,
				blas32.General{Rows: COutG, Cols: spatial, Stride: spatial, Data: outputData[outOffset : outOffset+COutG*spatial]},
			)
		}
	})

	if bias != nil {
		addChannelBias(outputData, bias.Data(), N, COut, spatial)
	}

	return output, nil
}

// im2col unfolds one image (or one group of it) into the column matrix.
//
// Input:  [C, H, W]
// Output: colBuf [C * K_h * K_w, H_out * W_out]
//
// Row r = (c, kh, kw) holds, for every output position, the input value the
// kernel tap (kh, kw) of channel c sees there; padding reads as zero.
func im2col(colBuf, inputData []float32, C, H, W, KH, KW, HOut, WOut, stride, padding int) {
	row := 0
	for c := 0; c < C; c++ {
		plane := inputData[c*H*W : (c+1)*H*W]
		for kh := 0; kh < KH; kh++ {
			for kw := 0; kw < KW; kw++ {
				dst := colBuf[row*HOut*WOut : (row+1)*HOut*WOut]
				idx := 0
				for outH := 0; outH < HOut; outH++ {
					h := outH*stride - padding + kh
					for outW := 0; outW < WOut; outW++ {
						w := outW*stride - padding + kw
						if h >= 0 && h < H && w >= 0 && w < W {
							dst[idx] = plane[h*W+w]
						} else {
							dst[idx] = 0
						}
						idx++
					}
				}
				row++
			}
		}
	}
}

// addChannelBias adds bias[c] to every element of channel c.
func addChannelBias(data, bias []float32, n, c, spatial int) {
	for i := 0; i < n; i++ {
		for ch := 0; ch < c; ch++ {
			b := bias[ch]
			plane := data[(i*c+ch)*spatial : (i*c+ch+1)*spatial]
			for j := range plane {
				plane[j] += b
			}
		}
	}
}
