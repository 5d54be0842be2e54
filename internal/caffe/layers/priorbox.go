package layers

import (
	"fmt"

	"github.com/abrosua/pytorch-caffe/internal/tensor"
)

// PriorBox emits one fixed-size anchor box per feature map cell. The
// output depends only on the feature map and image sizes, never on their
// values.
//
// The result has shape [1, 2, 4*H*W]: row 0 holds the boxes as
// (xmin, ymin, xmax, ymax) in image-relative units, cells in row-major
// order (height outer), and row 1 holds the matching variances.
type PriorBox struct {
	op
	Params PriorBoxParams
}

// Kind implements Operation.
func (pb *PriorBox) Kind() Kind { return KindPriorBox }

// Forward implements Operation. inputs are the feature map and the image.
func (pb *PriorBox) Forward(_ *Context, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := wantInputs(pb.Kind(), inputs, 2); err != nil {
		return nil, err
	}
	for _, in := range inputs {
		if len(in.Shape()) != 4 {
			return nil, fmt.Errorf("priorbox: inputs must be 4D [N,C,H,W], got %v", in.Shape())
		}
	}
	return one(pb.Generate(inputs[0].Dim(2), inputs[0].Dim(3), inputs[1].Dim(2), inputs[1].Dim(3)))
}

// Generate lays out the boxes for a featH x featW map over an imgH x imgW
// image.
func (pb *PriorBox) Generate(featH, featW, imgH, imgW int) (*tensor.RawTensor, error) {
	n := 4 * featH * featW
	out, err := tensor.NewRaw(tensor.Shape{1, 2, n})
	if err != nil {
		return nil, fmt.Errorf("priorbox: %w", err)
	}

	stepW, stepH := pb.Params.Step, pb.Params.Step
	if stepW == 0 {
		stepW = float32(imgW) / float32(featW)
		stepH = float32(imgH) / float32(featH)
	}
	boxW := pb.Params.MinSize / float32(imgW)
	boxH := pb.Params.MinSize / float32(imgH)

	data := out.Data()
	boxes, variances := data[:n], data[n:]
	idx := 0
	for j := 0; j < featH; j++ {
		for i := 0; i < featW; i++ {
			cx := (float32(i) + pb.Params.Offset) * stepW / float32(imgW)
			cy := (float32(j) + pb.Params.Offset) * stepH / float32(imgH)
			box := [4]float32{cx - boxW/2, cy - boxH/2, cx + boxW/2, cy + boxH/2}
			for k, v := range box {
				if pb.Params.Clip {
					v = min(max(v, 0), 1)
				}
				boxes[idx+k] = v
				variances[idx+k] = pb.Params.Variances[k]
			}
			idx += 4
		}
	}
	return out, nil
}

func (pb *PriorBox) String() string {
	return fmt.Sprintf("PriorBox(min_size=%g, clip=%t, step=%g, offset=%f, variances=%v)",
		pb.Params.MinSize, pb.Params.Clip, pb.Params.Step, pb.Params.Offset, pb.Params.Variances)
}
