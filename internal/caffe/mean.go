package caffe

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/abrosua/pytorch-caffe/internal/caffemodel"
	"github.com/abrosua/pytorch-caffe/internal/tensor"
)

// meanImage is a mean image reduced to one value per channel.
type meanImage struct {
	means []float64
	ones  *tensor.RawTensor // [channels] of 1
	shift *tensor.RawTensor // [channels] of -mean
}

// SetMeanFile loads a .binaryproto mean image that Execute subtracts from
// every input. An empty path disables mean subtraction.
func (n *Net) SetMeanFile(path string) error {
	if path == "" {
		n.mean, n.meanFile = nil, ""
		return nil
	}
	blob, err := caffemodel.ParseBlobFile(path)
	if err != nil {
		return fmt.Errorf("failed to load mean file %s: %w", path, err)
	}
	if err := n.SetMeanBlob(blob); err != nil {
		return fmt.Errorf("mean file %s: %w", path, err)
	}
	n.meanFile = path
	n.logger.Info("mean file loaded", "path", path, "means", n.mean.means)
	return nil
}

// SetMeanBlob uses an already decoded mean image.
func (n *Net) SetMeanBlob(blob *caffemodel.BlobProto) error {
	m, err := newMeanImage(blob, n.input.Channels, n.input.Height, n.input.Width)
	if err != nil {
		return err
	}
	n.mean = m
	return nil
}

// MeanFile returns the active mean file, or "" when none is set.
func (n *Net) MeanFile() string {
	return n.meanFile
}

// Means returns the per-channel means being subtracted, or nil.
func (n *Net) Means() []float64 {
	if n.mean == nil {
		return nil
	}
	return append([]float64(nil), n.mean.means...)
}

// newMeanImage averages every channel plane of blob. The blob's own dims
// give the plane layout; a blob without dims is read with the network's
// input layout.
func newMeanImage(blob *caffemodel.BlobProto, channels, height, width int) (*meanImage, error) {
	c, h, w := channels, height, width
	if dims := blob.Dims(); len(dims) >= 3 {
		c, h, w = dims[len(dims)-3], dims[len(dims)-2], dims[len(dims)-1]
	}
	if c != channels {
		return nil, fmt.Errorf("mean image has %d channels, network input has %d", c, channels)
	}
	if c <= 0 || h <= 0 || w <= 0 {
		return nil, fmt.Errorf("mean image has invalid layout %dx%dx%d", c, h, w)
	}
	if blob.Count() != c*h*w {
		return nil, fmt.Errorf("mean image has %d values, want %d (%dx%dx%d)", blob.Count(), c*h*w, c, h, w)
	}

	plane := make([]float64, h*w)
	means := make([]float64, c)
	for ch := range means {
		for i, v := range blob.Data[ch*h*w : (ch+1)*h*w] {
			plane[i] = float64(v)
		}
		means[ch] = stat.Mean(plane, nil)
	}

	neg := append([]float64(nil), means...)
	floats.Scale(-1, neg)
	shift := make([]float32, c)
	for i, v := range neg {
		shift[i] = float32(v)
	}

	m := &meanImage{means: means}
	var err error
	if m.ones, err = tensor.Full(tensor.Shape{c}, 1); err != nil {
		return nil, err
	}
	if m.shift, err = tensor.FromFloat32(shift, tensor.Shape{c}); err != nil {
		return nil, err
	}
	return m, nil
}

// subtract returns input minus the per-channel means.
func (m *meanImage) subtract(b tensor.Backend, input *tensor.RawTensor) (*tensor.RawTensor, error) {
	return b.ScaleShift(input, m.ones, m.shift)
}
