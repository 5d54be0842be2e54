package layers

import "fmt"

// Build constructs the operation for one layer record and infers the shape
// of each of its tops from the shapes of its bottoms. shapes is only read;
// recording the outputs is the caller's job.
//
// Kinds without a forward implementation (Data, Accuracy, Region, unknown
// type strings) fail with ErrUnsupportedKind so the caller can skip them.
func Build(rec *LayerRecord, shapes *ShapeTable) (Operation, []BlobShape, error) {
	switch rec.Kind {
	case KindData, KindInput, KindAccuracy, KindRegion, KindUnknown:
		return nil, nil, structural(rec, ErrUnsupportedKind, "type %q", rec.Type)
	case KindSoftmaxWithLoss:
		// Reads labels from a data layer, so its bottoms are not resolved.
		return &SoftmaxWithLoss{}, repeatShape(BlobShape{Channels: 1, Width: 1, Height: 1}, len(rec.Tops)), nil
	}
	if len(rec.Tops) == 0 {
		return nil, nil, structural(rec, ErrOutputCount, "layer declares no top")
	}

	in := make([]BlobShape, len(rec.Bottoms))
	for i, name := range rec.Bottoms {
		s, err := shapes.Lookup(name)
		if err != nil {
			return nil, nil, structural(rec, ErrUndefinedBlob, "bottom %q", name)
		}
		in[i] = s
	}

	switch rec.Kind {
	case KindEltwise:
		return buildEltwise(rec, in)
	case KindConcat:
		return buildConcat(rec, in)
	case KindSlice:
		return buildSlice(rec, in)
	case KindPriorBox:
		return buildPriorBox(rec, in)
	}

	// Everything else maps one bottom to one top.
	if len(in) != 1 {
		return nil, nil, structural(rec, ErrInputCount, "got %d bottoms, want 1", len(in))
	}
	if len(rec.Tops) != 1 {
		return nil, nil, structural(rec, ErrOutputCount, "got %d tops, want 1", len(rec.Tops))
	}
	op, out, err := buildUnary(rec, in[0])
	if err != nil {
		return nil, nil, err
	}
	return op, []BlobShape{out}, nil
}

//nolint:gocyclo,cyclop // one branch per layer kind
func buildUnary(rec *LayerRecord, in BlobShape) (Operation, BlobShape, error) {
	// Parameter tensors are sized from the channel count.
	if in.Channels <= 0 {
		return nil, BlobShape{}, structural(rec, ErrInvalidParam, "input %v has no channels", in)
	}

	switch rec.Kind {
	case KindConvolution:
		p, err := parseConvolution(rec)
		if err != nil {
			return nil, BlobShape{}, err
		}
		if !in.Spatial() {
			return nil, BlobShape{}, structural(rec, ErrInvalidParam, "input %v has no spatial extent", in)
		}
		if in.Channels%p.Group != 0 || p.NumOutput%p.Group != 0 {
			return nil, BlobShape{}, structural(rec, ErrInvalidParam,
				"channels in=%d out=%d not divisible by group %d", in.Channels, p.NumOutput, p.Group)
		}
		out := BlobShape{
			Channels: p.NumOutput,
			Width:    convExtent(in.Width, p.KernelSize, p.Stride, p.Pad),
			Height:   convExtent(in.Height, p.KernelSize, p.Stride, p.Pad),
		}
		if out.Width <= 0 || out.Height <= 0 {
			return nil, BlobShape{}, structural(rec, ErrInvalidParam, "kernel %d does not fit input %v", p.KernelSize, in)
		}
		return newConvolution(p, in.Channels), out, nil

	case KindPooling:
		p, err := parsePooling(rec)
		if err != nil {
			return nil, BlobShape{}, err
		}
		if !in.Spatial() {
			return nil, BlobShape{}, structural(rec, ErrInvalidParam, "input %v has no spatial extent", in)
		}
		out := BlobShape{Channels: in.Channels, Width: 1, Height: 1}
		if !p.Global {
			out.Width = poolingExtent(in.Width, p.KernelSize, p.Stride, p.Pad)
			out.Height = poolingExtent(in.Height, p.KernelSize, p.Stride, p.Pad)
		}
		if out.Width <= 0 || out.Height <= 0 {
			return nil, BlobShape{}, structural(rec, ErrInvalidParam, "kernel %d does not fit input %v", p.KernelSize, in)
		}
		return &Pooling{Params: p}, out, nil

	case KindInnerProduct:
		p, err := parseInnerProduct(rec)
		if err != nil {
			return nil, BlobShape{}, err
		}
		flatten := in.Spatial()
		features := in.Channels
		if flatten {
			features = in.Elements()
		}
		op := &InnerProduct{Flatten: flatten, Linear: newLinear(features, p.NumOutput, p.BiasTerm)}
		return op, BlobShape{Channels: p.NumOutput, Width: 1, Height: 1}, nil

	case KindBatchNorm:
		p, err := parseBatchNorm(rec)
		if err != nil {
			return nil, BlobShape{}, err
		}
		return newBatchNorm(p, in.Channels), in, nil

	case KindScale:
		p, err := parseScale(rec)
		if err != nil {
			return nil, BlobShape{}, err
		}
		return newScale(p, in.Channels), in, nil

	case KindNormalize:
		p, err := parseNormalize(rec)
		if err != nil {
			return nil, BlobShape{}, err
		}
		return newNormalize(p, in.Channels), in, nil

	case KindLRN:
		p, err := parseLRN(rec)
		if err != nil {
			return nil, BlobShape{}, err
		}
		return &LRN{Params: p}, in, nil

	case KindReLU:
		p, err := parseReLU(rec)
		if err != nil {
			return nil, BlobShape{}, err
		}
		return &ReLU{Params: p}, in, nil

	case KindDropout:
		p, err := parseDropout(rec)
		if err != nil {
			return nil, BlobShape{}, err
		}
		return &Dropout{Params: p}, in, nil

	case KindSoftmax:
		p, err := parseSoftmax(rec)
		if err != nil {
			return nil, BlobShape{}, err
		}
		return &Softmax{Params: p}, in, nil

	case KindPermute:
		p, err := parsePermute(rec)
		if err != nil {
			return nil, BlobShape{}, err
		}
		dims := [4]int{1, in.Channels, in.Height, in.Width}
		for axis := 1; axis < len(dims); axis++ {
			if from := p.Order[axis]; from != axis && dims[from] == Unknown {
				return nil, BlobShape{}, structural(rec, ErrInvalidParam, "order %v moves an axis input %v does not have", p.Order, in)
			}
		}
		out := BlobShape{Channels: dims[p.Order[1]], Height: dims[p.Order[2]], Width: dims[p.Order[3]]}
		return &Permute{Params: p}, out, nil

	case KindFlatten:
		p, err := parseFlatten(rec)
		if err != nil {
			return nil, BlobShape{}, err
		}
		dims := [4]int{1, in.Channels, extent(in.Height), extent(in.Width)}
		features := 1
		for _, d := range dims[p.Axis:] {
			features *= d
		}
		return &Flatten{Params: p}, BlobShape{Channels: features, Width: 1, Height: 1}, nil

	case KindReshape:
		p, err := parseReshape(rec)
		if err != nil {
			return nil, BlobShape{}, err
		}
		out, err := reshapeShape(p.Dims, in)
		if err != nil {
			return nil, BlobShape{}, structural(rec, ErrInvalidParam, "%v", err)
		}
		return &Reshape{Params: p}, out, nil
	}
	return nil, BlobShape{}, structural(rec, ErrUnsupportedKind, "type %q", rec.Type)
}

// convExtent is the convolved size of one spatial axis.
func convExtent(in, kernel, stride, pad int) int {
	return (in+2*pad-kernel)/stride + 1
}

// reshapeShape resolves reshape dims against the tracked per-sample shape.
// Axis 0 is the batch axis and absorbs whatever the per-sample dims leave
// over. Dims past the channel axis that the target omits become Unknown.
func reshapeShape(dims []int, in BlobShape) (BlobShape, error) {
	src := [4]int{1, in.Channels, extent(in.Height), extent(in.Width)}
	total := in.Elements()

	resolved := make([]int, len(dims))
	infer, known := -1, 1
	for i, d := range dims {
		switch d {
		case 0:
			if i >= len(src) {
				return BlobShape{}, fmt.Errorf("dim %d copies a missing input axis", i)
			}
			d = src[i]
		case -1:
			infer = i
			continue
		}
		resolved[i] = d
		if i > 0 {
			known *= d
		}
	}
	if total%known != 0 {
		return BlobShape{}, fmt.Errorf("dims %v do not divide input %v (%d elements)", dims, in, total)
	}
	if infer > 0 {
		resolved[infer] = total / known
	}

	out := BlobShape{Channels: 1, Width: Unknown, Height: Unknown}
	if len(resolved) > 1 {
		out.Channels = resolved[1]
	}
	if len(resolved) > 2 {
		out.Height = resolved[2]
	}
	if len(resolved) > 3 {
		out.Width = resolved[3]
	}
	return out, nil
}

func buildEltwise(rec *LayerRecord, in []BlobShape) (Operation, []BlobShape, error) {
	if len(in) < 2 {
		return nil, nil, structural(rec, ErrInputCount, "got %d bottoms, want at least 2", len(in))
	}
	if len(rec.Tops) != 1 {
		return nil, nil, structural(rec, ErrOutputCount, "got %d tops, want 1", len(rec.Tops))
	}
	p, err := parseEltwise(rec)
	if err != nil {
		return nil, nil, err
	}
	return &Eltwise{Params: p}, []BlobShape{in[0]}, nil
}

func buildConcat(rec *LayerRecord, in []BlobShape) (Operation, []BlobShape, error) {
	if len(in) == 0 {
		return nil, nil, structural(rec, ErrInputCount, "no bottoms")
	}
	if len(rec.Tops) != 1 {
		return nil, nil, structural(rec, ErrOutputCount, "got %d tops, want 1", len(rec.Tops))
	}
	p, err := parseConcat(rec)
	if err != nil {
		return nil, nil, err
	}

	var out BlobShape
	switch p.Axis {
	case channelAxis:
		// Spatial extents are assumed equal; the last input's are kept.
		for _, s := range in {
			out.Channels += s.Channels
			out.Width, out.Height = s.Width, s.Height
		}
	case heightAxis:
		// Joins prior box style blobs: channels come from the first input
		// and the width collapses to one.
		out = BlobShape{Channels: in[0].Channels, Width: 1}
		for _, s := range in {
			out.Height += extent(s.Height)
		}
	}
	return &Concat{Params: p}, []BlobShape{out}, nil
}

func buildSlice(rec *LayerRecord, in []BlobShape) (Operation, []BlobShape, error) {
	if len(in) != 1 {
		return nil, nil, structural(rec, ErrInputCount, "got %d bottoms, want 1", len(in))
	}
	p, err := parseSlice(rec)
	if err != nil {
		return nil, nil, err
	}
	if len(p.Points) > 0 && len(p.Points) != len(rec.Tops)-1 {
		return nil, nil, structural(rec, ErrInvalidParam,
			"%d slice points for %d tops, want %d", len(p.Points), len(rec.Tops), len(rec.Tops)-1)
	}

	op := &Slice{Params: p, Outputs: len(rec.Tops)}
	sizes, err := op.sizes(in[0].Channels)
	if err != nil {
		return nil, nil, structural(rec, ErrInvalidParam, "%v", err)
	}
	out := make([]BlobShape, len(sizes))
	for i, n := range sizes {
		out[i] = BlobShape{Channels: n, Width: in[0].Width, Height: in[0].Height}
	}
	return op, out, nil
}

func buildPriorBox(rec *LayerRecord, in []BlobShape) (Operation, []BlobShape, error) {
	if len(in) != 2 {
		return nil, nil, structural(rec, ErrInputCount, "got %d bottoms, want feature map and image", len(in))
	}
	if len(rec.Tops) != 1 {
		return nil, nil, structural(rec, ErrOutputCount, "got %d tops, want 1", len(rec.Tops))
	}
	p, err := parsePriorBox(rec)
	if err != nil {
		return nil, nil, err
	}
	// [1, 2, 4*H*W]: the box row and the variance row.
	out := BlobShape{Channels: 2, Height: 4 * extent(in[0].Height) * extent(in[0].Width), Width: Unknown}
	return &PriorBox{Params: p}, []BlobShape{out}, nil
}

func repeatShape(s BlobShape, n int) []BlobShape {
	out := make([]BlobShape, n)
	for i := range out {
		out[i] = s
	}
	return out
}
