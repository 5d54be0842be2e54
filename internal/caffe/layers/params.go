package layers

import (
	"fmt"

	"github.com/abrosua/pytorch-caffe/internal/prototxt"
	"github.com/abrosua/pytorch-caffe/internal/tensor"
)

// paramReader reads one parameter block and keeps the first conversion
// error, so a parser can read every field and check once.
type paramReader struct {
	rec   *LayerRecord
	block string
	msg   *prototxt.Message
	err   error
}

func newParamReader(rec *LayerRecord, block string) *paramReader {
	return &paramReader{rec: rec, block: block, msg: rec.Params.Message(block)}
}

func (r *paramReader) fail(err error) {
	if r.err == nil {
		r.err = structural(r.rec, ErrInvalidParam, "%s: %v", r.block, err)
	}
}

func (r *paramReader) failf(format string, args ...any) {
	r.fail(fmt.Errorf(format, args...))
}

func (r *paramReader) has(name string) bool {
	return r.msg.Has(name)
}

func (r *paramReader) int(name string, def int) int {
	v, err := r.msg.Int(name, def)
	if err != nil {
		r.fail(err)
	}
	return v
}

// square reads a field that Caffe allows to repeat once per spatial axis.
// Only square windows are supported, so every occurrence must agree.
func (r *paramReader) square(name string, def int) int {
	vs, err := r.msg.Ints(name)
	if err != nil {
		r.fail(err)
		return def
	}
	if len(vs) == 0 {
		return def
	}
	for _, v := range vs[1:] {
		if v != vs[0] {
			r.failf("%s: non-square values %v are not supported", name, vs)
		}
	}
	return vs[0]
}

func (r *paramReader) float(name string, def float64) float32 {
	v, err := r.msg.Float(name, def)
	if err != nil {
		r.fail(err)
	}
	return float32(v)
}

func (r *paramReader) floats(name string) []float32 {
	vs, err := r.msg.Floats(name)
	if err != nil {
		r.fail(err)
		return nil
	}
	out := make([]float32, len(vs))
	for i, v := range vs {
		out[i] = float32(v)
	}
	return out
}

func (r *paramReader) ints(name string) []int {
	vs, err := r.msg.Ints(name)
	if err != nil {
		r.fail(err)
	}
	return vs
}

func (r *paramReader) bool(name string, def bool) bool {
	v, err := r.msg.Bool(name, def)
	if err != nil {
		r.fail(err)
	}
	return v
}

func (r *paramReader) string(name, def string) string {
	v, err := r.msg.String(name, def)
	if err != nil {
		r.fail(err)
	}
	return v
}

func (r *paramReader) required(name string) {
	if !r.has(name) {
		r.failf("%s is required", name)
	}
}

// firstOf returns the value of the first field present, used where V1 and
// current releases spell a field differently (slice_dim vs axis).
func (r *paramReader) firstOf(def int, names ...string) int {
	for _, name := range names {
		if r.has(name) {
			return r.int(name, def)
		}
	}
	return def
}

// ConvolutionParams is convolution_param.
type ConvolutionParams struct {
	NumOutput  int
	KernelSize int
	Stride     int
	Pad        int
	Group      int
	BiasTerm   bool
}

func parseConvolution(rec *LayerRecord) (ConvolutionParams, error) {
	r := newParamReader(rec, "convolution_param")
	r.required("num_output")
	p := ConvolutionParams{
		NumOutput: r.int("num_output", 0),
		Stride:    r.square("stride", 1),
		Pad:       r.square("pad", 0),
		Group:     r.int("group", 1),
		BiasTerm:  r.bool("bias_term", true),
	}
	if r.has("kernel_size") {
		p.KernelSize = r.square("kernel_size", 0)
	} else {
		kh, kw := r.int("kernel_h", 0), r.int("kernel_w", 0)
		if kh != kw {
			r.failf("non-square kernel %dx%d is not supported", kh, kw)
		}
		p.KernelSize = kh
	}
	if d := r.square("dilation", 1); d != 1 {
		r.failf("dilation %d is not supported", d)
	}
	switch {
	case r.err != nil:
	case p.NumOutput <= 0:
		r.failf("num_output must be positive, got %d", p.NumOutput)
	case p.KernelSize <= 0:
		r.failf("kernel_size must be positive, got %d", p.KernelSize)
	case p.Stride <= 0:
		r.failf("stride must be positive, got %d", p.Stride)
	case p.Pad < 0:
		r.failf("pad must be non-negative, got %d", p.Pad)
	case p.Group <= 0:
		r.failf("group must be positive, got %d", p.Group)
	}
	return p, r.err
}

// PoolingParams is pooling_param.
type PoolingParams struct {
	Method     tensor.PoolMethod
	KernelSize int
	Stride     int
	Pad        int
	Global     bool
}

func parsePooling(rec *LayerRecord) (PoolingParams, error) {
	r := newParamReader(rec, "pooling_param")
	p := PoolingParams{
		KernelSize: r.square("kernel_size", 0),
		Stride:     r.square("stride", 1),
		Pad:        r.square("pad", 0),
		Global:     r.bool("global_pooling", false),
	}
	switch method := r.string("pool", "MAX"); method {
	case "MAX", "0":
		p.Method = tensor.PoolMax
	case "AVE", "1":
		p.Method = tensor.PoolAverage
	default:
		if r.err == nil {
			r.err = structural(rec, ErrUnsupportedOperator, "pooling method %q", method)
		}
	}
	switch {
	case r.err != nil:
	case p.Global:
	case p.KernelSize <= 0:
		r.failf("kernel_size must be positive, got %d", p.KernelSize)
	case p.Stride <= 0:
		r.failf("stride must be positive, got %d", p.Stride)
	case p.Pad < 0 || p.Pad >= p.KernelSize:
		r.failf("pad %d must be in [0, kernel_size %d)", p.Pad, p.KernelSize)
	}
	return p, r.err
}

// InnerProductParams is inner_product_param.
type InnerProductParams struct {
	NumOutput int
	BiasTerm  bool
}

func parseInnerProduct(rec *LayerRecord) (InnerProductParams, error) {
	r := newParamReader(rec, "inner_product_param")
	r.required("num_output")
	p := InnerProductParams{
		NumOutput: r.int("num_output", 0),
		BiasTerm:  r.bool("bias_term", true),
	}
	if r.err == nil && p.NumOutput <= 0 {
		r.failf("num_output must be positive, got %d", p.NumOutput)
	}
	return p, r.err
}

// BatchNormParams is batch_norm_param. MovingAverageFraction only matters
// for training and is kept for display.
type BatchNormParams struct {
	Eps                   float32
	MovingAverageFraction float32
}

func parseBatchNorm(rec *LayerRecord) (BatchNormParams, error) {
	r := newParamReader(rec, "batch_norm_param")
	p := BatchNormParams{
		Eps:                   r.float("eps", 1e-5),
		MovingAverageFraction: r.float("moving_average_fraction", 0.999),
	}
	if r.err == nil && p.Eps < 0 {
		r.failf("eps must be non-negative, got %g", p.Eps)
	}
	return p, r.err
}

// ScaleParams is scale_param. The bias is present unless bias_term is
// explicitly false.
type ScaleParams struct {
	BiasTerm bool
}

func parseScale(rec *LayerRecord) (ScaleParams, error) {
	r := newParamReader(rec, "scale_param")
	p := ScaleParams{BiasTerm: r.bool("bias_term", true)}
	if axis := r.int("axis", 1); r.err == nil && axis != 1 {
		r.failf("axis %d is not supported", axis)
	}
	return p, r.err
}

// ReLUParams is relu_param.
type ReLUParams struct {
	NegativeSlope float32
}

func parseReLU(rec *LayerRecord) (ReLUParams, error) {
	r := newParamReader(rec, "relu_param")
	return ReLUParams{NegativeSlope: r.float("negative_slope", 0)}, r.err
}

// DropoutParams is dropout_param.
type DropoutParams struct {
	Ratio float32
}

func parseDropout(rec *LayerRecord) (DropoutParams, error) {
	r := newParamReader(rec, "dropout_param")
	p := DropoutParams{Ratio: r.float("dropout_ratio", 0.5)}
	if r.err == nil && (p.Ratio < 0 || p.Ratio >= 1) {
		r.failf("dropout_ratio must be in [0, 1), got %g", p.Ratio)
	}
	return p, r.err
}

// NormalizeParams is norm_param. Scale is the initial per-channel weight
// (scale_filler.value).
type NormalizeParams struct {
	Scale         float32
	Eps           float32
	ChannelShared bool
}

func parseNormalize(rec *LayerRecord) (NormalizeParams, error) {
	r := newParamReader(rec, "norm_param")
	p := NormalizeParams{
		Eps:           r.float("eps", 1e-10),
		ChannelShared: r.bool("channel_shared", false),
		Scale:         1,
	}
	if filler := r.msg.Message("scale_filler"); filler != nil {
		v, err := filler.Float("value", 1)
		if err != nil {
			r.fail(err)
		}
		p.Scale = float32(v)
	}
	return p, r.err
}

// LRNParams is lrn_param. Only ACROSS_CHANNELS normalization is supported.
type LRNParams struct {
	LocalSize int
	Alpha     float32
	Beta      float32
	K         float32
}

func parseLRN(rec *LayerRecord) (LRNParams, error) {
	r := newParamReader(rec, "lrn_param")
	p := LRNParams{
		LocalSize: r.int("local_size", 5),
		Alpha:     r.float("alpha", 1),
		Beta:      r.float("beta", 0.75),
		K:         r.float("k", 1),
	}
	if region := r.string("norm_region", "ACROSS_CHANNELS"); r.err == nil && region != "ACROSS_CHANNELS" && region != "0" {
		r.err = structural(rec, ErrUnsupportedOperator, "lrn norm_region %q", region)
	}
	if r.err == nil && (p.LocalSize <= 0 || p.LocalSize%2 == 0) {
		r.failf("local_size must be a positive odd number, got %d", p.LocalSize)
	}
	return p, r.err
}

// PermuteParams is permute_param with the order completed to four axes.
type PermuteParams struct {
	Order []int
}

func parsePermute(rec *LayerRecord) (PermuteParams, error) {
	r := newParamReader(rec, "permute_param")
	order := r.ints("order")
	if r.err != nil {
		return PermuteParams{}, r.err
	}
	if len(order) > 4 {
		r.failf("order %v has more than 4 axes", order)
		return PermuteParams{}, r.err
	}

	// Unlisted axes keep their relative order after the listed ones.
	seen := make([]bool, 4)
	full := make([]int, 0, 4)
	for _, ax := range order {
		if ax < 0 || ax >= 4 || seen[ax] {
			r.failf("order %v is not a permutation of 4 axes", order)
			return PermuteParams{}, r.err
		}
		seen[ax] = true
		full = append(full, ax)
	}
	for ax := 0; ax < 4; ax++ {
		if !seen[ax] {
			full = append(full, ax)
		}
	}
	return PermuteParams{Order: full}, nil
}

// FlattenParams is flatten_param.
type FlattenParams struct {
	Axis int
}

func parseFlatten(rec *LayerRecord) (FlattenParams, error) {
	r := newParamReader(rec, "flatten_param")
	p := FlattenParams{Axis: r.int("axis", 1)}
	if r.err == nil && (p.Axis < 0 || p.Axis > 3) {
		r.failf("axis %d out of range", p.Axis)
	}
	return p, r.err
}

// SliceParams is slice_param. Empty Points means an even split.
type SliceParams struct {
	Axis   int
	Points []int
}

func parseSlice(rec *LayerRecord) (SliceParams, error) {
	r := newParamReader(rec, "slice_param")
	p := SliceParams{
		Axis:   r.firstOf(1, "axis", "slice_dim"),
		Points: r.ints("slice_point"),
	}
	if r.err == nil && p.Axis != 1 {
		r.failf("axis %d is not supported, only the channel axis", p.Axis)
	}
	return p, r.err
}

// ConcatParams is concat_param.
type ConcatParams struct {
	Axis int
}

func parseConcat(rec *LayerRecord) (ConcatParams, error) {
	r := newParamReader(rec, "concat_param")
	p := ConcatParams{Axis: r.firstOf(1, "axis", "concat_dim")}
	if r.err == nil && p.Axis != channelAxis && p.Axis != heightAxis {
		r.failf("axis %d is not supported", p.Axis)
	}
	return p, r.err
}

// PriorBoxParams is prior_box_param. A zero Step is derived from the image
// and feature map sizes at run time.
type PriorBoxParams struct {
	MinSize   float32
	Clip      bool
	Step      float32
	Offset    float32
	Variances [4]float32
}

func parsePriorBox(rec *LayerRecord) (PriorBoxParams, error) {
	r := newParamReader(rec, "prior_box_param")
	r.required("min_size")
	p := PriorBoxParams{
		MinSize: r.float("min_size", 0),
		Clip:    r.bool("clip", false),
		Step:    r.float("step", 0),
		Offset:  r.float("offset", 0.5),
	}
	switch vs := r.floats("variance"); len(vs) {
	case 0:
		p.Variances = [4]float32{0.1, 0.1, 0.1, 0.1}
	case 1:
		p.Variances = [4]float32{vs[0], vs[0], vs[0], vs[0]}
	case 4:
		copy(p.Variances[:], vs)
	default:
		r.failf("variance must have 1 or 4 values, got %d", len(vs))
	}
	if r.err == nil && p.MinSize <= 0 {
		r.failf("min_size must be positive, got %g", p.MinSize)
	}
	if r.err == nil && p.Step < 0 {
		r.failf("step must be non-negative, got %g", p.Step)
	}
	return p, r.err
}

// ReshapeParams is reshape_param.shape. A 0 keeps the input dimension at
// the same index and a single -1 is inferred.
type ReshapeParams struct {
	Dims []int
}

func parseReshape(rec *LayerRecord) (ReshapeParams, error) {
	r := newParamReader(rec, "reshape_param")
	shape := r.msg.Message("shape")
	if shape == nil {
		r.failf("shape is required")
		return ReshapeParams{}, r.err
	}
	dims, err := shape.Ints("dim")
	if err != nil {
		r.fail(err)
		return ReshapeParams{}, r.err
	}
	if len(dims) == 0 {
		r.failf("shape has no dims")
		return ReshapeParams{}, r.err
	}
	infer := 0
	for _, d := range dims {
		if d == -1 {
			infer++
		} else if d < 0 {
			r.failf("invalid dim %d in %v", d, dims)
		}
	}
	if infer > 1 {
		r.failf("more than one -1 in %v", dims)
	}
	return ReshapeParams{Dims: dims}, r.err
}

// SoftmaxParams is softmax_param.
type SoftmaxParams struct {
	Axis int
}

func parseSoftmax(rec *LayerRecord) (SoftmaxParams, error) {
	r := newParamReader(rec, "softmax_param")
	p := SoftmaxParams{Axis: r.int("axis", 1)}
	if r.err == nil {
		if _, err := tensor.NormalizeAxis(p.Axis, 4); err != nil {
			r.fail(err)
		}
	}
	return p, r.err
}

// EltwiseParams is eltwise_param.
type EltwiseParams struct {
	Op     tensor.EltwiseOp
	Coeffs []float32
}

func parseEltwise(rec *LayerRecord) (EltwiseParams, error) {
	r := newParamReader(rec, "eltwise_param")
	p := EltwiseParams{Coeffs: r.floats("coeff")}
	op := r.string("operation", "SUM")
	if r.err != nil {
		return p, r.err
	}
	switch op {
	case "SUM", "+", "1":
		p.Op = tensor.EltwiseSum
	case "PROD", "MUL", "*", "0":
		p.Op = tensor.EltwiseMul
	case "DIV", "/":
		p.Op = tensor.EltwiseDiv
	case "MAX", "2":
		p.Op = tensor.EltwiseMax
	default:
		return p, structural(rec, ErrUnsupportedOperator, "eltwise operation %q", op)
	}
	if len(p.Coeffs) > 0 {
		if p.Op != tensor.EltwiseSum {
			r.failf("coeff only applies to SUM, got %v", p.Op)
		} else if len(p.Coeffs) != len(rec.Bottoms) {
			r.failf("%d coefficients for %d inputs", len(p.Coeffs), len(rec.Bottoms))
		}
	}
	return p, r.err
}
