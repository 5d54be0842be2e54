package tensor

// PoolMethod selects the reduction applied inside a pooling window.
type PoolMethod int

// Pooling methods understood by Pool2D.
const (
	PoolMax PoolMethod = iota
	PoolAverage
)

// String returns the Caffe spelling of the method.
func (m PoolMethod) String() string {
	switch m {
	case PoolMax:
		return "MAX"
	case PoolAverage:
		return "AVE"
	default:
		return "UNKNOWN"
	}
}

// EltwiseOp selects the combinator used by Eltwise.
type EltwiseOp int

// Element-wise combinators.
const (
	EltwiseSum EltwiseOp = iota
	EltwiseMul
	EltwiseDiv
	EltwiseMax
)

// String returns the Caffe spelling of the operator.
func (op EltwiseOp) String() string {
	switch op {
	case EltwiseSum:
		return "SUM"
	case EltwiseMul:
		return "PROD"
	case EltwiseDiv:
		return "DIV"
	case EltwiseMax:
		return "MAX"
	default:
		return "UNKNOWN"
	}
}

// ConvParams holds the hyperparameters of a 2D convolution.
type ConvParams struct {
	Stride int
	Pad    int
	Groups int
}

// PoolParams holds the hyperparameters of a 2D pooling window.
//
// OutH and OutW are the output extent decided when the graph was built;
// windows that fall past the padded input are clipped.
type PoolParams struct {
	Method PoolMethod
	Kernel int
	Stride int
	Pad    int
	OutH   int
	OutW   int
}

// LRNParams holds cross-channel local response normalization constants.
type LRNParams struct {
	Size  int
	Alpha float32
	Beta  float32
	K     float32
}

// Backend defines the layer primitives an execution engine needs.
// Every primitive allocates its result and reports shape problems as errors.
//
// Implementations:
//   - CPU: Pure Go, GEMM through gonum blas32
type Backend interface {
	// Convolution and dense layers
	Conv2D(input, weight, bias *RawTensor, p ConvParams) (*RawTensor, error)
	Linear(input, weight, bias *RawTensor) (*RawTensor, error)

	// Spatial reduction
	Pool2D(input *RawTensor, p PoolParams) (*RawTensor, error)

	// Normalization (per-channel over axis 1)
	BatchNorm(input, mean, variance *RawTensor, eps float32) (*RawTensor, error)
	ScaleShift(input, scale, shift *RawTensor) (*RawTensor, error)
	Normalize(input, scale *RawTensor, eps float32) (*RawTensor, error)
	LRN(input *RawTensor, p LRNParams) (*RawTensor, error)

	// Activations
	ReLU(input *RawTensor, negativeSlope float32) (*RawTensor, error)
	Softmax(input *RawTensor, axis int) (*RawTensor, error)

	// Combinators
	Eltwise(op EltwiseOp, coeffs []float32, inputs []*RawTensor) (*RawTensor, error)
	Concat(inputs []*RawTensor, axis int) (*RawTensor, error)
	Split(input *RawTensor, axis int, sizes []int) ([]*RawTensor, error)

	// Layout
	Permute(input *RawTensor, order []int) (*RawTensor, error)
	Reshape(input *RawTensor, shape Shape) (*RawTensor, error)

	// Metadata
	Name() string
}
