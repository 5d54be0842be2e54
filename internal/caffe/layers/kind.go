package layers

import "sort"

// Kind identifies a layer type.
type Kind int

// Layer kinds. KindUnknown covers every type string not listed here.
const (
	KindUnknown Kind = iota
	KindConvolution
	KindBatchNorm
	KindScale
	KindReLU
	KindPooling
	KindEltwise
	KindInnerProduct
	KindDropout
	KindNormalize
	KindLRN
	KindPermute
	KindFlatten
	KindSlice
	KindConcat
	KindPriorBox
	KindReshape
	KindSoftmax
	KindSoftmaxWithLoss
	KindData
	KindInput
	KindAccuracy
	KindRegion
)

var kindNames = map[Kind]string{
	KindUnknown:         "Unknown",
	KindConvolution:     "Convolution",
	KindBatchNorm:       "BatchNorm",
	KindScale:           "Scale",
	KindReLU:            "ReLU",
	KindPooling:         "Pooling",
	KindEltwise:         "Eltwise",
	KindInnerProduct:    "InnerProduct",
	KindDropout:         "Dropout",
	KindNormalize:       "Normalize",
	KindLRN:             "LRN",
	KindPermute:         "Permute",
	KindFlatten:         "Flatten",
	KindSlice:           "Slice",
	KindConcat:          "Concat",
	KindPriorBox:        "PriorBox",
	KindReshape:         "Reshape",
	KindSoftmax:         "Softmax",
	KindSoftmaxWithLoss: "SoftmaxWithLoss",
	KindData:            "Data",
	KindInput:           "Input",
	KindAccuracy:        "Accuracy",
	KindRegion:          "Region",
}

// V1 (upper-case enum) spellings. The checkpoint decoder reports V1
// records with these names too.
var legacyKinds = map[string]Kind{
	"CONVOLUTION":   KindConvolution,
	"RELU":          KindReLU,
	"POOLING":       KindPooling,
	"ELTWISE":       KindEltwise,
	"INNER_PRODUCT": KindInnerProduct,
	"DROPOUT":       KindDropout,
	"LRN":           KindLRN,
	"FLATTEN":       KindFlatten,
	"SLICE":         KindSlice,
	"CONCAT":        KindConcat,
	"SOFTMAX":       KindSoftmax,
	"SOFTMAX_LOSS":  KindSoftmaxWithLoss,
	"DATA":          KindData,
	"ACCURACY":      KindAccuracy,
}

// String returns the current Caffe type name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindUnknown]
}

// ParseKind maps a layer type string to its Kind. Both current names
// ("InnerProduct") and V1 enum names ("INNER_PRODUCT") are accepted.
func ParseKind(typ string) Kind {
	if k, ok := legacyKinds[typ]; ok {
		return k
	}
	for k, name := range kindNames {
		if name == typ && k != KindUnknown {
			return k
		}
	}
	return KindUnknown
}

// IsMetadata reports whether a kind carries no forward computation.
// Entries of these kinds are never executed.
func (k Kind) IsMetadata() bool {
	switch k {
	case KindData, KindInput, KindAccuracy, KindSoftmaxWithLoss, KindRegion:
		return true
	}
	return false
}

// HasParams reports whether a kind owns learnable parameters that must be
// loaded from a checkpoint.
func (k Kind) HasParams() bool {
	switch k {
	case KindConvolution, KindBatchNorm, KindScale, KindNormalize, KindInnerProduct:
		return true
	}
	return false
}

// SupportedKinds returns the type names the factory builds, sorted.
func SupportedKinds() []string {
	var names []string
	for k, name := range kindNames {
		if k == KindUnknown || k == KindAccuracy || k == KindRegion {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
