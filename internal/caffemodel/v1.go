package caffemodel

import "fmt"

// v1LayerTypes maps V1LayerParameter.LayerType enum values to their names.
var v1LayerTypes = map[uint64]string{
	0:  "NONE",
	1:  "ACCURACY",
	2:  "BNLL",
	3:  "CONCAT",
	4:  "CONVOLUTION",
	5:  "DATA",
	6:  "DROPOUT",
	7:  "EUCLIDEAN_LOSS",
	8:  "FLATTEN",
	9:  "HDF5_DATA",
	10: "HDF5_OUTPUT",
	11: "IM2COL",
	12: "IMAGE_DATA",
	13: "INFOGAIN_LOSS",
	14: "INNER_PRODUCT",
	15: "LRN",
	16: "MULTINOMIAL_LOGISTIC_LOSS",
	17: "POOLING",
	18: "RELU",
	19: "SIGMOID",
	20: "SOFTMAX",
	21: "SOFTMAX_LOSS",
	22: "SPLIT",
	23: "TANH",
	24: "WINDOW_DATA",
	25: "ELTWISE",
	26: "POWER",
	27: "SIGMOID_CROSS_ENTROPY_LOSS",
	28: "HINGE_LOSS",
	29: "MEMORY_DATA",
	30: "ARGMAX",
	31: "THRESHOLD",
	32: "DUMMY_DATA",
	33: "SLICE",
	34: "MVN",
	35: "ABSVAL",
	36: "SILENCE",
	37: "CONTRASTIVE_LOSS",
	38: "EXP",
	39: "DECONVOLUTION",
}

// V1TypeName returns the enum name of a V1 layer type value.
func V1TypeName(v uint64) string {
	if name, ok := v1LayerTypes[v]; ok {
		return name
	}
	return fmt.Sprintf("V1_TYPE_%d", v)
}

// V1TypeValue returns the enum value for a V1 layer type name.
func V1TypeValue(name string) (uint64, bool) {
	for v, n := range v1LayerTypes {
		if n == name {
			return v, true
		}
	}
	return 0, false
}
