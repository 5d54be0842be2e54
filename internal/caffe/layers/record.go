package layers

import "github.com/abrosua/pytorch-caffe/internal/prototxt"

// LayerRecord is one parsed layer declaration. Bottoms and Tops are always
// lists, even for single-input layers.
type LayerRecord struct {
	Name    string
	Type    string // Type string as written
	Kind    Kind
	Bottoms []string
	Tops    []string

	// Params is the whole layer message; each kind reads its own
	// sub-block (convolution_param, pooling_param, ...).
	Params *prototxt.Message
}

// Bottom returns the i-th input blob name, or "" when absent.
func (r *LayerRecord) Bottom(i int) string {
	if i < len(r.Bottoms) {
		return r.Bottoms[i]
	}
	return ""
}

// Top returns the i-th output blob name, or "" when absent.
func (r *LayerRecord) Top(i int) string {
	if i < len(r.Tops) {
		return r.Tops[i]
	}
	return ""
}
