// Package tensor provides the dense float32 blob type and the Backend
// interface that layer kernels are written against.
package tensor
