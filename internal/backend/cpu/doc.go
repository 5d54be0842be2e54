// Package cpu implements the CPU backend for Caffe layer primitives.
//
// Kernels operate on row-major float32 NCHW buffers. Convolution and inner
// product lower to float32 GEMM through gonum's blas32; the rest are plain
// loops. Every kernel allocates its result and leaves inputs untouched,
// except Reshape, which returns a view.
package cpu
