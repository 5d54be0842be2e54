// Package caffe turns a Caffe network description into an executable graph,
// fills it from a trained checkpoint and runs inference over named blobs.
//
// Loading is three steps: [ParseTopology] reads the layer records,
// [BuildGraph] builds one operation per layer while propagating blob
// shapes, and [Net.LoadWeights] copies the checkpoint's parameter blocks
// into those operations by layer name. [Net.Execute] then replays the
// graph in file order.
package caffe
