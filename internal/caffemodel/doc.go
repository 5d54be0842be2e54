// Package caffemodel decodes and encodes Caffe's binary protobuf files:
// trained weight files (.caffemodel, a serialized NetParameter) and
// standalone blobs (.binaryproto, used for mean images).
//
// Only the fields inference needs are kept. Unknown fields are skipped,
// repeated scalars are accepted packed or unpacked, and V1 "layers"
// records are decoded alongside current "layer" records.
package caffemodel
