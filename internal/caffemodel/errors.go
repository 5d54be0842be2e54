package caffemodel

import "errors"

var (
	// ErrMalformed indicates bytes that are not a valid protobuf encoding
	// of the expected message.
	ErrMalformed = errors.New("malformed caffe protobuf")

	// ErrWireType indicates a known field encoded with the wrong wire type.
	ErrWireType = errors.New("unexpected wire type")
)
