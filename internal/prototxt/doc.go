// Package prototxt parses the protobuf text format used by Caffe network
// definitions without a compiled schema.
//
// A document is a Message: an ordered list of named fields whose values
// are scalars or nested messages. Repeated fields simply appear more than
// once. Typed accessors convert scalars on demand.
package prototxt
