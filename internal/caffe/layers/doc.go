// Package layers turns Caffe layer records into executable operations.
//
// Build is the factory: given a record and the shapes of the blobs defined
// so far it parses the kind's parameter block into a typed record, infers
// the output shapes and allocates the operation's parameter tensors. The
// operation set is closed; callers that need per-kind behaviour (weight
// loading) switch on the concrete types.
package layers
