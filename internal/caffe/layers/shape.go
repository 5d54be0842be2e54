package layers

import "fmt"

// Unknown marks a width or height that has no spatial meaning, e.g. the
// trailing axes a Reshape dropped.
const Unknown = -1

// BlobShape is the (channels, width, height) triple tracked per blob while
// the graph is built. The batch axis is not tracked.
type BlobShape struct {
	Channels int
	Width    int
	Height   int
}

// Spatial reports whether the blob still has a width or height.
func (s BlobShape) Spatial() bool {
	return s.Width != Unknown || s.Height != Unknown
}

// Elements returns channels x width x height with Unknown extents counted
// as one.
func (s BlobShape) Elements() int {
	return s.Channels * extent(s.Width) * extent(s.Height)
}

// String formats the shape as channels x height x width.
func (s BlobShape) String() string {
	return fmt.Sprintf("(%d x %d x %d)", s.Channels, s.Height, s.Width)
}

func extent(d int) int {
	if d == Unknown {
		return 1
	}
	return d
}

// ShapeTable records the shape of every blob defined so far.
type ShapeTable struct {
	shapes map[string]BlobShape
}

// NewShapeTable creates an empty table.
func NewShapeTable() *ShapeTable {
	return &ShapeTable{shapes: make(map[string]BlobShape)}
}

// Record sets the shape of a blob, replacing any earlier one (in-place
// layers reuse their input name).
func (t *ShapeTable) Record(name string, s BlobShape) {
	t.shapes[name] = s
}

// Lookup returns the shape of a blob. A miss means the topology refers to
// a blob no earlier layer produced.
func (t *ShapeTable) Lookup(name string) (BlobShape, error) {
	s, ok := t.shapes[name]
	if !ok {
		return BlobShape{}, fmt.Errorf("%w: %q", ErrUndefinedBlob, name)
	}
	return s, nil
}

// Has reports whether a blob has been defined.
func (t *ShapeTable) Has(name string) bool {
	_, ok := t.shapes[name]
	return ok
}
