package caffe

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/abrosua/pytorch-caffe/internal/caffe/layers"
)

// Entry is one executable step of the graph. Entry order is execution
// order.
type Entry struct {
	Name    string
	Kind    layers.Kind
	Op      layers.Operation
	Bottoms []string
	Tops    []string
}

// Graph is the executable form of a topology together with the shape of
// every blob it defines.
type Graph struct {
	Entries []Entry
	Shapes  *layers.ShapeTable
	Skipped []string // Layers dropped as unsupported
}

// BuildGraph walks the topology once in file order, building one entry per
// executable layer and propagating blob shapes. The input blob is seeded
// with the given (channels, width, height).
//
// Data and Input layers only declare the input and produce no entry.
// Layers of unsupported kinds are logged and skipped; their tops stay
// undefined. Any other failure aborts the build.
func BuildGraph(topo *Topology, input layers.BlobShape, logger *slog.Logger) (*Graph, error) {
	g := &Graph{Shapes: layers.NewShapeTable()}
	g.Shapes.Record(DataBlob, input)
	g.Shapes.Record(topo.Input.Name, input)

	for _, rec := range topo.Layers {
		if rec.Kind == layers.KindData || rec.Kind == layers.KindInput {
			logger.Debug("skipping input layer", "layer", rec.Name, "kind", rec.Kind)
			continue
		}

		op, out, err := layers.Build(rec, g.Shapes)
		if errors.Is(err, layers.ErrUnsupportedKind) {
			logger.Warn("unsupported layer skipped", "layer", rec.Name, "type", rec.Type)
			g.Skipped = append(g.Skipped, rec.Name)
			continue
		}
		if err != nil {
			return nil, err
		}

		in := inputShapes(g.Shapes, rec)
		for i, top := range rec.Tops {
			g.Shapes.Record(top, out[i])
		}
		g.Entries = append(g.Entries, Entry{
			Name:    rec.Name,
			Kind:    rec.Kind,
			Op:      op,
			Bottoms: rec.Bottoms,
			Tops:    rec.Tops,
		})
		logger.Debug("layer built", "layer", rec.Name, "kind", rec.Kind, "in", in, "out", out)
	}
	return g, nil
}

// inputShapes formats the bottoms of rec for diagnostics.
func inputShapes(st *layers.ShapeTable, rec *layers.LayerRecord) []string {
	out := make([]string, len(rec.Bottoms))
	for i, b := range rec.Bottoms {
		s, err := st.Lookup(b)
		if err != nil {
			out[i] = b + "=?"
			continue
		}
		out[i] = fmt.Sprintf("%s=%v", b, s)
	}
	return out
}
