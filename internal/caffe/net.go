package caffe

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/abrosua/pytorch-caffe/internal/backend/cpu"
	"github.com/abrosua/pytorch-caffe/internal/caffe/layers"
	"github.com/abrosua/pytorch-caffe/internal/tensor"
)

// Options configures network loading.
type Options struct {
	// Backend runs the layer kernels (default: CPU).
	Backend tensor.Backend

	// Logger receives construction and load diagnostics (default: slog.Default()).
	Logger *slog.Logger

	// InputWidth and InputHeight replace the input extent declared by the
	// topology when both are positive.
	InputWidth  int
	InputHeight int

	// MeanFile overrides the topology's mean_file.
	MeanFile string

	// Outputs selects the blobs Forward returns.
	Outputs []string
}

// DefaultOptions returns the default loading options.
func DefaultOptions() Options {
	return Options{
		Backend: cpu.New(),
		Logger:  slog.Default(),
	}
}

// Net is a loaded network ready for inference.
//
// Weight loading and mean file changes must not run concurrently with
// Forward or Execute. Once configured, any number of executions may run in
// parallel: each one owns its blob store.
type Net struct {
	topo    *Topology
	graph   *Graph
	backend tensor.Backend
	logger  *slog.Logger
	input   layers.BlobShape
	outputs []string

	meanFile string
	mean     *meanImage
}

// Load parses a .prototxt file and builds the network.
func Load(path string, opts ...Options) (*Net, error) {
	topo, err := ParseTopologyFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load topology: %w", err)
	}
	return New(topo, opts...)
}

// LoadFromBytes builds the network from prototxt text.
func LoadFromBytes(data []byte, opts ...Options) (*Net, error) {
	topo, err := ParseTopology(string(data))
	if err != nil {
		return nil, err
	}
	return New(topo, opts...)
}

// New builds the network for a parsed topology.
func New(topo *Topology, opts ...Options) (*Net, error) {
	opt := DefaultOptions()
	if len(opts) > 0 {
		opt = opts[0]
	}
	if opt.Backend == nil {
		opt.Backend = cpu.New()
	}
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}

	input := layers.BlobShape{
		Channels: topo.Input.Channels(),
		Width:    topo.Input.Width(),
		Height:   topo.Input.Height(),
	}
	if opt.InputWidth > 0 && opt.InputHeight > 0 {
		input.Width, input.Height = opt.InputWidth, opt.InputHeight
	}

	graph, err := BuildGraph(topo, input, opt.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build graph: %w", err)
	}

	n := &Net{
		topo:    topo,
		graph:   graph,
		backend: opt.Backend,
		logger:  opt.Logger,
		input:   input,
	}
	n.logger.Info("network built", "name", topo.Name, "layers", len(graph.Entries), "skipped", len(graph.Skipped), "input", input)

	if len(opt.Outputs) > 0 {
		if err := n.SetOutputs(opt.Outputs...); err != nil {
			return nil, err
		}
	}

	meanFile := topo.MeanFile
	if opt.MeanFile != "" {
		meanFile = opt.MeanFile
	}
	if err := n.SetMeanFile(meanFile); err != nil {
		return nil, err
	}
	return n, nil
}

// Name returns the network name.
func (n *Net) Name() string {
	return n.topo.Name
}

// InputShape returns the expected input shape for a batch of one.
func (n *Net) InputShape() tensor.Shape {
	return tensor.Shape{1, n.input.Channels, n.input.Height, n.input.Width}
}

// Graph returns the executable entries in execution order.
func (n *Net) Graph() []Entry {
	return n.graph.Entries
}

// Skipped returns the names of layers dropped as unsupported.
func (n *Net) Skipped() []string {
	return n.graph.Skipped
}

// BlobShape returns the inferred shape of a blob.
func (n *Net) BlobShape(name string) (layers.BlobShape, error) {
	return n.graph.Shapes.Lookup(name)
}

// SetOutputs selects the blobs Forward returns, in order. Every name must
// be a blob the graph defines.
func (n *Net) SetOutputs(names ...string) error {
	for _, name := range names {
		if !n.graph.Shapes.Has(name) {
			return fmt.Errorf("output %q: %w", name, layers.ErrUndefinedBlob)
		}
	}
	n.outputs = append([]string(nil), names...)
	return nil
}

// OutputNames returns the blobs Forward returns. Without an explicit
// selection these are the tops of the last executable entry.
func (n *Net) OutputNames() []string {
	if len(n.outputs) > 0 {
		return n.outputs
	}
	for i := len(n.graph.Entries) - 1; i >= 0; i-- {
		if e := n.graph.Entries[i]; !e.Kind.IsMetadata() {
			return e.Tops
		}
	}
	return []string{DataBlob}
}

// Outputs picks the selected output blobs out of an execution result.
func (n *Net) Outputs(blobs Blobs) ([]*tensor.RawTensor, error) {
	names := n.OutputNames()
	out := make([]*tensor.RawTensor, len(names))
	for i, name := range names {
		t, ok := blobs[name]
		if !ok {
			return nil, fmt.Errorf("output %q: %w", name, layers.ErrUndefinedBlob)
		}
		out[i] = t
	}
	return out, nil
}

// Forward executes the network and returns the selected outputs.
func (n *Net) Forward(input *tensor.RawTensor) ([]*tensor.RawTensor, error) {
	blobs, err := n.Execute(input)
	if err != nil {
		return nil, err
	}
	return n.Outputs(blobs)
}

// String prints one line per graph entry.
func (n *Net) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "CaffeNet(%s) input %v\n", n.topo.Name, n.InputShape())
	for _, e := range n.graph.Entries {
		fmt.Fprintf(&b, "  (%s): %v\n", e.Name, e.Op)
	}
	return b.String()
}
