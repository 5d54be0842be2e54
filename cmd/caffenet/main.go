// Package main provides the caffenet CLI: it inspects Caffe topologies and
// runs inference on them.
package main

import (
	"encoding/binary"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strings"

	"github.com/abrosua/pytorch-caffe/caffe"
	"github.com/abrosua/pytorch-caffe/tensor"
)

const version = "v0.1.0-dev"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "caffenet:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		usage(stdout)
		return nil
	}
	switch args[0] {
	case "version":
		fmt.Fprintf(stdout, "caffenet %s\n", version)
		return nil
	case "info":
		return runInfo(args[1:], stdout, stderr)
	case "run":
		return runForward(args[1:], stdout, stderr)
	case "kinds":
		for _, kind := range caffe.ListSupportedKinds() {
			fmt.Fprintln(stdout, kind)
		}
		return nil
	default:
		usage(stderr)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "caffenet - Caffe inference in Go")
	fmt.Fprintf(w, "Version: %s\n\n", version)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  version    Show version")
	fmt.Fprintln(w, "  kinds      List supported layer types")
	fmt.Fprintln(w, "  info       Print the layers and blob shapes of a topology")
	fmt.Fprintln(w, "  run        Run a forward pass")
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func runInfo(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	fs.SetOutput(stderr)
	model := fs.String("model", "", "path to the .prototxt topology")
	width := fs.Int("width", 0, "override the input width")
	height := fs.Int("height", 0, "override the input height")
	verbose := fs.Bool("v", false, "log every built layer")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *model == "" {
		return errors.New("info: -model is required")
	}

	opts := caffe.DefaultOptions()
	opts.Logger = newLogger(stderr, *verbose)
	opts.InputWidth, opts.InputHeight = *width, *height
	net, err := caffe.Load(*model, opts)
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, net.String())
	fmt.Fprintln(stdout)
	for _, e := range net.Graph() {
		for _, top := range e.Tops {
			shape, err := net.BlobShape(top)
			if err != nil {
				continue
			}
			fmt.Fprintf(stdout, "%-24s %-16s %s\n", top, e.Kind, shape)
		}
	}
	if skipped := net.Skipped(); len(skipped) > 0 {
		fmt.Fprintf(stdout, "\nskipped: %s\n", strings.Join(skipped, ", "))
	}
	return nil
}

func runForward(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	model := fs.String("model", "", "path to the .prototxt topology")
	weights := fs.String("weights", "", "path to the .caffemodel checkpoint")
	mean := fs.String("mean", "", "path to a .binaryproto mean image")
	inputPath := fs.String("input", "", "raw little-endian float32 NCHW input (zeros when empty)")
	outputs := fs.String("outputs", "", "comma separated blobs to print")
	width := fs.Int("width", 0, "override the input width")
	height := fs.Int("height", 0, "override the input height")
	limit := fs.Int("n", 10, "values to print per output")
	verbose := fs.Bool("v", false, "log every built layer")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *model == "" || *weights == "" {
		return errors.New("run: -model and -weights are required")
	}

	opts := caffe.DefaultOptions()
	opts.Logger = newLogger(stderr, *verbose)
	opts.InputWidth, opts.InputHeight = *width, *height
	opts.MeanFile = *mean
	if *outputs != "" {
		opts.Outputs = strings.Split(*outputs, ",")
	}
	net, err := caffe.Load(*model, opts)
	if err != nil {
		return err
	}
	if err := net.LoadWeightsFile(*weights); err != nil {
		return err
	}

	input, err := readInput(*inputPath, net.InputShape())
	if err != nil {
		return err
	}
	results, err := net.Forward(input)
	if err != nil {
		return err
	}
	for i, name := range net.OutputNames() {
		printTensor(stdout, name, results[i], *limit)
	}
	return nil
}

// readInput loads a raw float32 file. The batch size is whatever the file
// holds; its length must be a multiple of one image.
func readInput(path string, shape tensor.Shape) (*tensor.RawTensor, error) {
	if path == "" {
		return tensor.Full(shape, 0)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	per := shape.NumElements()
	if len(raw)%4 != 0 || len(raw)/4%per != 0 || len(raw) == 0 {
		return nil, fmt.Errorf("input %s: %d bytes is not a whole number of %v float32 images", path, len(raw), shape)
	}
	data := make([]float32, len(raw)/4)
	for i := range data {
		data[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	batched := shape.Clone()
	batched[0] = len(data) / per
	return tensor.FromFloat32(data, batched)
}

func printTensor(w io.Writer, name string, t *tensor.RawTensor, limit int) {
	data := t.Data()
	if limit > len(data) || limit < 0 {
		limit = len(data)
	}
	fmt.Fprintf(w, "%s %v:", name, t.Shape())
	for _, v := range data[:limit] {
		fmt.Fprintf(w, " %.6g", v)
	}
	if limit < len(data) {
		fmt.Fprint(w, " ...")
	}
	fmt.Fprintln(w)
}
