package caffe

import (
	"fmt"

	"github.com/abrosua/pytorch-caffe/internal/caffe/layers"
	"github.com/abrosua/pytorch-caffe/internal/caffemodel"
	"github.com/abrosua/pytorch-caffe/internal/tensor"
)

// assignment is one staged parameter copy.
type assignment struct {
	dst *tensor.RawTensor
	src []float32
}

// weightPlan collects every copy a checkpoint implies before any is made.
type weightPlan struct {
	entry   *Entry
	record  *caffemodel.LayerParameter
	assigns []assignment
}

func (p *weightPlan) block(i int) *caffemodel.BlobProto {
	if i < len(p.record.Blobs) {
		return &p.record.Blobs[i]
	}
	return nil
}

// fill stages block i into dst after checking its element count.
func (p *weightPlan) fill(i int, param string, dst *tensor.RawTensor) error {
	b := p.block(i)
	if b == nil {
		return fmt.Errorf("layer %q (%v): %w: no block %d for %s", p.entry.Name, p.entry.Kind, layers.ErrMissingWeights, i, param)
	}
	if b.Count() != dst.NumElements() {
		return &layers.WeightMismatchError{
			Layer: p.entry.Name, Kind: p.entry.Kind, Block: i, Param: param,
			Want: dst.NumElements(), Got: b.Count(),
		}
	}
	p.assigns = append(p.assigns, assignment{dst: dst, src: b.Data})
	return nil
}

// fillOptional stages block i into dst when both exist.
func (p *weightPlan) fillOptional(i int, param string, dst *tensor.RawTensor) error {
	if dst == nil || p.block(i) == nil {
		return nil
	}
	return p.fill(i, param, dst)
}

// LoadWeightsFile loads parameters from a .caffemodel file.
func (n *Net) LoadWeightsFile(path string) error {
	ckpt, err := caffemodel.ParseFile(path)
	if err != nil {
		return fmt.Errorf("failed to load weights %s: %w", path, err)
	}
	return n.LoadWeights(ckpt)
}

// LoadWeightsFromBytes loads parameters from serialized checkpoint bytes.
func (n *Net) LoadWeightsFromBytes(data []byte) error {
	ckpt, err := caffemodel.Parse(data)
	if err != nil {
		return err
	}
	return n.LoadWeights(ckpt)
}

// LoadWeights copies the checkpoint's parameter blocks into the graph,
// matching layers by name. Every block is validated before the first copy,
// so a failed load leaves the parameters untouched.
//
// Checkpoint records for kinds without parameters are ignored; a
// parametric layer the checkpoint does not mention is an error.
func (n *Net) LoadWeights(ckpt *caffemodel.NetParameter) error {
	records := ckpt.LayerRecords()
	if len(records) == 0 {
		return layers.ErrEmptyCheckpoint
	}
	if len(ckpt.Layers) == 0 {
		n.logger.Info("checkpoint has no current-format layers, reading the legacy container",
			"layers", len(records))
	}

	byName := make(map[string]*caffemodel.LayerParameter, len(records))
	for i := range records {
		if _, dup := byName[records[i].Name]; !dup {
			byName[records[i].Name] = &records[i]
		}
	}

	var plans []*weightPlan
	for i := range n.graph.Entries {
		e := &n.graph.Entries[i]
		if !e.Kind.HasParams() {
			continue
		}
		rec, ok := byName[e.Name]
		if !ok {
			return fmt.Errorf("layer %q (%v): %w: not in checkpoint", e.Name, e.Kind, layers.ErrMissingWeights)
		}
		if k := layers.ParseKind(rec.Type); k != e.Kind {
			n.logger.Warn("checkpoint layer kind differs from topology",
				"layer", e.Name, "topology", e.Kind, "checkpoint", rec.Type)
		}

		plan := &weightPlan{entry: e, record: rec}
		if err := plan.stage(); err != nil {
			return err
		}
		plans = append(plans, plan)
	}

	for _, plan := range plans {
		for _, a := range plan.assigns {
			if err := a.dst.CopyFrom(a.src); err != nil {
				return fmt.Errorf("layer %q: %w", plan.entry.Name, err)
			}
		}
		n.logger.Debug("weights loaded", "layer", plan.entry.Name, "kind", plan.entry.Kind, "blocks", len(plan.record.Blobs))
	}
	n.logger.Info("weights loaded", "layers", len(plans))
	return nil
}

// stage validates the entry's blocks and records the copies.
func (p *weightPlan) stage() error {
	switch op := p.entry.Op.(type) {
	case *layers.Convolution:
		if err := p.fill(0, "weight", op.Weight); err != nil {
			return err
		}
		return p.fillOptional(1, "bias", op.Bias)

	case *layers.InnerProduct:
		if err := p.fill(0, "weight", op.Linear.Weight); err != nil {
			return err
		}
		return p.fillOptional(1, "bias", op.Linear.Bias)

	case *layers.BatchNorm:
		return p.stageBatchNorm(op)

	case *layers.Scale:
		if err := p.fill(0, "weight", op.Weight); err != nil {
			return err
		}
		if op.Bias != nil {
			return p.fill(1, "bias", op.Bias)
		}
		return nil

	case *layers.Normalize:
		return p.fill(0, "weight", op.Weight)
	}
	return nil
}

// stageBatchNorm divides the stored running sums by the scale factor in
// block 2. A zero factor means the statistics were never accumulated and
// loads as zeros.
func (p *weightPlan) stageBatchNorm(op *layers.BatchNorm) error {
	if err := p.fill(0, "mean", op.Mean); err != nil {
		return err
	}
	if err := p.fill(1, "variance", op.Variance); err != nil {
		return err
	}
	factor := p.block(2)
	if factor == nil {
		return fmt.Errorf("layer %q (%v): %w: no block 2 for the moving average factor",
			p.entry.Name, p.entry.Kind, layers.ErrMissingWeights)
	}
	if factor.Count() != 1 {
		return &layers.WeightMismatchError{
			Layer: p.entry.Name, Kind: p.entry.Kind, Block: 2, Param: "moving average factor",
			Want: 1, Got: factor.Count(),
		}
	}

	f := factor.Data[0]
	for i := range p.assigns {
		scaled := make([]float32, len(p.assigns[i].src))
		if f != 0 {
			for j, v := range p.assigns[i].src {
				scaled[j] = v / f
			}
		}
		p.assigns[i].src = scaled
	}
	return nil
}
