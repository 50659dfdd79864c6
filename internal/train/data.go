package train

// Batch is one step's worth of samples. Targets are scalar per sample.
type Batch struct {
	Inputs  [][]float64
	Targets []float64
}

// Len returns the number of samples in the batch.
func (b Batch) Len() int { return len(b.Inputs) }

// Dataset yields batches in order. Next returns false when exhausted;
// Reset rewinds to the first batch.
type Dataset interface {
	Next() (Batch, bool)
	Reset()
}

// DataLoader describes a data source and materializes it as a Dataset.
type DataLoader interface {
	// InputShape is the per-sample feature shape.
	InputShape() []int

	// Size is the total number of samples.
	Size() int

	// Dataset batches the source with the given per-replica batch size.
	Dataset(batchSize int) Dataset
}

// SliceDataset batches in-memory samples.
type SliceDataset struct {
	inputs    [][]float64
	targets   []float64
	batchSize int
	pos       int
}

func NewSliceDataset(inputs [][]float64, targets []float64, batchSize int) *SliceDataset {
	if batchSize < 1 {
		batchSize = 1
	}
	return &SliceDataset{inputs: inputs, targets: targets, batchSize: batchSize}
}

func (d *SliceDataset) Next() (Batch, bool) {
	if d.pos >= len(d.inputs) {
		return Batch{}, false
	}
	end := d.pos + d.batchSize
	if end > len(d.inputs) {
		end = len(d.inputs)
	}
	b := Batch{
		Inputs:  d.inputs[d.pos:end],
		Targets: d.targets[d.pos:end],
	}
	d.pos = end
	return b, true
}

func (d *SliceDataset) Reset() { d.pos = 0 }
