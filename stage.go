package drift

import "fmt"

// A stage is a maximal run of narrow operators, terminating either at a
// shuffle boundary or at the action. Within a stage, partition tasks are
// independent of one another; the boundary produces the stage's input
// partitions.
type stage struct {
	id       int
	boundary *Dataset
	frames   []*Dataset
}

// execute runs this stage's narrow operator chain against one input
// partition. Partition tasks are pure functions of their input partition and
// the operator chain, so concurrent tasks share no mutable state.
func (s *stage) execute(part *partition) (*partition, error) {
	cur := part
	for _, frame := range s.frames {
		next, err := applyNarrow(frame, cur)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// applyNarrow dispatches one narrow operator against one partition
func applyNarrow(d *Dataset, part *partition) (*partition, error) {
	switch d.kind {
	case MapOp:
		return part.mapRows(d.mapFn)
	case FilterOp:
		return part.filterRows(d.filterFn)
	case FlatMapOp:
		return part.flatMapRows(d.flatMapFn)
	case MapPartitionsOp:
		return part.mapWholePartition(d.partFn, d.seed)
	case SampleOp:
		return part.sampleRows(d.withReplacement, d.fraction, d.seed)
	}
	return nil, fmt.Errorf("operator %s is not a narrow operator", d.kind)
}

// String is a compact representation of this stage for debug logging
func (s *stage) String() string {
	kinds := make([]OpKind, 0, len(s.frames)+1)
	kinds = append(kinds, s.boundary.kind)
	for _, f := range s.frames {
		kinds = append(kinds, f.kind)
	}
	return fmt.Sprintf("stage-%d%v", s.id, kinds)
}
