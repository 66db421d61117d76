package drift

import (
	"fmt"
	"log"
	"math"
	"math/rand"

	uuid "github.com/gofrs/uuid"

	"github.com/go-drift/drift/errors"
)

// A partition is an ordered, immutable sequence of Rows plus a stable 0-based
// index; the unit of parallelism. Partitions are never handed to callers
// directly.
type partition struct {
	id    string
	index int
	rows  []Row
}

// createPartition is a factory for partitions
func createPartition(index int, rows []Row) *partition {
	id, err := uuid.NewV4()
	if err != nil {
		log.Fatalf("failed to generate UUID: %v", err)
	}
	return &partition{id: id.String(), index: index, rows: rows}
}

// seedFor derives an independent per-partition seed from a global seed, so
// that partition-level randomness is repeatable yet uncorrelated across
// partitions
func seedFor(seed int64, index int) int64 {
	return int64(uint64(seed) ^ (uint64(index)+1)*0x9e3779b97f4a7c15)
}

func errTypeShape(op string) error {
	return errors.TypeShapeError{Op: op}
}

// asKeyValue asserts the key/value shape of a row on behalf of the named
// operation
func asKeyValue(op string, row Row) (KeyValue, error) {
	kv, ok := row.(KeyValue)
	if !ok {
		return KeyValue{}, errTypeShape(op)
	}
	return kv, nil
}

// userError wraps a failure from a caller-supplied function unless it is
// already one of the engine's own error kinds
func userError(partIndex, offset int, err error) error {
	switch err.(type) {
	case errors.TypeShapeError, errors.UserFunctionError:
		return err
	}
	return errors.UserFunctionError{Partition: partIndex, Offset: offset, Err: err}
}

// recovered converts a panic value into an error
func recovered(r interface{}) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", r)
}

// mapRows applies a MapOperation to every row, producing a new partition with
// the same index
func (p *partition) mapRows(fn MapOperation) (next *partition, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = userError(p.index, -1, recovered(r))
		}
	}()
	out := make([]Row, len(p.rows))
	for i, row := range p.rows {
		mapped, ferr := fn(row)
		if ferr != nil {
			return nil, userError(p.index, i, ferr)
		}
		out[i] = mapped
	}
	return createPartition(p.index, out), nil
}

// filterRows retains the rows satisfying a FilterOperation, preserving order
func (p *partition) filterRows(fn FilterOperation) (next *partition, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = userError(p.index, -1, recovered(r))
		}
	}()
	out := make([]Row, 0, len(p.rows))
	for i, row := range p.rows {
		keep, ferr := fn(row)
		if ferr != nil {
			return nil, userError(p.index, i, ferr)
		}
		if keep {
			out = append(out, row)
		}
	}
	return createPartition(p.index, out), nil
}

// flatMapRows applies a FlatMapOperation to every row, concatenating results
// in row order
func (p *partition) flatMapRows(fn FlatMapOperation) (next *partition, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = userError(p.index, -1, recovered(r))
		}
	}()
	out := make([]Row, 0, len(p.rows))
	for i, row := range p.rows {
		mapped, ferr := fn(row)
		if ferr != nil {
			return nil, userError(p.index, i, ferr)
		}
		out = append(out, mapped...)
	}
	return createPartition(p.index, out), nil
}

// mapWholePartition hands the entire row sequence to a PartitionMapOperation
// along with a PartitionContext seeded for this partition
func (p *partition) mapWholePartition(fn PartitionMapOperation, seed int64) (next *partition, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = userError(p.index, -1, recovered(r))
		}
	}()
	pctx := &PartitionContext{
		index: p.index,
		rand:  rand.New(rand.NewSource(seedFor(seed, p.index))),
	}
	in := make([]Row, len(p.rows))
	copy(in, p.rows)
	out, ferr := fn(pctx, in)
	if ferr != nil {
		return nil, userError(p.index, -1, ferr)
	}
	return createPartition(p.index, out), nil
}

// sampleRows samples this partition's rows with a private generator seeded
// from the global seed and the partition index
func (p *partition) sampleRows(withReplacement bool, fraction float64, seed int64) (*partition, error) {
	rng := rand.New(rand.NewSource(seedFor(seed, p.index)))
	out := make([]Row, 0, len(p.rows))
	for _, row := range p.rows {
		if withReplacement {
			for n := poisson(rng, fraction); n > 0; n-- {
				out = append(out, row)
			}
		} else if rng.Float64() < fraction {
			out = append(out, row)
		}
	}
	return createPartition(p.index, out), nil
}

// poisson draws a Poisson-distributed count with the given mean (Knuth's
// method; means here are small sampling fractions)
func poisson(rng *rand.Rand, mean float64) int {
	if mean <= 0 {
		return 0
	}
	l := math.Exp(-mean)
	k := 0
	p := 1.0
	for {
		p *= rng.Float64()
		if p <= l {
			return k
		}
		k++
	}
}
