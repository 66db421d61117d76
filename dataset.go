package drift

import (
	"log"
	"runtime"

	uuid "github.com/gofrs/uuid"
)

// A DataSource produces the initial partitions of a Dataset. Implementations
// must be deterministic: repeated calls for the same index return the same
// rows in the same order. Implementations live under the datasource
// subpackages.
type DataSource interface {
	NumPartitions() int               // NumPartitions returns the number of partitions this source produces
	PartitionRows(idx int) ([]Row, error) // PartitionRows returns the rows of one partition
}

// A Dataset is a lazy, immutable handle describing how to compute a
// partitioned collection of Rows. Transformations return a brand-new Dataset
// wrapping the corresponding operator and referencing its parent(s); nothing
// is evaluated until an action is called. A Dataset never stores materialized
// rows itself.
type Dataset struct {
	id              string
	kind            OpKind
	parent          *Dataset
	other           *Dataset
	source          DataSource
	numPartitions   int
	parallelism     int
	cached          bool
	mapFn           MapOperation
	filterFn        FilterOperation
	flatMapFn       FlatMapOperation
	partFn          PartitionMapOperation
	reduceFn        ReductionOperation
	ascending       bool
	withReplacement bool
	fraction        float64
	seed            int64
}

// createDataset is a factory for Datasets, assigning each a unique id
func createDataset(kind OpKind) *Dataset {
	id, err := uuid.NewV4()
	if err != nil {
		log.Fatalf("failed to generate UUID: %v", err)
	}
	return &Dataset{id: id.String(), kind: kind}
}

// deriveDataset builds a Dataset on top of a single parent, inheriting its
// partition count and parallelism
func deriveDataset(kind OpKind, parent *Dataset) *Dataset {
	d := createDataset(kind)
	d.parent = parent
	d.numPartitions = parent.numPartitions
	d.parallelism = parent.parallelism
	return d
}

// FromSource builds a Source Dataset over a DataSource. This function is not
// generally used directly; the datasource subpackages wrap it.
func FromSource(source DataSource) *Dataset {
	d := createDataset(SourceOp)
	d.source = source
	d.numPartitions = source.NumPartitions()
	d.parallelism = runtime.NumCPU()
	return d
}

// ID returns the unique id of this Dataset
func (d *Dataset) ID() string {
	return d.id
}

// Kind returns the operator kind of this Dataset
func (d *Dataset) Kind() OpKind {
	return d.kind
}

// NumPartitions returns the target partition count of this Dataset
func (d *Dataset) NumPartitions() int {
	return d.numPartitions
}

// WithParallelism returns a Dataset identical to this one whose actions run
// up to workers partition tasks concurrently. Derived Datasets inherit the
// setting.
func (d *Dataset) WithParallelism(workers int) *Dataset {
	if workers < 1 {
		workers = 1
	}
	next := *d
	next.parallelism = workers
	return &next
}

// Cache marks this Dataset for cross-action partition caching: the first
// action to materialize it stores its partitions, and later actions replay
// them instead of recomputing. Rows must be gob-encodable. A cache miss
// silently falls back to recomputation.
func (d *Dataset) Cache() *Dataset {
	next := *d
	next.cached = true
	return &next
}

// Map transforms each row of this Dataset into one new row
func (d *Dataset) Map(fn MapOperation) *Dataset {
	next := deriveDataset(MapOp, d)
	next.mapFn = fn
	return next
}

// Filter retains the rows of this Dataset satisfying a predicate, in their
// original relative order
func (d *Dataset) Filter(fn FilterOperation) *Dataset {
	next := deriveDataset(FilterOp, d)
	next.filterFn = fn
	return next
}

// FlatMap transforms each row of this Dataset into zero or more new rows,
// concatenated in partition-then-row order
func (d *Dataset) FlatMap(fn FlatMapOperation) *Dataset {
	next := deriveDataset(FlatMapOp, d)
	next.flatMapFn = fn
	return next
}

// MapPartitions applies fn to each whole partition at once. Equivalent to
// MapPartitionsWithSeed with a zero seed.
func (d *Dataset) MapPartitions(fn PartitionMapOperation) *Dataset {
	return d.MapPartitionsWithSeed(fn, 0)
}

// MapPartitionsWithSeed applies fn to each whole partition at once. The
// PartitionContext passed to fn carries a random generator seeded from the
// given seed combined with the partition index, so per-partition randomness
// is repeatable for a fixed seed and never shared across partitions.
func (d *Dataset) MapPartitionsWithSeed(fn PartitionMapOperation, seed int64) *Dataset {
	next := deriveDataset(MapPartitionsOp, d)
	next.partFn = fn
	next.seed = seed
	return next
}

// Union concatenates this Dataset with another: the result holds every
// partition of d followed by every partition of other, duplicates retained
func (d *Dataset) Union(other *Dataset) *Dataset {
	next := deriveDataset(UnionOp, d)
	next.other = other
	next.numPartitions = d.numPartitions + other.numPartitions
	return next
}

// Sample randomly samples the rows of this Dataset. Without replacement each
// row is retained with probability fraction; with replacement each row is
// emitted a Poisson(fraction)-distributed number of times. Each partition
// draws from its own generator seeded from seed and the partition index, so
// results are repeatable for a fixed seed.
func (d *Dataset) Sample(withReplacement bool, fraction float64, seed int64) *Dataset {
	next := deriveDataset(SampleOp, d)
	next.withReplacement = withReplacement
	next.fraction = fraction
	next.seed = seed
	return next
}

// GroupByKey shuffles key/value rows so that all values sharing a key land in
// one row (key, []Row of values). Within a key, original partition-then-row
// order is preserved.
func (d *Dataset) GroupByKey() *Dataset {
	return deriveDataset(GroupByKeyOp, d)
}

// ReduceByKey folds all values sharing a key into one using fn, combining
// partially within each source partition before shuffling. fn must be
// associative and commutative.
func (d *Dataset) ReduceByKey(fn ReductionOperation) *Dataset {
	next := deriveDataset(ReduceByKeyOp, d)
	next.reduceFn = fn
	return next
}

// SortByKey range-partitions key/value rows by key and sorts each partition,
// so concatenating partitions in index order yields a fully key-sorted
// sequence. Equal keys keep their partition-then-row arrival order.
func (d *Dataset) SortByKey(ascending bool) *Dataset {
	next := deriveDataset(SortByKeyOp, d)
	next.ascending = ascending
	return next
}

// Join inner-joins two key/value Datasets, producing one row
// (key, Tuple{left, right}) per matching pair. Keys absent on either side
// emit nothing.
func (d *Dataset) Join(other *Dataset) *Dataset {
	next := deriveDataset(JoinOp, d)
	next.other = other
	return next
}

// Distinct shuffles rows by whole-row hash and keeps the first occurrence of
// each distinct row
func (d *Dataset) Distinct() *Dataset {
	return deriveDataset(DistinctOp, d)
}

// Intersection emits each row present in both this Dataset and other, once,
// even if it appeared multiple times in either input
func (d *Dataset) Intersection(other *Dataset) *Dataset {
	next := deriveDataset(IntersectionOp, d)
	next.other = other
	return next
}

// Subtract emits the rows of this Dataset which do not appear in other,
// preserving left-side duplicates
func (d *Dataset) Subtract(other *Dataset) *Dataset {
	next := deriveDataset(SubtractOp, d)
	next.other = other
	return next
}

// Keys maps key/value rows to their keys
func (d *Dataset) Keys() *Dataset {
	return d.Map(func(row Row) (Row, error) {
		kv, ok := row.(KeyValue)
		if !ok {
			return nil, errTypeShape("Keys")
		}
		return kv.Key, nil
	})
}

// Values maps key/value rows to their values
func (d *Dataset) Values() *Dataset {
	return d.Map(func(row Row) (Row, error) {
		kv, ok := row.(KeyValue)
		if !ok {
			return nil, errTypeShape("Values")
		}
		return kv.Value, nil
	})
}

// MapValues transforms the value of each key/value row, leaving keys intact
func (d *Dataset) MapValues(fn MapOperation) *Dataset {
	return d.Map(func(row Row) (Row, error) {
		kv, ok := row.(KeyValue)
		if !ok {
			return nil, errTypeShape("MapValues")
		}
		v, err := fn(kv.Value)
		if err != nil {
			return nil, err
		}
		return KeyValue{Key: kv.Key, Value: v}, nil
	})
}
